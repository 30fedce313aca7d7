package domain

// BoardData 汇总看板的全部数据，本地存储、远端文档和备份槽都以它为单位读写
type BoardData struct {
	Sites      []Site      `json:"sites"`
	People     []Person    `json:"people"`
	Vehicles   []Vehicle   `json:"vehicles"`
	LastUpdate *UpdateInfo `json:"lastUpdate,omitempty"`
}

func (d BoardData) Clone() BoardData {
	cloned := BoardData{
		Sites:    make([]Site, len(d.Sites)),
		People:   make([]Person, len(d.People)),
		Vehicles: make([]Vehicle, len(d.Vehicles)),
	}

	for i, s := range d.Sites {
		if s.GroupOrder != nil {
			groupOrder := make([]GroupKey, len(s.GroupOrder))
			copy(groupOrder, s.GroupOrder)
			s.GroupOrder = groupOrder
		}
		cloned.Sites[i] = s
	}
	copy(cloned.People, d.People)
	copy(cloned.Vehicles, d.Vehicles)

	if d.LastUpdate != nil {
		info := *d.LastUpdate
		cloned.LastUpdate = &info
	}

	return cloned
}
