package allocation

import (
	"github.com/google/uuid"

	"github.com/sysu-ecnc-dev/site-dispatch/backend/internal/domain"
)

// AddSite 新增现场，排在现有现场之后
func (e *Engine) AddSite(name string) domain.Site {
	var site domain.Site
	e.update(func() {
		site = domain.Site{
			ID:    uuid.NewString(),
			Name:  name,
			Order: len(e.data.Sites),
		}
		e.data.Sites = append(e.data.Sites, site)
	})
	return site
}

// DeleteSite 删除现场。原先在该现场的人员全部迁到休息，
// 乘车与运转手一并清空
func (e *Engine) DeleteSite(siteID string) {
	e.update(func() {
		sites := make([]domain.Site, 0, len(e.data.Sites))
		for _, s := range e.data.Sites {
			if s.ID != siteID {
				sites = append(sites, s)
			}
		}
		e.data.Sites = sites

		people := make([]domain.Person, len(e.data.People))
		for i, p := range e.data.People {
			if p.SiteID == siteID {
				p.SiteID = domain.OffDutySiteID
				p.VehicleID = ""
				p.IsDriver = false
			}
			people[i] = p
		}
		e.data.People = people
	})
}

// AddVehicle 新增车辆
func (e *Engine) AddVehicle(name string) domain.Vehicle {
	var vehicle domain.Vehicle
	e.update(func() {
		vehicle = domain.Vehicle{ID: uuid.NewString(), Name: name}
		e.data.Vehicles = append(e.data.Vehicles, vehicle)
	})
	return vehicle
}

// DeleteVehicle 删除车辆。乘坐者改为不乘车并取消运转手，
// 各现场记录的分组顺序中对应的键一并移除
func (e *Engine) DeleteVehicle(vehicleID string) {
	e.update(func() {
		vehicles := make([]domain.Vehicle, 0, len(e.data.Vehicles))
		for _, v := range e.data.Vehicles {
			if v.ID != vehicleID {
				vehicles = append(vehicles, v)
			}
		}
		e.data.Vehicles = vehicles

		people := make([]domain.Person, len(e.data.People))
		for i, p := range e.data.People {
			if p.VehicleID == vehicleID {
				p.VehicleID = ""
				p.IsDriver = false
			}
			people[i] = p
		}
		e.data.People = people

		key := domain.GroupKeyFor(vehicleID)
		for i := range e.data.Sites {
			order := e.data.Sites[i].GroupOrder
			if len(order) == 0 {
				continue
			}
			kept := make([]domain.GroupKey, 0, len(order))
			for _, k := range order {
				if k != key {
					kept = append(kept, k)
				}
			}
			e.data.Sites[i].GroupOrder = kept
		}
	})
}

// AddPerson 新增人员，初始在休息且不乘车
func (e *Engine) AddPerson(name string, role domain.Role, hasLunch bool) domain.Person {
	var person domain.Person
	e.update(func() {
		person = domain.Person{
			ID:       uuid.NewString(),
			Name:     name,
			Role:     role,
			SiteID:   domain.OffDutySiteID,
			HasLunch: hasLunch,
		}
		e.data.People = append(e.data.People, person)
	})
	return person
}

// DeletePerson 删除人员
func (e *Engine) DeletePerson(personID string) {
	e.update(func() {
		people := make([]domain.Person, 0, len(e.data.People))
		for _, p := range e.data.People {
			if p.ID != personID {
				people = append(people, p)
			}
		}
		e.data.People = people
	})
}
