package allocation

import (
	"github.com/sysu-ecnc-dev/site-dispatch/backend/internal/domain"
)

// ToggleDriver 翻转指定人员的运转手标记。
// 翻转后为真时，同车辆的其他人员全部取消运转手，
// 保证每辆车同一时刻至多一名运转手。
// 未乘车的人员也允许翻转，此时不影响任何其他人
func (e *Engine) ToggleDriver(personID string) {
	e.update(func() {
		target := e.findPerson(personID)
		if target == nil {
			return
		}
		vehicleID := target.VehicleID

		next := make([]domain.Person, len(e.data.People))
		for i, p := range e.data.People {
			switch {
			case p.ID == personID:
				p.IsDriver = !p.IsDriver
			case vehicleID != "" && p.VehicleID == vehicleID:
				p.IsDriver = false
			}
			next[i] = p
		}
		e.data.People = next
	})
}

// ChangeGroupVehicle 把某现场内乘坐 oldVehicleID 的整组人改乘 newVehicleID。
// 运转手身份不跨车辆保留，受影响的人全部重置
func (e *Engine) ChangeGroupVehicle(siteID, oldVehicleID, newVehicleID string) {
	e.update(func() {
		next := make([]domain.Person, len(e.data.People))
		for i, p := range e.data.People {
			if p.SiteID == siteID && p.VehicleID == oldVehicleID {
				p.VehicleID = newVehicleID
				p.IsDriver = false
			}
			next[i] = p
		}
		e.data.People = next
	})
}

// MoveToOffDuty 把人员直接移到休息，同时清空乘车和运转手
func (e *Engine) MoveToOffDuty(personID string) {
	e.update(func() {
		next := make([]domain.Person, len(e.data.People))
		for i, p := range e.data.People {
			if p.ID == personID {
				p.SiteID = domain.OffDutySiteID
				p.VehicleID = ""
				p.IsDriver = false
			}
			next[i] = p
		}
		e.data.People = next
	})
}

// ToggleLunch 翻转便当有无。从有变为无时同时清空订购去向；
// 从无变为有不会设置订购去向，去向由随后的 SetLunchOrder 单独选择
func (e *Engine) ToggleLunch(personID string) {
	e.update(func() {
		next := make([]domain.Person, len(e.data.People))
		for i, p := range e.data.People {
			if p.ID == personID {
				p.HasLunch = !p.HasLunch
				if !p.HasLunch {
					p.LunchOrder = domain.LunchOrderUnset
				}
			}
			next[i] = p
		}
		e.data.People = next
	})
}

// SetLunchOrder 设置便当订购去向，同时把便当置为有
func (e *Engine) SetLunchOrder(personID string, order domain.LunchOrder) {
	e.update(func() {
		next := make([]domain.Person, len(e.data.People))
		for i, p := range e.data.People {
			if p.ID == personID {
				p.HasLunch = true
				p.LunchOrder = order
			}
			next[i] = p
		}
		e.data.People = next
	})
}

type Direction string

const (
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
)

// ReorderGroup 把现场内指定分组与相邻分组交换位置，
// 并把完整的新顺序写回 Site.GroupOrder。
// 处于边界时（最左组向左、最右组向右）是空操作
func (e *Engine) ReorderGroup(siteID string, key domain.GroupKey, direction Direction) {
	e.update(func() {
		site := e.findSite(siteID)
		if site == nil {
			return
		}

		staff := make([]domain.Person, 0)
		for _, p := range e.data.People {
			if p.SiteID == siteID {
				staff = append(staff, p)
			}
		}

		keys := domain.ResolveGroupOrder(site, domain.GroupKeysInOrder(staff))

		idx := -1
		for i, k := range keys {
			if k == key {
				idx = i
				break
			}
		}
		if idx == -1 {
			return
		}

		switch {
		case direction == DirectionLeft && idx > 0:
			keys[idx-1], keys[idx] = keys[idx], keys[idx-1]
		case direction == DirectionRight && idx < len(keys)-1:
			keys[idx], keys[idx+1] = keys[idx+1], keys[idx]
		default:
			return
		}

		site.GroupOrder = keys
	})
}
