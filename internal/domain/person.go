package domain

type Role string

const (
	RoleManager  Role = "MANAGER"
	RoleStaff    Role = "STAFF"
	RoleOperator Role = "OPERATOR"
	RoleWorker   Role = "WORKER"
)

// LunchOrder 表示便当的订购去向，空字符串表示尚未选择
type LunchOrder string

const (
	LunchOrderUnset  LunchOrder = ""
	LunchOrderOffice LunchOrder = "OFFICE"
	LunchOrderSite   LunchOrder = "SITE"
)

// OffDutySiteID 是"休息"这一特殊位置的固定 ID。
// 人员要么在某个现场，要么在休息，SiteID 永远不允许为空
const OffDutySiteID = "offduty"

type Person struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Role       Role       `json:"role"`
	SiteID     string     `json:"siteId"`
	VehicleID  string     `json:"vehicleId"` // 空字符串表示未乘车，也可能是 temp_ 开头的占位分组
	IsDriver   bool       `json:"isDriver"`
	HasLunch   bool       `json:"hasLunch"`
	LunchOrder LunchOrder `json:"lunchOrder,omitempty"`
}

func (p *Person) IsOffDuty() bool {
	return p.SiteID == OffDutySiteID
}

// SortPriority 定义组内展示排序的优先级：
// 管理职(0) > 运转手(1) > 职员(2) > 操作手(3) > 作业员(4)，未知角色排最后
func SortPriority(p *Person) int {
	if p.Role == RoleManager {
		return 0
	}
	if p.IsDriver {
		return 1
	}
	switch p.Role {
	case RoleStaff:
		return 2
	case RoleOperator:
		return 3
	case RoleWorker:
		return 4
	default:
		return 99
	}
}

// NormalizePeople 对读入的人员数据做迁移：历史数据中 siteId 可能为空（表示未配置），
// 统一迁移到休息；便当为"无"时清空订购去向，保证不变量成立
func NormalizePeople(people []Person) []Person {
	normalized := make([]Person, len(people))
	for i, p := range people {
		if p.SiteID == "" {
			p.SiteID = OffDutySiteID
		}
		if !p.HasLunch {
			p.LunchOrder = LunchOrderUnset
		}
		normalized[i] = p
	}
	return normalized
}
