package allocation

import (
	"sort"
	"strings"

	"github.com/sysu-ecnc-dev/site-dispatch/backend/internal/domain"
)

// GroupView 是现场内一个乘车分组的展示结构
type GroupView struct {
	Key       domain.GroupKey `json:"key"`
	VehicleID string          `json:"vehicleId,omitempty"`
	Members   []domain.Person `json:"members"`
}

// SiteGroups 返回指定现场的分组视图：
// 分组按现场记录的顺序排列，组内成员按角色优先级稳定排序
func (e *Engine) SiteGroups(siteID string) ([]GroupView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var site *domain.Site
	if siteID != domain.OffDutySiteID {
		site = e.findSite(siteID)
		if site == nil {
			return nil, ErrSiteNotFound
		}
	}

	staff := make([]domain.Person, 0)
	for _, p := range e.data.People {
		if p.SiteID == siteID {
			staff = append(staff, p)
		}
	}

	keys := domain.ResolveGroupOrder(site, domain.GroupKeysInOrder(staff))
	grouped := domain.GroupByVehicle(staff)

	views := make([]GroupView, 0, len(keys))
	for _, key := range keys {
		members := grouped[key]
		sort.SliceStable(members, func(i, j int) bool {
			return domain.SortPriority(&members[i]) < domain.SortPriority(&members[j])
		})
		view := GroupView{Key: key, Members: members}
		if id, ok := key.VehicleID(); ok {
			view.VehicleID = id
		}
		views = append(views, view)
	}
	return views, nil
}

// LunchCount 按订购去向统计的便当数量。
// 便当为有但去向未选择的按事务所计
type LunchCount struct {
	Office int `json:"office"`
	Site   int `json:"site"`
}

// LunchSummary 统计当前需要订购的便当数量
func (e *Engine) LunchSummary() LunchCount {
	e.mu.Lock()
	defer e.mu.Unlock()

	var count LunchCount
	for _, p := range e.data.People {
		if !p.HasLunch {
			continue
		}
		if p.LunchOrder == domain.LunchOrderSite {
			count.Site++
		} else {
			count.Office++
		}
	}
	return count
}

// SearchResult 是人员检索的单条结果
type SearchResult struct {
	Person   domain.Person `json:"person"`
	SiteName string        `json:"siteName"`
}

// SearchPeople 按姓名子串检索人员，返回人员及其所在现场名。
// 休息中的人员现场名固定为「休息」
func (e *Engine) SearchPeople(query string) []SearchResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	query = strings.TrimSpace(query)
	if query == "" {
		return []SearchResult{}
	}

	siteNames := make(map[string]string, len(e.data.Sites))
	for _, s := range e.data.Sites {
		siteNames[s.ID] = s.Name
	}

	results := make([]SearchResult, 0)
	for _, p := range e.data.People {
		if !strings.Contains(p.Name, query) {
			continue
		}
		name := siteNames[p.SiteID]
		if p.IsOffDuty() {
			name = "休息"
		}
		results = append(results, SearchResult{Person: p, SiteName: name})
	}
	return results
}
