package domain

import (
	"reflect"
	"testing"
)

func TestSortPriority(t *testing.T) {
	tests := []struct {
		name   string
		person Person
		want   int
	}{
		{"管理职优先于一切", Person{Role: RoleManager, IsDriver: true}, 0},
		{"运转手排在管理职之后", Person{Role: RoleWorker, IsDriver: true}, 1},
		{"职员", Person{Role: RoleStaff}, 2},
		{"操作手", Person{Role: RoleOperator}, 3},
		{"作业员", Person{Role: RoleWorker}, 4},
		{"未知角色排最后", Person{Role: Role("INTERN")}, 99},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SortPriority(&tt.person); got != tt.want {
				t.Errorf("SortPriority() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestGroupKey(t *testing.T) {
	if !NoVehicleKey.IsNoVehicle() {
		t.Error("NoVehicleKey.IsNoVehicle() = false")
	}

	placeholder := NewPlaceholderKey()
	if !placeholder.IsPlaceholder() {
		t.Errorf("NewPlaceholderKey() = %q, IsPlaceholder() = false", placeholder)
	}
	if placeholder == NewPlaceholderKey() {
		t.Error("两次生成的占位分组键不应相同")
	}
	if _, ok := placeholder.VehicleID(); ok {
		t.Error("占位分组不应有真实车辆 ID")
	}

	key := GroupKeyFor("v-1")
	if id, ok := key.VehicleID(); !ok || id != "v-1" {
		t.Errorf("GroupKeyFor(v-1).VehicleID() = %q, %v", id, ok)
	}
	if GroupKeyFor("") != NoVehicleKey {
		t.Error("空 VehicleID 应映射到 NoVehicleKey")
	}
}

func TestGroupByVehicle(t *testing.T) {
	people := []Person{
		{ID: "p1", VehicleID: "v-1"},
		{ID: "p2", VehicleID: ""},
		{ID: "p3", VehicleID: "v-1"},
		{ID: "p4", VehicleID: "temp_abc"},
	}

	grouped := GroupByVehicle(people)

	if len(grouped) != 3 {
		t.Fatalf("分组数 = %d, want 3", len(grouped))
	}
	if got := grouped[GroupKey("v-1")]; len(got) != 2 || got[0].ID != "p1" || got[1].ID != "p3" {
		t.Errorf("v-1 分组 = %+v, 应保持传入顺序 [p1 p3]", got)
	}
	if got := grouped[NoVehicleKey]; len(got) != 1 || got[0].ID != "p2" {
		t.Errorf("未乘车分组 = %+v, want [p2]", got)
	}
	if got := grouped[GroupKey("temp_abc")]; len(got) != 1 || got[0].ID != "p4" {
		t.Errorf("占位分组 = %+v, want [p4]", got)
	}
}

func TestResolveGroupOrder(t *testing.T) {
	tests := []struct {
		name       string
		groupOrder []GroupKey
		keys       []GroupKey
		want       []GroupKey
	}{
		{
			name: "无记录时保持传入顺序",
			keys: []GroupKey{"v-2", "null", "v-1"},
			want: []GroupKey{"v-2", "null", "v-1"},
		},
		{
			name:       "按记录下标排序",
			groupOrder: []GroupKey{"v-1", "null", "v-2"},
			keys:       []GroupKey{"v-2", "null", "v-1"},
			want:       []GroupKey{"v-1", "null", "v-2"},
		},
		{
			name:       "未记录的键保持相对顺序并排在已记录的键之前",
			groupOrder: []GroupKey{"v-2", "v-1"},
			keys:       []GroupKey{"v-1", "temp_x", "v-2", "temp_y"},
			want:       []GroupKey{"temp_x", "temp_y", "v-2", "v-1"},
		},
		{
			name:       "记录中有已消失的键不影响结果",
			groupOrder: []GroupKey{"v-9", "v-1", "v-2"},
			keys:       []GroupKey{"v-2", "v-1"},
			want:       []GroupKey{"v-1", "v-2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			site := &Site{ID: "s1", GroupOrder: tt.groupOrder}
			got := ResolveGroupOrder(site, tt.keys)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ResolveGroupOrder() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalizePeople(t *testing.T) {
	people := []Person{
		{ID: "p1", SiteID: ""},
		{ID: "p2", SiteID: "site-1", HasLunch: false, LunchOrder: LunchOrderOffice},
		{ID: "p3", SiteID: "site-1", HasLunch: true, LunchOrder: LunchOrderSite},
	}

	normalized := NormalizePeople(people)

	if normalized[0].SiteID != OffDutySiteID {
		t.Errorf("空 siteId 应迁移到休息, got %q", normalized[0].SiteID)
	}
	if normalized[1].LunchOrder != LunchOrderUnset {
		t.Error("便当为无时订购去向应清空")
	}
	if normalized[2].LunchOrder != LunchOrderSite {
		t.Error("便当为有时订购去向应保留")
	}
}
