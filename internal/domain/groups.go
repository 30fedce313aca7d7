package domain

import (
	"sort"
	"strings"

	"github.com/google/uuid"
)

// GroupKey 标识现场内的一个车辆分组。取值有三类：
//   - 真实车辆的 ID
//   - NoVehicleKey，表示未乘车的人员聚成的分组
//   - temp_ 开头的占位分组，新建分组尚未选择车辆时临时存在
//
// 序列化格式与历史数据保持一致，所以这里保留字符串哨兵值，
// 但调用方应当通过方法判断种类，不要直接比较原始字符串
type GroupKey string

// NoVehicleKey 与历史数据的 "null" 哨兵保持兼容
const NoVehicleKey GroupKey = "null"

const placeholderPrefix = "temp_"

// NewPlaceholderKey 生成一个全新的占位分组键，保证与任何既有车辆 ID 不同
func NewPlaceholderKey() GroupKey {
	return GroupKey(placeholderPrefix + uuid.NewString())
}

func (k GroupKey) IsNoVehicle() bool {
	return k == NoVehicleKey
}

func (k GroupKey) IsPlaceholder() bool {
	return strings.HasPrefix(string(k), placeholderPrefix)
}

// VehicleID 返回分组对应的真实车辆 ID，未乘车分组和占位分组没有真实车辆
func (k GroupKey) VehicleID() (string, bool) {
	if k.IsNoVehicle() || k.IsPlaceholder() {
		return "", false
	}
	return string(k), true
}

// GroupKeyFor 由人员的 VehicleID 得到其所属分组的键
func GroupKeyFor(vehicleID string) GroupKey {
	if vehicleID == "" {
		return NoVehicleKey
	}
	return GroupKey(vehicleID)
}

// GroupByVehicle 按车辆把人员划分成分组，组内保持传入顺序。
// 调用方负责先过滤掉休息人员
func GroupByVehicle(people []Person) map[GroupKey][]Person {
	grouped := make(map[GroupKey][]Person)
	for _, p := range people {
		key := GroupKeyFor(p.VehicleID)
		grouped[key] = append(grouped[key], p)
	}
	return grouped
}

// GroupKeysInOrder 按人员的出现顺序返回去重后的分组键
func GroupKeysInOrder(people []Person) []GroupKey {
	seen := make(map[GroupKey]bool)
	keys := make([]GroupKey, 0)
	for _, p := range people {
		key := GroupKeyFor(p.VehicleID)
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	return keys
}

// ResolveGroupOrder 按现场记录的 GroupOrder 对分组键排序。
// 记录中找不到的键视为下标 -1：它们保持传入时的相对顺序并排在所有已记录的键之前，
// 已记录的键按记录中的下标升序排列
func ResolveGroupOrder(site *Site, keys []GroupKey) []GroupKey {
	ordered := make([]GroupKey, len(keys))
	copy(ordered, keys)

	// 休息没有对应的 Site，也没有可记录的顺序
	if site == nil || len(site.GroupOrder) == 0 {
		return ordered
	}

	indexOf := make(map[GroupKey]int, len(site.GroupOrder))
	for i, key := range site.GroupOrder {
		indexOf[key] = i
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		ii, iok := indexOf[ordered[i]]
		ji, jok := indexOf[ordered[j]]
		if !iok {
			ii = -1
		}
		if !jok {
			ji = -1
		}
		return ii < ji
	})

	return ordered
}
