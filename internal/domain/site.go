package domain

type Site struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Order int    `json:"order"` // 仅决定展示时的相对顺序，不要求连续

	// GroupOrder 记录该现场内车辆分组的自定义顺序，惰性生成：
	// 只有用户在该现场调整过分组顺序后才会写入
	GroupOrder []GroupKey `json:"groupOrder,omitempty"`
}
