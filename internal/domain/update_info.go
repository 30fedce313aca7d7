package domain

import "time"

// UpdateInfo 记录最近一次配置完成的时间和操作人，整个系统只有一份，每次完成时整体覆盖
type UpdateInfo struct {
	Time time.Time `json:"time"`
	Name string    `json:"name"`
}
