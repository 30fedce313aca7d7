package allocation

import "errors"

var (
	ErrMoveInProgress = errors.New("已有人员正在移动中")
	ErrWrongMovePhase = errors.New("移动流程当前阶段不允许该操作")
	ErrPersonNotFound = errors.New("人员不存在")
	ErrSiteNotFound   = errors.New("现场不存在")
	ErrSessionActive  = errors.New("配置会话已在进行中")
	ErrNoSession      = errors.New("当前没有进行中的配置会话")
	ErrInvalidImport  = errors.New("导入数据缺少 sites、people 或 vehicles 字段")
)
