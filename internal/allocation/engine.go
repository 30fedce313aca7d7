// Package allocation 实现看板的内存配置引擎：
// 人员移动流程的状态机、运转手/便当/车辆等单体操作、
// 以及配置会话的快照、提交与回滚。
//
// 所有操作都在同一把互斥锁内同步完成，彼此不会交错；
// 每个变更都以"整体替换集合"的方式计算，不存在部分写入的中间态。
// 引用了不存在的 ID 的操作一律当作空操作处理，而不是报错，
// 这样其他设备删除数据后残留的旧引用不会造成异常。
package allocation

import (
	"sync"
	"time"

	"github.com/sysu-ecnc-dev/site-dispatch/backend/internal/domain"
)

type Engine struct {
	mu sync.Mutex

	data domain.BoardData

	session *sessionState
	move    moveState

	// 数据变化后在锁外调用，用于通知同步协调器
	onChange func()
}

func NewEngine(data domain.BoardData) *Engine {
	data.People = domain.NormalizePeople(data.People)
	return &Engine{
		data: data,
		move: moveState{phase: MoveIdle},
	}
}

// SetOnChange 注册数据变化回调，必须在引擎开始使用前设置
func (e *Engine) SetOnChange(fn func()) {
	e.onChange = fn
}

func (e *Engine) notifyChange() {
	if e.onChange != nil {
		e.onChange()
	}
}

// update 在锁内执行变更，然后在锁外触发变化通知
func (e *Engine) update(fn func()) {
	e.mu.Lock()
	fn()
	e.mu.Unlock()
	e.notifyChange()
}

// Snapshot 返回当前全部数据的深拷贝
func (e *Engine) Snapshot() domain.BoardData {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.data.Clone()
}

// ReplaceAll 用远端数据整体替换本地数据，由同步协调器在应用远端变更时调用
func (e *Engine) ReplaceAll(data domain.BoardData) {
	e.update(func() {
		data.People = domain.NormalizePeople(data.People)
		e.data = data.Clone()
	})
}

// LastUpdateTime 返回最近一次配置完成的时间，从未完成过则返回零值
func (e *Engine) LastUpdateTime() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.data.LastUpdate == nil {
		return time.Time{}
	}
	return e.data.LastUpdate.Time
}

func (e *Engine) findPerson(id string) *domain.Person {
	for i := range e.data.People {
		if e.data.People[i].ID == id {
			return &e.data.People[i]
		}
	}
	return nil
}

func (e *Engine) findSite(id string) *domain.Site {
	for i := range e.data.Sites {
		if e.data.Sites[i].ID == id {
			return &e.data.Sites[i]
		}
	}
	return nil
}
