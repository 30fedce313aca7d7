package allocation

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/sysu-ecnc-dev/site-dispatch/backend/internal/domain"
)

// sessionState 保存会话开始时刻的数据快照，
// 用 JSON 序列化后的字节做逐字节比较来判断是否有实际变更
type sessionState struct {
	peopleSnap []byte
	sitesSnap  []byte
}

func snapshotSession(data *domain.BoardData) (*sessionState, error) {
	peopleSnap, err := json.Marshal(data.People)
	if err != nil {
		return nil, err
	}
	sitesSnap, err := json.Marshal(data.Sites)
	if err != nil {
		return nil, err
	}
	return &sessionState{peopleSnap: peopleSnap, sitesSnap: sitesSnap}, nil
}

// BeginSession 开始一次配置会话，记录当前人员与现场的快照。
// 会话进行期间远端变更不会应用到本地
func (e *Engine) BeginSession() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session != nil {
		return ErrSessionActive
	}

	snap, err := snapshotSession(&e.data)
	if err != nil {
		return err
	}
	e.session = snap
	return nil
}

// SessionActive 返回当前是否有进行中的配置会话
func (e *Engine) SessionActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session != nil
}

// HasChanges 判断会话开始以来数据是否发生了实际变更
func (e *Engine) HasChanges() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return false, ErrNoSession
	}

	peopleNow, err := json.Marshal(e.data.People)
	if err != nil {
		return false, err
	}
	sitesNow, err := json.Marshal(e.data.Sites)
	if err != nil {
		return false, err
	}

	changed := !bytes.Equal(peopleNow, e.session.peopleSnap) ||
		!bytes.Equal(sitesNow, e.session.sitesSnap)
	return changed, nil
}

// CompleteSession 提交配置会话：盖上完成者姓名与当前时刻，
// 丢弃快照并复位移动流程
func (e *Engine) CompleteSession(name string) (*domain.UpdateInfo, error) {
	e.mu.Lock()

	if e.session == nil {
		e.mu.Unlock()
		return nil, ErrNoSession
	}

	info := &domain.UpdateInfo{Time: time.Now(), Name: name}
	e.data.LastUpdate = info
	e.session = nil
	e.move = moveState{phase: MoveIdle}

	e.mu.Unlock()
	e.notifyChange()
	return info, nil
}

// RollbackSession 放弃会话中的全部修改，恢复到会话开始时刻的状态
func (e *Engine) RollbackSession() error {
	e.mu.Lock()

	if e.session == nil {
		e.mu.Unlock()
		return ErrNoSession
	}

	var people []domain.Person
	if err := json.Unmarshal(e.session.peopleSnap, &people); err != nil {
		e.mu.Unlock()
		return err
	}
	var sites []domain.Site
	if err := json.Unmarshal(e.session.sitesSnap, &sites); err != nil {
		e.mu.Unlock()
		return err
	}

	e.data.People = people
	e.data.Sites = sites
	e.session = nil
	e.move = moveState{phase: MoveIdle}

	e.mu.Unlock()
	e.notifyChange()
	return nil
}
