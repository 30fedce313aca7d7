package allocation

import (
	"github.com/sysu-ecnc-dev/site-dispatch/backend/internal/domain"
)

type MovePhase string

const (
	MoveIdle      MovePhase = "IDLE"
	MovePickSite  MovePhase = "PICK_SITE"
	MovePickGroup MovePhase = "PICK_GROUP"
)

type moveState struct {
	phase        MovePhase
	personID     string
	targetSiteID string
}

type MoveStatus struct {
	Phase        MovePhase `json:"phase"`
	PersonID     string    `json:"personId,omitempty"`
	TargetSiteID string    `json:"targetSiteId,omitempty"`
}

// MoveStatus 返回移动流程的当前状态
func (e *Engine) MoveStatus() MoveStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return MoveStatus{
		Phase:        e.move.phase,
		PersonID:     e.move.personID,
		TargetSiteID: e.move.targetSiteID,
	}
}

// StartMove 选中一名人员进入移动流程。
// 同一时刻只允许一个移动流程存在
func (e *Engine) StartMove(personID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.move.phase != MoveIdle {
		return ErrMoveInProgress
	}
	if e.findPerson(personID) == nil {
		return ErrPersonNotFound
	}

	e.move = moveState{phase: MovePickSite, personID: personID}
	return nil
}

// PickMoveSite 为移动中的人员选择目标现场。
// 选择休息时直接落点，不需要再选分组
func (e *Engine) PickMoveSite(siteID string) error {
	e.mu.Lock()

	if e.move.phase != MovePickSite {
		e.mu.Unlock()
		return ErrWrongMovePhase
	}

	if siteID == domain.OffDutySiteID {
		e.executeMove(e.move.personID, domain.OffDutySiteID, "")
		e.move = moveState{phase: MoveIdle}
		e.mu.Unlock()
		e.notifyChange()
		return nil
	}

	if e.findSite(siteID) == nil {
		e.mu.Unlock()
		return ErrSiteNotFound
	}

	e.move.phase = MovePickGroup
	e.move.targetSiteID = siteID
	e.mu.Unlock()
	return nil
}

// PickMoveGroup 为移动中的人员选择乘车分组并落点。
// vehicleID 为空表示不乘车；newGroup 为真时忽略 vehicleID，
// 新建一个待定车辆的占位分组
func (e *Engine) PickMoveGroup(vehicleID string, newGroup bool) error {
	e.mu.Lock()

	if e.move.phase != MovePickGroup {
		e.mu.Unlock()
		return ErrWrongMovePhase
	}

	if newGroup {
		vehicleID = string(domain.NewPlaceholderKey())
	}

	e.executeMove(e.move.personID, e.move.targetSiteID, vehicleID)
	e.move = moveState{phase: MoveIdle}
	e.mu.Unlock()
	e.notifyChange()
	return nil
}

// CancelMove 放弃移动流程，数据不发生任何变化
func (e *Engine) CancelMove() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.move = moveState{phase: MoveIdle}
}

// executeMove 落点：换现场换车辆，运转手身份一律重置。
// 调用方必须持有锁
func (e *Engine) executeMove(personID, siteID, vehicleID string) {
	next := make([]domain.Person, len(e.data.People))
	for i, p := range e.data.People {
		if p.ID == personID {
			p.SiteID = siteID
			p.VehicleID = vehicleID
			p.IsDriver = false
		}
		next[i] = p
	}
	e.data.People = next
}
