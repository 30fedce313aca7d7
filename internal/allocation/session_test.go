package allocation

import (
	"errors"
	"reflect"
	"testing"

	"github.com/sysu-ecnc-dev/site-dispatch/backend/internal/domain"
)

func TestSessionHasChanges(t *testing.T) {
	t.Run("无修改时判定为无变更", func(t *testing.T) {
		e := NewEngine(testBoard())
		if err := e.BeginSession(); err != nil {
			t.Fatalf("BeginSession: %v", err)
		}

		changed, err := e.HasChanges()
		if err != nil {
			t.Fatalf("HasChanges: %v", err)
		}
		if changed {
			t.Error("未做任何修改不应判定为有变更")
		}
	})

	t.Run("移动后再移回原位判定为无变更", func(t *testing.T) {
		e := NewEngine(testBoard())
		if err := e.BeginSession(); err != nil {
			t.Fatalf("BeginSession: %v", err)
		}

		e.MoveToOffDuty("p4") // p4 本就在休息，字段逐一相同

		changed, err := e.HasChanges()
		if err != nil {
			t.Fatalf("HasChanges: %v", err)
		}
		if changed {
			t.Error("字段逐一相同的状态不应判定为有变更")
		}
	})

	t.Run("便当翻转判定为有变更", func(t *testing.T) {
		e := NewEngine(testBoard())
		if err := e.BeginSession(); err != nil {
			t.Fatalf("BeginSession: %v", err)
		}

		e.ToggleLunch("p1")

		changed, err := e.HasChanges()
		if err != nil {
			t.Fatalf("HasChanges: %v", err)
		}
		if !changed {
			t.Error("便当翻转应判定为有变更")
		}
	})
}

func TestSessionLifecycle(t *testing.T) {
	e := NewEngine(testBoard())

	if e.SessionActive() {
		t.Error("初始不应有进行中的会话")
	}
	if _, err := e.HasChanges(); !errors.Is(err, ErrNoSession) {
		t.Errorf("无会话时 HasChanges = %v, want ErrNoSession", err)
	}
	if err := e.RollbackSession(); !errors.Is(err, ErrNoSession) {
		t.Errorf("无会话时 RollbackSession = %v, want ErrNoSession", err)
	}

	if err := e.BeginSession(); err != nil {
		t.Fatalf("BeginSession: %v", err)
	}
	if err := e.BeginSession(); !errors.Is(err, ErrSessionActive) {
		t.Errorf("重复开始 = %v, want ErrSessionActive", err)
	}
	if !e.SessionActive() {
		t.Error("会话应处于进行中")
	}

	info, err := e.CompleteSession("山田")
	if err != nil {
		t.Fatalf("CompleteSession: %v", err)
	}
	if info.Name != "山田" || info.Time.IsZero() {
		t.Errorf("完成信息 = %+v", info)
	}
	if e.SessionActive() {
		t.Error("提交后会话应结束")
	}
	if got := e.LastUpdateTime(); !got.Equal(info.Time) {
		t.Errorf("LastUpdateTime = %v, want %v", got, info.Time)
	}
}

func TestSessionRollback(t *testing.T) {
	e := NewEngine(testBoard())
	before := e.Snapshot()

	if err := e.BeginSession(); err != nil {
		t.Fatalf("BeginSession: %v", err)
	}

	e.ToggleDriver("p2")
	e.MoveToOffDuty("p3")
	e.ReorderGroup("s1", "null", DirectionLeft)
	if err := e.StartMove("p1"); err != nil {
		t.Fatalf("StartMove: %v", err)
	}

	if err := e.RollbackSession(); err != nil {
		t.Fatalf("RollbackSession: %v", err)
	}

	after := e.Snapshot()
	if !reflect.DeepEqual(before.People, after.People) {
		t.Errorf("回滚后人员应恢复原状\nbefore: %+v\nafter:  %+v", before.People, after.People)
	}
	if !reflect.DeepEqual(before.Sites, after.Sites) {
		t.Errorf("回滚后现场应恢复原状\nbefore: %+v\nafter:  %+v", before.Sites, after.Sites)
	}
	if e.SessionActive() {
		t.Error("回滚后会话应结束")
	}
	if e.MoveStatus().Phase != MoveIdle {
		t.Error("回滚后移动流程应复位")
	}
}

func TestCompleteResetsMove(t *testing.T) {
	e := NewEngine(testBoard())
	if err := e.BeginSession(); err != nil {
		t.Fatalf("BeginSession: %v", err)
	}
	if err := e.StartMove("p1"); err != nil {
		t.Fatalf("StartMove: %v", err)
	}

	if _, err := e.CompleteSession("铃木"); err != nil {
		t.Fatalf("CompleteSession: %v", err)
	}
	if e.MoveStatus().Phase != MoveIdle {
		t.Error("提交后进行中的移动流程应复位")
	}
}

func TestOnChangeNotification(t *testing.T) {
	e := NewEngine(testBoard())
	var fired int
	e.SetOnChange(func() { fired++ })

	e.ToggleLunch("p1")
	if fired != 1 {
		t.Fatalf("变更后回调次数 = %d, want 1", fired)
	}

	e.CancelMove() // 不改数据，不应触发
	if fired != 1 {
		t.Errorf("取消移动不应触发回调, fired = %d", fired)
	}

	e.ReplaceAll(domain.BoardData{})
	if fired != 2 {
		t.Errorf("整体替换应触发回调, fired = %d", fired)
	}
}
