package allocation

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/sysu-ecnc-dev/site-dispatch/backend/internal/domain"
)

func TestMoveWorkflow(t *testing.T) {
	t.Run("选现场选分组后落点", func(t *testing.T) {
		e := NewEngine(testBoard())

		if err := e.StartMove("p4"); err != nil {
			t.Fatalf("StartMove: %v", err)
		}
		if got := e.MoveStatus(); got.Phase != MovePickSite || got.PersonID != "p4" {
			t.Fatalf("MoveStatus = %+v", got)
		}
		if err := e.PickMoveSite("s2"); err != nil {
			t.Fatalf("PickMoveSite: %v", err)
		}
		if got := e.MoveStatus(); got.Phase != MovePickGroup || got.TargetSiteID != "s2" {
			t.Fatalf("MoveStatus = %+v", got)
		}
		if err := e.PickMoveGroup("v2", false); err != nil {
			t.Fatalf("PickMoveGroup: %v", err)
		}

		p := personByID(t, e, "p4")
		if p.SiteID != "s2" || p.VehicleID != "v2" || p.IsDriver {
			t.Errorf("落点后 = %+v", p)
		}
		if e.MoveStatus().Phase != MoveIdle {
			t.Error("落点后移动流程应复位")
		}
	})

	t.Run("选择休息直接落点", func(t *testing.T) {
		e := NewEngine(testBoard())

		if err := e.StartMove("p1"); err != nil {
			t.Fatalf("StartMove: %v", err)
		}
		if err := e.PickMoveSite(domain.OffDutySiteID); err != nil {
			t.Fatalf("PickMoveSite: %v", err)
		}

		p := personByID(t, e, "p1")
		if !p.IsOffDuty() || p.VehicleID != "" || p.IsDriver {
			t.Errorf("移到休息后 = %+v", p)
		}
		if e.MoveStatus().Phase != MoveIdle {
			t.Error("选择休息后不应进入选分组阶段")
		}
	})

	t.Run("新建分组生成唯一占位键", func(t *testing.T) {
		e := NewEngine(testBoard())

		if err := e.StartMove("p3"); err != nil {
			t.Fatalf("StartMove: %v", err)
		}
		if err := e.PickMoveSite("s1"); err != nil {
			t.Fatalf("PickMoveSite: %v", err)
		}
		if err := e.PickMoveGroup("v1", true); err != nil {
			t.Fatalf("PickMoveGroup: %v", err)
		}

		first := personByID(t, e, "p3").VehicleID
		if !strings.HasPrefix(first, "temp_") {
			t.Fatalf("新建分组应生成占位键, got %q", first)
		}

		if err := e.StartMove("p4"); err != nil {
			t.Fatalf("StartMove: %v", err)
		}
		if err := e.PickMoveSite("s1"); err != nil {
			t.Fatalf("PickMoveSite: %v", err)
		}
		if err := e.PickMoveGroup("", true); err != nil {
			t.Fatalf("PickMoveGroup: %v", err)
		}

		second := personByID(t, e, "p4").VehicleID
		if first == second {
			t.Error("两次新建的占位键不应相同")
		}
	})

	t.Run("取消后数据不变", func(t *testing.T) {
		e := NewEngine(testBoard())
		before := e.Snapshot()

		if err := e.StartMove("p2"); err != nil {
			t.Fatalf("StartMove: %v", err)
		}
		if err := e.PickMoveSite("s2"); err != nil {
			t.Fatalf("PickMoveSite: %v", err)
		}
		e.CancelMove()

		if !reflect.DeepEqual(before, e.Snapshot()) {
			t.Error("取消移动后数据应与开始前完全一致")
		}
		if e.MoveStatus().Phase != MoveIdle {
			t.Error("取消后移动流程应复位")
		}
	})
}

func TestMoveErrors(t *testing.T) {
	e := NewEngine(testBoard())

	if err := e.StartMove("nobody"); !errors.Is(err, ErrPersonNotFound) {
		t.Errorf("未知人员 = %v, want ErrPersonNotFound", err)
	}
	if err := e.PickMoveSite("s1"); !errors.Is(err, ErrWrongMovePhase) {
		t.Errorf("未开始就选现场 = %v, want ErrWrongMovePhase", err)
	}

	if err := e.StartMove("p1"); err != nil {
		t.Fatalf("StartMove: %v", err)
	}
	if err := e.StartMove("p2"); !errors.Is(err, ErrMoveInProgress) {
		t.Errorf("重复开始 = %v, want ErrMoveInProgress", err)
	}
	if err := e.PickMoveGroup("v1", false); !errors.Is(err, ErrWrongMovePhase) {
		t.Errorf("选现场前就选分组 = %v, want ErrWrongMovePhase", err)
	}
	if err := e.PickMoveSite("missing"); !errors.Is(err, ErrSiteNotFound) {
		t.Errorf("未知现场 = %v, want ErrSiteNotFound", err)
	}
	// 选错现场不应破坏流程，换一个现场仍可继续
	if err := e.PickMoveSite("s2"); err != nil {
		t.Errorf("换选存在的现场应成功, got %v", err)
	}
}

func TestReorderGroup(t *testing.T) {
	// s1 上三个分组：v1、不乘车、v2
	board := testBoard()
	board.People = append(board.People, domain.Person{
		ID: "p5", Name: "中村", Role: domain.RoleWorker, SiteID: "s1", VehicleID: "v2",
	})
	groupOrder := func(e *Engine) []domain.GroupKey {
		views, err := e.SiteGroups("s1")
		if err != nil {
			t.Fatalf("SiteGroups: %v", err)
		}
		keys := make([]domain.GroupKey, len(views))
		for i, v := range views {
			keys[i] = v.Key
		}
		return keys
	}

	e := NewEngine(board)
	if got := groupOrder(e); !reflect.DeepEqual(got, []domain.GroupKey{"v1", "null", "v2"}) {
		t.Fatalf("初始顺序 = %v", got)
	}

	e.ReorderGroup("s1", "null", DirectionRight)
	if got := groupOrder(e); !reflect.DeepEqual(got, []domain.GroupKey{"v1", "v2", "null"}) {
		t.Errorf("右移后 = %v, want [v1 v2 null]", got)
	}

	// 边界：最右组继续右移是空操作
	before := e.Snapshot()
	e.ReorderGroup("s1", "null", DirectionRight)
	if !reflect.DeepEqual(before, e.Snapshot()) {
		t.Error("最右组右移应无任何变化")
	}

	e.ReorderGroup("s1", "v1", DirectionLeft)
	if !reflect.DeepEqual(before, e.Snapshot()) {
		t.Error("最左组左移应无任何变化")
	}

	e.ReorderGroup("s1", "v2", DirectionLeft)
	if got := groupOrder(e); !reflect.DeepEqual(got, []domain.GroupKey{"v2", "v1", "null"}) {
		t.Errorf("左移后 = %v, want [v2 v1 null]", got)
	}
}

func TestSiteGroupsMemberOrder(t *testing.T) {
	e := NewEngine(testBoard())

	views, err := e.SiteGroups("s1")
	if err != nil {
		t.Fatalf("SiteGroups: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("分组数 = %d, want 2", len(views))
	}

	// v1 组内：管理职 p1 在前，作业员 p2 在后
	if views[0].Key != domain.GroupKey("v1") || views[0].VehicleID != "v1" {
		t.Errorf("首个分组 = %+v", views[0])
	}
	if views[0].Members[0].ID != "p1" || views[0].Members[1].ID != "p2" {
		t.Errorf("组内成员顺序 = %+v", views[0].Members)
	}
}
