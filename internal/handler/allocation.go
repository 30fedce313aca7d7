package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/sysu-ecnc-dev/site-dispatch/backend/internal/allocation"
	"github.com/sysu-ecnc-dev/site-dispatch/backend/internal/domain"
)

// persistBoard 把当前数据整体写入本地库。
// 配置会话进行中不落盘，等提交或回滚后再写
func (h *Handler) persistBoard(w http.ResponseWriter, r *http.Request) bool {
	if h.engine.SessionActive() {
		return true
	}
	if err := h.repository.SaveAll(h.engine.Snapshot()); err != nil {
		h.internalServerError(w, r, err)
		return false
	}
	return true
}

func (h *Handler) GetSessionStatus(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{"active": h.engine.SessionActive()}
	if h.engine.SessionActive() {
		changed, err := h.engine.HasChanges()
		if err != nil {
			h.internalServerError(w, r, err)
			return
		}
		data["hasChanges"] = changed
	}
	h.successResponse(w, r, "获取会话状态成功", data)
}

func (h *Handler) BeginSession(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.BeginSession(); err != nil {
		if errors.Is(err, allocation.ErrSessionActive) {
			h.errorResponse(w, r, err.Error())
			return
		}
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "配置开始", nil)
}

func (h *Handler) CompleteSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	changed, err := h.engine.HasChanges()
	if err != nil {
		if errors.Is(err, allocation.ErrNoSession) {
			h.errorResponse(w, r, err.Error())
			return
		}
		h.internalServerError(w, r, err)
		return
	}

	// 没有实际变更时不盖完成时刻，直接释放会话
	if !changed {
		if err := h.engine.RollbackSession(); err != nil {
			h.internalServerError(w, r, err)
			return
		}
		h.successResponse(w, r, "本次配置没有任何变更", nil)
		return
	}

	info, err := h.engine.CompleteSession(req.Name)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	snapshot := h.engine.Snapshot()
	if err := h.repository.SaveAll(snapshot); err != nil {
		h.internalServerError(w, r, err)
		return
	}
	// 备份槽滚动保存最近一次完成的配置，失败只记日志
	if err := h.repository.SaveBackup(snapshot); err != nil {
		h.logInternalServerError(r, err)
	}

	h.publishCompletionMail(r, info)

	h.successResponse(w, r, "配置完成", info)
}

// publishCompletionMail 把配置完成通知投到邮件队列。
// 投递失败只记日志，不影响配置本身
func (h *Handler) publishCompletionMail(r *http.Request, info *domain.UpdateInfo) {
	if h.mailChannel == nil {
		return
	}

	snapshot := h.engine.Snapshot()
	summary := h.engine.LunchSummary()
	assigned, offDuty := 0, 0
	for _, p := range snapshot.People {
		if p.IsOffDuty() {
			offDuty++
		} else {
			assigned++
		}
	}

	mailMessage := domain.MailMessage{
		Type: "allocation_completed",
		To:   h.config.Email.NotifyTo,
		Data: domain.AllocationCompletedMailData{
			Name:        info.Name,
			Time:        info.Time.Format("2006-01-02 15:04"),
			Assigned:    assigned,
			OffDuty:     offDuty,
			LunchOffice: summary.Office,
			LunchSite:   summary.Site,
		},
	}

	mailData, err := json.Marshal(mailMessage)
	if err != nil {
		h.logInternalServerError(r, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(h.config.RabbitMQ.PublishTimeout)*time.Second)
	defer cancel()

	if err := h.mailChannel.PublishWithContext(
		ctx,
		"",
		"board_mail_queue",
		true,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        mailData,
		},
	); err != nil {
		h.logInternalServerError(r, err)
	}
}

func (h *Handler) RollbackSession(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.RollbackSession(); err != nil {
		if errors.Is(err, allocation.ErrNoSession) {
			h.errorResponse(w, r, err.Error())
			return
		}
		h.internalServerError(w, r, err)
		return
	}

	if err := h.repository.SaveAll(h.engine.Snapshot()); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "已放弃本次配置", nil)
}

func (h *Handler) GetMoveStatus(w http.ResponseWriter, r *http.Request) {
	h.successResponse(w, r, "获取移动状态成功", h.engine.MoveStatus())
}

func (h *Handler) StartMove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PersonID string `json:"personId" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if err := h.engine.StartMove(req.PersonID); err != nil {
		h.errorResponse(w, r, err.Error())
		return
	}

	h.successResponse(w, r, "请选择目标现场", h.engine.MoveStatus())
}

func (h *Handler) PickMoveSite(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SiteID string `json:"siteId" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if err := h.engine.PickMoveSite(req.SiteID); err != nil {
		h.errorResponse(w, r, err.Error())
		return
	}
	if !h.persistBoard(w, r) {
		return
	}

	h.successResponse(w, r, "已选择现场", h.engine.MoveStatus())
}

func (h *Handler) PickMoveGroup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		VehicleID string `json:"vehicleId"`
		NewGroup  bool   `json:"newGroup"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if err := h.engine.PickMoveGroup(req.VehicleID, req.NewGroup); err != nil {
		h.errorResponse(w, r, err.Error())
		return
	}
	if !h.persistBoard(w, r) {
		return
	}

	h.successResponse(w, r, "移动完成", nil)
}

func (h *Handler) CancelMove(w http.ResponseWriter, r *http.Request) {
	h.engine.CancelMove()
	h.successResponse(w, r, "已取消移动", nil)
}

func (h *Handler) ChangeGroupVehicle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SiteID       string `json:"siteId" validate:"required"`
		OldVehicleID string `json:"oldVehicleId"`
		NewVehicleID string `json:"newVehicleId"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	h.engine.ChangeGroupVehicle(req.SiteID, req.OldVehicleID, req.NewVehicleID)
	if !h.persistBoard(w, r) {
		return
	}

	h.successResponse(w, r, "分组车辆已更换", nil)
}

func (h *Handler) ReorderGroup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SiteID    string `json:"siteId" validate:"required"`
		GroupKey  string `json:"groupKey" validate:"required"`
		Direction string `json:"direction" validate:"required,oneof=left right"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	h.engine.ReorderGroup(req.SiteID, domain.GroupKey(req.GroupKey), allocation.Direction(req.Direction))
	if !h.persistBoard(w, r) {
		return
	}

	h.successResponse(w, r, "分组顺序已调整", nil)
}

func (h *Handler) ToggleDriver(w http.ResponseWriter, r *http.Request) {
	personID := r.Context().Value(PersonCtx).(string)

	h.engine.ToggleDriver(personID)
	if !h.persistBoard(w, r) {
		return
	}

	h.successResponse(w, r, "运转手已更新", nil)
}

func (h *Handler) ToggleLunch(w http.ResponseWriter, r *http.Request) {
	personID := r.Context().Value(PersonCtx).(string)

	h.engine.ToggleLunch(personID)
	if !h.persistBoard(w, r) {
		return
	}

	h.successResponse(w, r, "便当已更新", nil)
}

func (h *Handler) SetLunchOrder(w http.ResponseWriter, r *http.Request) {
	personID := r.Context().Value(PersonCtx).(string)

	var req struct {
		Order string `json:"order" validate:"required,oneof=OFFICE SITE"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	h.engine.SetLunchOrder(personID, domain.LunchOrder(req.Order))
	if !h.persistBoard(w, r) {
		return
	}

	h.successResponse(w, r, "便当订购去向已更新", nil)
}

func (h *Handler) MoveToOffDuty(w http.ResponseWriter, r *http.Request) {
	personID := r.Context().Value(PersonCtx).(string)

	h.engine.MoveToOffDuty(personID)
	if !h.persistBoard(w, r) {
		return
	}

	h.successResponse(w, r, "已移到休息", nil)
}
