package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sysu-ecnc-dev/site-dispatch/backend/internal/allocation"
	"github.com/sysu-ecnc-dev/site-dispatch/backend/internal/domain"
	"github.com/sysu-ecnc-dev/site-dispatch/backend/internal/repository"
)

func (h *Handler) CreateSite(w http.ResponseWriter, r *http.Request) {
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

	site := h.engine.AddSite(req.Name)
	if !h.persistBoard(w, r) {
		return
	}

	h.successResponse(w, r, "现场已创建", site)
}

func (h *Handler) DeleteSite(w http.ResponseWriter, r *http.Request) {
	h.engine.DeleteSite(chi.URLParam(r, "id"))
	if !h.persistBoard(w, r) {
		return
	}

	h.successResponse(w, r, "现场已删除", nil)
}

func (h *Handler) CreateVehicle(w http.ResponseWriter, r *http.Request) {
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

	vehicle := h.engine.AddVehicle(req.Name)
	if !h.persistBoard(w, r) {
		return
	}

	h.successResponse(w, r, "车辆已创建", vehicle)
}

func (h *Handler) DeleteVehicle(w http.ResponseWriter, r *http.Request) {
	h.engine.DeleteVehicle(chi.URLParam(r, "id"))
	if !h.persistBoard(w, r) {
		return
	}

	h.successResponse(w, r, "车辆已删除", nil)
}

func (h *Handler) CreatePerson(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name" validate:"required"`
		Role     string `json:"role" validate:"required,oneof=MANAGER STAFF OPERATOR WORKER"`
		HasLunch bool   `json:"hasLunch"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	person := h.engine.AddPerson(req.Name, domain.Role(req.Role), req.HasLunch)
	if !h.persistBoard(w, r) {
		return
	}

	h.successResponse(w, r, "人员已创建", person)
}

func (h *Handler) DeletePerson(w http.ResponseWriter, r *http.Request) {
	h.engine.DeletePerson(chi.URLParam(r, "id"))
	if !h.persistBoard(w, r) {
		return
	}

	h.successResponse(w, r, "人员已删除", nil)
}

// ExportData 导出全部数据，供下载备份
func (h *Handler) ExportData(w http.ResponseWriter, r *http.Request) {
	h.successResponse(w, r, "导出成功", h.engine.Export())
}

// ImportData 从导出文件整体恢复数据。
// 导入前先把当前数据另存为本地备份，误导入时可恢复
func (h *Handler) ImportData(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	if err := h.repository.SaveBackup(h.engine.Snapshot()); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	if err := h.engine.Import(raw); err != nil {
		if errors.Is(err, allocation.ErrInvalidImport) {
			h.errorResponse(w, r, err.Error())
			return
		}
		h.internalServerError(w, r, err)
		return
	}
	if !h.persistBoard(w, r) {
		return
	}

	h.successResponse(w, r, "导入成功", nil)
}

// RestoreBackup 恢复最近一次导入前自动保存的本地备份
func (h *Handler) RestoreBackup(w http.ResponseWriter, r *http.Request) {
	data, err := h.repository.LoadBackup()
	if err != nil {
		if errors.Is(err, repository.ErrNoBackup) {
			h.errorResponse(w, r, err.Error())
			return
		}
		h.internalServerError(w, r, err)
		return
	}

	h.engine.ReplaceAll(data)
	if !h.persistBoard(w, r) {
		return
	}

	h.successResponse(w, r, "备份已恢复", nil)
}
