package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// GetBoard 返回看板全部数据
func (h *Handler) GetBoard(w http.ResponseWriter, r *http.Request) {
	h.successResponse(w, r, "获取看板数据成功", h.engine.Snapshot())
}

// GetSiteGroups 返回指定现场按乘车分组、组内按角色排序的视图
func (h *Handler) GetSiteGroups(w http.ResponseWriter, r *http.Request) {
	siteID := chi.URLParam(r, "id")

	groups, err := h.engine.SiteGroups(siteID)
	if err != nil {
		h.errorResponse(w, r, err.Error())
		return
	}

	h.successResponse(w, r, "获取分组成功", groups)
}

// SearchPeople 按姓名检索人员
func (h *Handler) SearchPeople(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	h.successResponse(w, r, "检索完成", h.engine.SearchPeople(query))
}

// GetLunchSummary 返回按订购去向统计的便当数量
func (h *Handler) GetLunchSummary(w http.ResponseWriter, r *http.Request) {
	h.successResponse(w, r, "获取便当统计成功", h.engine.LunchSummary())
}
