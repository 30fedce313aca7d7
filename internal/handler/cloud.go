package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/sysu-ecnc-dev/site-dispatch/backend/internal/cloudsync"
)

// GetCloudStatus 返回远端同步的连接状态
func (h *Handler) GetCloudStatus(w http.ResponseWriter, r *http.Request) {
	cfg, found, err := h.repository.LoadRemoteConfig()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	data := map[string]any{
		"status":     h.sync.Status(),
		"configured": found,
	}
	if found {
		// 口令只换取状态，不回传密码
		data["addr"] = cfg.Addr
		data["documentKey"] = cfg.DocumentKey
		data["channel"] = cfg.Channel
	}

	h.successResponse(w, r, "获取同步状态成功", data)
}

// UpdateCloudConfig 保存新的远端同步配置并立即按新配置重连
func (h *Handler) UpdateCloudConfig(w http.ResponseWriter, r *http.Request) {
	var req cloudsync.Config

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if err := h.repository.SaveRemoteConfig(req); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	if err := h.sync.ApplyConfig(ctx, req); err != nil {
		h.errorResponse(w, r, "连接远端失败: "+err.Error())
		return
	}

	h.successResponse(w, r, "同步配置已更新", map[string]any{"status": h.sync.Status()})
}
