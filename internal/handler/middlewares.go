package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
)

type ResponseWriter struct {
	http.ResponseWriter
	StatusCode int
}

func (rw *ResponseWriter) WriteHeader(statusCode int) {
	rw.StatusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (h *Handler) logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &ResponseWriter{ResponseWriter: w}
		next.ServeHTTP(rw, r)
		duration := time.Since(start)
		slog.Info("已处理请求", "status", rw.StatusCode, "ip", r.RemoteAddr, "method", r.Method, "path", r.URL.Path, "duration", duration)
	})
}

func (h *Handler) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				h.internalServerError(w, r, fmt.Errorf("panic: %v", err))
				stackTrace := string(debug.Stack())
				fmt.Print(stackTrace) // 这里如果用 slog 的话会很乱
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// requireScope 要求请求携带已用对应口令解锁过的令牌
func (h *Handler) requireScope(scope Scope) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 从 cookie 中获取 token
			cookie, err := r.Cookie(tokenCookieName(scope))
			if err != nil {
				switch {
				case errors.Is(err, http.ErrNoCookie):
					h.errorResponse(w, r, "请先输入口令解锁")
				default:
					h.internalServerError(w, r, err)
				}
				return
			}

			// 验证 token
			tokenString := cookie.Value
			claims := &UnlockClaims{}
			_, err = jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
				return []byte(h.config.JWT.Secret), nil
			})
			if err != nil {
				h.errorResponse(w, r, "无效的令牌")
				return
			}
			if claims.Scope != scope {
				h.errorResponse(w, r, "令牌的解锁范围不符")
				return
			}

			ctx := context.WithValue(r.Context(), ScopeCtxKey, claims.Scope)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// person 解析路径中的人员 ID 并确认其存在
func (h *Handler) person(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		personID := chi.URLParam(r, "id")

		found := false
		for _, p := range h.engine.Snapshot().People {
			if p.ID == personID {
				found = true
				break
			}
		}
		if !found {
			h.errorResponse(w, r, "人员不存在")
			return
		}

		ctx := context.WithValue(r.Context(), PersonCtx, personID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
