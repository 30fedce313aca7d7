package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type Scope string

const (
	ScopeData  Scope = "data"
	ScopeCloud Scope = "cloud"
)

type UnlockClaims struct {
	Scope Scope `json:"scope"`
	jwt.RegisteredClaims
}

func tokenCookieName(scope Scope) string {
	return "__site_dispatch_" + string(scope) + "_token"
}

// Unlock 校验口令并下发对应范围的令牌
func (h *Handler) Unlock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Passcode string `json:"passcode" validate:"required"`
		Scope    Scope  `json:"scope" validate:"required,oneof=data cloud"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	hash := h.dataPassHash
	if req.Scope == ScopeCloud {
		hash = h.cloudPassHash
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(req.Passcode)); err != nil {
		switch {
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			h.errorResponse(w, r, "口令错误")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	// 生成 JWT
	expiration := time.Now().Add(time.Duration(h.config.JWT.Expiration) * time.Second)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, UnlockClaims{
		Scope: req.Scope,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiration),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	})
	ss, err := token.SignedString([]byte(h.config.JWT.Secret))
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	// 通过 http-only 的 cookie 返回给客户端
	cookie := &http.Cookie{
		Name:     tokenCookieName(req.Scope),
		Value:    ss,
		Expires:  expiration,
		Path:     "/",
		HttpOnly: true,
		Secure:   false,
	}

	if h.config.Environment == "production" {
		cookie.Secure = true
		cookie.SameSite = http.SameSiteStrictMode
	}

	http.SetCookie(w, cookie)

	h.successResponse(w, r, "解锁成功", map[string]any{"scope": req.Scope})
}

// Lock 收回全部范围的令牌
func (h *Handler) Lock(w http.ResponseWriter, r *http.Request) {
	for _, scope := range []Scope{ScopeData, ScopeCloud} {
		http.SetCookie(w, &http.Cookie{
			Name:    tokenCookieName(scope),
			Value:   "",
			Expires: time.Now().Add(-time.Hour),
			Path:    "/",
		})
	}

	h.successResponse(w, r, "已重新锁定", nil)
}
