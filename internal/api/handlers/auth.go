package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/planmoni/planmoni-backend/internal/api/httpx"
	"github.com/planmoni/planmoni-backend/internal/auth"
)

// AuthHandler mints access tokens for local development. Real tokens come
// from the identity provider, so the route is only mounted in dev.
type AuthHandler struct {
	TM  *auth.TokenManager
	Log *zap.Logger
}

func NewAuthHandler(tm *auth.TokenManager, log *zap.Logger) *AuthHandler {
	return &AuthHandler{TM: tm, Log: log}
}

type devTokenReq struct {
	UserID string `json:"user_id" validate:"omitempty,max=128"`
	Email  string `json:"email" validate:"omitempty,email"`
}

type tokenResp struct {
	AccessToken string `json:"access_token"`
	UserID      string `json:"user_id"`
	ExpiresIn   int64  `json:"expires_in"` // seconds
}

func (h *AuthHandler) DevToken(w http.ResponseWriter, r *http.Request) {
	var req devTokenReq
	if r.ContentLength != 0 && !bind(w, r, &req) {
		return
	}
	if req.UserID == "" {
		req.UserID = uuid.NewString()
	}
	tok, exp, err := h.TM.Issue(req.UserID, "authenticated", req.Email)
	if err != nil {
		h.Log.Error("issue dev token", zap.Error(err))
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "token generation failed", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tokenResp{
		AccessToken: tok,
		UserID:      req.UserID,
		ExpiresIn:   int64(time.Until(exp).Truncate(time.Second).Seconds()),
	})
}
