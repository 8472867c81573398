package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/planmoni/planmoni-backend/internal/api/httpx"
	"github.com/planmoni/planmoni-backend/internal/api/validate"
	"github.com/planmoni/planmoni-backend/internal/middleware"
	"github.com/planmoni/planmoni-backend/internal/services"
)

// bind decodes and validates a request body, writing the 400 itself on failure.
func bind(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := httpx.DecodeJSON(r, v); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", err.Error(), nil)
		return false
	}
	if err := validate.Struct(v); err != nil {
		var errs validate.Errs
		if errors.As(err, &errs) {
			httpx.WriteError(w, http.StatusBadRequest, "validation_error", "validation failed", errs)
			return false
		}
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return false
	}
	return true
}

// caller returns the authenticated user id, writing 401 when there is none.
func caller(w http.ResponseWriter, r *http.Request) (string, bool) {
	uid, ok := middleware.UserID(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
	}
	return uid, ok
}

func page(r *http.Request) (limit, offset int) {
	limit, offset = 50, 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

// serviceError maps service errors to status codes. Unknown errors are
// logged and reported as 500 without detail.
func serviceError(w http.ResponseWriter, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, services.ErrInsufficientFunds):
		httpx.WriteError(w, http.StatusBadRequest, "insufficient_funds", err.Error(), nil)
	case errors.Is(err, services.ErrPlanNotWithdrawable):
		httpx.WriteError(w, http.StatusBadRequest, "withdrawal_disabled", err.Error(), nil)
	case errors.Is(err, services.ErrInvalidPlanState):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_plan_state", err.Error(), nil)
	case errors.Is(err, services.ErrCardDeclined):
		httpx.WriteError(w, http.StatusBadRequest, "card_declined", err.Error(), nil)
	case errors.Is(err, services.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, services.ErrInFlight):
		httpx.WriteError(w, http.StatusConflict, "in_flight", err.Error(), nil)
	case errors.Is(err, services.ErrUpstream):
		log.Warn("upstream error", zap.Error(err))
		httpx.WriteError(w, http.StatusBadGateway, "upstream_error", "payment processor unavailable", nil)
	default:
		log.Error("request failed", zap.Error(err))
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "internal error", nil)
	}
}
