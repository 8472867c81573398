package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/planmoni/planmoni-backend/internal/api/httpx"
	"github.com/planmoni/planmoni-backend/internal/models"
	"github.com/planmoni/planmoni-backend/internal/services"
)

type PlanHandler struct {
	Svc *services.PlanService
	Log *zap.Logger
}

func NewPlanHandler(svc *services.PlanService, log *zap.Logger) *PlanHandler {
	return &PlanHandler{Svc: svc, Log: log}
}

type createPlanReq struct {
	Name                       string          `json:"name" validate:"max=120"`
	TotalAmount                decimal.Decimal `json:"total_amount" validate:"gt=0"`
	PayoutAmount               decimal.Decimal `json:"payout_amount" validate:"gt=0"`
	Frequency                  string          `json:"frequency" validate:"required"`
	EmergencyWithdrawalEnabled bool            `json:"emergency_withdrawal_enabled"`
}

func (h *PlanHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	var req createPlanReq
	if !bind(w, r, &req) {
		return
	}
	p, err := h.Svc.Create(r.Context(), uid, services.CreatePlanRequest{
		Name:                       req.Name,
		TotalAmount:                req.TotalAmount,
		PayoutAmount:               req.PayoutAmount,
		Frequency:                  req.Frequency,
		EmergencyWithdrawalEnabled: req.EmergencyWithdrawalEnabled,
	})
	if err != nil {
		serviceError(w, h.Log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, p)
}

func (h *PlanHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	plans, err := h.Svc.List(r.Context(), uid)
	if err != nil {
		serviceError(w, h.Log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, plans)
}

func (h *PlanHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.one(w, r, h.Svc.Get)
}

func (h *PlanHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.one(w, r, h.Svc.Pause)
}

func (h *PlanHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.one(w, r, h.Svc.Resume)
}

type planOp func(ctx context.Context, userID, id string) (models.PayoutPlan, error)

func (h *PlanHandler) one(w http.ResponseWriter, r *http.Request, op planOp) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	p, err := op(r.Context(), uid, chi.URLParam(r, "id"))
	if err != nil {
		serviceError(w, h.Log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}
