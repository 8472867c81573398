package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/planmoni/planmoni-backend/internal/api/httpx"
	"github.com/planmoni/planmoni-backend/internal/services"
)

type WithdrawalHandler struct {
	Svc *services.WithdrawalService
	Log *zap.Logger
}

func NewWithdrawalHandler(svc *services.WithdrawalService, log *zap.Logger) *WithdrawalHandler {
	return &WithdrawalHandler{Svc: svc, Log: log}
}

type emergencyWithdrawalReq struct {
	PlanID    string          `json:"planId" validate:"required,uuid"`
	Option    string          `json:"option" validate:"required,oneof=instant 24hours 72hours"`
	Amount    decimal.Decimal `json:"amount" validate:"gt=0"`
	FeeAmount decimal.Decimal `json:"feeAmount" validate:"gte=0"`
	NetAmount decimal.Decimal `json:"netAmount" validate:"gte=0"`
}

type emergencyWithdrawalResp struct {
	Success bool `json:"success"`
	services.EmergencyWithdrawalResult
}

func (h *WithdrawalHandler) Emergency(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	var req emergencyWithdrawalReq
	if !bind(w, r, &req) {
		return
	}
	res, err := h.Svc.EmergencyWithdraw(r.Context(), uid, services.EmergencyWithdrawalRequest{
		PlanID:    req.PlanID,
		Option:    req.Option,
		Amount:    req.Amount,
		FeeAmount: req.FeeAmount,
		NetAmount: req.NetAmount,
	})
	if err != nil {
		serviceError(w, h.Log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, emergencyWithdrawalResp{Success: true, EmergencyWithdrawalResult: res})
}
