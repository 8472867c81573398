package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/planmoni/planmoni-backend/internal/api/httpx"
	"github.com/planmoni/planmoni-backend/internal/services"
)

type DepositHandler struct {
	Deposits *services.DepositService
	Accounts *services.AccountService
	Log      *zap.Logger
}

func NewDepositHandler(deposits *services.DepositService, accounts *services.AccountService, log *zap.Logger) *DepositHandler {
	return &DepositHandler{Deposits: deposits, Accounts: accounts, Log: log}
}

type ussdReq struct {
	Amount   decimal.Decimal `json:"amount" validate:"gt=0"`
	BankCode string          `json:"bank_code" validate:"required,numeric"`
	Email    string          `json:"email" validate:"required,email"`
}

func (h *DepositHandler) USSD(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	var req ussdReq
	if !bind(w, r, &req) {
		return
	}
	res, err := h.Deposits.InitiateUSSD(r.Context(), uid, services.USSDDepositRequest{
		Amount:   req.Amount,
		BankCode: req.BankCode,
		Email:    req.Email,
	})
	if err != nil {
		serviceError(w, h.Log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusAccepted, res)
}

type virtualAccountReq struct {
	Email         string `json:"email" validate:"required,email"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Phone         string `json:"phone"`
	PreferredBank string `json:"preferred_bank"`
}

func (h *DepositHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	acct, err := h.Accounts.Get(r.Context(), uid)
	if err != nil {
		serviceError(w, h.Log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, acct)
}

func (h *DepositHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	var req virtualAccountReq
	if !bind(w, r, &req) {
		return
	}
	acct, err := h.Accounts.Create(r.Context(), uid, services.VirtualAccountRequest{
		Email:         req.Email,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Phone:         req.Phone,
		PreferredBank: req.PreferredBank,
	})
	if err != nil {
		serviceError(w, h.Log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, acct)
}
