package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/planmoni/planmoni-backend/internal/api/httpx"
	"github.com/planmoni/planmoni-backend/internal/services"
)

type CardHandler struct {
	Svc *services.CardService
	Log *zap.Logger
}

func NewCardHandler(svc *services.CardService, log *zap.Logger) *CardHandler {
	return &CardHandler{Svc: svc, Log: log}
}

type tokenizeReq struct {
	CardNumber  string `json:"card_number" validate:"required,numeric,min=12,max=19"`
	CVV         string `json:"cvv" validate:"required,numeric,min=3,max=4"`
	ExpiryMonth string `json:"expiry_month" validate:"required,numeric,len=2"`
	ExpiryYear  string `json:"expiry_year" validate:"required,numeric,min=2,max=4"`
	Email       string `json:"email" validate:"required,email"`
}

type continueReq struct {
	Reference string `json:"reference" validate:"required"`
	OTP       string `json:"otp,omitempty"`
	Phone     string `json:"phone,omitempty"`
	PIN       string `json:"pin,omitempty"`
}

// Tokenize starts verification of a new card.
func (h *CardHandler) Tokenize(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	var req tokenizeReq
	if !bind(w, r, &req) {
		return
	}
	res, err := h.Svc.Tokenize(r.Context(), uid, services.TokenizeRequest{
		CardNumber:  req.CardNumber,
		CVV:         req.CVV,
		ExpiryMonth: req.ExpiryMonth,
		ExpiryYear:  req.ExpiryYear,
		Email:       req.Email,
	})
	h.respond(w, res, err)
}

// Continue submits the OTP, phone or PIN for a pending verification.
func (h *CardHandler) Continue(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	var req continueReq
	if !bind(w, r, &req) {
		return
	}
	res, err := h.Svc.Continue(r.Context(), uid, services.ContinueRequest{
		Reference: req.Reference,
		OTP:       req.OTP,
		Phone:     req.Phone,
		PIN:       req.PIN,
	})
	h.respond(w, res, err)
}

func (h *CardHandler) respond(w http.ResponseWriter, res services.TokenizeResult, err error) {
	if err != nil {
		serviceError(w, h.Log, err)
		return
	}
	status := http.StatusOK
	if res.Card != nil {
		status = http.StatusCreated
	}
	httpx.WriteJSON(w, status, res)
}

func (h *CardHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	cards, err := h.Svc.List(r.Context(), uid)
	if err != nil {
		serviceError(w, h.Log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, cards)
}

func (h *CardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	if err := h.Svc.Delete(r.Context(), uid, chi.URLParam(r, "id")); err != nil {
		serviceError(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
