package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/planmoni/planmoni-backend/internal/api/httpx"
	"github.com/planmoni/planmoni-backend/internal/services"
)

type WalletHandler struct {
	Svc *services.WalletService
	Log *zap.Logger
}

func NewWalletHandler(svc *services.WalletService, log *zap.Logger) *WalletHandler {
	return &WalletHandler{Svc: svc, Log: log}
}

func (h *WalletHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	wl, err := h.Svc.Wallet(r.Context(), uid)
	if err != nil {
		serviceError(w, h.Log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, wl.View())
}

func (h *WalletHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	limit, offset := page(r)
	txns, err := h.Svc.Transactions(r.Context(), uid, limit, offset)
	if err != nil {
		serviceError(w, h.Log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, txns)
}

func (h *WalletHandler) Events(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	limit, offset := page(r)
	evs, err := h.Svc.Events(r.Context(), uid, limit, offset)
	if err != nil {
		serviceError(w, h.Log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, evs)
}

func (h *WalletHandler) MarkEventRead(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	if err := h.Svc.MarkEventRead(r.Context(), uid, chi.URLParam(r, "id")); err != nil {
		serviceError(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
