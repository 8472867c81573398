package services

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/planmoni/planmoni-backend/internal/models"
	"github.com/planmoni/planmoni-backend/internal/paystack"
	repo "github.com/planmoni/planmoni-backend/internal/repository"
)

type USSDDepositRequest struct {
	Amount   decimal.Decimal
	BankCode string
	Email    string
}

type USSDDepositResult struct {
	Reference   string          `json:"reference"`
	Status      string          `json:"status"`
	Amount      decimal.Decimal `json:"amount"`
	USSDCode    string          `json:"ussd_code,omitempty"`
	DisplayText string          `json:"display_text,omitempty"`
}

// DepositService starts deposits that complete later through the webhook.
type DepositService struct {
	store     repo.Store
	processor Processor
	log       *zap.Logger
}

func NewDepositService(store repo.Store, processor Processor, log *zap.Logger) *DepositService {
	return &DepositService{store: store, processor: processor, log: log}
}

// InitiateUSSD records a pending deposit and asks the processor for a USSD
// code. The charge.success webhook later completes the pending record.
func (s *DepositService) InitiateUSSD(ctx context.Context, userID string, req USSDDepositRequest) (USSDDepositResult, error) {
	kobo := paystack.NairaToKobo(req.Amount)
	switch {
	case kobo <= 0:
		return USSDDepositResult{}, invalid("amount must be greater than zero")
	case !wholeKobo(req.Amount):
		return USSDDepositResult{}, invalid("amount must have at most 2 decimal places")
	case req.BankCode == "":
		return USSDDepositResult{}, invalid("bank_code is required")
	case req.Email == "":
		return USSDDepositResult{}, invalid("email is required")
	}
	amount := paystack.KoboToNaira(kobo)
	reference := newReference(refDeposit)

	_, _, err := s.store.Repos().Transactions.Insert(ctx, models.Transaction{
		UserID:      userID,
		Type:        models.TxnDeposit,
		Amount:      amount,
		Status:      models.TxnPending,
		Reference:   reference,
		Description: "USSD deposit",
		Metadata:    map[string]any{"channel": "ussd", "bank_code": req.BankCode},
	})
	if err != nil {
		return USSDDepositResult{}, fmt.Errorf("record deposit: %w", err)
	}

	data, err := s.processor.Charge(ctx, paystack.ChargeRequest{
		Email:     req.Email,
		Amount:    strconv.FormatInt(kobo, 10),
		Reference: reference,
		USSD:      &paystack.USSD{Type: req.BankCode},
		Metadata:  map[string]any{"purpose": "deposit", "user_id": userID},
	})
	if err != nil || data.Status == "failed" {
		if _, terr := s.store.Repos().Transactions.Transition(ctx, reference, models.TxnPending, models.TxnFailed); terr != nil {
			s.log.Warn("mark ussd deposit failed", zap.String("reference", reference), zap.Error(terr))
		}
		if err == nil {
			return USSDDepositResult{}, fmt.Errorf("%w: %s", ErrUpstream, data.GatewayResp)
		}
		s.log.Warn("ussd charge failed", zap.String("user_id", userID), zap.String("reference", reference), zap.Error(err))
		return USSDDepositResult{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	s.log.Info("ussd deposit initiated",
		zap.String("user_id", userID),
		zap.String("reference", reference),
		zap.String("amount", amount.String()))
	return USSDDepositResult{
		Reference:   reference,
		Status:      data.Status,
		Amount:      amount,
		USSDCode:    data.USSDCode,
		DisplayText: data.DisplayText,
	}, nil
}
