package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"github.com/planmoni/planmoni-backend/internal/models"
	"github.com/planmoni/planmoni-backend/internal/paystack"
	repo "github.com/planmoni/planmoni-backend/internal/repository"
)

// Notifier is told about committed wallet changes.
type Notifier interface {
	WalletChanged(userID, reason string, w models.Wallet)
}

// Processor is the subset of the Paystack API the services call.
type Processor interface {
	Charge(ctx context.Context, req paystack.ChargeRequest) (paystack.ChargeData, error)
	Submit(ctx context.Context, kind paystack.SubmitKind, value, reference string) (paystack.ChargeData, error)
	CreateCustomer(ctx context.Context, req paystack.CustomerRequest) (paystack.Customer, error)
	CreateDedicatedAccount(ctx context.Context, customerCode, preferredBank string) (paystack.DedicatedAccount, error)
}

// Reference prefixes, one per kind of money movement we originate.
const (
	refEmergencyWithdrawal = "EW"
	refCardVerification    = "CV"
	refDeposit             = "DP"
)

func newReference(prefix string) string {
	return prefix + "-" + ulid.Make().String()
}

// wholeKobo reports whether every amount is representable in kobo.
func wholeKobo(amounts ...decimal.Decimal) bool {
	for _, a := range amounts {
		if !a.Equal(a.Round(2)) {
			return false
		}
	}
	return true
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// notFound turns repository misses into the service error.
func notFound(err error, what string) error {
	if errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return err
}

func ptr[T any](v T) *T { return &v }

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
