package repository

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/planmoni/planmoni-backend/internal/models"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	// ErrProcedureUnavailable means the database has no stored procedure for the call.
	ErrProcedureUnavailable = errors.New("stored procedure unavailable")
)

type Wallets interface {
	GetOrCreate(ctx context.Context, userID string) (models.Wallet, error)
	// GetForUpdate creates the wallet if needed and locks it for the enclosing transaction.
	GetForUpdate(ctx context.Context, userID string) (models.Wallet, error)
	// Adjust adds the deltas and fails with models.ErrWalletInvariant when the
	// result would break 0 <= locked <= balance.
	Adjust(ctx context.Context, userID string, balanceDelta, lockedDelta decimal.Decimal) (models.Wallet, error)
}

type Transactions interface {
	// Insert stores tx unless its reference already exists; inserted reports which happened.
	Insert(ctx context.Context, tx models.Transaction) (out models.Transaction, inserted bool, err error)
	GetByReference(ctx context.Context, reference string) (models.Transaction, error)
	// Transition moves the transaction from one status to another and returns
	// ErrNotFound if no transaction with that reference is in status from.
	Transition(ctx context.Context, reference string, from, to models.TransactionStatus) (models.Transaction, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Transaction, error)
}

type PayoutPlans interface {
	Create(ctx context.Context, p models.PayoutPlan) (models.PayoutPlan, error)
	Get(ctx context.Context, id string) (models.PayoutPlan, error)
	GetForUpdate(ctx context.Context, id string) (models.PayoutPlan, error)
	Update(ctx context.Context, p models.PayoutPlan) (models.PayoutPlan, error)
	ListByUser(ctx context.Context, userID string) ([]models.PayoutPlan, error)
}

type Events interface {
	Create(ctx context.Context, e models.Event) (models.Event, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Event, error)
	MarkRead(ctx context.Context, userID, id string) error
}

type Cards interface {
	// Save upserts by (user, signature) so re-adding the same card refreshes it.
	Save(ctx context.Context, c models.Card) (models.Card, error)
	ListByUser(ctx context.Context, userID string) ([]models.Card, error)
	Delete(ctx context.Context, userID, id string) error
}

type VirtualAccounts interface {
	Upsert(ctx context.Context, a models.VirtualAccount) (models.VirtualAccount, error)
	GetByUser(ctx context.Context, userID string) (models.VirtualAccount, error)
	GetByAccountNumber(ctx context.Context, accountNumber string) (models.VirtualAccount, error)
	GetByCustomerCode(ctx context.Context, customerCode string) (models.VirtualAccount, error)
}

type EmergencyWithdrawalCall struct {
	UserID    string
	PlanID    string
	Option    string
	Amount    decimal.Decimal
	Fee       decimal.Decimal
	NetAmount decimal.Decimal
	Reference string
}

// Procedures are optional database-side implementations of multi-step operations.
type Procedures interface {
	ProcessEmergencyWithdrawal(ctx context.Context, call EmergencyWithdrawalCall) error
}

// Repos groups repositories bound to one connection or transaction.
type Repos struct {
	Wallets         Wallets
	Transactions    Transactions
	PayoutPlans     PayoutPlans
	Events          Events
	Cards           Cards
	VirtualAccounts VirtualAccounts
	Procedures      Procedures
}

// Store hands out repositories and runs units of work atomically.
type Store interface {
	Repos() Repos
	// WithTx runs fn against repositories bound to a single transaction,
	// committing if fn returns nil and rolling back otherwise.
	WithTx(ctx context.Context, fn func(r Repos) error) error
}
