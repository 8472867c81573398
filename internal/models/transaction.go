package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TxnDeposit          TransactionType = "deposit"
	TxnPayout           TransactionType = "payout"
	TxnWithdrawal       TransactionType = "withdrawal"
	TxnCardVerification TransactionType = "card_verification"
)

type TransactionStatus string

const (
	TxnPending   TransactionStatus = "pending"
	TxnCompleted TransactionStatus = "completed"
	TxnFailed    TransactionStatus = "failed"
)

type Transaction struct {
	ID           string            `json:"id"`
	UserID       string            `json:"user_id"`
	Type         TransactionType   `json:"type"`
	Amount       decimal.Decimal   `json:"amount"`
	Fee          decimal.Decimal   `json:"fee"`
	Status       TransactionStatus `json:"status"`
	Reference    string            `json:"reference"`
	PayoutPlanID *string           `json:"payout_plan_id,omitempty"`
	Description  string            `json:"description"`
	Metadata     map[string]any    `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}
