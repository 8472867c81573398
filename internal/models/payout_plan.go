package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type PlanStatus string

const (
	PlanActive    PlanStatus = "active"
	PlanPaused    PlanStatus = "paused"
	PlanCancelled PlanStatus = "cancelled"
	PlanCompleted PlanStatus = "completed"
)

var ErrWithdrawalExceedsRemaining = errors.New("amount exceeds remaining plan amount")

type PayoutPlan struct {
	ID                         string          `json:"id"`
	UserID                     string          `json:"user_id"`
	Name                       string          `json:"name"`
	TotalAmount                decimal.Decimal `json:"total_amount"`
	PayoutAmount               decimal.Decimal `json:"payout_amount"`
	CompletedPayouts           int             `json:"completed_payouts"`
	Duration                   int             `json:"duration"`
	Frequency                  string          `json:"frequency"`
	Status                     PlanStatus      `json:"status"`
	EmergencyWithdrawalEnabled bool            `json:"emergency_withdrawal_enabled"`
	CreatedAt                  time.Time       `json:"created_at"`
	UpdatedAt                  time.Time       `json:"updated_at"`
}

// Remaining is the part of the plan not yet paid out.
func (p PayoutPlan) Remaining() decimal.Decimal {
	paid := p.PayoutAmount.Mul(decimal.NewFromInt(int64(p.CompletedPayouts)))
	return p.TotalAmount.Sub(paid)
}

// Withdrawable reports whether the plan is in a state that still holds locked funds.
func (p PayoutPlan) Withdrawable() bool {
	return p.Status == PlanActive || p.Status == PlanPaused
}

// PayoutCount is how many whole payouts fit into total.
func PayoutCount(total, payout decimal.Decimal) int {
	if !payout.IsPositive() {
		return 0
	}
	return int(total.Div(payout).Floor().IntPart())
}

// AfterWithdrawal applies an emergency withdrawal of amount to the plan.
// Withdrawing the whole remaining amount cancels the plan; a partial withdrawal
// rebases the plan on what is left and recomputes its duration, which is zero
// when less than one payout remains.
func (p PayoutPlan) AfterWithdrawal(amount decimal.Decimal) (PayoutPlan, error) {
	remaining := p.Remaining()
	if amount.GreaterThan(remaining) {
		return p, ErrWithdrawalExceedsRemaining
	}
	next := p
	if amount.Equal(remaining) {
		next.Status = PlanCancelled
		return next, nil
	}
	next.TotalAmount = remaining.Sub(amount)
	next.CompletedPayouts = 0
	next.Duration = PayoutCount(next.TotalAmount, p.PayoutAmount)
	return next, nil
}
