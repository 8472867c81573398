package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var ErrWalletInvariant = errors.New("wallet invariant violated")

type Wallet struct {
	UserID        string          `json:"user_id"`
	Balance       decimal.Decimal `json:"balance"`
	LockedBalance decimal.Decimal `json:"locked_balance"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Available is the part of the balance not committed to payout plans.
func (w Wallet) Available() decimal.Decimal {
	return w.Balance.Sub(w.LockedBalance)
}

// Apply returns the wallet after adding the deltas, or ErrWalletInvariant
// if the result would break 0 <= locked <= balance.
func (w Wallet) Apply(balanceDelta, lockedDelta decimal.Decimal) (Wallet, error) {
	next := w
	next.Balance = w.Balance.Add(balanceDelta)
	next.LockedBalance = w.LockedBalance.Add(lockedDelta)
	if next.LockedBalance.IsNegative() || next.LockedBalance.GreaterThan(next.Balance) {
		return w, ErrWalletInvariant
	}
	return next, nil
}

type WalletView struct {
	Balance          decimal.Decimal `json:"balance"`
	LockedBalance    decimal.Decimal `json:"locked_balance"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func (w Wallet) View() WalletView {
	return WalletView{
		Balance:          w.Balance,
		LockedBalance:    w.LockedBalance,
		AvailableBalance: w.Available(),
		UpdatedAt:        w.UpdatedAt,
	}
}
