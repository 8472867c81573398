package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/planmoni/planmoni-backend/internal/models"
	"github.com/planmoni/planmoni-backend/internal/paystack"
	"github.com/planmoni/planmoni-backend/internal/repository/memory"
)

type walletCall struct {
	UserID string
	Reason string
	Wallet models.Wallet
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []walletCall
}

func (n *recordingNotifier) WalletChanged(userID, reason string, w models.Wallet) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, walletCall{userID, reason, w})
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

type fakeProcessor struct {
	charge     paystack.ChargeData
	chargeErr  error
	submit     paystack.ChargeData
	submitErr  error
	customer   paystack.Customer
	account    paystack.DedicatedAccount
	accountErr error

	charges   []paystack.ChargeRequest
	submitted []paystack.SubmitKind
	customers int
}

func (p *fakeProcessor) Charge(_ context.Context, req paystack.ChargeRequest) (paystack.ChargeData, error) {
	p.charges = append(p.charges, req)
	return p.charge, p.chargeErr
}

func (p *fakeProcessor) Submit(_ context.Context, kind paystack.SubmitKind, _, _ string) (paystack.ChargeData, error) {
	p.submitted = append(p.submitted, kind)
	return p.submit, p.submitErr
}

func (p *fakeProcessor) CreateCustomer(context.Context, paystack.CustomerRequest) (paystack.Customer, error) {
	p.customers++
	return p.customer, nil
}

func (p *fakeProcessor) CreateDedicatedAccount(context.Context, string, string) (paystack.DedicatedAccount, error) {
	return p.account, p.accountErr
}

func naira(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// fund gives a user a wallet with the given balance.
func fund(t *testing.T, store *memory.Store, userID, balance string) {
	t.Helper()
	ctx := context.Background()
	r := store.Repos()
	_, err := r.Wallets.GetOrCreate(ctx, userID)
	require.NoError(t, err)
	_, err = r.Wallets.Adjust(ctx, userID, naira(balance), decimal.Zero)
	require.NoError(t, err)
}

func walletOf(t *testing.T, store *memory.Store, userID string) models.Wallet {
	t.Helper()
	w, err := store.Repos().Wallets.GetOrCreate(context.Background(), userID)
	require.NoError(t, err)
	return w
}

func webhook(t *testing.T, event string, data any) paystack.Webhook {
	t.Helper()
	b, err := json.Marshal(data)
	require.NoError(t, err)
	return paystack.Webhook{Event: event, Data: b}
}

func nopLogger() *zap.Logger { return zap.NewNop() }
