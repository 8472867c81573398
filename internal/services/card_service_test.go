package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planmoni/planmoni-backend/internal/models"
	"github.com/planmoni/planmoni-backend/internal/paystack"
	"github.com/planmoni/planmoni-backend/internal/repository/memory"
)

var testCard = TokenizeRequest{
	CardNumber:  "4084084084084081",
	CVV:         "408",
	ExpiryMonth: "12",
	ExpiryYear:  "30",
	Email:       "ada@example.com",
}

func approved() paystack.ChargeData {
	return paystack.ChargeData{
		Status:   "success",
		Amount:   5000,
		Customer: paystack.Customer{Email: "ada@example.com"},
		Authorization: paystack.Authorization{
			AuthorizationCode: "AUTH_abc",
			Signature:         "SIG_abc",
			Bin:               "408408",
			Last4:             "4081",
			ExpMonth:          "12",
			ExpYear:           "2030",
			CardType:          "visa",
			Bank:              "TEST BANK",
			Reusable:          true,
		},
	}
}

func newCardFixture(p *fakeProcessor) (*CardService, *memory.Store, *recordingNotifier) {
	store := memory.NewStore()
	n := &recordingNotifier{}
	return NewCardService(store, p, n, nopLogger(), 5000), store, n
}

func TestTokenizeApprovedImmediately(t *testing.T) {
	p := &fakeProcessor{charge: approved()}
	svc, store, n := newCardFixture(p)
	ctx := context.Background()

	res, err := svc.Tokenize(ctx, "user-1", testCard)
	require.NoError(t, err)
	require.NotNil(t, res.Card)
	assert.Equal(t, "success", res.Status)
	assert.Equal(t, "4081", res.Card.Last4)
	assert.Equal(t, "AUTH_abc", res.Card.AuthorizationCode)

	require.Len(t, p.charges, 1)
	req := p.charges[0]
	assert.Equal(t, "5000", req.Amount)
	assert.Equal(t, "card_verification", req.Metadata["purpose"])
	assert.Equal(t, res.Reference, req.Reference)
	assert.Regexp(t, `^CV-`, req.Reference)

	txn, err := store.Repos().Transactions.GetByReference(ctx, res.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.TxnCardVerification, txn.Type)
	assert.Equal(t, models.TxnCompleted, txn.Status)
	assert.NotContains(t, fmt.Sprint(txn.Metadata), testCard.CardNumber)

	assert.True(t, naira("50").Equal(walletOf(t, store, "user-1").Balance))
	assert.Equal(t, 1, n.count())

	cards, err := svc.List(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, cards, 1)
}

func TestTokenizeWithOTP(t *testing.T) {
	p := &fakeProcessor{
		charge: paystack.ChargeData{Status: "send_otp", DisplayText: "Please enter OTP"},
		submit: approved(),
	}
	svc, store, _ := newCardFixture(p)
	ctx := context.Background()

	res, err := svc.Tokenize(ctx, "user-1", testCard)
	require.NoError(t, err)
	assert.Equal(t, "send_otp", res.Status)
	assert.Equal(t, "Please enter OTP", res.DisplayText)
	assert.Nil(t, res.Card)

	_, err = svc.Continue(ctx, "user-2", ContinueRequest{Reference: res.Reference, OTP: "123456"})
	assert.ErrorIs(t, err, ErrNotFound, "another user's verification")

	_, err = svc.Continue(ctx, "user-1", ContinueRequest{Reference: res.Reference, OTP: "123456", PIN: "1234"})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, p.submitted)

	done, err := svc.Continue(ctx, "user-1", ContinueRequest{Reference: res.Reference, OTP: "123456"})
	require.NoError(t, err)
	require.NotNil(t, done.Card)
	assert.Equal(t, []paystack.SubmitKind{paystack.SubmitOTP}, p.submitted)

	_, err = svc.Continue(ctx, "user-1", ContinueRequest{Reference: res.Reference, OTP: "123456"})
	assert.ErrorIs(t, err, ErrValidation, "verification already completed")
	assert.True(t, naira("50").Equal(walletOf(t, store, "user-1").Balance))
}

func TestTokenizeDeclined(t *testing.T) {
	tests := []struct {
		name string
		p    *fakeProcessor
		want error
	}{
		{"processor failed", &fakeProcessor{charge: paystack.ChargeData{Status: "failed", GatewayResp: "Declined"}}, ErrCardDeclined},
		{"request rejected", &fakeProcessor{chargeErr: fmt.Errorf("%w: invalid card", paystack.ErrRequest)}, ErrCardDeclined},
		{"processor down", &fakeProcessor{chargeErr: errors.New("connection refused")}, ErrUpstream},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, store, n := newCardFixture(tc.p)
			_, err := svc.Tokenize(context.Background(), "user-1", testCard)
			assert.ErrorIs(t, err, tc.want)

			txns, err := store.Repos().Transactions.ListByUser(context.Background(), "user-1", 10, 0)
			require.NoError(t, err)
			require.Len(t, txns, 1)
			assert.Equal(t, models.TxnFailed, txns[0].Status)
			assert.True(t, walletOf(t, store, "user-1").Balance.IsZero())
			assert.Zero(t, n.count())
		})
	}
}

func TestTokenizeNonReusableCardKeepsVerificationCharge(t *testing.T) {
	charge := approved()
	charge.Authorization.Reusable = false
	svc, store, n := newCardFixture(&fakeProcessor{charge: charge})
	ctx := context.Background()

	_, err := svc.Tokenize(ctx, "user-1", testCard)
	assert.ErrorIs(t, err, ErrCardDeclined)

	txns, err := store.Repos().Transactions.ListByUser(ctx, "user-1", 10, 0)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, models.TxnCompleted, txns[0].Status)
	assert.True(t, naira("50").Equal(walletOf(t, store, "user-1").Balance))
	assert.Equal(t, 1, n.count())

	cards, err := svc.List(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, cards)

	evs, err := store.Repos().Events.ListByUser(ctx, "user-1", 10, 0)
	require.NoError(t, err)
	require.Len(t, evs, 1)
	assert.Equal(t, models.EventDeposit, evs[0].Type)
	assert.Equal(t, txns[0].ID, *evs[0].TransactionID)
}

func TestTokenizeRequiresCardDetails(t *testing.T) {
	p := &fakeProcessor{}
	svc, _, _ := newCardFixture(p)
	req := testCard
	req.CVV = ""
	_, err := svc.Tokenize(context.Background(), "user-1", req)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, p.charges)
}

func TestDeleteCard(t *testing.T) {
	svc, _, _ := newCardFixture(&fakeProcessor{charge: approved()})
	ctx := context.Background()
	res, err := svc.Tokenize(ctx, "user-1", testCard)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, "user-2", res.Card.ID), ErrNotFound)
	require.NoError(t, svc.Delete(ctx, "user-1", res.Card.ID))
	cards, err := svc.List(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, cards)
}
