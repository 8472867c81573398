package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planmoni/planmoni-backend/internal/idempotency"
	"github.com/planmoni/planmoni-backend/internal/models"
	"github.com/planmoni/planmoni-backend/internal/paystack"
	"github.com/planmoni/planmoni-backend/internal/repository/memory"
)

func newWebhookFixture(t *testing.T) (*WebhookService, *memory.Store, *recordingNotifier) {
	t.Helper()
	store := memory.NewStore()
	n := &recordingNotifier{}
	_, err := store.Repos().VirtualAccounts.Upsert(context.Background(), models.VirtualAccount{
		UserID:        "user-1",
		CustomerCode:  "CUS_one",
		AccountNumber: "9930000001",
		BankName:      "Wema Bank",
		Status:        models.AccountAssigned,
	})
	require.NoError(t, err)
	return NewWebhookService(store, idempotency.NewLocalGuard(), n, nopLogger()), store, n
}

func transferDeposit(ref string, kobo int64) paystack.ChargeData {
	return paystack.ChargeData{
		Reference:     ref,
		Status:        "success",
		Amount:        kobo,
		Currency:      "NGN",
		Channel:       "dedicated_nuban",
		Authorization: paystack.Authorization{ReceiverBankAccountNumber: "9930000001"},
	}
}

func TestDepositCreditedOnceAcrossReplays(t *testing.T) {
	svc, store, n := newWebhookFixture(t)
	ctx := context.Background()
	wh := webhook(t, paystack.EventChargeSuccess, transferDeposit("T-100", 500000))

	out, err := svc.Handle(ctx, wh)
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, out)

	for i := 0; i < 3; i++ {
		out, err = svc.Handle(ctx, wh)
		require.NoError(t, err)
		assert.Equal(t, OutcomeAlreadyProcessed, out)
	}

	w := walletOf(t, store, "user-1")
	assert.True(t, naira("5000").Equal(w.Balance), "balance %s", w.Balance)
	assert.Equal(t, 1, n.count())

	txns, err := store.Repos().Transactions.ListByUser(ctx, "user-1", 10, 0)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, models.TxnDeposit, txns[0].Type)
	assert.Equal(t, models.TxnCompleted, txns[0].Status)

	evs, err := store.Repos().Events.ListByUser(ctx, "user-1", 10, 0)
	require.NoError(t, err)
	require.Len(t, evs, 1)
	assert.Equal(t, models.EventDeposit, evs[0].Type)
	assert.Equal(t, txns[0].ID, *evs[0].TransactionID)
}

func TestDepositResolvedByCustomerCode(t *testing.T) {
	svc, store, _ := newWebhookFixture(t)
	data := transferDeposit("T-200", 12345)
	data.Authorization = paystack.Authorization{}
	data.Customer = paystack.Customer{CustomerCode: "CUS_one"}

	out, err := svc.Handle(context.Background(), webhook(t, paystack.EventChargeSuccess, data))
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, out)
	assert.True(t, naira("123.45").Equal(walletOf(t, store, "user-1").Balance))
}

func TestDepositCompletesPendingUSSD(t *testing.T) {
	svc, store, n := newWebhookFixture(t)
	ctx := context.Background()
	_, _, err := store.Repos().Transactions.Insert(ctx, models.Transaction{
		UserID:    "user-2",
		Type:      models.TxnDeposit,
		Amount:    naira("2000"),
		Status:    models.TxnPending,
		Reference: "DP-abc",
	})
	require.NoError(t, err)

	data := paystack.ChargeData{Reference: "DP-abc", Status: "success", Amount: 200000, Currency: "NGN", Channel: "ussd"}
	out, err := svc.Handle(ctx, webhook(t, paystack.EventChargeSuccess, data))
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, out)

	txn, err := store.Repos().Transactions.GetByReference(ctx, "DP-abc")
	require.NoError(t, err)
	assert.Equal(t, models.TxnCompleted, txn.Status)
	assert.True(t, naira("2000").Equal(walletOf(t, store, "user-2").Balance))
	require.Equal(t, 1, n.count())
	assert.Equal(t, "user-2", n.calls[0].UserID)

	out, err = svc.Handle(ctx, webhook(t, paystack.EventChargeSuccess, data))
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyProcessed, out)
	assert.True(t, naira("2000").Equal(walletOf(t, store, "user-2").Balance))
}

func TestDepositIgnoredCases(t *testing.T) {
	unknown := transferDeposit("T-300", 1000)
	unknown.Authorization.ReceiverBankAccountNumber = "0000000000"

	verification := transferDeposit("CV-1", 5000)
	verification.Metadata = paystack.Metadata{"purpose": "card_verification"}

	usd := transferDeposit("T-301", 1000)
	usd.Currency = "USD"

	for name, data := range map[string]paystack.ChargeData{
		"unresolved owner":  unknown,
		"card verification": verification,
		"foreign currency":  usd,
	} {
		t.Run(name, func(t *testing.T) {
			svc, store, n := newWebhookFixture(t)
			out, err := svc.Handle(context.Background(), webhook(t, paystack.EventChargeSuccess, data))
			require.NoError(t, err)
			assert.Equal(t, OutcomeIgnored, out)
			assert.True(t, walletOf(t, store, "user-1").Balance.IsZero())
			assert.Zero(t, n.count())
			_, err = store.Repos().Transactions.GetByReference(context.Background(), data.Reference)
			assert.Error(t, err, "ignored deliveries leave no record")
		})
	}
}

func TestDepositInFlightRejected(t *testing.T) {
	store := memory.NewStore()
	guard := idempotency.NewLocalGuard()
	svc := NewWebhookService(store, guard, &recordingNotifier{}, nopLogger())

	release, ok, err := guard.Acquire(context.Background(), paystack.EventChargeSuccess+":T-400", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	defer release()

	_, err = svc.Handle(context.Background(), webhook(t, paystack.EventChargeSuccess, transferDeposit("T-400", 1000)))
	assert.ErrorIs(t, err, ErrInFlight)
}

func TestDepositWithoutReferenceInvalid(t *testing.T) {
	svc, _, _ := newWebhookFixture(t)
	_, err := svc.Handle(context.Background(), webhook(t, paystack.EventChargeSuccess, transferDeposit("", 1000)))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUnknownEventIgnored(t *testing.T) {
	svc, _, _ := newWebhookFixture(t)
	out, err := svc.Handle(context.Background(), paystack.Webhook{Event: "subscription.create", Data: []byte(`{}`)})
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, out)
}

func TestTransferEvents(t *testing.T) {
	svc, store, _ := newWebhookFixture(t)
	ctx := context.Background()
	_, _, err := store.Repos().Transactions.Insert(ctx, models.Transaction{
		UserID: "user-1", Type: models.TxnPayout, Amount: naira("100"), Status: models.TxnPending, Reference: "TRF-1",
	})
	require.NoError(t, err)

	status := func() models.TransactionStatus {
		txn, err := store.Repos().Transactions.GetByReference(ctx, "TRF-1")
		require.NoError(t, err)
		return txn.Status
	}

	out, err := svc.Handle(ctx, webhook(t, paystack.EventTransferSuccess, paystack.TransferData{Reference: "TRF-1", Status: "success"}))
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, out)
	assert.Equal(t, models.TxnCompleted, status())

	out, err = svc.Handle(ctx, webhook(t, paystack.EventTransferSuccess, paystack.TransferData{Reference: "TRF-1", Status: "success"}))
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyProcessed, out)

	out, err = svc.Handle(ctx, webhook(t, paystack.EventTransferReversed, paystack.TransferData{Reference: "TRF-1", Status: "reversed"}))
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, out)
	assert.Equal(t, models.TxnFailed, status())

	assert.True(t, walletOf(t, store, "user-1").Balance.IsZero(), "transfers do not move wallet balances")
}

func TestTransferRecordedFromRecipientMetadata(t *testing.T) {
	svc, store, _ := newWebhookFixture(t)
	ctx := context.Background()

	data := paystack.TransferData{
		Reference: "TRF-2",
		Status:    "failed",
		Amount:    250000,
		Recipient: paystack.Recipient{Metadata: paystack.Metadata{"user_id": "user-7"}},
	}
	out, err := svc.Handle(ctx, webhook(t, paystack.EventTransferFailed, data))
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, out)

	txn, err := store.Repos().Transactions.GetByReference(ctx, "TRF-2")
	require.NoError(t, err)
	assert.Equal(t, "user-7", txn.UserID)
	assert.Equal(t, models.TxnFailed, txn.Status)
	assert.True(t, naira("2500").Equal(txn.Amount))

	data.Reference, data.Recipient = "TRF-3", paystack.Recipient{}
	out, err = svc.Handle(ctx, webhook(t, paystack.EventTransferSuccess, data))
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, out)
}

func TestDedicatedAccountAssigned(t *testing.T) {
	svc, store, _ := newWebhookFixture(t)
	ctx := context.Background()
	_, err := store.Repos().VirtualAccounts.Upsert(ctx, models.VirtualAccount{
		UserID: "user-3", CustomerCode: "CUS_three", Status: models.AccountPending,
	})
	require.NoError(t, err)

	data := paystack.DedicatedAccountData{
		Customer: paystack.Customer{CustomerCode: "CUS_three"},
		DedicatedAccount: paystack.DedicatedAccount{
			AccountNumber: "9930000003",
			AccountName:   "PLANMONI/USER THREE",
			Bank:          paystack.Bank{Name: "Wema Bank", Slug: "wema-bank"},
			Assigned:      true,
		},
	}
	out, err := svc.Handle(ctx, webhook(t, paystack.EventDedicatedAccountAssigned, data))
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, out)

	acct, err := store.Repos().VirtualAccounts.GetByUser(ctx, "user-3")
	require.NoError(t, err)
	assert.Equal(t, models.AccountAssigned, acct.Status)
	assert.Equal(t, "9930000003", acct.AccountNumber)
	assert.Equal(t, "Wema Bank", acct.BankName)

	out, err = svc.Handle(ctx, webhook(t, paystack.EventDedicatedAccountAssigned, data))
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyProcessed, out)

	// Deposits into the new account now resolve.
	dep := transferDeposit("T-500", 10000)
	dep.Authorization.ReceiverBankAccountNumber = "9930000003"
	out, err = svc.Handle(ctx, webhook(t, paystack.EventChargeSuccess, dep))
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, out)
	assert.True(t, naira("100").Equal(walletOf(t, store, "user-3").Balance))
}
