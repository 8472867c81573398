package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/planmoni/planmoni-backend/internal/idempotency"
	"github.com/planmoni/planmoni-backend/internal/metrics"
	"github.com/planmoni/planmoni-backend/internal/models"
	"github.com/planmoni/planmoni-backend/internal/paystack"
	repo "github.com/planmoni/planmoni-backend/internal/repository"
)

type Outcome string

const (
	OutcomeProcessed        Outcome = "processed"
	OutcomeAlreadyProcessed Outcome = "already_processed"
	OutcomeIgnored          Outcome = "ignored"
)

const (
	purposeCardVerification = "card_verification"
	inFlightTTL             = 2 * time.Minute
)

// WebhookService applies verified Paystack deliveries to wallets and records.
type WebhookService struct {
	store    repo.Store
	guard    idempotency.Guard
	notifier Notifier
	log      *zap.Logger
}

func NewWebhookService(store repo.Store, guard idempotency.Guard, notifier Notifier, log *zap.Logger) *WebhookService {
	return &WebhookService{store: store, guard: guard, notifier: notifier, log: log}
}

// Handle dispatches one delivery. The signature must already be verified.
func (s *WebhookService) Handle(ctx context.Context, wh paystack.Webhook) (outcome Outcome, err error) {
	defer func() {
		label := string(outcome)
		if err != nil {
			label = "error"
		}
		metrics.WebhookEventsTotal.WithLabelValues(wh.Event, label).Inc()
	}()

	switch wh.Event {
	case paystack.EventChargeSuccess:
		var data paystack.ChargeData
		if err := json.Unmarshal(wh.Data, &data); err != nil {
			return "", invalid("charge payload: %v", err)
		}
		return s.guarded(ctx, wh.Event, data.Reference, func() (Outcome, error) { return s.creditDeposit(ctx, data) })

	case paystack.EventTransferSuccess, paystack.EventTransferFailed, paystack.EventTransferReversed:
		var data paystack.TransferData
		if err := json.Unmarshal(wh.Data, &data); err != nil {
			return "", invalid("transfer payload: %v", err)
		}
		return s.guarded(ctx, wh.Event, data.Reference, func() (Outcome, error) { return s.recordTransfer(ctx, wh.Event, data) })

	case paystack.EventDedicatedAccountAssigned:
		var data paystack.DedicatedAccountData
		if err := json.Unmarshal(wh.Data, &data); err != nil {
			return "", invalid("dedicated account payload: %v", err)
		}
		return s.guarded(ctx, wh.Event, data.Customer.CustomerCode, func() (Outcome, error) { return s.assignAccount(ctx, data) })

	default:
		s.log.Info("webhook event ignored", zap.String("event", wh.Event))
		return OutcomeIgnored, nil
	}
}

func (s *WebhookService) guarded(ctx context.Context, event, key string, fn func() (Outcome, error)) (Outcome, error) {
	if key == "" {
		return "", invalid("%s without reference", event)
	}
	release, ok, err := s.guard.Acquire(ctx, event+":"+key, inFlightTTL)
	if err != nil {
		// The unique reference constraint still protects us.
		s.log.Warn("in-flight guard unavailable", zap.String("key", key), zap.Error(err))
	} else if !ok {
		return "", ErrInFlight
	} else {
		defer release()
	}
	return fn()
}

// creditDeposit credits a charge.success to the paying user's wallet exactly once.
func (s *WebhookService) creditDeposit(ctx context.Context, data paystack.ChargeData) (Outcome, error) {
	log := s.log.With(zap.String("reference", data.Reference))

	if data.Metadata.String("purpose") == purposeCardVerification {
		log.Debug("card verification charge, settled by tokenization flow")
		return OutcomeIgnored, nil
	}
	if data.Currency != "" && data.Currency != "NGN" {
		log.Warn("unsupported currency", zap.String("currency", data.Currency))
		return OutcomeIgnored, nil
	}
	amount := paystack.KoboToNaira(data.Amount)
	if !amount.IsPositive() {
		return "", invalid("non-positive amount %d", data.Amount)
	}

	var (
		outcome Outcome
		userID  string
		wallet  models.Wallet
	)
	err := s.store.WithTx(ctx, func(r repo.Repos) error {
		outcome, userID = "", ""

		existing, err := r.Transactions.GetByReference(ctx, data.Reference)
		switch {
		case err == nil && existing.Status == models.TxnPending && existing.Type == models.TxnDeposit:
			// USSD deposit we initiated: the pending row names the user.
			if !existing.Amount.Equal(amount) {
				log.Warn("deposit amount differs from initiated amount",
					zap.String("initiated", existing.Amount.String()), zap.String("paid", amount.String()))
			}
			if _, err := r.Transactions.Transition(ctx, data.Reference, models.TxnPending, models.TxnCompleted); err != nil {
				return fmt.Errorf("complete pending deposit: %w", err)
			}
			userID = existing.UserID
			existing.Status = models.TxnCompleted
		case err == nil:
			outcome = OutcomeAlreadyProcessed
			return nil
		case !errors.Is(err, repo.ErrNotFound):
			return err
		default:
			userID, err = s.resolveAccountOwner(ctx, r, data)
			if err != nil {
				return err
			}
			if userID == "" {
				outcome = OutcomeIgnored
				return nil
			}
			var inserted bool
			existing, inserted, err = r.Transactions.Insert(ctx, models.Transaction{
				UserID:      userID,
				Type:        models.TxnDeposit,
				Amount:      amount,
				Fee:         decimal.Zero,
				Status:      models.TxnCompleted,
				Reference:   data.Reference,
				Description: "Wallet deposit",
				Metadata:    map[string]any{"channel": data.Channel, "paystack_id": data.ID},
			})
			if err != nil {
				return fmt.Errorf("insert deposit: %w", err)
			}
			if !inserted {
				outcome = OutcomeAlreadyProcessed
				return nil
			}
		}

		if _, err := r.Wallets.GetForUpdate(ctx, userID); err != nil {
			return fmt.Errorf("lock wallet: %w", err)
		}
		wallet, err = r.Wallets.Adjust(ctx, userID, amount, decimal.Zero)
		if err != nil {
			return fmt.Errorf("credit wallet: %w", err)
		}
		if _, err := r.Events.Create(ctx, models.Event{
			UserID:        userID,
			Type:          models.EventDeposit,
			Title:         "Deposit received",
			Description:   fmt.Sprintf("₦%s has been added to your wallet", amount.StringFixed(2)),
			TransactionID: ptr(existing.ID),
		}); err != nil {
			return fmt.Errorf("create deposit event: %w", err)
		}
		outcome = OutcomeProcessed
		return nil
	})
	if err != nil {
		log.Error("deposit processing failed", zap.Error(err))
		return "", err
	}

	switch outcome {
	case OutcomeProcessed:
		f, _ := amount.Float64()
		metrics.DepositsCreditedNaira.Add(f)
		s.notifier.WalletChanged(userID, "deposit", wallet)
		log.Info("deposit credited", zap.String("user_id", userID), zap.String("amount", amount.String()))
	case OutcomeIgnored:
		log.Warn("deposit owner not resolved, not credited",
			zap.String("account_number", data.Authorization.ReceiverBankAccountNumber),
			zap.String("customer_code", data.Customer.CustomerCode))
	default:
		log.Info("deposit already processed")
	}
	return outcome, nil
}

// resolveAccountOwner maps a transfer deposit to a user through their virtual account.
// An empty id means the owner is unknown.
func (s *WebhookService) resolveAccountOwner(ctx context.Context, r repo.Repos, data paystack.ChargeData) (string, error) {
	if n := data.Authorization.ReceiverBankAccountNumber; n != "" {
		acct, err := r.VirtualAccounts.GetByAccountNumber(ctx, n)
		if err == nil {
			return acct.UserID, nil
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return "", err
		}
	}
	if code := data.Customer.CustomerCode; code != "" {
		acct, err := r.VirtualAccounts.GetByCustomerCode(ctx, code)
		if err == nil {
			return acct.UserID, nil
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return "", err
		}
	}
	return "", nil
}

// recordTransfer settles payout transactions. Transfers never touch balances here.
func (s *WebhookService) recordTransfer(ctx context.Context, event string, data paystack.TransferData) (Outcome, error) {
	log := s.log.With(zap.String("reference", data.Reference), zap.String("event", event))

	to := models.TxnCompleted
	if event != paystack.EventTransferSuccess {
		to = models.TxnFailed
	}

	var outcome Outcome
	err := s.store.WithTx(ctx, func(r repo.Repos) error {
		outcome = ""
		from := []models.TransactionStatus{models.TxnPending}
		if event == paystack.EventTransferReversed {
			from = append(from, models.TxnCompleted)
		}
		for _, st := range from {
			_, err := r.Transactions.Transition(ctx, data.Reference, st, to)
			if err == nil {
				outcome = OutcomeProcessed
				return nil
			}
			if !errors.Is(err, repo.ErrNotFound) {
				return err
			}
		}

		if _, err := r.Transactions.GetByReference(ctx, data.Reference); err == nil {
			outcome = OutcomeAlreadyProcessed
			return nil
		} else if !errors.Is(err, repo.ErrNotFound) {
			return err
		}

		userID := data.Recipient.Metadata.String("user_id")
		if userID == "" {
			outcome = OutcomeIgnored
			return nil
		}
		_, inserted, err := r.Transactions.Insert(ctx, models.Transaction{
			UserID:      userID,
			Type:        models.TxnPayout,
			Amount:      paystack.KoboToNaira(data.Amount),
			Fee:         decimal.Zero,
			Status:      to,
			Reference:   data.Reference,
			Description: data.Reason,
			Metadata:    map[string]any{"transfer_code": data.TransferCode},
		})
		if err != nil {
			return err
		}
		outcome = OutcomeProcessed
		if !inserted {
			outcome = OutcomeAlreadyProcessed
		}
		return nil
	})
	if err != nil {
		log.Error("transfer processing failed", zap.Error(err))
		return "", err
	}
	log.Info("transfer recorded", zap.String("outcome", string(outcome)))
	return outcome, nil
}

// assignAccount stores the account details of an asynchronously assigned virtual account.
func (s *WebhookService) assignAccount(ctx context.Context, data paystack.DedicatedAccountData) (Outcome, error) {
	log := s.log.With(zap.String("customer_code", data.Customer.CustomerCode))
	if data.DedicatedAccount.AccountNumber == "" {
		return "", invalid("dedicated account without account number")
	}

	var outcome Outcome
	err := s.store.WithTx(ctx, func(r repo.Repos) error {
		acct, err := r.VirtualAccounts.GetByCustomerCode(ctx, data.Customer.CustomerCode)
		if errors.Is(err, repo.ErrNotFound) {
			if uid := data.Customer.Metadata.String("user_id"); uid != "" {
				acct, err = r.VirtualAccounts.GetByUser(ctx, uid)
			}
		}
		if errors.Is(err, repo.ErrNotFound) {
			outcome = OutcomeIgnored
			return nil
		}
		if err != nil {
			return err
		}
		if acct.Status == models.AccountAssigned && acct.AccountNumber == data.DedicatedAccount.AccountNumber {
			outcome = OutcomeAlreadyProcessed
			return nil
		}

		acct.CustomerCode = data.Customer.CustomerCode
		acct.AccountNumber = data.DedicatedAccount.AccountNumber
		acct.AccountName = data.DedicatedAccount.AccountName
		acct.BankName = data.DedicatedAccount.Bank.Name
		acct.Status = models.AccountAssigned
		if _, err := r.VirtualAccounts.Upsert(ctx, acct); err != nil {
			return err
		}
		if _, err := r.Events.Create(ctx, models.Event{
			UserID:      acct.UserID,
			Type:        models.EventAccountAssigned,
			Title:       "Deposit account ready",
			Description: fmt.Sprintf("%s %s", acct.BankName, acct.AccountNumber),
		}); err != nil {
			return err
		}
		outcome = OutcomeProcessed
		return nil
	})
	if err != nil {
		log.Error("account assignment failed", zap.Error(err))
		return "", err
	}
	if outcome == OutcomeIgnored {
		log.Warn("dedicated account for unknown customer")
	}
	return outcome, nil
}
