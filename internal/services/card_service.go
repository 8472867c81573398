package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/planmoni/planmoni-backend/internal/metrics"
	"github.com/planmoni/planmoni-backend/internal/models"
	"github.com/planmoni/planmoni-backend/internal/paystack"
	repo "github.com/planmoni/planmoni-backend/internal/repository"
)

type TokenizeRequest struct {
	CardNumber  string
	CVV         string
	ExpiryMonth string
	ExpiryYear  string
	Email       string
}

// ContinueRequest carries exactly one of OTP, Phone or PIN.
type ContinueRequest struct {
	Reference string
	OTP       string
	Phone     string
	PIN       string
}

// TokenizeResult is either a saved card or the next step the client must take.
type TokenizeResult struct {
	Status      string       `json:"status"`
	Reference   string       `json:"reference"`
	DisplayText string       `json:"display_text,omitempty"`
	URL         string       `json:"url,omitempty"`
	Card        *models.Card `json:"card,omitempty"`
}

// CardService saves cards by running a small verification charge through the
// processor and keeping the reusable authorization it returns.
type CardService struct {
	store      repo.Store
	processor  Processor
	notifier   Notifier
	log        *zap.Logger
	amountKobo int64
}

func NewCardService(store repo.Store, processor Processor, notifier Notifier, log *zap.Logger, amountKobo int64) *CardService {
	return &CardService{store: store, processor: processor, notifier: notifier, log: log, amountKobo: amountKobo}
}

func (s *CardService) Tokenize(ctx context.Context, userID string, req TokenizeRequest) (TokenizeResult, error) {
	if req.CardNumber == "" || req.CVV == "" || req.ExpiryMonth == "" || req.ExpiryYear == "" || req.Email == "" {
		return TokenizeResult{}, invalid("card_number, cvv, expiry_month, expiry_year and email are required")
	}
	reference := newReference(refCardVerification)
	log := s.log.With(zap.String("user_id", userID), zap.String("reference", reference))

	_, _, err := s.store.Repos().Transactions.Insert(ctx, models.Transaction{
		UserID:      userID,
		Type:        models.TxnCardVerification,
		Amount:      paystack.KoboToNaira(s.amountKobo),
		Status:      models.TxnPending,
		Reference:   reference,
		Description: "Card verification",
		Metadata:    map[string]any{"email": req.Email},
	})
	if err != nil {
		return TokenizeResult{}, fmt.Errorf("record verification: %w", err)
	}

	data, err := s.processor.Charge(ctx, paystack.ChargeRequest{
		Email:     req.Email,
		Amount:    strconv.FormatInt(s.amountKobo, 10),
		Reference: reference,
		Card: &paystack.CardDetails{
			Number:      req.CardNumber,
			CVV:         req.CVV,
			ExpiryMonth: req.ExpiryMonth,
			ExpiryYear:  req.ExpiryYear,
		},
		Metadata: map[string]any{"purpose": purposeCardVerification, "user_id": userID},
	})
	if err != nil {
		log.Warn("card verification charge failed", zap.Error(err))
		s.fail(ctx, reference)
		return TokenizeResult{}, chargeError(err)
	}
	return s.handleCharge(ctx, userID, reference, data)
}

// Continue submits the OTP, phone or PIN the processor asked for.
func (s *CardService) Continue(ctx context.Context, userID string, req ContinueRequest) (TokenizeResult, error) {
	var (
		kind  paystack.SubmitKind
		value string
		given int
	)
	for k, v := range map[paystack.SubmitKind]string{
		paystack.SubmitOTP:   req.OTP,
		paystack.SubmitPhone: req.Phone,
		paystack.SubmitPIN:   req.PIN,
	} {
		if v != "" {
			kind, value = k, v
			given++
		}
	}
	if req.Reference == "" {
		return TokenizeResult{}, invalid("reference is required")
	}
	if given != 1 {
		return TokenizeResult{}, invalid("exactly one of otp, phone or pin is required")
	}

	txn, err := s.store.Repos().Transactions.GetByReference(ctx, req.Reference)
	if err != nil {
		return TokenizeResult{}, notFound(err, "card verification")
	}
	if txn.UserID != userID || txn.Type != models.TxnCardVerification {
		return TokenizeResult{}, fmt.Errorf("%w: card verification", ErrNotFound)
	}
	if txn.Status != models.TxnPending {
		return TokenizeResult{}, invalid("card verification already %s", txn.Status)
	}

	data, err := s.processor.Submit(ctx, kind, value, req.Reference)
	if err != nil {
		s.log.Warn("card verification submit failed",
			zap.String("reference", req.Reference), zap.String("kind", string(kind)), zap.Error(err))
		if errors.Is(err, paystack.ErrRequest) {
			s.fail(ctx, req.Reference)
		}
		return TokenizeResult{}, chargeError(err)
	}
	return s.handleCharge(ctx, userID, req.Reference, data)
}

func (s *CardService) handleCharge(ctx context.Context, userID, reference string, data paystack.ChargeData) (TokenizeResult, error) {
	metrics.CardTokenizationsTotal.WithLabelValues(data.Status).Inc()
	res := TokenizeResult{Status: data.Status, Reference: reference, DisplayText: data.DisplayText, URL: data.URL}

	switch data.Status {
	case "success":
		card, err := s.complete(ctx, userID, reference, data)
		if err != nil {
			return TokenizeResult{}, err
		}
		res.Card = &card
		return res, nil
	case "failed":
		s.fail(ctx, reference)
		msg := data.GatewayResp
		if msg == "" {
			msg = data.Message
		}
		return TokenizeResult{}, fmt.Errorf("%w: %s", ErrCardDeclined, msg)
	default:
		// send_otp, send_phone, send_pin, open_url, pending and friends.
		return res, nil
	}
}

// complete settles an approved verification charge. The charge always lands in
// the wallet; the card is saved only when its authorization can be reused.
func (s *CardService) complete(ctx context.Context, userID, reference string, data paystack.ChargeData) (models.Card, error) {
	auth := data.Authorization
	saveCard := auth.Reusable && auth.AuthorizationCode != ""

	var (
		card   models.Card
		wallet models.Wallet
	)
	err := s.store.WithTx(ctx, func(r repo.Repos) error {
		txn, err := r.Transactions.Transition(ctx, reference, models.TxnPending, models.TxnCompleted)
		if err != nil {
			return notFound(err, "pending card verification")
		}
		if _, err := r.Wallets.GetForUpdate(ctx, userID); err != nil {
			return fmt.Errorf("lock wallet: %w", err)
		}
		if wallet, err = r.Wallets.Adjust(ctx, userID, txn.Amount, decimal.Zero); err != nil {
			return fmt.Errorf("credit verification: %w", err)
		}

		if !saveCard {
			_, err = r.Events.Create(ctx, models.Event{
				UserID:        userID,
				Type:          models.EventDeposit,
				Title:         "Card not saved",
				Description:   fmt.Sprintf("₦%s verification charge credited to your wallet", txn.Amount.StringFixed(2)),
				TransactionID: ptr(txn.ID),
			})
			return err
		}

		card, err = r.Cards.Save(ctx, models.Card{
			UserID:            userID,
			AuthorizationCode: auth.AuthorizationCode,
			Signature:         auth.Signature,
			Last4:             auth.Last4,
			Bin:               auth.Bin,
			CardType:          auth.CardType,
			Bank:              auth.Bank,
			ExpMonth:          auth.ExpMonth,
			ExpYear:           auth.ExpYear,
			Reusable:          auth.Reusable,
			Email:             data.Customer.Email,
		})
		if err != nil {
			return fmt.Errorf("save card: %w", err)
		}
		_, err = r.Events.Create(ctx, models.Event{
			UserID:        userID,
			Type:          models.EventCardAdded,
			Title:         "Card added",
			Description:   fmt.Sprintf("%s card ending in %s", auth.CardType, auth.Last4),
			TransactionID: ptr(txn.ID),
		})
		return err
	})
	if err != nil {
		return models.Card{}, err
	}
	s.notifier.WalletChanged(userID, "card_verification", wallet)

	if !saveCard {
		s.log.Info("verification credited, card not reusable", zap.String("user_id", userID), zap.String("reference", reference))
		return models.Card{}, fmt.Errorf("%w: card cannot be charged again", ErrCardDeclined)
	}
	s.log.Info("card saved", zap.String("user_id", userID), zap.String("card_id", card.ID), zap.String("last4", card.Last4))
	return card, nil
}

// fail marks a verification failed; a verification that already moved on is left alone.
func (s *CardService) fail(ctx context.Context, reference string) {
	_, err := s.store.Repos().Transactions.Transition(ctx, reference, models.TxnPending, models.TxnFailed)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		s.log.Warn("mark card verification failed", zap.String("reference", reference), zap.Error(err))
	}
}

func (s *CardService) List(ctx context.Context, userID string) ([]models.Card, error) {
	return s.store.Repos().Cards.ListByUser(ctx, userID)
}

func (s *CardService) Delete(ctx context.Context, userID, id string) error {
	return notFound(s.store.Repos().Cards.Delete(ctx, userID, id), "card")
}

// chargeError separates requests the processor refused from transport trouble.
func chargeError(err error) error {
	if errors.Is(err, paystack.ErrRequest) {
		return fmt.Errorf("%w: %v", ErrCardDeclined, err)
	}
	return fmt.Errorf("%w: %v", ErrUpstream, err)
}
