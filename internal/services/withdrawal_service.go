package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/planmoni/planmoni-backend/internal/metrics"
	"github.com/planmoni/planmoni-backend/internal/models"
	repo "github.com/planmoni/planmoni-backend/internal/repository"
)

type EmergencyWithdrawalRequest struct {
	PlanID    string
	Option    string
	Amount    decimal.Decimal
	FeeAmount decimal.Decimal
	NetAmount decimal.Decimal
}

type EmergencyWithdrawalResult struct {
	Transaction models.Transaction `json:"transaction"`
	Plan        models.PayoutPlan  `json:"plan"`
	Wallet      models.WalletView  `json:"wallet"`
}

// WithdrawalService releases funds locked in a payout plan back to the wallet.
type WithdrawalService struct {
	store         repo.Store
	notifier      Notifier
	log           *zap.Logger
	useProcedures bool
}

func NewWithdrawalService(store repo.Store, notifier Notifier, log *zap.Logger, useProcedures bool) *WithdrawalService {
	return &WithdrawalService{store: store, notifier: notifier, log: log, useProcedures: useProcedures}
}

func (req EmergencyWithdrawalRequest) validate() error {
	switch {
	case !req.Amount.IsPositive():
		return invalid("amount must be greater than zero")
	case !wholeKobo(req.Amount, req.FeeAmount, req.NetAmount):
		return invalid("amounts must have at most 2 decimal places")
	case req.NetAmount.IsNegative():
		return invalid("netAmount must not be negative")
	case req.NetAmount.GreaterThan(req.Amount):
		return invalid("netAmount must not exceed amount")
	case !req.FeeAmount.Equal(req.Amount.Sub(req.NetAmount)):
		return invalid("feeAmount must equal amount - netAmount")
	}
	return nil
}

// checkWithdrawable applies every precondition that does not need a lock.
func checkWithdrawable(plan models.PayoutPlan, userID string, amount decimal.Decimal) (models.PayoutPlan, error) {
	if plan.UserID != userID {
		return plan, fmt.Errorf("%w: payout plan", ErrNotFound)
	}
	if !plan.Withdrawable() {
		return plan, fmt.Errorf("%w: plan is %s", ErrInvalidPlanState, plan.Status)
	}
	if !plan.EmergencyWithdrawalEnabled {
		return plan, ErrPlanNotWithdrawable
	}
	next, err := plan.AfterWithdrawal(amount)
	if err != nil {
		return plan, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return next, nil
}

// EmergencyWithdraw validates the request against the plan before anything is
// mutated, then applies it atomically: through the database procedure when
// enabled and present, otherwise in a single transaction here.
func (s *WithdrawalService) EmergencyWithdraw(ctx context.Context, userID string, req EmergencyWithdrawalRequest) (EmergencyWithdrawalResult, error) {
	log := s.log.With(zap.String("user_id", userID), zap.String("plan_id", req.PlanID))

	if err := req.validate(); err != nil {
		return EmergencyWithdrawalResult{}, err
	}
	plan, err := s.store.Repos().PayoutPlans.Get(ctx, req.PlanID)
	if err != nil {
		return EmergencyWithdrawalResult{}, notFound(err, "payout plan")
	}
	if _, err := checkWithdrawable(plan, userID, req.Amount); err != nil {
		log.Info("emergency withdrawal rejected", zap.Error(err))
		return EmergencyWithdrawalResult{}, err
	}

	reference := newReference(refEmergencyWithdrawal)

	if s.useProcedures {
		res, err := s.viaProcedure(ctx, userID, reference, req)
		if err == nil {
			metrics.EmergencyWithdrawalsTotal.WithLabelValues("procedure", "ok").Inc()
			s.notifier.WalletChanged(userID, "emergency_withdrawal", walletFromView(userID, res.Wallet))
			return res, nil
		}
		if !errors.Is(err, repo.ErrProcedureUnavailable) {
			metrics.EmergencyWithdrawalsTotal.WithLabelValues("procedure", "error").Inc()
			log.Error("emergency withdrawal procedure failed", zap.Error(err))
			return EmergencyWithdrawalResult{}, err
		}
		log.Warn("process_emergency_withdrawal unavailable, applying in-process")
	}

	res, err := s.inTransaction(ctx, userID, reference, req)
	if err != nil {
		metrics.EmergencyWithdrawalsTotal.WithLabelValues("transaction", "error").Inc()
		log.Error("emergency withdrawal failed", zap.Error(err))
		return EmergencyWithdrawalResult{}, err
	}
	metrics.EmergencyWithdrawalsTotal.WithLabelValues("transaction", "ok").Inc()
	s.notifier.WalletChanged(userID, "emergency_withdrawal", walletFromView(userID, res.Wallet))
	log.Info("emergency withdrawal applied",
		zap.String("reference", reference),
		zap.String("amount", req.Amount.String()),
		zap.String("plan_status", string(res.Plan.Status)))
	return res, nil
}

func (s *WithdrawalService) viaProcedure(ctx context.Context, userID, reference string, req EmergencyWithdrawalRequest) (EmergencyWithdrawalResult, error) {
	r := s.store.Repos()
	err := r.Procedures.ProcessEmergencyWithdrawal(ctx, repo.EmergencyWithdrawalCall{
		UserID:    userID,
		PlanID:    req.PlanID,
		Option:    req.Option,
		Amount:    req.Amount,
		Fee:       req.FeeAmount,
		NetAmount: req.NetAmount,
		Reference: reference,
	})
	switch {
	case errors.Is(err, models.ErrWalletInvariant):
		return EmergencyWithdrawalResult{}, fmt.Errorf("%w: locked balance below withdrawal amount", ErrInsufficientFunds)
	case errors.Is(err, repo.ErrNotFound):
		return EmergencyWithdrawalResult{}, notFound(err, "payout plan")
	case err != nil:
		return EmergencyWithdrawalResult{}, err
	}
	txn, err := r.Transactions.GetByReference(ctx, reference)
	if err != nil {
		return EmergencyWithdrawalResult{}, fmt.Errorf("load withdrawal: %w", err)
	}
	plan, err := r.PayoutPlans.Get(ctx, req.PlanID)
	if err != nil {
		return EmergencyWithdrawalResult{}, fmt.Errorf("load plan: %w", err)
	}
	w, err := r.Wallets.GetOrCreate(ctx, userID)
	if err != nil {
		return EmergencyWithdrawalResult{}, fmt.Errorf("load wallet: %w", err)
	}
	return EmergencyWithdrawalResult{Transaction: txn, Plan: plan, Wallet: w.View()}, nil
}

func (s *WithdrawalService) inTransaction(ctx context.Context, userID, reference string, req EmergencyWithdrawalRequest) (EmergencyWithdrawalResult, error) {
	var res EmergencyWithdrawalResult
	err := s.store.WithTx(ctx, func(r repo.Repos) error {
		plan, err := r.PayoutPlans.GetForUpdate(ctx, req.PlanID)
		if err != nil {
			return notFound(err, "payout plan")
		}
		next, err := checkWithdrawable(plan, userID, req.Amount)
		if err != nil {
			return err
		}

		if _, err := r.Wallets.GetForUpdate(ctx, userID); err != nil {
			return fmt.Errorf("lock wallet: %w", err)
		}
		// Locked funds are released; only the fee leaves the wallet.
		w, err := r.Wallets.Adjust(ctx, userID, req.FeeAmount.Neg(), req.Amount.Neg())
		if errors.Is(err, models.ErrWalletInvariant) {
			return fmt.Errorf("%w: locked balance below withdrawal amount", ErrInsufficientFunds)
		}
		if err != nil {
			return fmt.Errorf("release locked funds: %w", err)
		}

		txn, _, err := r.Transactions.Insert(ctx, models.Transaction{
			UserID:       userID,
			Type:         models.TxnWithdrawal,
			Amount:       req.Amount,
			Fee:          req.FeeAmount,
			Status:       models.TxnCompleted,
			Reference:    reference,
			PayoutPlanID: ptr(plan.ID),
			Description:  fmt.Sprintf("Emergency withdrawal from %s", planLabel(plan)),
			Metadata:     map[string]any{"option": req.Option, "net_amount": req.NetAmount.String()},
		})
		if err != nil {
			return fmt.Errorf("insert withdrawal: %w", err)
		}

		updated, err := r.PayoutPlans.Update(ctx, next)
		if err != nil {
			return fmt.Errorf("update plan: %w", err)
		}

		if _, err := r.Events.Create(ctx, models.Event{
			UserID:        userID,
			Type:          models.EventEmergencyWithdrawal,
			Title:         "Emergency withdrawal",
			Description:   fmt.Sprintf("₦%s released to your wallet (fee ₦%s)", req.NetAmount.StringFixed(2), req.FeeAmount.StringFixed(2)),
			TransactionID: ptr(txn.ID),
			PayoutPlanID:  ptr(plan.ID),
		}); err != nil {
			return fmt.Errorf("create withdrawal event: %w", err)
		}

		res = EmergencyWithdrawalResult{Transaction: txn, Plan: updated, Wallet: w.View()}
		return nil
	})
	return res, err
}

func planLabel(p models.PayoutPlan) string {
	if p.Name != "" {
		return p.Name
	}
	return "payout plan"
}

func walletFromView(userID string, v models.WalletView) models.Wallet {
	return models.Wallet{UserID: userID, Balance: v.Balance, LockedBalance: v.LockedBalance, UpdatedAt: v.UpdatedAt}
}
