package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/planmoni/planmoni-backend/internal/models"
	repo "github.com/planmoni/planmoni-backend/internal/repository"
)

type CreatePlanRequest struct {
	Name                       string
	TotalAmount                decimal.Decimal
	PayoutAmount               decimal.Decimal
	Frequency                  string
	EmergencyWithdrawalEnabled bool
}

var planFrequencies = map[string]bool{
	"weekly":    true,
	"biweekly":  true,
	"monthly":   true,
	"custom":    true,
	"daily":     true,
	"quarterly": true,
}

// PlanService creates payout plans and moves them between active and paused.
type PlanService struct {
	store    repo.Store
	notifier Notifier
	log      *zap.Logger
}

func NewPlanService(store repo.Store, notifier Notifier, log *zap.Logger) *PlanService {
	return &PlanService{store: store, notifier: notifier, log: log}
}

// Create locks TotalAmount of the user's available balance into a new plan.
func (s *PlanService) Create(ctx context.Context, userID string, req CreatePlanRequest) (models.PayoutPlan, error) {
	switch {
	case !req.TotalAmount.IsPositive():
		return models.PayoutPlan{}, invalid("totalAmount must be greater than zero")
	case !req.PayoutAmount.IsPositive():
		return models.PayoutPlan{}, invalid("payoutAmount must be greater than zero")
	case !wholeKobo(req.TotalAmount, req.PayoutAmount):
		return models.PayoutPlan{}, invalid("amounts must have at most 2 decimal places")
	case req.PayoutAmount.GreaterThan(req.TotalAmount):
		return models.PayoutPlan{}, invalid("payoutAmount must not exceed totalAmount")
	case !planFrequencies[req.Frequency]:
		return models.PayoutPlan{}, invalid("unsupported frequency %q", req.Frequency)
	}

	var (
		plan   models.PayoutPlan
		wallet models.Wallet
	)
	err := s.store.WithTx(ctx, func(r repo.Repos) error {
		w, err := r.Wallets.GetForUpdate(ctx, userID)
		if err != nil {
			return fmt.Errorf("lock wallet: %w", err)
		}
		if w.Available().LessThan(req.TotalAmount) {
			return ErrInsufficientFunds
		}
		wallet, err = r.Wallets.Adjust(ctx, userID, decimal.Zero, req.TotalAmount)
		if errors.Is(err, models.ErrWalletInvariant) {
			return ErrInsufficientFunds
		}
		if err != nil {
			return fmt.Errorf("lock plan funds: %w", err)
		}

		plan, err = r.PayoutPlans.Create(ctx, models.PayoutPlan{
			UserID:                     userID,
			Name:                       req.Name,
			TotalAmount:                req.TotalAmount,
			PayoutAmount:               req.PayoutAmount,
			Duration:                   models.PayoutCount(req.TotalAmount, req.PayoutAmount),
			Frequency:                  req.Frequency,
			Status:                     models.PlanActive,
			EmergencyWithdrawalEnabled: req.EmergencyWithdrawalEnabled,
		})
		if err != nil {
			return fmt.Errorf("create plan: %w", err)
		}
		_, err = r.Events.Create(ctx, models.Event{
			UserID:       userID,
			Type:         models.EventPlanCreated,
			Title:        "Payout plan created",
			Description:  fmt.Sprintf("₦%s locked into %s", req.TotalAmount.StringFixed(2), planLabel(plan)),
			PayoutPlanID: ptr(plan.ID),
		})
		return err
	})
	if err != nil {
		return models.PayoutPlan{}, err
	}
	s.notifier.WalletChanged(userID, "plan_created", wallet)
	s.log.Info("payout plan created",
		zap.String("user_id", userID),
		zap.String("plan_id", plan.ID),
		zap.String("total", req.TotalAmount.String()))
	return plan, nil
}

func (s *PlanService) List(ctx context.Context, userID string) ([]models.PayoutPlan, error) {
	return s.store.Repos().PayoutPlans.ListByUser(ctx, userID)
}

func (s *PlanService) Get(ctx context.Context, userID, id string) (models.PayoutPlan, error) {
	p, err := s.store.Repos().PayoutPlans.Get(ctx, id)
	if err != nil {
		return models.PayoutPlan{}, notFound(err, "payout plan")
	}
	if p.UserID != userID {
		return models.PayoutPlan{}, fmt.Errorf("%w: payout plan", ErrNotFound)
	}
	return p, nil
}

func (s *PlanService) Pause(ctx context.Context, userID, id string) (models.PayoutPlan, error) {
	return s.transition(ctx, userID, id, models.PlanActive, models.PlanPaused, models.EventPlanPaused, "Payout plan paused")
}

func (s *PlanService) Resume(ctx context.Context, userID, id string) (models.PayoutPlan, error) {
	return s.transition(ctx, userID, id, models.PlanPaused, models.PlanActive, models.EventPlanResumed, "Payout plan resumed")
}

func (s *PlanService) transition(ctx context.Context, userID, id string, from, to models.PlanStatus, ev models.EventType, title string) (models.PayoutPlan, error) {
	var out models.PayoutPlan
	err := s.store.WithTx(ctx, func(r repo.Repos) error {
		p, err := r.PayoutPlans.GetForUpdate(ctx, id)
		if err != nil {
			return notFound(err, "payout plan")
		}
		if p.UserID != userID {
			return fmt.Errorf("%w: payout plan", ErrNotFound)
		}
		if p.Status != from {
			return fmt.Errorf("%w: plan is %s", ErrInvalidPlanState, p.Status)
		}
		p.Status = to
		if out, err = r.PayoutPlans.Update(ctx, p); err != nil {
			return fmt.Errorf("update plan: %w", err)
		}
		_, err = r.Events.Create(ctx, models.Event{
			UserID:       userID,
			Type:         ev,
			Title:        title,
			Description:  planLabel(p),
			PayoutPlanID: ptr(p.ID),
		})
		return err
	})
	return out, err
}
