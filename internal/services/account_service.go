package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/planmoni/planmoni-backend/internal/models"
	"github.com/planmoni/planmoni-backend/internal/paystack"
	repo "github.com/planmoni/planmoni-backend/internal/repository"
)

type VirtualAccountRequest struct {
	Email         string
	FirstName     string
	LastName      string
	Phone         string
	PreferredBank string
}

// AccountService provisions dedicated bank accounts for transfer deposits.
type AccountService struct {
	store     repo.Store
	processor Processor
	log       *zap.Logger
}

func NewAccountService(store repo.Store, processor Processor, log *zap.Logger) *AccountService {
	return &AccountService{store: store, processor: processor, log: log}
}

func (s *AccountService) Get(ctx context.Context, userID string) (models.VirtualAccount, error) {
	a, err := s.store.Repos().VirtualAccounts.GetByUser(ctx, userID)
	return a, notFound(err, "virtual account")
}

// Create returns the existing account if there is one. Otherwise it creates a
// processor customer and requests a dedicated account, which stays pending
// until the bank assigns it.
func (s *AccountService) Create(ctx context.Context, userID string, req VirtualAccountRequest) (models.VirtualAccount, error) {
	if req.Email == "" {
		return models.VirtualAccount{}, invalid("email is required")
	}
	r := s.store.Repos()
	existing, err := r.VirtualAccounts.GetByUser(ctx, userID)
	switch {
	case err == nil && existing.Status == models.AccountAssigned:
		return existing, nil
	case err != nil && !errors.Is(err, repo.ErrNotFound):
		return models.VirtualAccount{}, err
	}

	customerCode := existing.CustomerCode
	if customerCode == "" {
		cust, err := s.processor.CreateCustomer(ctx, paystack.CustomerRequest{
			Email:     req.Email,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Phone:     req.Phone,
			Metadata:  map[string]any{"user_id": userID},
		})
		if err != nil {
			return models.VirtualAccount{}, fmt.Errorf("%w: create customer: %v", ErrUpstream, err)
		}
		customerCode = cust.CustomerCode
		// Persist the customer first so an assignment webhook can find the user.
		if existing, err = r.VirtualAccounts.Upsert(ctx, models.VirtualAccount{
			UserID:       userID,
			CustomerCode: customerCode,
			Status:       models.AccountPending,
		}); err != nil {
			return models.VirtualAccount{}, fmt.Errorf("save customer: %w", err)
		}
	}

	da, err := s.processor.CreateDedicatedAccount(ctx, customerCode, req.PreferredBank)
	if err != nil {
		s.log.Warn("dedicated account request failed", zap.String("user_id", userID), zap.Error(err))
		return models.VirtualAccount{}, fmt.Errorf("%w: create dedicated account: %v", ErrUpstream, err)
	}

	acct := models.VirtualAccount{
		UserID:        userID,
		CustomerCode:  customerCode,
		AccountNumber: da.AccountNumber,
		AccountName:   da.AccountName,
		BankName:      da.Bank.Name,
		Status:        models.AccountPending,
	}
	if da.Assigned && da.AccountNumber != "" {
		acct.Status = models.AccountAssigned
	}
	out, err := r.VirtualAccounts.Upsert(ctx, acct)
	if err != nil {
		return models.VirtualAccount{}, fmt.Errorf("save virtual account: %w", err)
	}
	s.log.Info("virtual account requested",
		zap.String("user_id", userID),
		zap.String("customer_code", customerCode),
		zap.String("status", string(out.Status)))
	return out, nil
}
