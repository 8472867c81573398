package postgres

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/planmoni/planmoni-backend/internal/models"
)

type walletsRepo struct{ db dbtx }

const walletCols = `user_id, balance, locked_balance, updated_at`

func (r *walletsRepo) ensure(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO wallets(user_id, balance, locked_balance, updated_at)
		 VALUES($1, 0, 0, now())
		 ON CONFLICT (user_id) DO NOTHING`,
		userID,
	)
	return mapErr(err)
}

func (r *walletsRepo) GetOrCreate(ctx context.Context, userID string) (models.Wallet, error) {
	if err := r.ensure(ctx, userID); err != nil {
		return models.Wallet{}, err
	}
	return r.scan(r.db.QueryRow(ctx, `SELECT `+walletCols+` FROM wallets WHERE user_id=$1`, userID))
}

func (r *walletsRepo) GetForUpdate(ctx context.Context, userID string) (models.Wallet, error) {
	if err := r.ensure(ctx, userID); err != nil {
		return models.Wallet{}, err
	}
	return r.scan(r.db.QueryRow(ctx, `SELECT `+walletCols+` FROM wallets WHERE user_id=$1 FOR UPDATE`, userID))
}

func (r *walletsRepo) Adjust(ctx context.Context, userID string, balanceDelta, lockedDelta decimal.Decimal) (models.Wallet, error) {
	return r.scan(r.db.QueryRow(ctx,
		`UPDATE wallets
		    SET balance = balance + $2,
		        locked_balance = locked_balance + $3,
		        updated_at = now()
		  WHERE user_id = $1
		  RETURNING `+walletCols,
		userID, balanceDelta, lockedDelta,
	))
}

func (r *walletsRepo) scan(row interface{ Scan(...any) error }) (models.Wallet, error) {
	var w models.Wallet
	err := row.Scan(&w.UserID, &w.Balance, &w.LockedBalance, &w.UpdatedAt)
	return w, mapErr(err)
}
