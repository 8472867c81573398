package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/planmoni/planmoni-backend/internal/models"
)

type transactionsRepo struct{ db dbtx }

const txnCols = `id, user_id, type, amount, fee, status, reference, payout_plan_id, description, COALESCE(metadata, '{}'::jsonb), created_at`

func (r *transactionsRepo) Insert(ctx context.Context, tx models.Transaction) (models.Transaction, bool, error) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	// ON CONFLICT DO NOTHING returns no row for a known reference.
	const q = `
INSERT INTO transactions (
  id, user_id, type, amount, fee, status, reference, payout_plan_id, description, metadata
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (reference) DO NOTHING
RETURNING ` + txnCols
	out, err := scanTxn(r.db.QueryRow(ctx, q,
		tx.ID, tx.UserID, tx.Type, tx.Amount, tx.Fee, tx.Status, tx.Reference, tx.PayoutPlanID, tx.Description, tx.Metadata,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		existing, gerr := r.GetByReference(ctx, tx.Reference)
		return existing, false, gerr
	}
	if err != nil {
		return models.Transaction{}, false, mapErr(err)
	}
	return out, true, nil
}

func (r *transactionsRepo) GetByReference(ctx context.Context, reference string) (models.Transaction, error) {
	tx, err := scanTxn(r.db.QueryRow(ctx, `SELECT `+txnCols+` FROM transactions WHERE reference=$1`, reference))
	return tx, mapErr(err)
}

func (r *transactionsRepo) Transition(ctx context.Context, reference string, from, to models.TransactionStatus) (models.Transaction, error) {
	tx, err := scanTxn(r.db.QueryRow(ctx,
		`UPDATE transactions SET status=$3
		  WHERE reference=$1 AND status=$2
		  RETURNING `+txnCols,
		reference, from, to,
	))
	return tx, mapErr(err)
}

func (r *transactionsRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Transaction, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+txnCols+`
		   FROM transactions
		  WHERE user_id=$1
		  ORDER BY created_at DESC
		  LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := []models.Transaction{}
	for rows.Next() {
		tx, err := scanTxn(rows)
		if err != nil {
			return nil, mapErr(err)
		}
		out = append(out, tx)
	}
	return out, mapErr(rows.Err())
}

func scanTxn(row interface{ Scan(...any) error }) (models.Transaction, error) {
	var tx models.Transaction
	err := row.Scan(&tx.ID, &tx.UserID, &tx.Type, &tx.Amount, &tx.Fee, &tx.Status, &tx.Reference,
		&tx.PayoutPlanID, &tx.Description, &tx.Metadata, &tx.CreatedAt)
	return tx, err
}
