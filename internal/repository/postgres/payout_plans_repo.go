package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/planmoni/planmoni-backend/internal/models"
)

type payoutPlansRepo struct{ db dbtx }

const planCols = `id, user_id, name, total_amount, payout_amount, completed_payouts, duration, frequency,
       status, emergency_withdrawal_enabled, created_at, updated_at`

func (r *payoutPlansRepo) Create(ctx context.Context, p models.PayoutPlan) (models.PayoutPlan, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return scanPlan(r.db.QueryRow(ctx,
		`INSERT INTO payout_plans (
		   id, user_id, name, total_amount, payout_amount, completed_payouts, duration, frequency,
		   status, emergency_withdrawal_enabled
		 ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		 RETURNING `+planCols,
		p.ID, p.UserID, p.Name, p.TotalAmount, p.PayoutAmount, p.CompletedPayouts, p.Duration, p.Frequency,
		p.Status, p.EmergencyWithdrawalEnabled,
	))
}

func (r *payoutPlansRepo) Get(ctx context.Context, id string) (models.PayoutPlan, error) {
	return scanPlan(r.db.QueryRow(ctx, `SELECT `+planCols+` FROM payout_plans WHERE id=$1`, id))
}

func (r *payoutPlansRepo) GetForUpdate(ctx context.Context, id string) (models.PayoutPlan, error) {
	return scanPlan(r.db.QueryRow(ctx, `SELECT `+planCols+` FROM payout_plans WHERE id=$1 FOR UPDATE`, id))
}

func (r *payoutPlansRepo) Update(ctx context.Context, p models.PayoutPlan) (models.PayoutPlan, error) {
	return scanPlan(r.db.QueryRow(ctx,
		`UPDATE payout_plans
		    SET total_amount=$2, completed_payouts=$3, duration=$4, status=$5, updated_at=now()
		  WHERE id=$1
		  RETURNING `+planCols,
		p.ID, p.TotalAmount, p.CompletedPayouts, p.Duration, p.Status,
	))
}

func (r *payoutPlansRepo) ListByUser(ctx context.Context, userID string) ([]models.PayoutPlan, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+planCols+` FROM payout_plans WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := []models.PayoutPlan{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, mapErr(rows.Err())
}

func scanPlan(row interface{ Scan(...any) error }) (models.PayoutPlan, error) {
	var p models.PayoutPlan
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.TotalAmount, &p.PayoutAmount, &p.CompletedPayouts,
		&p.Duration, &p.Frequency, &p.Status, &p.EmergencyWithdrawalEnabled, &p.CreatedAt, &p.UpdatedAt)
	return p, mapErr(err)
}
