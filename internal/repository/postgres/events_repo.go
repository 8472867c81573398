package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/planmoni/planmoni-backend/internal/models"
	repo "github.com/planmoni/planmoni-backend/internal/repository"
)

type eventsRepo struct{ db dbtx }

const eventCols = `id, user_id, type, title, description, status, transaction_id, payout_plan_id, created_at`

func (r *eventsRepo) Create(ctx context.Context, e models.Event) (models.Event, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Status == "" {
		e.Status = models.EventUnread
	}
	return scanEvent(r.db.QueryRow(ctx,
		`INSERT INTO events(id, user_id, type, title, description, status, transaction_id, payout_plan_id)
		 VALUES($1,$2,$3,$4,$5,$6,$7,$8)
		 RETURNING `+eventCols,
		e.ID, e.UserID, e.Type, e.Title, e.Description, e.Status, e.TransactionID, e.PayoutPlanID,
	))
}

func (r *eventsRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Event, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+eventCols+` FROM events WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := []models.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, mapErr(rows.Err())
}

func (r *eventsRepo) MarkRead(ctx context.Context, userID, id string) error {
	tag, err := r.db.Exec(ctx, `UPDATE events SET status='read' WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func scanEvent(row interface{ Scan(...any) error }) (models.Event, error) {
	var e models.Event
	err := row.Scan(&e.ID, &e.UserID, &e.Type, &e.Title, &e.Description, &e.Status,
		&e.TransactionID, &e.PayoutPlanID, &e.CreatedAt)
	return e, mapErr(err)
}
