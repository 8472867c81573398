package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/planmoni/planmoni-backend/internal/models"
	repo "github.com/planmoni/planmoni-backend/internal/repository"
)

type cardsRepo struct{ db dbtx }

const cardCols = `id, user_id, authorization_code, signature, last4, bin, card_type, bank, exp_month, exp_year,
       reusable, email, created_at`

func (r *cardsRepo) Save(ctx context.Context, c models.Card) (models.Card, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return scanCard(r.db.QueryRow(ctx,
		`INSERT INTO cards(id, user_id, authorization_code, signature, last4, bin, card_type, bank,
		                   exp_month, exp_year, reusable, email)
		 VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		 ON CONFLICT (user_id, signature) DO UPDATE
		 SET authorization_code = EXCLUDED.authorization_code,
		     exp_month = EXCLUDED.exp_month,
		     exp_year = EXCLUDED.exp_year,
		     reusable = EXCLUDED.reusable,
		     email = EXCLUDED.email
		 RETURNING `+cardCols,
		c.ID, c.UserID, c.AuthorizationCode, c.Signature, c.Last4, c.Bin, c.CardType, c.Bank,
		c.ExpMonth, c.ExpYear, c.Reusable, c.Email,
	))
}

func (r *cardsRepo) ListByUser(ctx context.Context, userID string) ([]models.Card, error) {
	rows, err := r.db.Query(ctx, `SELECT `+cardCols+` FROM cards WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := []models.Card{}
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, mapErr(rows.Err())
}

func (r *cardsRepo) Delete(ctx context.Context, userID, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM cards WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func scanCard(row interface{ Scan(...any) error }) (models.Card, error) {
	var c models.Card
	err := row.Scan(&c.ID, &c.UserID, &c.AuthorizationCode, &c.Signature, &c.Last4, &c.Bin, &c.CardType,
		&c.Bank, &c.ExpMonth, &c.ExpYear, &c.Reusable, &c.Email, &c.CreatedAt)
	return c, mapErr(err)
}
