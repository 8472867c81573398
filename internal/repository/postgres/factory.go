package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/planmoni/planmoni-backend/internal/models"
	repo "github.com/planmoni/planmoni-backend/internal/repository"
)

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const maxSerializationRetries = 3

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store { return &Store{pool: pool} }

func (s *Store) Repos() repo.Repos { return reposFor(s.pool) }

func reposFor(db dbtx) repo.Repos {
	return repo.Repos{
		Wallets:         &walletsRepo{db},
		Transactions:    &transactionsRepo{db},
		PayoutPlans:     &payoutPlansRepo{db},
		Events:          &eventsRepo{db},
		Cards:           &cardsRepo{db},
		VirtualAccounts: &virtualAccountsRepo{db},
		Procedures:      &proceduresRepo{db},
	}
}

// WithTx runs fn in a serializable transaction, retrying on serialization failures.
func (s *Store) WithTx(ctx context.Context, fn func(r repo.Repos) error) error {
	var err error
	for attempt := 0; attempt < maxSerializationRetries; attempt++ {
		err = s.runTx(ctx, fn)
		if !isSerializationFailure(err) {
			return err
		}
	}
	return err
}

func (s *Store) runTx(ctx context.Context, fn func(r repo.Repos) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(reposFor(tx)); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return mapErr(tx.Commit(ctx))
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "40001"
}

// mapErr translates driver errors into repository and model errors.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repo.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", repo.ErrConflict, pgErr.ConstraintName)
		case "23514":
			if pgErr.TableName == "wallets" {
				return models.ErrWalletInvariant
			}
		case "42883":
			return repo.ErrProcedureUnavailable
		case "P0002":
			return repo.ErrNotFound
		}
	}
	return err
}
