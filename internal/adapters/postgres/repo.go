package postgres

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/showseat/boxoffice/internal/domain"
	"github.com/showseat/boxoffice/internal/observability"
)

const (
	serializationFailureCode = "40001"
	uniqueViolationCode      = "23505"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn inside a SERIALIZABLE transaction. Retryable and
// uniqueness errors are mapped to domain sentinels so callers never see
// driver error codes.
func (r *Repository) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	start := time.Now()
	defer func() {
		observability.DBTxDuration.Observe(time.Since(start).Seconds())
	}()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, "SET TRANSACTION ISOLATION LEVEL SERIALIZABLE")
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		return mapPgErr(err)
	}

	return mapPgErr(tx.Commit(ctx))
}

func mapPgErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case serializationFailureCode:
			return domain.ErrSerializationFailure
		case uniqueViolationCode:
			return domain.ErrConflict
		}
	}
	return err
}
