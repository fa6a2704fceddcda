package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"token-launchpad/internal/storage"
)

// applicationName tags launchpad sessions in pg_stat_activity.
const applicationName = "token-launchpad"

// Pool is the connection pool shared by the event log and the migrations.
type Pool struct {
	*pgxpool.Pool
}

// NewPool connects to dsn and checks the server answers before returning.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if _, ok := config.ConnConfig.RuntimeParams["application_name"]; !ok {
		config.ConnConfig.RuntimeParams["application_name"] = applicationName
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("open event log pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping event log database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// Close releases every connection.
func (p *Pool) Close() {
	p.Pool.Close()
}

const pgErrUniqueViolation = "23505"

// storeError maps driver errors onto the storage sentinels and wraps the rest with op.
func storeError(op string, err error) error {
	var pgErr *pgconn.PgError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return storage.ErrNotFound
	case errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation:
		return storage.ErrDuplicateKey
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
