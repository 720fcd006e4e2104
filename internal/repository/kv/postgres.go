package kv

import (
	"context"
	"errors"

	"storefront-engine/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// querier is the subset of *pgxpool.Pool the store needs.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

type postgresStore struct {
	pool querier
}

func NewPostgres(pool querier) Store {
	return &postgresStore{pool: pool}
}

func (s *postgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	const q = `
SELECT value
FROM kv_store
WHERE key = $1
`
	var value []byte
	if err := s.pool.QueryRow(ctx, q, key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return value, nil
}

func (s *postgresStore) Put(ctx context.Context, key string, value []byte) error {
	const q = `
INSERT INTO kv_store (key, value, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE
SET value = EXCLUDED.value,
    updated_at = now()
`
	_, err := s.pool.Exec(ctx, q, key, value)
	return err
}

func (s *postgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
