package persistence

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// PostgresTokenStore keeps tokens in the session_tokens table.
type PostgresTokenStore struct {
	pg *Postgres
}

// NewPostgresTokenStore wraps an open Postgres pool.
func NewPostgresTokenStore(pg *Postgres) *PostgresTokenStore {
	return &PostgresTokenStore{pg: pg}
}

func (s *PostgresTokenStore) Load(ctx context.Context, key string) (string, error) {
	pool := s.pg.PoolHandle()
	if pool == nil {
		return "", errPostgresUnavailable
	}
	var token string
	err := pool.QueryRow(ctx, `SELECT token FROM session_tokens WHERE token_key = $1`, key).Scan(&token)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return token, err
}

func (s *PostgresTokenStore) Save(ctx context.Context, key, token string) error {
	pool := s.pg.PoolHandle()
	if pool == nil {
		return errPostgresUnavailable
	}
	_, err := pool.Exec(ctx, `
		INSERT INTO session_tokens (token_key, token, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (token_key) DO UPDATE SET token = EXCLUDED.token, updated_at = NOW()`,
		key, token)
	return err
}

func (s *PostgresTokenStore) Delete(ctx context.Context, key string) error {
	pool := s.pg.PoolHandle()
	if pool == nil {
		return errPostgresUnavailable
	}
	_, err := pool.Exec(ctx, `DELETE FROM session_tokens WHERE token_key = $1`, key)
	return err
}

func (s *PostgresTokenStore) Ping(ctx context.Context) error {
	pool := s.pg.PoolHandle()
	if pool == nil {
		return errPostgresUnavailable
	}
	return pool.Ping(ctx)
}

var errPostgresUnavailable = errors.New("postgres pool not configured")
