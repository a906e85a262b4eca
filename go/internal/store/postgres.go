package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/pomodoro/go/internal/models"
	"github.com/rs/zerolog/log"
)

// sessionRowID is the key of the single row holding the shared session.
const sessionRowID = 1

// PostgresStore keeps the session config as a JSONB row.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgresStore connects to Postgres and makes sure the session table exists.
func OpenPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	log.Info().Msg("postgres session store ready")
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS pomodoro_session (
			id         SMALLINT PRIMARY KEY,
			config     JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create pomodoro_session table: %w", err)
	}
	return nil
}

// Load reads the session row. No row yields ErrNotFound.
func (s *PostgresStore) Load(ctx context.Context) (models.SessionConfig, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT config FROM pomodoro_session WHERE id = $1`, sessionRowID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.SessionConfig{}, ErrNotFound
		}
		return models.SessionConfig{}, fmt.Errorf("failed to query session config: %w", err)
	}

	var cfg models.SessionConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return models.SessionConfig{}, fmt.Errorf("failed to decode session config: %w", err)
	}
	return cfg, nil
}

// Save upserts the session row.
func (s *PostgresStore) Save(ctx context.Context, cfg models.SessionConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode session config: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO pomodoro_session (id, config, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE SET config = EXCLUDED.config, updated_at = now()
	`, sessionRowID, raw)
	if err != nil {
		return fmt.Errorf("failed to save session config: %w", err)
	}
	return nil
}

// Location returns the database host and name without credentials.
func (s *PostgresStore) Location() string {
	cfg := s.pool.Config().ConnConfig
	return fmt.Sprintf("postgres://%s:%d/%s (table pomodoro_session)", cfg.Host, cfg.Port, cfg.Database)
}

// Exists reports whether the session row has been written.
func (s *PostgresStore) Exists(ctx context.Context) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pomodoro_session WHERE id = $1)`, sessionRowID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check session config: %w", err)
	}
	return exists, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks that the database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
