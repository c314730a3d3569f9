package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS device_tokens (
	device_id TEXT PRIMARY KEY,
	token TEXT NOT NULL,
	last_used_at TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_device_tokens_last_used ON device_tokens(last_used_at);
`

// PostgresStore implements Repository using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres opens the database at dsn and applies the schema.
func NewPostgres(dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(postgresSchema); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}
	slog.Debug("Postgres schema applied")

	return &PostgresStore{db: db}, nil
}

// Ping verifies database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetToken returns the token stored for a device.
func (s *PostgresStore) GetToken(ctx context.Context, deviceID string) (string, error) {
	var token string
	err := s.db.QueryRowContext(ctx, `SELECT token FROM device_tokens WHERE device_id = $1`, deviceID).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("scan device token: %w", err)
	}
	return token, nil
}

// SaveToken stores or replaces the token for a device.
func (s *PostgresStore) SaveToken(ctx context.Context, deviceID, token string) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO device_tokens (device_id, token, last_used_at, created_at, updated_at)
		VALUES ($1, $2, $3, $3, $3)
		ON CONFLICT (device_id) DO UPDATE SET
			token = EXCLUDED.token,
			last_used_at = EXCLUDED.last_used_at,
			updated_at = EXCLUDED.updated_at`,
		deviceID, token, now)
	if err != nil {
		return fmt.Errorf("upsert device token: %w", err)
	}
	return nil
}

// DeleteToken removes the token for a device.
func (s *PostgresStore) DeleteToken(ctx context.Context, deviceID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM device_tokens WHERE device_id = $1`, deviceID); err != nil {
		return fmt.Errorf("delete device token: %w", err)
	}
	return nil
}

// TouchToken updates last_used_at for a device.
func (s *PostgresStore) TouchToken(ctx context.Context, deviceID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE device_tokens SET last_used_at = $1, updated_at = $2 WHERE device_id = $3`,
		at, time.Now(), deviceID)
	if err != nil {
		return fmt.Errorf("update last_used_at: %w", err)
	}
	return nil
}

// DeleteStaleTokens removes tokens unused for longer than ttl.
func (s *PostgresStore) DeleteStaleTokens(ctx context.Context, ttl time.Duration) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`DELETE FROM device_tokens WHERE last_used_at < $1 RETURNING device_id`, time.Now().Add(-ttl))
	if err != nil {
		return nil, fmt.Errorf("delete stale tokens: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close stale token rows", "error", closeErr)
		}
	}()
	return scanDeviceIDs(rows)
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
