package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ashureev/vami-console/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL keeps the sweeper from blocking request-path reads.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS device_tokens (
		device_id TEXT PRIMARY KEY,
		token TEXT NOT NULL,
		last_used_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_device_tokens_last_used ON device_tokens(last_used_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetToken returns the token stored for a device.
func (s *SQLiteStore) GetToken(ctx context.Context, deviceID string) (string, error) {
	var token string
	err := s.db.QueryRowContext(ctx, `SELECT token FROM device_tokens WHERE device_id = ?`, deviceID).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("scan device token: %w", err)
	}
	return token, nil
}

// SaveToken stores or replaces the token for a device.
func (s *SQLiteStore) SaveToken(ctx context.Context, deviceID, token string) error {
	query := `
	INSERT INTO device_tokens (device_id, token, last_used_at, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(device_id) DO UPDATE SET
		token = excluded.token,
		last_used_at = excluded.last_used_at,
		updated_at = excluded.updated_at`

	now := time.Now().Unix()
	err := withBusyRetry(ctx, "SaveToken", deviceID, func() error {
		_, err := s.db.ExecContext(ctx, query, deviceID, token, now, now, now)
		return err
	})
	if err != nil {
		return fmt.Errorf("upsert device token: %w", err)
	}
	return nil
}

// DeleteToken removes the token for a device.
func (s *SQLiteStore) DeleteToken(ctx context.Context, deviceID string) error {
	err := withBusyRetry(ctx, "DeleteToken", deviceID, func() error {
		_, err := s.db.ExecContext(ctx, `DELETE FROM device_tokens WHERE device_id = ?`, deviceID)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete device token: %w", err)
	}
	return nil
}

// TouchToken updates last_used_at for a device.
func (s *SQLiteStore) TouchToken(ctx context.Context, deviceID string, at time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE device_tokens SET last_used_at = ?, updated_at = ? WHERE device_id = ?`,
		at.Unix(), time.Now().Unix(), deviceID)
	if err != nil {
		return fmt.Errorf("update last_used_at: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		slog.Debug("TouchToken affected 0 rows", "device_id", deviceID)
	}
	return nil
}

// DeleteStaleTokens removes tokens unused for longer than ttl.
func (s *SQLiteStore) DeleteStaleTokens(ctx context.Context, ttl time.Duration) ([]string, error) {
	threshold := time.Now().Add(-ttl).Unix()

	rows, err := s.db.QueryContext(ctx,
		`DELETE FROM device_tokens WHERE last_used_at < ? RETURNING device_id`, threshold)
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
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

func scanDeviceIDs(rows *sql.Rows) ([]string, error) {
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan device id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate device ids: %w", err)
	}
	return ids, nil
}

// withBusyRetry retries fn with exponential backoff while SQLite reports a
// locked database.
func withBusyRetry(ctx context.Context, op, deviceID string, fn func() error) error {
	const maxRetries = 3
	baseDelay := 50 * time.Millisecond

	var err error
	for i := 0; i < maxRetries; i++ {
		err = fn()
		if err == nil || !shared.IsSQLiteConflictError(err) {
			return err
		}
		if i == maxRetries-1 {
			break
		}
		delay := baseDelay * time.Duration(1<<i) // 50ms, 100ms
		slog.Debug("Database locked, retrying", "op", op, "device_id", deviceID, "attempt", i+1, "delay", delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("%s for %s after %d attempts: %w", op, deviceID, maxRetries, err)
}
