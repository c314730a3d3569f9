// Package store persists the bearer token held for each browser device.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNoToken is returned by GetToken when the device has no stored token.
var ErrNoToken = errors.New("no token stored for device")

// Repository defines the interface for persisting device tokens.
type Repository interface {
	// GetToken returns the token stored for a device, or ErrNoToken.
	GetToken(ctx context.Context, deviceID string) (string, error)

	// SaveToken stores or replaces the token for a device.
	SaveToken(ctx context.Context, deviceID, token string) error

	// DeleteToken removes the token for a device. Deleting a missing token is not an error.
	DeleteToken(ctx context.Context, deviceID string) error

	// TouchToken records that a device's token was used at the given time.
	TouchToken(ctx context.Context, deviceID string, at time.Time) error

	// DeleteStaleTokens removes tokens unused for longer than ttl and returns
	// the affected device IDs.
	DeleteStaleTokens(ctx context.Context, ttl time.Duration) ([]string, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}

var (
	_ Repository = (*SQLiteStore)(nil)
	_ Repository = (*PostgresStore)(nil)
)

// Open returns the repository for driver ("sqlite" or "postgres").
func Open(driver, sqlitePath, postgresDSN string) (Repository, error) {
	switch driver {
	case "", "sqlite":
		s, err := NewSQLite(sqlitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		s, err := NewPostgres(postgresDSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, errors.New("unknown database driver: " + driver)
	}
}
