package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/vami-console/internal/store"
	"github.com/ashureev/vami-console/internal/vamiapi"
)

const touchInterval = time.Hour

// Broadcaster delivers a navigation to every open tab of a device.
type Broadcaster interface {
	Navigate(deviceID, to string, state any) int
}

type deviceSession struct {
	store     *Store
	tokens    *DeviceTokens
	lastTouch time.Time
}

// Manager owns one Store per browser device.
type Manager struct {
	repo   store.Repository
	api    *vamiapi.Client
	events Broadcaster
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*deviceSession
}

// NewManager creates a manager persisting tokens in repo. events may be nil.
func NewManager(repo store.Repository, api *vamiapi.Client, events Broadcaster, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		repo:     repo,
		api:      api,
		events:   events,
		logger:   logger,
		sessions: make(map[string]*deviceSession),
	}
}

// Get returns the device's session, creating it on first use. The caller is
// expected to run Init.
func (m *Manager) Get(ctx context.Context, deviceID string) *Store {
	m.mu.Lock()
	ds, ok := m.sessions[deviceID]
	if !ok {
		ds = m.newDeviceSession(deviceID)
		m.sessions[deviceID] = ds
	}
	touch := ds.store.Authenticated() && time.Since(ds.lastTouch) > touchInterval
	if touch {
		ds.lastTouch = time.Now()
	}
	m.mu.Unlock()

	if touch {
		if err := ds.tokens.Touch(ctx); err != nil {
			m.logger.Debug("Failed to touch device token", "device_id", deviceID, "error", err)
		}
	}
	return ds.store
}

func (m *Manager) newDeviceSession(deviceID string) *deviceSession {
	tokens := NewDeviceTokens(m.repo, deviceID)
	logger := m.logger.With("device_id", deviceID)
	opts := []Option{WithLogger(logger)}
	if m.events != nil {
		opts = append(opts, WithNavigator(NavigatorFunc(func(_ context.Context, to string, state any) {
			m.events.Navigate(deviceID, to, state)
		})))
	}
	return &deviceSession{
		store:     New(tokens, m.api, opts...),
		tokens:    tokens,
		lastTouch: time.Now(),
	}
}

// Forget drops the in-memory session of a device. The next Get starts a
// fresh session from whatever token is still stored.
func (m *Manager) Forget(deviceID string) {
	m.mu.Lock()
	delete(m.sessions, deviceID)
	m.mu.Unlock()
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
