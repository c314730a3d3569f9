package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/vami-console/internal/store"
	"github.com/golang-jwt/jwt/v5"
)

// TokenStore persists a single access token. Load returns "" when none is stored.
type TokenStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// DeviceTokens is the TokenStore for one browser device, backed by the
// device_tokens table.
type DeviceTokens struct {
	repo     store.Repository
	deviceID string
}

// NewDeviceTokens scopes repo to deviceID.
func NewDeviceTokens(repo store.Repository, deviceID string) *DeviceTokens {
	return &DeviceTokens{repo: repo, deviceID: deviceID}
}

// Load implements TokenStore.
func (d *DeviceTokens) Load(ctx context.Context) (string, error) {
	token, err := d.repo.GetToken(ctx, d.deviceID)
	if errors.Is(err, store.ErrNoToken) {
		return "", nil
	}
	return token, err
}

// Save implements TokenStore.
func (d *DeviceTokens) Save(ctx context.Context, token string) error {
	return d.repo.SaveToken(ctx, d.deviceID, token)
}

// Clear implements TokenStore.
func (d *DeviceTokens) Clear(ctx context.Context) error {
	return d.repo.DeleteToken(ctx, d.deviceID)
}

// Touch marks the device token as recently used.
func (d *DeviceTokens) Touch(ctx context.Context) error {
	return d.repo.TouchToken(ctx, d.deviceID, time.Now())
}

// FileTokenStore keeps the token in a single file, for terminal use.
type FileTokenStore struct {
	path string
}

// NewFileTokenStore stores the token at path.
func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

// DefaultTokenPath returns $XDG_CONFIG_HOME/vami/access_token (or the
// platform equivalent).
func DefaultTokenPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "vami", "access_token"), nil
}

// Path returns the file location.
func (f *FileTokenStore) Path() string { return f.path }

// Load implements TokenStore.
func (f *FileTokenStore) Load(context.Context) (string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Save implements TokenStore.
func (f *FileTokenStore) Save(_ context.Context, token string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	if err := os.WriteFile(f.path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}

// Clear implements TokenStore.
func (f *FileTokenStore) Clear(context.Context) error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}

// MemoryTokenStore is an in-process TokenStore.
type MemoryTokenStore struct {
	mu    sync.Mutex
	token string
}

// Load implements TokenStore.
func (m *MemoryTokenStore) Load(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

// Save implements TokenStore.
func (m *MemoryTokenStore) Save(_ context.Context, token string) error {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

// Clear implements TokenStore.
func (m *MemoryTokenStore) Clear(context.Context) error {
	m.mu.Lock()
	m.token = ""
	m.mu.Unlock()
	return nil
}

// tokenExpired reports whether token is a JWT whose exp claim is not after
// now. The signature is not verified; opaque tokens are never expired here.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.After(now)
}
