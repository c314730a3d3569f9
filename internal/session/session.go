// Package session holds the authenticated identity of one browser device or
// terminal user, and the token that backs it.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/vami-console/internal/domain"
	"github.com/ashureev/vami-console/internal/vamiapi"
)

// LoginPath is where a session is sent once its credentials are gone.
const LoginPath = "/login"

// State is the observable session: the current user (nil when anonymous) and
// whether the startup check is still running.
type State struct {
	User    *domain.User `json:"user"`
	Loading bool         `json:"loading"`
}

// Navigator receives forced navigations raised by the session.
type Navigator interface {
	Navigate(ctx context.Context, to string, state any)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, to string, state any)

// Navigate implements Navigator.
func (f NavigatorFunc) Navigate(ctx context.Context, to string, state any) { f(ctx, to, state) }

// Store is the session of one device. All methods are safe for concurrent use.
type Store struct {
	tokens TokenStore
	api    *vamiapi.Client
	nav    Navigator
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	token   string
	user    *domain.User
	loading bool

	initOnce sync.Once
	ready    chan struct{}
}

// Option configures a Store.
type Option func(*Store)

// WithNavigator sets where forced navigations go.
func WithNavigator(nav Navigator) Option {
	return func(s *Store) { s.nav = nav }
}

// WithLogger sets the store logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithClock overrides the clock used for token expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a session over tokens. The store derives its own API client
// from base, carrying the session token and routing 401s to HandleUnauthorized.
func New(tokens TokenStore, base *vamiapi.Client, opts ...Option) *Store {
	s := &Store{
		tokens:  tokens,
		logger:  slog.Default(),
		now:     time.Now,
		loading: true,
		ready:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.api = base.With(
		vamiapi.WithTokenSource(s),
		vamiapi.WithUnauthorizedHandler(s.HandleUnauthorized),
	)
	return s
}

// Client returns the API client bound to this session.
func (s *Store) Client() *vamiapi.Client {
	return s.api
}

// Snapshot returns the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{User: s.user, Loading: s.loading}
}

// Authenticated reports whether a user is signed in.
func (s *Store) Authenticated() bool {
	return s.Snapshot().User != nil
}

// SetUser replaces the in-memory user.
func (s *Store) SetUser(user *domain.User) {
	s.mu.Lock()
	s.user = user
	s.mu.Unlock()
}

// Token implements vamiapi.TokenSource.
func (s *Store) Token(context.Context) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// SaveToken persists token and makes it the session token.
func (s *Store) SaveToken(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.tokens.Save(ctx, token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	s.token = token
	return nil
}

// Ready is closed once the startup check has finished.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

// Init runs the startup check once: a stored token is exchanged for the
// user via /auth/me, and erased if the exchange fails. Loading is false
// afterwards whatever the outcome.
func (s *Store) Init(ctx context.Context) {
	s.initOnce.Do(func() {
		defer close(s.ready)
		defer func() {
			s.mu.Lock()
			s.loading = false
			s.mu.Unlock()
		}()
		s.verify(ctx)
	})
}

func (s *Store) verify(ctx context.Context) {
	token, err := s.tokens.Load(ctx)
	if err != nil {
		s.logger.Warn("Failed to load stored token", "error", err)
		return
	}
	if token == "" {
		return
	}
	if tokenExpired(token, s.now()) {
		s.logger.Info("Stored token expired, discarding")
		s.clear(ctx)
		return
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	user, err := s.api.Me(ctx)
	if err != nil {
		s.logger.Info("Stored token rejected", "kind", vamiapi.KindOf(err), "error", err)
		s.clear(ctx)
		return
	}
	s.SetUser(user)
}

// Login exchanges credentials for a token and signs the session in.
func (s *Store) Login(ctx context.Context, email, password string) (*domain.User, error) {
	resp, err := s.api.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.adopt(ctx, resp)
}

// Register creates an account and signs the session in. The returned
// response carries a checkout URL when the chosen plan needs payment.
func (s *Store) Register(ctx context.Context, req vamiapi.RegisterRequest) (*domain.AuthResponse, error) {
	resp, err := s.api.Register(ctx, req)
	if err != nil {
		return nil, err
	}
	if _, err := s.adopt(ctx, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *Store) adopt(ctx context.Context, resp *domain.AuthResponse) (*domain.User, error) {
	if err := s.SaveToken(ctx, resp.AccessToken); err != nil {
		return nil, err
	}
	user := resp.User
	if user.ID == "" {
		fetched, err := s.api.Me(ctx)
		if err != nil {
			return nil, err
		}
		user = *fetched
	}
	s.SetUser(&user)
	return &user, nil
}

// Logout signs the session out. Local state is cleared before navigating
// to the login page; the backend revocation is best-effort.
func (s *Store) Logout(ctx context.Context) {
	token := s.clear(ctx)
	s.navigate(ctx, LoginPath)

	if token == "" {
		return
	}
	revoke := s.api.With(
		vamiapi.WithTokenSource(vamiapi.TokenFunc(func(context.Context) string { return token })),
		vamiapi.WithUnauthorizedHandler(nil),
	)
	if err := revoke.Logout(ctx); err != nil {
		s.logger.Debug("Backend logout failed", "error", err)
	}
}

// HandleUnauthorized is the global 401 hook: it erases the session and
// sends every tab of the device to the login page.
func (s *Store) HandleUnauthorized(ctx context.Context) {
	s.clear(ctx)
	s.navigate(ctx, LoginPath)
}

// clear erases the token and user and returns the token that was held.
// Calling it on an already cleared session is a no-op apart from the
// idempotent delete.
func (s *Store) clear(ctx context.Context) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := s.token
	s.token = ""
	s.user = nil
	if err := s.tokens.Clear(ctx); err != nil {
		s.logger.Warn("Failed to erase stored token", "error", err)
	}
	return token
}

func (s *Store) navigate(ctx context.Context, to string) {
	if s.nav != nil {
		s.nav.Navigate(ctx, to, nil)
	}
}
