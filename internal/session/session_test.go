package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ashureev/vami-console/internal/domain"
	"github.com/ashureev/vami-console/internal/store"
	"github.com/ashureev/vami-console/internal/vamiapi"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend serves /auth/me for one accepted token and counts calls.
type fakeBackend struct {
	validToken string
	meCalls    atomic.Int32
	logoutAuth atomic.Value
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/auth/me":
		f.meCalls.Add(1)
		if r.Header.Get("Authorization") != "Bearer "+f.validToken {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Could not validate credentials"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(domain.User{ID: "user-1", Email: "owner@smithdental.com", Plan: "professional"})
	case "/api/auth/login":
		_ = json.NewEncoder(w).Encode(domain.AuthResponse{
			AccessToken: f.validToken,
			User:        domain.User{ID: "user-1", Email: "owner@smithdental.com"},
		})
	case "/api/auth/logout":
		f.logoutAuth.Store(r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	case "/api/billing/usage":
		w.WriteHeader(http.StatusUnauthorized)
	default:
		http.NotFound(w, r)
	}
}

type recordedNav struct {
	to       string
	snapshot State
	stored   string
}

type navRecorder struct {
	mu     sync.Mutex
	tokens TokenStore
	store  *Store
	navs   []recordedNav
}

func (n *navRecorder) Navigate(ctx context.Context, to string, _ any) {
	stored, _ := n.tokens.Load(ctx)
	n.mu.Lock()
	defer n.mu.Unlock()
	n.navs = append(n.navs, recordedNav{to: to, snapshot: n.store.Snapshot(), stored: stored})
}

func (n *navRecorder) all() []recordedNav {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]recordedNav(nil), n.navs...)
}

func newTestSession(t *testing.T, backend http.Handler, stored string) (*Store, *MemoryTokenStore, *navRecorder) {
	t.Helper()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	api, err := vamiapi.New(srv.URL + "/api")
	require.NoError(t, err)

	tokens := &MemoryTokenStore{}
	require.NoError(t, tokens.Save(context.Background(), stored))

	nav := &navRecorder{tokens: tokens}
	s := New(tokens, api, WithNavigator(nav))
	nav.store = s
	return s, tokens, nav
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": exp.Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func TestInitWithValidToken(t *testing.T) {
	backend := &fakeBackend{validToken: "tok-good"}
	s, _, _ := newTestSession(t, backend, "tok-good")

	assert.True(t, s.Snapshot().Loading)
	s.Init(context.Background())

	select {
	case <-s.Ready():
	default:
		t.Fatal("Ready() not closed after Init")
	}
	state := s.Snapshot()
	require.NotNil(t, state.User)
	assert.Equal(t, "user-1", state.User.ID)
	assert.False(t, state.Loading)
	assert.Equal(t, "tok-good", s.Token(context.Background()))
}

func TestInitWithRejectedTokenClearsSession(t *testing.T) {
	backend := &fakeBackend{validToken: "tok-good"}
	s, tokens, nav := newTestSession(t, backend, "tok-revoked")

	s.Init(context.Background())

	assert.Equal(t, State{User: nil, Loading: false}, s.Snapshot())
	stored, err := tokens.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stored)
	assert.Empty(t, s.Token(context.Background()))

	navs := nav.all()
	require.Len(t, navs, 1)
	assert.Equal(t, LoginPath, navs[0].to)
}

func TestInitWithoutTokenSkipsVerify(t *testing.T) {
	backend := &fakeBackend{validToken: "tok-good"}
	s, _, _ := newTestSession(t, backend, "")

	s.Init(context.Background())

	assert.Equal(t, State{}, s.Snapshot())
	assert.Zero(t, backend.meCalls.Load())
}

func TestInitDiscardsExpiredJWTWithoutVerify(t *testing.T) {
	expired := signedToken(t, time.Now().Add(-time.Hour))
	backend := &fakeBackend{validToken: expired}
	s, tokens, _ := newTestSession(t, backend, expired)

	s.Init(context.Background())

	assert.Nil(t, s.Snapshot().User)
	assert.Zero(t, backend.meCalls.Load())
	stored, _ := tokens.Load(context.Background())
	assert.Empty(t, stored)
}

func TestInitVerifiesUnexpiredJWT(t *testing.T) {
	fresh := signedToken(t, time.Now().Add(time.Hour))
	backend := &fakeBackend{validToken: fresh}
	s, _, _ := newTestSession(t, backend, fresh)

	s.Init(context.Background())

	require.NotNil(t, s.Snapshot().User)
	assert.Equal(t, int32(1), backend.meCalls.Load())
}

func TestInitRunsOnce(t *testing.T) {
	backend := &fakeBackend{validToken: "tok-good"}
	s, _, _ := newTestSession(t, backend, "tok-good")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Init(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), backend.meCalls.Load())
}

func TestLogoutClearsBeforeNavigating(t *testing.T) {
	backend := &fakeBackend{validToken: "tok-good"}
	s, _, nav := newTestSession(t, backend, "tok-good")
	s.Init(context.Background())
	require.NotNil(t, s.Snapshot().User)

	s.Logout(context.Background())

	navs := nav.all()
	require.Len(t, navs, 1)
	assert.Equal(t, LoginPath, navs[0].to)
	assert.Nil(t, navs[0].snapshot.User, "user must be cleared before navigation")
	assert.Empty(t, navs[0].stored, "token must be erased before navigation")
	assert.Equal(t, "Bearer tok-good", backend.logoutAuth.Load())
}

func TestUnauthorizedResponseClearsSession(t *testing.T) {
	backend := &fakeBackend{validToken: "tok-good"}
	s, tokens, nav := newTestSession(t, backend, "tok-good")
	s.Init(context.Background())

	_, err := s.Client().Usage(context.Background())
	require.True(t, vamiapi.IsUnauthorized(err))

	assert.Nil(t, s.Snapshot().User)
	stored, _ := tokens.Load(context.Background())
	assert.Empty(t, stored)
	require.NotEmpty(t, nav.all())
	assert.Equal(t, LoginPath, nav.all()[0].to)
}

func TestLogoutRacingUnauthorizedHook(t *testing.T) {
	backend := &fakeBackend{validToken: "tok-good"}
	s, tokens, _ := newTestSession(t, backend, "tok-good")
	s.Init(context.Background())

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.Logout(context.Background())
	}()
	go func() {
		defer wg.Done()
		s.HandleUnauthorized(context.Background())
	}()
	wg.Wait()

	assert.Equal(t, State{}, s.Snapshot())
	stored, _ := tokens.Load(context.Background())
	assert.Empty(t, stored)
}

func TestLoginAdoptsToken(t *testing.T) {
	backend := &fakeBackend{validToken: "tok-new"}
	s, tokens, _ := newTestSession(t, backend, "")
	s.Init(context.Background())

	user, err := s.Login(context.Background(), "owner@smithdental.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)

	stored, _ := tokens.Load(context.Background())
	assert.Equal(t, "tok-new", stored)
	assert.Equal(t, "tok-new", s.Token(context.Background()))
}

func TestFileTokenStore(t *testing.T) {
	ctx := context.Background()
	fs := NewFileTokenStore(filepath.Join(t.TempDir(), "vami", "access_token"))

	got, err := fs.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, fs.Save(ctx, "tok-file"))
	got, err = fs.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-file", got)

	require.NoError(t, fs.Clear(ctx))
	require.NoError(t, fs.Clear(ctx))
	got, err = fs.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTokenExpired(t *testing.T) {
	now := time.Now()
	assert.True(t, tokenExpired(signedToken(t, now.Add(-time.Minute)), now))
	assert.False(t, tokenExpired(signedToken(t, now.Add(time.Minute)), now))
	assert.False(t, tokenExpired("opaque-session-token", now))
}

type countingBroadcaster struct {
	mu   sync.Mutex
	sent map[string][]string
}

func (c *countingBroadcaster) Navigate(deviceID, to string, _ any) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sent == nil {
		c.sent = make(map[string][]string)
	}
	c.sent[deviceID] = append(c.sent[deviceID], to)
	return 1
}

func TestManagerScopesSessionsPerDevice(t *testing.T) {
	backend := &fakeBackend{validToken: "tok-good"}
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)
	api, err := vamiapi.New(srv.URL + "/api")
	require.NoError(t, err)

	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "console.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	ctx := context.Background()
	require.NoError(t, repo.SaveToken(ctx, "dev-a", "tok-good"))
	require.NoError(t, repo.SaveToken(ctx, "dev-b", "tok-stale"))

	events := &countingBroadcaster{}
	m := NewManager(repo, api, events, nil)

	a := m.Get(ctx, "dev-a")
	b := m.Get(ctx, "dev-b")
	assert.Same(t, a, m.Get(ctx, "dev-a"))
	a.Init(ctx)
	b.Init(ctx)

	assert.NotNil(t, a.Snapshot().User)
	assert.Nil(t, b.Snapshot().User)

	_, err = repo.GetToken(ctx, "dev-b")
	assert.ErrorIs(t, err, store.ErrNoToken)
	assert.Equal(t, []string{LoginPath}, events.sent["dev-b"])
	assert.Empty(t, events.sent["dev-a"])

	m.Forget("dev-a")
	assert.Equal(t, 1, m.Len())
	assert.NotSame(t, a, m.Get(ctx, "dev-a"))
}
