package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/ashureev/vami-console/internal/domain"
	"github.com/ashureev/vami-console/internal/session"
	"github.com/ashureev/vami-console/internal/vamiapi"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSessions hands out one memory-backed session per device.
type stubSessions struct {
	api *vamiapi.Client

	mu     sync.Mutex
	tokens map[string]string
	byID   map[string]*session.Store
}

func (s *stubSessions) Get(_ context.Context, deviceID string) *session.Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.byID[deviceID]; ok {
		return st
	}
	tokens := &session.MemoryTokenStore{}
	if tok := s.tokens[deviceID]; tok != "" {
		_ = tokens.Save(context.Background(), tok)
	}
	st := session.New(tokens, s.api)
	s.byID[deviceID] = st
	return st
}

func newStubSessions(t *testing.T, tokens map[string]string) *stubSessions {
	t.Helper()
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/me" && r.Header.Get("Authorization") == "Bearer good-token" {
			_ = json.NewEncoder(w).Encode(domain.User{ID: "user-1", Email: "owner@smithdental.com"})
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(backend.Close)

	api, err := vamiapi.New(backend.URL + "/api")
	require.NoError(t, err)
	return &stubSessions{api: api, tokens: tokens, byID: make(map[string]*session.Store)}
}

func deviceCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == DeviceCookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie set", DeviceCookieName)
	return nil
}

func TestMiddlewareIssuesDevice(t *testing.T) {
	sessions := newStubSessions(t, nil)
	var gotDevice, gotTab string
	var gotSession *session.Store
	h := Middleware(sessions, true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotDevice = DeviceIDFromContext(r.Context())
		gotTab = TabIDFromContext(r.Context())
		gotSession = SessionFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/session", nil))

	c := deviceCookie(t, rec)
	_, err := uuid.Parse(c.Value)
	require.NoError(t, err)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, c.Value, gotDevice)
	assert.Equal(t, DefaultTabID, gotTab)
	assert.NotNil(t, gotSession)
}

func TestMiddlewareReusesValidDevice(t *testing.T) {
	sessions := newStubSessions(t, nil)
	id := uuid.NewString()
	var gotDevice, gotTab string
	h := Middleware(sessions, false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotDevice = DeviceIDFromContext(r.Context())
		gotTab = TabIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	req.AddCookie(&http.Cookie{Name: DeviceCookieName, Value: id})
	req.Header.Set(TabHeaderName, "tab-42")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, id, gotDevice)
	assert.Equal(t, "tab-42", gotTab)
}

func TestMiddlewareReplacesMalformedDevice(t *testing.T) {
	sessions := newStubSessions(t, nil)
	h := Middleware(sessions, false)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DeviceCookieName, Value: "../../etc/passwd"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.NotEqual(t, "../../etc/passwd", deviceCookie(t, rec).Value)
}

func TestSanitizeTabID(t *testing.T) {
	assert.Equal(t, "tab_1.a:b-c", sanitizeTabID(" tab_1.a:b-c "))
	assert.Equal(t, DefaultTabID, sanitizeTabID(""))
	assert.Equal(t, DefaultTabID, sanitizeTabID("has space"))
	assert.Equal(t, DefaultTabID, sanitizeTabID("<script>"))
}

func TestRequireAuthRejectsAnonymous(t *testing.T) {
	sessions := newStubSessions(t, nil)
	called := false
	h := Middleware(sessions, false)(RequireAuth(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/pages/dashboard", nil))

	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, session.LoginPath, body["redirect"])
}

func TestRequireAuthWaitsForStartupCheck(t *testing.T) {
	id := uuid.NewString()
	sessions := newStubSessions(t, map[string]string{id: "good-token"})
	var user *domain.User
	h := Middleware(sessions, false)(RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user = SessionFromContext(r.Context()).Snapshot().User
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/pages/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: DeviceCookieName, Value: id})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, user)
	assert.Equal(t, "user-1", user.ID)
}

func TestRequireAuthWithoutMiddleware(t *testing.T) {
	rec := httptest.NewRecorder()
	RequireAuth(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestIPFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:52110"
	assert.Equal(t, "203.0.113.7", IPFromRequest(req))
	req.RemoteAddr = "unix"
	assert.Equal(t, "unix", IPFromRequest(req))
}
