package events

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/vami-console/internal/identity"
	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeConn struct {
	mu       sync.Mutex
	written  [][]byte
	closed   bool
	writeErr error
}

func (c *fakeConn) Write(_ context.Context, _ websocket.MessageType, p []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	c.written = append(c.written, append([]byte(nil), p...))
	return nil
}

func (c *fakeConn) Close(websocket.StatusCode, string) error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) messages(t *testing.T) []Message {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, 0, len(c.written))
	for _, p := range c.written {
		var m Message
		require.NoError(t, json.Unmarshal(p, &m))
		out = append(out, m)
	}
	return out
}

func TestNavigateReachesEveryTab(t *testing.T) {
	hub := NewHub(nil)
	tab1, tab2, other := &fakeConn{}, &fakeConn{}, &fakeConn{}
	hub.Register("device-a", "tab-1", tab1)
	hub.Register("device-a", "tab-2", tab2)
	hub.Register("device-b", "tab-1", other)

	n := hub.Navigate("device-a", "/login", nil)

	assert.Equal(t, 2, n)
	want := []Message{{Type: TypeNavigate, To: "/login"}}
	assert.Equal(t, want, tab1.messages(t))
	assert.Equal(t, want, tab2.messages(t))
	assert.Empty(t, other.messages(t))
}

func TestNavigateTab(t *testing.T) {
	hub := NewHub(nil)
	tab1, tab2 := &fakeConn{}, &fakeConn{}
	hub.Register("device-a", "tab-1", tab1)
	hub.Register("device-a", "tab-2", tab2)

	welcome := map[string]string{"agent_id": "agent_1"}
	assert.True(t, hub.NavigateTab("device-a", "tab-2", "/welcome", welcome))
	assert.False(t, hub.NavigateTab("device-a", "tab-9", "/welcome", welcome))

	assert.Empty(t, tab1.messages(t))
	got := tab2.messages(t)
	require.Len(t, got, 1)
	assert.Equal(t, "/welcome", got[0].To)
	assert.Equal(t, map[string]any{"agent_id": "agent_1"}, got[0].State)
}

func TestNavigateCountsFailedWrites(t *testing.T) {
	hub := NewHub(nil)
	hub.Register("device-a", "tab-1", &fakeConn{})
	hub.Register("device-a", "tab-2", &fakeConn{writeErr: errors.New("broken pipe")})

	assert.Equal(t, 1, hub.Navigate("device-a", "/welcome", map[string]string{"agent_id": "agent_1"}))
	assert.Equal(t, 0, hub.Navigate("device-unknown", "/login", nil))
}

func TestRegisterReplacesTabConnection(t *testing.T) {
	hub := NewHub(nil)
	old, fresh := &fakeConn{}, &fakeConn{}
	hub.Register("device-a", "tab-1", old)
	hub.Register("device-a", "tab-1", fresh)

	assert.True(t, old.closed)
	assert.Equal(t, 1, hub.Tabs("device-a"))

	// A late unregister of the replaced connection must not drop the new one.
	hub.Unregister("device-a", "tab-1", old)
	assert.Equal(t, 1, hub.Tabs("device-a"))

	hub.Unregister("device-a", "tab-1", fresh)
	assert.Equal(t, 0, hub.Tabs("device-a"))
}

func TestCloseDevice(t *testing.T) {
	hub := NewHub(nil)
	c1, c2 := &fakeConn{}, &fakeConn{}
	hub.Register("device-a", "tab-1", c1)
	hub.Register("device-a", "tab-2", c2)

	hub.CloseDevice("device-a")

	assert.True(t, c1.closed)
	assert.True(t, c2.closed)
	assert.Equal(t, 0, hub.Tabs("device-a"))
}

// stuckConn blocks in Close until released, like a peer that never answers
// the close handshake.
type stuckConn struct {
	fakeConn
	closing chan struct{}
	release chan struct{}
}

func newStuckConn() *stuckConn {
	return &stuckConn{closing: make(chan struct{}), release: make(chan struct{})}
}

func (c *stuckConn) Close(websocket.StatusCode, string) error {
	close(c.closing)
	<-c.release
	return nil
}

func TestSlowCloseDoesNotBlockHub(t *testing.T) {
	defer goleak.VerifyNone(t)

	tests := []struct {
		name  string
		close func(hub *Hub)
	}{
		{"close device", func(hub *Hub) { hub.CloseDevice("device-a") }},
		{"replace tab", func(hub *Hub) { hub.Register("device-a", "tab-1", &fakeConn{}) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub := NewHub(nil)
			stuck := newStuckConn()
			other := &fakeConn{}
			hub.Register("device-a", "tab-1", stuck)
			hub.Register("device-b", "tab-1", other)

			done := make(chan struct{})
			go func() {
				defer close(done)
				tt.close(hub)
			}()
			<-stuck.closing

			assert.Equal(t, 1, hub.Navigate("device-b", "/login", nil))
			assert.Equal(t, 1, hub.Tabs("device-b"))

			close(stuck.release)
			<-done
		})
	}
}

func TestConcurrentRegisterAndNavigate(t *testing.T) {
	hub := NewHub(nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		tab := "tab-" + string(rune('a'+i%26)) + string(rune('a'+i/26))
		go func() {
			defer wg.Done()
			c := &fakeConn{}
			hub.Register("device-a", tab, c)
			hub.Unregister("device-a", tab, c)
		}()
		go func() {
			defer wg.Done()
			hub.Navigate("device-a", "/login", nil)
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, hub.Tabs("device-a"))
}

func withDevice(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := identity.WithDevice(r.Context(), r.URL.Query().Get("device"), r.URL.Query().Get("tab"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func TestEventStreamEndToEnd(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	hub := NewHub(nil)
	srv := httptest.NewServer(withDevice(NewHandler(hub, []string{"http://localhost:5173"}, false)))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/events?device=device-a&tab=tab-1"
	ws, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return hub.Tabs("device-a") == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, ws.Write(ctx, websocket.MessageText, []byte(`{"type":"ping"}`)))
	_, data, err := ws.Read(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"pong"}`, string(data))

	assert.Equal(t, 1, hub.Navigate("device-a", "/login", nil))
	_, data, err = ws.Read(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"navigate","to":"/login"}`, string(data))

	require.NoError(t, ws.Close(websocket.StatusNormalClosure, "bye"))
	require.Eventually(t, func() bool { return hub.Tabs("device-a") == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestEventStreamRejectsForeignOrigin(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(withDevice(NewHandler(hub, []string{"http://localhost:5173"}, false)))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/ws/events?device=device-a", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://evil.example")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, 0, hub.Tabs("device-a"))
}

func TestEventStreamNeedsDevice(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHandler(NewHub(nil), nil, true).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws/events", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
