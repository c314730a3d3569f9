// Package identity ties each request to a browser device and its session.
package identity

import (
	"context"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/ashureev/vami-console/internal/session"
	"github.com/google/uuid"
)

const (
	DeviceCookieName = "vami_device"
	TabHeaderName    = "X-Vami-Tab-ID"
	DefaultTabID     = "default"

	deviceCookieMaxAge = 30 * 24 * time.Hour
	sessionInitTimeout = 15 * time.Second
)

type contextKey int

const (
	deviceIDKey contextKey = iota
	tabIDKey
	sessionKey
)

var tabIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// Sessions resolves the session of a device.
type Sessions interface {
	Get(ctx context.Context, deviceID string) *session.Store
}

// DeviceIDFromContext returns the device of the request.
func DeviceIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(deviceIDKey).(string); ok {
		return v
	}
	return ""
}

// TabIDFromContext returns the browser tab that sent the request.
func TabIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(tabIDKey).(string); ok {
		return v
	}
	return DefaultTabID
}

// SessionFromContext returns the device session, or nil outside Middleware.
func SessionFromContext(ctx context.Context) *session.Store {
	s, _ := ctx.Value(sessionKey).(*session.Store)
	return s
}

// WithDevice returns ctx carrying a device and tab. Tests and the event
// stream use it to address a device without the cookie round trip.
func WithDevice(ctx context.Context, deviceID, tabID string) context.Context {
	ctx = context.WithValue(ctx, deviceIDKey, deviceID)
	return context.WithValue(ctx, tabIDKey, sanitizeTabID(tabID))
}

// WithSession returns ctx carrying s.
func WithSession(ctx context.Context, s *session.Store) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

func sanitizeTabID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || !tabIDPattern.MatchString(id) {
		return DefaultTabID
	}
	return id
}

func tabIDFromRequest(r *http.Request) string {
	tab := r.Header.Get(TabHeaderName)
	if tab == "" {
		tab = r.URL.Query().Get("tab")
	}
	return sanitizeTabID(tab)
}

func setDeviceCookie(w http.ResponseWriter, id string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     DeviceCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(deviceCookieMaxAge.Seconds()),
		Expires:  time.Now().Add(deviceCookieMaxAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	})
}

// deviceID returns the device cookie value, issuing a new device when the
// cookie is missing or malformed. The cookie is refreshed on every request.
func deviceID(w http.ResponseWriter, r *http.Request, secure bool) string {
	id := ""
	if c, err := r.Cookie(DeviceCookieName); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			id = c.Value
		}
	}
	if id == "" {
		id = uuid.NewString()
	}
	setDeviceCookie(w, id, secure)
	return id
}

// Middleware resolves the device, its tab and its session, and starts the
// session's startup check the first time the device is seen.
func Middleware(sessions Sessions, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := deviceID(w, r, secure)
			s := sessions.Get(r.Context(), id)

			select {
			case <-s.Ready():
			default:
				// The check outlives this request; other tabs wait on it.
				go func() {
					ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), sessionInitTimeout)
					defer cancel()
					s.Init(ctx)
				}()
			}

			ctx := WithDevice(r.Context(), id, tabIDFromRequest(r))
			ctx = WithSession(ctx, s)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth lets a request through once the session check has finished
// and a user is signed in. Anonymous requests get a 401 pointing at the
// login page.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := SessionFromContext(r.Context())
		if s == nil {
			unauthorized(w)
			return
		}
		select {
		case <-s.Ready():
		case <-r.Context().Done():
			return
		}
		if !s.Authenticated() {
			unauthorized(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"not authenticated","redirect":"` + session.LoginPath + `"}`))
}

// IPFromRequest returns a normalized remote IP for request logging.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
