package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
)

// DashboardPath is where the fallback page sends the user.
const DashboardPath = "/dashboard"

const fallbackHTML = `<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>Something went wrong</title></head>
<body>
<h1>Something went wrong</h1>
<p>An unexpected error occurred. Please try again.</p>
<p><a href="` + DashboardPath + `">Go to dashboard</a></p>
</body>
</html>
`

// Boundary recovers a panicking handler, logs it with its stack and shows a
// fallback with a link back to the dashboard. API clients get JSON instead.
// http.ErrAbortHandler is re-raised so the server can drop the connection.
func Boundary(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Error("Handler panicked",
					"panic", rec,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)
				if wantsJSON(r) {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_, _ = w.Write([]byte(`{"error":"Something went wrong","redirect":"` + DashboardPath + `"}`))
					return
				}
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(fallbackHTML))
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func wantsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/") ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}
