// Package web embeds the built frontend (dist/) and serves it as a
// single-page application.
//
// In development dist/ only holds a placeholder index.html; run the Vite dev
// server for the real UI.
package web

import (
	"embed"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ashureev/vami-console/internal/identity"
	"github.com/ashureev/vami-console/internal/session"
)

//go:embed all:dist
var distFS embed.FS

// protectedPrefixes are console routes that need a signed-in device.
var protectedPrefixes = []string{
	"/dashboard",
	"/onboarding",
	"/welcome",
	"/analytics",
	"/calls",
	"/billing",
	"/payment",
	"/calendar",
	"/team",
	"/settings",
}

// Protected reports whether path is a console route that needs a session.
func Protected(path string) bool {
	for _, p := range protectedPrefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// SPAHandler serves static files from dist/ and falls back to index.html
// for client-side routes. Protected routes redirect anonymous devices to
// the login page once their session check has finished.
func SPAHandler() http.Handler {
	subFS, err := fs.Sub(distFS, "dist")
	if err != nil {
		panic("web: failed to create sub filesystem: " + err.Error())
	}
	fileServer := http.FileServer(http.FS(subFS))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/")
		if path == "" {
			path = "index.html"
		}

		if f, err := subFS.Open(path); err == nil {
			if closeErr := f.Close(); closeErr != nil {
				slog.Debug("web: failed to close embedded file", "path", path, "error", closeErr)
			}
			fileServer.ServeHTTP(w, r)
			return
		}

		if Protected(r.URL.Path) && !signedIn(r) {
			http.Redirect(w, r, session.LoginPath, http.StatusFound)
			return
		}

		r.URL.Path = "/"
		fileServer.ServeHTTP(w, r)
	})
}

func signedIn(r *http.Request) bool {
	s := identity.SessionFromContext(r.Context())
	if s == nil {
		return false
	}
	select {
	case <-s.Ready():
	case <-r.Context().Done():
		return false
	}
	return s.Authenticated()
}
