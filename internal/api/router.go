package api

import (
	"log/slog"
	"net/http"

	"github.com/ashureev/vami-console/internal/events"
	"github.com/ashureev/vami-console/internal/identity"
	"github.com/ashureev/vami-console/internal/middleware"
	"github.com/ashureev/vami-console/internal/onboarding"
	"github.com/ashureev/vami-console/internal/pages"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// Deps are the services the router exposes.
type Deps struct {
	Logger         *slog.Logger
	Sessions       identity.Sessions
	DB             Pinger
	Wizards        *onboarding.Registry
	Phones         PhoneSourceFunc
	Loader         *pages.Loader
	Hub            *events.Hub
	AllowedOrigins []string
	SecureCookies  bool
	IsDev          bool
	// SPA serves everything no API route matched. Optional.
	SPA http.Handler
}

// NewRouter builds the console's HTTP routes and middleware.
func NewRouter(d Deps) http.Handler {
	base := NewHandler(d.Logger)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(middleware.Boundary(base.logger))
	r.Use(middleware.CORS(d.AllowedOrigins))

	NewHealthHandler(base, d.DB).RegisterHealth(r)

	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware(d.Sessions, d.SecureCookies))

		NewAuthHandler(base).RegisterRoutes(r)
		var nav TabNavigator
		if d.Hub != nil {
			nav = d.Hub
			r.Get("/ws/events", events.NewHandler(d.Hub, d.AllowedOrigins, d.IsDev).ServeHTTP)
		}
		NewOnboardingHandler(base, d.Wizards, d.Phones, nav).RegisterRoutes(r)
		NewPagesHandler(base, d.Loader).RegisterRoutes(r)

		if d.SPA != nil {
			r.Handle("/*", d.SPA)
		}
	})
	return r
}
