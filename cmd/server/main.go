// Vami Console - backend for the AI voice agent console.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/vami-console/internal/api"
	"github.com/ashureev/vami-console/internal/config"
	"github.com/ashureev/vami-console/internal/events"
	"github.com/ashureev/vami-console/internal/onboarding"
	"github.com/ashureev/vami-console/internal/pages"
	"github.com/ashureev/vami-console/internal/phone"
	"github.com/ashureev/vami-console/internal/session"
	"github.com/ashureev/vami-console/internal/store"
	"github.com/ashureev/vami-console/internal/vamiapi"
	"github.com/ashureev/vami-console/web"
	"github.com/joho/godotenv"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "api_url", cfg.APIURL)

	// Initialize dependencies.
	repo, err := store.Open(cfg.DBDriver, cfg.DBPath, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err, "driver", cfg.DBDriver)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected", "driver", cfg.DBDriver)

	apiClient, err := vamiapi.New(cfg.APIURL,
		vamiapi.WithTimeout(cfg.APITimeout),
		vamiapi.WithLogger(logger),
	)
	if err != nil {
		slog.Error("Failed to initialize Vami API client", "error", err)
		os.Exit(1)
	}

	phones, err := phoneSource(cfg.Phone)
	if err != nil {
		slog.Error("Failed to initialize phone source", "error", err, "source", cfg.Phone.Source)
		os.Exit(1)
	}
	if cfg.Phone.Source == config.PhoneSourcePlaceholder {
		slog.Warn("Using placeholder phone numbers; every agent gets the same number", "number", cfg.Phone.PlaceholderNumber)
	}

	plans, err := pages.LoadCatalog(cfg.PlansFile)
	if err != nil {
		slog.Error("Failed to load plan catalog", "error", err, "path", cfg.PlansFile)
		os.Exit(1)
	}
	faq, err := pages.LoadFAQ(cfg.FAQFile)
	if err != nil {
		slog.Error("Failed to load help content", "error", err, "path", cfg.FAQFile)
		os.Exit(1)
	}

	// Initialize services.
	hub := events.NewHub(logger)
	sessions := session.NewManager(repo, apiClient, hub, logger)
	wizards := onboarding.NewRegistry()

	router := api.NewRouter(api.Deps{
		Logger:         logger,
		Sessions:       sessions,
		DB:             repo,
		Wizards:        wizards,
		Phones:         phones,
		Loader:         pages.NewLoader(plans, faq, logger),
		Hub:            hub,
		AllowedOrigins: cfg.AllowedOrigins,
		SecureCookies:  !cfg.IsDevelopment(),
		IsDev:          cfg.IsDevelopment(),
		SPA:            web.SPAHandler(),
	})

	// Event streams are long-lived, so there is no write timeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start token sweeper.
	store.StartSweeper(ctx, repo, cfg.TokenTTL, func(deviceID string) {
		sessions.Forget(deviceID)
		wizards.DiscardDevice(deviceID)
		hub.CloseDevice(deviceID)
	})
	slog.Info("Token sweeper started", "token_ttl", cfg.TokenTTL)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}

// phoneSource builds the onboarding phone source for cfg.
func phoneSource(cfg config.PhoneConfig) (api.PhoneSourceFunc, error) {
	switch cfg.Source {
	case config.PhoneSourceBackend:
		return func(c *vamiapi.Client) phone.Source {
			return phone.Backend{API: c, AreaCode: cfg.AreaCode}
		}, nil
	case config.PhoneSourceTwilio:
		tw, err := phone.NewTwilio(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.AreaCode)
		if err != nil {
			return nil, err
		}
		return func(*vamiapi.Client) phone.Source { return tw }, nil
	default:
		p := phone.Placeholder{Number: cfg.PlaceholderNumber}
		return func(*vamiapi.Client) phone.Source { return p }, nil
	}
}
