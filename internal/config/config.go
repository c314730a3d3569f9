// Package config provides application configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

// Phone sources for the onboarding wizard.
const (
	PhoneSourcePlaceholder = "placeholder"
	PhoneSourceBackend     = "backend"
	PhoneSourceTwilio      = "twilio"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string
	APIURL      string
	APITimeout  time.Duration

	DBDriver    string // "sqlite" or "postgres"
	DBPath      string
	DatabaseURL string
	TokenTTL    time.Duration

	Phone PhoneConfig

	PlansFile      string
	FAQFile        string
	AllowedOrigins []string
}

// PhoneConfig selects where onboarding gets the agent's phone number.
type PhoneConfig struct {
	Source            string
	PlaceholderNumber string
	AreaCode          string
	TwilioAccountSID  string
	TwilioAuthToken   string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		APIURL:      getEnv("VAMI_API_URL", "http://localhost:8000/api"),
		APITimeout:  getEnvDuration("API_TIMEOUT", 30*time.Second),
		DBDriver:    strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		DBPath:      getEnv("DB_PATH", "./data/console.db"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		TokenTTL:    getEnvDuration("TOKEN_TTL", 720*time.Hour),
		Phone: PhoneConfig{
			Source:            strings.ToLower(getEnv("PHONE_SOURCE", PhoneSourcePlaceholder)),
			PlaceholderNumber: getEnv("PLACEHOLDER_PHONE_NUMBER", "+1234567890"),
			AreaCode:          getEnv("PHONE_AREA_CODE", ""),
			TwilioAccountSID:  getEnv("TWILIO_ACCOUNT_SID", ""),
			TwilioAuthToken:   getEnv("TWILIO_AUTH_TOKEN", ""),
		},
		PlansFile:      getEnv("PLANS_FILE", ""),
		FAQFile:        getEnv("FAQ_FILE", ""),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT cannot be empty")
	}
	if c.APIURL == "" {
		return errors.New("VAMI_API_URL cannot be empty")
	}
	if u, err := url.Parse(c.APIURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("VAMI_API_URL must be an http(s) URL, got %q", c.APIURL)
	}
	if c.APITimeout <= 0 {
		return errors.New("API_TIMEOUT must be > 0")
	}
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be > 0")
	}

	switch c.DBDriver {
	case "sqlite":
		if c.DBPath == "" {
			return errors.New("DB_PATH cannot be empty")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("DB_DRIVER must be sqlite or postgres, got %q", c.DBDriver)
	}

	switch c.Phone.Source {
	case PhoneSourcePlaceholder:
		if c.Phone.PlaceholderNumber == "" {
			return errors.New("PLACEHOLDER_PHONE_NUMBER cannot be empty")
		}
	case PhoneSourceBackend:
	case PhoneSourceTwilio:
		if c.Phone.TwilioAccountSID == "" || c.Phone.TwilioAuthToken == "" {
			return errors.New("TWILIO_ACCOUNT_SID and TWILIO_AUTH_TOKEN are required when PHONE_SOURCE=twilio")
		}
	default:
		return fmt.Errorf("PHONE_SOURCE must be placeholder, backend or twilio, got %q", c.Phone.Source)
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
