package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("VAMI_API_URL", "http://localhost:8000/api")
	t.Setenv("API_TIMEOUT", "30s")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", "./data/console.db")
	t.Setenv("TOKEN_TTL", "720h")
	t.Setenv("PHONE_SOURCE", "placeholder")
	t.Setenv("PLACEHOLDER_PHONE_NUMBER", "+1234567890")
	t.Setenv("ALLOWED_ORIGINS", " http://localhost:5173 , https://app.vami.ai ,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.APITimeout)
	assert.Equal(t, 720*time.Hour, cfg.TokenTTL)
	assert.Equal(t, PhoneSourcePlaceholder, cfg.Phone.Source)
	assert.Equal(t, []string{"http://localhost:5173", "https://app.vami.ai"}, cfg.AllowedOrigins)
}

func validConfig() *Config {
	return &Config{
		Port:       "8080",
		APIURL:     "http://localhost:8000/api",
		APITimeout: 30 * time.Second,
		DBDriver:   "sqlite",
		DBPath:     "./data/console.db",
		TokenTTL:   time.Hour,
		Phone:      PhoneConfig{Source: PhoneSourcePlaceholder, PlaceholderNumber: "+1234567890"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(*Config) {}, true},
		{"empty port", func(c *Config) { c.Port = "" }, false},
		{"ftp api url", func(c *Config) { c.APIURL = "ftp://vami" }, false},
		{"zero timeout", func(c *Config) { c.APITimeout = 0 }, false},
		{"postgres without dsn", func(c *Config) { c.DBDriver = "postgres" }, false},
		{"postgres with dsn", func(c *Config) {
			c.DBDriver = "postgres"
			c.DatabaseURL = "postgres://vami@localhost/console?sslmode=disable"
		}, true},
		{"unknown driver", func(c *Config) { c.DBDriver = "mysql" }, false},
		{"twilio without credentials", func(c *Config) { c.Phone.Source = PhoneSourceTwilio }, false},
		{"twilio with credentials", func(c *Config) {
			c.Phone = PhoneConfig{Source: PhoneSourceTwilio, TwilioAccountSID: "AC123", TwilioAuthToken: "secret"}
		}, true},
		{"backend source", func(c *Config) { c.Phone.Source = PhoneSourceBackend }, true},
		{"unknown source", func(c *Config) { c.Phone.Source = "carrier-pigeon" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestGetEnvDurationFallsBack(t *testing.T) {
	t.Setenv("API_TIMEOUT", "soon")
	assert.Equal(t, 5*time.Second, getEnvDuration("API_TIMEOUT", 5*time.Second))
}

func TestIsDevelopment(t *testing.T) {
	assert.True(t, (&Config{}).IsDevelopment())
	assert.True(t, (&Config{FrontendURL: "http://localhost:5173"}).IsDevelopment())
	assert.False(t, (&Config{FrontendURL: "https://app.vami.ai"}).IsDevelopment())
}
