// Package config reads runtime configuration from the environment.
// Third-party credentials are optional at startup; the endpoint that needs a
// missing one reports it.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port string

	StoreBackend string // memory, postgres or redis
	DatabaseURL  string
	RedisURL     string

	PlacesAPIKey    string
	PageSpeedAPIKey string

	LLMProvider    string // anthropic or ollama
	AnthropicKey   string
	AnthropicModel string
	OllamaHost     string
	OllamaModel    string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	ResendAPIKey   string
	ResendFrom     string
	DefaultReplyTo string

	JWTSecret             string
	DashboardPasswordHash string
	DashboardPassword     string
	AuthDisabled          bool

	CORSOrigins      []string
	FollowUpSchedule string
}

const (
	DefaultAnthropicModel = "claude-sonnet-4-20250514"
	DefaultResendFrom     = "Wamelink Webdesign <outreach@wamelinkwebdesign.nl>"
	DefaultReplyTo        = "info@wamelinkwebdesign.nl"
)

// Load reads environment variables and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{
		Port:                  getenv("PORT", "8081"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		RedisURL:              os.Getenv("REDIS_URL"),
		PlacesAPIKey:          os.Getenv("GOOGLE_PLACES_API_KEY"),
		PageSpeedAPIKey:       os.Getenv("PAGESPEED_API_KEY"),
		LLMProvider:           strings.ToLower(getenv("LLM_PROVIDER", "anthropic")),
		AnthropicKey:          os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:        getenv("ANTHROPIC_MODEL", DefaultAnthropicModel),
		OllamaHost:            getenv("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel:           getenv("OLLAMA_MODEL", "qwen2.5:14b"),
		GoogleClientID:        os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret:    os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:     os.Getenv("GOOGLE_REDIRECT_URL"),
		ResendAPIKey:          os.Getenv("RESEND_API_KEY"),
		ResendFrom:            getenv("RESEND_FROM", DefaultResendFrom),
		DefaultReplyTo:        getenv("DEFAULT_REPLY_TO", DefaultReplyTo),
		JWTSecret:             os.Getenv("JWT_SECRET"),
		DashboardPasswordHash: os.Getenv("DASHBOARD_PASSWORD_HASH"),
		DashboardPassword:     os.Getenv("DASHBOARD_PASSWORD"),
		FollowUpSchedule:      getenv("FOLLOWUP_SCHEDULE", "@every 1h"),
	}

	if s := os.Getenv("AUTH_DISABLED"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("AUTH_DISABLED must be a boolean, got %q", s)
		}
		cfg.AuthDisabled = v
	}

	switch cfg.LLMProvider {
	case "anthropic", "ollama":
	default:
		return nil, fmt.Errorf("LLM_PROVIDER must be anthropic or ollama, got %q", cfg.LLMProvider)
	}

	cfg.StoreBackend = strings.ToLower(os.Getenv("STORE_BACKEND"))
	switch cfg.StoreBackend {
	case "":
		switch {
		case cfg.DatabaseURL != "":
			cfg.StoreBackend = "postgres"
		case cfg.RedisURL != "":
			cfg.StoreBackend = "redis"
		default:
			cfg.StoreBackend = "memory"
		}
	case "memory":
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("STORE_BACKEND=postgres requires DATABASE_URL")
		}
	case "redis":
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("STORE_BACKEND=redis requires REDIS_URL")
		}
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	cfg.CORSOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	if s := os.Getenv("CORS_ORIGINS"); s != "" {
		cfg.CORSOrigins = nil
		for _, origin := range strings.Split(s, ",") {
			if o := strings.TrimSpace(origin); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}

	return cfg, nil
}

// GmailConfigured reports whether the OAuth client credentials are present.
func (c *Config) GmailConfigured() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURL != ""
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
