package config

import (
	"os"
	"time"
)

// Server captures process-level configuration sourced from the environment.
type Server struct {
	Addr          string
	DatabaseURL   string
	AllowedOrigin string

	SessionSigningKey string
	SessionTTL        time.Duration

	WebhookSecret string

	KYCBaseURL string
	KYCAPIKey  string
	KYCTimeout time.Duration

	IPIntelBaseURL string
	IPIntelAPIKey  string
	IPIntelTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	cfg := Server{
		Addr:              getenv("KYCGATE_ADDR", ":8000"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		AllowedOrigin:     getenv("ALLOWED_ORIGIN", "http://localhost:3000"),
		SessionSigningKey: os.Getenv("SESSION_SIGNING_KEY"),
		SessionTTL:        5 * time.Hour,
		WebhookSecret:     os.Getenv("WEBHOOK_SECRET"),
		KYCBaseURL:        getenv("KYC_BASE_URL", "https://api.complycube.com/v1"),
		KYCAPIKey:         os.Getenv("KYC_API_KEY"),
		KYCTimeout:        10 * time.Second,
		IPIntelBaseURL:    getenv("IPINTEL_BASE_URL", "https://proxyradar.io/v1"),
		IPIntelAPIKey:     os.Getenv("IPINTEL_API_KEY"),
		IPIntelTimeout:    5 * time.Second,
	}

	if ttl := os.Getenv("SESSION_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil {
			cfg.SessionTTL = d
		}
	}
	if timeout := os.Getenv("KYC_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			cfg.KYCTimeout = d
		}
	}
	if timeout := os.Getenv("IPINTEL_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			cfg.IPIntelTimeout = d
		}
	}

	if cfg.SessionSigningKey == "" {
		// Use a default for development - should be overridden in production
		cfg.SessionSigningKey = "dev-secret-key-change-in-production"
	}

	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
