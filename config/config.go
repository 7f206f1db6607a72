package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string
	FrontendURL string
	GinMode     string

	JWTSecret         string
	DataEncryptionKey string
	SessionTTL        time.Duration

	RateLimitPerMinute int
	BillHorizonDays    int

	Brick    BrickConfig
	Finverse FinverseConfig
	Email    EmailConfig
}

type BrickConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

func (c BrickConfig) Enabled() bool { return c.ClientID != "" && c.ClientSecret != "" }

type FinverseConfig struct {
	BaseURL       string
	LinkURL       string
	CustomerAppID string
	ClientID      string
	ClientSecret  string
	RedirectURL   string
}

func (c FinverseConfig) Enabled() bool { return c.ClientID != "" && c.ClientSecret != "" }

// EmailConfig points at the Resend API used for bill reminder emails.
type EmailConfig struct {
	BaseURL string
	APIKey  string
	From    string
}

func (c EmailConfig) Enabled() bool { return c.APIKey != "" }

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	return FromEnv()
}

func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", "./managenow.db"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),
		GinMode:     getEnv("GIN_MODE", "debug"),

		JWTSecret:         os.Getenv("JWT_SECRET"),
		DataEncryptionKey: os.Getenv("DATA_ENCRYPTION_KEY"),

		Brick: BrickConfig{
			BaseURL:      getEnv("BRICK_BASE_URL", "https://api.onebrick.io/v1"),
			ClientID:     os.Getenv("BRICK_CLIENT_ID"),
			ClientSecret: os.Getenv("BRICK_CLIENT_SECRET"),
			RedirectURL:  os.Getenv("BRICK_REDIRECT_URL"),
		},
		Finverse: FinverseConfig{
			BaseURL:       getEnv("FINVERSE_BASE_URL", "https://api.prod.finverse.net"),
			LinkURL:       getEnv("FINVERSE_LINK_URL", "https://link.prod.finverse.net"),
			CustomerAppID: os.Getenv("FINVERSE_CUSTOMER_APP_ID"),
			ClientID:      os.Getenv("FINVERSE_CLIENT_ID"),
			ClientSecret:  os.Getenv("FINVERSE_CLIENT_SECRET"),
			RedirectURL:   os.Getenv("FINVERSE_REDIRECT_URL"),
		},
		Email: EmailConfig{
			BaseURL: getEnv("RESEND_BASE_URL", "https://api.resend.com"),
			APIKey:  os.Getenv("RESEND_API_KEY"),
			From:    getEnv("FROM_EMAIL", "ManageNow <noreply@managenow.app>"),
		},
	}

	var err error
	if cfg.SessionTTL, err = time.ParseDuration(getEnv("SESSION_TTL", "168h")); err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}
	if cfg.RateLimitPerMinute, err = strconv.Atoi(getEnv("RATE_LIMIT_PER_MINUTE", "100")); err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE: %w", err)
	}
	if cfg.BillHorizonDays, err = strconv.Atoi(getEnv("BILL_HORIZON_DAYS", "30")); err != nil {
		return nil, fmt.Errorf("invalid BILL_HORIZON_DAYS: %w", err)
	}

	if cfg.JWTSecret == "" {
		if cfg.GinMode == "release" {
			return nil, fmt.Errorf("JWT_SECRET environment variable is required")
		}
		log.Println("⚠️ JWT_SECRET not set, using an insecure development secret")
		cfg.JWTSecret = "managenow-dev-secret"
	}
	if cfg.DataEncryptionKey != "" && len(cfg.DataEncryptionKey) != 32 {
		return nil, fmt.Errorf("DATA_ENCRYPTION_KEY must be exactly 32 characters")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
