package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"
)

// Pricing policy names accepted by PRICING_POLICY
const (
	PolicyGraduated = "graduated"
	PolicyFlat      = "flat"
)

// Config holds application configuration
type Config struct {
	ServerPort   string `env:"PORT" envDefault:"8080"`
	DatabaseType string `env:"DATABASE_TYPE" envDefault:"sqlite"`
	DatabasePath string `env:"DB_PATH" envDefault:"./summerfest.db"`
	DatabaseURL  string `env:"DATABASE_URL"`

	// Timezone is the operational timezone all daily and weekly windows are bucketed in
	Timezone         string `env:"TIMEZONE" envDefault:"Australia/Sydney"`
	PricingPolicy    string `env:"PRICING_POLICY" envDefault:"graduated"`
	StrictFamilyCaps bool   `env:"STRICT_FAMILY_CAPS" envDefault:"false"`

	BadgeSecret string `env:"BADGE_SECRET"`

	AWSRegion    string `env:"AWS_REGION" envDefault:"ap-southeast-2"`
	SESFromEmail string `env:"SES_FROM_EMAIL"`
	SESFromName  string `env:"SES_FROM_NAME" envDefault:"Summerfest"`
	AppBaseURL   string `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`

	LowBalanceThreshold decimal.Decimal `env:"LOW_BALANCE_THRESHOLD" envDefault:"6.00"`

	// ScanRateLimit is the number of scan requests a client may make per minute; 0 disables limiting
	ScanRateLimit int `env:"SCAN_RATE_LIMIT" envDefault:"120"`

	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"15s"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	Debug    bool   `env:"DEBUG" envDefault:"false"`
}

// Load reads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with
func (c *Config) Validate() error {
	switch strings.ToLower(c.PricingPolicy) {
	case PolicyGraduated, PolicyFlat:
	default:
		return fmt.Errorf("unsupported pricing policy: %s", c.PricingPolicy)
	}

	switch strings.ToLower(c.DatabaseType) {
	case "sqlite", "sqlite3", "":
	case "postgres", "postgresql", "mysql":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for database type %s", c.DatabaseType)
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}

	if c.ScanRateLimit < 0 {
		return fmt.Errorf("SCAN_RATE_LIMIT must not be negative")
	}

	if c.LowBalanceThreshold.IsNegative() {
		return fmt.Errorf("LOW_BALANCE_THRESHOLD must not be negative")
	}
	return nil
}
