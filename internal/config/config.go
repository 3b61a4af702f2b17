// Package config loads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Config holds all configuration parameters of the application.
type Config struct {
	HTTPAddr       string        `env:"HTTP_ADDR" envDefault:":8000"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	CORSOrigins    []string      `env:"CORS_ORIGINS" envSeparator:","`

	DBDriver       string `env:"DB_DRIVER" envDefault:"sqlite"`
	DatabaseURL    string `env:"DATABASE_URL" envDefault:"./data/checkbox.db"`
	DBMaxOpenConns int    `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`

	SecretKey                string `env:"SECRET_KEY,required"`
	AccessTokenExpireMinutes int    `env:"ACCESS_TOKEN_EXPIRE_MINUTES" envDefault:"15"`

	ShopName             string `env:"SHOP_NAME" envDefault:"Checkbox Shop"`
	ReceiptWidth         int    `env:"RECEIPT_WIDTH" envDefault:"40"`
	ReceiptTimezone      string `env:"RECEIPT_TIMEZONE" envDefault:"UTC"`
	UnknownProductPolicy string `env:"UNKNOWN_PRODUCT_POLICY" envDefault:"reject"`
	RequireFullPayment   bool   `env:"REQUIRE_FULL_PAYMENT" envDefault:"false"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	RabbitMQ struct {
		URL   string `env:"RABBITMQ_URL"`
		Queue string `env:"RABBITMQ_QUEUE" envDefault:"receipts.created"`
	}

	S3 struct {
		Endpoint        string `env:"S3_ENDPOINT"`
		Region          string `env:"S3_REGION" envDefault:"us-east-1"`
		Bucket          string `env:"S3_BUCKET"`
		AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
		SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`
		UseSSL          bool   `env:"S3_USE_SSL" envDefault:"false"`
	}
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	for i, origin := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimRight(strings.TrimSpace(origin), "/")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values env parsing cannot.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.SecretKey) == "" {
		errs = append(errs, errors.New("SECRET_KEY must not be empty"))
	}
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be sqlite or postgres, got %q", c.DBDriver))
	}
	switch c.UnknownProductPolicy {
	case "reject", "skip":
	default:
		errs = append(errs, fmt.Errorf("UNKNOWN_PRODUCT_POLICY must be reject or skip, got %q", c.UnknownProductPolicy))
	}
	if c.ReceiptWidth < 20 {
		errs = append(errs, fmt.Errorf("RECEIPT_WIDTH must be at least 20, got %d", c.ReceiptWidth))
	}
	if c.AccessTokenExpireMinutes < 0 {
		errs = append(errs, fmt.Errorf("ACCESS_TOKEN_EXPIRE_MINUTES cannot be negative"))
	}
	if _, err := time.LoadLocation(c.ReceiptTimezone); err != nil {
		errs = append(errs, fmt.Errorf("RECEIPT_TIMEZONE: %w", err))
	}
	return errors.Join(errs...)
}

// TokenDuration returns the access token lifetime.
func (c *Config) TokenDuration() time.Duration {
	return time.Duration(c.AccessTokenExpireMinutes) * time.Minute
}

// Location returns the time zone receipts are printed in.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.ReceiptTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ArchiveEnabled reports whether receipt texts should be uploaded to S3.
func (c *Config) ArchiveEnabled() bool {
	return c.S3.Bucket != ""
}
