// Package config provides configuration loading and validation for the
// archiver.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds everything the archiver needs at startup. Values come from
// the environment; missing required credentials fail validation and the
// process does not start.
type Config struct {
	// Server
	Port int `validate:"min=1,max=65535"`

	// Pinning service (required)
	PinEndpoint string `validate:"required,url"`
	PinAPIKey   string `validate:"required"`
	GatewayBase string `validate:"required,url"`

	// Browser
	NavTimeout   time.Duration `validate:"min=1s"`
	ReadyTimeout time.Duration `validate:"min=0"`

	// Publishing
	PublishRetries int           `validate:"min=0,max=5"`
	RetryWait      time.Duration `validate:"min=0"`

	// Optional stages
	DedupDatabaseURL string // durable dedup backing; empty = memory only
	LedgerEndpoint   string `validate:"omitempty,url"`
	LedgerAPIKey     string
	DisableDedup     bool
	DiagnosticsDir   string // empty disables the diagnostic sink

	Verbose bool
}

// Error reports an invalid or missing configuration value.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config error: %s %s", e.Field, e.Message)
}

// FromEnv reads configuration from the environment and validates it.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:             envInt("PORT", 8080),
		PinEndpoint:      os.Getenv("PIN_ENDPOINT"),
		PinAPIKey:        os.Getenv("PIN_API_KEY"),
		GatewayBase:      envString("GATEWAY_BASE", "https://ipfs.io"),
		NavTimeout:       envDuration("NAV_TIMEOUT", 30*time.Second),
		ReadyTimeout:     envDuration("READY_TIMEOUT", 8*time.Second),
		PublishRetries:   envInt("PUBLISH_RETRIES", 0),
		RetryWait:        envDuration("PUBLISH_RETRY_WAIT", 2*time.Second),
		DedupDatabaseURL: os.Getenv("DEDUP_DATABASE_URL"),
		LedgerEndpoint:   os.Getenv("LEDGER_ENDPOINT"),
		LedgerAPIKey:     os.Getenv("LEDGER_API_KEY"),
		DisableDedup:     envBool("DISABLE_DEDUP"),
		DiagnosticsDir:   os.Getenv("DIAGNOSTICS_DIR"),
		Verbose:          envBool("VERBOSE"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var invalid validator.ValidationErrors
		if errors.As(err, &invalid) && len(invalid) > 0 {
			first := invalid[0]
			return &Error{Field: first.StructField(), Message: describeTag(first)}
		}
		return &Error{Field: "(config)", Message: err.Error()}
	}
	if c.LedgerEndpoint == "" && c.LedgerAPIKey != "" {
		return &Error{Field: "LedgerEndpoint", Message: "is required when LEDGER_API_KEY is set"}
	}
	return nil
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "url":
		return "must be a valid URL"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envBool(key string) bool {
	v := os.Getenv(key)
	return v == "1" || v == "true" || v == "yes"
}
