// Package config provides configuration loading and validation for the API server.
// It uses koanf to merge environment variables with optional file overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration values for the API server.
type Config struct {
	// Server settings
	Port int    `koanf:"port"`
	Env  string `koanf:"env"`

	// Database
	DatabaseURL string `koanf:"database_url"`

	// Redis (draft persistence, rate limiting)
	RedisAddr string `koanf:"redis_addr"`

	// JWT Authentication. The previous secret is only set during
	// rotation; tokens validate against either.
	JWTSecret         string `koanf:"jwt_secret"`
	JWTPreviousSecret string `koanf:"jwt_previous_secret"`

	// Geometry service
	GeometryURL       string `koanf:"geometry_url"`
	GeometryTimeoutMS int    `koanf:"geometry_timeout_ms"`

	// Stripe
	StripeAPIKey        string `koanf:"stripe_api_key"`
	StripeWebhookSecret string `koanf:"stripe_webhook_secret"`
	StripeSuccessURL    string `koanf:"stripe_success_url"`
	StripeCancelURL     string `koanf:"stripe_cancel_url"`
	Currency            string `koanf:"currency"`

	// Session pipeline
	DebounceMS   int `koanf:"debounce_ms"`
	HistoryDepth int `koanf:"history_depth"`

	// Quote display: half-width of the advertised price range in whole
	// currency units; 0 shows exact prices.
	PriceDeviation int `koanf:"price_deviation"`

	// Tracing
	OTLPEndpoint string `koanf:"otlp_endpoint"`
}

// Configuration validation errors.
var (
	ErrMissingDatabaseURL         = errors.New("DATABASE_URL is required")
	ErrMissingJWTSecret           = errors.New("JWT_SECRET is required")
	ErrMissingGeometryURL         = errors.New("GEOMETRY_URL is required")
	ErrMissingStripeWebhookSecret = errors.New("STRIPE_WEBHOOK_SECRET is required when Stripe is enabled")
	ErrMissingStripeSuccessURL    = errors.New("STRIPE_SUCCESS_URL is required when Stripe is enabled")
	ErrMissingStripeCancelURL     = errors.New("STRIPE_CANCEL_URL is required when Stripe is enabled")
	ErrInvalidPort                = errors.New("PORT must be a valid integer")
)

// Default values for non-secret configuration.
const (
	DefaultPort              = 8080
	DefaultEnv               = "development"
	DefaultGeometryTimeoutMS = 30000
	DefaultDebounceMS        = 400
	DefaultHistoryDepth      = 50
	DefaultCurrency          = "eur"
)

// Load reads configuration from environment variables and an optional config file.
// Environment variables take precedence over file values.
// Returns the loaded config and a slice of validation errors (empty if valid).
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	// Load from YAML file first if provided (lower precedence)
	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	port, portErr := getEnvIntOrDefaultMulti([]string{"FORMA_PORT", "PORT"}, k.Int("port"), DefaultPort)
	if portErr != nil {
		loadErrs = append(loadErrs, portErr)
	}
	geometryTimeout, timeoutErr := getEnvIntOrDefault("GEOMETRY_TIMEOUT_MS", k.Int("geometry_timeout_ms"), DefaultGeometryTimeoutMS)
	if timeoutErr != nil {
		loadErrs = append(loadErrs, timeoutErr)
	}
	debounce, debounceErr := getEnvIntOrDefault("DEBOUNCE_MS", k.Int("debounce_ms"), DefaultDebounceMS)
	if debounceErr != nil {
		loadErrs = append(loadErrs, debounceErr)
	}
	historyDepth, historyErr := getEnvIntOrDefault("HISTORY_DEPTH", k.Int("history_depth"), DefaultHistoryDepth)
	if historyErr != nil {
		loadErrs = append(loadErrs, historyErr)
	}
	priceDeviation, deviationErr := getEnvIntOrDefault("PRICE_DEVIATION", k.Int("price_deviation"), 0)
	if deviationErr != nil {
		loadErrs = append(loadErrs, deviationErr)
	}

	cfg := &Config{
		Port:              port,
		Env:               getEnvOrDefaultMulti([]string{"FORMA_ENV", "ENV", "GO_ENV"}, k.String("env"), DefaultEnv),
		DatabaseURL:       getEnvOrKoanf("DATABASE_URL", k, "database_url"),
		RedisAddr:         getEnvOrKoanf("REDIS_ADDR", k, "redis_addr"),
		JWTSecret:         getEnvOrKoanf("JWT_SECRET", k, "jwt_secret"),
		JWTPreviousSecret: getEnvOrKoanf("JWT_PREVIOUS_SECRET", k, "jwt_previous_secret"),
		GeometryURL:       getEnvOrKoanf("GEOMETRY_URL", k, "geometry_url"),
		GeometryTimeoutMS: geometryTimeout,

		StripeAPIKey:        getEnvOrKoanf("STRIPE_API_KEY", k, "stripe_api_key"),
		StripeWebhookSecret: getEnvOrKoanf("STRIPE_WEBHOOK_SECRET", k, "stripe_webhook_secret"),
		StripeSuccessURL:    getEnvOrKoanf("STRIPE_SUCCESS_URL", k, "stripe_success_url"),
		StripeCancelURL:     getEnvOrKoanf("STRIPE_CANCEL_URL", k, "stripe_cancel_url"),
		Currency:            getEnvOrDefault("CURRENCY", k.String("currency"), DefaultCurrency),

		DebounceMS:     debounce,
		HistoryDepth:   historyDepth,
		PriceDeviation: priceDeviation,

		OTLPEndpoint: getEnvOrKoanf("OTLP_ENDPOINT", k, "otlp_endpoint"),
	}

	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// getEnvOrKoanf returns the environment variable value if set, otherwise the koanf value.
func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

// getEnvOrDefault returns the environment variable value if set, otherwise the koanf value, or default.
func getEnvOrDefault(envKey string, koanfVal string, defaultVal string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first non-empty value found, otherwise the koanf value, or default.
func getEnvOrDefaultMulti(envKeys []string, koanfVal string, defaultVal string) string {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvIntOrDefault returns the environment variable as int if set, otherwise the koanf value, or default.
// Returns an error if the environment variable is set but cannot be parsed as an integer.
func getEnvIntOrDefault(envKey string, koanfVal int, defaultVal int) (int, error) {
	if val := os.Getenv(envKey); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid integer: %w", envKey, err)
		}
		return i, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvIntOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first valid integer value found, otherwise the koanf value, or default.
func getEnvIntOrDefaultMulti(envKeys []string, koanfVal int, defaultVal int) (int, error) {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			i, err := strconv.Atoi(val)
			if err != nil {
				return 0, fmt.Errorf("%s must be a valid integer: %w", key, ErrInvalidPort)
			}
			return i, nil
		}
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// Validate checks that all required configuration values are present.
// Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	if c.DatabaseURL == "" {
		errs = append(errs, ErrMissingDatabaseURL)
	}
	if c.JWTSecret == "" {
		errs = append(errs, ErrMissingJWTSecret)
	}
	if c.GeometryURL == "" {
		errs = append(errs, ErrMissingGeometryURL)
	}

	// Stripe is optional; checkout endpoints are disabled without it.
	// When enabled, the webhook secret and redirect URLs must be set.
	if c.StripeAPIKey != "" {
		if c.StripeWebhookSecret == "" {
			errs = append(errs, ErrMissingStripeWebhookSecret)
		}
		if c.StripeSuccessURL == "" {
			errs = append(errs, ErrMissingStripeSuccessURL)
		}
		if c.StripeCancelURL == "" {
			errs = append(errs, ErrMissingStripeCancelURL)
		}
	}

	return errs
}

// LogSummary returns a summary of the configuration suitable for logging.
// All secrets are masked to prevent accidental exposure.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"port":                fmt.Sprintf("%d", c.Port),
		"env":                 c.Env,
		"database_url":        maskDatabaseURL(c.DatabaseURL),
		"redis_addr":          c.RedisAddr,
		"jwt_secret":          maskSecret(c.JWTSecret),
		"jwt_previous_secret": maskSecret(c.JWTPreviousSecret),
		"geometry_url":        c.GeometryURL,
		"geometry_timeout_ms": fmt.Sprintf("%d", c.GeometryTimeoutMS),
		"stripe_api_key":      maskStripeKey(c.StripeAPIKey),
		"stripe_webhook_secret": maskSecret(c.StripeWebhookSecret),
		"stripe_success_url":  c.StripeSuccessURL,
		"stripe_cancel_url":   c.StripeCancelURL,
		"currency":            c.Currency,
		"debounce_ms":         fmt.Sprintf("%d", c.DebounceMS),
		"history_depth":       fmt.Sprintf("%d", c.HistoryDepth),
		"price_deviation":     fmt.Sprintf("%d", c.PriceDeviation),
		"otlp_endpoint":       c.OTLPEndpoint,
	}
}

// maskSecret masks a secret value, showing only the first 4 characters followed by ****
// If the secret is shorter than 8 characters, it's fully masked.
func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}

// maskStripeKey masks a Stripe API key, preserving the prefix (sk_live_, sk_test_, etc.)
func maskStripeKey(s string) string {
	if s == "" {
		return "<not set>"
	}

	parts := strings.SplitN(s, "_", 3)
	if len(parts) == 3 {
		return parts[0] + "_" + parts[1] + "_****"
	}

	return maskSecret(s)
}

// maskDatabaseURL masks the password in a database URL.
// Supports both postgres:// and postgresql:// schemes.
func maskDatabaseURL(s string) string {
	if s == "" {
		return "<not set>"
	}

	schemeEnd := strings.Index(s, "://")
	if schemeEnd == -1 {
		return maskSecret(s)
	}

	rest := s[schemeEnd+3:]
	atIndex := strings.Index(rest, "@")
	if atIndex == -1 {
		return s // No credentials in URL
	}

	colonIndex := strings.Index(rest[:atIndex], ":")
	if colonIndex == -1 {
		return s // No password (only username)
	}

	scheme := s[:schemeEnd+3]
	user := rest[:colonIndex]
	hostAndPath := rest[atIndex:]

	return scheme + user + ":****" + hostAndPath
}
