// Package config handles loading and validating configuration from a YAML
// file, a .env file and environment variables.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileEnv names the variable pointing at the optional YAML config file.
const FileEnv = "DASHBOARD_CONFIG"

// Config holds all configuration values for the dashboard.
type Config struct {
	// Bot API
	BackendURL     string
	PollInterval   time.Duration
	RequestTimeout time.Duration // 0 means no client timeout

	// Optional websocket that announces backend changes
	ChangeFeedURL string

	// Signal filter
	MinWhales  int
	MinSources int

	// Display
	ReferenceCapitalUSD float64 // 0 uses the balance
	MarketURLBase       string

	// UI
	EnableTUI bool

	// Logging
	LogLevel string
	LogFile  string
}

// fileConfig mirrors Config in the YAML file. Pointers tell unset keys apart
// from zero values.
type fileConfig struct {
	BackendURL            *string  `yaml:"backend_url"`
	PollIntervalMS        *int     `yaml:"poll_interval_ms"`
	RequestTimeoutSeconds *int     `yaml:"request_timeout_seconds"`
	ChangeFeedURL         *string  `yaml:"change_feed_url"`
	MinWhales             *int     `yaml:"min_whales"`
	MinSources            *int     `yaml:"min_sources"`
	ReferenceCapitalUSD   *float64 `yaml:"reference_capital_usd"`
	MarketURLBase         *string  `yaml:"market_url_base"`
	EnableTUI             *bool    `yaml:"enable_tui"`
	LogLevel              *string  `yaml:"log_level"`
	LogFile               *string  `yaml:"log_file"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		BackendURL:     "http://localhost:5000",
		PollInterval:   5000 * time.Millisecond,
		RequestTimeout: 0,
		MinWhales:      2,
		MinSources:     1,
		MarketURLBase:  "https://polymarket.com",
		EnableTUI:      true,
		LogLevel:       "INFO",
		LogFile:        "./dashboard.log",
	}
}

// Load reads configuration.
// Priority order: Environment variables > .env file > YAML file > hardcoded defaults
func Load() (*Config, error) {
	// Attempt to load .env file (ignore error if not found)
	_ = godotenv.Load()

	cfg := Defaults()
	if path := os.Getenv(FileEnv); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var fc fileConfig
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return err
	}

	setString(&c.BackendURL, fc.BackendURL)
	setString(&c.ChangeFeedURL, fc.ChangeFeedURL)
	setString(&c.MarketURLBase, fc.MarketURLBase)
	setString(&c.LogLevel, fc.LogLevel)
	setString(&c.LogFile, fc.LogFile)
	if fc.PollIntervalMS != nil {
		c.PollInterval = time.Duration(*fc.PollIntervalMS) * time.Millisecond
	}
	if fc.RequestTimeoutSeconds != nil {
		c.RequestTimeout = time.Duration(*fc.RequestTimeoutSeconds) * time.Second
	}
	if fc.MinWhales != nil {
		c.MinWhales = *fc.MinWhales
	}
	if fc.MinSources != nil {
		c.MinSources = *fc.MinSources
	}
	if fc.ReferenceCapitalUSD != nil {
		c.ReferenceCapitalUSD = *fc.ReferenceCapitalUSD
	}
	if fc.EnableTUI != nil {
		c.EnableTUI = *fc.EnableTUI
	}
	return nil
}

func (c *Config) applyEnv() {
	c.BackendURL = getEnv("BACKEND_URL", c.BackendURL)
	c.PollInterval = time.Duration(getEnvInt("POLL_INTERVAL_MS", int(c.PollInterval/time.Millisecond))) * time.Millisecond
	c.RequestTimeout = time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", int(c.RequestTimeout/time.Second))) * time.Second
	c.ChangeFeedURL = getEnv("CHANGE_FEED_URL", c.ChangeFeedURL)

	c.MinWhales = getEnvInt("MIN_WHALES", c.MinWhales)
	c.MinSources = getEnvInt("MIN_SOURCES", c.MinSources)

	c.ReferenceCapitalUSD = getEnvFloat("REFERENCE_CAPITAL_USD", c.ReferenceCapitalUSD)
	c.MarketURLBase = getEnv("MARKET_URL_BASE", c.MarketURLBase)

	c.EnableTUI = getEnvBool("ENABLE_TUI", c.EnableTUI)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFile = getEnv("LOG_FILE", c.LogFile)
}

// Validate checks that required configuration values are set and valid.
func (c *Config) Validate() error {
	if c.BackendURL == "" {
		return fmt.Errorf("BACKEND_URL is required")
	}
	if !hasScheme(c.BackendURL, "http", "https") {
		return fmt.Errorf("BACKEND_URL must be an http or https URL")
	}

	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL_MS must be positive")
	}

	if c.RequestTimeout < 0 {
		return fmt.Errorf("REQUEST_TIMEOUT_SECONDS must not be negative")
	}

	if c.ChangeFeedURL != "" && !hasScheme(c.ChangeFeedURL, "ws", "wss") {
		return fmt.Errorf("CHANGE_FEED_URL must be a ws or wss URL")
	}

	if c.MinWhales < 0 || c.MinSources < 0 {
		return fmt.Errorf("MIN_WHALES and MIN_SOURCES must not be negative")
	}

	if c.ReferenceCapitalUSD < 0 {
		return fmt.Errorf("REFERENCE_CAPITAL_USD must not be negative")
	}

	return nil
}

// MaskedBackendURL returns the backend URL with credentials hidden for logging.
func (c *Config) MaskedBackendURL() string {
	return maskURL(c.BackendURL)
}

// MaskedChangeFeedURL returns the change feed URL with credentials hidden for logging.
func (c *Config) MaskedChangeFeedURL() string {
	return maskURL(c.ChangeFeedURL)
}

func hasScheme(raw string, schemes ...string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	for _, s := range schemes {
		if strings.EqualFold(u.Scheme, s) {
			return true
		}
	}
	return false
}

var secretParams = []string{"token", "key", "secret", "password", "auth"}

// urlMask replaces secrets in URLs. It is written into the URL verbatim.
const urlMask = "****"

// maskURL hides userinfo and secret-looking query values.
func maskURL(raw string) string {
	if raw == "" {
		return "(not set)"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return maskSecret(raw)
	}

	hasUser := u.User != nil
	u.User = nil
	u.RawQuery = maskQuery(u.RawQuery)

	masked := u.String()
	if hasUser {
		masked = strings.Replace(masked, "://", "://"+urlMask+"@", 1)
	}
	return masked
}

// maskQuery masks secret values and keeps everything else, including the
// parameter order, as it was.
func maskQuery(raw string) string {
	if raw == "" {
		return raw
	}
	pairs := strings.Split(raw, "&")
	for i, pair := range pairs {
		name, _, _ := strings.Cut(pair, "=")
		if unescaped, err := url.QueryUnescape(name); err == nil {
			name = unescaped
		}
		if isSecretParam(name) {
			pairs[i] = pair[:strings.IndexByte(pair+"=", '=')] + "=" + urlMask
		}
	}
	return strings.Join(pairs, "&")
}

func isSecretParam(name string) bool {
	lower := strings.ToLower(name)
	for _, s := range secretParams {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// maskSecret hides all but the first and last 4 characters of a secret.
func maskSecret(s string) string {
	if len(s) <= 8 {
		if len(s) == 0 {
			return "(not set)"
		}
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an environment variable as an integer or returns a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat retrieves an environment variable as a float64 or returns a default.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// getEnvBool retrieves an environment variable as a boolean or returns a default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
