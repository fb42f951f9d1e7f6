package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variable names for Zoom server-to-server OAuth credentials.
const (
	EnvAccountID    = "ZOOM_ACCOUNT_ID"
	EnvClientID     = "ZOOM_CLIENT_ID"
	EnvClientSecret = "ZOOM_CLIENT_SECRET"
)

// Optional environment variables.
const (
	EnvBaseURL      = "ZOOM_BASE_URL"
	EnvTokenURL     = "ZOOM_TOKEN_URL"
	EnvListScope    = "ZOOM_LIST_SCOPE"
	EnvDownloadRoot = "ZOOMSCRIBE_DOWNLOAD_ROOT"
	EnvConcurrency  = "ZOOMSCRIBE_CONCURRENCY"
	EnvRangeDays    = "ZOOMSCRIBE_RANGE_DAYS"
	EnvLogLevel     = "ZOOMSCRIBE_LOG_LEVEL"
	EnvLogFormat    = "ZOOMSCRIBE_LOG_FORMAT"
)

// Defaults applied when the corresponding environment variable is unset.
const (
	DefaultDownloadRoot = "downloads"
	DefaultConcurrency  = 4
	DefaultRangeDays    = 30
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "auto"
)

// maskSuffixLength is how many trailing characters survive masking.
const maskSuffixLength = 4

// Credentials holds Zoom server-to-server OAuth credentials loaded from the
// environment. The String method masks all secret material so a Credentials
// value is safe to print.
type Credentials struct {
	AccountID    string
	ClientID     string
	ClientSecret string
}

// String returns a redacted representation safe for logs.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials(account_id=%s, client_id=%s, client_secret=***)",
		Mask(c.AccountID), Mask(c.ClientID))
}

// Mask returns a partially redacted form of value for logging.
// Values at or below the suffix length are fully masked.
func Mask(value string) string {
	if len(value) <= maskSuffixLength {
		return "***"
	}
	return "***" + value[len(value)-maskSuffixLength:]
}

// Logging holds structured logging configuration.
type Logging struct {
	// Level is one of: debug, info, warn, error.
	Level string

	// Format is one of: json, text, auto. Auto picks text when stderr is a
	// terminal and json otherwise.
	Format string
}

// Downloader holds configuration for the recording asset downloader.
type Downloader struct {
	// TargetDir is the root directory downloads are written beneath.
	TargetDir string

	// Overwrite re-downloads files that already exist on disk.
	Overwrite bool

	// DryRun plans downloads without writing any files.
	DryRun bool

	// Concurrency is the number of parallel download workers.
	Concurrency int
}

// Config is the unified application configuration.
type Config struct {
	Credentials Credentials

	// BaseURL overrides the Zoom API base URL, mainly for tests.
	BaseURL string

	// TokenURL overrides the OAuth token endpoint, mainly for tests.
	TokenURL string

	// Scope selects the listing scope: "user" or "account".
	Scope string

	// RangeDays is the default lookback window for listings.
	RangeDays int

	Logging    Logging
	Downloader Downloader
}

// Load reads configuration from the environment, optionally preloading a
// dotenv file. Values already present in the environment take precedence
// over the dotenv file. envFile may be empty, in which case ".env" is loaded
// when it exists.
func Load(envFile string) (*Config, error) {
	if err := loadDotenv(envFile); err != nil {
		return nil, err
	}

	creds := Credentials{
		AccountID:    os.Getenv(EnvAccountID),
		ClientID:     os.Getenv(EnvClientID),
		ClientSecret: os.Getenv(EnvClientSecret),
	}
	if err := validateCredentials(creds); err != nil {
		return nil, err
	}

	concurrency, err := getEnvIntOrDefault(EnvConcurrency, DefaultConcurrency)
	if err != nil {
		return nil, err
	}
	if concurrency < 1 {
		return nil, fmt.Errorf("%s must be at least 1, got %d", EnvConcurrency, concurrency)
	}

	rangeDays, err := getEnvIntOrDefault(EnvRangeDays, DefaultRangeDays)
	if err != nil {
		return nil, err
	}
	if rangeDays < 1 {
		return nil, fmt.Errorf("%s must be at least 1, got %d", EnvRangeDays, rangeDays)
	}

	scope := getEnvOrDefault(EnvListScope, "user")
	if scope != "user" && scope != "account" {
		return nil, fmt.Errorf("%s must be %q or %q, got %q", EnvListScope, "user", "account", scope)
	}

	cfg := &Config{
		Credentials: creds,
		BaseURL:     os.Getenv(EnvBaseURL),
		TokenURL:    os.Getenv(EnvTokenURL),
		Scope:       scope,
		RangeDays:   rangeDays,
		Logging: Logging{
			Level:  getEnvOrDefault(EnvLogLevel, DefaultLogLevel),
			Format: getEnvOrDefault(EnvLogFormat, DefaultLogFormat),
		},
		Downloader: Downloader{
			TargetDir:   getEnvOrDefault(EnvDownloadRoot, DefaultDownloadRoot),
			Concurrency: concurrency,
		},
	}

	return cfg, nil
}

// loadDotenv loads the named dotenv file, or ".env" from the working
// directory when no name is given. Existing environment variables are never
// overridden. A missing default file is not an error; a missing explicit
// file is.
func loadDotenv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
		return nil
	}

	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return fmt.Errorf("failed to load .env: %w", err)
		}
	}
	return nil
}

// validateCredentials reports every missing credential variable at once so
// the operator can fix them in a single pass.
func validateCredentials(creds Credentials) error {
	var missing []string
	for _, v := range []struct {
		name  string
		value string
	}{
		{EnvAccountID, creds.AccountID},
		{EnvClientID, creds.ClientID},
		{EnvClientSecret, creds.ClientSecret},
	} {
		if v.value == "" {
			missing = append(missing, v.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing Zoom OAuth credentials: %s", strings.Join(missing, ", "))
	}
	return nil
}

// getEnvOrDefault returns the value of an environment variable or a default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvIntOrDefault returns the integer value of an environment variable or
// a default value. Unlike the boolean helpers elsewhere, a malformed integer
// is an error rather than silently falling back, since a typo in a
// concurrency setting should not go unnoticed.
func getEnvIntOrDefault(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for %s: %q", key, value)
	}
	return parsed, nil
}
