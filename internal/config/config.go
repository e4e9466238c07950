// Package config contains everything related to configuration
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	APIKey          string
	BaseURL         string
	CatalogURL      string
	TargetOfferName string

	ProbeURLs    []string
	ProbeTimeout time.Duration

	RefreshInterval      time.Duration
	RecoveryPollInterval time.Duration
	PostTriggerPause     time.Duration
	PurchaseCooldown     time.Duration
	CancelSentinel       string

	SessionPath  string
	DatabasePath string
	LogPath      string
	LogLevel     string

	DesktopNotify  bool
	TelegramToken  string
	TelegramChatID int64
}

// Default values
const (
	defaultBaseURL              = "https://api.myxl.xlaxiata.co.id"
	defaultCatalogURL           = "https://me.mashu.lol/pg-hot2.json"
	defaultTargetOfferName      = "Masa Aktif 30 Hari + 100MB"
	defaultProbeURL             = "https://www.google.com/generate_204"
	defaultProbeTimeout         = 4 * time.Second
	defaultRefreshInterval      = 20 * time.Second
	defaultRecoveryPollInterval = 3 * time.Second
	defaultPostTriggerPause     = 400 * time.Millisecond
	defaultPurchaseCooldown     = 3 * time.Minute
	defaultCancelSentinel       = "99"
)

// Load reads configuration from .env files and environment variables.
func Load() (*Config, error) {
	// Try loading .env from multiple locations
	envPaths := getEnvPaths()
	for _, path := range envPaths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			break
		}
	}

	catalogURL := getEnvString("CATALOG_URL", defaultCatalogURL)

	cfg := &Config{
		APIKey:               getEnvString("BILLING_API_KEY", ""),
		BaseURL:              strings.TrimRight(getEnvString("BILLING_BASE_URL", defaultBaseURL), "/"),
		CatalogURL:           catalogURL,
		TargetOfferName:      getEnvString("TARGET_OFFER_NAME", defaultTargetOfferName),
		ProbeURLs:            getEnvList("PROBE_URLS", []string{defaultProbeURL, catalogURL}),
		ProbeTimeout:         getEnvDuration("PROBE_TIMEOUT", defaultProbeTimeout),
		RefreshInterval:      getEnvDuration("REFRESH_INTERVAL", defaultRefreshInterval),
		RecoveryPollInterval: getEnvDuration("RECOVERY_POLL_INTERVAL", defaultRecoveryPollInterval),
		PostTriggerPause:     getEnvDuration("POST_TRIGGER_PAUSE", defaultPostTriggerPause),
		PurchaseCooldown:     getEnvDuration("PURCHASE_COOLDOWN", defaultPurchaseCooldown),
		CancelSentinel:       getEnvString("CANCEL_SENTINEL", defaultCancelSentinel),
		SessionPath:          getEnvString("SESSION_PATH", getDefaultPath("session.json")),
		DatabasePath:         getEnvString("DATABASE_PATH", getDefaultPath("history.db")),
		LogPath:              getEnvString("LOG_PATH", ""),
		LogLevel:             getEnvString("LOG_LEVEL", "info"),
		DesktopNotify:        getEnvBool("DESKTOP_NOTIFY", true),
		TelegramToken:        getEnvString("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:       getEnvInt64("TELEGRAM_CHAT_ID", 0),
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("BILLING_API_KEY is required (set via env or .env file)")
	}
	if len(cfg.ProbeURLs) < 2 {
		return nil, fmt.Errorf("PROBE_URLS needs at least two independent endpoints, got %d", len(cfg.ProbeURLs))
	}

	// Ensure database directory exists
	if err := ensureDir(filepath.Dir(cfg.DatabasePath)); err != nil {
		return nil, err
	}

	// Ensure session directory exists
	if err := ensureDir(filepath.Dir(cfg.SessionPath)); err != nil {
		return nil, err
	}

	return cfg, nil
}

// TelegramEnabled reports whether chat notifications are configured.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != 0
}

// getEnvPaths returns a list of paths to check for .env files.
func getEnvPaths() []string {
	var paths []string

	// Current directory
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}

	// Home directory locations
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "quota-autopay", ".env"),
			filepath.Join(home, ".quota-autopay", ".env"),
		)
	}

	return paths
}

// getDefaultPath returns the default location of a file in the config directory.
func getDefaultPath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(home, ".config", "quota-autopay", name)
}

// getEnvString retrieves a string environment variable or returns the default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList splits a comma or space separated variable, dropping blanks.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	out := strings.Fields(strings.ReplaceAll(value, ",", " "))
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// getEnvDuration retrieves a duration environment variable or returns the default.
// Accepts values like "30s", "1m", "500ms".
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		// Try parsing as seconds if no unit specified
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns the default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvInt64 retrieves an integer environment variable or returns the default.
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}

// ensureDir creates a directory and all parent directories if they don't exist.
func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	return os.MkdirAll(path, 0o750)
}
