package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/terraincognita07/cycleapp/internal/security"
)

var (
	ErrSecretKeyMissing     = errors.New("SECRET_KEY is required")
	ErrSecretKeyPlaceholder = errors.New("SECRET_KEY uses a placeholder value")
	ErrPortInvalid          = errors.New("PORT must be between 1 and 65535")
)

var secretPlaceholders = map[string]struct{}{
	"change_me_in_production":                    {},
	"replace_with_at_least_32_random_characters": {},
	"changeme":                                   {},
	"secret":                                     {},
}

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Reconcile  ReconcileConfig
	Auth       AuthConfig
	Jobs       JobsConfig
	Telegram   TelegramConfig
	NATS       NATSConfig
	Analytics  AnalyticsConfig
	Location   *time.Location
	TimeZoneOK bool
}

type ServerConfig struct {
	Port      string
	SecretKey string
}

type DatabaseConfig struct {
	Path string
}

type ReconcileConfig struct {
	Interval            time.Duration
	MaxAttempts         int
	RetryBaseDelay      time.Duration
	ForecastCycles      int
	OvulationWindowDays int
	VariationRefreshAge time.Duration
}

type AuthConfig struct {
	CodeTTL    time.Duration
	CodeLength int
}

type JobsConfig struct {
	ReminderSchedule  string
	CodePurgeSchedule string
}

type TelegramConfig struct {
	BotToken string
	ChatID   string
}

// Enabled reports whether both bot credentials are present.
func (cfg TelegramConfig) Enabled() bool {
	return cfg.BotToken != "" && cfg.ChatID != ""
}

type NATSConfig struct {
	URL string
}

type AnalyticsConfig struct {
	Cycles int
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

func FromEnv() (*Config, error) {
	secretKey, err := resolveSecretKey()
	if err != nil {
		return nil, err
	}
	port, err := resolvePort()
	if err != nil {
		return nil, err
	}
	location, ok := resolveLocation(getEnv("TZ", "UTC"))

	return &Config{
		Server: ServerConfig{
			Port:      port,
			SecretKey: secretKey,
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", filepath.Join("data", "cycleapp.db")),
		},
		Reconcile: ReconcileConfig{
			Interval:            getDuration("RECONCILE_INTERVAL", 24*time.Hour),
			MaxAttempts:         getInt("RECONCILE_MAX_ATTEMPTS", 3),
			RetryBaseDelay:      getDuration("RECONCILE_RETRY_BASE_DELAY", time.Second),
			ForecastCycles:      getInt("FORECAST_CYCLES", 3),
			OvulationWindowDays: getInt("OVULATION_WINDOW_DAYS", 3),
			VariationRefreshAge: getDuration("VARIATION_REFRESH_AGE", 7*24*time.Hour),
		},
		Auth: AuthConfig{
			CodeTTL:    getDuration("VERIFICATION_CODE_TTL", 15*time.Minute),
			CodeLength: getInt("VERIFICATION_CODE_LENGTH", 6),
		},
		Jobs: JobsConfig{
			ReminderSchedule:  getEnv("REMINDER_SCHEDULE", "0 8 * * *"),
			CodePurgeSchedule: getEnv("CODE_PURGE_SCHEDULE", "@every 10m"),
		},
		Telegram: TelegramConfig{
			BotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
			ChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		},
		NATS: NATSConfig{
			URL: getEnv("NATS_URL", ""),
		},
		Analytics: AnalyticsConfig{
			Cycles: getInt("ANALYTICS_CYCLES", 6),
		},
		Location:   location,
		TimeZoneOK: ok,
	}, nil
}

// DatabasePath reads DB_PATH alone, for commands that do not need the full configuration.
func DatabasePath() string {
	_ = godotenv.Load()
	return getEnv("DB_PATH", filepath.Join("data", "cycleapp.db"))
}

func resolveSecretKey() (string, error) {
	secret := strings.TrimSpace(os.Getenv("SECRET_KEY"))
	if secret == "" {
		return "", ErrSecretKeyMissing
	}
	if _, placeholder := secretPlaceholders[strings.ToLower(secret)]; placeholder {
		return "", ErrSecretKeyPlaceholder
	}
	if len(secret) < security.MinSecretLength {
		return "", fmt.Errorf("SECRET_KEY must be at least %d characters: %w", security.MinSecretLength, security.ErrSecretTooShort)
	}
	return secret, nil
}

func resolvePort() (string, error) {
	raw := getEnv("PORT", "8080")
	port, err := strconv.Atoi(raw)
	if err != nil || port < 1 || port > 65535 {
		return "", fmt.Errorf("%w: %q", ErrPortInvalid, raw)
	}
	return strconv.Itoa(port), nil
}

func resolveLocation(name string) (*time.Location, bool) {
	location, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC, false
	}
	return location, true
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return fallback
}
