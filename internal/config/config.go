package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	BackendNocoDB   = "nocodb"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	Port string

	StoreBackend  string
	NocoDBURL     string
	NocoDBToken   string
	NocoDBBaseID  string
	NocoDBTimeout time.Duration
	DatabaseURI   string

	DiscordToken     string
	DiscordChannelID string

	// UTCOffsetHours is the fixed offset every "today"/hour decision of the
	// scheduler is made in. It is deliberately independent of Timezone.
	UTCOffsetHours    int
	CheckInterval     time.Duration
	InitialCheckDelay time.Duration
	DailySummaryTime  string
	ArchiveTime       string

	Timezone          string
	DefaultRemindTime string
	People            string

	StaticDir          string
	CORSAllowedOrigins string
	MetricsEnabled     bool

	LogLevel  string
	LogFormat string
}

func Load() (*Config, error) {
	// .env file is optional in production
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnvOrDefault("PORT", "3002"),
		StoreBackend:       strings.ToLower(getEnvOrDefault("STORE_BACKEND", BackendNocoDB)),
		NocoDBURL:          getEnvOrDefault("NOCODB_URL", "http://localhost:8080"),
		NocoDBToken:        os.Getenv("NOCODB_TOKEN"),
		NocoDBBaseID:       os.Getenv("NOCODB_BASE_ID"),
		DatabaseURI:        os.Getenv("DATABASE_URI"),
		DiscordToken:       os.Getenv("DISCORD_BOT_TOKEN"),
		DiscordChannelID:   os.Getenv("DISCORD_NOTIFICATION_CHANNEL"),
		DailySummaryTime:   getEnvOrDefault("DAILY_SUMMARY_TIME", "08:00"),
		ArchiveTime:        getEnvOrDefault("ARCHIVE_TIME", "23:00"),
		Timezone:           getEnvOrDefault("TIMEZONE", "Asia/Ho_Chi_Minh"),
		DefaultRemindTime:  getEnvOrDefault("DEFAULT_REMIND_TIME", "10:00"),
		People:             os.Getenv("PEOPLE"),
		StaticDir:          os.Getenv("STATIC_DIR"),
		CORSAllowedOrigins: getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*"),
		LogLevel:           getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          getEnvOrDefault("LOG_FORMAT", "console"),
	}

	var err error
	if cfg.NocoDBTimeout, err = getDurationOrDefault("NOCODB_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.CheckInterval, err = getDurationOrDefault("CHECK_INTERVAL", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.InitialCheckDelay, err = getDurationOrDefault("INITIAL_CHECK_DELAY", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.UTCOffsetHours, err = getIntOrDefault("SCHEDULER_UTC_OFFSET_HOURS", 7); err != nil {
		return nil, err
	}
	if cfg.MetricsEnabled, err = getBoolOrDefault("METRICS_ENABLED", true); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the keys required by the selected backend are set.
func (c *Config) Validate() error {
	var errs []error

	switch c.StoreBackend {
	case BackendNocoDB:
		if c.NocoDBToken == "" {
			errs = append(errs, errors.New("NOCODB_TOKEN is required"))
		}
		if c.NocoDBBaseID == "" {
			errs = append(errs, errors.New("NOCODB_BASE_ID is required"))
		}
	case BackendPostgres:
		if c.DatabaseURI == "" {
			errs = append(errs, errors.New("DATABASE_URI is required"))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend))
	}

	if c.DiscordToken != "" && c.DiscordChannelID == "" {
		errs = append(errs, errors.New("DISCORD_NOTIFICATION_CHANNEL is required when DISCORD_BOT_TOKEN is set"))
	}
	if c.UTCOffsetHours < -12 || c.UTCOffsetHours > 14 {
		errs = append(errs, fmt.Errorf("SCHEDULER_UTC_OFFSET_HOURS out of range: %d", c.UTCOffsetHours))
	}
	if c.CheckInterval <= 0 {
		errs = append(errs, errors.New("CHECK_INTERVAL must be positive"))
	}

	return errors.Join(errs...)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getIntOrDefault(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getBoolOrDefault(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
