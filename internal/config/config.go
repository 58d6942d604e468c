// Package config loads EventSphere configuration from flags, environment variables and .env files.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Storage   StorageConfig
	Scheduler SchedulerConfig
	CheckIn   CheckInConfig
	Photos    PhotosConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// StorageConfig locates on-disk state. Everything lives under DataPath.
type StorageConfig struct {
	DataPath string
}

// DatabasePath is the sqlite file.
func (s StorageConfig) DatabasePath() string { return filepath.Join(s.DataPath, "eventsphere.db") }

// BlobPath is the badger directory holding event photos.
func (s StorageConfig) BlobPath() string { return filepath.Join(s.DataPath, "blobs") }

// SearchPath is the bleve index directory.
func (s StorageConfig) SearchPath() string { return filepath.Join(s.DataPath, "search.bleve") }

// SchedulerConfig controls the lifecycle sweep.
type SchedulerConfig struct {
	Interval time.Duration // default 60s
}

// CheckInConfig throttles check-in redemption per caller.
type CheckInConfig struct {
	RedeemRate  float64 // tokens per second
	RedeemBurst int
}

// PhotosConfig bounds event photo uploads.
type PhotosConfig struct {
	MaxBytes int64 // default 5 MiB
}

// Defaults.
const (
	DefaultSchedulerInterval = 60 * time.Second
	DefaultRedeemRate        = 1.0
	DefaultRedeemBurst       = 5
	DefaultPhotoMaxBytes     = 5 << 20
)

// LoadConfig loads configuration with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load is LoadConfig with explicit arguments.
func Load(args []string) (*Config, error) {
	fset := flag.NewFlagSet("eventsphere", flag.ContinueOnError)
	fset.SetOutput(io.Discard)

	env := fset.String("env", "", "Environment (development, staging, production)")
	logLevel := fset.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := fset.String("data-path", "", "Directory for the database, photos and search index")
	sweepInterval := fset.String("sweep-interval", "", "Lifecycle sweep interval (default: 60s)")
	redeemRate := fset.String("redeem-rate", "", "Check-in redemptions per second per user (default: 1)")
	redeemBurst := fset.String("redeem-burst", "", "Check-in redemption burst per user (default: 5)")
	photoMax := fset.String("photo-max-bytes", "", "Maximum photo size in bytes (default: 5 MiB)")
	envFile := fset.String("env-file", ".env", "Path to .env file")

	if err := fset.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// godotenv.Load never overrides variables already present in the environment.
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file %s: %w", *envFile, err)
	}

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Storage: StorageConfig{
			DataPath: getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		CheckIn: CheckInConfig{
			RedeemBurst: getIntConfigValue(*redeemBurst, "CHECKIN_REDEEM_BURST", DefaultRedeemBurst),
		},
		Photos: PhotosConfig{
			MaxBytes: int64(getIntConfigValue(*photoMax, "PHOTO_MAX_BYTES", DefaultPhotoMaxBytes)),
		},
	}

	intervalStr := getConfigValue(*sweepInterval, "SWEEP_INTERVAL", DefaultSchedulerInterval.String())
	interval, err := time.ParseDuration(intervalStr)
	if err != nil {
		return nil, fmt.Errorf("invalid sweep interval %q: %w", intervalStr, err)
	}
	cfg.Scheduler.Interval = interval

	rateStr := getConfigValue(*redeemRate, "CHECKIN_REDEEM_RATE", "")
	cfg.CheckIn.RedeemRate = DefaultRedeemRate
	if rateStr != "" {
		rate, err := strconv.ParseFloat(rateStr, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid redeem rate %q: %w", rateStr, err)
		}
		cfg.CheckIn.RedeemRate = rate
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all config values are present and in range.
func (c *Config) Validate() error {
	switch c.App.Environment {
	case "development", "staging", "production":
	case "":
		return errors.New("ENV is required")
	default:
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	switch strings.ToLower(c.Logger.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Storage.DataPath == "" {
		return errors.New("data path cannot be empty after expansion")
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("sweep interval must be positive, got %s", c.Scheduler.Interval)
	}
	if c.CheckIn.RedeemRate <= 0 || c.CheckIn.RedeemBurst <= 0 {
		return errors.New("check-in redeem rate and burst must be positive")
	}
	if c.Photos.MaxBytes <= 0 {
		return errors.New("photo size limit must be positive")
	}
	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty the default is returned unchanged.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	expanded, err := expandPath(c.Storage.DataPath, filepath.Join(homeDir, "EventSphere", "data"))
	if err != nil {
		return err
	}
	c.Storage.DataPath = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
// Unparseable values fall back to the default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(strValue)
	if err != nil {
		return defaultValue
	}
	return n
}
