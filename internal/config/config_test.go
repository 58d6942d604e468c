package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:       AppConfig{Environment: "development"},
		Logger:    LoggerConfig{Level: "info"},
		Storage:   StorageConfig{DataPath: "/var/lib/eventsphere"},
		Scheduler: SchedulerConfig{Interval: time.Minute},
		CheckIn:   CheckInConfig{RedeemRate: 1, RedeemBurst: 5},
		Photos:    PhotosConfig{MaxBytes: DefaultPhotoMaxBytes},
	}
}

// clearEnv unsets every variable Load reads. t.Setenv restores the previous
// values, including anything godotenv writes during the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ENV", "LOG_LEVEL", "DATA_PATH", "SWEEP_INTERVAL",
		"CHECKIN_REDEEM_RATE", "CHECKIN_REDEEM_BURST", "PHOTO_MAX_BYTES",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_AllEnvironments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"test", false},
		{"", false},
		{"DEVELOPMENT", false},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env
			if tt.valid {
				assert.NoError(t, cfg.Validate())
			} else {
				assert.Error(t, cfg.Validate())
			}
		})
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"log level", func(c *Config) { c.Logger.Level = "trace" }},
		{"empty data path", func(c *Config) { c.Storage.DataPath = "" }},
		{"zero interval", func(c *Config) { c.Scheduler.Interval = 0 }},
		{"negative rate", func(c *Config) { c.CheckIn.RedeemRate = -1 }},
		{"zero burst", func(c *Config) { c.CheckIn.RedeemBurst = 0 }},
		{"zero photo limit", func(c *Config) { c.Photos.MaxBytes = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	cfg, err := Load([]string{"-env-file", filepath.Join(t.TempDir(), "missing.env")})
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, filepath.Join(home, "EventSphere", "data"), cfg.Storage.DataPath)
	assert.Equal(t, DefaultSchedulerInterval, cfg.Scheduler.Interval)
	assert.Equal(t, DefaultRedeemRate, cfg.CheckIn.RedeemRate)
	assert.Equal(t, DefaultRedeemBurst, cfg.CheckIn.RedeemBurst)
	assert.Equal(t, int64(DefaultPhotoMaxBytes), cfg.Photos.MaxBytes)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("SWEEP_INTERVAL", "5m")

	cfg, err := Load([]string{
		"-env-file", filepath.Join(dir, "missing.env"),
		"-log-level", "debug",
		"-data-path", dir,
		"-redeem-rate", "0.5",
	})
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, 5*time.Minute, cfg.Scheduler.Interval)
	assert.Equal(t, 0.5, cfg.CheckIn.RedeemRate)
	assert.Equal(t, dir, cfg.Storage.DataPath)
	assert.Equal(t, filepath.Join(dir, "eventsphere.db"), cfg.Storage.DatabasePath())
	assert.Equal(t, filepath.Join(dir, "blobs"), cfg.Storage.BlobPath())
	assert.Equal(t, filepath.Join(dir, "search.bleve"), cfg.Storage.SearchPath())
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := "# comment\nLOG_LEVEL=error\nCHECKIN_REDEEM_BURST=9\nPHOTO_MAX_BYTES=1024\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))

	// Variables already set win over the file.
	t.Setenv("CHECKIN_REDEEM_BURST", "3")

	cfg, err := Load([]string{"-env-file", envFile, "-data-path", dir})
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.Logger.Level)
	assert.Equal(t, 3, cfg.CheckIn.RedeemBurst)
	assert.Equal(t, int64(1024), cfg.Photos.MaxBytes)
}

func TestLoad_InvalidInterval(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	_, err := Load([]string{"-env-file", filepath.Join(dir, "x"), "-sweep-interval", "soon"})
	assert.Error(t, err)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	wd, err := os.Getwd()
	require.NoError(t, err)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty uses default", "", "/default"},
		{"tilde", "~/events", filepath.Join(home, "events")},
		{"absolute", "/srv/data/", "/srv/data"},
		{"relative", "data", filepath.Join(wd, "data")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expandPath(tt.in, "/default")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetConfigValue_Precedence(t *testing.T) {
	t.Setenv("ES_TEST_KEY", "from-env")

	assert.Equal(t, "from-flag", getConfigValue("from-flag", "ES_TEST_KEY", "default"))
	assert.Equal(t, "from-env", getConfigValue("", "ES_TEST_KEY", "default"))
	assert.Equal(t, "default", getConfigValue("", "ES_TEST_UNSET_KEY", "default"))
}
