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
		App:    AppConfig{Environment: "development"},
		Logger: LoggerConfig{Level: "info"},
		Server: ServerConfig{
			Port:        "8080",
			ReadTimeout: 15 * time.Second,
			IdleTimeout: 60 * time.Second,
		},
		Library: LibraryConfig{
			MusicPath: "/music",
			DataPath:  "/data",
		},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	err := validConfig().Validate()
	assert.NoError(t, err)
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
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env
			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_AllLogLevels(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"debug", true},
		{"info", true},
		{"warn", true},
		{"error", true},
		{"verbose", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := validConfig()
			cfg.Logger.Level = tt.level
			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_RequiresMusicPath(t *testing.T) {
	cfg := validConfig()
	cfg.Library.MusicPath = ""
	assert.Error(t, cfg.Validate())
}

func TestValidate_NonNumericPort(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = "eighty"
	assert.Error(t, cfg.Validate())
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("MUSIC_PATH", "/music")
	t.Setenv("DATA_PATH", "/data")

	cfg, err := LoadConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, time.Duration(0), cfg.Server.WriteTimeout)
	assert.True(t, cfg.Scanner.WatchEnabled)
	assert.Equal(t, 5*time.Second, cfg.Scanner.WatchDebounce)
	assert.Equal(t, time.Duration(0), cfg.Scheduler.ScanInterval)
}

func TestLoadConfig_FlagsBeatEnv(t *testing.T) {
	t.Setenv("MUSIC_PATH", "/from-env")
	t.Setenv("DATA_PATH", "/data")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := LoadConfig([]string{"-music-path", "/from-flag", "-log-level", "debug"})
	require.NoError(t, err)

	assert.Equal(t, "/from-flag", cfg.Library.MusicPath)
	assert.Equal(t, "debug", cfg.Logger.Level)
}

func TestLoadConfig_InvalidDuration(t *testing.T) {
	t.Setenv("MUSIC_PATH", "/music")
	t.Setenv("DATA_PATH", "/data")
	t.Setenv("SCAN_INTERVAL", "whenever")

	_, err := LoadConfig(nil)
	assert.Error(t, err)
}

func TestGetConfigValue_Precedence(t *testing.T) {
	t.Setenv("ROMP_TEST_KEY", "from-env")

	assert.Equal(t, "from-flag", getConfigValue("from-flag", "ROMP_TEST_KEY", "fallback"))
	assert.Equal(t, "from-env", getConfigValue("", "ROMP_TEST_KEY", "fallback"))
	assert.Equal(t, "fallback", getConfigValue("", "ROMP_TEST_MISSING", "fallback"))
}

func TestLoadEnvFile_ValidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# comment\n\nROMP_ENVFILE_A=hello\nROMP_ENVFILE_B=\"quoted\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Cleanup(func() {
		os.Unsetenv("ROMP_ENVFILE_A")
		os.Unsetenv("ROMP_ENVFILE_B")
	})

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "hello", os.Getenv("ROMP_ENVFILE_A"))
	assert.Equal(t, "quoted", os.Getenv("ROMP_ENVFILE_B"))
}

func TestLoadEnvFile_ExistingEnvVarsNotOverwritten(t *testing.T) {
	t.Setenv("ROMP_ENVFILE_C", "real-env")

	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("ROMP_ENVFILE_C=from-file\n"), 0o644))

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "real-env", os.Getenv("ROMP_ENVFILE_C"))
}

func TestLoadEnvFile_InvalidFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("not a pair\n"), 0o644))

	assert.Error(t, loadEnvFile(path))
}

func TestLoadEnvFile_NonExistentFile(t *testing.T) {
	assert.Error(t, loadEnvFile("/nonexistent/.env"))
}
