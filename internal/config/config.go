// Package config provides application configuration management with support
// for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds the application configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Server    ServerConfig
	Library   LibraryConfig
	Scanner   ScannerConfig
	Scheduler SchedulerConfig
	Artwork   ArtworkConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string `validate:"required,oneof=development staging production"`
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string `validate:"required,oneof=debug info warn error"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string        `validate:"required,numeric"`
	ReadTimeout  time.Duration `validate:"gt=0"`
	WriteTimeout time.Duration `validate:"gte=0"` // 0 = unlimited, SSE needs this
	IdleTimeout  time.Duration `validate:"gt=0"`
}

// LibraryConfig holds music library configuration.
type LibraryConfig struct {
	// MusicPath is the library root every track path is relative to.
	MusicPath string `validate:"required"`
	// DataPath holds the SQLite database and the search index.
	DataPath string `validate:"required"`
}

// ScannerConfig holds scan pipeline configuration.
type ScannerConfig struct {
	// Workers is the tag-extraction pool size; 0 means NumCPU.
	Workers int `validate:"gte=0"`
	// WatchEnabled turns on the filesystem watcher.
	WatchEnabled bool
	// WatchDebounce is the quiet period before a change burst triggers a scan.
	WatchDebounce time.Duration `validate:"gte=0"`
}

// SchedulerConfig holds periodic job configuration. A zero interval disables
// that job.
type SchedulerConfig struct {
	ScanInterval    time.Duration `validate:"gte=0"`
	ArtworkInterval time.Duration `validate:"gte=0"`
}

// ArtworkConfig holds external artwork-fetch helper configuration.
type ArtworkConfig struct {
	// Command is the path to the helper executable; it receives the library
	// root as its only argument.
	Command string
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig(args []string) (*Config, error) {
	fs := flag.NewFlagSet("rompmusic", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	musicPath := fs.String("music-path", "", "Path to the music library")
	dataPath := fs.String("data-path", "", "Base path for database and search index")

	serverPort := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 0, unlimited for SSE)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")

	scanWorkers := fs.String("scan-workers", "", "Tag extraction workers (default: number of CPUs)")
	watchEnabled := fs.String("watch", "", "Watch the library for changes (default: true)")
	watchDebounce := fs.String("watch-debounce", "", "Watcher debounce window (default: 5s)")

	scanInterval := fs.String("scan-interval", "", "Periodic scan interval, 0 disables (default: 0)")
	artworkInterval := fs.String("artwork-interval", "", "Periodic artwork fetch interval, 0 disables (default: 0)")
	artworkCommand := fs.String("artwork-command", "", "Path to the artwork-fetch helper")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Port: getConfigValue(*serverPort, "SERVER_PORT", "8080"),
		},
		Library: LibraryConfig{
			MusicPath: getConfigValue(*musicPath, "MUSIC_PATH", ""),
			DataPath:  getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Scanner: ScannerConfig{
			Workers:      getIntConfigValue(*scanWorkers, "SCAN_WORKERS", 0),
			WatchEnabled: getBoolConfigValue(*watchEnabled, "WATCH_ENABLED", true),
		},
		Artwork: ArtworkConfig{
			Command: getConfigValue(*artworkCommand, "ARTWORK_COMMAND", ""),
		},
	}

	durations := []struct {
		dst      *time.Duration
		flag     string
		envKey   string
		fallback string
	}{
		{&cfg.Server.ReadTimeout, *readTimeout, "SERVER_READ_TIMEOUT", "15s"},
		{&cfg.Server.WriteTimeout, *writeTimeout, "SERVER_WRITE_TIMEOUT", "0s"},
		{&cfg.Server.IdleTimeout, *idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"},
		{&cfg.Scanner.WatchDebounce, *watchDebounce, "WATCH_DEBOUNCE", "5s"},
		{&cfg.Scheduler.ScanInterval, *scanInterval, "SCAN_INTERVAL", "0s"},
		{&cfg.Scheduler.ArtworkInterval, *artworkInterval, "ARTWORK_INTERVAL", "0s"},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flag, d.envKey, d.fallback)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", strings.ToLower(d.envKey), raw, err)
		}
		*d.dst = parsed
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

var validate = validator.New()

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	return validate.Struct(c)
}

// expandPaths resolves ~ and relative paths. DataPath defaults under the
// user's home directory when unset.
func (c *Config) expandPaths() error {
	if c.Library.DataPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		c.Library.DataPath = filepath.Join(homeDir, "RompMusic", "data")
	}

	expanded, err := expandPath(c.Library.DataPath)
	if err != nil {
		return fmt.Errorf("invalid data path: %w", err)
	}
	c.Library.DataPath = expanded

	if c.Library.MusicPath != "" {
		expanded, err := expandPath(c.Library.MusicPath)
		if err != nil {
			return fmt.Errorf("invalid music path: %w", err)
		}
		c.Library.MusicPath = expanded
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
func expandPath(path string) (string, error) {
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

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		value = strings.Trim(value, `"'`)

		// Real environment variables take precedence over .env entries.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
