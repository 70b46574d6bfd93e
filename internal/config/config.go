// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Storage   StorageConfig
	Server    ServerConfig
	Reader    ReaderConfig
	RateLimit RateLimitConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// StorageConfig holds position-store configuration.
type StorageConfig struct {
	BasePath string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Name         string
	Port         string        // Server port (default: 8080)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
}

// ReaderConfig holds reader session tuning.
type ReaderConfig struct {
	// MountSettle is how long geometry must stay quiet before the first
	// pagination pass runs (default: 150ms).
	MountSettle time.Duration
	// RecalcWindow is the debounce window for recalculation after resize
	// or settings changes (default: 250ms).
	RecalcWindow time.Duration
	// IdleTTL is how long an untouched session lives before eviction
	// (default: 30m).
	IdleTTL time.Duration
}

// RateLimitConfig holds API rate limiting configuration.
type RateLimitConfig struct {
	Enabled bool
	// RPS is requests per second allowed per client IP (default: 20).
	RPS float64
	// Burst is the maximum burst size per client IP (default: 40).
	Burst int
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	storagePath := flag.String("storage-path", "", "Base path for position storage")
	serverName := flag.String("server-name", "", "Name for the server")

	serverPort := flag.String("port", "", "Server port (default: 8080)")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := flag.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")

	mountSettle := flag.String("mount-settle", "", "Geometry settle window before first pagination (default: 150ms)")
	recalcWindow := flag.String("recalc-window", "", "Debounce window for repagination (default: 250ms)")
	idleTTL := flag.String("session-idle-ttl", "", "Idle session eviction TTL (default: 30m)")

	rateLimitEnabled := flag.String("rate-limit", "", "Enable API rate limiting (default: true)")
	rateLimitRPS := flag.String("rate-limit-rps", "", "Requests per second per client (default: 20)")
	rateLimitBurst := flag.String("rate-limit-burst", "", "Burst size per client (default: 40)")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Storage: StorageConfig{
			BasePath: getConfigValue(*storagePath, "STORAGE_PATH", ""),
		},
		Server: ServerConfig{
			Name: getConfigValue(*serverName, "SERVER_NAME", "Pagekeep Server"),
			Port: getConfigValue(*serverPort, "SERVER_PORT", "8080"),
		},
		RateLimit: RateLimitConfig{
			Enabled: getBoolConfigValue(*rateLimitEnabled, "RATE_LIMIT_ENABLED", true),
			RPS:     getFloatConfigValue(*rateLimitRPS, "RATE_LIMIT_RPS", 20),
			Burst:   getIntConfigValue(*rateLimitBurst, "RATE_LIMIT_BURST", 40),
		},
	}

	// Parse durations.
	durations := []struct {
		dst      *time.Duration
		flag     string
		envKey   string
		fallback string
		label    string
	}{
		{&cfg.Server.ReadTimeout, *readTimeout, "SERVER_READ_TIMEOUT", "15s", "read timeout"},
		{&cfg.Server.WriteTimeout, *writeTimeout, "SERVER_WRITE_TIMEOUT", "15s", "write timeout"},
		{&cfg.Server.IdleTimeout, *idleTimeout, "SERVER_IDLE_TIMEOUT", "60s", "idle timeout"},
		{&cfg.Reader.MountSettle, *mountSettle, "READER_MOUNT_SETTLE", "150ms", "mount settle window"},
		{&cfg.Reader.RecalcWindow, *recalcWindow, "READER_RECALC_WINDOW", "250ms", "recalc window"},
		{&cfg.Reader.IdleTTL, *idleTTL, "READER_IDLE_TTL", "30m", "session idle TTL"},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flag, d.envKey, d.fallback)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.label, raw, err)
		}
		*d.dst = parsed
	}

	// Expand and validate storage path.
	if err := cfg.expandStoragePath(); err != nil {
		return nil, fmt.Errorf("invalid storage path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Storage.BasePath == "" {
		return errors.New("storage base path cannot be empty after expansion")
	}

	if c.Reader.MountSettle <= 0 || c.Reader.RecalcWindow <= 0 {
		return errors.New("reader debounce windows must be positive")
	}
	if c.Reader.IdleTTL <= 0 {
		return errors.New("session idle TTL must be positive")
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.RPS <= 0 {
			return fmt.Errorf("rate limit rps must be positive, got %v", c.RateLimit.RPS)
		}
		if c.RateLimit.Burst <= 0 {
			return fmt.Errorf("rate limit burst must be positive, got %d", c.RateLimit.Burst)
		}
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	// Expand tilde.
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandStoragePath expands ~ and makes the path absolute.
// Defaults to ~/Pagekeep/data when unset.
func (c *Config) expandStoragePath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "Pagekeep", "data")

	expanded, err := expandPath(c.Storage.BasePath, defaultPath)
	if err != nil {
		return err
	}
	c.Storage.BasePath = expanded
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

// getFloatConfigValue returns a float64 from flag, env var, or default.
func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result float64
	if _, err := fmt.Sscanf(strValue, "%g", &result); err != nil {
		return defaultValue
	}
	return result
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=value.
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present.
		value = strings.Trim(value, `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
