// Package config provides pipeline configuration loaded from environment
// variables and an optional .env file. Command-line flags are owned by the
// CLI and override individual fields after loading.
package config

import (
	"bufio"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"
)

// Config holds the pipeline configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Pipeline PipelineConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level  string
	Format string
}

// PipelineConfig holds the policy knobs of the reconciliation and
// embedding pipeline. The tolerance and minimum chapter length are
// deliberately configuration, not constants: the upstream export's clock
// drift varies between books.
type PipelineConfig struct {
	// Workers is the number of concurrent duration probes / tag writes
	// (default: NumCPU).
	Workers int
	// DurationTolerance is the allowed divergence between the sum of part
	// durations and the declared total before a DurationMismatch warning
	// is raised (default: 2s).
	DurationTolerance time.Duration
	// MinChapterLength is the threshold below which a clipped chapter
	// entry is merged into its neighbor instead of emitted (default: 1s).
	MinChapterLength time.Duration
	// CoverMaxEdge is the maximum width/height in pixels for embedded
	// cover art; larger covers are downscaled. Zero disables downscaling
	// (default: 1500).
	CoverMaxEdge int
}

// Load builds configuration with precedence:
// 1. Environment variables.
// 2. .env file (if present at envFile, typically ".env").
// 3. Default values.
func Load(envFile string) (*Config, error) {
	// Load .env file if it exists (silently ignore if not found).
	if envFile != "" {
		_ = loadEnvFile(envFile)
	}

	cfg := &Config{
		App: AppConfig{
			Environment: getEnvValue("ENV", "development"),
		},
		Logger: LoggerConfig{
			Level:  getEnvValue("LOG_LEVEL", "info"),
			Format: getEnvValue("LOG_FORMAT", ""),
		},
		Pipeline: PipelineConfig{
			Workers:      getIntEnvValue("BAKE_WORKERS", runtime.NumCPU()),
			CoverMaxEdge: getIntEnvValue("BAKE_COVER_MAX_EDGE", 1500),
		},
	}

	toleranceStr := getEnvValue("BAKE_DURATION_TOLERANCE", "2s")
	tolerance, err := time.ParseDuration(toleranceStr)
	if err != nil {
		return nil, fmt.Errorf("invalid duration tolerance %q: %w", toleranceStr, err)
	}
	cfg.Pipeline.DurationTolerance = tolerance

	minChapterStr := getEnvValue("BAKE_MIN_CHAPTER_LENGTH", "1s")
	minChapter, err := time.ParseDuration(minChapterStr)
	if err != nil {
		return nil, fmt.Errorf("invalid minimum chapter length %q: %w", minChapterStr, err)
	}
	cfg.Pipeline.MinChapterLength = minChapter

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all config values are present and valid.
func (c *Config) Validate() error {
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

	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", c.Pipeline.Workers)
	}
	if c.Pipeline.DurationTolerance < 0 {
		return fmt.Errorf("duration tolerance must not be negative, got %s", c.Pipeline.DurationTolerance)
	}
	if c.Pipeline.MinChapterLength < 0 {
		return fmt.Errorf("minimum chapter length must not be negative, got %s", c.Pipeline.MinChapterLength)
	}
	if c.Pipeline.CoverMaxEdge < 0 {
		return fmt.Errorf("cover max edge must not be negative, got %d", c.Pipeline.CoverMaxEdge)
	}

	return nil
}

// getEnvValue returns the env var value or the default.
func getEnvValue(envKey, defaultValue string) string {
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getIntEnvValue returns an int from an env var, or the default.
func getIntEnvValue(envKey string, defaultValue int) int {
	strValue := os.Getenv(envKey)
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

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		value = strings.Trim(value, `"'`)

		// Env vars take precedence over the .env file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
