package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, runtime.NumCPU(), cfg.Pipeline.Workers)
	assert.Equal(t, 2*time.Second, cfg.Pipeline.DurationTolerance)
	assert.Equal(t, time.Second, cfg.Pipeline.MinChapterLength)
	assert.Equal(t, 1500, cfg.Pipeline.CoverMaxEdge)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BAKE_WORKERS", "3")
	t.Setenv("BAKE_DURATION_TOLERANCE", "5s")
	t.Setenv("BAKE_MIN_CHAPTER_LENGTH", "250ms")
	t.Setenv("BAKE_COVER_MAX_EDGE", "0")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Pipeline.Workers)
	assert.Equal(t, 5*time.Second, cfg.Pipeline.DurationTolerance)
	assert.Equal(t, 250*time.Millisecond, cfg.Pipeline.MinChapterLength)
	assert.Equal(t, 0, cfg.Pipeline.CoverMaxEdge)
	assert.Equal(t, "debug", cfg.Logger.Level)
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := "# comment\nBAKE_WORKERS=2\nBAKE_DURATION_TOLERANCE=\"10s\"\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o644))

	// Real env vars must win over the file.
	t.Setenv("BAKE_DURATION_TOLERANCE", "4s")
	defer os.Unsetenv("BAKE_WORKERS") //nolint:errcheck // loadEnvFile sets it for the process

	cfg, err := Load(envFile)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Pipeline.Workers)
	assert.Equal(t, 4*time.Second, cfg.Pipeline.DurationTolerance)
}

func TestLoad_InvalidTolerance(t *testing.T) {
	t.Setenv("BAKE_DURATION_TOLERANCE", "soon")

	_, err := Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			App:    AppConfig{Environment: "development"},
			Logger: LoggerConfig{Level: "info"},
			Pipeline: PipelineConfig{
				Workers:           4,
				DurationTolerance: 2 * time.Second,
				MinChapterLength:  time.Second,
				CoverMaxEdge:      1500,
			},
		}
	}

	assert.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad environment", func(c *Config) { c.App.Environment = "prod" }},
		{"bad level", func(c *Config) { c.Logger.Level = "verbose" }},
		{"zero workers", func(c *Config) { c.Pipeline.Workers = 0 }},
		{"negative tolerance", func(c *Config) { c.Pipeline.DurationTolerance = -time.Second }},
		{"negative min length", func(c *Config) { c.Pipeline.MinChapterLength = -time.Second }},
		{"negative cover edge", func(c *Config) { c.Pipeline.CoverMaxEdge = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
