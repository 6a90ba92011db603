package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// newTestRootCmd creates a cobra.Command with the same persistent flags as the
// real root command so that Load can bind them during tests.
func newTestRootCmd() *cobra.Command {
	cmd := &cobra.Command{}
	pf := cmd.PersistentFlags()
	pf.String("config", "", "")
	pf.String("log-level", "warn", "")
	pf.String("log-format", "text", "")
	pf.BoolP("quiet", "q", false, "")
	pf.CountP("verbose", "v", "")
	pf.String("source", ".", "")
	pf.Duration("tool-timeout", 0, "")

	return cmd
}

// writeTempConfig writes a YAML string to a temporary file and returns the path.
func writeTempConfig(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	p := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))

	return p
}

// ---------------------------------------------------------------------------
// Default
// ---------------------------------------------------------------------------

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, LogLevelWarn, cfg.LogLevel)
	assert.Equal(t, LogFormatText, cfg.LogFormat)
	assert.Equal(t, ".", cfg.Source)
	assert.Equal(t, ">= 6.0.0", cfg.MagickConstraint)
	assert.False(t, cfg.Quiet)
	assert.Zero(t, cfg.ToolTimeout)
	assert.Zero(t, cfg.Debounce)
}

// ---------------------------------------------------------------------------
// Validate
// ---------------------------------------------------------------------------

func TestValidate_ValidValues(t *testing.T) {
	for _, lvl := range []string{"debug", "info", "warn", "error"} {
		cfg := Default()
		cfg.LogLevel = lvl
		assert.NoError(t, cfg.Validate(), "level=%s", lvl)
	}

	for _, fmt := range []string{"text", "json"} {
		cfg := Default()
		cfg.LogFormat = fmt
		assert.NoError(t, cfg.Validate(), "format=%s", fmt)
	}
}

func TestValidate_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"log level", func(c *Config) { c.LogLevel = "verbose" }, "invalid log level"},
		{"log format", func(c *Config) { c.LogFormat = "xml" }, "invalid log format"},
		{"empty source", func(c *Config) { c.Source = "" }, "source root"},
		{"negative timeout", func(c *Config) { c.ToolTimeout = -time.Second }, "invalid tool timeout"},
		{"negative debounce", func(c *Config) { c.Debounce = -time.Second }, "invalid debounce"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}

// ---------------------------------------------------------------------------
// EffectiveLogLevel
// ---------------------------------------------------------------------------

func TestEffectiveLogLevel(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"default hides info", Config{LogLevel: "warn"}, "warn"},
		{"explicit level", Config{LogLevel: "debug"}, "debug"},
		{"one v shows info", Config{LogLevel: "warn", Verbose: 1}, "info"},
		{"one v keeps debug", Config{LogLevel: "debug", Verbose: 1}, "debug"},
		{"two v shows debug", Config{LogLevel: "error", Verbose: 2}, "debug"},
		{"quiet wins", Config{LogLevel: "debug", Verbose: 2, Quiet: true}, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.EffectiveLogLevel())
		})
	}
}

// ---------------------------------------------------------------------------
// Load: defaults only
// ---------------------------------------------------------------------------

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, err := Load(nil, "")
	require.NoError(t, err)
	assert.Equal(t, LogLevelWarn, cfg.LogLevel)
	assert.Equal(t, LogFormatText, cfg.LogFormat)
	assert.Equal(t, ".", cfg.Source)
	assert.False(t, cfg.Quiet)
}

// ---------------------------------------------------------------------------
// Load: environment variables
// ---------------------------------------------------------------------------

func TestLoad_EnvOverridesDefault(t *testing.T) {
	t.Setenv("ASSETBUILD_LOG_LEVEL", "debug")

	cfg, err := Load(nil, "")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_EnvTypedValues(t *testing.T) {
	t.Setenv("ASSETBUILD_QUIET", "true")
	t.Setenv("ASSETBUILD_KEEP_GOING", "true")
	t.Setenv("ASSETBUILD_TOOL_TIMEOUT", "90s")
	t.Setenv("ASSETBUILD_MAGICK", "/opt/im/bin/magick")

	cfg, err := Load(nil, "")
	require.NoError(t, err)
	assert.True(t, cfg.Quiet)
	assert.True(t, cfg.KeepGoing)
	assert.Equal(t, 90*time.Second, cfg.ToolTimeout)
	assert.Equal(t, "/opt/im/bin/magick", cfg.Magick)
}

// ---------------------------------------------------------------------------
// Load: config file
// ---------------------------------------------------------------------------

func TestLoad_ConfigFile(t *testing.T) {
	p := writeTempConfig(t, "log-level: info\nlog-format: json\nsource: ./design\ndebounce: 250ms\n")

	cfg, err := Load(nil, p)
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "./design", cfg.Source)
	assert.Equal(t, 250*time.Millisecond, cfg.Debounce)
	assert.Equal(t, p, cfg.ConfigFile)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(nil, "/tmp/nonexistent-assetbuild-cfg-12345.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestLoad_MalformedFile(t *testing.T) {
	p := writeTempConfig(t, ": invalid yaml :")

	_, err := Load(nil, p)
	require.Error(t, err)
}

// ---------------------------------------------------------------------------
// Load: flag precedence
// ---------------------------------------------------------------------------

func TestLoad_FlagOverridesDefault(t *testing.T) {
	cmd := newTestRootCmd()
	require.NoError(t, cmd.PersistentFlags().Set("log-level", "error"))

	cfg, err := Load(cmd, "")
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.LogLevel)
}

func TestLoad_FlagOverridesEnv(t *testing.T) {
	t.Setenv("ASSETBUILD_SOURCE", "/from/env")

	cmd := newTestRootCmd()
	require.NoError(t, cmd.PersistentFlags().Set("source", "/from/flag"))

	cfg, err := Load(cmd, "")
	require.NoError(t, err)
	assert.Equal(t, "/from/flag", cfg.Source)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("ASSETBUILD_LOG_LEVEL", "debug")
	p := writeTempConfig(t, "log-level: error\n")

	cfg, err := Load(nil, p)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_VerboseCountFlag(t *testing.T) {
	cmd := newTestRootCmd()
	require.NoError(t, cmd.PersistentFlags().Parse([]string{"-vv"}))

	cfg, err := Load(cmd, "")
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Verbose)
	assert.Equal(t, LogLevelDebug, cfg.EffectiveLogLevel())
}

func TestLoad_DurationFlag(t *testing.T) {
	cmd := newTestRootCmd()
	require.NoError(t, cmd.PersistentFlags().Set("tool-timeout", "2m"))

	cfg, err := Load(cmd, "")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, cfg.ToolTimeout)
}

// ---------------------------------------------------------------------------
// Load: validation on loaded values
// ---------------------------------------------------------------------------

func TestLoad_InvalidLogLevelFromEnv(t *testing.T) {
	t.Setenv("ASSETBUILD_LOG_LEVEL", "verbose")

	_, err := Load(nil, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestLoad_InvalidLogFormatFromFile(t *testing.T) {
	p := writeTempConfig(t, "log-format: xml\n")

	_, err := Load(nil, p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log format")
}

// ---------------------------------------------------------------------------
// Context helpers
// ---------------------------------------------------------------------------

func TestContext_RoundTrip(t *testing.T) {
	cfg := &Config{LogLevel: "debug", LogFormat: "json"}
	ctx := NewContext(context.Background(), cfg)
	got := FromContext(ctx)
	assert.Equal(t, cfg, got)
}

func TestFromContext_FallbackToDefault(t *testing.T) {
	got := FromContext(context.Background())
	assert.Equal(t, Default(), got)
}
