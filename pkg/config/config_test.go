package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"threadsdl/pkg/classifier"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.True(t, config.Browser.Headless)
	assert.True(t, config.Browser.NoSandbox)
	assert.Equal(t, 50, config.Scroll.MaxIterations)
	assert.Equal(t, 1500*time.Millisecond, config.Scroll.SettleInterval)
	assert.Equal(t, 1, config.Download.Concurrency)
	assert.Equal(t, ".", config.Output.Directory)
	assert.False(t, config.Output.IncludeManifest)
	assert.Equal(t, flate.BestCompression, config.Output.CompressionLevel)
	assert.Empty(t, config.Download.Headers)
	assert.Equal(t, classifier.DefaultLowResPatterns, config.Filter.LowResPatterns)
	require.NoError(t, config.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("THREADSDL_HEADLESS", "false")
	t.Setenv("THREADSDL_BROWSER_BIN", "/usr/bin/chromium")
	t.Setenv("THREADSDL_USER_AGENT", "test-agent")
	t.Setenv("THREADSDL_MAX_SCROLLS", "7")
	t.Setenv("THREADSDL_SETTLE_INTERVAL", "250ms")
	t.Setenv("THREADSDL_CONCURRENCY", "4")
	t.Setenv("THREADSDL_OUTPUT_DIR", "/tmp/archives")
	t.Setenv("THREADSDL_COMPRESSION_LEVEL", "0")
	t.Setenv("THREADSDL_LOG_LEVEL", "debug")

	config := DefaultConfig()
	require.NoError(t, config.LoadFromEnv())

	assert.False(t, config.Browser.Headless)
	assert.Equal(t, "/usr/bin/chromium", config.Browser.Bin)
	assert.Equal(t, "test-agent", config.Browser.UserAgent)
	assert.Equal(t, "test-agent", config.Download.UserAgent)
	assert.Equal(t, 7, config.Scroll.MaxIterations)
	assert.Equal(t, 250*time.Millisecond, config.Scroll.SettleInterval)
	assert.Equal(t, 4, config.Download.Concurrency)
	assert.Equal(t, "/tmp/archives", config.Output.Directory)
	assert.Equal(t, 0, config.Output.CompressionLevel)
	assert.Equal(t, "debug", config.Logging.Level)
}

func TestLoadFromEnvReportsMalformedValues(t *testing.T) {
	t.Setenv("THREADSDL_MAX_SCROLLS", "many")
	t.Setenv("THREADSDL_SETTLE_INTERVAL", "soon")

	err := DefaultConfig().LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "THREADSDL_MAX_SCROLLS")
	assert.Contains(t, err.Error(), "THREADSDL_SETTLE_INTERVAL")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantError string
	}{
		{"valid config", func(c *Config) {}, ""},
		{"zero concurrency", func(c *Config) { c.Download.Concurrency = 0 }, "concurrency must be positive"},
		{"too much concurrency", func(c *Config) { c.Download.Concurrency = 32 }, "should not exceed"},
		{"negative scrolls", func(c *Config) { c.Scroll.MaxIterations = -1 }, "max scroll iterations"},
		{"missing output", func(c *Config) { c.Output.Directory = "" }, "output directory"},
		{"invalid log level", func(c *Config) { c.Logging.Level = "loud" }, "invalid log level"},
		{"zero navigation timeout", func(c *Config) { c.Browser.NavigationTimeout = 0 }, "navigation timeout"},
		{"store only", func(c *Config) { c.Output.CompressionLevel = flate.NoCompression }, ""},
		{"compression too high", func(c *Config) { c.Output.CompressionLevel = 12 }, "compression level"},
		{"compression too low", func(c *Config) { c.Output.CompressionLevel = -3 }, "compression level"},
		{"blank header name", func(c *Config) { c.Download.Headers = map[string]string{" ": "x"} }, "header names"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)

			err := config.Validate()
			if tt.wantError == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantError)
		})
	}
}

func TestMergeCommandLineFlags(t *testing.T) {
	config := DefaultConfig()

	config.MergeCommandLineFlags(map[string]interface{}{
		"output":          "/flag/output",
		"max-scrolls":     3,
		"settle":          time.Second,
		"concurrency":     5,
		"timeout":         10 * time.Second,
		"show-browser":    true,
		"static":          true,
		"manifest":        true,
		"low-res-pattern": []string{`_preview`},
		"log-level":       "error",
	})

	assert.Equal(t, "/flag/output", config.Output.Directory)
	assert.Equal(t, 3, config.Scroll.MaxIterations)
	assert.Equal(t, time.Second, config.Scroll.SettleInterval)
	assert.Equal(t, 5, config.Download.Concurrency)
	assert.Equal(t, 10*time.Second, config.Download.Timeout)
	assert.False(t, config.Browser.Headless)
	assert.True(t, config.Browser.Static)
	assert.True(t, config.Output.IncludeManifest)
	assert.Equal(t, "error", config.Logging.Level)

	// flag patterns extend the built-in list
	assert.Len(t, config.Filter.LowResPatterns, len(classifier.DefaultLowResPatterns)+1)
	assert.Equal(t, `_preview`, config.Filter.LowResPatterns[len(config.Filter.LowResPatterns)-1])
}

func TestMergeCommandLineFlagsIgnoresAbsentKeys(t *testing.T) {
	config := DefaultConfig()
	config.MergeCommandLineFlags(map[string]interface{}{})
	assert.Equal(t, DefaultConfig(), config)
}

func TestSaveAndLoadFromFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "threadsdl.yaml")

	config := DefaultConfig()
	config.Scroll.MaxIterations = 12
	config.Scroll.SettleInterval = 750 * time.Millisecond
	config.Filter.LowResPatterns = []string{"tiny"}
	config.Output.IncludeManifest = true
	require.NoError(t, config.Save(configPath))

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(configPath))

	assert.Equal(t, 12, loaded.Scroll.MaxIterations)
	assert.Equal(t, 750*time.Millisecond, loaded.Scroll.SettleInterval)
	assert.Equal(t, []string{"tiny"}, loaded.Filter.LowResPatterns)
	assert.True(t, loaded.Output.IncludeManifest)
}

func TestLoadFromFileParsesDurations(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `
scroll:
  max_iterations: 5
  settle_interval: 2s
download:
  concurrency: 3
  timeout: 15s
  headers:
    Referer: https://www.threads.net/
output:
  compression_level: 5
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	config := DefaultConfig()
	require.NoError(t, config.LoadFromFile(configPath))

	assert.Equal(t, 5, config.Scroll.MaxIterations)
	assert.Equal(t, 2*time.Second, config.Scroll.SettleInterval)
	assert.Equal(t, 3, config.Download.Concurrency)
	assert.Equal(t, 15*time.Second, config.Download.Timeout)
	assert.Equal(t, map[string]string{"Referer": "https://www.threads.net/"}, config.Download.Headers)
	assert.Equal(t, 5, config.Output.CompressionLevel)
	// keys absent from the file keep their defaults
	assert.Equal(t, ".", config.Output.Directory)
}

func TestLoadFromFileInvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("scroll: [unterminated"), 0644))

	err := DefaultConfig().LoadFromFile(configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("download:\n  concurrency: 2\noutput:\n  directory: /from/file\n"), 0644))

	t.Setenv("THREADSDL_CONCURRENCY", "3")

	config, err := Load(configPath, map[string]interface{}{"output": "/from/flag"})
	require.NoError(t, err)

	assert.Equal(t, 3, config.Download.Concurrency)
	assert.Equal(t, "/from/flag", config.Output.Directory)
}

func TestLoadRejectsInvalidConfiguration(t *testing.T) {
	t.Setenv("THREADSDL_CONCURRENCY", "0")

	_, err := Load(filepath.Join(t.TempDir(), "missing-is-ok.yaml"), nil)
	require.Error(t, err)
}
