package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/klauspost/compress/flate"
	"gopkg.in/yaml.v3"

	"threadsdl/pkg/classifier"
	"threadsdl/pkg/scroll"
)

// Config holds all configuration options for threadsdl
type Config struct {
	// Headless browser settings
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Page materialization
	Scroll ScrollConfig `yaml:"scroll" json:"scroll"`

	// Low-resolution filter
	Filter FilterConfig `yaml:"filter" json:"filter"`

	// Download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// BrowserConfig holds browser launch and navigation options
type BrowserConfig struct {
	Headless          bool          `yaml:"headless" json:"headless"`
	NoSandbox         bool          `yaml:"no_sandbox" json:"no_sandbox"`
	Bin               string        `yaml:"bin" json:"bin"`
	UserAgent         string        `yaml:"user_agent" json:"user_agent"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout" json:"navigation_timeout"`
	WaitIdle          time.Duration `yaml:"wait_idle" json:"wait_idle"`
	Static            bool          `yaml:"static" json:"static"`
}

// ScrollConfig controls the scroll-and-wait loop
type ScrollConfig struct {
	MaxIterations  int           `yaml:"max_iterations" json:"max_iterations"`
	SettleInterval time.Duration `yaml:"settle_interval" json:"settle_interval"`
}

// FilterConfig holds the low-resolution URL patterns
type FilterConfig struct {
	LowResPatterns []string `yaml:"low_res_patterns" json:"low_res_patterns"`
}

// DownloadConfig holds download-specific configuration
type DownloadConfig struct {
	Concurrency int               `yaml:"concurrency" json:"concurrency"`
	Timeout     time.Duration     `yaml:"timeout" json:"timeout"`
	UserAgent   string            `yaml:"user_agent" json:"user_agent"`
	MaxFileSize int64             `yaml:"max_file_size" json:"max_file_size"`
	Headers     map[string]string `yaml:"headers" json:"headers"`
}

// OutputConfig holds archive output configuration
type OutputConfig struct {
	Directory         string `yaml:"directory" json:"directory"`
	OverwriteExisting bool   `yaml:"overwrite_existing" json:"overwrite_existing"`
	IncludeManifest   bool   `yaml:"include_manifest" json:"include_manifest"`
	CompressionLevel  int    `yaml:"compression_level" json:"compression_level"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:          true,
			NoSandbox:         true,
			UserAgent:         defaultUserAgent,
			NavigationTimeout: 60 * time.Second,
			WaitIdle:          2 * time.Second,
		},
		Scroll: ScrollConfig{
			MaxIterations:  50,
			SettleInterval: scroll.DefaultSettleInterval,
		},
		Filter: FilterConfig{
			LowResPatterns: append([]string(nil), classifier.DefaultLowResPatterns...),
		},
		Download: DownloadConfig{
			Concurrency: 1,
			Timeout:     60 * time.Second,
			UserAgent:   defaultUserAgent,
			MaxFileSize: 0, // 0 means no limit
		},
		Output: OutputConfig{
			Directory:         ".",
			OverwriteExisting: true,
			IncludeManifest:   false,
			CompressionLevel:  flate.BestCompression,
		},
		Logging: LoggingConfig{
			Level: "warn",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if v := os.Getenv("THREADSDL_HEADLESS"); v != "" {
		c.Browser.Headless = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("THREADSDL_BROWSER_BIN"); v != "" {
		c.Browser.Bin = v
	}
	if v := os.Getenv("THREADSDL_USER_AGENT"); v != "" {
		c.Browser.UserAgent = v
		c.Download.UserAgent = v
	}

	if v := os.Getenv("THREADSDL_MAX_SCROLLS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("THREADSDL_MAX_SCROLLS: %w", err))
		} else {
			c.Scroll.MaxIterations = n
		}
	}
	if v := os.Getenv("THREADSDL_SETTLE_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("THREADSDL_SETTLE_INTERVAL: %w", err))
		} else {
			c.Scroll.SettleInterval = d
		}
	}

	if v := os.Getenv("THREADSDL_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("THREADSDL_CONCURRENCY: %w", err))
		} else {
			c.Download.Concurrency = n
		}
	}

	if v := os.Getenv("THREADSDL_OUTPUT_DIR"); v != "" {
		c.Output.Directory = v
	}
	if v := os.Getenv("THREADSDL_COMPRESSION_LEVEL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("THREADSDL_COMPRESSION_LEVEL: %w", err))
		} else {
			c.Output.CompressionLevel = n
		}
	}

	if v := os.Getenv("THREADSDL_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".threadsdl.yaml",
		".threadsdl.yml",
		filepath.Join(home, ".config", "threadsdl", "config.yaml"),
		filepath.Join(home, ".config", "threadsdl", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Browser.NavigationTimeout <= 0 {
		errs = append(errs, errors.New("navigation timeout must be positive"))
	}
	if c.Browser.WaitIdle < 0 {
		errs = append(errs, errors.New("wait idle cannot be negative"))
	}

	if c.Scroll.MaxIterations < 0 {
		errs = append(errs, errors.New("max scroll iterations cannot be negative"))
	}
	if c.Scroll.SettleInterval < 0 {
		errs = append(errs, errors.New("settle interval cannot be negative"))
	}

	if c.Download.Concurrency <= 0 {
		errs = append(errs, errors.New("download concurrency must be positive"))
	}
	if c.Download.Concurrency > 16 {
		errs = append(errs, errors.New("download concurrency should not exceed 16"))
	}
	if c.Download.Timeout < 0 {
		errs = append(errs, errors.New("download timeout cannot be negative"))
	}
	if c.Download.MaxFileSize < 0 {
		errs = append(errs, errors.New("max file size cannot be negative"))
	}

	if c.Output.Directory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if c.Output.CompressionLevel < flate.HuffmanOnly || c.Output.CompressionLevel > flate.BestCompression {
		errs = append(errs, fmt.Errorf("compression level must be between %d and %d", flate.HuffmanOnly, flate.BestCompression))
	}
	for name := range c.Download.Headers {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, errors.New("download header names cannot be empty"))
			break
		}
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Logging.Level))
	}

	return errors.Join(errs...)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only keys present in the map are applied.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Output.Directory = v
	}
	if v, ok := flags["max-scrolls"].(int); ok {
		c.Scroll.MaxIterations = v
	}
	if v, ok := flags["settle"].(time.Duration); ok {
		c.Scroll.SettleInterval = v
	}
	if v, ok := flags["concurrency"].(int); ok {
		c.Download.Concurrency = v
	}
	if v, ok := flags["timeout"].(time.Duration); ok {
		c.Download.Timeout = v
	}
	if v, ok := flags["show-browser"].(bool); ok && v {
		c.Browser.Headless = false
	}
	if v, ok := flags["static"].(bool); ok {
		c.Browser.Static = v
	}
	if v, ok := flags["manifest"].(bool); ok {
		c.Output.IncludeManifest = v
	}
	if v, ok := flags["low-res-pattern"].([]string); ok && len(v) > 0 {
		c.Filter.LowResPatterns = append(c.Filter.LowResPatterns, v...)
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// .env files are optional
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".threadsdl.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
