package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"powerplot/internal/powerlog"
)

// Config represents the application configuration.
// LogDir and the verbosity flags come from the command line only.
type Config struct {
	LogDir  string `json:"-"`
	Quiet   bool   `json:"-"`
	Verbose bool   `json:"-"`

	Output   OutputConfig   `json:"output"`
	Parser   ParserConfig   `json:"parser"`
	Database DatabaseConfig `json:"database"`
	Export   ExportConfig   `json:"export"`
	Publish  PublishConfig  `json:"publish"`
	Server   ServerConfig   `json:"server"`
}

// OutputConfig represents chart output configuration
type OutputConfig struct {
	EnergyChart  string  `json:"energy_chart"`
	CurrentChart string  `json:"current_chart"`
	WidthInches  float64 `json:"width_inches"`
	HeightInches float64 `json:"height_inches"`
	Titles       bool    `json:"titles"`
}

// ParserConfig represents power monitor log parsing configuration
type ParserConfig struct {
	TimeColumn     string `json:"time_column"`
	CurrentColumn  string `json:"current_column"`
	TimeUnit       string `json:"time_unit"`
	BaselineWindow string `json:"baseline_window"`
}

// DatabaseConfig represents result store configuration; empty Path disables it
type DatabaseConfig struct {
	Path string `json:"path"`
}

// ExportConfig represents summary export configuration; empty Path disables it
type ExportConfig struct {
	Path string `json:"path"`
}

// PublishConfig represents S3 publishing configuration; empty Bucket disables it
type PublishConfig struct {
	Region  string `json:"region"`
	Bucket  string `json:"bucket"`
	Prefix  string `json:"prefix"`
	Timeout string `json:"timeout"`
	Retries int    `json:"retries"`
}

// ServerConfig represents serve mode configuration
type ServerConfig struct {
	Enabled bool   `json:"enabled"`
	Port    string `json:"port"`
	Host    string `json:"host"`
}

const (
	DefaultConfigPath   = "powerplot.json"
	DefaultEnergyChart  = "energy_consumption.pdf"
	DefaultCurrentChart = "mean_current.pdf"
)

// Default returns the configuration used when no config file exists
func Default() *Config {
	cfg := &Config{LogDir: "."}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig loads configuration from a JSON file
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = DefaultConfigPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.LogDir = "."
	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadConfigWithDefaults loads config with fallback to defaults if file doesn't exist
func LoadConfigWithDefaults(configPath string) (*Config, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	return config, nil
}

func (c *Config) applyDefaults() {
	if c.Output.EnergyChart == "" {
		c.Output.EnergyChart = DefaultEnergyChart
	}
	if c.Output.CurrentChart == "" {
		c.Output.CurrentChart = DefaultCurrentChart
	}
	if c.Output.WidthInches == 0 {
		c.Output.WidthInches = 6
	}
	if c.Output.HeightInches == 0 {
		c.Output.HeightInches = 4
	}
	if c.Parser.TimeColumn == "" {
		c.Parser.TimeColumn = powerlog.DefaultTimeColumn
	}
	if c.Parser.CurrentColumn == "" {
		c.Parser.CurrentColumn = powerlog.DefaultCurrentColumn
	}
	if c.Parser.TimeUnit == "" {
		c.Parser.TimeUnit = "1ms"
	}
	if c.Parser.BaselineWindow == "" {
		c.Parser.BaselineWindow = "1s"
	}
	if c.Publish.Timeout == "" {
		c.Publish.Timeout = "10s"
	}
	if c.Publish.Retries == 0 {
		c.Publish.Retries = 3
	}
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
}

// Validate checks values that would otherwise fail deep inside the pipeline
func (c *Config) Validate() error {
	if c.Output.WidthInches <= 0 || c.Output.HeightInches <= 0 {
		return fmt.Errorf("invalid chart size: %gx%g inches", c.Output.WidthInches, c.Output.HeightInches)
	}
	if strings.TrimSpace(c.Output.EnergyChart) == "" || strings.TrimSpace(c.Output.CurrentChart) == "" {
		return errors.New("chart file names must not be empty")
	}
	if c.Output.EnergyChart == c.Output.CurrentChart {
		return fmt.Errorf("energy and current charts share the file name %q", c.Output.EnergyChart)
	}
	if _, err := c.ParserOptions(); err != nil {
		return err
	}
	if c.Publish.Bucket != "" {
		if _, err := c.PublishTimeout(); err != nil {
			return err
		}
		if c.Publish.Retries < 1 {
			return fmt.Errorf("publish retries must be >= 1, got %d", c.Publish.Retries)
		}
	}
	return nil
}

// ParserOptions converts the parser section into powerlog options
func (c *Config) ParserOptions() (powerlog.Options, error) {
	unit, err := time.ParseDuration(c.Parser.TimeUnit)
	if err != nil {
		return powerlog.Options{}, fmt.Errorf("invalid parser time_unit %q: %w", c.Parser.TimeUnit, err)
	}
	if unit <= 0 {
		return powerlog.Options{}, fmt.Errorf("parser time_unit must be > 0, got %s", unit)
	}
	window, err := time.ParseDuration(c.Parser.BaselineWindow)
	if err != nil {
		return powerlog.Options{}, fmt.Errorf("invalid parser baseline_window %q: %w", c.Parser.BaselineWindow, err)
	}
	if window < 0 {
		return powerlog.Options{}, fmt.Errorf("parser baseline_window must be >= 0, got %s", window)
	}
	return powerlog.Options{
		TimeColumn:     c.Parser.TimeColumn,
		CurrentColumn:  c.Parser.CurrentColumn,
		TimeUnit:       unit,
		BaselineWindow: window,
	}, nil
}

// PublishTimeout returns the per-attempt S3 upload timeout
func (c *Config) PublishTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Publish.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid publish timeout %q: %w", c.Publish.Timeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("publish timeout must be > 0, got %s", d)
	}
	return d, nil
}

// LogLevel maps the verbosity flags to a level name; quiet wins over verbose
func (c *Config) LogLevel() string {
	switch {
	case c.Quiet:
		return "warn"
	case c.Verbose:
		return "debug"
	default:
		return "info"
	}
}

// EnergyChartPath returns where the energy/duration chart is written
func (c *Config) EnergyChartPath() string {
	return filepath.Join(c.LogDir, c.Output.EnergyChart)
}

// CurrentChartPath returns where the mean current chart is written
func (c *Config) CurrentChartPath() string {
	return filepath.Join(c.LogDir, c.Output.CurrentChart)
}

// ServerAddr returns host:port for serve mode
func (c *Config) ServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}
