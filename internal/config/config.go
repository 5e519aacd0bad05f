package config

import (
	"fmt"
	"regexp"
	"time"

	"github.com/yildizm/vftail/internal/parser"
	"github.com/yildizm/vftail/internal/tail"
)

// Config holds the complete application configuration
type Config struct {
	Version string        `yaml:"version" json:"version"`
	Parser  parser.Config `yaml:"parser" json:"parser"`
	Tail    TailConfig    `yaml:"tail" json:"tail"`
	Output  OutputConfig  `yaml:"output" json:"output"`
	Chart   ChartConfig   `yaml:"chart" json:"chart"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// TailConfig configures how the log file is followed
type TailConfig struct {
	PollInterval time.Duration `yaml:"poll_interval" json:"poll_interval"` // retry delay at end of file
	Follow       bool          `yaml:"follow" json:"follow"`               // keep waiting for new lines
	UseFSNotify  bool          `yaml:"use_fsnotify" json:"use_fsnotify"`   // wake early on write events
}

// OutputConfig configures output formatting and display
type OutputConfig struct {
	Format    string `yaml:"format" json:"format"`         // text|json|markdown|csv
	ColorMode string `yaml:"color_mode" json:"color_mode"` // auto|always|never
	Emoji     bool   `yaml:"emoji" json:"emoji"`
	Verbose   bool   `yaml:"verbose" json:"verbose"`
}

// ChartConfig configures the scatter chart
type ChartConfig struct {
	Path            string        `yaml:"path" json:"path"` // empty disables the live chart
	Width           int           `yaml:"width" json:"width"`
	Height          int           `yaml:"height" json:"height"`
	RefreshInterval time.Duration `yaml:"refresh_interval" json:"refresh_interval"`
	Title           string        `yaml:"title" json:"title"`
}

// MetricsConfig configures the Prometheus endpoint
type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr" json:"listen_addr"` // empty disables the endpoint
	Namespace  string `yaml:"namespace" json:"namespace"`
	Path       string `yaml:"path" json:"path"`
}

// LoggingConfig configures diagnostic logging
type LoggingConfig struct {
	Format string `yaml:"format" json:"format"` // text|json
	File   string `yaml:"file" json:"file"`     // stderr when empty
}

var metricNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Version: "1.0",
		Parser:  parser.DefaultConfig(),
		Tail: TailConfig{
			PollInterval: tail.DefaultPollInterval,
			Follow:       true,
			UseFSNotify:  true,
		},
		Output: OutputConfig{
			Format:    "text",
			ColorMode: "auto",
			Emoji:     true,
			Verbose:   false,
		},
		Chart: ChartConfig{
			Path:            "",
			Width:           1024,
			Height:          768,
			RefreshInterval: 2 * time.Second,
			Title:           "VF Chart",
		},
		Metrics: MetricsConfig{
			ListenAddr: "",
			Namespace:  "vftail",
			Path:       "/metrics",
		},
		Logging: LoggingConfig{
			Format: "text",
		},
	}
}

// ParserConfig returns the parser section
func (c *Config) ParserConfig() parser.Config {
	return c.Parser
}

// TailOptions converts the tail section for tail.Open
func (c *Config) TailOptions() tail.Options {
	return tail.Options{
		PollInterval: c.Tail.PollInterval,
		Follow:       c.Tail.Follow,
		UseFSNotify:  c.Tail.UseFSNotify,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Parser.Validate(); err != nil {
		return fmt.Errorf("parser: %w", err)
	}
	if err := c.validateTailConfig(); err != nil {
		return err
	}
	if err := c.validateOutputConfig(); err != nil {
		return err
	}
	if err := c.validateChartConfig(); err != nil {
		return err
	}
	if err := c.validateMetricsConfig(); err != nil {
		return err
	}
	if err := c.validateLoggingConfig(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTailConfig() error {
	if c.Tail.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be greater than 0")
	}
	return nil
}

// validateOutputConfig validates output-related configuration
func (c *Config) validateOutputConfig() error {
	if c.Output.Format != "" {
		validFormats := map[string]bool{
			"json":     true,
			"text":     true,
			"markdown": true,
			"csv":      true,
		}
		if !validFormats[c.Output.Format] {
			return fmt.Errorf("invalid output format: %s (must be one of: json, text, markdown, csv)", c.Output.Format)
		}
	}
	if c.Output.ColorMode != "" {
		validColorModes := map[string]bool{
			"auto":   true,
			"always": true,
			"never":  true,
		}
		if !validColorModes[c.Output.ColorMode] {
			return fmt.Errorf("invalid color mode: %s (must be one of: auto, always, never)", c.Output.ColorMode)
		}
	}
	return nil
}

func (c *Config) validateChartConfig() error {
	if c.Chart.Width < 1 || c.Chart.Height < 1 {
		return fmt.Errorf("chart width and height must be greater than 0")
	}
	if c.Chart.RefreshInterval < 0 {
		return fmt.Errorf("refresh_interval must be non-negative")
	}
	return nil
}

func (c *Config) validateMetricsConfig() error {
	if c.Metrics.Namespace != "" && !metricNamePattern.MatchString(c.Metrics.Namespace) {
		return fmt.Errorf("invalid metrics namespace: %s", c.Metrics.Namespace)
	}
	if c.Metrics.Path != "" && c.Metrics.Path[0] != '/' {
		return fmt.Errorf("metrics path must start with /")
	}
	return nil
}

func (c *Config) validateLoggingConfig() error {
	switch c.Logging.Format {
	case "", "text", "json":
		return nil
	default:
		return fmt.Errorf("invalid logging format: %s (must be one of: text, json)", c.Logging.Format)
	}
}
