package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment override
const EnvPrefix = "VFTAIL_"

// ConfigPaths defines the config file search paths in priority order
var ConfigPaths = []string{
	"./.vftail.yaml",               // Project-specific config (highest priority)
	"~/.config/vftail/config.yaml", // User config
	"/etc/vftail/config.yaml",      // System config (lowest priority)
}

// Loader handles configuration loading with priority merging
type Loader struct {
	configPaths []string
	getenv      func(string) string
	warn        io.Writer
}

// NewLoader creates a new config loader
func NewLoader() *Loader {
	return &Loader{
		configPaths: ConfigPaths,
		getenv:      os.Getenv,
		warn:        os.Stderr,
	}
}

// LoadConfig loads configuration from multiple sources with priority order:
// 1. Command line flags (handled by caller)
// 2. Environment variables
// 3. ./.vftail.yaml
// 4. ~/.config/vftail/config.yaml
// 5. /etc/vftail/config.yaml
// 6. Built-in defaults
func (l *Loader) LoadConfig(customPath string) (*Config, error) {
	config := DefaultConfig()

	// If custom path is provided, use only that path
	if customPath != "" {
		if err := validateConfigPath(customPath); err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		if err := l.loadFromFile(config, expandPath(customPath)); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", customPath, err)
		}
	} else {
		// Lowest priority first so later files win
		for i := len(l.configPaths) - 1; i >= 0; i-- {
			expandedPath := expandPath(l.configPaths[i])
			if !fileExists(expandedPath) {
				continue
			}
			if err := l.loadFromFile(config, expandedPath); err != nil {
				fmt.Fprintf(l.warn, "Warning: Failed to load config from %s: %v\n", expandedPath, err)
			}
		}
	}

	if err := l.applyEnvOverrides(config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// loadFromFile decodes a YAML file over config. Keys absent from the file
// keep their current value, so booleans defaulting to true survive a file
// that does not mention them. Unknown keys are rejected.
func (l *Loader) loadFromFile(config *Config, path string) error {
	// #nosec G304 - path is validated by validateConfigPath() or comes from ConfigPaths
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	merged := *config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&merged); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	*config = merged
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config
func (l *Loader) applyEnvOverrides(config *Config) error {
	envMappings := map[string]func(string) error{
		// Parser Config
		"VFTAIL_PARSER_VOLTAGE_HEADER_PATTERN": func(v string) error { config.Parser.VoltageHeaderPattern = v; return nil },
		"VFTAIL_PARSER_CLOCK_HEADER_PATTERN":   func(v string) error { config.Parser.ClockHeaderPattern = v; return nil },
		"VFTAIL_PARSER_MIN_VOLTAGE":            func(v string) error { return parseFloat(v, &config.Parser.MinVoltage) },
		"VFTAIL_PARSER_MAX_VOLTAGE":            func(v string) error { return parseFloat(v, &config.Parser.MaxVoltage) },
		"VFTAIL_PARSER_MIN_CLOCK":              func(v string) error { return parseFloat(v, &config.Parser.MinClock) },
		"VFTAIL_PARSER_MAX_CLOCK":              func(v string) error { return parseFloat(v, &config.Parser.MaxClock) },

		// Tail Config
		"VFTAIL_TAIL_POLL_INTERVAL": func(v string) error { return parseDuration(v, &config.Tail.PollInterval) },
		"VFTAIL_TAIL_FOLLOW":        func(v string) error { return parseBool(v, &config.Tail.Follow) },
		"VFTAIL_TAIL_USE_FSNOTIFY":  func(v string) error { return parseBool(v, &config.Tail.UseFSNotify) },

		// Output Config
		"VFTAIL_OUTPUT_FORMAT":     func(v string) error { config.Output.Format = v; return nil },
		"VFTAIL_OUTPUT_COLOR_MODE": func(v string) error { config.Output.ColorMode = v; return nil },
		"VFTAIL_OUTPUT_EMOJI":      func(v string) error { return parseBool(v, &config.Output.Emoji) },
		"VFTAIL_OUTPUT_VERBOSE":    func(v string) error { return parseBool(v, &config.Output.Verbose) },

		// Chart Config
		"VFTAIL_CHART_PATH":             func(v string) error { config.Chart.Path = v; return nil },
		"VFTAIL_CHART_WIDTH":            func(v string) error { return parseInt(v, &config.Chart.Width) },
		"VFTAIL_CHART_HEIGHT":           func(v string) error { return parseInt(v, &config.Chart.Height) },
		"VFTAIL_CHART_REFRESH_INTERVAL": func(v string) error { return parseDuration(v, &config.Chart.RefreshInterval) },
		"VFTAIL_CHART_TITLE":            func(v string) error { config.Chart.Title = v; return nil },

		// Metrics Config
		"VFTAIL_METRICS_LISTEN_ADDR": func(v string) error { config.Metrics.ListenAddr = v; return nil },
		"VFTAIL_METRICS_NAMESPACE":   func(v string) error { config.Metrics.Namespace = v; return nil },
		"VFTAIL_METRICS_PATH":        func(v string) error { config.Metrics.Path = v; return nil },

		// Logging Config
		"VFTAIL_LOGGING_FORMAT": func(v string) error { config.Logging.Format = v; return nil },
		"VFTAIL_LOGGING_FILE":   func(v string) error { config.Logging.File = v; return nil },
	}

	for envVar, setter := range envMappings {
		if value := l.getenv(envVar); value != "" {
			if err := setter(value); err != nil {
				return fmt.Errorf("invalid value for %s: %w", envVar, err)
			}
		}
	}

	return nil
}

// GetConfigPaths returns the list of configuration file paths that will be searched
func GetConfigPaths() []string {
	paths := make([]string, 0, len(ConfigPaths))
	for _, path := range ConfigPaths {
		paths = append(paths, expandPath(path))
	}
	return paths
}

// FindConfigFile finds the first existing config file in the search paths
func FindConfigFile() (string, bool) {
	for _, path := range ConfigPaths {
		expandedPath := expandPath(path)
		if fileExists(expandedPath) {
			return expandedPath, true
		}
	}
	return "", false
}

// Helper functions

// validateConfigPath validates that a config path is safe to read
func validateConfigPath(path string) error {
	cleanPath := filepath.Clean(path)

	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path traversal not allowed")
	}

	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("config file must have .yaml or .yml extension")
	}

	absPath, err := filepath.Abs(expandPath(cleanPath))
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	if strings.HasPrefix(absPath, "/proc/") || strings.HasPrefix(absPath, "/sys/") {
		return fmt.Errorf("access to system files not allowed")
	}

	return nil
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// fileExists checks if a file exists
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// FileExists reports whether path exists
func FileExists(path string) bool {
	return fileExists(expandPath(path))
}

// Type conversion helpers

func parseInt(s string, dst *int) error {
	val, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}

func parseFloat(s string, dst *float64) error {
	val, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}

func parseBool(s string, dst *bool) error {
	val, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}

func parseDuration(s string, dst *time.Duration) error {
	val, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}
