package config

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// newTestLoader returns a loader that only sees the given paths and env.
func newTestLoader(paths []string, env map[string]string) *Loader {
	return &Loader{
		configPaths: paths,
		getenv:      func(k string) string { return env[k] },
		warn:        io.Discard,
	}
}

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write test config file: %v", err)
	}
	return path
}

func TestNewLoader(t *testing.T) {
	loader := NewLoader()
	if loader == nil {
		t.Fatal("NewLoader returned nil")
	}
	if len(loader.configPaths) != 3 {
		t.Errorf("Expected 3 config paths, got %d", len(loader.configPaths))
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	loader := newTestLoader(nil, nil)

	cfg, err := loader.LoadConfig("")
	if err != nil {
		t.Fatalf("Failed to load default config: %v", err)
	}
	if cfg.Tail.PollInterval != 500*time.Millisecond {
		t.Errorf("Expected default poll interval 500ms, got %v", cfg.Tail.PollInterval)
	}
	if !cfg.Tail.Follow {
		t.Error("Expected follow to default to true")
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "vftail.yaml", `version: "1.0"
parser:
  max_voltage: 1.6
  clock_header_pattern: 'P-core (\d+) Clock'
tail:
  poll_interval: 250ms
output:
  format: json
  verbose: true
chart:
  width: 800
`)

	cfg, err := newTestLoader(nil, nil).LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config from file: %v", err)
	}

	if cfg.Parser.MaxVoltage != 1.6 {
		t.Errorf("Expected max voltage 1.6, got %v", cfg.Parser.MaxVoltage)
	}
	if cfg.Parser.ClockHeaderPattern != `P-core (\d+) Clock` {
		t.Errorf("Expected custom clock pattern, got %q", cfg.Parser.ClockHeaderPattern)
	}
	if cfg.Parser.MaxClock != 10000 {
		t.Errorf("Expected unset max clock to keep its default, got %v", cfg.Parser.MaxClock)
	}
	if cfg.Tail.PollInterval != 250*time.Millisecond {
		t.Errorf("Expected poll interval 250ms, got %v", cfg.Tail.PollInterval)
	}
	if !cfg.Tail.Follow || !cfg.Tail.UseFSNotify {
		t.Error("Expected unset tail booleans to keep their defaults")
	}
	if cfg.Output.Format != "json" || !cfg.Output.Verbose {
		t.Errorf("Expected json verbose output, got %+v", cfg.Output)
	}
	if cfg.Chart.Width != 800 || cfg.Chart.Height != 768 {
		t.Errorf("Expected chart 800x768, got %dx%d", cfg.Chart.Width, cfg.Chart.Height)
	}
}

func TestLoadConfigPriority(t *testing.T) {
	dir := t.TempDir()
	system := writeConfig(t, dir, "system.yaml", "output:\n  format: csv\nchart:\n  title: System\n")
	project := writeConfig(t, dir, "project.yaml", "output:\n  format: markdown\n")

	loader := newTestLoader([]string{project, filepath.Join(dir, "missing.yaml"), system}, nil)
	cfg, err := loader.LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Output.Format != "markdown" {
		t.Errorf("Expected project file to win, got format %s", cfg.Output.Format)
	}
	if cfg.Chart.Title != "System" {
		t.Errorf("Expected system title to survive, got %s", cfg.Chart.Title)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{"invalid yaml", "output: [unclosed", "failed to parse YAML"},
		{"unknown key", "outputs:\n  format: json\n", "failed to parse YAML"},
		{"invalid value", "output:\n  format: xml\n", "invalid output format"},
		{"bounds", "parser:\n  min_clock: 20000\n", "min_clock"},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, dir, "c"+string(rune('a'+i))+".yaml", tt.content)
			_, err := newTestLoader(nil, nil).LoadConfig(path)
			if err == nil {
				t.Fatal("Expected error but got none")
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Expected error containing %q, got %q", tt.errMsg, err.Error())
			}
		})
	}
}

func TestEmptyConfigFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "empty.yaml", "")
	cfg, err := newTestLoader(nil, nil).LoadConfig(path)
	if err != nil {
		t.Fatalf("Expected empty file to load, got %v", err)
	}
	if cfg.Output.Format != "text" {
		t.Errorf("Expected default format, got %s", cfg.Output.Format)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	env := map[string]string{
		"VFTAIL_PARSER_MAX_CLOCK":    "6000",
		"VFTAIL_TAIL_POLL_INTERVAL":  "1s",
		"VFTAIL_TAIL_FOLLOW":         "false",
		"VFTAIL_OUTPUT_FORMAT":       "csv",
		"VFTAIL_CHART_WIDTH":         "640",
		"VFTAIL_METRICS_LISTEN_ADDR": ":9101",
		"VFTAIL_LOGGING_FORMAT":      "json",
	}
	cfg := DefaultConfig()

	if err := newTestLoader(nil, env).applyEnvOverrides(cfg); err != nil {
		t.Fatalf("applyEnvOverrides failed: %v", err)
	}

	if cfg.Parser.MaxClock != 6000 {
		t.Errorf("Expected max clock 6000, got %v", cfg.Parser.MaxClock)
	}
	if cfg.Tail.PollInterval != time.Second || cfg.Tail.Follow {
		t.Errorf("Expected 1s poll without follow, got %+v", cfg.Tail)
	}
	if cfg.Output.Format != "csv" {
		t.Errorf("Expected format csv, got %s", cfg.Output.Format)
	}
	if cfg.Chart.Width != 640 {
		t.Errorf("Expected chart width 640, got %d", cfg.Chart.Width)
	}
	if cfg.Metrics.ListenAddr != ":9101" {
		t.Errorf("Expected listen addr :9101, got %s", cfg.Metrics.ListenAddr)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Expected logging format json, got %s", cfg.Logging.Format)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "vftail.yaml", "output:\n  format: json\n")
	env := map[string]string{"VFTAIL_OUTPUT_FORMAT": "markdown"}

	cfg, err := newTestLoader(nil, env).LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Output.Format != "markdown" {
		t.Errorf("Expected env to win over file, got %s", cfg.Output.Format)
	}
}

func TestApplyEnvOverridesInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		envVar string
		value  string
	}{
		{"invalid int", "VFTAIL_CHART_WIDTH", "not-a-number"},
		{"invalid float", "VFTAIL_PARSER_MAX_VOLTAGE", "high"},
		{"invalid bool", "VFTAIL_OUTPUT_VERBOSE", "not-a-bool"},
		{"invalid duration", "VFTAIL_TAIL_POLL_INTERVAL", "not-a-duration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader := newTestLoader(nil, map[string]string{tt.envVar: tt.value})
			err := loader.applyEnvOverrides(DefaultConfig())
			if err == nil {
				t.Fatal("Expected error for invalid env var value, but got none")
			}
			if !strings.Contains(err.Error(), tt.envVar) {
				t.Errorf("Expected error to name %s, got %v", tt.envVar, err)
			}
		})
	}
}

func TestParseHelpers(t *testing.T) {
	var d time.Duration
	if err := parseDuration("30s", &d); err != nil || d != 30*time.Second {
		t.Errorf("Expected 30s, got %v (%v)", d, err)
	}

	var i int
	if err := parseInt("42", &i); err != nil || i != 42 {
		t.Errorf("Expected 42, got %d (%v)", i, err)
	}

	var f float64
	if err := parseFloat("1.35", &f); err != nil || f != 1.35 {
		t.Errorf("Expected 1.35, got %v (%v)", f, err)
	}

	var b bool
	if err := parseBool("true", &b); err != nil || !b {
		t.Errorf("Expected true, got %v (%v)", b, err)
	}
	if err := parseBool("maybe", &b); err == nil {
		t.Error("Expected error for invalid bool, but got none")
	}
}

func TestFileExists(t *testing.T) {
	if fileExists("/path/that/does/not/exist") {
		t.Error("Expected file to not exist, but fileExists returned true")
	}

	tempFile := writeConfig(t, t.TempDir(), "test-file", "test")
	if !FileExists(tempFile) {
		t.Error("Expected file to exist, but FileExists returned false")
	}
}

func TestValidateConfigPath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid yaml file",
			path:    "config.yaml",
			wantErr: false,
		},
		{
			name:    "valid yml file",
			path:    "config.yml",
			wantErr: false,
		},
		{
			name:    "path traversal attempt",
			path:    "../../../etc/passwd",
			wantErr: true,
			errMsg:  "path traversal not allowed",
		},
		{
			name:    "non-yaml file",
			path:    "config.txt",
			wantErr: true,
			errMsg:  "config file must have .yaml or .yml extension",
		},
		{
			name:    "proc filesystem access",
			path:    "/proc/version.yaml",
			wantErr: true,
			errMsg:  "access to system files not allowed",
		},
		{
			name:    "relative path with valid extension",
			path:    "./configs/app.yaml",
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateConfigPath(tt.path)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error but got none")
				} else if tt.errMsg != "" && !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("Expected error message to contain '%s', got '%s'", tt.errMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}
