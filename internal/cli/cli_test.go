package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/yildizm/vftail/internal/chart"
	"github.com/yildizm/vftail/internal/parser"
	"github.com/yildizm/vftail/internal/session"
	"github.com/yildizm/vftail/internal/tail"
)

const sampleLog = `Date,Time,Core 0 VID [V],Core 0 Clock [MHz],Core 1 VID [V],Core 1 Clock [MHz]
1.1.2024,10:00:00,1.200,4000,1.100,3900
1.1.2024,10:00:01,1.250,4100,1.100,3900
1.1.2024,10:00:02,9.999,4100,1.100,3900
`

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sensors.csv")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write log: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand("1.2.3", "abc123", "2024-01-01")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--no-emoji"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestSummaryJSON(t *testing.T) {
	path := writeLog(t, sampleLog)

	out, err := execute(t, "summary", "--output", "json", path)
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}

	var report struct {
		HeaderParsed bool            `json:"header_parsed"`
		Counters     parser.Counters `json:"counters"`
		Cores        []struct {
			Core    int `json:"core"`
			Records int `json:"records"`
		} `json:"cores"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("Invalid JSON output: %v\n%s", err, out)
	}

	if !report.HeaderParsed {
		t.Error("Expected header to be parsed")
	}
	want := parser.Counters{ProcessedLines: 4, SuccessRecords: 2, ErrorRecords: 1}
	if report.Counters != want {
		t.Errorf("Expected counters %+v, got %+v", want, report.Counters)
	}
	if len(report.Cores) != 2 || report.Cores[0].Records != 2 || report.Cores[1].Records != 1 {
		t.Errorf("Unexpected cores: %+v", report.Cores)
	}
}

func TestSummaryToFile(t *testing.T) {
	path := writeLog(t, sampleLog)
	dest := filepath.Join(t.TempDir(), "samples.csv")

	out, err := execute(t, "summary", "-o", "csv", "--file", dest, path)
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	if out != "" {
		t.Errorf("Expected nothing on stdout, got %q", out)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("Expected report file: %v", err)
	}
	if !strings.HasPrefix(string(data), "core,sequence,voltage,clock\n") {
		t.Errorf("Expected CSV header, got:\n%s", data)
	}
}

func TestSummaryErrors(t *testing.T) {
	path := writeLog(t, sampleLog)

	_, err := execute(t, "summary", filepath.Join(t.TempDir(), "missing.csv"))
	var openErr *parser.OpenError
	if !errors.As(err, &openErr) {
		t.Errorf("Expected *parser.OpenError for missing file, got %v", err)
	}

	if _, err := execute(t, "summary", "-o", "xml", path); err == nil {
		t.Error("Expected error for unsupported format")
	}
}

func TestChartCommand(t *testing.T) {
	path := writeLog(t, sampleLog)
	dest := filepath.Join(t.TempDir(), "core0.png")

	out, err := execute(t, "chart", "-o", dest, "--cores", "0", "--width", "400", "--height", "300", path)
	if err != nil {
		t.Fatalf("chart failed: %v", err)
	}
	if !strings.Contains(out, "Chart written to "+dest) {
		t.Errorf("Expected confirmation, got %q", out)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("Expected chart file: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Error("Expected PNG data")
	}
}

func TestChartCommandErrors(t *testing.T) {
	path := writeLog(t, sampleLog)
	noHeader := writeLog(t, "a,b\n1,2\n")
	dest := filepath.Join(t.TempDir(), "out.png")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown core", []string{"chart", "-o", dest, "--cores", "7", path}, "core 7 is not in the log"},
		{"bad core list", []string{"chart", "-o", dest, "--cores", "0,x", path}, "invalid core"},
		{"no header", []string{"chart", "-o", dest, noHeader}, "no header line found"},
		{"bad size", []string{"chart", "-o", dest, "--width", "-1", path}, "width"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestParseCores(t *testing.T) {
	tests := []struct {
		in      string
		want    []int
		wantErr bool
	}{
		{"", nil, false},
		{"0", []int{0}, false},
		{"0, 2,5", []int{0, 2, 5}, false},
		{"3,3,1", []int{3, 1}, false},
		{"0,,1", []int{0, 1}, false},
		{"a", nil, true},
		{"-1", nil, true},
	}

	for _, tt := range tests {
		got, err := parseCores(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseCores(%q): expected error=%v, got %v", tt.in, tt.wantErr, err)
			continue
		}
		if !slices.Equal(got, tt.want) {
			t.Errorf("parseCores(%q): expected %v, got %v", tt.in, tt.want, got)
		}
	}
}

func TestWatchPlainNoFollow(t *testing.T) {
	path := writeLog(t, sampleLog)

	out, err := execute(t, "watch", "--plain", "--no-follow", "--poll", "10ms", path)
	if err != nil {
		t.Fatalf("watch failed: %v", err)
	}

	for _, want := range []string{
		"[OK] Header found: 2 cores",
		"Line 4 rejected",
		"[Stopped] Processed: 4 Success: 2 Error: 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}
}

func TestInitialCoresSurviveReload(t *testing.T) {
	vis := chart.NewVisibility()
	s := session.NewWithOpener(func() (*parser.Parser, error) {
		return parser.New(tail.NewReader(strings.NewReader(sampleLog), tail.Options{}), parser.DefaultConfig())
	}, nil)
	defer s.Close()
	s.OnAttach(initialCores(vis, []int{0}))

	run := func() {
		t.Helper()
		if err := s.Start(context.Background()); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		select {
		case <-s.Done():
		case <-time.After(5 * time.Second):
			t.Fatal("Expected run to finish")
		}
	}

	run()
	if !vis.Visible(0) || vis.Visible(1) {
		t.Fatalf("Expected only core 0 visible, got 0=%v 1=%v", vis.Visible(0), vis.Visible(1))
	}

	vis.Toggle(1)
	if err := s.Reload(context.Background()); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	run()
	if !vis.Visible(0) || !vis.Visible(1) {
		t.Errorf("Expected visibility picked after start kept across reload, got 0=%v 1=%v", vis.Visible(0), vis.Visible(1))
	}
}

func TestWatchInvalidFlags(t *testing.T) {
	path := writeLog(t, sampleLog)

	if _, err := execute(t, "watch", "--plain", "--theme", "neon", path); err == nil {
		t.Error("Expected error for unknown theme")
	}
	if _, err := execute(t, "watch", "--plain", "--poll", "-1s", path); err == nil {
		t.Error("Expected error for negative poll interval")
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "conf", "vftail.yaml")

	out, err := execute(t, "config", "init", "--output", dest)
	if err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	if !strings.Contains(out, "Configuration file created at: "+dest) {
		t.Errorf("Unexpected init output: %q", out)
	}

	if _, err := execute(t, "config", "init", "--output", dest); err == nil {
		t.Error("Expected error when config already exists")
	}
	if _, err := execute(t, "config", "init", "--minimal", "--force", "--output", dest); err != nil {
		t.Errorf("Expected --force to overwrite, got %v", err)
	}

	out, err = execute(t, "--config", dest, "config", "validate")
	if err != nil {
		t.Fatalf("config validate failed: %v", err)
	}
	if !strings.Contains(out, "Configuration is valid") {
		t.Errorf("Expected valid configuration, got:\n%s", out)
	}
}

func TestConfigShow(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "vftail.yaml")
	if err := os.WriteFile(dest, []byte("parser:\n  max_clock: 6000\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "--config", dest, "config", "show", "--format", "json")
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	if !strings.Contains(out, `"max_clock": 6000`) {
		t.Errorf("Expected overridden max_clock in:\n%s", out)
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(out, "vftail 1.2.3 (abc123) built on 2024-01-01") {
		t.Errorf("Unexpected version output: %q", out)
	}
}
