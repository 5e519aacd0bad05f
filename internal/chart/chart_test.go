package chart

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yildizm/vftail/internal/parser"
	"github.com/yildizm/vftail/internal/tail"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func sampleSources(t *testing.T) map[int]parser.FeedView {
	t.Helper()
	input := "Core 0 VID,Core 0 Clock,Core 1 VID,Core 1 Clock\n" +
		"1.20,4000,1.10,3900\n" +
		"1.25,4100,1.15,3950\n"
	p, err := parser.New(tail.NewReader(strings.NewReader(input), tail.Options{}), parser.DefaultConfig())
	if err != nil {
		t.Fatalf("parser.New failed: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return p.GetPerCoreDataSource()
}

func TestRenderPNG(t *testing.T) {
	var buf bytes.Buffer
	err := Render(&buf, Collect(sampleSources(t), nil), DefaultOptions())
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), pngMagic) {
		t.Error("Expected PNG output")
	}
}

func TestRenderSinglePoint(t *testing.T) {
	var buf bytes.Buffer
	series := []Series{{Core: 0, Entries: []parser.Entry{{Voltage: 1.2, Clock: 4000}}}}
	if err := Render(&buf, series, Options{Title: "one"}); err != nil {
		t.Fatalf("Render failed for a single point: %v", err)
	}
}

func TestRenderNoData(t *testing.T) {
	tests := []struct {
		name   string
		series []Series
	}{
		{"nil", nil},
		{"empty feeds", []Series{{Core: 0}, {Core: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Render(&bytes.Buffer{}, tt.series, DefaultOptions()); !errors.Is(err, ErrNoData) {
				t.Errorf("Expected ErrNoData, got %v", err)
			}
		})
	}
}

func TestCollectOrderAndVisibility(t *testing.T) {
	sources := sampleSources(t)
	vis := NewVisibility()
	vis.Toggle(0)

	series := Collect(sources, vis)
	if len(series) != 1 || series[0].Core != 1 {
		t.Fatalf("Expected only core 1, got %+v", series)
	}
	if series[0].Name() != "Core 1" {
		t.Errorf("Expected name Core 1, got %s", series[0].Name())
	}
	if len(series[0].Entries) != 2 {
		t.Errorf("Expected 2 entries, got %d", len(series[0].Entries))
	}

	all := Collect(sources, nil)
	if len(all) != 2 || all[0].Core != 0 || all[1].Core != 1 {
		t.Errorf("Expected cores [0 1] in order, got %+v", all)
	}
}

func TestRenderFileReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vf.png")
	series := Collect(sampleSources(t), nil)

	for i := 0; i < 2; i++ {
		if err := RenderFile(path, series, DefaultOptions()); err != nil {
			t.Fatalf("RenderFile failed: %v", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read chart: %v", err)
	}
	if !bytes.HasPrefix(data, pngMagic) {
		t.Error("Expected PNG file")
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("Expected only the chart file, found %d entries", len(entries))
	}
}

func TestRefresherSkipsUnchanged(t *testing.T) {
	sources := sampleSources(t)
	vis := NewVisibility()
	r := &Refresher{
		Path:       filepath.Join(t.TempDir(), "live.png"),
		Options:    DefaultOptions(),
		Source:     func() map[int]parser.FeedView { return sources },
		Visibility: vis,
	}

	tests := []struct {
		name  string
		setup func()
		want  bool
	}{
		{"first render", func() {}, true},
		{"unchanged", func() {}, false},
		{"visibility changed", func() { vis.Exclude(1) }, true},
		{"unchanged again", func() {}, false},
	}
	for _, tt := range tests {
		tt.setup()
		wrote, err := r.Refresh()
		if err != nil {
			t.Fatalf("%s: Refresh failed: %v", tt.name, err)
		}
		if wrote != tt.want {
			t.Errorf("%s: expected written=%v, got %v", tt.name, tt.want, wrote)
		}
	}
}

func TestRefresherNoHeaderYet(t *testing.T) {
	r := &Refresher{
		Path:   filepath.Join(t.TempDir(), "live.png"),
		Source: func() map[int]parser.FeedView { return nil },
	}
	wrote, err := r.Refresh()
	if err != nil || wrote {
		t.Errorf("Expected nothing written without data, got %v, %v", wrote, err)
	}
	if _, err := os.Stat(r.Path); !os.IsNotExist(err) {
		t.Errorf("Expected no chart file, got %v", err)
	}
}

func TestVisibility(t *testing.T) {
	cores := []int{0, 1, 2, 3}
	tests := []struct {
		name string
		act  func(v *Visibility)
		want []bool
	}{
		{"default", func(*Visibility) {}, []bool{true, true, true, true}},
		{"toggle", func(v *Visibility) { v.Toggle(2) }, []bool{true, true, false, true}},
		{"toggle twice", func(v *Visibility) { v.Toggle(2); v.Toggle(2) }, []bool{true, true, true, true}},
		{"solo", func(v *Visibility) { v.Solo(1, cores) }, []bool{false, true, false, false}},
		{"exclude", func(v *Visibility) { v.Solo(1, cores); v.Exclude(3) }, []bool{true, true, true, false}},
		{"show all", func(v *Visibility) { v.Solo(1, cores); v.ShowAll() }, []bool{true, true, true, true}},
		{"only", func(v *Visibility) { v.Only([]int{0, 3}, cores) }, []bool{true, false, false, true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewVisibility()
			tt.act(v)
			for i, core := range cores {
				if got := v.Visible(core); got != tt.want[i] {
					t.Errorf("Core %d: expected visible=%v, got %v", core, tt.want[i], got)
				}
			}
		})
	}
}
