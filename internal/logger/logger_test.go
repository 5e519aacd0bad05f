package logger

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestVerboseGating(t *testing.T) {
	var buf bytes.Buffer
	verbose := false
	log := NewWithWriter("parser", &buf, func() bool { return verbose })

	log.Debug("hidden %d", 1)
	log.Info("hidden too")
	if buf.Len() != 0 {
		t.Errorf("Expected no output when not verbose, got %q", buf.String())
	}

	verbose = true
	log.Debug("shown %d", 2)
	if !strings.Contains(buf.String(), "shown 2") {
		t.Errorf("Expected debug output when verbose, got %q", buf.String())
	}
}

func TestWarnAndErrorAlwaysShown(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("tail", &buf, nil)

	log.Warn("poll fallback")
	log.Error("read failed")

	out := buf.String()
	if !strings.Contains(out, "poll fallback") || !strings.Contains(out, "read failed") {
		t.Errorf("Expected warn and error output, got %q", out)
	}
	if !strings.Contains(out, "component=tail") {
		t.Errorf("Expected component attribute, got %q", out)
	}
}

func TestFieldsAndComponent(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("parser", &buf, func() bool { return true }).WithComponent("header")

	log.InfoWithFields("resolved", []Field{Count(4), F("path", "log.csv"), Error(errors.New("boom"))})

	out := buf.String()
	for _, want := range []string{"component=header", "count=4", "path=log.csv", "error=boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output, got %q", want, out)
		}
	}
}

func TestNop(t *testing.T) {
	log := Nop()
	log.Error("nothing happens")
	log.WarnWithFields("still nothing", []Field{F("k", "v")})
}
