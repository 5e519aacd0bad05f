package session

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yildizm/vftail/internal/parser"
	"github.com/yildizm/vftail/internal/tail"
)

const sampleLog = "Date,Core 0 VID,Core 0 Clock\n1/1,1.200,4000\n1/1,1.250,4100\n"

func newTestSession(t *testing.T, follow bool) (*Session, *int) {
	t.Helper()
	opened := 0
	s := NewWithOpener(func() (*parser.Parser, error) {
		opened++
		src := tail.NewReader(strings.NewReader(sampleLog), tail.Options{Follow: follow, PollInterval: 10 * time.Millisecond})
		return parser.New(src, parser.DefaultConfig())
	}, nil)
	t.Cleanup(func() { _ = s.Close() })
	return s, &opened
}

func waitDone(t *testing.T, s *Session) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("Expected run to finish")
	}
}

func TestStartRunsToEOF(t *testing.T) {
	s, _ := newTestSession(t, false)

	if s.Parser() != nil || s.Done() != nil {
		t.Fatal("Expected no parser before Start")
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitDone(t, s)

	if s.Running() {
		t.Error("Expected session to stop at end of input")
	}
	if err := s.Err(); err != nil {
		t.Errorf("Expected no run error, got %v", err)
	}
	if got := s.Parser().Counters().SuccessRecords; got != 2 {
		t.Errorf("Expected 2 accepted lines, got %d", got)
	}
}

func TestStartAfterStopBuildsNewParser(t *testing.T) {
	s, opened := newTestSession(t, false)
	ctx := context.Background()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitDone(t, s)
	first := s.Parser()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("second Start failed: %v", err)
	}
	waitDone(t, s)

	if s.Parser() == first {
		t.Error("Expected a new parser after restart")
	}
	if *opened != 2 || s.Generation() != 2 {
		t.Errorf("Expected 2 parsers, got opened=%d generation=%d", *opened, s.Generation())
	}
	if first.State() != parser.StateStopped {
		t.Errorf("Expected old parser stopped, got %s", first.State())
	}
}

func TestStopAndToggle(t *testing.T) {
	s, _ := newTestSession(t, true)
	ctx := context.Background()

	if err := s.Toggle(ctx); err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	if !s.Running() {
		t.Fatal("Expected following session to keep running")
	}
	// Starting twice is a no-op.
	if err := s.Start(ctx); err != nil {
		t.Errorf("Expected no error starting a running session, got %v", err)
	}
	if s.Generation() != 1 {
		t.Errorf("Expected 1 parser, got %d", s.Generation())
	}

	if err := s.Toggle(ctx); err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	if s.Running() {
		t.Error("Expected session stopped after second toggle")
	}
	if st := s.Parser().State(); st != parser.StateStopped {
		t.Errorf("Expected parser state Stopped, got %s", st)
	}
}

func TestReload(t *testing.T) {
	s, _ := newTestSession(t, true)
	ctx := context.Background()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	first := s.Parser()

	if err := s.Reload(ctx); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if s.Parser() == first {
		t.Error("Expected reload to build a new parser")
	}
	if !s.Running() {
		t.Error("Expected reloaded session to be running again")
	}

	s.Stop()
	if err := s.Reload(ctx); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if s.Running() {
		t.Error("Expected reload of a stopped session to stay stopped")
	}
	if st := s.Parser().State(); st != parser.StateIdle {
		t.Errorf("Expected idle parser after reload, got %s", st)
	}
}

func TestOnAttach(t *testing.T) {
	s, _ := newTestSession(t, false)
	ctx := context.Background()

	var mu sync.Mutex
	attached, detached := 0, 0
	s.OnAttach(func(p *parser.Parser) func() {
		mu.Lock()
		attached++
		mu.Unlock()
		return func() {
			mu.Lock()
			detached++
			mu.Unlock()
		}
	})

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitDone(t, s)
	if err := s.Reload(ctx); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	// A hook added late sees the current parser right away.
	late := 0
	s.OnAttach(func(p *parser.Parser) func() {
		late++
		return nil
	})
	if late != 1 {
		t.Errorf("Expected late hook called once, got %d", late)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if attached != 2 || detached != 2 {
		t.Errorf("Expected 2 attaches and 2 detaches, got %d and %d", attached, detached)
	}
}

func TestClosed(t *testing.T) {
	s, _ := newTestSession(t, false)
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Expected second Close to succeed, got %v", err)
	}
	if err := s.Start(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
	if err := s.Reload(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed from Reload, got %v", err)
	}
}

func TestOpenFailure(t *testing.T) {
	s := New("/nonexistent/sensors.csv", parser.DefaultConfig(), nil)
	defer s.Close()

	var openErr *parser.OpenError
	if err := s.Start(context.Background()); !errors.As(err, &openErr) {
		t.Errorf("Expected *parser.OpenError, got %v", err)
	}
	if s.Running() {
		t.Error("Expected session not running after open failure")
	}
}

// endedSource has no lines and reports end of input on the first wait.
type endedSource struct {
	waitCtx context.Context
}

func (e *endedSource) ReadLine() (string, error) { return "", tail.ErrNoLine }

func (e *endedSource) Wait(ctx context.Context) error {
	e.waitCtx = ctx
	return io.EOF
}

func (e *endedSource) Close() error { return nil }

func TestRunContextReleasedAtEOF(t *testing.T) {
	src := &endedSource{}
	s := NewWithOpener(func() (*parser.Parser, error) {
		return parser.New(src, parser.DefaultConfig())
	}, nil)
	t.Cleanup(func() { _ = s.Close() })

	parent, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(parent); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitDone(t, s)

	if src.waitCtx == nil {
		t.Fatal("Expected the parser to wait for input")
	}
	if !errors.Is(src.waitCtx.Err(), context.Canceled) {
		t.Errorf("Expected run context cancelled once the run ended, got %v", src.waitCtx.Err())
	}
	if parent.Err() != nil {
		t.Error("Expected parent context untouched")
	}
}
