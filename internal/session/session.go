// Package session owns the parser for one log file across start, stop and
// reload. A parser runs at most once, so restarting builds a new one.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/yildizm/vftail/internal/logger"
	"github.com/yildizm/vftail/internal/parser"
)

// ErrClosed is returned by operations on a closed session
var ErrClosed = errors.New("session closed")

// Opener builds a fresh parser for the session's file
type Opener func() (*parser.Parser, error)

// AttachFunc is called with every new parser before it starts. The returned
// func, if any, is called when the parser is replaced or the session closes.
type AttachFunc func(p *parser.Parser) func()

// Session starts, stops and replaces parsers for one file
type Session struct {
	open Opener
	log  *logger.Logger

	mu         sync.Mutex
	current    *parser.Parser
	detach     []func()
	hooks      []AttachFunc
	cancel     context.CancelFunc
	done       chan struct{}
	runErr     error
	generation int
	closed     bool
}

// New returns a session that opens path with cfg
func New(path string, cfg parser.Config, log *logger.Logger, opts ...parser.Option) *Session {
	if log == nil {
		log = logger.Nop()
	}
	opts = append([]parser.Option{parser.WithLogger(log.WithComponent("parser"))}, opts...)
	return NewWithOpener(func() (*parser.Parser, error) {
		return parser.Open(path, cfg, opts...)
	}, log)
}

// NewWithOpener returns a session using open to build parsers
func NewWithOpener(open Opener, log *logger.Logger) *Session {
	if log == nil {
		log = logger.Nop()
	}
	return &Session{open: open, log: log}
}

// OnAttach registers fn for every parser the session builds from now on,
// and calls it right away for the current one.
func (s *Session) OnAttach(fn AttachFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, fn)
	if s.current != nil {
		if d := fn(s.current); d != nil {
			s.detach = append(s.detach, d)
		}
	}
}

// Parser returns the current parser, or nil before the first Start
func (s *Session) Parser() *parser.Parser {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Generation counts the parsers built so far
func (s *Session) Generation() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Running reports whether a parser is currently running
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runningLocked()
}

func (s *Session) runningLocked() bool {
	if s.done == nil {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// Done returns a channel closed when the current run ends. It is nil
// before the first Start.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Err returns the error of the last finished run
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runErr
}

// Start runs the parser in the background. A stopped parser is replaced by
// a new one reading the file from the start. Starting a running session is
// a no-op.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.runningLocked() {
		return nil
	}
	if s.current == nil || s.current.State() != parser.StateIdle {
		if err := s.replaceLocked(); err != nil {
			return err
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p := s.current
	s.cancel = cancel
	s.done = done
	s.runErr = nil

	go func() {
		defer close(done)
		err := p.Run(runCtx)
		cancel()
		if err != nil {
			s.log.ErrorWithFields("parser stopped", []logger.Field{logger.Error(err)})
		}
		s.mu.Lock()
		if s.done == done {
			s.runErr = err
		}
		s.mu.Unlock()
	}()
	return nil
}

// Stop cancels the running parser and waits for it to finish. The parser
// stays available for queries until it is replaced.
func (s *Session) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Toggle stops a running session or starts a stopped one
func (s *Session) Toggle(ctx context.Context) error {
	if s.Running() {
		s.Stop()
		return nil
	}
	return s.Start(ctx)
}

// Reload replaces the parser with a new one and starts it again if the old
// one was running.
func (s *Session) Reload(ctx context.Context) error {
	wasRunning := s.Running()
	s.Stop()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	err := s.replaceLocked()
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.log.InfoWithFields("parser reloaded", []logger.Field{logger.F("generation", s.Generation())})
	if wasRunning {
		return s.Start(ctx)
	}
	return nil
}

// replaceLocked disposes the current parser and builds the next one. The
// old parser is closed even if the new one cannot be opened.
func (s *Session) replaceLocked() error {
	s.disposeLocked()

	p, err := s.open()
	if err != nil {
		return err
	}
	s.current = p
	s.generation++
	if s.cancel != nil {
		s.cancel()
	}
	s.done = nil
	s.cancel = nil
	for _, hook := range s.hooks {
		if d := hook(p); d != nil {
			s.detach = append(s.detach, d)
		}
	}
	return nil
}

func (s *Session) disposeLocked() {
	for _, d := range s.detach {
		d()
	}
	s.detach = nil
	if s.current != nil {
		if err := s.current.Close(); err != nil {
			s.log.WarnWithFields("failed to close parser", []logger.Field{logger.Error(err)})
		}
		s.current = nil
	}
}

// Close stops the session and releases the parser
func (s *Session) Close() error {
	s.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.disposeLocked()
	return nil
}
