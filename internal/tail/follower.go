// Package tail reads lines from a file that another process is still writing.
package tail

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/yildizm/vftail/internal/logger"
)

var (
	// ErrNoLine is returned by ReadLine when no complete line is available yet.
	ErrNoLine = errors.New("no line available")

	// ErrClosed is returned by Wait once the follower has been closed.
	ErrClosed = errors.New("follower closed")
)

// DefaultPollInterval matches the retry delay used when the log is caught up.
const DefaultPollInterval = 500 * time.Millisecond

// Options controls how a Follower waits for new data
type Options struct {
	// PollInterval is the upper bound of a single Wait.
	PollInterval time.Duration

	// Follow keeps waiting at end of input. When false, Wait returns io.EOF.
	Follow bool

	// UseFSNotify wakes Wait early on write events for the followed file.
	UseFSNotify bool

	// Logger receives watcher warnings. Nil discards them.
	Logger *logger.Logger
}

// DefaultOptions returns options for tail -f behaviour
func DefaultOptions() Options {
	return Options{
		PollInterval: DefaultPollInterval,
		Follow:       true,
		UseFSNotify:  true,
	}
}

// Follower yields complete lines from an underlying reader and waits for more
// once the reader is exhausted. A trailing line without a newline is held back
// until its terminator arrives, unless Follow is off.
type Follower struct {
	opts    Options
	reader  *bufio.Reader
	closer  io.Closer
	pending []byte

	watcher *fsnotify.Watcher
	wake    chan struct{}
	done    chan struct{}

	closeOnce sync.Once
	closeErr  error
	log       *logger.Logger
}

// Open opens path for shared reading and returns a follower positioned at
// the start of the file.
func Open(path string, opts Options) (*Follower, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("empty file path")
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot access file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("cannot follow directory %s, must be a file", path)
	}

	// #nosec G304 - the path is chosen by the user on purpose
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	f := newFollower(file, file, opts)

	if opts.Follow && opts.UseFSNotify {
		if err := f.startWatcher(path); err != nil {
			f.log.Warn("file notifications unavailable, polling every %v: %v", f.opts.PollInterval, err)
		}
	}

	return f, nil
}

// NewReader wraps an arbitrary reader. File notifications are not available.
func NewReader(r io.Reader, opts Options) *Follower {
	var closer io.Closer
	if c, ok := r.(io.Closer); ok {
		closer = c
	}
	opts.UseFSNotify = false
	return newFollower(r, closer, opts)
}

func newFollower(r io.Reader, closer io.Closer, opts Options) *Follower {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Follower{
		opts:   opts,
		reader: bufio.NewReader(r),
		closer: closer,
		done:   make(chan struct{}),
		log:    log.WithComponent("tail"),
	}
}

// startWatcher watches the parent directory so that the watch survives
// editors and loggers that replace the file.
func (f *Follower) startWatcher(path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch file: %w", err)
	}

	f.watcher = watcher
	f.wake = make(chan struct{}, 1)
	go f.forwardEvents(abs)
	return nil
}

func (f *Follower) forwardEvents(path string) {
	for {
		select {
		case <-f.done:
			return
		case event, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			select {
			case f.wake <- struct{}{}:
			default:
			}
		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			f.log.Debug("watcher error: %v", err)
		}
	}
}

// ReadLine returns the next complete line without its terminator.
// It returns ErrNoLine when the reader is exhausted for now.
func (f *Follower) ReadLine() (string, error) {
	chunk, err := f.reader.ReadBytes('\n')
	if len(chunk) > 0 {
		f.pending = append(f.pending, chunk...)
	}

	switch {
	case err == nil:
		return f.takePending(), nil
	case errors.Is(err, io.EOF):
		if !f.opts.Follow && len(f.pending) > 0 {
			return f.takePending(), nil
		}
		return "", ErrNoLine
	default:
		return "", err
	}
}

func (f *Follower) takePending() string {
	line := strings.TrimRight(string(f.pending), "\r\n")
	f.pending = f.pending[:0]
	return line
}

// Wait blocks until new data may be available, the poll interval elapses or
// ctx is cancelled. Without Follow it returns io.EOF immediately.
func (f *Follower) Wait(ctx context.Context) error {
	if !f.opts.Follow {
		return io.EOF
	}

	timer := time.NewTimer(f.opts.PollInterval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-f.done:
		return ErrClosed
	case <-timer.C:
		return nil
	case <-f.wake:
		return nil
	}
}

// Close releases the watcher and the underlying file. It is safe to call
// more than once; later calls return the first result.
func (f *Follower) Close() error {
	f.closeOnce.Do(func() {
		close(f.done)
		var errs []error
		if f.watcher != nil {
			if err := f.watcher.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close watcher: %w", err))
			}
		}
		if f.closer != nil {
			if err := f.closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close file: %w", err))
			}
		}
		f.closeErr = errors.Join(errs...)
	})
	return f.closeErr
}
