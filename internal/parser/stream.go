package parser

import "sync"

// FeedView is the read-only side of a Feed. Consumers may poll it while the
// parser appends.
type FeedView interface {
	// Len returns the number of entries appended so far.
	Len() int
	// At returns the i-th entry in arrival order.
	At(i int) Entry
	// Snapshot returns every entry appended so far.
	Snapshot() []Entry
	// Since returns the entries appended after the first n.
	Since(n int) []Entry
}

// Feed is an append-only sequence of entries in arrival order.
//
// Elements are never rewritten once appended, so the slices handed out by
// Snapshot and Since stay valid after the lock is released: they are capped
// with a full slice expression and later appends land beyond their capacity.
type Feed struct {
	mu      sync.RWMutex
	entries []Entry
}

func (f *Feed) append(e Entry) {
	f.mu.Lock()
	f.entries = append(f.entries, e)
	f.mu.Unlock()
}

// Len returns the number of entries.
func (f *Feed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.entries)
}

// At returns the i-th entry. It panics if i is out of range, like a slice.
func (f *Feed) At(i int) Entry {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.entries[i]
}

// Snapshot returns all entries appended so far.
func (f *Feed) Snapshot() []Entry {
	return f.Since(0)
}

// Since returns the entries appended after the first n. A negative n is
// treated as zero and an n past the end yields nil.
func (f *Feed) Since(n int) []Entry {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if n < 0 {
		n = 0
	}
	if n >= len(f.entries) {
		return nil
	}
	end := len(f.entries)
	return f.entries[n:end:end]
}

// readOnlyFeed hides the concrete Feed from consumers.
type readOnlyFeed struct{ f *Feed }

func (r readOnlyFeed) Len() int            { return r.f.Len() }
func (r readOnlyFeed) At(i int) Entry      { return r.f.At(i) }
func (r readOnlyFeed) Snapshot() []Entry   { return r.f.Snapshot() }
func (r readOnlyFeed) Since(n int) []Entry { return r.f.Since(n) }

// CoreStats counts accepted and duplicate entries for one core.
type CoreStats struct {
	RecordCount    int `json:"record_count"`
	DuplicateCount int `json:"duplicate_count"`
}

// CoreStream is the per-core state: a set of seen entries and the feed
// exposing them in arrival order. The feed only ever receives entries that
// were newly added to seen, so it mirrors seen without duplicates.
type CoreStream struct {
	seen  map[Entry]struct{}
	feed  *Feed
	stats CoreStats
}

func newCoreStream() *CoreStream {
	return &CoreStream{
		seen: make(map[Entry]struct{}),
		feed: &Feed{},
	}
}

// insert adds e and reports whether it was new. Callers hold the parser lock.
func (s *CoreStream) insert(e Entry) bool {
	if _, dup := s.seen[e]; dup {
		s.stats.DuplicateCount++
		return false
	}
	s.seen[e] = struct{}{}
	s.stats.RecordCount = len(s.seen)
	s.feed.append(e)
	return true
}

// View returns the read-only feed of this core.
func (s *CoreStream) View() FeedView {
	return readOnlyFeed{f: s.feed}
}
