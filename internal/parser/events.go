package parser

import "sync"

// HeaderParsed is published once, when the header line has been resolved.
type HeaderParsed struct {
	// PerCoreDataSources maps each core id to its read-only feed.
	PerCoreDataSources map[int]FeedView
}

// LineParsed is published after every successfully processed data line.
type LineParsed struct {
	ProcessedLines int64
	SuccessRecords int64
	ErrorRecords   int64
	PerCoreStats   map[int]CoreStats
}

// LineRejected is published for every data line that failed validation.
// Err is a *LineError.
type LineRejected struct {
	Line int64
	Err  error
}

// Property names an observable parser property.
type Property int

const (
	PropertyProcessedLines Property = iota
	PropertySuccessRecords
	PropertyErrorRecords
	PropertyState
	PropertyHeaderParsed
)

func (p Property) String() string {
	switch p {
	case PropertyProcessedLines:
		return "ProcessedLines"
	case PropertySuccessRecords:
		return "SuccessRecords"
	case PropertyErrorRecords:
		return "ErrorRecords"
	case PropertyState:
		return "State"
	case PropertyHeaderParsed:
		return "HeaderParsed"
	default:
		return "Unknown"
	}
}

// PropertyChange carries the new value of a property. Value is an int64 for
// the counters, a State for PropertyState and a bool for PropertyHeaderParsed.
type PropertyChange struct {
	Property Property
	Value    any
}

// handlerList is a set of callbacks that can be removed individually.
type handlerList[T any] struct {
	mu       sync.Mutex
	nextID   int
	handlers map[int]func(T)
	order    []int
}

func (l *handlerList[T]) add(fn func(T)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.handlers == nil {
		l.handlers = make(map[int]func(T))
	}
	id := l.nextID
	l.nextID++
	l.handlers[id] = fn
	l.order = append(l.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			delete(l.handlers, id)
			for i, v := range l.order {
				if v == id {
					l.order = append(l.order[:i], l.order[i+1:]...)
					break
				}
			}
		})
	}
}

// emit calls the handlers in registration order. The list is copied first so
// a handler may unsubscribe itself.
func (l *handlerList[T]) emit(v T) {
	l.mu.Lock()
	fns := make([]func(T), 0, len(l.order))
	for _, id := range l.order {
		fns = append(fns, l.handlers[id])
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}
