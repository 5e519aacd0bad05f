package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/yildizm/vftail/internal/parser"
)

// refreshInterval bounds how stale counters on screen can get
const refreshInterval = 250 * time.Millisecond

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// stateMsg reports a parser state or header change
type stateMsg struct {
	state parser.State
}

// rejectMsg carries the latest rejected line
type rejectMsg struct {
	line int64
	err  error
}

// actionDoneMsg reports the outcome of a start, stop or reload
type actionDoneMsg struct {
	action string
	err    error
}

// Bridge forwards parser events to the dashboard. Events are dropped when
// the dashboard falls behind, since counters are refreshed on every tick.
type Bridge struct {
	events chan tea.Msg
}

// NewBridge creates a bridge with room for size pending events
func NewBridge(size int) *Bridge {
	if size <= 0 {
		size = 64
	}
	return &Bridge{events: make(chan tea.Msg, size)}
}

// Attach subscribes to p and returns the unsubscribe func. It has the
// signature of a session attach hook.
func (b *Bridge) Attach(p *parser.Parser) func() {
	offProp := p.OnPropertyChanged(func(c parser.PropertyChange) {
		switch c.Property {
		case parser.PropertyState:
			b.send(stateMsg{state: c.Value.(parser.State)})
		case parser.PropertyHeaderParsed:
			b.send(stateMsg{state: p.State()})
		}
	})
	offReject := p.OnLineRejected(func(r parser.LineRejected) {
		b.send(rejectMsg{line: r.Line, err: r.Err})
	})
	return func() {
		offProp()
		offReject()
	}
}

func (b *Bridge) send(msg tea.Msg) {
	select {
	case b.events <- msg:
	default:
	}
}

// wait returns a command delivering the next bridged event
func (b *Bridge) wait() tea.Cmd {
	return func() tea.Msg {
		return <-b.events
	}
}
