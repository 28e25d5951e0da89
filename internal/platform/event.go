package platform

import "fmt"

// EventKind identifies an OS window event.
type EventKind int

const (
	EventMoved EventKind = iota
	EventResized
	EventFocused
	EventCloseRequested
	EventDestroyed
)

func (k EventKind) String() string {
	switch k {
	case EventMoved:
		return "moved"
	case EventResized:
		return "resized"
	case EventFocused:
		return "focused"
	case EventCloseRequested:
		return "close_requested"
	case EventDestroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is an OS notification about one window, identified by label.
type Event struct {
	Label    string
	Kind     EventKind
	Position Point
	Size     Size
	Focused  bool
}

// Sink receives events and control page actions from a runtime. Both calls
// must return quickly; they are made from the runtime's event goroutines.
type Sink interface {
	PostEvent(Event)
	PostAction(label, action string)
}

// SinkFuncs adapts two functions to a Sink. Nil fields drop the call.
type SinkFuncs struct {
	Event  func(Event)
	Action func(label, action string)
}

func (s SinkFuncs) PostEvent(ev Event) {
	if s.Event != nil {
		s.Event(ev)
	}
}

func (s SinkFuncs) PostAction(label, action string) {
	if s.Action != nil {
		s.Action(label, action)
	}
}
