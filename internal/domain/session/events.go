package session

import "github.com/GriffinCanCode/livepen/internal/domain/relay"

// EventType names a session event
type EventType string

const (
	EventReset   EventType = "reset"   // message list cleared for a new generation
	EventRender  EventType = "render"  // new document to load
	EventMessage EventType = "message" // message appended
	EventName    EventType = "name"    // project name changed
)

// Event is published to subscribers of a session
type Event struct {
	Type       EventType      `json:"type"`
	Generation uint64         `json:"generation,omitempty"`
	Document   string         `json:"document,omitempty"`
	Message    *relay.Message `json:"message,omitempty"`
	Name       string         `json:"name,omitempty"`
}

// subscribe registers a bounded channel. The returned function is safe to
// call more than once.
func (s *Session) subscribe() (<-chan Event, func()) {
	ch := make(chan Event, s.bufSize)

	s.subMu.Lock()
	if s.closed {
		s.subMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subs[ch] = struct{}{}
	s.subMu.Unlock()

	return ch, func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
	}
}

// publish fans an event out without blocking. A subscriber whose buffer is
// full is dropped and its channel closed.
func (s *Session) publish(event Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for ch := range s.subs {
		select {
		case ch <- event:
		default:
			delete(s.subs, ch)
			close(ch)
			s.logger.Warn("dropping slow subscriber")
		}
	}
}

func (s *Session) closeSubscribers() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	s.closed = true
	for ch := range s.subs {
		delete(s.subs, ch)
		close(ch)
	}
}

func (s *Session) subscribers() int {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	return len(s.subs)
}
