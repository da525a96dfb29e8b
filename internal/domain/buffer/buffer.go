package buffer

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// DefaultName is used wherever a project has no name of its own
const DefaultName = "Webpage"

// Kind identifies one of the three source buffers
type Kind string

const (
	HTML Kind = "html"
	CSS  Kind = "css"
	JS   Kind = "js"
)

// ErrUnknownKind is returned by ParseKind for names outside Kinds
var ErrUnknownKind = errors.New("unknown buffer kind")

// Kinds lists every buffer kind in composition order
var Kinds = []Kind{HTML, CSS, JS}

// ParseKind converts a case-insensitive name into a Kind
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case HTML:
		return HTML, nil
	case CSS:
		return CSS, nil
	case JS, "javascript":
		return JS, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownKind, s)
}

// Snapshot is an immutable view of the three buffers
type Snapshot struct {
	HTML string `json:"html"`
	CSS  string `json:"css"`
	JS   string `json:"js"`
}

// Get returns the text of one buffer
func (s Snapshot) Get(kind Kind) string {
	switch kind {
	case HTML:
		return s.HTML
	case CSS:
		return s.CSS
	case JS:
		return s.JS
	}
	return ""
}

// With returns a copy of s with one buffer replaced
func (s Snapshot) With(kind Kind, text string) Snapshot {
	switch kind {
	case HTML:
		s.HTML = text
	case CSS:
		s.CSS = text
	case JS:
		s.JS = text
	}
	return s
}

// Observer is notified with the new snapshot after every content change
type Observer func(Snapshot)

// Store holds the buffers of one project and notifies observers on change.
//
// Observers run synchronously under the store lock, in registration order,
// so a change and everything derived from it are serialized against the
// next change. Observers must not call back into the Store.
type Store struct {
	mu        sync.Mutex
	snap      Snapshot
	name      string
	version   uint64
	observers []Observer
}

// NewStore creates a store seeded with the given snapshot
func NewStore(initial Snapshot) *Store {
	return &Store{snap: initial}
}

// Observe registers fn and immediately delivers the current snapshot to it
func (s *Store) Observe(fn Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.observers = append(s.observers, fn)
	fn(s.snap)
}

// Set replaces one buffer. It reports false when the text is unchanged.
func (s *Store) Set(kind Kind, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snap.Get(kind) == text {
		return false
	}
	s.commit(s.snap.With(kind, text))
	return true
}

// Replace swaps all three buffers at once with a single notification
func (s *Store) Replace(next Snapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snap == next {
		return false
	}
	s.commit(next)
	return true
}

func (s *Store) commit(next Snapshot) {
	s.snap = next
	s.version++
	for _, fn := range s.observers {
		fn(next)
	}
}

// Snapshot returns the current buffers
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Version counts content changes since creation
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// SetName sets the project name. Observers are not notified.
func (s *Store) SetName(name string) {
	s.mu.Lock()
	s.name = strings.TrimSpace(name)
	s.mu.Unlock()
}

// Name returns the project name as entered, possibly empty
func (s *Store) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// DisplayName returns the project name or DefaultName
func (s *Store) DisplayName() string {
	if name := s.Name(); name != "" {
		return name
	}
	return DefaultName
}
