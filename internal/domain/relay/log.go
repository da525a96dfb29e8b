package relay

import (
	"fmt"
	"sync"
	"time"
)

// DefaultCapacity bounds a Log when no capacity is configured
const DefaultCapacity = 1000

// Log is the ordered message list of one session, scoped to the generation
// of the document currently rendered.
//
// Reset adopts a new generation and empties the list in one step; Append
// refuses messages from any other generation. Sequence numbers keep
// increasing across resets so readers can poll with Since.
type Log struct {
	mu         sync.RWMutex
	generation uint64
	messages   []Message
	nextSeq    uint64
	capacity   int
	dropped    uint64
	now        func() time.Time
}

// NewLog creates an empty log at generation zero
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{
		capacity: capacity,
		nextSeq:  1,
		now:      time.Now,
	}
}

// Reset empties the log and adopts generation. Older generations are
// ignored so a late reset can never resurrect a superseded document.
func (l *Log) Reset(generation uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if generation < l.generation {
		return false
	}
	l.generation = generation
	l.messages = l.messages[:0:0]
	return true
}

// Append adds a message for generation. Messages from any other generation
// are rejected with ErrStaleGeneration.
func (l *Log) Append(generation uint64, kind Kind, text, source string) (Message, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if generation != l.generation {
		return Message{}, fmt.Errorf("%w: got %d, current %d", ErrStaleGeneration, generation, l.generation)
	}

	msg := Message{
		Seq:        l.nextSeq,
		Generation: generation,
		Kind:       kind,
		Text:       text,
		Source:     source,
		Time:       l.now(),
	}
	l.nextSeq++

	if len(l.messages) >= l.capacity {
		l.messages = append(l.messages[:0], l.messages[1:]...)
		l.dropped++
	}
	l.messages = append(l.messages, msg)
	return msg, nil
}

// Messages returns a copy of the current list in arrival order
func (l *Log) Messages() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Message(nil), l.messages...)
}

// Since returns the messages with a sequence number greater than seq
func (l *Log) Since(seq uint64) []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for i, m := range l.messages {
		if m.Seq > seq {
			return append([]Message(nil), l.messages[i:]...)
		}
	}
	return []Message{}
}

// Generation returns the generation the log currently accepts
func (l *Log) Generation() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.generation
}

// Len returns the number of messages held
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}

// Dropped counts messages evicted by the capacity bound
func (l *Log) Dropped() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.dropped
}
