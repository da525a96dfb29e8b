package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/livepen/internal/domain/buffer"
	"github.com/GriffinCanCode/livepen/internal/domain/compose"
	"github.com/GriffinCanCode/livepen/internal/domain/preview"
	"github.com/GriffinCanCode/livepen/internal/domain/probe"
	"github.com/GriffinCanCode/livepen/internal/domain/relay"
	"github.com/GriffinCanCode/livepen/internal/domain/transfer"
	"github.com/GriffinCanCode/livepen/internal/shared/id"
)

// Renderer executes a composed document headlessly
type Renderer interface {
	Render(ctx context.Context, document string) (*preview.Result, error)
}

// Info summarizes a session
type Info struct {
	ID         id.SessionID `json:"id"`
	Name       string       `json:"name"`
	Generation uint64       `json:"generation"`
	Messages   int          `json:"messages"`
	CreatedAt  time.Time    `json:"created_at"`
	LastActive time.Time    `json:"last_active"`
}

// Session binds a buffer store to its composed document, message log and
// subscribers
type Session struct {
	ID        id.SessionID
	CreatedAt time.Time

	store      *buffer.Store
	composer   *compose.Composer
	renderer   Renderer
	serializer relay.SerializerConfig
	log        *relay.Log
	recorder   Recorder
	logger     *zap.Logger

	// order serializes log mutations with the events that announce them, so
	// subscribers never see a message after the reset that retired it
	order sync.Mutex

	mu         sync.RWMutex
	generation uint64 // Protected by mu
	document   string // Protected by mu
	lastActive time.Time

	subMu   sync.Mutex
	subs    map[chan Event]struct{}
	bufSize int
	closed  bool
}

type options struct {
	composer   *compose.Composer
	renderer   Renderer
	serializer relay.SerializerConfig
	capacity   int
	bufSize    int
	recorder   Recorder
	logger     *zap.Logger
}

func newSession(sid id.SessionID, initial buffer.Snapshot, opts options) *Session {
	if opts.recorder == nil {
		opts.recorder = nopRecorder{}
	}
	if opts.logger == nil {
		opts.logger = zap.NewNop()
	}
	if opts.bufSize <= 0 {
		opts.bufSize = 64
	}

	now := time.Now()
	s := &Session{
		ID:         sid,
		CreatedAt:  now,
		store:      buffer.NewStore(initial),
		composer:   opts.composer,
		renderer:   opts.renderer,
		serializer: opts.serializer,
		log:        relay.NewLog(opts.capacity),
		recorder:   opts.recorder,
		logger:     opts.logger.With(zap.String("session", sid.String())),
		lastActive: now,
		subs:       make(map[chan Event]struct{}),
		bufSize:    opts.bufSize,
	}
	s.store.Observe(s.render)
	return s
}

// render runs under the store lock on every content change. The log moves
// to the new generation before the document is published, so messages
// from an older document are never attributed to this one.
func (s *Session) render(snap buffer.Snapshot) {
	document := s.composer.Compose(snap)
	diag := probe.Check(snap.JS)

	s.order.Lock()
	s.mu.Lock()
	if s.generation > 0 && document == s.document {
		s.mu.Unlock()
		s.order.Unlock()
		return
	}
	s.generation++
	generation := s.generation
	s.document = document
	s.log.Reset(generation)
	s.mu.Unlock()

	s.publish(Event{Type: EventReset, Generation: generation})
	if diag != nil {
		if msg, err := s.log.Append(generation, relay.KindError, diag.String(), relay.SourceProbe); err == nil {
			s.publish(Event{Type: EventMessage, Generation: generation, Message: &msg})
		}
	}
	s.publish(Event{Type: EventRender, Generation: generation, Document: document})
	s.order.Unlock()

	s.recorder.RecordRender()
	if diag != nil {
		s.recorder.RecordDiagnostic()
	}
	s.logger.Debug("rendered", zap.Uint64("generation", generation), zap.Int("bytes", len(document)))
}

// SetBuffer replaces one buffer. It reports whether the content changed.
func (s *Session) SetBuffer(kind buffer.Kind, text string) bool {
	s.touch()
	return s.store.Set(kind, text)
}

// SetName sets the project name
func (s *Session) SetName(name string) {
	s.touch()
	s.store.SetName(name)
	s.publish(Event{Type: EventName, Name: s.store.DisplayName()})
}

// Import replaces all buffers with the parts of an HTML document. A non-empty
// filename also becomes the project name.
func (s *Session) Import(r io.Reader, filename string) error {
	snap, err := transfer.Import(r)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	s.touch()
	s.store.Replace(snap)
	if name := transfer.ProjectName(filename); name != "" {
		s.SetName(name)
	}
	return nil
}

// Export returns the download file name and the exported markup
func (s *Session) Export() (string, string, error) {
	_, document := s.Document()
	markup, err := transfer.Export(document)
	if err != nil {
		return "", "", err
	}
	return transfer.Filename(s.store.Name()), markup, nil
}

// Relay accepts a raw payload posted by the preview of the given generation
func (s *Session) Relay(generation uint64, payload []byte) (relay.Message, error) {
	env, err := relay.Decode(payload)
	if err != nil {
		if errors.Is(err, relay.ErrUnknownTag) {
			s.recorder.RecordRejected(RejectUnknown)
		} else {
			s.recorder.RecordRejected(RejectMalformed)
		}
		return relay.Message{}, err
	}
	return s.Deliver(generation, env, relay.SourceSandbox)
}

// Deliver appends a decoded envelope to the log of the given generation
func (s *Session) Deliver(generation uint64, env relay.Envelope, source string) (relay.Message, error) {
	if err := env.Validate(); err != nil {
		s.recorder.RecordRejected(RejectUnknown)
		return relay.Message{}, err
	}

	text := env.Text(s.serializer)

	s.order.Lock()
	msg, err := s.log.Append(generation, env.Kind(), text, source)
	if err == nil {
		s.publish(Event{Type: EventMessage, Generation: generation, Message: &msg})
	}
	s.order.Unlock()

	if err != nil {
		s.recorder.RecordRejected(RejectStale)
		return relay.Message{}, err
	}
	s.touch()
	s.recorder.RecordMessage(msg.Kind, source)
	return msg, nil
}

// RunHeadless renders the current document without a browser and delivers
// everything it posted into the current generation
func (s *Session) RunHeadless(ctx context.Context) (*preview.Result, error) {
	if s.renderer == nil {
		return nil, ErrNoRenderer
	}
	generation, document := s.Document()

	result, err := s.renderer.Render(ctx, document)
	if err != nil {
		return nil, fmt.Errorf("headless render: %w", err)
	}
	s.recorder.RecordHeadless(result.Duration, result.TimedOut)

	for _, env := range result.Envelopes {
		if _, err := s.Deliver(generation, env, relay.SourceHeadless); errors.Is(err, relay.ErrStaleGeneration) {
			break
		}
	}
	return result, nil
}

// Subscribe returns a channel of session events and a function that
// cancels the subscription
func (s *Session) Subscribe() (<-chan Event, func()) {
	return s.subscribe()
}

// Snapshot returns the current buffers
func (s *Session) Snapshot() buffer.Snapshot {
	return s.store.Snapshot()
}

// Name returns the display name of the project
func (s *Session) Name() string {
	return s.store.DisplayName()
}

// Document returns the current generation and its composed document
func (s *Session) Document() (uint64, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation, s.document
}

// Generation returns the current generation
func (s *Session) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Messages returns messages of the current generation after seq
func (s *Session) Messages(since uint64) []relay.Message {
	return s.log.Since(since)
}

// Info summarizes the session
func (s *Session) Info() Info {
	s.mu.RLock()
	generation, lastActive := s.generation, s.lastActive
	s.mu.RUnlock()

	return Info{
		ID:         s.ID,
		Name:       s.Name(),
		Generation: generation,
		Messages:   s.log.Len(),
		CreatedAt:  s.CreatedAt,
		LastActive: lastActive,
	}
}

// Close disconnects all subscribers
func (s *Session) Close() {
	s.closeSubscribers()
}

func (s *Session) idleSince() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActive
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActive = time.Now()
	s.mu.Unlock()
}
