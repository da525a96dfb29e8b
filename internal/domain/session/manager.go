package session

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/livepen/internal/domain/buffer"
	"github.com/GriffinCanCode/livepen/internal/domain/compose"
	"github.com/GriffinCanCode/livepen/internal/domain/relay"
	"github.com/GriffinCanCode/livepen/internal/shared/id"
)

var (
	ErrNotFound        = errors.New("session not found")
	ErrTooManySessions = errors.New("too many sessions")
	ErrNoRenderer      = errors.New("headless rendering is not configured")
)

// Config controls session limits
type Config struct {
	MaxSessions      int
	IdleTimeout      time.Duration
	JanitorInterval  time.Duration
	LogCapacity      int
	SubscriberBuffer int
	Serializer       relay.SerializerConfig
}

// DefaultConfig returns the session defaults
func DefaultConfig() Config {
	return Config{
		MaxSessions:      256,
		IdleTimeout:      30 * time.Minute,
		JanitorInterval:  time.Minute,
		LogCapacity:      relay.DefaultCapacity,
		SubscriberBuffer: 64,
		Serializer:       relay.DefaultSerializerConfig(),
	}
}

// Manager owns the live sessions
type Manager struct {
	mu       sync.RWMutex
	sessions map[id.SessionID]*Session // Protected by mu

	config   Config
	composer *compose.Composer
	renderer Renderer
	recorder Recorder
	logger   *zap.Logger

	stop chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// NewManager creates a session manager. renderer may be nil, in which case
// RunHeadless fails with ErrNoRenderer.
func NewManager(config Config, renderer Renderer, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		sessions: make(map[id.SessionID]*Session),
		config:   config,
		composer: compose.New(config.Serializer),
		renderer: renderer,
		recorder: nopRecorder{},
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// WithRecorder adds metrics tracking to the manager
func (m *Manager) WithRecorder(recorder Recorder) *Manager {
	if recorder != nil {
		m.recorder = recorder
	}
	return m
}

// Composer returns the composer shared by all sessions
func (m *Manager) Composer() *compose.Composer {
	return m.composer
}

// Create starts a session seeded with initial
func (m *Manager) Create(initial buffer.Snapshot) (*Session, error) {
	m.mu.Lock()
	if m.config.MaxSessions > 0 && len(m.sessions) >= m.config.MaxSessions {
		m.mu.Unlock()
		return nil, ErrTooManySessions
	}

	s := newSession(id.NewSessionID(), initial, options{
		composer:   m.composer,
		renderer:   m.renderer,
		serializer: m.config.Serializer,
		capacity:   m.config.LogCapacity,
		bufSize:    m.config.SubscriberBuffer,
		recorder:   m.recorder,
		logger:     m.logger,
	})
	m.sessions[s.ID] = s
	count := len(m.sessions)
	m.mu.Unlock()

	m.recorder.SetSessions(count)
	m.logger.Info("session created", zap.String("session", s.ID.String()))
	return s, nil
}

// Get retrieves a session by ID
func (m *Manager) Get(sid string) (*Session, error) {
	parsed, err := id.ParseSessionID(sid)
	if err != nil {
		return nil, ErrNotFound
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[parsed]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// List returns all sessions, oldest first
func (m *Manager) List() []Info {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	infos := make([]Info, 0, len(sessions))
	for _, s := range sessions {
		infos = append(infos, s.Info())
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].ID < infos[j].ID
	})
	return infos
}

// Delete closes and removes a session
func (m *Manager) Delete(sid string) error {
	s, err := m.Get(sid)
	if err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.sessions, s.ID)
	count := len(m.sessions)
	m.mu.Unlock()

	s.Close()
	m.recorder.SetSessions(count)
	m.logger.Info("session deleted", zap.String("session", s.ID.String()))
	return nil
}

// Count returns the number of live sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep removes unwatched sessions idle since before now minus the idle
// timeout.
// It returns the number of sessions removed.
func (m *Manager) Sweep(now time.Time) int {
	if m.config.IdleTimeout <= 0 {
		return 0
	}
	cutoff := now.Add(-m.config.IdleTimeout)

	m.mu.Lock()
	var expired []*Session
	for sid, s := range m.sessions {
		// A connected editor keeps its session alive
		if s.idleSince().Before(cutoff) && s.subscribers() == 0 {
			expired = append(expired, s)
			delete(m.sessions, sid)
		}
	}
	count := len(m.sessions)
	m.mu.Unlock()

	for _, s := range expired {
		s.Close()
		m.logger.Info("session expired", zap.String("session", s.ID.String()))
	}
	if len(expired) > 0 {
		m.recorder.SetSessions(count)
	}
	return len(expired)
}

// Start runs the idle janitor until ctx is done or Close is called
func (m *Manager) Start(ctx context.Context) {
	interval := m.config.JanitorInterval
	if interval <= 0 || m.config.IdleTimeout <= 0 {
		return
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				m.Sweep(now)
			case <-ctx.Done():
				return
			case <-m.stop:
				return
			}
		}
	}()
}

// Close stops the janitor and closes every session
func (m *Manager) Close() {
	m.once.Do(func() {
		close(m.stop)
		m.wg.Wait()

		m.mu.Lock()
		sessions := m.sessions
		m.sessions = make(map[id.SessionID]*Session)
		m.mu.Unlock()

		for _, s := range sessions {
			s.Close()
		}
		m.recorder.SetSessions(0)
	})
}
