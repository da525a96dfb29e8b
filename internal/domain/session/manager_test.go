package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/livepen/internal/domain/buffer"
	"github.com/GriffinCanCode/livepen/internal/shared/id"
)

func TestManagerCreateGetDelete(t *testing.T) {
	rec := newCountingRecorder()
	m := NewManager(DefaultConfig(), nil, nil).WithRecorder(rec)
	defer m.Close()

	s, err := m.Create(buffer.Snapshot{HTML: "<p>a</p>"})
	require.NoError(t, err)
	_, err = id.ParseSessionID(s.ID.String())
	assert.NoError(t, err)
	assert.Equal(t, 1, rec.sessions)

	got, err := m.Get(s.ID.String())
	require.NoError(t, err)
	assert.Same(t, s, got)

	require.NoError(t, m.Delete(s.ID.String()))
	assert.Equal(t, 0, m.Count())
	assert.Equal(t, 0, rec.sessions)

	_, err = m.Get(s.ID.String())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, m.Delete(s.ID.String()), ErrNotFound)
}

func TestManagerGetRejectsMalformedID(t *testing.T) {
	m := NewManager(DefaultConfig(), nil, nil)
	defer m.Close()

	for _, sid := range []string{"", "nope", "sess_", "req_01ARZ3NDEKTSV4RRFFQ69G5FAV"} {
		_, err := m.Get(sid)
		assert.ErrorIs(t, err, ErrNotFound, sid)
	}
}

func TestManagerMaxSessions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSessions = 2
	m := NewManager(cfg, nil, nil)
	defer m.Close()

	for i := 0; i < 2; i++ {
		_, err := m.Create(buffer.Snapshot{})
		require.NoError(t, err)
	}
	_, err := m.Create(buffer.Snapshot{})
	assert.ErrorIs(t, err, ErrTooManySessions)
}

func TestManagerListOldestFirst(t *testing.T) {
	m := NewManager(DefaultConfig(), nil, nil)
	defer m.Close()

	first, err := m.Create(buffer.Snapshot{})
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	second, err := m.Create(buffer.Snapshot{})
	require.NoError(t, err)
	second.SetName("Second")

	infos := m.List()
	require.Len(t, infos, 2)
	assert.Equal(t, first.ID, infos[0].ID)
	assert.Equal(t, second.ID, infos[1].ID)
	assert.Equal(t, "Second", infos[1].Name)
	assert.Equal(t, uint64(1), infos[0].Generation)
}

func TestManagerSweepEvictsIdleSessions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IdleTimeout = time.Minute
	m := NewManager(cfg, nil, nil)
	defer m.Close()

	_, err := m.Create(buffer.Snapshot{})
	require.NoError(t, err)

	assert.Zero(t, m.Sweep(time.Now()))
	assert.Equal(t, 1, m.Sweep(time.Now().Add(2*time.Minute)))
	assert.Zero(t, m.Count())
}

func TestManagerSweepKeepsWatchedSessions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IdleTimeout = time.Minute
	m := NewManager(cfg, nil, nil)
	defer m.Close()

	watched, err := m.Create(buffer.Snapshot{})
	require.NoError(t, err)
	_, cancel := watched.Subscribe()

	later := time.Now().Add(2 * time.Minute)
	assert.Zero(t, m.Sweep(later))
	assert.Equal(t, 1, m.Count())

	cancel()
	assert.Equal(t, 1, m.Sweep(later))
}

func TestManagerJanitor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IdleTimeout = time.Millisecond
	cfg.JanitorInterval = 5 * time.Millisecond
	m := NewManager(cfg, nil, nil)
	defer m.Close()

	_, err := m.Create(buffer.Snapshot{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	assert.Eventually(t, func() bool { return m.Count() == 0 }, time.Second, 5*time.Millisecond)
}

func TestManagerCloseDisconnectsSubscribers(t *testing.T) {
	m := NewManager(DefaultConfig(), nil, nil)

	s, err := m.Create(buffer.Snapshot{})
	require.NoError(t, err)
	events, cancel := s.Subscribe()
	defer cancel()

	m.Close()
	m.Close()

	_, open := <-events
	assert.False(t, open)

	late, cancelLate := s.Subscribe()
	defer cancelLate()
	_, open = <-late
	assert.False(t, open)
}
