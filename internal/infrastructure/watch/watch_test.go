package watch

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/GriffinCanCode/livepen/internal/domain/buffer"
	"github.com/GriffinCanCode/livepen/internal/domain/session"
	"github.com/GriffinCanCode/livepen/internal/domain/transfer"
)

type recorder struct {
	mu    sync.Mutex
	names []string
	texts []string
}

func (r *recorder) Import(rd io.Reader, filename string) error {
	data, err := io.ReadAll(rd)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, filename)
	r.texts = append(r.texts, string(data))
	return nil
}

func (r *recorder) last() (string, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.texts) == 0 {
		return "", 0
	}
	return r.texts[len(r.texts)-1], len(r.texts)
}

func TestNewRejectsNonHTML(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "notes.txt"), &recorder{}, 0, nil)
	assert.ErrorIs(t, err, transfer.ErrUnsupportedFile)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(path, []byte("<p>one</p>"), 0o644))

	rec := &recorder{}
	w, err := New(path, rec, 0, nil)
	require.NoError(t, err)
	require.NoError(t, w.Load())

	text, n := rec.last()
	assert.Equal(t, 1, n)
	assert.Equal(t, "<p>one</p>", text)
	assert.Equal(t, []string{"page.html"}, rec.names)
}

func TestLoadMissingFile(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "gone.html"), &recorder{}, 0, nil)
	require.NoError(t, err)
	assert.Error(t, w.Load())
}

func TestRunReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(path, []byte("<p>one</p>"), 0o644))

	rec := &recorder{}
	w, err := New(path, rec, 0, nil)
	require.NoError(t, err)
	w.WithDebounce(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, n := rec.last()
		return n == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("<p>two</p>"), 0o644))
	assert.Eventually(t, func() bool {
		text, _ := rec.last()
		return text == "<p>two</p>"
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestRunSkipsAlreadyLoadedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(path, []byte("<p>one</p>"), 0o644))

	core, logs := observer.New(zap.InfoLevel)
	rec := &recorder{}
	w, err := New(path, rec, 0, zap.New(core))
	require.NoError(t, err)
	require.NoError(t, w.Load())
	assert.False(t, w.stale())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		return logs.FilterMessage("watching file").Len() == 1
	}, 2*time.Second, 10*time.Millisecond)
	_, n := rec.last()
	assert.Equal(t, 1, n)

	cancel()
	assert.NoError(t, <-done)
}

func TestStaleAfterModification(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(path, []byte("<p>one</p>"), 0o644))

	w, err := New(path, &recorder{}, 0, nil)
	require.NoError(t, err)
	assert.True(t, w.stale())

	require.NoError(t, w.Load())
	assert.False(t, w.stale())

	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))
	assert.True(t, w.stale())
}

func TestRunIntoSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Landing.htm")
	require.NoError(t, os.WriteFile(path, []byte("<style>b{}</style><b>hi</b>"), 0o644))

	sessions := session.NewManager(session.DefaultConfig(), nil, nil)
	defer sessions.Close()
	s, err := sessions.Create(buffer.Snapshot{})
	require.NoError(t, err)

	w, err := New(path, s, 0, nil)
	require.NoError(t, err)
	require.NoError(t, w.Load())

	assert.Equal(t, buffer.Snapshot{HTML: "<b>hi</b>", CSS: "b{}"}, s.Snapshot())
	assert.Equal(t, "Landing", s.Name())
}
