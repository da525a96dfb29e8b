package http

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/GriffinCanCode/livepen/internal/domain/buffer"
	"github.com/GriffinCanCode/livepen/internal/domain/preview"
	"github.com/GriffinCanCode/livepen/internal/domain/relay"
	"github.com/GriffinCanCode/livepen/internal/domain/session"
	"github.com/GriffinCanCode/livepen/internal/domain/transfer"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{session.ErrNotFound, http.StatusNotFound},
		{session.ErrTooManySessions, http.StatusServiceUnavailable},
		{session.ErrNoRenderer, http.StatusNotImplemented},
		{fmt.Errorf("relay: %w", relay.ErrStaleGeneration), http.StatusConflict},
		{relay.ErrUnknownTag, http.StatusBadRequest},
		{relay.ErrMalformed, http.StatusBadRequest},
		{buffer.ErrUnknownKind, http.StatusBadRequest},
		{transfer.ErrUnsupportedFile, http.StatusBadRequest},
		{transfer.ErrNotText, http.StatusBadRequest},
		{fmt.Errorf("%w (16 bytes)", transfer.ErrTooLarge), http.StatusRequestEntityTooLarge},
		{preview.ErrTimeout, http.StatusServiceUnavailable},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestContentDisposition(t *testing.T) {
	assert.Equal(t, "attachment; filename=Webpage.htm", contentDisposition("Webpage.htm"))
	assert.Equal(t, `attachment; filename="My Page.htm"`, contentDisposition("My Page.htm"))
	assert.Equal(t, "attachment; filename*=utf-8''caf%C3%A9.htm", contentDisposition("café.htm"))
}

func TestRunResponse(t *testing.T) {
	result := &preview.Result{
		Console:  []preview.LogEntry{{Level: "warn", Message: "careful", Time: time.Now()}},
		Scripts:  2,
		Duration: 1500 * time.Millisecond,
	}

	resp := runResponse(3, result, nil)

	assert.Equal(t, uint64(3), resp.Generation)
	assert.Equal(t, 2, resp.Scripts)
	assert.Equal(t, int64(1500), resp.DurationMS)
	assert.Equal(t, []ConsoleLine{{Level: "warn", Message: "careful"}}, resp.Console)
	assert.NotNil(t, resp.Uncaught)
}

func TestTrackRecordsWithoutMetrics(t *testing.T) {
	hm := NewHandlerMetrics(nil)
	err := errors.New("x")
	assert.NotPanics(t, hm.Track("op", &err))
	assert.NotPanics(t, hm.Track("op", nil))
}
