package session

import (
	"time"

	"github.com/GriffinCanCode/livepen/internal/domain/relay"
)

// Recorder receives session activity for metrics
type Recorder interface {
	RecordRender()
	RecordMessage(kind relay.Kind, source string)
	RecordRejected(reason string)
	RecordDiagnostic()
	RecordHeadless(duration time.Duration, timedOut bool)
	SetSessions(n int)
}

// Rejection reasons passed to RecordRejected
const (
	RejectMalformed = "malformed"
	RejectUnknown   = "unknown_tag"
	RejectStale     = "stale_generation"
)

type nopRecorder struct{}

func (nopRecorder) RecordRender() {}
func (nopRecorder) RecordMessage(relay.Kind, string) {}
func (nopRecorder) RecordRejected(string) {}
func (nopRecorder) RecordDiagnostic() {}
func (nopRecorder) RecordHeadless(time.Duration, bool) {}
func (nopRecorder) SetSessions(int) {}
