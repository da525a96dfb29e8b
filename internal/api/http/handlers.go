package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/livepen/internal/domain/buffer"
	"github.com/GriffinCanCode/livepen/internal/domain/preview"
	"github.com/GriffinCanCode/livepen/internal/domain/relay"
	"github.com/GriffinCanCode/livepen/internal/domain/session"
	"github.com/GriffinCanCode/livepen/internal/domain/transfer"
	"github.com/GriffinCanCode/livepen/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/livepen/internal/infrastructure/tracing"
)

const serviceName = "livepen"

// Version is reported by the root and health endpoints
var Version = "dev"

// Handlers contains all HTTP handlers
type Handlers struct {
	sessions  *session.Manager
	pool      *preview.Pool
	metrics   *HandlerMetrics
	logger    *zap.Logger
	maxUpload int64
	started   time.Time
}

// Options configures NewHandlers
type Options struct {
	Pool           *preview.Pool // nil when headless rendering is disabled
	Metrics        *monitoring.Metrics
	Logger         *zap.Logger
	MaxUploadBytes int64
}

// NewHandlers creates a new handler set
func NewHandlers(sessions *session.Manager, opts Options) *Handlers {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		sessions:  sessions,
		pool:      opts.Pool,
		metrics:   NewHandlerMetrics(opts.Metrics),
		logger:    logger,
		maxUpload: opts.MaxUploadBytes,
		started:   time.Now(),
	}
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	body := gin.H{
		"status":   "healthy",
		"service":  serviceName,
		"version":  Version,
		"uptime":   time.Since(h.started).Round(time.Second).String(),
		"sessions": h.sessions.Count(),
	}
	if h.pool != nil {
		body["headless"] = h.pool.Stats()
	}
	if h.metrics.metrics != nil {
		body["metrics"] = h.metrics.metrics.Snapshot()
	}
	c.JSON(http.StatusOK, body)
}

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrTooManySessions):
		return http.StatusServiceUnavailable
	case errors.Is(err, session.ErrNoRenderer):
		return http.StatusNotImplemented
	case errors.Is(err, relay.ErrStaleGeneration):
		return http.StatusConflict
	case errors.Is(err, relay.ErrUnknownTag),
		errors.Is(err, relay.ErrMalformed),
		errors.Is(err, buffer.ErrUnknownKind),
		errors.Is(err, transfer.ErrUnsupportedFile),
		errors.Is(err, transfer.ErrNotText):
		return http.StatusBadRequest
	case errors.Is(err, transfer.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, preview.ErrTimeout):
		return http.StatusServiceUnavailable
	case errors.Is(err, preview.ErrPoolClosed):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// fail writes a JSON error and attaches err to the request for tracing
func (h *Handlers) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("trace_id", string(tracing.GetTraceID(c.Request.Context()))),
			zap.Error(err),
		)
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{
		"error":    err.Error(),
		"trace_id": tracing.GetTraceID(c.Request.Context()),
	})
}

// badRequest writes a 400 for an unparseable request
func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// lookup resolves the :id parameter; it writes the error response itself
func (h *Handlers) lookup(c *gin.Context) (*session.Session, bool) {
	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	return s, true
}
