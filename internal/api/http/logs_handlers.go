package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxHostLogEntries bounds one batch from the host page
const maxHostLogEntries = 100

// HostLogEntry is a diagnostic produced by the editor page itself, never by
// user code
type HostLogEntry struct {
	Level     string         `json:"level"`
	Message   string         `json:"message" binding:"required"`
	Context   map[string]any `json:"context"`
	Timestamp string         `json:"timestamp"`
}

// HostLogRequest is a batch of host page diagnostics
type HostLogRequest struct {
	Session string         `json:"session"`
	Entries []HostLogEntry `json:"entries" binding:"required,min=1,dive"`
}

// HostLogs writes diagnostics reported by the host page to the server log
func (h *Handlers) HostLogs(c *gin.Context) {
	var req HostLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid log request")
		return
	}
	if len(req.Entries) > maxHostLogEntries {
		req.Entries = req.Entries[:maxHostLogEntries]
	}

	logger := h.logger.With(zap.String("source", "host"), zap.String("session", req.Session))
	for _, entry := range req.Entries {
		logHostEntry(logger, entry)
	}

	c.JSON(http.StatusOK, gin.H{"accepted": len(req.Entries)})
}

func logHostEntry(logger *zap.Logger, entry HostLogEntry) {
	fields := make([]zap.Field, 0, len(entry.Context)+1)
	fields = append(fields, zap.String("host_timestamp", entry.Timestamp))
	for key, value := range entry.Context {
		switch v := value.(type) {
		case string:
			fields = append(fields, zap.String(key, v))
		case float64:
			fields = append(fields, zap.Float64(key, v))
		case bool:
			fields = append(fields, zap.Bool(key, v))
		default:
			fields = append(fields, zap.Any(key, v))
		}
	}

	switch entry.Level {
	case "error":
		logger.Error(entry.Message, fields...)
	case "warn":
		logger.Warn(entry.Message, fields...)
	case "debug":
		logger.Debug(entry.Message, fields...)
	default:
		logger.Info(entry.Message, fields...)
	}
}
