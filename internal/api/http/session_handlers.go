package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/livepen/internal/domain/buffer"
	"github.com/GriffinCanCode/livepen/internal/domain/preview"
	"github.com/GriffinCanCode/livepen/internal/domain/relay"
	"github.com/GriffinCanCode/livepen/internal/domain/session"
	"github.com/GriffinCanCode/livepen/internal/domain/transfer"
)

// CreateSessionRequest seeds a new session. All fields are optional.
type CreateSessionRequest struct {
	HTML string `json:"html"`
	CSS  string `json:"css"`
	JS   string `json:"js"`
	Name string `json:"name"`
}

// BufferRequest replaces one buffer
type BufferRequest struct {
	Text string `json:"text"`
}

// NameRequest renames the project
type NameRequest struct {
	Name string `json:"name"`
}

// RelayRequest carries one message posted by a preview
type RelayRequest struct {
	Generation uint64          `json:"generation" binding:"required"`
	Payload    json.RawMessage `json:"payload" binding:"required"`
}

// SessionView is the JSON form of a session with its buffers
type SessionView struct {
	session.Info
	Buffers buffer.Snapshot `json:"buffers"`
}

// RunResponse reports a headless render
type RunResponse struct {
	Generation uint64           `json:"generation"`
	Scripts    int              `json:"scripts"`
	Timers     int              `json:"timers"`
	TimedOut   bool             `json:"timed_out"`
	DurationMS int64            `json:"duration_ms"`
	Console    []ConsoleLine    `json:"console"`
	Uncaught   []string         `json:"uncaught"`
	Messages   []relay.Message  `json:"messages"`
	Envelopes  []relay.Envelope `json:"envelopes"`
}

// ConsoleLine is one raw console call seen by the headless renderer
type ConsoleLine struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

func view(s *session.Session) SessionView {
	return SessionView{Info: s.Info(), Buffers: s.Snapshot()}
}

// CreateSession creates a session, optionally seeded with buffers
func (h *Handlers) CreateSession(c *gin.Context) {
	var err error
	defer h.metrics.Track("session_create", &err)()

	var req CreateSessionRequest
	if c.Request.ContentLength != 0 {
		if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
			badRequest(c, "invalid session request")
			return
		}
	}

	s, err := h.sessions.Create(buffer.Snapshot{HTML: req.HTML, CSS: req.CSS, JS: req.JS})
	if err != nil {
		h.fail(c, err)
		return
	}
	if req.Name != "" {
		s.SetName(req.Name)
	}

	c.JSON(http.StatusCreated, view(s))
}

// ListSessions lists live sessions
func (h *Handlers) ListSessions(c *gin.Context) {
	sessions := h.sessions.List()
	c.JSON(http.StatusOK, gin.H{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// GetSession returns a session with its buffers
func (h *Handlers) GetSession(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, view(s))
}

// DeleteSession closes a session and disconnects its subscribers
func (h *Handlers) DeleteSession(c *gin.Context) {
	sid := c.Param("id")
	if err := h.sessions.Delete(sid); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": sid})
}

// SetBuffer replaces the buffer named by :kind
func (h *Handlers) SetBuffer(c *gin.Context) {
	var err error
	defer h.metrics.Track("buffer_set", &err)()

	s, ok := h.lookup(c)
	if !ok {
		return
	}
	kind, err := buffer.ParseKind(c.Param("kind"))
	if err != nil {
		h.fail(c, err)
		return
	}
	var req BufferRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		badRequest(c, "invalid buffer request")
		return
	}

	changed := s.SetBuffer(kind, req.Text)
	c.JSON(http.StatusOK, gin.H{
		"changed":    changed,
		"generation": s.Generation(),
	})
}

// SetName renames the project
func (h *Handlers) SetName(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	var req NameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid name request")
		return
	}
	s.SetName(req.Name)
	c.JSON(http.StatusOK, gin.H{"name": s.Name()})
}

// Document returns the composed document of the current generation
func (h *Handlers) Document(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	generation, document := s.Document()
	c.JSON(http.StatusOK, gin.H{
		"generation": generation,
		"document":   document,
	})
}

// Preview serves the composed document itself. It must be routed behind
// the sandbox middleware.
func (h *Handlers) Preview(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	generation, document := s.Document()
	c.Header("X-Livepen-Generation", strconv.FormatUint(generation, 10))
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(document))
}

// Messages returns the message list of the current generation, optionally
// only entries after ?since=
func (h *Handlers) Messages(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	var since uint64
	if raw := c.Query("since"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			badRequest(c, "since must be a sequence number")
			return
		}
		since = n
	}

	messages := s.Messages(since)
	c.JSON(http.StatusOK, gin.H{
		"generation": s.Generation(),
		"messages":   messages,
		"count":      len(messages),
	})
}

// Relay accepts a message posted by the preview of a given generation
func (h *Handlers) Relay(c *gin.Context) {
	var err error
	defer h.metrics.Track("relay", &err)()

	s, ok := h.lookup(c)
	if !ok {
		return
	}
	var req RelayRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		badRequest(c, "invalid relay request")
		return
	}

	msg, err := s.Relay(req.Generation, req.Payload)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, msg)
}

// Run renders the current document headlessly and relays what it posted
func (h *Handlers) Run(c *gin.Context) {
	var err error
	defer h.metrics.Track("headless_run", &err)()

	s, ok := h.lookup(c)
	if !ok {
		return
	}
	generation := s.Generation()

	result, err := s.RunHeadless(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, runResponse(generation, result, s.Messages(0)))
}

func runResponse(generation uint64, result *preview.Result, messages []relay.Message) RunResponse {
	resp := RunResponse{
		Generation: generation,
		Scripts:    result.Scripts,
		Timers:     result.Timers,
		TimedOut:   result.TimedOut,
		DurationMS: result.Duration.Milliseconds(),
		Console:    make([]ConsoleLine, 0, len(result.Console)),
		Uncaught:   result.Uncaught,
		Messages:   messages,
		Envelopes:  result.Envelopes,
	}
	for _, entry := range result.Console {
		resp.Console = append(resp.Console, ConsoleLine{Level: entry.Level, Message: entry.Message})
	}
	if resp.Uncaught == nil {
		resp.Uncaught = []string{}
	}
	return resp
}

// Import replaces the buffers with an uploaded HTML file (multipart field "file")
func (h *Handlers) Import(c *gin.Context) {
	var err error
	defer h.metrics.Track("import", &err)()

	s, ok := h.lookup(c)
	if !ok {
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "missing file")
		return
	}
	file, err := header.Open()
	if err != nil {
		h.fail(c, err)
		return
	}
	defer file.Close()

	data, err := transfer.ReadUpload(file, header.Filename, h.maxUpload)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err = s.Import(bytes.NewReader(data), header.Filename); err != nil {
		h.fail(c, err)
		return
	}

	h.logger.Info("imported document",
		zap.String("session", s.ID.String()),
		zap.String("file", header.Filename),
		zap.Int("bytes", len(data)),
	)
	c.JSON(http.StatusOK, view(s))
}

// Export downloads the current document as <name>.htm
func (h *Handlers) Export(c *gin.Context) {
	var err error
	defer h.metrics.Track("export", &err)()

	s, ok := h.lookup(c)
	if !ok {
		return
	}
	filename, markup, err := s.Export()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", contentDisposition(filename))
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(markup))
}
