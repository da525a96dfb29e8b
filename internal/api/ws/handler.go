package ws

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/livepen/internal/domain/buffer"
	"github.com/GriffinCanCode/livepen/internal/domain/relay"
	"github.com/GriffinCanCode/livepen/internal/domain/session"
	"github.com/GriffinCanCode/livepen/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/livepen/internal/shared/id"
)

const (
	writeWait     = 10 * time.Second
	maxFrameBytes = 1 << 20
	outboxSize    = 16
)

// Client frame types
const (
	FrameEdit  = "edit"
	FrameName  = "name"
	FrameRelay = "relay"
	FramePing  = "ping"
)

// Server-only frame types. Session events use their own type names.
const (
	FramePong  = "pong"
	FrameError = "error"
)

// ClientFrame is any frame sent by the editor
type ClientFrame struct {
	Type       string          `json:"type"`
	Kind       string          `json:"kind,omitempty"`
	Text       string          `json:"text,omitempty"`
	Name       string          `json:"name,omitempty"`
	Generation uint64          `json:"generation,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// ErrorFrame reports a rejected client frame
type ErrorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Config controls the stream endpoint
type Config struct {
	AllowedOrigins []string      // Empty means same origin only; "*" allows any
	PingInterval   time.Duration // Zero disables pings
}

// Handler manages WebSocket connections between editors and sessions
type Handler struct {
	sessions *session.Manager
	metrics  *monitoring.Metrics
	logger   *zap.Logger
	upgrader websocket.Upgrader
	ping     time.Duration
}

// NewHandler creates a new WebSocket handler
func NewHandler(sessions *session.Manager, cfg Config, metrics *monitoring.Metrics, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		sessions: sessions,
		metrics:  metrics,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(cfg.AllowedOrigins),
		},
		ping: cfg.PingInterval,
	}
}

// originChecker returns nil for the gorilla default, which requires the
// Origin host to match the request host
func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	set := make(map[string]bool, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		set[strings.ToLower(strings.TrimRight(origin, "/"))] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return set[strings.ToLower(u.Scheme+"://"+u.Host)]
	}
}

// HandleConnection upgrades the request and streams session :id
func (h *Handler) HandleConnection(c *gin.Context) {
	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		status := http.StatusNotFound
		if !errors.Is(err, session.ErrNotFound) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	cl := &client{
		id:      id.NewClientID(),
		conn:    conn,
		session: s,
		handler: h,
		outbox:  make(chan any, outboxSize),
		done:    make(chan struct{}),
	}
	cl.logger = h.logger.With(
		zap.String("session", s.ID.String()),
		zap.String("client", cl.id.String()),
	)

	if h.metrics != nil {
		h.metrics.IncWSConnections()
		defer h.metrics.DecWSConnections()
	}
	cl.logger.Info("editor connected")
	defer cl.logger.Info("editor disconnected")

	cl.run()
}

// client is one editor connection. Only the writer goroutine writes to conn.
type client struct {
	id      id.ClientID
	conn    *websocket.Conn
	session *session.Session
	handler *Handler
	logger  *zap.Logger
	outbox  chan any
	done    chan struct{}
	once    sync.Once
}

func (cl *client) run() {
	events, cancel := cl.session.Subscribe()
	defer cancel()

	initial, seen := cl.initialFrames()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		cl.writeLoop(initial, seen, events)
	}()

	cl.readLoop()
	cl.close()
	wg.Wait()
	cl.conn.Close()
}

// cursor marks what this client has already been sent
type cursor struct {
	reset  uint64 // generation of the last reset sent
	render uint64 // generation of the last render sent
	seq    uint64
}

// initialFrames replays the current document and its messages. Events for
// the same generation that were queued while subscribing are skipped by the
// returned cursor.
func (cl *client) initialFrames() ([]any, cursor) {
	generation, document := cl.session.Document()
	frames := []any{
		session.Event{Type: session.EventReset, Generation: generation},
		session.Event{Type: session.EventRender, Generation: generation, Document: document},
	}
	cur := cursor{reset: generation, render: generation}
	for _, msg := range cl.session.Messages(0) {
		if msg.Generation != generation {
			continue
		}
		frames = append(frames, session.Event{Type: session.EventMessage, Generation: generation, Message: &msg})
		cur.seq = msg.Seq
	}
	frames = append(frames, session.Event{Type: session.EventName, Name: cl.session.Name()})
	return frames, cur
}

// skip reports whether ev is a duplicate of something already sent or a
// message from a generation the client has already cleared, and advances
// the cursor otherwise.
func (cur *cursor) skip(ev session.Event) bool {
	switch ev.Type {
	case session.EventReset:
		if ev.Generation <= cur.reset {
			return true
		}
		cur.reset = ev.Generation
	case session.EventRender:
		if ev.Generation <= cur.render {
			return true
		}
		cur.render = ev.Generation
	case session.EventMessage:
		if ev.Message == nil || ev.Message.Seq <= cur.seq || ev.Generation < cur.reset {
			return true
		}
		cur.seq = ev.Message.Seq
	}
	return false
}

func (cl *client) writeLoop(initial []any, cur cursor, events <-chan session.Event) {
	var tick <-chan time.Time
	if cl.handler.ping > 0 {
		ticker := time.NewTicker(cl.handler.ping)
		defer ticker.Stop()
		tick = ticker.C
	}

	for _, frame := range initial {
		if err := cl.write(frame); err != nil {
			cl.close()
			return
		}
	}

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				// Session closed or this client fell behind
				cl.writeClose(websocket.CloseGoingAway, "session closed")
				cl.close()
				return
			}
			if cur.skip(ev) {
				continue
			}
			if err := cl.write(ev); err != nil {
				cl.close()
				return
			}
		case frame := <-cl.outbox:
			if err := cl.write(frame); err != nil {
				cl.close()
				return
			}
		case <-tick:
			cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				cl.close()
				return
			}
		case <-cl.done:
			return
		}
	}
}

func (cl *client) readLoop() {
	cl.conn.SetReadLimit(maxFrameBytes)
	if cl.handler.ping > 0 {
		wait := 2 * cl.handler.ping
		cl.conn.SetReadDeadline(time.Now().Add(wait))
		cl.conn.SetPongHandler(func(string) error {
			return cl.conn.SetReadDeadline(time.Now().Add(wait))
		})
	}

	for {
		_, data, err := cl.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				cl.logger.Debug("WebSocket read error", zap.Error(err))
			}
			return
		}
		select {
		case <-cl.done:
			return
		default:
		}

		var frame ClientFrame
		if err := sonic.Unmarshal(data, &frame); err != nil {
			cl.handler.recordIn("")
			cl.reply(ErrorFrame{Type: FrameError, Message: "malformed frame"})
			continue
		}
		cl.handler.recordIn(frame.Type)
		cl.dispatch(frame)
	}
}

func (cl *client) dispatch(frame ClientFrame) {
	switch frame.Type {
	case FrameEdit:
		kind, err := buffer.ParseKind(frame.Kind)
		if err != nil {
			cl.reply(ErrorFrame{Type: FrameError, Message: err.Error()})
			return
		}
		cl.session.SetBuffer(kind, frame.Text)
	case FrameName:
		cl.session.SetName(frame.Name)
	case FrameRelay:
		if _, err := cl.session.Relay(frame.Generation, frame.Payload); err != nil {
			if errors.Is(err, relay.ErrStaleGeneration) {
				// Late message from a replaced preview
				cl.logger.Debug("dropped stale relay", zap.Uint64("generation", frame.Generation))
				return
			}
			cl.reply(ErrorFrame{Type: FrameError, Message: err.Error()})
		}
	case FramePing:
		cl.reply(map[string]string{"type": FramePong})
	default:
		cl.reply(ErrorFrame{Type: FrameError, Message: "unknown message type"})
	}
}

// reply queues a frame for the writer. Replies are dropped when the client
// is not reading.
func (cl *client) reply(frame any) {
	select {
	case cl.outbox <- frame:
	case <-cl.done:
	default:
		cl.logger.Debug("dropping reply to slow client")
	}
}

func (cl *client) write(frame any) error {
	data, err := sonic.Marshal(frame)
	if err != nil {
		cl.logger.Error("failed to encode frame", zap.Error(err))
		return nil
	}
	cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := cl.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return err
	}
	cl.handler.recordOut(frameType(frame))
	return nil
}

func (cl *client) writeClose(code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	_ = cl.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}

// close stops both loops. The reader is unblocked by closing the
// underlying connection.
func (cl *client) close() {
	cl.once.Do(func() {
		close(cl.done)
		cl.conn.UnderlyingConn().Close()
	})
}

func (h *Handler) recordIn(frameType string) {
	if h.metrics == nil {
		return
	}
	switch frameType {
	case FrameEdit, FrameName, FrameRelay, FramePing:
	default:
		frameType = "unknown"
	}
	h.metrics.RecordWSMessage("in", frameType)
}

func (h *Handler) recordOut(frameType string) {
	if h.metrics != nil {
		h.metrics.RecordWSMessage("out", frameType)
	}
}

func frameType(frame any) string {
	switch f := frame.(type) {
	case session.Event:
		return string(f.Type)
	case ErrorFrame:
		return f.Type
	case map[string]string:
		return f["type"]
	}
	return "unknown"
}
