package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/livepen/internal/api/http"
	"github.com/GriffinCanCode/livepen/internal/api/middleware"
	"github.com/GriffinCanCode/livepen/internal/api/ws"
	"github.com/GriffinCanCode/livepen/internal/domain/preview"
	"github.com/GriffinCanCode/livepen/internal/domain/session"
	"github.com/GriffinCanCode/livepen/internal/infrastructure/config"
	"github.com/GriffinCanCode/livepen/internal/infrastructure/logging"
	"github.com/GriffinCanCode/livepen/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/livepen/internal/infrastructure/tracing"
)

// streamPrefix is served without compression so connections can be hijacked
const streamPrefix = "/stream/"

// Server wraps the HTTP server and dependencies
type Server struct {
	router   *gin.Engine
	handler  http.Handler
	sessions *session.Manager
	pool     *preview.Pool
	tracer   *tracing.Tracer
	metrics  *monitoring.Metrics
	logger   *logging.Logger
	config   *config.Config
}

// NewServer creates a new server instance. A nil logger is built from the
// logging section of cfg.
func NewServer(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	if logger == nil {
		var err error
		logger, err = logging.FromSettings(cfg.Logging.Level, cfg.Logging.Development)
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
	}

	logger.Info("Initializing livepen server",
		zap.String("addr", cfg.Addr()),
		zap.Bool("headless", cfg.Preview.Headless),
		zap.Bool("compression", cfg.Server.Compression),
	)

	metrics := monitoring.NewMetrics()
	tracer := tracing.New("livepen", logger.Component("tracing"))

	// A nil *preview.Pool must not become a non-nil Renderer
	var (
		pool     *preview.Pool
		renderer session.Renderer
	)
	if cfg.Preview.Headless {
		pool = preview.NewPool(cfg.Renderer())
		renderer = pool
		logger.Info("Headless renderer enabled",
			zap.Int("pool_size", cfg.Preview.PoolSize),
			zap.Duration("timeout", cfg.Preview.Timeout.Std()),
		)
	}

	sessions := session.NewManager(cfg.Sessions(), renderer, logger.Component("session")).
		WithRecorder(metrics)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig().WithOrigins(cfg.Server.CORSOrigins)))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := apihttp.NewHandlers(sessions, apihttp.Options{
		Pool:           pool,
		Metrics:        metrics,
		Logger:         logger.Component("http"),
		MaxUploadBytes: cfg.Upload.MaxBytes,
	})
	wsHandler := ws.NewHandler(sessions, ws.Config{
		AllowedOrigins: cfg.WebSocket.AllowedOrigins,
		PingInterval:   cfg.WebSocket.PingInterval.Std(),
	}, metrics, logger.Component("ws"))

	registerRoutes(router, handlers, wsHandler, metrics)

	var handler http.Handler = router
	if cfg.Server.Compression {
		compressed, err := compress(router)
		if err != nil {
			return nil, fmt.Errorf("failed to configure compression: %w", err)
		}
		handler = compressed
	}

	logger.Info("Server initialized successfully")

	return &Server{
		router:   router,
		handler:  handler,
		sessions: sessions,
		pool:     pool,
		tracer:   tracer,
		metrics:  metrics,
		logger:   logger,
		config:   cfg,
	}, nil
}

func registerRoutes(router *gin.Engine, handlers *apihttp.Handlers, wsHandler *ws.Handler, metrics *monitoring.Metrics) {
	// Host page
	router.GET("/", handlers.Root)
	router.StaticFS("/assets", apihttp.Assets())
	router.GET("/health", handlers.Health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Untrusted documents, sandboxed
	router.GET("/preview/:id", middleware.Sandbox(), handlers.Preview)

	api := router.Group("/api", middleware.NoStore())
	{
		api.POST("/probe", handlers.Probe)
		api.POST("/logs", handlers.HostLogs)

		api.POST("/sessions", handlers.CreateSession)
		api.GET("/sessions", handlers.ListSessions)
		api.GET("/sessions/:id", handlers.GetSession)
		api.DELETE("/sessions/:id", handlers.DeleteSession)
		api.PUT("/sessions/:id/buffers/:kind", handlers.SetBuffer)
		api.PUT("/sessions/:id/name", handlers.SetName)
		api.GET("/sessions/:id/document", handlers.Document)
		api.GET("/sessions/:id/messages", handlers.Messages)
		api.POST("/sessions/:id/relay", handlers.Relay)
		api.POST("/sessions/:id/run", handlers.Run)
		api.POST("/sessions/:id/import", handlers.Import)
		api.GET("/sessions/:id/export", handlers.Export)
	}

	// WebSocket
	router.GET(streamPrefix+":id", wsHandler.HandleConnection)
}

// compress gzips responses except the WebSocket stream
func compress(next http.Handler) (http.Handler, error) {
	wrap, err := gzhttp.NewWrapper(gzhttp.MinSize(1024))
	if err != nil {
		return nil, err
	}
	gz := wrap(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, streamPrefix) {
			next.ServeHTTP(w, r)
			return
		}
		gz.ServeHTTP(w, r)
	}), nil
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Sessions returns the session manager
func (s *Server) Sessions() *session.Manager {
	return s.sessions
}

// Logger returns the server logger
func (s *Server) Logger() *logging.Logger {
	return s.logger
}

// Run serves on the configured address until ctx is done, then shuts down
// gracefully
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.sessions.Start(ctx)
	s.logger.Info("Starting HTTP server", zap.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	timeout := s.config.Server.ShutdownTimeout.Std()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	// Hijacked WebSocket connections are not tracked by Shutdown; closing
	// the sessions disconnects them.
	s.sessions.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}

// Close releases the renderer pool, the tracer and the logger
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	s.sessions.Close()
	var err error
	if s.pool != nil {
		if closeErr := s.pool.Close(); closeErr != nil {
			s.logger.Error("Failed to close renderer pool", zap.Error(closeErr))
			err = fmt.Errorf("failed to close renderer pool: %w", closeErr)
		}
	}
	s.tracer.Close()
	s.logger.Close()
	return err
}
