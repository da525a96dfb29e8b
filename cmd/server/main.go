package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/livepen/internal/domain/buffer"
	"github.com/GriffinCanCode/livepen/internal/infrastructure/config"
	"github.com/GriffinCanCode/livepen/internal/infrastructure/logging"
	"github.com/GriffinCanCode/livepen/internal/infrastructure/server"
	"github.com/GriffinCanCode/livepen/internal/infrastructure/watch"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "YAML or TOML config file")
	port := flag.String("port", "", "Server port (overrides PORT)")
	host := flag.String("host", "", "Listen host (overrides HOST)")
	dev := flag.Bool("dev", false, "Development mode (colored logs, debug level)")
	watchPath := flag.String("watch", "", "HTML file to load into a session and reload on change")
	flag.Parse()

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *dev {
		cfg.Logging.Development = true
		cfg.Logging.Level = "debug"
	}

	logger, err := logging.FromSettings(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	srv, err := server.NewServer(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create server", zap.Error(err))
	}

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *watchPath != "" {
		startWatch(ctx, srv, cfg, *watchPath)
	}

	if err := srv.Run(ctx); err != nil {
		logger.Error("Server error", zap.Error(err))
		_ = srv.Close()
		os.Exit(1)
	}
	if err := srv.Close(); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
}

// startWatch creates a session for path and keeps it in sync with the file
func startWatch(ctx context.Context, srv *server.Server, cfg *config.Config, path string) {
	logger := srv.Logger()

	s, err := srv.Sessions().Create(buffer.Snapshot{})
	if err != nil {
		logger.Fatal("Failed to create watch session", zap.Error(err))
	}
	w, err := watch.New(path, s, cfg.Upload.MaxBytes, logger.Component("watch"))
	if err != nil {
		logger.Fatal("Cannot watch file", zap.String("file", path), zap.Error(err))
	}
	if err := w.Load(); err != nil {
		logger.Fatal("Failed to load watched file", zap.String("file", path), zap.Error(err))
	}

	logger.Info("Watching file",
		zap.String("file", path),
		zap.String("url", "http://"+cfg.Addr()+"/?session="+s.ID.String()),
	)
	go func() {
		if err := w.Run(ctx); err != nil {
			logger.Error("Watcher stopped", zap.Error(err))
		}
	}()
}
