// Package logging provides structured logging using uber/zap.
//
// Two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Every component receives a *zap.Logger tagged with its name through
// Component, so session, stream and HTTP logs can be filtered apart.
//
// Example Usage:
//
//	logger, err := logging.FromSettings(cfg.Logging.Level, cfg.Logging.Development)
//	defer logger.Close()
//	logger.Info("Server starting", zap.String("addr", cfg.Addr()))
//	sessions := session.NewManager(cfg.Sessions(), pool, logger.Component("session"))
package logging
