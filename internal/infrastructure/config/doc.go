// Package config provides 12-factor configuration management for livepen.
//
// Values start from Default, are overlaid by an optional YAML or TOML file
// chosen by extension, then by environment variables. CLI flags in
// cmd/server override the result.
//
// Configuration Sections:
//   - Server: listen address, gzip, shutdown timeout, CORS origins
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//   - Relay: serializer bounds and message list capacity
//   - Preview: headless renderer pool and time budget
//   - Session: session count, idle eviction, subscriber buffers
//   - Upload, WebSocket: import size and stream origins
//
// Example Usage:
//
//	cfg, err := config.LoadFile("livepen.yaml")
//	fmt.Printf("Server running on %s\n", cfg.Addr())
//
// Environment Variables:
//   - PORT, HOST, HTTP_GZIP, SHUTDOWN_TIMEOUT, CORS_ALLOWED_ORIGINS
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - RELAY_MAX_DEPTH, RELAY_MAX_LENGTH, RELAY_DENY_KEYS, RELAY_LOG_CAPACITY
//   - PREVIEW_HEADLESS, PREVIEW_TIMEOUT, PREVIEW_POOL_SIZE, PREVIEW_MAX_TIMERS
//   - SESSION_MAX, SESSION_IDLE_TIMEOUT, SESSION_JANITOR_INTERVAL, SESSION_SUBSCRIBER_BUFFER
//   - UPLOAD_MAX_BYTES, WS_ALLOWED_ORIGINS, WS_PING_INTERVAL
package config
