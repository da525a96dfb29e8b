// Package main is the entry point for the livepen server.
//
// livepen is a live HTML/CSS/JS playground: three buffers are composed into
// one document that runs in a sandboxed iframe, and everything the document
// logs or throws is relayed back to the editor.
//
// Configuration:
//   - Defaults
//   - Optional YAML or TOML file (-config)
//   - Environment variables (12-factor)
//   - CLI flags (override everything)
//
// Usage:
//
//	# Production mode
//	./server -port 8000
//
//	# Development mode (colored logs, debug level)
//	./server -dev
//
//	# Edit a local file and preview it on every save
//	./server -watch page.html
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
