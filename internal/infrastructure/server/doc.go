// Package server assembles the livepen HTTP server: middleware, API
// routes, the host page, the preview surface and the WebSocket stream.
package server
