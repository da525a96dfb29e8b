// Package ws streams a live session to editor pages over WebSocket.
//
// Each connection subscribes to one session. A single writer goroutine owns
// the socket; the reading goroutine applies edits and forwards relay
// messages posted by the preview.
//
// Message Types (Client → Server):
//   - edit: replace one buffer {kind, text}
//   - name: rename the project {name}
//   - relay: message posted by the preview {generation, payload}
//   - ping: keep-alive
//
// Message Types (Server → Client):
//   - reset: message list cleared for {generation}
//   - render: load {document} as {generation}
//   - message: append {message}
//   - name: project renamed
//   - pong, error
//
// Example Usage:
//
//	handler := ws.NewHandler(sessions, ws.Config{PingInterval: 30 * time.Second}, metrics, logger)
//	router.GET("/stream/:id", handler.HandleConnection)
package ws
