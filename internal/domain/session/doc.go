// Package session binds the buffers of one playground to its preview.
//
// Every content change recomposes the document. When the document differs
// from the previous one the session moves to a new generation: the message
// log is emptied and adopts the generation before the new document is
// published, so relayed messages tagged with an older generation are
// rejected. Setting a buffer to its current text changes nothing.
//
// Subscribers receive reset, render, message and name events over bounded
// channels; a subscriber that falls behind is disconnected rather than
// slowing the session down.
//
// Example Usage:
//
//	manager := session.NewManager(session.DefaultConfig(), pool, logger)
//	s, err := manager.Create(buffer.Snapshot{HTML: "<p>hi</p>"})
//	events, cancel := s.Subscribe()
//	defer cancel()
//	s.SetBuffer(buffer.JS, "console.log(42)")
package session
