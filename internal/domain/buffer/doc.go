// Package buffer holds the HTML, CSS and JS source buffers of a project.
//
// A Store is the single writer of buffer state. Everything derived from the
// buffers (the composed document, the message log reset) hangs off an
// Observer, which receives an immutable Snapshot after each change.
package buffer
