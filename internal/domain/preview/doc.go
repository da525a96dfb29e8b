/*
Package preview renders composed documents headlessly.

A Runtime executes the inline scripts of a document in order inside a goja
VM whose globals mirror what a sandboxed frame sees: window, self and frames
are the global object, parent and top expose only postMessage, console and
setTimeout exist, and document is a read-mostly proxy built from the parsed
markup. Uncaught exceptions are handed to window.onerror the way a browser
does, so the instrumentation script reports them through postMessage like
it would in a real frame.

Everything posted to parent is collected as relay envelopes in posting order.

	pool := preview.NewPool(preview.DefaultConfig())
	defer pool.Close()

	result, err := pool.Render(ctx, composer.Compose(snap))

Timers run after all scripts, ordered by delay. A time budget interrupts
runaway documents; the interruption is reported as a codeError envelope.
*/
package preview
