/*
Package tracing provides lightweight request tracing.

Every HTTP request gets a span; the trace and span ids travel in the
X-Trace-ID and X-Span-ID headers and are echoed on the response, so a
client can quote them when reporting a problem. Finished spans are logged
through zap by a collector goroutine: debug for success, warn for server
errors, error when a handler attached an error.

# Usage

	tracer := tracing.New("livepen", logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))

	span, ctx := tracer.StartSpan(ctx, "headless.render")
	defer func() {
		span.Finish()
		tracer.Submit(span)
	}()
*/
package tracing
