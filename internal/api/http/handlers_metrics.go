package http

import (
	"github.com/GriffinCanCode/livepen/internal/infrastructure/monitoring"
)

// HandlerMetrics wraps handlers with metrics tracking
type HandlerMetrics struct {
	metrics *monitoring.Metrics
}

// NewHandlerMetrics creates a metrics wrapper. A nil metrics disables tracking.
func NewHandlerMetrics(metrics *monitoring.Metrics) *HandlerMetrics {
	return &HandlerMetrics{metrics: metrics}
}

// Track starts timing an operation. The returned function records it with
// "error" when *err is non-nil at the time it is called.
func (hm *HandlerMetrics) Track(operation string, err *error) func() {
	timer := monitoring.NewTimer(hm.metrics, operation)
	return func() {
		status := "success"
		if err != nil && *err != nil {
			status = "error"
		}
		timer.Stop(status)
	}
}
