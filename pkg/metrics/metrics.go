// Package metrics holds the prometheus collectors shared by the reminder
// service, the dispatcher and the HTTP server.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OperationsTotal counts reminder operations by operation, backend and result.
	OperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wellness_reminder_operations_total",
		Help: "Total reminder operations by operation, backend and result",
	}, []string{"operation", "backend", "result"})

	// OperationDuration tracks backend latency per operation.
	OperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wellness_reminder_operation_duration_seconds",
		Help:    "Reminder operation duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
	}, []string{"operation", "backend"})

	// FallbackTotal counts calls served by the fallback store because the
	// document store was unreachable.
	FallbackTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wellness_backend_fallback_total",
		Help: "Reminder calls served by the fallback backend",
	})

	// NotificationsFired counts reminders whose timer fired.
	NotificationsFired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wellness_notifications_fired_total",
		Help: "Reminder notifications fired",
	})
)

// ObserveOperation records one finished operation.
func ObserveOperation(operation, backend string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	OperationsTotal.WithLabelValues(operation, backend, result).Inc()
	OperationDuration.WithLabelValues(operation, backend).Observe(time.Since(start).Seconds())
}
