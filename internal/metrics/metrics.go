package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "modconsole_operation_attempts_total",
		Help: "Bulk moderation execution attempts by operation kind and outcome.",
	}, []string{"kind", "outcome"})

	operationItems = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "modconsole_operation_items_total",
		Help: "Items submitted to bulk moderation executors by result.",
	}, []string{"kind", "result"})
)

// ObserveResult records one finished execution attempt.
func ObserveResult(kind string, success bool, processed int, failed int) {
	outcome := "failed"
	switch {
	case success:
		outcome = "success"
	case processed > 0:
		outcome = "partial"
	}

	operationAttempts.WithLabelValues(kind, outcome).Inc()
	operationItems.WithLabelValues(kind, "processed").Add(float64(processed))
	operationItems.WithLabelValues(kind, "failed").Add(float64(failed))
}
