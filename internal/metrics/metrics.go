package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// CompletionsTotal counts completion calls by result (ok|error).
	CompletionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "datacopilot",
		Name:      "completions_total",
		Help:      "Total number of language model completions, labeled by result.",
	}, []string{"result"})

	// CompletionDurationSeconds is the wall time of one completion request.
	CompletionDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "datacopilot",
		Name:      "completion_duration_seconds",
		Help:      "Time spent waiting for the language model.",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 60, 120},
	})

	// ExecutionsTotal counts executed code responses by result (ok|fault).
	ExecutionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "datacopilot",
		Name:      "executions_total",
		Help:      "Total number of executed analysis scripts, labeled by result.",
	}, []string{"result"})

	// UploadsTotal counts dataset uploads by result (ok|error).
	UploadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "datacopilot",
		Name:      "uploads_total",
		Help:      "Total number of dataset uploads, labeled by result.",
	}, []string{"result"})
)

// Register registers the collectors with the default Prometheus registry.
// Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			CompletionsTotal,
			CompletionDurationSeconds,
			ExecutionsTotal,
			UploadsTotal,
		)
	})
}

// Result maps a success flag to the label value used by the counters.
func Result(ok bool, failure string) string {
	if ok {
		return "ok"
	}
	return failure
}
