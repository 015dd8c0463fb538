package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	recognitionSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "interm_recognition_active_sessions",
		Help: "Number of recognition sessions currently streaming",
	})

	recognitionRestarts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interm_recognition_restarts_total",
		Help: "Recognition sub-session restarts by trigger",
	}, []string{"trigger"}) // timer | duration_exceeded

	recognitionResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interm_recognition_results_total",
		Help: "Recognition results received",
	}, []string{"kind"}) // final | interim

	replayedChunks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "interm_recognition_replayed_chunks_total",
		Help: "Audio chunks replayed into a new stream during bridging",
	})

	droppedChunks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interm_audio_dropped_chunks_total",
		Help: "Audio chunks dropped before reaching the recognizer",
	}, []string{"reason"})

	audioBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "interm_audio_bytes_total",
		Help: "Captured audio bytes accepted by the session manager",
	})

	suggestionRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interm_suggestion_requests_total",
		Help: "Suggestion engine requests by operation and status",
	}, []string{"operation", "status"})

	suggestionLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "interm_suggestion_latency_seconds",
		Help:    "Suggestion engine latency in seconds",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
	}, []string{"operation"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interm_errors_total",
		Help: "Errors by type and component",
	}, []string{"type", "component"})
)

func SessionStarted() { recognitionSessions.Inc() }

func SessionStopped() { recognitionSessions.Dec() }

func RecordRestart(trigger string) {
	recognitionRestarts.WithLabelValues(trigger).Inc()
}

func RecordResult(final bool) {
	kind := "interim"
	if final {
		kind = "final"
	}
	recognitionResults.WithLabelValues(kind).Inc()
}

func RecordReplay(chunks int) {
	replayedChunks.Add(float64(chunks))
}

func RecordDroppedChunk(reason string) {
	droppedChunks.WithLabelValues(reason).Inc()
}

func RecordAudioBytes(n int) {
	audioBytes.Add(float64(n))
}

// ObserveSuggestion records one engine operation that started at start.
func ObserveSuggestion(operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	suggestionRequests.WithLabelValues(operation, status).Inc()
	suggestionLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
