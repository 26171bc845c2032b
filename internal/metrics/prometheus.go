package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ChatDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mindspace_chat_duration_seconds",
			Help:    "Chat turn processing duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"mode"},
	)

	ChatTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mindspace_chat_total",
			Help: "Total number of chat turns processed",
		},
		[]string{"status"},
	)

	CrisisEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mindspace_crisis_events_total",
			Help: "Crisis detections by severity level and source",
		},
		[]string{"level", "source"},
	)

	ProviderRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mindspace_provider_requests_total",
			Help: "LLM provider requests by provider and status",
		},
		[]string{"provider", "status"},
	)

	ProviderFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mindspace_provider_fallbacks_total",
			Help: "Completions that fell back to the secondary provider",
		},
	)

	RetrievalResultsCount = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mindspace_retrieval_results_count",
			Help:    "Number of passages retrieved per query",
			Buckets: []float64{0, 1, 2, 4, 8, 16},
		},
	)

	AssessmentsScored = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mindspace_assessments_scored_total",
			Help: "Assessments scored by instrument and severity",
		},
		[]string{"instrument", "severity"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mindspace_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mindspace_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	DocumentsProcessed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mindspace_documents_processed_total",
			Help: "Total reference documents ingested",
		},
	)
)

func Init() {
	prometheus.MustRegister(ChatDuration)
	prometheus.MustRegister(ChatTotal)
	prometheus.MustRegister(CrisisEvents)
	prometheus.MustRegister(ProviderRequests)
	prometheus.MustRegister(ProviderFallbacks)
	prometheus.MustRegister(RetrievalResultsCount)
	prometheus.MustRegister(AssessmentsScored)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(DocumentsProcessed)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
