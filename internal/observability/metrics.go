package observability

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus instruments for both pipelines.
type Metrics struct {
	DocumentsIngested prometheus.Counter
	ChunksIngested    prometheus.Counter
	IngestFailures    prometheus.Counter
	EmbeddingCalls    prometheus.Counter

	QueriesAnswered  prometheus.Counter
	NoContextAnswers prometheus.Counter
	AnswerDuration   prometheus.Histogram

	StoreOperations *prometheus.CounterVec
}

func newMetrics() *Metrics {
	return &Metrics{
		DocumentsIngested: promauto.NewCounter(prometheus.CounterOpts{
			Name: "launchpad_documents_ingested_total",
			Help: "Documents successfully written to the vector index",
		}),
		ChunksIngested: promauto.NewCounter(prometheus.CounterOpts{
			Name: "launchpad_chunks_ingested_total",
			Help: "Chunk records upserted into the vector index",
		}),
		IngestFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "launchpad_ingest_failures_total",
			Help: "Documents skipped during batch ingestion",
		}),
		EmbeddingCalls: promauto.NewCounter(prometheus.CounterOpts{
			Name: "launchpad_embedding_calls_total",
			Help: "Embedding API requests issued",
		}),
		QueriesAnswered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "launchpad_queries_answered_total",
			Help: "Questions run through the answering pipeline",
		}),
		NoContextAnswers: promauto.NewCounter(prometheus.CounterOpts{
			Name: "launchpad_no_context_answers_total",
			Help: "Questions short-circuited because retrieval found nothing relevant",
		}),
		AnswerDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "launchpad_answer_duration_seconds",
			Help:    "End-to-end answering pipeline duration",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}),
		StoreOperations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "launchpad_store_operations_total",
			Help: "Vector store operations by kind and outcome",
		}, []string{"operation", "status"}),
	}
}

var (
	defaultMetrics *Metrics
	metricsOnce    sync.Once
)

// Default returns the process-wide metrics, registering them on first use.
func Default() *Metrics {
	metricsOnce.Do(func() {
		defaultMetrics = newMetrics()
	})
	return defaultMetrics
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
