// ABOUTME: Prometheus collectors for the study pipeline
// ABOUTME: Each Metrics instance registers on its own registry so sessions and tests stay isolated
package metrics

import (
	"net/http"
	"time"

	"github.com/harper/study-standalone/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus metrics for a study session.
//
// All metrics are prefixed with "study_":
//   - study_documents_total{status} - documents ingested ("indexed") or skipped ("skipped")
//   - study_chunks_indexed - chunks in the current index
//   - study_index_builds_total{status} - index rebuilds ("ok" or "error")
//   - study_questions_generated_total{type} - questions delivered per question type
//   - study_quiz_under_deliveries_total - quizzes with fewer questions than requested
//   - study_answers_total{outcome} - answers that were "grounded" or "insufficient"
//   - study_wrong_answers_total - records appended to the ledger
//   - study_service_retries_total{service} - retried embedding or generation calls
//   - study_operation_duration_seconds{operation} - latency of session operations
type Metrics struct {
	registry *prometheus.Registry

	DocumentsTotal      *prometheus.CounterVec
	ChunksIndexed       prometheus.Gauge
	IndexBuildsTotal    *prometheus.CounterVec
	QuestionsGenerated  *prometheus.CounterVec
	UnderDeliveries     prometheus.Counter
	AnswersTotal        *prometheus.CounterVec
	WrongAnswersTotal   prometheus.Counter
	ServiceRetriesTotal *prometheus.CounterVec
	OperationDuration   *prometheus.HistogramVec
}

// New creates metrics registered on reg; a nil reg gets a fresh registry
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		DocumentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "study_documents_total",
				Help: "Documents processed, by outcome",
			},
			[]string{"status"},
		),
		ChunksIndexed: factory.NewGauge(prometheus.GaugeOpts{
			Name: "study_chunks_indexed",
			Help: "Chunks in the current index",
		}),
		IndexBuildsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "study_index_builds_total",
				Help: "Index rebuilds, by outcome",
			},
			[]string{"status"},
		),
		QuestionsGenerated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "study_questions_generated_total",
				Help: "Quiz questions delivered, by question type",
			},
			[]string{"type"},
		),
		UnderDeliveries: factory.NewCounter(prometheus.CounterOpts{
			Name: "study_quiz_under_deliveries_total",
			Help: "Quizzes that delivered fewer questions than requested",
		}),
		AnswersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "study_answers_total",
				Help: "Questions answered from the study materials, by outcome",
			},
			[]string{"outcome"},
		),
		WrongAnswersTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "study_wrong_answers_total",
			Help: "Wrong-answer records appended to the ledger",
		}),
		ServiceRetriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "study_service_retries_total",
				Help: "Retried external service calls",
			},
			[]string{"service"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "study_operation_duration_seconds",
				Help:    "Duration of session operations in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
			},
			[]string{"operation"},
		),
	}
}

// Registry returns the registry the metrics live on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveDocuments counts one ingestion batch
func (m *Metrics) ObserveDocuments(indexed, skipped int) {
	m.DocumentsTotal.WithLabelValues("indexed").Add(float64(indexed))
	m.DocumentsTotal.WithLabelValues("skipped").Add(float64(skipped))
}

// ObserveIndexBuild records a rebuild; chunks is the index size after it
func (m *Metrics) ObserveIndexBuild(err error, chunks int) {
	if err != nil {
		m.IndexBuildsTotal.WithLabelValues("error").Inc()
		return
	}
	m.IndexBuildsTotal.WithLabelValues("ok").Inc()
	m.ChunksIndexed.Set(float64(chunks))
}

// ObserveQuiz counts delivered questions and any under-delivery
func (m *Metrics) ObserveQuiz(quiz *models.Quiz) {
	for _, q := range quiz.Questions {
		m.QuestionsGenerated.WithLabelValues(string(q.Type())).Inc()
	}
	if quiz.UnderDelivery != nil {
		m.UnderDeliveries.Inc()
	}
}

// ObserveAnswer counts a grounded or insufficient answer
func (m *Metrics) ObserveAnswer(answer models.CitedAnswer) {
	outcome := "grounded"
	if answer.Insufficient {
		outcome = "insufficient"
	}
	m.AnswersTotal.WithLabelValues(outcome).Inc()
}

// ObserveRetry counts a retried call; it matches llm.RetryHook
func (m *Metrics) ObserveRetry(service string, attempt int, err error) {
	m.ServiceRetriesTotal.WithLabelValues(service).Inc()
}

// Time returns a func that records the elapsed time for operation
func (m *Metrics) Time(operation string) func() {
	start := time.Now()
	return func() {
		m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}
