package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "learn"

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

var (
	QuizSubmissions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "quiz_submissions_total",
		Help:      "Quiz attempts that transitioned to completed.",
	})

	CompletionReports = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "completion_reports_total",
		Help:      "Completion reports sent to the learning backend, by result.",
	}, []string{"result"})

	MalformedBlocks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "content_malformed_blocks_total",
		Help:      "Question blocks skipped while parsing lesson content.",
	})

	ActiveAttempts = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "quiz_active_attempts",
		Help:      "Quiz attempts currently held in memory.",
	})
)
