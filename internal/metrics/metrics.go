package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trivia_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trivia_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 25},
		},
		[]string{"method", "route"},
	)

	SessionsIssued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trivia_sessions_issued_total",
			Help: "Session issuance attempts by outcome",
		},
		[]string{"outcome"},
	)

	AnswersRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trivia_answers_recorded_total",
			Help: "Answers written, by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	SubmissionsDecided = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trivia_submissions_decided_total",
			Help: "Moderation decisions applied",
		},
		[]string{"action"},
	)

	QuestionsServed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trivia_questions_served_total",
			Help: "Questions returned to clients, by selection mode",
		},
		[]string{"mode"},
	)
)

var once sync.Once

// Init registers the collectors with the default registry. Safe to call more than once.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			SessionsIssued,
			AnswersRecorded,
			SubmissionsDecided,
			QuestionsServed,
		)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}
