package services

import "github.com/prometheus/client_golang/prometheus"

var (
	botUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_updates_total",
			Help: "Total number of dispatched bot updates",
		},
		[]string{"handler", "outcome"},
	)
	submissionFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_submission_failures_total",
			Help: "Total number of failed photo submissions",
		},
	)
)

// InitMetrics registers the bot metrics. Call this from main.go
func InitMetrics() {
	prometheus.MustRegister(botUpdatesTotal)
	prometheus.MustRegister(submissionFailures)
}
