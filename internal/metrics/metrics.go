package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SubmissionDuration tracks the latency of giveaway submissions
	SubmissionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "giveaway_submission_duration_seconds",
			Help: "Duration of giveaway submission handling in seconds",
			Buckets: []float64{
				0.001, // 1ms
				0.005, // 5ms
				0.01,  // 10ms
				0.025, // 25ms
				0.05,  // 50ms
				0.1,   // 100ms
				0.25,  // 250ms
				0.5,   // 500ms
				1.0,   // 1s
				2.5,   // 2.5s
				5.0,   // 5s
				10.0,  // 10s
			},
		},
		[]string{"status"}, // success, rejected or error
	)

	// Rejections counts guard rejections by reason
	Rejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "giveaway_rejections_total",
			Help: "Submissions rejected by the duplicate guard, by reason",
		},
		[]string{"reason"},
	)

	// CRMRequests counts outbound CRM registrations by provider and outcome
	CRMRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "giveaway_crm_requests_total",
			Help: "CRM registration attempts by provider and status",
		},
		[]string{"provider", "status"},
	)
)

// RecordSubmissionDuration records the duration of one submission
func RecordSubmissionDuration(status string, duration float64) {
	SubmissionDuration.WithLabelValues(status).Observe(duration)
}

// RecordRejection counts a guard rejection
func RecordRejection(reason string) {
	Rejections.WithLabelValues(reason).Inc()
}

// RecordCRMRequest counts one CRM call
func RecordCRMRequest(provider, status string) {
	CRMRequests.WithLabelValues(provider, status).Inc()
}
