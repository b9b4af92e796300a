package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	JobsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threadgen_jobs_submitted_total",
		Help: "The total number of jobs published to work queues",
	}, []string{"queue"})

	JobOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threadgen_job_outcomes_total",
		Help: "Submit outcomes per work queue",
	}, []string{"queue", "outcome"}) // outcome: completed, processing, late_reply

	CompletionMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threadgen_completion_messages_total",
		Help: "Completion messages consumed per listener",
	}, []string{"listener", "status"}) // status: success, failed, poison

	SSESubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "threadgen_sse_subscribers",
		Help: "Currently connected SSE subscribers",
	})
)

// Handler exposes the Prometheus scrape endpoint, mounted on the API router.
func Handler() http.Handler {
	return promhttp.Handler()
}
