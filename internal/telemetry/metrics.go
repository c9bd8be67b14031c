package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	JobsSubmitted     = prometheus.NewCounter(prometheus.CounterOpts{Name: "contentforge_jobs_submitted_total", Help: "Execution jobs submitted"})
	ClaimsGranted     = prometheus.NewCounter(prometheus.CounterOpts{Name: "contentforge_claims_granted_total", Help: "Hydration/regeneration claims granted"})
	ClaimsContended   = prometheus.NewCounter(prometheus.CounterOpts{Name: "contentforge_claims_contended_total", Help: "Claims that affected zero rows"})
	OutboxDispatched  = prometheus.NewCounter(prometheus.CounterOpts{Name: "contentforge_outbox_dispatched_total", Help: "Outbox messages pushed to a queue"})
	OutboxSendErrors  = prometheus.NewCounter(prometheus.CounterOpts{Name: "contentforge_outbox_send_errors_total", Help: "Outbox pushes that failed and will retry"})
	JobsCompleted     = prometheus.NewCounter(prometheus.CounterOpts{Name: "contentforge_jobs_completed_total", Help: "Hydration jobs finished successfully"})
	JobsFailed        = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "contentforge_jobs_failed_total", Help: "Hydration jobs that failed, by failure code"}, []string{"code"})
	ReconcilerClosed  = prometheus.NewCounter(prometheus.CounterOpts{Name: "contentforge_reconciler_closed_total", Help: "Execution jobs closed by the reconciler"})
	PromotionApproved = prometheus.NewCounter(prometheus.CounterOpts{Name: "contentforge_promotions_approved_total", Help: "Promotion candidates approved"})
)

// Handler exposes the /metrics HTTP handler with a singleton registry.
func Handler() http.Handler {
	once.Do(func() {
		prometheus.MustRegister(
			JobsSubmitted,
			ClaimsGranted,
			ClaimsContended,
			OutboxDispatched,
			OutboxSendErrors,
			JobsCompleted,
			JobsFailed,
			ReconcilerClosed,
			PromotionApproved,
		)
	})
	return promhttp.Handler()
}
