package provisioning

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records provisioning outcomes and identity-provider call latency.
// A nil *Metrics records nothing.
type Metrics struct {
	outcomes     *prometheus.CounterVec
	callDuration prometheus.Histogram
}

// NewMetrics registers the provisioning collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		outcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "provisioner_outcomes_total",
				Help: "Total number of user provisioning calls by outcome",
			},
			[]string{"outcome"},
		),
		callDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "provisioner_idp_call_duration_seconds",
				Help:    "Duration of user-creation calls to the identity provider",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}

func (m *Metrics) observe(o Outcome, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(o.Kind.String()).Inc()
	m.callDuration.Observe(elapsed.Seconds())
}
