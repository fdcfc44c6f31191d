package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Metrics exposes application-level instruments.
type Metrics struct {
	WebhookEvents   *prometheus.CounterVec
	EmailsSent      *prometheus.CounterVec
	OrdersFinalized prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		WebhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kindbridge_webhook_events_total",
			Help: "Stripe webhook events by type and outcome.",
		}, []string{"type", "outcome"}),
		EmailsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kindbridge_emails_total",
			Help: "Notification emails by template and outcome.",
		}, []string{"template", "outcome"}),
		OrdersFinalized: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kindbridge_orders_finalized_total",
			Help: "Orders transitioned to COMPLETED.",
		}),
	}
	reg.MustRegister(m.WebhookEvents, m.EmailsSent, m.OrdersFinalized)
	return m
}

func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

func provideRegisterer(reg *prometheus.Registry) prometheus.Registerer {
	return reg
}

var Module = fx.Module("observability.metrics",
	fx.Provide(NewRegistry),
	fx.Provide(provideRegisterer),
	fx.Provide(New),
)
