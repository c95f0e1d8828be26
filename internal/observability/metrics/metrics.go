package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// PaymentMetrics exposes counters for the routing layer.
type PaymentMetrics struct {
	InvoiceAttempts *prometheus.CounterVec
	Fallbacks       prometheus.Counter
	ConnectionTests *prometheus.CounterVec
}

// New registers the payment instruments on the given registerer.
func New(reg prometheus.Registerer) (*PaymentMetrics, error) {
	m := &PaymentMetrics{
		InvoiceAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "freightpay_invoice_attempts_total",
			Help: "Invoice creation attempts by provider and outcome.",
		}, []string{"provider", "outcome"}),
		Fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "freightpay_invoice_fallbacks_total",
			Help: "Invoice attempts retried against a fallback provider.",
		}),
		ConnectionTests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "freightpay_connection_tests_total",
			Help: "Provider connection tests by provider and outcome.",
		}, []string{"provider", "outcome"}),
	}

	for _, collector := range []prometheus.Collector{m.InvoiceAttempts, m.Fallbacks, m.ConnectionTests} {
		if err := reg.Register(collector); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

func provideDefault() (*PaymentMetrics, error) {
	return New(prometheus.DefaultRegisterer)
}

var Module = fx.Module("observability.metrics",
	fx.Provide(provideDefault),
)
