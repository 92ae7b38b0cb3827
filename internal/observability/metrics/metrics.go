package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Config configures metric labels.
type Config struct {
	ServiceName string
	Environment string
}

// Metrics exposes VAT engine instruments. A nil *Metrics is a no-op.
type Metrics struct {
	recordsCreated      *prometheus.CounterVec
	recordsDeduplicated prometheus.Counter
	rateFallbacks       *prometheus.CounterVec
	recalculationOrders *prometheus.CounterVec
	returnsTransitions  *prometheus.CounterVec
}

// NewRegistry returns a registry preloaded with process and Go runtime collectors.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

// New registers the VAT instruments on registerer.
func New(cfg Config, registerer prometheus.Registerer) (*Metrics, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "vatledger"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	m := &Metrics{
		recordsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "vatledger_tax_records_created_total",
			Help:        "Tax records created by customer type.",
			ConstLabels: constLabels,
		}, []string{"customer_type"}),
		recordsDeduplicated: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "vatledger_tax_records_deduplicated_total",
			Help:        "Tax calculations answered from an existing record.",
			ConstLabels: constLabels,
		}),
		rateFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "vatledger_rate_fallbacks_total",
			Help:        "Order lines taxed at the standard rate because the category rate was unavailable.",
			ConstLabels: constLabels,
		}, []string{"reason"}),
		recalculationOrders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "vatledger_recalculation_orders_total",
			Help:        "Orders visited by batch recalculation by outcome.",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		returnsTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "vatledger_tax_return_transitions_total",
			Help:        "Tax return lifecycle transitions.",
			ConstLabels: constLabels,
		}, []string{"status"}),
	}

	for _, collector := range []prometheus.Collector{
		m.recordsCreated,
		m.recordsDeduplicated,
		m.rateFallbacks,
		m.recalculationOrders,
		m.returnsTransitions,
	} {
		if err := registerer.Register(collector); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) RecordTaxRecordCreated(customerType string) {
	if m == nil {
		return
	}
	m.recordsCreated.WithLabelValues(normalizeLabel(customerType)).Inc()
}

func (m *Metrics) RecordTaxRecordDeduplicated() {
	if m == nil {
		return
	}
	m.recordsDeduplicated.Inc()
}

func (m *Metrics) RecordRateFallback(reason string) {
	if m == nil {
		return
	}
	m.rateFallbacks.WithLabelValues(normalizeLabel(reason)).Inc()
}

func (m *Metrics) RecordRecalculation(outcome string) {
	if m == nil {
		return
	}
	m.recalculationOrders.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *Metrics) RecordReturnTransition(status string) {
	if m == nil {
		return
	}
	m.returnsTransitions.WithLabelValues(normalizeLabel(status)).Inc()
}

func normalizeLabel(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return "unknown"
	}
	return value
}
