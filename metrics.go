package cassschema

import "errors"
import "time"

import "github.com/prometheus/client_golang/prometheus"

const (
	outcomeSuccess = "success"
	outcomeIgnored = "ignored"
	outcomeFailure = "failure"
)

// Metrics counts and times the statements a Runner sends to its clusters.
type Metrics struct {
	statements *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewMetrics creates the statement metrics and registers them with reg. A nil reg leaves them
// unregistered. Runners sharing a registerer share the collectors registered by the first of them.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		statements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cass_schema",
			Name:      "statements_total",
			Help:      "Schema statements executed, by datastore and outcome.",
		}, []string{"datastore", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cass_schema",
			Name:      "statement_duration_seconds",
			Help:      "Time spent executing schema statements.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"datastore"}),
	}
	if reg == nil {
		return m, nil
	}
	var err error
	if m.statements, err = register(reg, m.statements); err != nil {
		return nil, err
	}
	if m.duration, err = register(reg, m.duration); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing, nil
		}
	}
	return c, err
}

func (m *Metrics) observe(datastore, outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.statements.WithLabelValues(datastore, outcome).Inc()
	m.duration.WithLabelValues(datastore).Observe(time.Since(start).Seconds())
}
