package crmap

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts integration outcomes. Several documents may share one
// Metrics. A nil *Metrics counts nothing.
type Metrics struct {
	applied     prometheus.Counter
	skipped     prometheus.Counter
	gaps        prometheus.Counter
	localWrites prometheus.Counter
}

// NewMetrics creates the counters and registers them with reg, if reg
// is not nil.
func NewMetrics(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	m := &Metrics{
		applied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_applied_total",
			Help:      "Blocks integrated into a document, local writes included.",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_skipped_total",
			Help:      "Received blocks that had already been applied.",
		}),
		gaps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "causal_gaps_total",
			Help:      "Updates rejected for missing predecessor blocks.",
		}),
		localWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "local_writes_total",
			Help:      "Sets and deletes made by local replicas.",
		}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.applied, m.skipped, m.gaps, m.localWrites} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) integrated(r IntegrationResult) {
	if m == nil {
		return
	}
	m.applied.Add(float64(r.Applied))
	m.skipped.Add(float64(r.Skipped))
}

func (m *Metrics) causalGap() {
	if m != nil {
		m.gaps.Inc()
	}
}

func (m *Metrics) localWrite() {
	if m != nil {
		m.localWrites.Inc()
	}
}
