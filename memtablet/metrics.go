package memtablet

import (
	"strconv"

	"github.com/aita/kvtraverse/tablet"
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	calls   *prometheus.CounterVec
	records prometheus.Counter
}

// WithMetrics counts served traverse calls on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(s *Store) {
		m := &metrics{
			calls: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "kvtraverse",
				Subsystem: "memtablet",
				Name:      "traverse_total",
				Help:      "Traverse calls served, by response code.",
			}, []string{"code"}),
			records: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "kvtraverse",
				Subsystem: "memtablet",
				Name:      "traverse_records_total",
				Help:      "Records sent in traverse pages.",
			}),
		}
		reg.MustRegister(m.calls, m.records)
		s.metrics = m
	}
}

func (m *metrics) observe(res *tablet.TraverseResponse) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(strconv.Itoa(int(res.Code))).Inc()
	m.records.Add(float64(res.Count))
}
