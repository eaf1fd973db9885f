package tablet

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultOK          = "ok"
	resultTableError  = "table_error"
	resultUnavailable = "unavailable"
)

// Metrics records traverse calls made by a Client. A nil *Metrics records
// nothing.
type Metrics struct {
	duration *prometheus.HistogramVec
	records  prometheus.Counter
	bytes    prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "kvtraverse",
				Subsystem: "tablet",
				Name:      "traverse_duration_seconds",
				Help:      "Time taken by a traverse call to a tablet.",
				Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
			},
			[]string{"result"},
		),
		records: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kvtraverse",
			Subsystem: "tablet",
			Name:      "traverse_records_total",
			Help:      "Records received from traverse calls.",
		}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kvtraverse",
			Subsystem: "tablet",
			Name:      "traverse_bytes_total",
			Help:      "Page payload bytes received from traverse calls.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.duration, m.records, m.bytes)
	}
	return m
}

func (m *Metrics) observe(start time.Time, res *TraverseResponse, err error) {
	if m == nil {
		return
	}
	result := resultOK
	switch {
	case err != nil:
		result = resultUnavailable
	case res.Code != 0:
		result = resultTableError
	default:
		m.records.Add(float64(res.Count))
		m.bytes.Add(float64(len(res.Pairs)))
	}
	m.duration.WithLabelValues(result).Observe(time.Since(start).Seconds())
}
