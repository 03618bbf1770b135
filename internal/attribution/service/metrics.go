package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	attributions *prometheus.CounterVec
	fanoutLevels prometheus.Histogram
	duration     prometheus.Histogram
}

func NewMetrics() *Metrics {
	return &Metrics{
		attributions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "affilia",
			Name:      "attributions_total",
			Help:      "Attribution attempts by outcome.",
		}, []string{"outcome"}),
		fanoutLevels: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "affilia",
			Name:      "commission_fanout_levels",
			Help:      "Commission rows created per successful attribution.",
			Buckets:   []float64{0, 1, 2, 3, 4, 5},
		}),
		duration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "affilia",
			Name:      "attribution_duration_seconds",
			Help:      "Wall time of one attribution workflow.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) observe(outcome string, levels int, seconds float64) {
	if m == nil {
		return
	}
	m.attributions.WithLabelValues(outcome).Inc()
	if levels >= 0 {
		m.fanoutLevels.Observe(float64(levels))
	}
	m.duration.Observe(seconds)
}
