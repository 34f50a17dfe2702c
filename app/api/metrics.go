package api

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeOK       = "ok"
	outcomeUpstream = "upstream_error"
	outcomeCanceled = "canceled"
	outcomeInternal = "internal_error"
)

type Metrics struct {
	feedRequests    *prometheus.CounterVec
	fetchDuration   *prometheus.HistogramVec
	skippedArticles *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		feedRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wp2line_feed_requests_total",
			Help: "Feed document requests by profile and outcome",
		}, []string{"profile", "outcome"}),
		fetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wp2line_upstream_fetch_duration_seconds",
			Help:    "Time spent fetching and parsing the upstream feed",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms .. ~25s
		}, []string{"profile"}),
		skippedArticles: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wp2line_articles_skipped_total",
			Help: "Feed items left out of the document",
		}, []string{"profile"}),
	}
}

func (m *Metrics) ObserveRequest(profile, outcome string) {
	m.feedRequests.WithLabelValues(profile, outcome).Inc()
}

func (m *Metrics) ObserveFetch(profile string, duration time.Duration) {
	m.fetchDuration.WithLabelValues(profile).Observe(duration.Seconds())
}

func (m *Metrics) ObserveSkipped(profile string, count int) {
	if count > 0 {
		m.skippedArticles.WithLabelValues(profile).Add(float64(count))
	}
}
