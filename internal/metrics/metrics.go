// Package metrics exports cache and parse metrics to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/briangreenhill/tripparse/cache"
	"github.com/briangreenhill/tripparse/internal/apierr"
	"github.com/briangreenhill/tripparse/travel"
)

const namespace = "tripparse"

// Metrics records parse outcomes. It satisfies parser.Observer.
type Metrics struct {
	parses   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New registers the parse metrics on reg, plus a cache collector when store
// is not nil.
func New(reg prometheus.Registerer, store cache.Admin) *Metrics {
	f := promauto.With(reg)
	m := &Metrics{
		parses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_requests_total",
			Help:      "Parse requests by kind and outcome.",
		}, []string{"kind", "outcome"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "parse_duration_seconds",
			Help:      "Time spent parsing a booking page.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"kind"}),
	}
	if store != nil {
		reg.MustRegister(NewCacheCollector(store))
	}
	return m
}

// ObserveParse counts one parse. The outcome is "success" or the error code.
func (m *Metrics) ObserveParse(kind travel.DataType, err error, elapsed time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = apierr.Code(err)
	}
	m.parses.WithLabelValues(string(kind), outcome).Inc()
	m.duration.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
}

// CacheCollector reads cache statistics on every scrape.
type CacheCollector struct {
	store cache.Admin

	hits      *prometheus.Desc
	misses    *prometheus.Desc
	evictions *prometheus.Desc
	cleanups  *prometheus.Desc
	size      *prometheus.Desc
	maxSize   *prometheus.Desc
	hitRate   *prometheus.Desc
}

func NewCacheCollector(store cache.Admin) *CacheCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "cache", name), help, nil, nil)
	}
	return &CacheCollector{
		store:     store,
		hits:      desc("hits_total", "Cache lookups that found a live entry."),
		misses:    desc("misses_total", "Cache lookups that found nothing or an expired entry."),
		evictions: desc("evictions_total", "Entries evicted to make room."),
		cleanups:  desc("cleanups_total", "Cleanup passes that removed at least one entry."),
		size:      desc("entries", "Entries currently stored."),
		maxSize:   desc("max_entries", "Configured capacity."),
		hitRate:   desc("hit_ratio", "Hits over lookups, rounded to 3 decimals."),
	}
}

func (c *CacheCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{c.hits, c.misses, c.evictions, c.cleanups, c.size, c.maxSize, c.hitRate} {
		ch <- d
	}
}

func (c *CacheCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.store.Stats()
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(s.Hits))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(s.Misses))
	ch <- prometheus.MustNewConstMetric(c.evictions, prometheus.CounterValue, float64(s.Evictions))
	ch <- prometheus.MustNewConstMetric(c.cleanups, prometheus.CounterValue, float64(s.Cleanups))
	ch <- prometheus.MustNewConstMetric(c.size, prometheus.GaugeValue, float64(s.CurrentSize))
	ch <- prometheus.MustNewConstMetric(c.maxSize, prometheus.GaugeValue, float64(s.MaxSize))
	ch <- prometheus.MustNewConstMetric(c.hitRate, prometheus.GaugeValue, s.HitRate)
}
