package blocklistserver

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/LoganBarnett/dns-smart-block/internal/eventstore"
)

// SnapshotSource is the subset of eventstore.Store the metrics refresher
// needs.
type SnapshotSource interface {
	MetricsSnapshot(ctx context.Context) (eventstore.Metrics, error)
}

// metricsRefresher holds the last successfully observed eventstore.Metrics
// snapshot and exposes it to Prometheus via GaugeFunc/CounterFunc callbacks
// that never fail — a stale-but-present value beats a scrape error, per the
// "serve last known good on refresh failure" rule.
type metricsRefresher struct {
	store    SnapshotSource
	logger   *slog.Logger
	snapshot atomic.Pointer[eventstore.Metrics]
}

func newMetricsRefresher(store SnapshotSource, logger *slog.Logger, reg *prometheus.Registry) *metricsRefresher {
	m := &metricsRefresher{store: store, logger: logger}
	m.snapshot.Store(&eventstore.Metrics{
		ClassificationsCurrent: map[string]int{},
		ClassificationsTotal:   map[string]int{},
		EventsTotal:            map[string]int{},
	})

	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "dns_smart_block_domains_total",
		Help: "Total distinct domains known to the event store.",
	}, func() float64 {
		return float64(m.snapshot.Load().DomainsTotal)
	}))

	reg.MustRegister(classificationsCurrentCollector{m})
	reg.MustRegister(classificationsTotalCollector{m})
	reg.MustRegister(eventsTotalCollector{m})

	return m
}

// Refresh pulls a fresh snapshot from the store and swaps it in. On error
// the previous snapshot is left in place so scrapes keep serving the last
// known-good values instead of zeroing out.
func (m *metricsRefresher) Refresh(ctx context.Context) {
	snap, err := m.store.MetricsSnapshot(ctx)
	if err != nil {
		m.logger.Warn("metrics snapshot refresh failed, serving stale values", "error", err)
		return
	}
	m.snapshot.Store(&snap)
}

// RunLoop refreshes the snapshot on a fixed interval until ctx is canceled,
// as a fallback for scrapes that arrive between LISTEN/NOTIFY pushes.
func (m *metricsRefresher) RunLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Refresh(ctx)
		}
	}
}

type classificationsCurrentCollector struct{ m *metricsRefresher }

func (c classificationsCurrentCollector) Describe(ch chan<- *prometheus.Desc) {}

func (c classificationsCurrentCollector) Collect(ch chan<- prometheus.Metric) {
	desc := prometheus.NewDesc("dns_smart_block_classifications_current",
		"Domains with a currently-valid classification, by type.", []string{"type"}, nil)
	for t, v := range c.m.snapshot.Load().ClassificationsCurrent {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, float64(v), t)
	}
}

type classificationsTotalCollector struct{ m *metricsRefresher }

func (c classificationsTotalCollector) Describe(ch chan<- *prometheus.Desc) {}

func (c classificationsTotalCollector) Collect(ch chan<- prometheus.Metric) {
	desc := prometheus.NewDesc("dns_smart_block_classifications_total",
		"Cumulative classifications ever recorded, by type.", []string{"type"}, nil)
	for t, v := range c.m.snapshot.Load().ClassificationsTotal {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(v), t)
	}
}

type eventsTotalCollector struct{ m *metricsRefresher }

func (c eventsTotalCollector) Describe(ch chan<- *prometheus.Desc) {}

func (c eventsTotalCollector) Collect(ch chan<- prometheus.Metric) {
	desc := prometheus.NewDesc("dns_smart_block_events_total",
		"Cumulative classification events appended, by action.", []string{"action"}, nil)
	for a, v := range c.m.snapshot.Load().EventsTotal {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(v), a)
	}
}
