// Package metrics exposes Prometheus counters for an import run and pushes
// them to a Pushgateway when the run ends.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Failure reasons used as the "reason" label.
const (
	ReasonParse = "parse"
	ReasonStore = "store"
)

// Import holds the metrics of one import run on its own registry, so
// repeated runs in one process never collide. A nil *Import records
// nothing.
//
// Metrics:
//   - listing_import_lines_total
//   - listing_import_listings_created_total
//   - listing_import_owners_total{result} (created|reused)
//   - listing_import_failures_total{reason} (parse|store)
//   - listing_import_record_duration_seconds
type Import struct {
	registry *prometheus.Registry

	Lines           prometheus.Counter
	ListingsCreated prometheus.Counter
	Owners          *prometheus.CounterVec
	Failures        *prometheus.CounterVec
	RecordDuration  prometheus.Histogram
}

func NewImport() *Import {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Import{
		registry: reg,
		Lines: factory.NewCounter(prometheus.CounterOpts{
			Name: "listing_import_lines_total",
			Help: "Total number of input lines processed",
		}),
		ListingsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "listing_import_listings_created_total",
			Help: "Total number of listings created",
		}),
		Owners: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "listing_import_owners_total",
			Help: "Owners resolved, by whether they were created or reused",
		}, []string{"result"}),
		Failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "listing_import_failures_total",
			Help: "Lines that failed to import, by reason",
		}, []string{"reason"}),
		RecordDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "listing_import_record_duration_seconds",
			Help:    "Time spent importing one record",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
	}
}

func (m *Import) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Import) ObserveLine(d time.Duration) {
	if m == nil {
		return
	}
	m.Lines.Inc()
	m.RecordDuration.Observe(d.Seconds())
}

func (m *Import) ListingCreated() {
	if m == nil {
		return
	}
	m.ListingsCreated.Inc()
}

func (m *Import) OwnerResolved(created bool) {
	if m == nil {
		return
	}
	result := "reused"
	if created {
		result = "created"
	}
	m.Owners.WithLabelValues(result).Inc()
}

func (m *Import) Failed(reason string) {
	if m == nil {
		return
	}
	m.Failures.WithLabelValues(reason).Inc()
}

// Push sends every metric to the Pushgateway at url under job, grouped by
// run id.
func (m *Import) Push(ctx context.Context, url, job, runID string) error {
	if m == nil {
		return nil
	}
	err := push.New(url, job).
		Gatherer(m.registry).
		Grouping("run_id", runID).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("metrics: push to %s: %w", url, err)
	}
	return nil
}
