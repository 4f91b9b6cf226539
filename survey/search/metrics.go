package search

import (
	"context"
	"sync"

	"github.com/ZanzyTHEbar/boxel-survey/survey/sources"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	tracer = otel.Tracer("boxel.search")
	meter  = otel.Meter("boxel.search")
)

var (
	reconcileTotal   metric.Int64Counter
	staleTotal       metric.Int64Counter
	catalogFailures  metric.Int64Counter
	candidatesByKind metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics creates the counters. They record nothing unless a meter
// provider is installed.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		reconcileTotal, err = meter.Int64Counter(
			"boxel_reconcile_total",
			metric.WithDescription("Reconciliations launched for a focus region"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		staleTotal, err = meter.Int64Counter(
			"boxel_reconcile_stale_total",
			metric.WithDescription("Source results discarded because the focus moved on"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		catalogFailures, err = meter.Int64Counter(
			"boxel_catalog_failures_total",
			metric.WithDescription("Remote catalog lookups that failed"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		candidatesByKind, err = meter.Int64Counter(
			"boxel_candidates_total",
			metric.WithDescription("Candidate systems returned by each source"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordReconcile(ctx context.Context) {
	if err := initMetrics(); err != nil {
		return
	}
	reconcileTotal.Add(ctx, 1)
}

func recordStale(ctx context.Context, origin sources.Origin) {
	if err := initMetrics(); err != nil {
		return
	}
	staleTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("origin", string(origin))))
}

func recordLookup(ctx context.Context, origin sources.Origin, candidates int, failed bool) {
	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("origin", string(origin)))
	candidatesByKind.Add(ctx, int64(candidates), attrs)
	if failed && origin == sources.OriginCatalog {
		catalogFailures.Add(ctx, 1)
	}
}
