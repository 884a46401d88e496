package query

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("github.com/sidereusnuntius/wikifront/internal/query")
	meter  = otel.Meter("github.com/sidereusnuntius/wikifront/internal/query")
)

var (
	cacheHits          metric.Int64Counter
	cacheMisses        metric.Int64Counter
	cacheRefetches     metric.Int64Counter
	cacheInvalidations metric.Int64Counter
	cacheEvictions     metric.Int64Counter
	loadErrors         metric.Int64Counter
	loadLatency        metric.Float64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics creates the instruments on first use, against whatever meter provider is installed by then.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		cacheHits, err = meter.Int64Counter(
			"query_cache_hits_total",
			metric.WithDescription("Reads answered with a fresh cached value"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		cacheMisses, err = meter.Int64Counter(
			"query_cache_misses_total",
			metric.WithDescription("Reads that had to wait for a load"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		cacheRefetches, err = meter.Int64Counter(
			"query_cache_background_refetches_total",
			metric.WithDescription("Stale values served while refetched in the background"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		cacheInvalidations, err = meter.Int64Counter(
			"query_cache_invalidated_entries_total",
			metric.WithDescription("Entries marked stale by invalidation"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		cacheEvictions, err = meter.Int64Counter(
			"query_cache_evictions_total",
			metric.WithDescription("Entries discarded after going unused"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		loadErrors, err = meter.Int64Counter(
			"query_load_errors_total",
			metric.WithDescription("Loads that failed"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		loadLatency, err = meter.Float64Histogram(
			"query_load_duration_seconds",
			metric.WithDescription("Duration of loads"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func kindAttr(kind string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("kind", kind))
}

func recordHit(ctx context.Context, kind string) {
	if err := initMetrics(); err != nil {
		return
	}
	cacheHits.Add(ctx, 1, kindAttr(kind))
}

func recordMiss(ctx context.Context, kind string) {
	if err := initMetrics(); err != nil {
		return
	}
	cacheMisses.Add(ctx, 1, kindAttr(kind))
}

func recordRefetch(ctx context.Context, kind string) {
	if err := initMetrics(); err != nil {
		return
	}
	cacheRefetches.Add(ctx, 1, kindAttr(kind))
}

func recordInvalidations(ctx context.Context, kind string, n int) {
	if err := initMetrics(); err != nil || n == 0 {
		return
	}
	cacheInvalidations.Add(ctx, int64(n), kindAttr(kind))
}

func recordEvictions(ctx context.Context, n int) {
	if err := initMetrics(); err != nil || n == 0 {
		return
	}
	cacheEvictions.Add(ctx, int64(n))
}

func recordLoad(ctx context.Context, kind string, d time.Duration, err error) {
	if initMetrics() != nil {
		return
	}
	loadLatency.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String("kind", kind), attribute.Bool("error", err != nil)),
	)
	if err != nil {
		loadErrors.Add(ctx, 1, kindAttr(kind))
	}
}

func startLoadSpan(ctx context.Context, key Key) (context.Context, trace.Span) {
	return tracer.Start(ctx, "query.load",
		trace.WithAttributes(
			attribute.String("query.kind", key.Kind()),
			attribute.String("query.key", key.String()),
		),
	)
}
