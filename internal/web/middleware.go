package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sidereusnuntius/wikifront/internal/web/views"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("github.com/sidereusnuntius/wikifront/internal/web")

var (
	pagesServed metric.Int64Counter
	metricsOnce sync.Once
	metricsErr  error
)

func recordPage(ctx context.Context, place views.Place, status int) {
	metricsOnce.Do(func() {
		pagesServed, metricsErr = meter.Int64Counter(
			"web_pages_rendered_total",
			metric.WithDescription("Pages rendered, by kind of page and status"),
		)
	})
	if metricsErr != nil {
		return
	}
	if status == 0 {
		status = http.StatusOK
	}
	pagesServed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("place", place.String()),
		attribute.Int("status", status),
	))
}

// RequestLogger logs every request once it has been served.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		level := zerolog.DebugLevel
		if ww.Status() >= http.StatusInternalServerError {
			level = zerolog.WarnLevel
		}
		log.WithLevel(level).
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("served request")
	})
}
