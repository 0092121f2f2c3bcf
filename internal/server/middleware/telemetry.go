package middleware

import (
	"log"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
)

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Metrics records a request counter and duration histogram per route and
// status code. If meter is nil the middleware is a pass-through.
func Metrics(meter otelmetric.Meter) func(http.Handler) http.Handler {
	var (
		requests otelmetric.Int64Counter
		duration otelmetric.Float64Histogram
	)
	if meter != nil {
		var err error
		requests, err = meter.Int64Counter("http.server.requests",
			otelmetric.WithDescription("Number of HTTP requests handled"))
		if err != nil {
			log.Printf("middleware: create request counter: %v", err)
		}
		duration, err = meter.Float64Histogram("http.server.duration",
			otelmetric.WithDescription("HTTP request duration"),
			otelmetric.WithUnit("ms"))
		if err != nil {
			log.Printf("middleware: create duration histogram: %v", err)
		}
	}
	return func(next http.Handler) http.Handler {
		if requests == nil && duration == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			attrs := otelmetric.WithAttributes(
				attribute.String("http.route", r.URL.Path),
				attribute.String("http.method", r.Method),
				attribute.Int("http.status_code", rec.status),
			)
			if requests != nil {
				requests.Add(r.Context(), 1, attrs)
			}
			if duration != nil {
				duration.Record(r.Context(), float64(time.Since(start).Milliseconds()), attrs)
			}
		})
	}
}
