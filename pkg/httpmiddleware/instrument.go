package httpmiddleware

import (
	"net/http"

	"github.com/go-faster/sdk/app"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
)

// Instrument returns a middleware that wraps the handler with otelhttp
// tracing/metrics and maintains a request counter on the service meter.
func Instrument(serviceName string, m *app.Telemetry) Middleware {
	meter := m.MeterProvider().Meter(serviceName)
	requests, err := meter.Int64Counter("http.server.request_count",
		metric.WithDescription("Number of handled HTTP requests"),
	)

	return func(next http.Handler) http.Handler {
		counted := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err == nil {
				requests.Add(r.Context(), 1)
			}
			next.ServeHTTP(w, r)
		})

		return otelhttp.NewHandler(counted, serviceName,
			otelhttp.WithTracerProvider(m.TracerProvider()),
			otelhttp.WithMeterProvider(m.MeterProvider()),
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	}
}
