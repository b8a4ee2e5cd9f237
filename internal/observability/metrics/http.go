package metrics

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// PDF exports dominate the tail, so the buckets reach well past a second.
var durationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// HTTPMetrics times requests per route and status class.
type HTTPMetrics struct {
	duration metric.Float64Histogram
	inFlight metric.Int64UpDownCounter
}

func NewHTTPMetrics(cfg Config, provider metric.MeterProvider) (*HTTPMetrics, error) {
	prefix := strings.TrimSpace(cfg.ServiceName)
	if prefix == "" {
		prefix = "invoicely"
	}
	meter := provider.Meter(prefix + "/http")

	duration, err := meter.Float64Histogram("http.server.request.duration",
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	)
	if err != nil {
		return nil, err
	}
	inFlight, err := meter.Int64UpDownCounter("http.server.active_requests")
	if err != nil {
		return nil, err
	}
	return &HTTPMetrics{duration: duration, inFlight: inFlight}, nil
}

// GinMiddleware records duration and in-flight requests. Probes and scrapes
// are not measured.
func GinMiddleware(m *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if m == nil || route == "/health" || route == "/metrics" {
			c.Next()
			return
		}
		if route == "" {
			route = "unknown"
		}

		ctx := c.Request.Context()
		endpoint := metric.WithAttributes(attribute.String("endpoint", route))
		m.inFlight.Add(ctx, 1, endpoint)
		start := time.Now()
		defer func() {
			m.inFlight.Add(ctx, -1, endpoint)
			m.duration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(FilterAttributes(
				attribute.String("endpoint", route),
				attribute.String("status_code", statusClass(c.Writer.Status())),
			)...))
		}()
		c.Next()
	}
}

func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return fmt.Sprintf("%dxx", status/100)
}
