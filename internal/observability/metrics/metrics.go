package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const exportInterval = 10 * time.Second

// Config configures the OTLP meter provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

type counterID int

const (
	invoicesSaved counterID = iota
	pdfExports
	templateRenders
	rateLimitDenied
	signupDecisions
)

var counterDefs = map[counterID]struct {
	name, desc string
}{
	invoicesSaved:   {"invoices_saved_total", "Invoices committed, by initial status."},
	pdfExports:      {"pdf_exports_total", "PDF export attempts, by exporter and result."},
	templateRenders: {"template_renders_total", "HTML invoice renders, by template."},
	rateLimitDenied: {"rate_limit_denied_total", "Requests refused by a rate limiter."},
	signupDecisions: {"signup_decisions_total", "Signup requests approved or rejected."},
}

// Metrics holds the OTel business counters. A nil *Metrics records nothing.
type Metrics struct {
	counters map[counterID]metric.Int64Counter
}

// NewProvider registers the global meter provider. With telemetry off it is
// a no-op provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}
	res, err := resource.New(context.Background(), resource.WithAttributes(
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("deployment.environment", cfg.Environment),
	))
	if err != nil {
		return nil, err
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(exportInterval))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(provider)

	if log == nil {
		log = zap.NewNop()
	}
	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				log.Info("shutting down meter provider")
				return provider.Shutdown(ctx)
			},
		})
	}
	log.Info("metrics initialized",
		zap.String("endpoint", cfg.ExporterEndpoint),
		zap.String("protocol", cfg.ExporterProtocol),
	)
	return provider, nil
}

// New creates the business counters on provider, prefixed with the service
// name.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	prefix := strings.TrimSpace(cfg.ServiceName)
	if prefix == "" {
		prefix = "invoicely"
	}
	meter := provider.Meter(prefix)

	m := &Metrics{counters: make(map[counterID]metric.Int64Counter, len(counterDefs))}
	for id, def := range counterDefs {
		c, err := meter.Int64Counter(prefix+"_"+def.name, metric.WithDescription(def.desc))
		if err != nil {
			return nil, fmt.Errorf("create counter %s: %w", def.name, err)
		}
		m.counters[id] = c
	}
	return m, nil
}

func (m *Metrics) inc(ctx context.Context, id counterID, attrs ...attribute.KeyValue) {
	if m == nil {
		return
	}
	c, ok := m.counters[id]
	if !ok {
		return
	}
	c.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attrs...)...))
}

func label(key, value string) attribute.KeyValue {
	return attribute.String(key, strings.TrimSpace(value))
}

func (m *Metrics) RecordInvoiceSaved(ctx context.Context, status string) {
	m.inc(ctx, invoicesSaved, label("status", status))
}

// RecordPDFExport counts export attempts; result is "ok" or "empty".
func (m *Metrics) RecordPDFExport(ctx context.Context, exporter, result string) {
	m.inc(ctx, pdfExports, label("exporter", exporter), label("result", result))
}

func (m *Metrics) RecordTemplateRender(ctx context.Context, templateID string) {
	m.inc(ctx, templateRenders, label("template", templateID))
}

func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint, reason string) {
	m.inc(ctx, rateLimitDenied, label("endpoint", endpoint), label("reason", reason))
}

func (m *Metrics) RecordSignupDecision(ctx context.Context, decision string) {
	m.inc(ctx, signupDecisions, label("result", decision))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	ctx := context.Background()
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "http", "http/protobuf":
		var opts []otlpmetrichttp.Option
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(ctx, opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

// Only these label keys reach the exporter. User ids and invoice numbers
// would explode series counts.
var allowedLabelKeys = map[attribute.Key]bool{
	"endpoint":    true,
	"status_code": true,
	"status":      true,
	"exporter":    true,
	"result":      true,
	"template":    true,
	"reason":      true,
}

func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := attrs[:0:0]
	for _, attr := range attrs {
		if allowedLabelKeys[attr.Key] {
			filtered = append(filtered, attr)
		}
	}
	return filtered
}
