package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collectSum(t *testing.T, reader *sdkmetric.ManualReader, name string) map[attribute.Distinct]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[attribute.Distinct]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				out[dp.Attributes.Equivalent()] = dp.Value
			}
		}
	}
	return out
}

func TestFilterAttributesDropsHighCardinalityLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("user_id", "123"),
		attribute.String("invoice_number", "INV-0001"),
		attribute.String("exporter", "maroto"),
		attribute.String("template", "modern"),
	)
	keys := make([]attribute.Key, 0, len(attrs))
	for _, a := range attrs {
		keys = append(keys, a.Key)
	}
	assert.Equal(t, []attribute.Key{"exporter", "template"}, keys)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.RecordInvoiceSaved(ctx, "draft")
		m.RecordPDFExport(ctx, "maroto", "ok")
		m.RecordTemplateRender(ctx, "classic")
		m.RecordRateLimitDenied(ctx, "/api/invoices/:id/pdf", "bucket_empty")
		m.RecordSignupDecision(ctx, "approved")
	})
}

func TestCountersRecordByLabel(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := New(Config{ServiceName: "invoicely"}, provider)
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordPDFExport(ctx, " maroto ", "ok")
	m.RecordPDFExport(ctx, "maroto", "ok")
	m.RecordPDFExport(ctx, "gotenberg", "empty")
	m.RecordInvoiceSaved(ctx, "draft")

	exports := collectSum(t, reader, "invoicely_pdf_exports_total")
	okSet := attribute.NewSet(attribute.String("exporter", "maroto"), attribute.String("result", "ok"))
	emptySet := attribute.NewSet(attribute.String("exporter", "gotenberg"), attribute.String("result", "empty"))
	assert.Equal(t, int64(2), exports[okSet.Equivalent()])
	assert.Equal(t, int64(1), exports[emptySet.Equivalent()])

	saved := collectSum(t, reader, "invoicely_invoices_saved_total")
	draftSet := attribute.NewSet(attribute.String("status", "draft"))
	assert.Equal(t, int64(1), saved[draftSet.Equivalent()])
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{}, noop.NewMeterProvider())
	require.NoError(t, err)
	m.RecordTemplateRender(context.Background(), "modern")
	m.RecordSignupDecision(context.Background(), "approved")
}

func TestNewExporterRejectsUnknownProtocol(t *testing.T) {
	_, err := newExporter("carrier-pigeon", "")
	assert.Error(t, err)
}
