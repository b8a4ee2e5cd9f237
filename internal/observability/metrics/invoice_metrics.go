package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	CommitResultCommitted = "committed"
	CommitResultConflict  = "conflict"
	CommitResultError     = "error"
)

const (
	FailureReasonDeadlineExceeded     = "deadline_exceeded"
	FailureReasonDBLockTimeout        = "db_lock_timeout"
	FailureReasonSerializationFailure = "serialization_failure"
	FailureReasonUniqueViolation      = "unique_violation"
	FailureReasonCounterConflict      = "counter_conflict"
	FailureReasonPanic                = "panic"
	FailureReasonRateLimited          = "rate_limited"
	FailureReasonUnknown              = "unknown"
)

const (
	CacheResultHit  = "hit"
	CacheResultMiss = "miss"
)

// InvoiceMetrics holds the Prometheus collectors scraped from /metrics.
type InvoiceMetrics struct {
	commits        *prometheus.CounterVec
	commitFailures *prometheus.CounterVec
	exportDuration *prometheus.HistogramVec
	exportFailures *prometheus.CounterVec
	settingsCache  *prometheus.CounterVec
}

var (
	invoiceMetricsOnce sync.Once
	invoiceMetrics     *InvoiceMetrics
)

// Invoice returns the singleton invoice metrics registry.
func Invoice() *InvoiceMetrics {
	return InvoiceWithConfig(Config{})
}

// InvoiceWithConfig returns the singleton invoice metrics registry using config labels.
func InvoiceWithConfig(cfg Config) *InvoiceMetrics {
	invoiceMetricsOnce.Do(func() {
		invoiceMetrics = newInvoiceMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return invoiceMetrics
}

// ResetInvoiceMetricsForTest resets the singleton for tests.
func ResetInvoiceMetricsForTest() {
	invoiceMetricsOnce = sync.Once{}
	invoiceMetrics = nil
}

// NewInvoiceMetricsForRegistry builds collectors on a private registry, for
// tests in other packages.
func NewInvoiceMetricsForRegistry(registerer prometheus.Registerer) *InvoiceMetrics {
	return newInvoiceMetrics(registerer, Config{})
}

func newInvoiceMetrics(registerer prometheus.Registerer, cfg Config) *InvoiceMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "invoicely"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	commits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "invoicely_invoice_commits_total",
		Help:        "Invoice save transactions by result.",
		ConstLabels: constLabels,
	}, []string{"result"})
	commitFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "invoicely_invoice_commit_failures_total",
		Help:        "Invoice save failures by low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"reason"})
	exportDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "invoicely_pdf_export_duration_seconds",
		Help:        "PDF export latency by exporter.",
		Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30},
		ConstLabels: constLabels,
	}, []string{"exporter"})
	exportFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "invoicely_pdf_export_failures_total",
		Help:        "PDF exports that produced no document, by reason.",
		ConstLabels: constLabels,
	}, []string{"exporter", "reason"})
	settingsCache := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "invoicely_settings_cache_lookups_total",
		Help:        "Settings cache lookups by result.",
		ConstLabels: constLabels,
	}, []string{"result"})

	registerer.MustRegister(commits, commitFailures, exportDuration, exportFailures, settingsCache)

	return &InvoiceMetrics{
		commits:        commits,
		commitFailures: commitFailures,
		exportDuration: exportDuration,
		exportFailures: exportFailures,
		settingsCache:  settingsCache,
	}
}

// RecordCommit records the outcome of an invoice save transaction.
func (m *InvoiceMetrics) RecordCommit(result string) {
	if m == nil {
		return
	}
	m.commits.WithLabelValues(normalizeLabel(result, CommitResultError)).Inc()
}

// RecordCommitFailure records a failed save using ClassifyFailure.
func (m *InvoiceMetrics) RecordCommitFailure(err error) {
	if m == nil || err == nil {
		return
	}
	m.commitFailures.WithLabelValues(ClassifyFailure(err)).Inc()
}

// RecordCounterConflict records a save that lost the counter race.
func (m *InvoiceMetrics) RecordCounterConflict() {
	if m == nil {
		return
	}
	m.commitFailures.WithLabelValues(FailureReasonCounterConflict).Inc()
}

// ObserveExport records how long an export took.
func (m *InvoiceMetrics) ObserveExport(exporter string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.exportDuration.WithLabelValues(normalizeLabel(exporter, "unknown")).Observe(elapsed.Seconds())
}

// RecordExportFailure records an export that yielded no bytes.
func (m *InvoiceMetrics) RecordExportFailure(exporter, reason string) {
	if m == nil {
		return
	}
	m.exportFailures.WithLabelValues(normalizeLabel(exporter, "unknown"), normalizeLabel(reason, FailureReasonUnknown)).Inc()
}

// RecordSettingsCache records a settings cache hit or miss.
func (m *InvoiceMetrics) RecordSettingsCache(hit bool) {
	if m == nil {
		return
	}
	result := CacheResultMiss
	if hit {
		result = CacheResultHit
	}
	m.settingsCache.WithLabelValues(result).Inc()
}

// ClassifyFailure maps storage and context errors to a bounded reason set.
func ClassifyFailure(err error) string {
	if err == nil {
		return FailureReasonUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return FailureReasonDeadlineExceeded
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return FailureReasonUniqueViolation
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "55P03":
			return FailureReasonDBLockTimeout
		case "40001":
			return FailureReasonSerializationFailure
		case "23505":
			return FailureReasonUniqueViolation
		}
	}
	return FailureReasonUnknown
}

func normalizeLabel(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	return value
}

// ExportFailures exposes the export failure collector for assertions.
func (m *InvoiceMetrics) ExportFailures() *prometheus.CounterVec {
	return m.exportFailures
}

// SettingsCache exposes the settings cache collector for assertions.
func (m *InvoiceMetrics) SettingsCache() *prometheus.CounterVec {
	return m.settingsCache
}

// Commits exposes the commit collector for assertions.
func (m *InvoiceMetrics) Commits() *prometheus.CounterVec {
	return m.commits
}
