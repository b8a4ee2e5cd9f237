package pdf

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smallbiznis/invoicely/internal/invoice/render"
	"github.com/smallbiznis/invoicely/internal/observability/metrics"
	"go.uber.org/zap"
)

var (
	ErrNoContent      = errors.New("pdf_no_content")
	ErrExporterPanics = errors.New("pdf_exporter_panic")
)

// Source is what an exporter converts. Document is the rendered HTML snapshot
// plus the view it came from; View alone is accepted for callers that never
// rendered HTML.
type Source struct {
	Document *render.Document
	View     *render.View
}

func FromDocument(doc *render.Document) Source {
	return Source{Document: doc}
}

func FromView(view render.View) Source {
	return Source{View: &view}
}

func (s Source) view() (render.View, bool) {
	if s.Document != nil {
		return s.Document.View, true
	}
	if s.View != nil {
		return *s.View, true
	}
	return render.View{}, false
}

// Exporter turns an invoice into PDF bytes. An empty slice means the export
// failed; callers never see an error.
type Exporter interface {
	Name() string
	Export(ctx context.Context, src Source) []byte
}

type generateFunc func(ctx context.Context, src Source) ([]byte, error)

// softExporter runs a strategy under a deadline and converts every failure
// mode into an empty result.
type softExporter struct {
	name     string
	generate generateFunc
	timeout  time.Duration
	log      *zap.Logger
	metrics  *metrics.InvoiceMetrics
}

func newSoftExporter(name string, generate generateFunc, timeout time.Duration, log *zap.Logger, m *metrics.InvoiceMetrics) *softExporter {
	if log == nil {
		log = zap.NewNop()
	}
	return &softExporter{
		name:     name,
		generate: generate,
		timeout:  timeout,
		log:      log.Named("pdf." + name),
		metrics:  m,
	}
}

func (e *softExporter) Name() string {
	return e.name
}

type exportResult struct {
	content []byte
	err     error
}

func (e *softExporter) Export(ctx context.Context, src Source) []byte {
	if ctx == nil {
		ctx = context.Background()
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	done := make(chan exportResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- exportResult{err: fmt.Errorf("%w: %v", ErrExporterPanics, r)}
			}
		}()
		content, err := e.generate(ctx, src)
		done <- exportResult{content: content, err: err}
	}()

	var res exportResult
	select {
	case <-ctx.Done():
		res.err = ctx.Err()
	case res = <-done:
	}
	e.metrics.ObserveExport(e.name, time.Since(start))

	if res.err == nil && len(res.content) == 0 {
		res.err = ErrNoContent
	}
	if res.err != nil {
		reason := metrics.ClassifyFailure(res.err)
		if errors.Is(res.err, ErrExporterPanics) {
			reason = metrics.FailureReasonPanic
		}
		e.metrics.RecordExportFailure(e.name, reason)
		e.log.Warn("pdf export failed",
			zap.String("reason", reason),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(res.err),
		)
		return []byte{}
	}
	return res.content
}
