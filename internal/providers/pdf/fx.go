package pdf

import (
	"github.com/smallbiznis/invoicely/internal/config"
	"github.com/smallbiznis/invoicely/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.pdf",
	fx.Provide(NewExporter),
)

type Params struct {
	fx.In

	Cfg     config.Config
	Log     *zap.Logger
	Metrics *metrics.InvoiceMetrics `optional:"true"`
}

// NewExporter picks the strategy named by PDF_EXPORTER. Gotenberg without a
// URL falls back to maroto.
func NewExporter(p Params) Exporter {
	cfg := p.Cfg.PDF
	if cfg.Exporter == config.PDFExporterGotenberg {
		if cfg.GotenbergURL != "" {
			client := NewGotenbergClient(cfg.GotenbergURL, nil)
			return NewGotenbergExporter(client, cfg.ExportTimeout, p.Log, p.Metrics)
		}
		p.Log.Warn("gotenberg exporter selected without GOTENBERG_URL, using maroto")
	}
	return NewMarotoExporter(cfg.ExportTimeout, p.Log, p.Metrics)
}
