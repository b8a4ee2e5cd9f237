package pdf

import (
	"context"
	_ "embed"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/image"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/extension"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/johnfercher/maroto/v2/pkg/repository"
	"github.com/smallbiznis/invoicely/internal/invoice/render"
	"github.com/smallbiznis/invoicely/internal/observability/metrics"
	"go.uber.org/zap"
)

const (
	pageMargin  = 15
	minGridSize = 12
	// Grid units per column kind in the item table.
	indexSpan = 1
	textSpan  = 3
	wideSpan  = 4
	valueSpan = 2
)

// fontFamily is registered from the embedded DejaVu faces. The core PDF
// fonts are cp1252 and cannot draw the rupee sign.
const fontFamily = "dejavu"

var (
	//go:embed fonts/DejaVuSansCondensed.ttf
	regularFace []byte
	//go:embed fonts/DejaVuSansCondensed-Bold.ttf
	boldFace []byte
)

var errNoView = errors.New("pdf_source_without_view")

var (
	white = &props.Color{Red: 255, Green: 255, Blue: 255}
	muted = &props.Color{Red: 102, Green: 102, Blue: 102}
	rule  = &props.Color{Red: 221, Green: 221, Blue: 221}
)

// NewMarotoExporter lays the invoice out natively from the resolved view, so
// the PDF never depends on a browser.
func NewMarotoExporter(timeout time.Duration, log *zap.Logger, m *metrics.InvoiceMetrics) Exporter {
	return newSoftExporter("maroto", generateMaroto, timeout, log, m)
}

func generateMaroto(_ context.Context, src Source) ([]byte, error) {
	view, ok := src.view()
	if !ok {
		return nil, errNoView
	}
	layout := render.LayoutFor(view.Template)
	spans, grid := columnSpans(view.Columns)

	fonts, err := repository.New().
		AddUTF8FontFromBytes(fontFamily, fontstyle.Normal, regularFace).
		AddUTF8FontFromBytes(fontFamily, fontstyle.Bold, boldFace).
		Load()
	if err != nil {
		return nil, fmt.Errorf("load fonts: %w", err)
	}

	cfg := config.NewBuilder().
		WithCustomFonts(fonts).
		WithDefaultFont(&props.Font{Family: fontFamily}).
		WithPageSize(pagesize.A4).
		WithLeftMargin(pageMargin).
		WithTopMargin(pageMargin).
		WithRightMargin(pageMargin).
		WithMaxGridSize(grid).
		WithTitle(view.InvoiceTitle+" "+view.InvoiceNumber, true).
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)
	r, g, b := layout.PrimaryRGB()
	primary := &props.Color{Red: r, Green: g, Blue: b}

	addHeader(m, view, layout, grid, primary)
	addBillTo(m, view, layout, grid, primary)
	addItemTable(m, view, layout, spans, primary)
	addTotals(m, view, layout, grid, primary)
	addTerms(m, view, grid)
	addFooter(m, view, layout, grid)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}

// columnSpans sizes each item column in grid units. Narrow tables are padded
// on the amount column so the grid never drops below twelve units.
func columnSpans(columns []render.ColumnView) ([]int, int) {
	spans := make([]int, len(columns))
	total := 0
	for i, c := range columns {
		switch {
		case c.Kind == render.KindIndex:
			spans[i] = indexSpan
		case c.Key == "description":
			spans[i] = wideSpan
		case c.Kind == render.KindText:
			spans[i] = textSpan
		default:
			spans[i] = valueSpan
		}
		total += spans[i]
	}
	if total < minGridSize && len(spans) > 0 {
		spans[len(spans)-1] += minGridSize - total
		total = minGridSize
	}
	return spans, total
}

func addHeader(m core.Maroto, view render.View, layout render.Layout, grid int, primary *props.Color) {
	half := grid / 2
	titleCol := col.New(half).Add(
		text.New(view.CompanyName, props.Text{Size: 16, Style: fontstyle.Bold, Color: white, Top: 4, Left: 3}),
	)
	if logo, ext, ok := decodeLogo(string(view.LogoURL)); ok {
		titleCol = col.New(half).Add(
			image.NewFromBytes(logo, ext, props.Rect{Percent: 80, Left: 3, Top: 2}),
		)
		m.AddRow(22, titleCol, col.New(grid-half)).WithStyle(&props.Cell{BackgroundColor: primary})
		titleCol = col.New(half).Add(
			text.New(view.CompanyName, props.Text{Size: 14, Style: fontstyle.Bold, Color: white, Left: 3}),
		)
	}
	m.AddRow(18,
		titleCol,
		col.New(grid-half).Add(
			text.New(view.InvoiceTitle, props.Text{Size: 18, Style: fontstyle.Bold, Color: white, Align: align.Right, Top: 2, Right: 3}),
			text.New(layout.NumberPrefix+view.InvoiceNumber, props.Text{Size: 10, Color: white, Align: align.Right, Top: 11, Right: 3}),
		),
	).WithStyle(&props.Cell{BackgroundColor: primary})
	m.AddRow(6, col.New(grid))
}

func addBillTo(m core.Maroto, view render.View, layout render.Layout, grid int, primary *props.Color) {
	half := grid / 2
	details := []core.Component{
		text.New(layout.BillToLabel, props.Text{Size: 10, Style: fontstyle.Bold, Color: primary}),
		text.New(view.ClientName, props.Text{Size: 10, Style: fontstyle.Bold, Top: 5}),
	}
	top := 10.0
	for _, lineText := range strings.Split(view.ClientAddress, "\n") {
		details = append(details, text.New(lineText, props.Text{Size: 9, Top: top}))
		top += 4
	}
	details = append(details,
		text.New(view.ClientPhone, props.Text{Size: 9, Top: top}),
		text.New(view.ClientEmail, props.Text{Size: 9, Top: top + 4}),
	)

	suffix := layout.LabelSuffix
	m.AddRow(top+10,
		col.New(half).Add(details...),
		col.New(grid-half).Add(
			text.New("Issue Date"+suffix+" "+view.IssueDate, props.Text{Size: 9, Align: align.Right}),
			text.New("Due Date"+suffix+" "+view.DueDate, props.Text{Size: 9, Align: align.Right, Top: 5}),
		),
	)
}

func addItemTable(m core.Maroto, view render.View, layout render.Layout, spans []int, primary *props.Color) {
	header := make([]core.Col, 0, len(view.Columns))
	headText := white
	if layout.TableHeadBg != layout.Primary {
		headText = primary
	}
	for i, c := range view.Columns {
		header = append(header, text.NewCol(spans[i], c.Name, props.Text{
			Size: 9, Style: fontstyle.Bold, Color: headText, Align: alignFor(c.Kind), Top: 2, Left: 1, Right: 1,
		}))
	}
	headRow := m.AddRow(8, header...)
	if layout.TableHeadBg == layout.Primary {
		headRow.WithStyle(&props.Cell{BackgroundColor: primary})
	}

	stripe := &props.Color{Red: 250, Green: 250, Blue: 250}
	for n, row := range view.Rows {
		cells := make([]core.Col, 0, len(row.Cells))
		for i, cell := range row.Cells {
			cells = append(cells, text.NewCol(spans[i], cell.Value, props.Text{
				Size: 9, Align: alignFor(cell.Kind), Top: 2, Left: 1, Right: 1,
			}))
		}
		r := m.AddRow(8, cells...)
		if layout.StripeRows && n%2 == 1 {
			r.WithStyle(&props.Cell{BackgroundColor: stripe})
		}
	}
	m.AddRow(2, line.NewCol(sum(spans), props.Line{Color: rule}))
}

func addTotals(m core.Maroto, view render.View, layout render.Layout, grid int, primary *props.Color) {
	labelSpan := 3
	valSpan := 3
	spacer := grid - labelSpan - valSpan

	totalRow := func(label, value string, style fontstyle.Type, color *props.Color) {
		m.AddRow(7,
			col.New(spacer),
			text.NewCol(labelSpan, label, props.Text{Size: 9, Style: style, Color: color}),
			text.NewCol(valSpan, value, props.Text{Size: 9, Style: style, Color: color, Align: align.Right}),
		)
	}

	totalRow(layout.SubtotalLabel+layout.LabelSuffix, view.Subtotal, fontstyle.Normal, nil)
	if view.TaxEnabled {
		totalRow("CGST ("+view.CGSTPercent+"%)"+layout.LabelSuffix, view.CGSTAmount, fontstyle.Normal, nil)
		totalRow("SGST ("+view.SGSTPercent+"%)"+layout.LabelSuffix, view.SGSTAmount, fontstyle.Normal, nil)
	}
	m.AddRow(2, col.New(spacer), line.NewCol(labelSpan+valSpan, props.Line{Color: primary}))
	m.AddRow(9,
		col.New(spacer),
		text.NewCol(labelSpan, layout.GrandTotalLabel+layout.LabelSuffix, props.Text{Size: 11, Style: fontstyle.Bold, Color: primary}),
		text.NewCol(valSpan, view.GrandTotal, props.Text{Size: 11, Style: fontstyle.Bold, Color: primary, Align: align.Right}),
	)
}

func addTerms(m core.Maroto, view render.View, grid int) {
	if !view.HasTerms() {
		return
	}
	m.AddRow(6, col.New(grid))
	m.AddRow(6, text.NewCol(grid, "Terms & Conditions", props.Text{Size: 9, Style: fontstyle.Bold}))
	for _, lineText := range strings.Split(view.Terms, "\n") {
		m.AddRow(5, text.NewCol(grid, lineText, props.Text{Size: 8, Color: muted}))
	}
}

func addFooter(m core.Maroto, view render.View, layout render.Layout, grid int) {
	m.AddRow(8, col.New(grid))
	m.AddRow(8, text.NewCol(grid, FooterLine(view.Footer, layout.FooterSeparator), props.Text{
		Size: 8, Color: muted, Align: align.Center, Top: 2,
	}))
}

// FooterLine joins every footer segment, empty ones included, so separators
// keep their positions across invoices.
func FooterLine(segments []string, separator string) string {
	return strings.Join(segments, " "+separator+" ")
}

func alignFor(kind string) align.Type {
	switch kind {
	case render.KindMoney, render.KindQuantity:
		return align.Right
	case render.KindIndex:
		return align.Center
	default:
		return align.Left
	}
}

// decodeLogo unpacks the data URI produced by render.Resolve.
func decodeLogo(uri string) ([]byte, extension.Type, bool) {
	var ext extension.Type
	switch {
	case strings.HasPrefix(uri, "data:image/png;base64,"):
		ext = extension.Png
	case strings.HasPrefix(uri, "data:image/jpeg;base64,"):
		ext = extension.Jpg
	default:
		return nil, "", false
	}
	raw, err := base64.StdEncoding.DecodeString(uri[strings.Index(uri, ",")+1:])
	if err != nil || len(raw) == 0 {
		return nil, "", false
	}
	return raw, ext, true
}

func sum(values []int) int {
	total := 0
	for _, v := range values {
		total += v
	}
	return total
}
