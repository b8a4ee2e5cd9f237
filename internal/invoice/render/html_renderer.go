package render

import (
	"bytes"
	"fmt"
	"html/template"
	"regexp"
)

// invoiceHTMLTemplate is shared by every layout. Item and header cells carry
// data-key so outputs can be compared across templates.
const invoiceHTMLTemplate = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>{{.View.InvoiceTitle}} {{.View.InvoiceNumber}}</title>
  <style>{{.Layout.Stylesheet}}</style>
</head>
<body>
  <div class="invoice" data-template="{{.Layout.ID}}">
    <div class="header">
      <div>
        {{if .View.LogoURL}}<img class="logo" src="{{.View.LogoURL}}" alt="logo">{{end}}
        <h1 data-field="company_name">{{.View.CompanyName}}</h1>
      </div>
      <div style="text-align:right;">
        <h2 data-field="invoice_title">{{.View.InvoiceTitle}}</h2>
        <p data-field="invoice_number">{{.Layout.NumberPrefix}}{{.View.InvoiceNumber}}</p>
      </div>
    </div>

    <div class="billing">
      <div>
        <strong class="label">{{.Layout.BillToLabel}}</strong><br>
        <span data-field="client_name">{{.View.ClientName}}</span><br>
        <span class="address" data-field="client_address">{{.View.ClientAddress}}</span>
      </div>
      <div class="dates">
        <p><span class="label">Issue Date{{.Layout.LabelSuffix}}</span> <span data-field="issue_date">{{.View.IssueDate}}</span></p>
        <p><span class="label">Due Date{{.Layout.LabelSuffix}}</span> <span data-field="due_date">{{.View.DueDate}}</span></p>
      </div>
    </div>

    <div class="items">
      <table>
        <thead>
          <tr>{{range .View.Columns}}<th class="{{.Kind}}" data-key="{{.Key}}">{{.Name}}</th>{{end}}</tr>
        </thead>
        <tbody>
          {{- range .View.Rows}}
          <tr data-row="{{.Index}}">{{range .Cells}}<td class="{{.Kind}}" data-key="{{.Key}}">{{.Value}}</td>{{end}}</tr>
          {{- end}}
        </tbody>
        <tfoot class="totals">
          <tr data-total="subtotal"><td colspan="{{.LabelSpan}}">{{.Layout.SubtotalLabel}}{{.Layout.LabelSuffix}}</td><td class="money">{{.View.Subtotal}}</td></tr>
          {{- if .View.TaxEnabled}}
          <tr data-total="cgst"><td colspan="{{.LabelSpan}}">CGST ({{.View.CGSTPercent}}%){{.Layout.LabelSuffix}}</td><td class="money">{{.View.CGSTAmount}}</td></tr>
          <tr data-total="sgst"><td colspan="{{.LabelSpan}}">SGST ({{.View.SGSTPercent}}%){{.Layout.LabelSuffix}}</td><td class="money">{{.View.SGSTAmount}}</td></tr>
          {{- end}}
          <tr class="grand" data-total="grand_total"><td colspan="{{.LabelSpan}}">{{.Layout.GrandTotalLabel}}{{.Layout.LabelSuffix}}</td><td class="money">{{.View.GrandTotal}}</td></tr>
        </tfoot>
      </table>
    </div>

    {{- if .View.HasTerms}}
    <div class="terms">
      <strong>Terms &amp; Conditions</strong>
      <p data-field="terms">{{.View.Terms}}</p>
    </div>
    {{- end}}

    <div class="footer">
      {{- range $i, $segment := .View.Footer}}{{if $i}}<span class="sep">{{$.Layout.FooterSeparator}}</span>{{end}}<span data-footer="{{$i}}">{{$segment}}</span>{{end -}}
    </div>
  </div>
</body>
</html>
`

var hexColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Document is a rendered invoice. It keeps the view so exporters can
// re-derive a print layout instead of parsing markup.
type Document struct {
	TemplateID string
	HTML       []byte
	View       View
}

type Renderer interface {
	Render(templateID string, view View) (*Document, error)
}

type HTMLRenderer struct {
	tpl *template.Template
}

type pageData struct {
	View      View
	Layout    Layout
	LabelSpan int
}

func NewRenderer() Renderer {
	return &HTMLRenderer{
		tpl: template.Must(template.New("invoice").Parse(invoiceHTMLTemplate)),
	}
}

// Render executes the shared body with the layout for templateID. Unknown ids
// render as classic.
func (r *HTMLRenderer) Render(templateID string, view View) (*Document, error) {
	layout := LayoutFor(templateID)
	view.Template = layout.ID

	span := len(view.Columns) - 1
	if span < 1 {
		span = 1
	}

	var buf bytes.Buffer
	if err := r.tpl.Execute(&buf, pageData{View: view, Layout: layout, LabelSpan: span}); err != nil {
		return nil, fmt.Errorf("render %s template: %w", layout.ID, err)
	}

	return &Document{
		TemplateID: layout.ID,
		HTML:       buf.Bytes(),
		View:       view,
	}, nil
}
