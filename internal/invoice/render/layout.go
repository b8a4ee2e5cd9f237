package render

import (
	"fmt"
	"html/template"
	"strings"
)

const (
	TemplateClassic = "classic"
	TemplateModern  = "modern"
	TemplateMinimal = "minimal"
)

// Layout is everything that differs between templates. Data selection never
// lives here.
type Layout struct {
	ID              string
	FontFamily      string
	PageBackground  string
	CardBorder      string
	CardRadius      string
	HeaderBand      string
	HeaderText      string
	Primary         string
	Muted           string
	BandBackground  string
	TableHeadBg     string
	TableHeadText   string
	RowBorder       string
	StripeRows      bool
	StripeColor     string
	BillToLabel     string
	NumberPrefix    string
	LabelSuffix     string
	SubtotalLabel   string
	GrandTotalLabel string
	FooterSeparator string
	FooterBg        string
	FooterText      string
}

var layouts = map[string]Layout{
	TemplateClassic: {
		ID:              TemplateClassic,
		FontFamily:      "Arial, sans-serif",
		PageBackground:  "#ffffff",
		CardBorder:      "2px solid #1a1a2e",
		CardRadius:      "8px",
		HeaderBand:      "#1a1a2e",
		HeaderText:      "#ffffff",
		Primary:         "#1a1a2e",
		Muted:           "#555555",
		BandBackground:  "#f8f9ff",
		TableHeadBg:     "#1a1a2e",
		TableHeadText:   "#ffffff",
		RowBorder:       "1px solid #dddddd",
		BillToLabel:     "Bill To:",
		NumberPrefix:    "# ",
		LabelSuffix:     ":",
		SubtotalLabel:   "Subtotal",
		GrandTotalLabel: "Grand Total",
		FooterSeparator: "|",
		FooterBg:        "#1a1a2e",
		FooterText:      "#ffffff",
	},
	TemplateModern: {
		ID:              TemplateModern,
		FontFamily:      "'Segoe UI', sans-serif",
		PageBackground:  "#f5f5f5",
		CardBorder:      "none",
		CardRadius:      "16px",
		HeaderBand:      "linear-gradient(135deg, #667eea, #764ba2)",
		HeaderText:      "#ffffff",
		Primary:         "#667eea",
		Muted:           "#666666",
		BandBackground:  "#ffffff",
		TableHeadBg:     "#ffffff",
		TableHeadText:   "#666666",
		RowBorder:       "2px solid #f0f0f0",
		StripeRows:      true,
		StripeColor:     "#fafafa",
		BillToLabel:     "Bill To",
		NumberPrefix:    "#",
		LabelSuffix:     "",
		SubtotalLabel:   "Subtotal",
		GrandTotalLabel: "Total",
		FooterSeparator: "·",
		FooterBg:        "#ffffff",
		FooterText:      "#999999",
	},
	TemplateMinimal: {
		ID:              TemplateMinimal,
		FontFamily:      "Georgia, serif",
		PageBackground:  "#ffffff",
		CardBorder:      "none",
		CardRadius:      "0",
		HeaderBand:      "#ffffff",
		HeaderText:      "#222222",
		Primary:         "#000000",
		Muted:           "#888888",
		BandBackground:  "#ffffff",
		TableHeadBg:     "#ffffff",
		TableHeadText:   "#000000",
		RowBorder:       "1px solid #eeeeee",
		BillToLabel:     "BILLED TO",
		NumberPrefix:    "No. ",
		LabelSuffix:     ":",
		SubtotalLabel:   "Subtotal",
		GrandTotalLabel: "TOTAL",
		FooterSeparator: "|",
		FooterBg:        "#ffffff",
		FooterText:      "#999999",
	},
}

// NormalizeTemplateID maps unknown or blank ids to classic.
func NormalizeTemplateID(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	if _, ok := layouts[id]; ok {
		return id
	}
	return TemplateClassic
}

// LayoutFor returns the layout for id, falling back to classic.
func LayoutFor(id string) Layout {
	return layouts[NormalizeTemplateID(id)]
}

// TemplateIDs lists the supported templates in display order.
func TemplateIDs() []string {
	return []string{TemplateClassic, TemplateModern, TemplateMinimal}
}

// PrimaryRGB returns the layout's primary colour as RGB components for
// non-HTML outputs.
func (l Layout) PrimaryRGB() (int, int, int) {
	return hexToRGB(l.Primary)
}

func hexToRGB(hex string) (int, int, int) {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if !hexColorPattern.MatchString("#" + hex) {
		return 0, 0, 0
	}
	var rgb [3]int
	for i := 0; i < 3; i++ {
		rgb[i] = hexNibble(hex[2*i])*16 + hexNibble(hex[2*i+1])
	}
	return rgb[0], rgb[1], rgb[2]
}

func hexNibble(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	default:
		return 0
	}
}

// Stylesheet renders the layout's CSS. Values come from the fixed layout
// table above, never from user input.
func (l Layout) Stylesheet() template.CSS {
	var b strings.Builder
	fmt.Fprintf(&b, "body{margin:0;padding:24px;font-family:%s;color:#333;background:%s;}", l.FontFamily, l.PageBackground)
	fmt.Fprintf(&b, ".invoice{max-width:800px;margin:auto;border:%s;border-radius:%s;overflow:hidden;background:#fff;}", l.CardBorder, l.CardRadius)
	fmt.Fprintf(&b, ".header{display:flex;justify-content:space-between;align-items:center;padding:30px;background:%s;color:%s;}", l.HeaderBand, l.HeaderText)
	b.WriteString(".header h1{margin:10px 0 0;font-size:26px;}.header h2{margin:0;font-size:32px;letter-spacing:3px;font-weight:300;}")
	b.WriteString(".logo{max-height:80px;max-width:200px;}")
	fmt.Fprintf(&b, ".billing{display:flex;justify-content:space-between;padding:20px 30px;background:%s;}", l.BandBackground)
	fmt.Fprintf(&b, ".label{color:%s;}.address,.terms p{white-space:pre-line;}.dates{text-align:right;}", l.Muted)
	b.WriteString(".items{padding:20px 30px;}table{width:100%;border-collapse:collapse;}")
	fmt.Fprintf(&b, "th{padding:10px;background:%s;color:%s;text-align:left;border-bottom:%s;}", l.TableHeadBg, l.TableHeadText, l.RowBorder)
	fmt.Fprintf(&b, "td{padding:8px 10px;border-bottom:%s;}", l.RowBorder)
	b.WriteString(".index{text-align:center;width:40px;}.quantity{text-align:center;}.money{text-align:right;}")
	if l.StripeRows {
		fmt.Fprintf(&b, "tbody tr:nth-child(odd){background:%s;}", l.StripeColor)
	}
	b.WriteString(".totals td{border:none;text-align:right;}")
	fmt.Fprintf(&b, ".grand td{font-weight:bold;font-size:18px;border-top:2px solid %s;color:%s;}", l.Primary, l.Primary)
	fmt.Fprintf(&b, ".terms{padding:20px 30px;background:%s;font-size:13px;}", l.BandBackground)
	fmt.Fprintf(&b, ".footer{padding:15px 30px;text-align:center;font-size:13px;background:%s;color:%s;}", l.FooterBg, l.FooterText)
	b.WriteString(".sep{padding:0 8px;}")
	b.WriteString("@media print{*{-webkit-print-color-adjust:exact;print-color-adjust:exact;}body{margin:0;}}")
	return template.CSS(b.String())
}
