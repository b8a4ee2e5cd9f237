package pdf

import (
	"bytes"
	"compress/zlib"
	"context"
	"io"
	"regexp"
	"strings"
	"testing"
	"unicode/utf16"

	"github.com/smallbiznis/invoicely/internal/invoice/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var streamHead = regexp.MustCompile(`<<([^>]*)>>\s*stream\r?\n`)

// shownText returns the operand of every Tj operator in the page content
// streams, decoded from UTF-16BE.
func shownText(t *testing.T, doc []byte) []string {
	t.Helper()
	var out []string
	for _, m := range streamHead.FindAllSubmatchIndex(doc, -1) {
		dict := doc[m[2]:m[3]]
		if bytes.Contains(dict, []byte("/Length1")) {
			continue
		}
		body := doc[m[1]:]
		end := bytes.Index(body, []byte("endstream"))
		require.GreaterOrEqual(t, end, 0)
		body = body[:end]

		if bytes.Contains(dict, []byte("/FlateDecode")) {
			zr, err := zlib.NewReader(bytes.NewReader(body))
			if err != nil {
				continue
			}
			inflated, err := io.ReadAll(zr)
			if err != nil && len(inflated) == 0 {
				continue
			}
			body = inflated
		}
		out = append(out, textOperands(body)...)
	}
	return out
}

func textOperands(content []byte) []string {
	var out []string
	for i := 0; i < len(content); i++ {
		if content[i] != '(' {
			continue
		}
		var lit []byte
		j := i + 1
		for ; j < len(content) && content[j] != ')'; j++ {
			if content[j] == '\\' && j+1 < len(content) {
				j++
				switch content[j] {
				case 'r':
					lit = append(lit, '\r')
				case 'n':
					lit = append(lit, '\n')
				default:
					lit = append(lit, content[j])
				}
				continue
			}
			lit = append(lit, content[j])
		}
		if j >= len(content) {
			break
		}
		if bytes.HasPrefix(bytes.TrimLeft(content[j+1:], " "), []byte("Tj")) {
			out = append(out, decodeUTF16BE(lit))
		}
		i = j
	}
	return out
}

func decodeUTF16BE(b []byte) string {
	if len(b)%2 != 0 {
		return string(b)
	}
	units := make([]uint16, 0, len(b)/2)
	for i := 0; i < len(b); i += 2 {
		units = append(units, uint16(b[i])<<8|uint16(b[i+1]))
	}
	return string(utf16.Decode(units))
}

func exportText(t *testing.T, view render.View) string {
	t.Helper()
	out := NewMarotoExporter(0, nil, nil).Export(context.Background(), FromView(view))
	require.True(t, bytes.HasPrefix(out, []byte("%PDF")))
	return strings.Join(shownText(t, out), "\n")
}

func TestMarotoKeepsRupeeSign(t *testing.T) {
	text := exportText(t, sampleView("classic", false))

	assert.Contains(t, text, "₹200.00")
	assert.Contains(t, text, "₹49.50")
	assert.NotContains(t, text, ".200.00")
}

func TestMarotoMatchesHTMLSections(t *testing.T) {
	renderer := render.NewRenderer()

	for _, id := range render.TemplateIDs() {
		for _, tax := range []bool{true, false} {
			for _, terms := range []string{"No returns after 7 days.", "   "} {
				view := sampleView(id, tax)
				view.Terms = terms

				doc, err := renderer.Render(id, view)
				require.NoError(t, err)
				html := string(doc.HTML)
				text := exportText(t, view)
				layout := render.LayoutFor(id)

				assert.Contains(t, text, view.Subtotal, "template %s", id)
				assert.Contains(t, text, view.GrandTotal, "template %s", id)
				for _, row := range view.Rows {
					for _, cell := range row.Cells {
						assert.Contains(t, html, cell.Value)
						assert.Contains(t, text, cell.Value, "template %s cell %s", id, cell.Key)
					}
				}

				assert.Equal(t, strings.Contains(html, `data-total="cgst"`), strings.Contains(text, "CGST"), "template %s tax %v", id, tax)
				assert.Equal(t, strings.Contains(html, `data-total="sgst"`), strings.Contains(text, "SGST"), "template %s tax %v", id, tax)
				assert.Equal(t, tax, strings.Contains(text, view.CGSTAmount), "template %s tax %v", id, tax)

				assert.Equal(t, strings.Contains(html, `class="terms"`), strings.Contains(text, "Terms & Conditions"), "template %s terms %q", id, terms)
				assert.Equal(t, view.HasTerms(), strings.Contains(text, "No returns"), "template %s terms %q", id, terms)

				assert.Equal(t, strings.Count(html, `class="sep"`), strings.Count(text, layout.FooterSeparator), "template %s", id)
				assert.Contains(t, text, "Issue Date")
			}
		}
	}
}

func TestTextOperandsUnescapes(t *testing.T) {
	content := []byte("BT 1 2 Td (\x00A\x00\\(\x00B) Tj ET BT (skip) TJ ET")
	ops := textOperands(content)
	require.Len(t, ops, 1)
	assert.Equal(t, "A(B", ops[0])
}
