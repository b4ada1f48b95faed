package report

import (
	"bytes"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// severityColors maps the severity tokens the formatter embeds in
// finding headings to their display color.
var severityColors = map[string][3]int{
	"(Critical)":      {139, 0, 0},
	"(High)":          {255, 0, 0},
	"(Medium)":        {255, 165, 0},
	"(Low)":           {0, 0, 255},
	"(Informational)": {0, 100, 0},
}

// pdfRenderer walks the goldmark AST and draws it into a gofpdf page.
// Supported constructs match what the formatter emits: headings, bold
// and italic runs, bullet lists, fenced code blocks and thematic breaks.
type pdfRenderer struct {
	pdf *gofpdf.Fpdf
	tr  func(string) string
	src []byte

	size  float64
	style string
	lineH float64
}

func newPDFRenderer(pdf *gofpdf.Fpdf, tr func(string) string, src []byte) *pdfRenderer {
	return &pdfRenderer{pdf: pdf, tr: tr, src: src}
}

// render parses the markdown source and draws every block node.
func (r *pdfRenderer) render() {
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(r.src))
	for child := doc.FirstChild(); child != nil; child = child.NextSibling() {
		r.renderBlock(child)
	}
}

func (r *pdfRenderer) renderBlock(node ast.Node) {
	switch n := node.(type) {
	case *ast.Heading:
		r.setFont(headingSize(n.Level), "B")
		r.renderInline(n)
		r.pdf.Ln(r.lineH)
		r.pdf.Ln(3)

	case *ast.Paragraph:
		r.setFont(10, "")
		r.renderInline(n)
		r.pdf.Ln(r.lineH)
		r.pdf.Ln(2)

	case *ast.ThematicBreak:
		// The formatter uses --- as a section spacer, not a rule.
		r.pdf.Ln(5)

	case *ast.FencedCodeBlock:
		r.renderCode(n.Lines())

	case *ast.CodeBlock:
		r.renderCode(n.Lines())

	case *ast.List:
		r.renderList(n)

	default:
		for child := node.FirstChild(); child != nil; child = child.NextSibling() {
			r.renderBlock(child)
		}
	}
}

func (r *pdfRenderer) renderList(list *ast.List) {
	r.setFont(10, "")
	left, _, _, _ := r.pdf.GetMargins()
	r.pdf.SetLeftMargin(left + 5)
	r.pdf.SetX(left + 5)

	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		r.pdf.Write(r.lineH, r.tr("• "))
		// Tight list items wrap their inline content in a text block.
		for block := item.FirstChild(); block != nil; block = block.NextSibling() {
			r.renderInline(block)
		}
		r.pdf.Ln(r.lineH + 1)
	}

	r.pdf.SetLeftMargin(left)
	r.pdf.SetX(left)
	r.pdf.Ln(2)
}

// renderCode draws a code block as a filled monospace box.
func (r *pdfRenderer) renderCode(lines *text.Segments) {
	var buf bytes.Buffer
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(r.src))
	}
	content := strings.TrimRight(buf.String(), "\n")

	r.pdf.SetFont(codeFamily, "", 9)
	r.pdf.SetFillColor(235, 235, 235)
	r.pdf.MultiCell(0, 4.5, r.tr(content), "", "L", true)
	r.pdf.Ln(2)
}

func (r *pdfRenderer) renderInline(node ast.Node) {
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		r.renderInlineNode(child)
	}
}

func (r *pdfRenderer) renderInlineNode(node ast.Node) {
	switch n := node.(type) {
	case *ast.Text:
		r.writeText(string(n.Segment.Value(r.src)))
		if n.SoftLineBreak() || n.HardLineBreak() {
			r.pdf.Ln(r.lineH)
		}

	case *ast.String:
		r.writeText(string(n.Value))

	case *ast.CodeSpan:
		r.pdf.SetFont(codeFamily, r.style, r.size)
		r.renderInline(n)
		r.pdf.SetFont(fontFamily, r.style, r.size)

	case *ast.Emphasis:
		saved := r.style
		if n.Level == 2 {
			r.style = mergeStyle(saved, "B")
		} else {
			r.style = mergeStyle(saved, "I")
		}
		r.pdf.SetFont(fontFamily, r.style, r.size)
		r.renderInline(n)
		r.style = saved
		r.pdf.SetFont(fontFamily, r.style, r.size)

	case *ast.AutoLink:
		r.writeText(string(n.URL(r.src)))

	case *ast.Link:
		r.renderInline(n)

	default:
		r.renderInline(node)
	}
}

// writeText emits flowing text, coloring severity tokens in place.
func (r *pdfRenderer) writeText(s string) {
	for len(s) > 0 {
		idx, token := nextSeverityToken(s)
		if idx < 0 {
			r.pdf.Write(r.lineH, r.tr(s))
			return
		}
		if idx > 0 {
			r.pdf.Write(r.lineH, r.tr(s[:idx]))
		}

		rgb := severityColors[token]
		r.pdf.SetTextColor(rgb[0], rgb[1], rgb[2])
		r.pdf.SetFont(fontFamily, mergeStyle(r.style, "B"), r.size)
		r.pdf.Write(r.lineH, r.tr(token))
		r.pdf.SetTextColor(0, 0, 0)
		r.pdf.SetFont(fontFamily, r.style, r.size)

		s = s[idx+len(token):]
	}
}

// nextSeverityToken finds the earliest severity token in s, or -1.
func nextSeverityToken(s string) (int, string) {
	best := -1
	var bestToken string
	for token := range severityColors {
		if idx := strings.Index(s, token); idx >= 0 && (best < 0 || idx < best) {
			best = idx
			bestToken = token
		}
	}
	return best, bestToken
}

// setFont switches the active font and derives the line height from the
// point size.
func (r *pdfRenderer) setFont(size float64, style string) {
	r.size = size
	r.style = style
	r.lineH = size * 0.5
	r.pdf.SetFont(fontFamily, style, size)
}

func mergeStyle(style, flag string) string {
	if strings.Contains(style, flag) {
		return style
	}
	return style + flag
}

// headingSize maps markdown heading levels to the report type scale,
// from the document title at level 1 down to subsection headings.
func headingSize(level int) float64 {
	switch level {
	case 1:
		return 24
	case 2:
		return 20
	case 3:
		return 16
	case 4:
		return 14
	default:
		return 12
	}
}
