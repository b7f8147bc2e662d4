package report

import (
	"bytes"
	"fmt"
	"strings"
	"ytnotes/internal/domain"
	"ytnotes/internal/summarizer"

	"github.com/go-pdf/fpdf"
)

// Layout is in points on US Letter paper.
const (
	marginSide   = 72
	marginTop    = 72
	marginBottom = 18

	titleFontSize  = 18
	titleLeading   = 22
	titleSpacer    = 12
	bodyFontSize   = 10
	bodyLeading    = 12
	headingSize    = 12
	headingLeading = 15
	paragraphGap   = 6

	coreFontFamily = "Helvetica"
	utf8FontFamily = "body"
)

// Renderer lays out summaries as PDF documents.
type Renderer struct {
	fontPath string
}

// NewRenderer returns a renderer. When fontPath names a TTF file it is used
// for all text, which is required for scripts outside Windows-1252.
func NewRenderer(fontPath string) *Renderer {
	return &Renderer{fontPath: strings.TrimSpace(fontPath)}
}

// FileName is the download name of the document.
func FileName(language string, length domain.Length) string {
	return fmt.Sprintf("video_summary_%s_%s.pdf", language, length.Lower())
}

func (r *Renderer) Render(summary domain.Summary) ([]byte, error) {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetMargins(marginSide, marginTop, marginSide)
	pdf.SetAutoPageBreak(true, marginBottom)
	pdf.SetTitle(summary.Title(), true)

	family, translate := r.setupFonts(pdf)

	pdf.AddPage()

	pdf.SetFont(family, "B", titleFontSize)
	pdf.MultiCell(0, titleLeading, translate(summary.Title()), "", "C", false)
	pdf.Ln(titleSpacer)

	for _, line := range strings.Split(summary.Text, "\n") {
		p := classify(line)

		if p.text != "" {
			switch p.kind {
			case kindHeading:
				pdf.SetFont(family, "B", headingSize)
				pdf.MultiCell(0, headingLeading, translate(p.text), "", "L", false)
			case kindBullet:
				pdf.SetFont(family, "", bodyFontSize)
				pdf.MultiCell(0, bodyLeading, translate(p.text), "", "L", false)
			default:
				pdf.SetFont(family, "", bodyFontSize)
				pdf.MultiCell(0, bodyLeading, translate(p.text), "", "J", false)
			}
		}

		pdf.Ln(paragraphGap)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}

	return buf.Bytes(), nil
}

func (r *Renderer) setupFonts(pdf *fpdf.Fpdf) (string, func(string) string) {
	if r.fontPath == "" {
		return coreFontFamily, pdf.UnicodeTranslatorFromDescriptor("")
	}

	pdf.AddUTF8Font(utf8FontFamily, "", r.fontPath)
	pdf.AddUTF8Font(utf8FontFamily, "B", r.fontPath)

	return utf8FontFamily, func(s string) string { return s }
}

type paragraphKind int

const (
	kindText paragraphKind = iota
	kindBullet
	kindHeading
)

type paragraph struct {
	kind paragraphKind
	text string
}

// classify strips the markdown markup a model tends to emit and decides how
// the line is set.
func classify(line string) paragraph {
	text := strings.TrimSpace(strings.ReplaceAll(line, "**", ""))

	if heading, ok := strings.CutPrefix(text, "#"); ok {
		return paragraph{kind: kindHeading, text: strings.TrimSpace(strings.TrimLeft(heading, "#"))}
	}

	if summarizer.IsBullet(text) {
		for _, marker := range []string{"- ", "* "} {
			if rest, ok := strings.CutPrefix(text, marker); ok {
				text = "• " + strings.TrimSpace(rest)
				break
			}
		}

		return paragraph{kind: kindBullet, text: text}
	}

	return paragraph{kind: kindText, text: text}
}
