package render

import (
	"io"

	"github.com/go-pdf/fpdf"

	"bookbuddy/internal/model"
)

const (
	pageMargin  = 25.4 // one inch
	indentWidth = 8.0
	creator     = "Book Buddy"
)

func writePDF(w io.Writer, blocks []Block, meta model.BookMetadata, fontSize float64) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetTitle(meta.Title, true)
	pdf.SetAuthor(meta.Author, true)
	pdf.SetSubject(meta.Description, true)
	pdf.SetCreator(creator, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	// points to millimetres with a 1.4 leading
	lineHeight := fontSize * 0.3528 * 1.4
	pdf.AddPage()

	for _, b := range blocks {
		switch b.Kind {
		case KindTitle:
			pdf.SetFont("Times", "B", 24)
			pdf.MultiCell(0, 11, tr(b.Text), "", "C", false)
			pdf.Ln(6)
		case KindAuthor:
			pdf.SetFont("Times", "", 14)
			pdf.MultiCell(0, 7, tr(b.Text), "", "C", false)
			pdf.Ln(14)
		case KindParagraph:
			pdf.SetFont("Times", "", fontSize)
			if b.Indent {
				pdf.SetX(pageMargin + indentWidth)
				pdf.SetLeftMargin(pageMargin + indentWidth)
				pdf.MultiCell(0, lineHeight, tr(b.Text), "", "J", false)
				pdf.SetLeftMargin(pageMargin)
			} else {
				pdf.MultiCell(0, lineHeight, tr(b.Text), "", "J", false)
			}
		case KindVerse:
			pdf.SetFont("Times", "I", fontSize)
			for _, l := range b.Lines {
				pdf.MultiCell(0, lineHeight, tr(l.Text), "", "L", false)
			}
		case KindScript:
			for _, l := range b.Lines {
				if l.Speaker != "" {
					pdf.SetFont("Courier", "B", fontSize)
					pdf.MultiCell(0, lineHeight, tr(l.Speaker), "", "C", false)
				}
				pdf.SetFont("Courier", "", fontSize)
				pdf.SetLeftMargin(pageMargin + 2*indentWidth)
				pdf.SetX(pageMargin + 2*indentWidth)
				pdf.MultiCell(0, lineHeight, tr(l.Text), "", "L", false)
				pdf.SetLeftMargin(pageMargin)
			}
		}
		if b.Kind != KindTitle && b.Kind != KindAuthor {
			pdf.Ln(lineHeight)
		}
	}
	return pdf.Output(w)
}
