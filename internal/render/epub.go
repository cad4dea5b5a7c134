package render

import (
	"html"
	"io"
	"strings"

	epub "github.com/go-shiori/go-epub"

	"bookbuddy/internal/model"
)

// DefaultTitle names untitled documents.
const DefaultTitle = "Book Buddy Recording"

func writeEPUB(w io.Writer, blocks []Block, meta model.BookMetadata) error {
	title := meta.Title
	if title == "" {
		title = DefaultTitle
	}
	book, err := epub.NewEpub(title)
	if err != nil {
		return err
	}
	book.SetLang("en")
	if meta.Author != "" {
		book.SetAuthor(meta.Author)
	}
	if meta.Description != "" {
		book.SetDescription(meta.Description)
	}
	if meta.ISBN != "" {
		book.SetIdentifier("urn:isbn:" + meta.ISBN)
	}

	if _, err := book.AddSection(chapterBody(blocks), title, "chapter.xhtml", ""); err != nil {
		return err
	}
	_, err = book.WriteTo(w)
	return err
}

func chapterBody(blocks []Block) string {
	var sb strings.Builder
	for _, b := range blocks {
		switch b.Kind {
		case KindTitle:
			sb.WriteString(`<h1 style="text-align:center">` + html.EscapeString(b.Text) + "</h1>\n")
		case KindAuthor:
			sb.WriteString(`<p style="text-align:center;font-style:italic">` + html.EscapeString(b.Text) + "</p>\n")
		case KindParagraph:
			if b.Indent {
				sb.WriteString(`<p style="text-indent:2em">`)
			} else {
				sb.WriteString("<p>")
			}
			sb.WriteString(html.EscapeString(b.Text) + "</p>\n")
		case KindVerse:
			sb.WriteString(`<p class="verse">`)
			for i, l := range b.Lines {
				if i > 0 {
					sb.WriteString("<br/>")
				}
				sb.WriteString(html.EscapeString(l.Text))
			}
			sb.WriteString("</p>\n")
		case KindScript:
			sb.WriteString(`<div class="script">`)
			for _, l := range b.Lines {
				if l.Speaker != "" {
					sb.WriteString(`<p style="text-align:center;font-weight:bold">` + html.EscapeString(l.Speaker) + "</p>")
				}
				sb.WriteString(`<p style="margin-left:3em">` + html.EscapeString(l.Text) + "</p>")
			}
			sb.WriteString("</div>\n")
		}
	}
	return sb.String()
}
