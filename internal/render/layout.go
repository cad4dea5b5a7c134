package render

import (
	"regexp"
	"strings"

	"bookbuddy/internal/model"
)

// Style selects a cosmetic text transform applied per paragraph.
type Style string

const (
	StyleNovel      Style = "novel"
	StyleAcademic   Style = "academic"
	StylePoetry     Style = "poetry"
	StyleScreenplay Style = "screenplay"
)

// ParseStyle accepts a style name case-insensitively. Empty means novel.
func ParseStyle(s string) (Style, error) {
	switch st := Style(strings.ToLower(strings.TrimSpace(s))); st {
	case "":
		return StyleNovel, nil
	case StyleNovel, StyleAcademic, StylePoetry, StyleScreenplay:
		return st, nil
	default:
		return "", &RenderError{Op: "style", Err: ErrUnknownStyle}
	}
}

type BlockKind int

const (
	KindTitle BlockKind = iota
	KindAuthor
	KindParagraph
	KindVerse
	KindScript
)

// Line is one line of a verse or script block. Speaker is set only for
// script lines that matched the "NAME: text" form.
type Line struct {
	Speaker string
	Text    string
}

// Block is one flowed unit of output.
type Block struct {
	Kind   BlockKind
	Text   string
	Lines  []Line
	Indent bool
}

var (
	paragraphBreak = regexp.MustCompile(`\n[ \t]*\n`)
	// "Smith, 2020" and "Smith et al., 1998" become "Smith (2020)".
	citationYear = regexp.MustCompile(`\b([A-Z][A-Za-z'-]+(?: et al\.)?),\s*((?:1[5-9]|20)\d{2})\b`)
	speakerLine  = regexp.MustCompile(`^([A-Z][A-Z0-9 .'-]*):\s*(.+)$`)
)

// Paragraphs splits content on blank lines, dropping empty paragraphs.
func Paragraphs(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	var out []string
	for _, p := range paragraphBreak.Split(content, -1) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Layout turns content into blocks: a title/author block when those fields
// are set, then one block per paragraph in source order.
func Layout(content string, meta model.BookMetadata, style Style) []Block {
	var blocks []Block
	if t := strings.TrimSpace(meta.Title); t != "" {
		blocks = append(blocks, Block{Kind: KindTitle, Text: t})
	}
	if a := strings.TrimSpace(meta.Author); a != "" {
		blocks = append(blocks, Block{Kind: KindAuthor, Text: "by " + a})
	}
	for _, p := range Paragraphs(content) {
		blocks = append(blocks, styleParagraph(p, style))
	}
	return blocks
}

func styleParagraph(p string, style Style) Block {
	switch style {
	case StyleAcademic:
		return Block{Kind: KindParagraph, Text: citationYear.ReplaceAllString(flow(p), "$1 ($2)")}
	case StylePoetry:
		var lines []Line
		for _, l := range strings.Split(p, "\n") {
			lines = append(lines, Line{Text: strings.TrimRight(l, " \t")})
		}
		return Block{Kind: KindVerse, Lines: lines}
	case StyleScreenplay:
		var lines []Line
		for _, l := range strings.Split(p, "\n") {
			l = strings.TrimSpace(l)
			if m := speakerLine.FindStringSubmatch(l); m != nil {
				lines = append(lines, Line{Speaker: strings.TrimSpace(m[1]), Text: m[2]})
				continue
			}
			lines = append(lines, Line{Text: l})
		}
		return Block{Kind: KindScript, Lines: lines}
	default:
		return Block{Kind: KindParagraph, Text: flow(p), Indent: true}
	}
}

// flow joins the lines of a paragraph the way a flowed layout would.
func flow(p string) string {
	return strings.Join(strings.Fields(p), " ")
}
