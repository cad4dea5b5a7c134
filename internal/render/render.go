// Package render flows plain text into a PDF or a single-chapter EPUB.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"bookbuddy/internal/model"
)

var (
	ErrEmptyContent  = errors.New("content is empty")
	ErrUnknownStyle  = errors.New("unknown style")
	ErrUnknownFormat = errors.New("unknown format")
	ErrBadMetadata   = errors.New("invalid metadata")
)

// RenderError reports a failed render. The input is left untouched so the
// caller can retry.
type RenderError struct {
	Op  string
	Err error
}

func (e *RenderError) Error() string { return "render " + e.Op + ": " + e.Err.Error() }

func (e *RenderError) Unwrap() error { return e.Err }

// Format is an output container.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatEPUB Format = "epub"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatPDF, nil
	case FormatPDF, FormatEPUB:
		return f, nil
	default:
		return "", &RenderError{Op: "format", Err: ErrUnknownFormat}
	}
}

func (f Format) ContentType() string {
	if f == FormatEPUB {
		return "application/epub+zip"
	}
	return "application/pdf"
}

func (f Format) Extension() string { return "." + string(f) }

const (
	DefaultFontSize = 12
	MinFontSize     = 8
	MaxFontSize     = 32
)

// Renderer holds layout options shared by both formats.
type Renderer struct {
	FontSize int
}

func NewRenderer(fontSize int) *Renderer {
	if fontSize < MinFontSize || fontSize > MaxFontSize {
		fontSize = DefaultFontSize
	}
	return &Renderer{FontSize: fontSize}
}

// Render uses the default font size.
func Render(content string, meta model.BookMetadata, style Style, format Format) ([]byte, error) {
	return NewRenderer(DefaultFontSize).Render(content, meta, style, format)
}

func (r *Renderer) Render(content string, meta model.BookMetadata, style Style, format Format) ([]byte, error) {
	if strings.TrimSpace(content) == "" {
		return nil, &RenderError{Op: "layout", Err: ErrEmptyContent}
	}
	if _, err := ParseStyle(string(style)); err != nil {
		return nil, err
	}
	if err := checkMetadata(meta); err != nil {
		return nil, err
	}
	blocks := Layout(content, meta, style)

	var buf bytes.Buffer
	switch format {
	case FormatPDF:
		if err := writePDF(&buf, blocks, meta, float64(r.FontSize)); err != nil {
			return nil, &RenderError{Op: "pdf", Err: err}
		}
	case FormatEPUB:
		if err := writeEPUB(&buf, blocks, meta); err != nil {
			return nil, &RenderError{Op: "epub", Err: err}
		}
	default:
		return nil, &RenderError{Op: "format", Err: ErrUnknownFormat}
	}
	return buf.Bytes(), nil
}

func checkMetadata(meta model.BookMetadata) error {
	for name, v := range map[string]string{"title": meta.Title, "author": meta.Author} {
		if strings.ContainsAny(v, "\x00\n\r") {
			return &RenderError{Op: "metadata", Err: fmt.Errorf("%w: %s contains control characters", ErrBadMetadata, name)}
		}
	}
	return nil
}
