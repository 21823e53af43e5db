// Package pages turns an uploaded payslip file into an ordered list of page
// texts. PDFs go through structured text extraction with an OCR fallback;
// plain text, DOCX and HTML exports are read directly.
package pages

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrInvalidMode       = errors.New("invalid extraction mode")
)

// Mode selects how PDF text is obtained.
type Mode string

const (
	ModeAuto Mode = "auto" // structured text, OCR when every page is blank
	ModeText Mode = "text"
	ModeOCR  Mode = "ocr"
)

// ParseMode validates a mode name. The empty string means auto.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeAuto, nil
	case ModeAuto, ModeText, ModeOCR:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// Method names how the pages of a Document were produced.
const (
	MethodPDFText   = "pdf-text"
	MethodPdftotext = "pdftotext"
	MethodOCR       = "ocr"
	MethodPlain     = "plain"
	MethodDOCX      = "docx"
	MethodHTML      = "html"
)

// Document is the page sequence extracted from one file.
type Document struct {
	Pages    []string `json:"-"`
	Method   string   `json:"method"`
	Warnings []string `json:"warnings,omitempty"`
}

// HasText reports whether any page holds non-whitespace text.
func (d Document) HasText() bool {
	return hasText(d.Pages)
}

func hasText(pages []string) bool {
	for _, p := range pages {
		if strings.TrimSpace(p) != "" {
			return true
		}
	}
	return false
}

// Config holds the external tool settings.
type Config struct {
	FallbackPdftotext bool
	PdftotextBin      string
	PdftoppmBin       string
	TesseractBin      string
	Lang              string
	DPI               int
	MaxPages          int // 0 = no limit
	OCRTimeout        time.Duration
}

// Extractor reads page texts from payslip files.
type Extractor struct {
	cfg    Config
	runner Runner
	log    *slog.Logger
}

// Option customizes an Extractor.
type Option func(*Extractor)

// WithRunner replaces the external command runner.
func WithRunner(r Runner) Option {
	return func(e *Extractor) { e.runner = r }
}

// WithLogger sets the logger used for fallbacks and warnings.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) { e.log = l }
}

// New returns an Extractor with defaults filled in for empty settings.
func New(cfg Config, opts ...Option) *Extractor {
	if cfg.PdftotextBin == "" {
		cfg.PdftotextBin = "pdftotext"
	}
	if cfg.PdftoppmBin == "" {
		cfg.PdftoppmBin = "pdftoppm"
	}
	if cfg.TesseractBin == "" {
		cfg.TesseractBin = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = "fra"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	e := &Extractor{cfg: cfg, runner: execRunner{}, log: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Format is a supported input file kind.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatText Format = "text"
	FormatDOCX Format = "docx"
	FormatHTML Format = "html"
)

var extFormats = map[string]Format{
	".pdf":  FormatPDF,
	".txt":  FormatText,
	".text": FormatText,
	".docx": FormatDOCX,
	".html": FormatHTML,
	".htm":  FormatHTML,
}

// DetectFormat picks the format from the filename extension, falling back
// to content sniffing for PDFs uploaded without a usable name.
func DetectFormat(filename string, data []byte) (Format, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if f, ok := extFormats[ext]; ok {
		return f, nil
	}
	if bytes.HasPrefix(data, []byte("%PDF-")) {
		return FormatPDF, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
}

// IsSupported reports whether filename has a known extension.
func IsSupported(filename string) bool {
	_, ok := extFormats[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// Extract returns the page texts of data. Structured extraction failures are
// not errors: they yield blank pages, and under ModeAuto trigger OCR. Errors
// are reserved for an unknown format or mode and for context cancellation.
func (e *Extractor) Extract(ctx context.Context, data []byte, filename string, mode Mode) (Document, error) {
	if mode == "" {
		mode = ModeAuto
	}
	if _, err := ParseMode(string(mode)); err != nil {
		return Document{}, err
	}
	format, err := DetectFormat(filename, data)
	if err != nil {
		return Document{}, err
	}

	var doc Document
	switch format {
	case FormatPDF:
		doc, err = e.pdf(ctx, data, mode)
	case FormatText:
		doc = textPages(data)
	case FormatDOCX:
		doc = e.docx(data)
	case FormatHTML:
		doc = e.html(data)
	}
	if err != nil {
		return Document{}, err
	}

	if limit := e.cfg.MaxPages; limit > 0 && len(doc.Pages) > limit {
		doc.Warnings = append(doc.Warnings, fmt.Sprintf("truncated to %d of %d pages", limit, len(doc.Pages)))
		doc.Pages = doc.Pages[:limit]
	}
	if !doc.HasText() {
		doc.Warnings = append(doc.Warnings, "no text extracted")
	}
	e.log.Debug("pages extracted",
		"file", filename,
		"format", format,
		"method", doc.Method,
		"pages", len(doc.Pages),
		"warnings", len(doc.Warnings),
	)
	return doc, nil
}

// Pages is Extract without the metadata.
func (e *Extractor) Pages(ctx context.Context, data []byte, filename string, mode Mode) ([]string, error) {
	doc, err := e.Extract(ctx, data, filename, mode)
	if err != nil {
		return nil, err
	}
	return doc.Pages, nil
}
