package pages

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	pdflib "github.com/ledongthuc/pdf"
)

func (e *Extractor) pdf(ctx context.Context, data []byte, mode Mode) (Document, error) {
	var doc Document

	if mode != ModeOCR {
		pages, err := readPDFText(data)
		doc.Method = MethodPDFText
		if err != nil {
			e.log.Warn("pdf text extraction failed", "error", err)
			doc.Warnings = append(doc.Warnings, "pdf text extraction failed: "+err.Error())
			pages = nil
		}

		if !hasText(pages) && e.cfg.FallbackPdftotext {
			alt, err := e.pdftotext(ctx, data)
			switch {
			case err != nil:
				e.log.Warn("pdftotext fallback failed", "error", err)
				doc.Warnings = append(doc.Warnings, "pdftotext failed: "+err.Error())
			case hasText(alt):
				pages = alt
				doc.Method = MethodPdftotext
			}
		}
		doc.Pages = pages

		if mode == ModeText || hasText(pages) {
			return doc, nil
		}
		e.log.Info("no text layer, falling back to ocr", "pages", len(pages))
	}

	if err := ctx.Err(); err != nil {
		return Document{}, err
	}

	ocrCtx := ctx
	if e.cfg.OCRTimeout > 0 {
		var cancel context.CancelFunc
		ocrCtx, cancel = context.WithTimeout(ctx, e.cfg.OCRTimeout)
		defer cancel()
	}

	pages, warns, err := e.ocr(ocrCtx, data)
	doc.Warnings = append(doc.Warnings, warns...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Document{}, ctxErr
		}
		e.log.Warn("ocr failed", "error", err)
		doc.Warnings = append(doc.Warnings, "ocr failed: "+err.Error())
		return doc, nil
	}
	doc.Pages = pages
	doc.Method = MethodOCR
	return doc, nil
}

// readPDFText extracts the text layer page by page. Pages the reader cannot
// decode come back blank so page numbering is preserved.
func readPDFText(data []byte) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	n := reader.NumPage()
	pages = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, pageText(page))
	}
	return pages, nil
}

// pageText rebuilds the page line by line so that a label and its amount,
// drawn on the same baseline, end up on the same line. Plain text is the
// fallback when the content stream cannot be grouped into rows.
func pageText(page pdflib.Page) string {
	if rows, err := page.GetTextByRow(); err == nil {
		if text := rowsText(rows); strings.TrimSpace(text) != "" {
			return text
		}
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return text
}

// rowsText joins rows top to bottom (PDF y grows upwards) and the fragments
// of each row left to right. A space is inserted where fragments do not touch.
func rowsText(rows pdflib.Rows) string {
	sorted := make([]*pdflib.Row, 0, len(rows))
	for _, r := range rows {
		if r != nil && len(r.Content) > 0 {
			sorted = append(sorted, r)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Position > sorted[j].Position })

	var b strings.Builder
	for _, r := range sorted {
		frags := append([]pdflib.Text(nil), r.Content...)
		sort.SliceStable(frags, func(i, j int) bool { return frags[i].X < frags[j].X })

		var line strings.Builder
		for i, t := range frags {
			if i > 0 {
				prev := frags[i-1]
				width := prev.W
				if width <= 0 {
					width = 0.5 * prev.FontSize * float64(utf8.RuneCountInString(prev.S))
				}
				if t.X-(prev.X+width) > prev.FontSize*0.2 {
					line.WriteByte(' ')
				}
			}
			line.WriteString(t.S)
		}
		if text := strings.TrimSpace(line.String()); text != "" {
			b.WriteString(text)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (e *Extractor) pdftotext(ctx context.Context, data []byte) ([]string, error) {
	path, cleanup, err := writeTemp(data, "payrecon-*.pdf")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	out, _, err := e.runner.Run(ctx, e.cfg.PdftotextBin, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w", err)
	}
	return splitFormFeeds(string(out)), nil
}

// ocr rasterizes every page with pdftoppm and runs tesseract on each image.
// A page tesseract fails on is kept blank and reported as a warning.
func (e *Extractor) ocr(ctx context.Context, data []byte) ([]string, []string, error) {
	path, cleanup, err := writeTemp(data, "payrecon-ocr-*.pdf")
	if err != nil {
		return nil, nil, err
	}
	defer cleanup()

	dir, err := os.MkdirTemp("", "payrecon-ppm-*")
	if err != nil {
		return nil, nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	prefix := filepath.Join(dir, "page")
	args := []string{"-r", strconv.Itoa(e.cfg.DPI), "-png"}
	if e.cfg.MaxPages > 0 {
		args = append(args, "-l", strconv.Itoa(e.cfg.MaxPages))
	}
	args = append(args, path, prefix)
	if _, errb, err := e.runner.Run(ctx, e.cfg.PdftoppmBin, args...); err != nil {
		return nil, nil, fmt.Errorf("pdftoppm: %w: %s", err, truncate(strings.TrimSpace(string(errb)), 512))
	}

	images, _ := filepath.Glob(prefix + "-*.png")
	if len(images) == 0 {
		return nil, nil, errors.New("pdftoppm produced no images")
	}
	// pdftoppm zero-pads page numbers to a common width.
	sort.Strings(images)

	var warns []string
	pages := make([]string, 0, len(images))
	for i, img := range images {
		out, _, err := e.runner.Run(ctx, e.cfg.TesseractBin, img, "stdout", "-l", e.cfg.Lang)
		if err != nil {
			if ctx.Err() != nil {
				return nil, warns, ctx.Err()
			}
			warns = append(warns, fmt.Sprintf("tesseract page %d: %v", i+1, err))
			pages = append(pages, "")
			continue
		}
		pages = append(pages, string(out))
	}
	return pages, warns, nil
}

func writeTemp(data []byte, pattern string) (string, func(), error) {
	tmp, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}
	path := tmp.Name()
	cleanup := func() { os.Remove(path) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return "", nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("close temp file: %w", err)
	}
	return path, cleanup, nil
}

// splitFormFeeds splits text on form feeds, dropping the empty tail that
// follows a final page break.
func splitFormFeeds(text string) []string {
	pages := strings.Split(text, "\f")
	if n := len(pages); n > 1 && strings.TrimSpace(pages[n-1]) == "" {
		pages = pages[:n-1]
	}
	return pages
}
