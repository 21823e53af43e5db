package pages

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/fumiama/go-docx"
)

// docx reads a Word export. Explicit page breaks split pages; table rows
// become one line with cells separated by spaces so labels and amounts stay
// on the same line.
func (e *Extractor) docx(data []byte) Document {
	d := Document{Method: MethodDOCX}

	doc, err := parseDOCX(data)
	if err != nil {
		e.log.Warn("docx parse failed", "error", err)
		d.Warnings = append(d.Warnings, "docx parse failed: "+err.Error())
		d.Pages = []string{""}
		return d
	}

	w := &pageWriter{}
	for _, item := range doc.Document.Body.Items {
		switch it := item.(type) {
		case *docx.Paragraph:
			docxParagraph(w, it)
			w.line()
		case *docx.Table:
			for _, row := range it.TableRows {
				var cells []string
				for _, cell := range row.TableCells {
					var parts []string
					for _, p := range cell.Paragraphs {
						if t := docxParagraphText(p); t != "" {
							parts = append(parts, t)
						}
					}
					if len(parts) > 0 {
						cells = append(cells, strings.Join(parts, " "))
					}
				}
				w.text(strings.Join(cells, " "))
				w.line()
			}
		}
	}
	d.Pages = w.done()
	return d
}

func parseDOCX(data []byte) (doc *docx.Docx, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("docx reader panic: %v", r)
		}
	}()
	return docx.Parse(bytes.NewReader(data), int64(len(data)))
}

// docxParagraph writes a paragraph's runs, honouring tabs, line breaks and
// page breaks.
func docxParagraph(w *pageWriter, para *docx.Paragraph) {
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			switch v := rc.(type) {
			case *docx.Text:
				w.text(v.Text)
			case *docx.Tab:
				w.text(" ")
			case *docx.BarterRabbet:
				if v.Type == "page" {
					w.page()
				} else {
					w.line()
				}
			}
		}
	}
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			switch v := rc.(type) {
			case *docx.Text:
				buf.WriteString(v.Text)
			case *docx.Tab:
				buf.WriteString(" ")
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

// pageWriter accumulates lines into pages. Breaks on a blank page are
// ignored, so leading or doubled breaks do not produce empty pages.
type pageWriter struct {
	pages []string
	cur   strings.Builder
}

func (w *pageWriter) text(s string) { w.cur.WriteString(s) }
func (w *pageWriter) line()         { w.cur.WriteString("\n") }

func (w *pageWriter) page() {
	if strings.TrimSpace(w.cur.String()) == "" {
		w.cur.Reset()
		return
	}
	w.pages = append(w.pages, w.cur.String())
	w.cur.Reset()
}

// done flushes the last page and always returns at least one page.
func (w *pageWriter) done() []string {
	w.page()
	if len(w.pages) == 0 {
		return []string{""}
	}
	return w.pages
}
