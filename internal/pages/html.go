package pages

import (
	"bytes"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// html reads an HTML payslip export. Block elements and table rows end a
// line, cells are separated by a space, and CSS page breaks
// (page-break-before/after, break-before/after: page) start a new page.
func (e *Extractor) html(data []byte) Document {
	d := Document{Method: MethodHTML}

	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		e.log.Warn("html parse failed", "error", err)
		d.Warnings = append(d.Warnings, "html parse failed: "+err.Error())
		d.Pages = []string{""}
		return d
	}

	w := &pageWriter{}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			w.text(squash(n.Data))
			return
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "head", "noscript", "template":
				return
			case "br":
				w.line()
				return
			case "td", "th":
				w.text(" ")
			}
			if breaksBefore(n) {
				w.page()
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if n.Type == html.ElementNode {
			if isBlock(n.Data) {
				w.line()
			}
			if breaksAfter(n) {
				w.page()
			}
		}
	}

	if body := findBody(doc); body != nil {
		walk(body)
	} else {
		walk(doc)
	}

	pages := w.done()
	for i, p := range pages {
		pages[i] = tidyLines(p)
	}
	d.Pages = pages
	return d
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "div", "tr", "li", "table", "section", "article",
		"h1", "h2", "h3", "h4", "h5", "h6", "pre", "blockquote", "hr":
		return true
	}
	return false
}

func styleOf(n *html.Node) string {
	for _, a := range n.Attr {
		if a.Key == "style" {
			return strings.ToLower(strings.ReplaceAll(a.Val, " ", ""))
		}
	}
	return ""
}

func breaksBefore(n *html.Node) bool {
	s := styleOf(n)
	return strings.Contains(s, "page-break-before:always") || strings.Contains(s, "break-before:page")
}

func breaksAfter(n *html.Node) bool {
	s := styleOf(n)
	return strings.Contains(s, "page-break-after:always") || strings.Contains(s, "break-after:page")
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// squash collapses whitespace runs but keeps a single space at either edge
// so adjacent inline elements do not fuse.
func squash(s string) string {
	if s == "" {
		return ""
	}
	out := collapseSpace(s)
	if out == "" {
		return " "
	}
	if r, _ := utf8.DecodeRuneInString(s); unicode.IsSpace(r) {
		out = " " + out
	}
	if r, _ := utf8.DecodeLastRuneInString(s); unicode.IsSpace(r) {
		out += " "
	}
	return out
}

// tidyLines trims each line and drops blank ones; the walk emits a space per
// cell and a newline per nested block.
func tidyLines(page string) string {
	var out []string
	for _, line := range strings.Split(page, "\n") {
		if line = collapseSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
