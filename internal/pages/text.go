package pages

import (
	"strings"
	"unicode/utf8"
)

// textPages reads a plain-text export: one page per form feed, as written by
// pdftotext and most payroll exports.
func textPages(data []byte) Document {
	s := string(data)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "\uFFFD")
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return Document{Pages: splitFormFeeds(s), Method: MethodPlain}
}
