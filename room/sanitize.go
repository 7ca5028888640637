/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package room

import (
	"io"
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

// Elements whose contents are discarded along with the tags themselves.
var droppedContent = map[string]bool{
	"head":      true,
	"iframe":    true,
	"math":      true,
	"noembed":   true,
	"noframes":  true,
	"noscript":  true,
	"object":    true,
	"plaintext": true,
	"script":    true,
	"style":     true,
	"svg":       true,
	"template":  true,
	"title":     true,
	"xmp":       true,
}

// The tokenizer switches to raw text after these even when written as
// self-closing, so their contents still have to be skipped.
var rawText = map[string]bool{
	"iframe":    true,
	"noembed":   true,
	"noframes":  true,
	"noscript":  true,
	"plaintext": true,
	"script":    true,
	"style":     true,
	"title":     true,
	"xmp":       true,
}

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// Sanitize reduces user input to plain text that is safe to render. All markup
// is removed, the contents of script-like elements are dropped, unsafe runes are
// stripped, and the remaining text is escaped and trimmed.
//
// Sanitize(Sanitize(s)) == Sanitize(s) for every s.
func Sanitize(input string) string {
	s := strings.ReplaceAll(input, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	var text strings.Builder

	z := html.NewTokenizer(strings.NewReader(strings.TrimSpace(s)))
	skip := 0

tokens:
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if z.Err() != io.EOF {
				// html.Tokenizer only fails on the underlying reader, which
				// cannot fail for a strings.Reader.
				return ""
			}
			break tokens
		case html.TextToken:
			if skip == 0 {
				text.Write(z.Text())
			}
		case html.StartTagToken:
			name, _ := z.TagName()
			if droppedContent[string(name)] {
				skip++
			}
		case html.SelfClosingTagToken:
			name, _ := z.TagName()
			if rawText[string(name)] {
				skip++
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if skip > 0 && droppedContent[string(name)] {
				skip--
			}
		}
	}

	cleaned := strings.Map(safeRune, text.String())

	return strings.TrimSpace(textEscaper.Replace(cleaned))
}

func safeRune(r rune) rune {
	switch {
	case unicode.IsControl(r) && r != '\n' && r != '\t':
		return -1
	case unicode.Is(unicode.Cf, r), unicode.Is(unicode.Cs, r), unicode.Is(unicode.Co, r):
		return -1
	case r >= 0xFDD0 && r <= 0xFDEF:
		return -1
	case r&0xFFFE == 0xFFFE:
		return -1
	}
	return r
}
