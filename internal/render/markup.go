// Package render turns template markup into PDF documents.
//
// Template markup is line oriented. Each line is classified into one of five
// kinds (blank, bullet, image, placeholder, styled paragraph) by a pure
// function, and the renderer dispatches on the kind. Inline styling uses
// non-nested asterisk runs: ***bold italic***, **bold**, *italic*.
package render

import (
	"encoding/base64"
	"strings"
	"unicode/utf8"
)

// LineKind classifies one line of template markup
type LineKind int

// Markup line kinds, in classification order
const (
	// LineBlank renders as a line break
	LineBlank LineKind = iota
	// LineBullet is a "- " prefixed bullet item
	LineBullet
	// LineImage is an [img:ID] image embed
	LineImage
	// LinePlaceholder is a [ph:TITLE:BASE64] inline literal
	LinePlaceholder
	// LineStyled is a plain paragraph with inline styling
	LineStyled
)

// Line is one classified markup line. Content holds the bullet text, the
// image id, the placeholder tag body, or the full paragraph text depending
// on the kind.
type Line struct {
	Kind    LineKind
	Content string
}

// ClassifyLine trims a raw markup line and assigns its kind
func ClassifyLine(raw string) Line {
	line := strings.TrimSpace(raw)
	switch {
	case line == "":
		return Line{Kind: LineBlank}
	case strings.HasPrefix(line, "- "):
		return Line{Kind: LineBullet, Content: line[2:]}
	case strings.HasPrefix(line, "[img:") && strings.HasSuffix(line, "]"):
		return Line{Kind: LineImage, Content: line[5 : len(line)-1]}
	case strings.HasPrefix(line, "[ph:") && strings.HasSuffix(line, "]"):
		return Line{Kind: LinePlaceholder, Content: line[4 : len(line)-1]}
	default:
		return Line{Kind: LineStyled, Content: line}
	}
}

// TextStyle is the inline style of a text segment
type TextStyle int

// Inline text styles
const (
	StyleRegular TextStyle = iota
	StyleBold
	StyleItalic
	StyleBoldItalic
)

// TextSegment is a run of text with a single style
type TextSegment struct {
	Text  string
	Style TextStyle
}

func styleForRun(length int) TextStyle {
	switch length {
	case 3:
		return StyleBoldItalic
	case 2:
		return StyleBold
	default:
		return StyleItalic
	}
}

// ParseStyles splits a line into styled segments. Asterisk runs are checked
// longest-first (*** then ** then *); an opening run with no closing run of
// the same length is emitted as a literal asterisk run and scanning
// continues after it, without backtracking.
func ParseStyles(line string) []TextSegment {
	var segments []TextSegment

	i := 0
	for i < len(line) {
		if line[i] == '*' {
			run := i
			for run < len(line) && line[run] == '*' {
				run++
			}
			runLen := run - i
			marker := runLen
			if marker > 3 {
				marker = 3
			}

			delim := strings.Repeat("*", marker)
			if end := strings.Index(line[i+marker:], delim); end >= 0 {
				segments = append(segments, TextSegment{
					Text:  line[i+marker : i+marker+end],
					Style: styleForRun(marker),
				})
				i += marker + end + marker
			} else {
				segments = append(segments, TextSegment{Text: line[i:run], Style: StyleRegular})
				i = run
			}
			continue
		}

		next := strings.IndexByte(line[i:], '*')
		if next < 0 {
			segments = append(segments, TextSegment{Text: line[i:], Style: StyleRegular})
			break
		}
		segments = append(segments, TextSegment{Text: line[i : i+next], Style: StyleRegular})
		i += next
	}

	return segments
}

// DecodePlaceholder extracts the trailing base64 segment of a placeholder
// tag body ("TITLE:BASE64") and decodes it as UTF-8 text. The second return
// value is false when the segment is not valid base64-encoded UTF-8.
func DecodePlaceholder(tagBody string) (string, bool) {
	parts := strings.Split(tagBody, ":")
	encoded := parts[len(parts)-1]
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || !utf8.Valid(decoded) {
		return "", false
	}
	return string(decoded), true
}

// ParseTagged splits placeholder text containing <b> and <i> tags into
// styled segments. An unclosed tag renders the remainder as plain text.
func ParseTagged(text string) []TextSegment {
	var segments []TextSegment

	rest := text
	for {
		tag, start := nextTag(rest)
		if tag == "" {
			break
		}
		if start > 0 {
			segments = append(segments, TextSegment{Text: rest[:start], Style: StyleRegular})
		}

		open := "<" + tag + ">"
		closing := "</" + tag + ">"
		body := rest[start+len(open):]
		end := strings.Index(body, closing)
		if end < 0 {
			segments = append(segments, TextSegment{Text: rest[start:], Style: StyleRegular})
			return segments
		}

		style := StyleBold
		if tag == "i" {
			style = StyleItalic
		}
		segments = append(segments, TextSegment{Text: body[:end], Style: style})
		rest = body[end+len(closing):]
	}

	if rest != "" {
		segments = append(segments, TextSegment{Text: rest, Style: StyleRegular})
	}
	return segments
}

func nextTag(text string) (string, int) {
	bPos := strings.Index(text, "<b>")
	iPos := strings.Index(text, "<i>")
	switch {
	case bPos >= 0 && (iPos < 0 || bPos < iPos):
		return "b", bPos
	case iPos >= 0:
		return "i", iPos
	default:
		return "", -1
	}
}

// SubstitutePlaceholders replaces every {{title}} token with the row's value
// for that title. Tokens with no matching value are left untouched; values
// are inserted verbatim.
func SubstitutePlaceholders(text string, values map[string]string) string {
	for title, value := range values {
		text = strings.ReplaceAll(text, "{{"+title+"}}", value)
	}
	return text
}
