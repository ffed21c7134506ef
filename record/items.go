package record

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// List markers
// ---------------------------------------------------------------------------

// bulletMarkers are the unordered list markers extractors leave at the
// start of an item.
var bulletMarkers = []string{"•", "◦", "·", "–", "-", "*"}

// orderedMarker matches "1.", "2)", "a)" style enumerators.
var orderedMarker = regexp.MustCompile(`^(\d+[.)]|[\p{L}]\))\s+`)

// StripMarker removes one leading list marker from an item. Bullets that
// double as punctuation ("-", "*") are only stripped when followed by a
// space.
func StripMarker(s string) string {
	s = strings.TrimSpace(s)
	for _, m := range bulletMarkers {
		if !strings.HasPrefix(s, m) {
			continue
		}
		rest := s[len(m):]
		if m != "-" && m != "*" {
			return strings.TrimSpace(rest)
		}
		if r, _ := utf8.DecodeRuneInString(rest); rest == "" || unicode.IsSpace(r) {
			return strings.TrimSpace(rest)
		}
		return s
	}
	if loc := orderedMarker.FindStringIndex(s); loc != nil {
		return strings.TrimSpace(s[loc[1]:])
	}
	return s
}

// ---------------------------------------------------------------------------
// Figure numbering
// ---------------------------------------------------------------------------

// captionNumber matches "Figure 3", "Fig. 2.1", "Рис. 4", "Рисунок № 5".
var captionNumber = regexp.MustCompile(`(?i)^\s*(?:fig(?:ure)?|рис(?:унок)?)\.?\s*(?:№\s*)?(\d+(?:\.\d+)*)`)

// FigureNumber extracts the figure number from a caption, or returns "".
func FigureNumber(caption string) string {
	m := captionNumber.FindStringSubmatch(caption)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}
