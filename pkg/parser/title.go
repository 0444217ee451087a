package parser

import (
	"strings"
	"unicode"
)

const (
	// maxTitleLen bounds the cleaned title, excluding the ellipsis marker
	maxTitleLen = 100

	// boundaryFloor is how far into the title a word boundary must sit to be
	// preferred over a hard cut (70% of maxTitleLen)
	boundaryFloor = maxTitleLen * 7 / 10

	titleEllipsis = "..."
)

// leadingNoise is the set of characters stripped from the front of a title:
// dashes, colons and common punctuation left over from list formats like
// "- buy milk" or "todo: buy milk".
const leadingNoise = "-–—:;.,!?*•/ \t\r\n"

// ExtractCleanTitle derives a short human-readable title from raw message
// text: trims, strips a leading punctuation run, capitalizes the first rune
// and truncates long input at a word boundary with an ellipsis marker.
// Empty or whitespace-only input yields an empty title, which callers must
// treat as "no task".
func ExtractCleanTitle(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimLeft(s, leadingNoise)
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])

	if len(runes) <= maxTitleLen {
		return string(runes)
	}

	cut := runes[:maxTitleLen]
	boundary := -1
	for i := len(cut) - 1; i >= 0; i-- {
		if unicode.IsSpace(cut[i]) {
			boundary = i
			break
		}
	}
	if boundary >= boundaryFloor {
		cut = cut[:boundary]
	}

	return strings.TrimRight(string(cut), " \t") + titleEllipsis
}
