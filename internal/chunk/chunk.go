// Package chunk splits long completion text into segments that fit under the
// platform's per-message size limit, preferring cuts at sentence boundaries
// over newlines, newlines over spaces, and spaces over hard breaks.
package chunk

import (
	"strings"
	"unicode"
)

// Split breaks text into ordered segments of at most maxLen runes each.
// Text that already fits is returned as a single verbatim segment. Boundary
// candidates below half the window are rejected so a segment is never cut
// absurdly short; concatenating the segments reproduces the input up to
// boundary whitespace. maxLen must be positive.
func Split(text string, maxLen int) []string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return []string{text}
	}

	var segments []string
	rem := runes
	for len(rem) > 0 {
		if len(rem) <= maxLen {
			if seg := strings.TrimSpace(string(rem)); seg != "" {
				segments = append(segments, seg)
			}
			break
		}

		window := rem[:maxLen]
		cut, consumed := breakPoint(window, maxLen)
		if seg := strings.TrimSpace(string(window[:cut])); seg != "" {
			segments = append(segments, seg)
		}
		rem = trimLeadingSpace(rem[consumed:])
	}
	return segments
}

// breakPoint picks where to cut a full window. It returns the segment end and
// the number of runes consumed from the window (the consumed count swallows a
// newline or space boundary that the segment itself excludes).
func breakPoint(window []rune, maxLen int) (cut, consumed int) {
	threshold := maxLen / 2

	// Sentence terminator followed by whitespace, or sitting at the very end
	// of the window. The terminator stays in the segment.
	for i := len(window) - 1; i >= threshold; i-- {
		if !isTerminator(window[i]) {
			continue
		}
		if i == len(window)-1 || unicode.IsSpace(window[i+1]) {
			return i + 1, i + 1
		}
	}

	for i := len(window) - 1; i >= threshold; i-- {
		if window[i] == '\n' {
			return i, i + 1
		}
	}

	for i := len(window) - 1; i >= threshold; i-- {
		if window[i] == ' ' {
			return i, i + 1
		}
	}

	return maxLen, maxLen
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func trimLeadingSpace(rs []rune) []rune {
	i := 0
	for i < len(rs) && unicode.IsSpace(rs[i]) {
		i++
	}
	return rs[i:]
}
