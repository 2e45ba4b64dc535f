package osis

import (
	"fmt"
	"strings"
	"unicode"
)

// Clean sanitizes one raw text fragment and returns the anomalies found.
//
// Whitespace runs that contain a line break are markup formatting and become
// a single space without an anomaly. Tab runs and doubled spaces are also
// collapsed to one space but reported, and control characters are removed
// and reported. Leading and trailing space is kept so fragments can be
// joined.
func Clean(text string) (string, []string) {
	var (
		sb        strings.Builder
		anomalies []string
		runes     = []rune(text)
		lastSpace bool
	)
	sb.Grow(len(text))

	for i := 0; i < len(runes); {
		r := runes[i]

		if isSpaceRune(r) {
			var newline, tab bool
			spaces := 0
			for ; i < len(runes) && isSpaceRune(runes[i]); i++ {
				switch runes[i] {
				case '\n', '\r':
					newline = true
				case '\t':
					tab = true
				default:
					spaces++
				}
			}
			switch {
			case newline:
			case tab:
				anomalies = append(anomalies, "tab replaced by space")
			case spaces > 1:
				anomalies = append(anomalies, "doubled space collapsed")
			}
			if !lastSpace {
				sb.WriteByte(' ')
				lastSpace = true
			}
			continue
		}

		if unicode.IsControl(r) {
			anomalies = append(anomalies, fmt.Sprintf("control character U+%04X removed", r))
		} else {
			sb.WriteRune(r)
			lastSpace = false
		}
		i++
	}

	return sb.String(), anomalies
}

func isSpaceRune(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
