package ir

// Common markers used by converters.
const (
	MarkerChapter   = "c"
	MarkerVerse     = "v"
	MarkerParagraph = "p"
	MarkerMargin    = "m"
)

// Line is one canonical (marker, text) record.
type Line struct {
	// Marker is the structural tag, e.g. "c", "v", "p", "q1", "s1".
	Marker string `json:"marker"`

	// Text is the line content with any inline annotations already
	// flattened into paired escapes.
	Text string `json:"text"`
}

// Book is the finalized, ordered sequence of lines for one book code.
type Book struct {
	// Code is the OSIS book code (e.g., "Gen", "1Kgs").
	Code string `json:"code"`

	// Lines are in source document order.
	Lines []Line `json:"lines"`
}

// Count returns the number of lines carrying the given marker.
func (b *Book) Count(marker string) int {
	n := 0
	for _, l := range b.Lines {
		if l.Marker == marker {
			n++
		}
	}
	return n
}

// Equal reports whether two books have the same code and identical lines.
func (b *Book) Equal(other *Book) bool {
	if b == nil || other == nil {
		return b == other
	}
	if b.Code != other.Code || len(b.Lines) != len(other.Lines) {
		return false
	}
	for i := range b.Lines {
		if b.Lines[i] != other.Lines[i] {
			return false
		}
	}
	return true
}
