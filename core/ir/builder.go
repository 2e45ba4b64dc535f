package ir

import "strings"

// Builder accumulates the canonical lines of one book in source order.
// It is not safe for concurrent use.
type Builder struct {
	code  string
	lines []Line
}

// NewBuilder returns an empty builder for the given book code. The code may
// be empty when it is not yet known.
func NewBuilder(code string) *Builder {
	return &Builder{code: code}
}

// Code returns the book code being accumulated.
func (b *Builder) Code() string {
	return b.code
}

// SetCode assigns the book code, typically once the first chapter reveals it.
func (b *Builder) SetCode(code string) {
	b.code = code
}

// Len returns the number of lines accumulated so far.
func (b *Builder) Len() int {
	return len(b.lines)
}

// Last returns the most recent line.
func (b *Builder) Last() (Line, bool) {
	if len(b.lines) == 0 {
		return Line{}, false
	}
	return b.lines[len(b.lines)-1], true
}

// AddLine starts a new record.
func (b *Builder) AddLine(marker, text string) {
	b.lines = append(b.lines, Line{Marker: marker, Text: text})
}

// AppendToLastLine extends the most recent record with text. When there is no
// record yet an empty paragraph line is synthesized to carry the text, and
// synthesized is reported as true so the caller can record it.
func (b *Builder) AppendToLastLine(text string) (synthesized bool) {
	if len(b.lines) == 0 {
		b.lines = append(b.lines, Line{Marker: MarkerParagraph})
		synthesized = true
	}
	b.lines[len(b.lines)-1].Text += text
	return synthesized
}

// PopTrailing removes the run of trailing lines whose marker is one of
// markers and returns them in their original order.
func (b *Builder) PopTrailing(markers ...string) []Line {
	i := len(b.lines)
	for i > 0 && hasMarker(b.lines[i-1].Marker, markers) {
		i--
	}
	if i == len(b.lines) {
		return nil
	}
	popped := make([]Line, len(b.lines)-i)
	copy(popped, b.lines[i:])
	b.lines = b.lines[:i]
	return popped
}

// Finalize detaches the accumulated lines as a Book, trimming trailing
// whitespace from each line, and resets the builder for the next book.
func (b *Builder) Finalize() *Book {
	book := &Book{Code: b.code, Lines: b.lines}
	for i := range book.Lines {
		book.Lines[i].Text = strings.TrimRight(book.Lines[i].Text, " \t\r\n")
	}
	b.code = ""
	b.lines = nil
	return book
}

func hasMarker(marker string, markers []string) bool {
	for _, m := range markers {
		if m == marker {
			return true
		}
	}
	return false
}
