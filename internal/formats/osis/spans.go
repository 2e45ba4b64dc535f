package osis

import "strings"

type spanKind int

const (
	spanText spanKind = iota
	spanChar
	spanNote
)

// span is one node of an inline run. Char spans serialize as paired
// \m … \m* markers, note spans as \f c \fr anchor \ft body\f* (with the
// note kind's own markers).
type span struct {
	kind     spanKind
	text     string
	marker   string
	attrs    string
	note     *noteKind
	caller   string
	anchor   string
	children []*span
}

// spanBuilder accumulates one inline run as a tree. Open spans form a stack;
// the run is serialized once when it is appended to the open line.
type spanBuilder struct {
	root  *span
	stack []*span
}

func newSpanBuilder() *spanBuilder {
	root := &span{kind: spanChar}
	return &spanBuilder{root: root, stack: []*span{root}}
}

func (b *spanBuilder) top() *span {
	return b.stack[len(b.stack)-1]
}

func (b *spanBuilder) push(s *span) {
	top := b.top()
	top.children = append(top.children, s)
	b.stack = append(b.stack, s)
}

// text appends already cleaned text to the innermost open span.
func (b *spanBuilder) text(s string) {
	if s == "" {
		return
	}
	b.top().children = append(b.top().children, &span{kind: spanText, text: s})
}

// open starts a paired char span.
func (b *spanBuilder) open(marker string) {
	b.push(&span{kind: spanChar, marker: marker})
}

// openWord starts a \w span carrying word-level attributes.
func (b *spanBuilder) openWord(attrs string) {
	b.push(&span{kind: spanChar, marker: "w", attrs: attrs})
}

func (b *spanBuilder) openNote(k *noteKind, caller, anchor string) {
	b.push(&span{kind: spanNote, note: k, caller: caller, anchor: anchor})
}

// close ends the innermost open span.
func (b *spanBuilder) close() {
	if len(b.stack) > 1 {
		b.stack = b.stack[:len(b.stack)-1]
	}
}

// String serializes the run.
func (b *spanBuilder) String() string {
	return serializeSpans(b.root.children, false)
}

// suspend serializes everything accumulated so far, closing open spans, and
// restarts the run with the same chain of spans reopened and empty. It is
// used when a structural element interrupts an inline run.
func (b *spanBuilder) suspend() string {
	out := b.String()
	chain := b.stack[1:]
	root := &span{kind: spanChar}
	b.root = root
	b.stack = []*span{root}
	for _, s := range chain {
		b.push(&span{kind: s.kind, marker: s.marker, attrs: s.attrs, note: s.note, caller: s.caller, anchor: s.anchor})
	}
	return out
}

func serializeSpans(children []*span, nested bool) string {
	var out string
	for _, c := range children {
		out = joinSpaced(out, serializeSpan(c, nested))
	}
	return out
}

func serializeSpan(s *span, nested bool) string {
	switch s.kind {
	case spanText:
		return s.text
	case spanNote:
		return serializeNote(s)
	}

	inner := serializeSpans(s.children, true)
	core := strings.Trim(inner, " ")
	if core == "" {
		if inner != "" {
			return " "
		}
		return ""
	}

	marker := s.marker
	if nested && !noteTextMarkers[marker] {
		marker = "+" + marker
	}
	var sb strings.Builder
	if strings.HasPrefix(inner, " ") {
		sb.WriteByte(' ')
	}
	sb.WriteString(`\` + marker + " " + core)
	if s.attrs != "" {
		sb.WriteString("|" + s.attrs)
	}
	sb.WriteString(`\` + marker + "*")
	if strings.HasSuffix(inner, " ") {
		sb.WriteByte(' ')
	}
	return sb.String()
}

func serializeNote(s *span) string {
	k := s.note
	body := strings.Trim(serializeSpans(s.children, true), " ")
	var sb strings.Builder
	sb.WriteString(`\` + k.marker + " " + s.caller)
	sb.WriteString(` \` + k.origin + " " + s.anchor)
	sb.WriteString(` \` + k.body + " " + body)
	sb.WriteString(`\` + k.marker + "*")
	return sb.String()
}

// joinSpaced concatenates two fragments without doubling the space between
// them.
func joinSpaced(a, b string) string {
	if strings.HasSuffix(a, " ") && strings.HasPrefix(b, " ") {
		return a + b[1:]
	}
	return a + b
}

// noteTextMarkers are note-internal markers that never take the nested "+"
// prefix.
var noteTextMarkers = map[string]bool{
	"fq": true, "fqa": true, "fk": true, "fl": true, "xt": true, "xq": true,
}
