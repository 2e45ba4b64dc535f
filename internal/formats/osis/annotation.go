package osis

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/FocuswithJustin/osisingest/core/xml"
)

// noteKind is the rendering of one family of notes: the paired note marker
// plus the markers introducing the origin anchor and the note body.
type noteKind struct {
	name   string
	marker string
	origin string
	body   string
}

var (
	footnote       = &noteKind{name: "footnote", marker: "f", origin: "fr", body: "ft"}
	crossReference = &noteKind{name: "crossReference", marker: "x", origin: "xo", body: "xt"}
)

var noteKinds = map[string]*noteKind{
	"crossReference":  crossReference,
	"footnote":        footnote,
	"study":           {name: "study", marker: "ef", origin: "fr", body: "ft"},
	"translation":     {name: "translation", marker: "f", origin: "fr", body: "ft"},
	"variant":         {name: "variant", marker: "fv", origin: "fr", body: "ft"},
	"alternative":     {name: "alternative", marker: "fa", origin: "fr", body: "ft"},
	"exegesis":        {name: "exegesis", marker: "fe", origin: "fr", body: "ft"},
	"x-index":         {name: "index", marker: "ix", origin: "fr", body: "ft"},
	"x-strongsMarkup": {name: "morphology", marker: "fm", origin: "fr", body: "ft"},
	"x-morph":         {name: "morphology", marker: "fm", origin: "fr", body: "ft"},
}

// classifyNote picks the rendering for a note element. An untyped note is a
// footnote when it is bare or numbered, otherwise a cross-reference.
func (cv *converter) classifyNote(el *xml.Element, cur cursor) *noteKind {
	typ, ok := el.LookupAttr("type")
	if !ok {
		if _, hasN := el.LookupAttr("n"); hasN || len(el.Attrs) == 0 {
			return footnote
		}
		return crossReference
	}
	if k, ok := noteKinds[typ]; ok {
		return k
	}
	cv.report(cur, KindUnknownAnnotationSubtype, "unknown note type %q rendered as footnote", typ)
	return footnote
}

var leadingAnchor = regexp.MustCompile(`^(\d+[:.]\d+[a-z]?(?:[-–—]\d+[a-z]?)?)[:.]?(?:\s+|$)`)

func renderNote(cv *converter, sb *spanBuilder, el *xml.Element, cur cursor) cursor {
	if cur.note != nil {
		cv.report(cur, KindUnknownElement, "note nested inside %s note flattened", cur.note.name)
		return cv.renderPlain(sb, el, cur)
	}

	kind := cv.classifyNote(el, cur)
	caller := el.Attr("n")
	if caller == "" {
		cv.report(cur, KindUnknownAttribute, "%s note has no n attribute", kind.name)
		caller = "-"
	}

	var source *xml.Element
	for _, c := range el.Children {
		if c.Tag == "reference" && c.Attr("type") == "source" {
			source = c
			break
		}
	}

	text := cv.clean(cur, el.Text)
	var anchor string
	if source != nil {
		anchor = strings.TrimSpace(plainText(source))
	}
	if anchor == "" {
		trimmed := strings.TrimLeft(text, " ")
		if m := leadingAnchor.FindStringSubmatch(trimmed); m != nil {
			anchor = m[1]
			text = trimmed[len(m[0]):]
		}
	}
	if anchor == "" {
		anchor = cv.verseAnchor(cur)
	}

	inner := cur
	inner.note = kind
	sb.openNote(kind, caller, anchor)
	sb.text(text)
	cv.renderElements(sb, el.Children, source, inner)
	sb.close()
	return cur
}

// verseAnchor synthesizes a chapter:verse anchor from the open verse.
func (cv *converter) verseAnchor(cur cursor) string {
	if cur.verse != nil {
		if id := cur.verse.id; id != nil {
			return fmt.Sprintf("%d:%s", id.Chapter(), id.Number())
		}
		if cur.chapter != nil && cur.chapter.ref != nil {
			return fmt.Sprintf("%d:%s", cur.chapter.ref.Chapter, lastComponent(cur.verse.raw))
		}
	}
	cv.report(cur, KindUnknownAttribute, "note anchor could not be inferred")
	return "-"
}

var hiMarkers = map[string]string{
	"italic":     "it",
	"bold":       "bd",
	"small-caps": "sc",
	"underline":  "ul",
	"super":      "sup",
	"sub":        "sub",
	"emphasis":   "em",
	"normal":     "no",
}

func renderHi(cv *converter, sb *spanBuilder, el *xml.Element, cur cursor) cursor {
	typ := el.Attr("type")
	marker, ok := hiMarkers[typ]
	if !ok {
		cv.report(cur, KindUnknownAnnotationSubtype, "unknown hi type %q rendered as italic", typ)
		marker = "it"
	}
	return cv.renderSpan(sb, marker, el, cur)
}

// spanOf returns an inline handler rendering el as one paired span.
func spanOf(marker string) inlineHandler {
	return func(cv *converter, sb *spanBuilder, el *xml.Element, cur cursor) cursor {
		return cv.renderSpan(sb, marker, el, cur)
	}
}

func renderTransparent(cv *converter, sb *spanBuilder, el *xml.Element, cur cursor) cursor {
	return cv.renderPlain(sb, el, cur)
}

func renderQuote(cv *converter, sb *spanBuilder, el *xml.Element, cur cursor) cursor {
	if !el.HasChildren() && el.Text == "" {
		_, s := el.LookupAttr("sID")
		_, e := el.LookupAttr("eID")
		if s || e {
			sb.text(el.Attr("marker"))
			return cur
		}
	}
	if el.Attr("who") == "Jesus" {
		return cv.renderSpan(sb, "wj", el, cur)
	}
	return cv.renderSpan(sb, "qt", el, cur)
}

func renderWord(cv *converter, sb *spanBuilder, el *xml.Element, cur cursor) cursor {
	var attrs []string
	for _, name := range []string{"lemma", "morph"} {
		if v, ok := el.LookupAttr(name); ok && v != "" {
			attrs = append(attrs, fmt.Sprintf("%s=%q", name, v))
		}
	}
	sb.openWord(strings.Join(attrs, " "))
	sb.text(cv.clean(cur, el.Text))
	cur = cv.renderChildren(sb, el, cur)
	sb.close()
	return cur
}

func renderReference(cv *converter, sb *spanBuilder, el *xml.Element, cur cursor) cursor {
	var marker string
	switch {
	case cur.note == crossReference:
	case cur.note != nil:
		marker = "xt"
	case el.Attr("type") == "x-bookName":
		marker = "bk"
	default:
		marker = "rq"
	}

	if el.IsEmpty() {
		ref := el.Attr("osisRef")
		if ref == "" {
			cv.report(cur, KindUnknownAttribute, "empty reference without osisRef")
			return cur
		}
		el = &xml.Element{Tag: el.Tag, Attrs: el.Attrs, Text: ref}
	}
	if marker == "" {
		return cv.renderPlain(sb, el, cur)
	}
	return cv.renderSpan(sb, marker, el, cur)
}

func renderCatchWord(cv *converter, sb *spanBuilder, el *xml.Element, cur cursor) cursor {
	if cur.note != nil {
		return cv.renderSpan(sb, "fq", el, cur)
	}
	return cv.renderPlain(sb, el, cur)
}

// renderMilestone handles the milestone element, which is mostly inline:
// quotation marks, page breaks, and occasionally a paragraph break.
func renderMilestone(cv *converter, sb *spanBuilder, el *xml.Element, cur cursor) cursor {
	switch typ := el.Attr("type"); typ {
	case "x-p", "x-paragraph":
		if cur.note != nil {
			return cur
		}
		cur = cv.appendInline(cur, sb.suspend())
		return cv.addBlock(cur, paragraphMarker(cur))
	case "cQuote":
		sb.text(el.Attr("marker"))
	case "pb", "x-pb", "column", "header", "footer", "line", "halfLine", "screen":
	case "":
		cv.report(cur, KindUnknownAttribute, "milestone without type")
	default:
		if !strings.HasPrefix(typ, "x-") {
			cv.report(cur, KindUnknownAttribute, "unknown milestone type %q", typ)
		}
	}
	return cur
}

func skipInline(cv *converter, sb *spanBuilder, el *xml.Element, cur cursor) cursor {
	return cur
}

// renderSpan renders el's content inside one paired span.
func (cv *converter) renderSpan(sb *spanBuilder, marker string, el *xml.Element, cur cursor) cursor {
	sb.open(marker)
	cur = cv.renderPlain(sb, el, cur)
	sb.close()
	return cur
}

// renderPlain renders el's content without markers of its own.
func (cv *converter) renderPlain(sb *spanBuilder, el *xml.Element, cur cursor) cursor {
	sb.text(cv.clean(cur, el.Text))
	return cv.renderChildren(sb, el, cur)
}

// plainText concatenates all character data below el.
func plainText(el *xml.Element) string {
	var sb strings.Builder
	var visit func(*xml.Element)
	visit = func(e *xml.Element) {
		sb.WriteString(e.Text)
		for _, c := range e.Children {
			visit(c)
			sb.WriteString(c.Tail)
		}
	}
	visit(el)
	return sb.String()
}
