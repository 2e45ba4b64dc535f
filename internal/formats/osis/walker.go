package osis

import (
	"strconv"
	"strings"

	"github.com/FocuswithJustin/osisingest/core/ir"
	"github.com/FocuswithJustin/osisingest/core/xml"
)

type (
	blockHandler  func(cv *converter, el *xml.Element, cur cursor) cursor
	inlineHandler func(cv *converter, sb *spanBuilder, el *xml.Element, cur cursor) cursor
)

// tagHandler describes how one OSIS tag is processed. Exactly one of block
// and inline is set.
type tagHandler struct {
	block  blockHandler
	inline inlineHandler

	// attrs are the attributes accepted besides commonAttrs.
	attrs []string

	// tail is the marker of the line opened by non-blank text following a
	// block element. Empty means the text continues the open line.
	tail string
}

// commonAttrs are accepted on every element.
var commonAttrs = []string{"canonical", "resp", "subType", "annotateRef", "annotateType", "ID", "n"}

var tags map[string]tagHandler

func init() {
	milestoneAttrs := []string{"osisID", "sID", "eID"}
	tags = map[string]tagHandler{
		"header":      {block: handleHeader},
		"titlePage":   {block: handleTransparent},
		"div":         {block: handleDiv, attrs: []string{"type", "osisID", "osisRef", "sID", "eID", "scope"}},
		"chapter":     {block: handleChapter, attrs: append([]string{"chapterTitle", "osisRef"}, milestoneAttrs...)},
		"verse":       {block: handleVerse, attrs: append([]string{"osisRef"}, milestoneAttrs...)},
		"p":           {block: handleParagraph, attrs: append([]string{"type"}, milestoneAttrs...), tail: ir.MarkerParagraph},
		"lg":          {block: handleLineGroup, attrs: append([]string{"type"}, milestoneAttrs...), tail: ir.MarkerMargin},
		"l":           {block: handlePoetryLine, attrs: append([]string{"type", "level", "marker"}, milestoneAttrs...)},
		"lb":          {block: handleLineBreak, attrs: []string{"type"}},
		"list":        {block: handleList, attrs: []string{"type"}, tail: ir.MarkerParagraph},
		"item":        {block: handleItem, attrs: []string{"type"}},
		"title":       {block: handleTitle, attrs: []string{"type", "level", "short", "placement", "osisID"}, tail: ir.MarkerParagraph},
		"closer":      {block: handleCloser, tail: ir.MarkerParagraph},
		"figure":      {block: handleSkip, attrs: []string{"src", "size", "alt", "catalog", "location", "rights"}},
		"note":        {inline: renderNote, attrs: []string{"type", "osisRef", "osisID", "placement"}},
		"hi":          {inline: renderHi, attrs: []string{"type", "rend"}},
		"divineName":  {inline: spanOf("nd"), attrs: []string{"type"}},
		"name":        {inline: spanOf("pn"), attrs: []string{"type", "regular", "key"}},
		"seg":         {inline: spanOf("sg"), attrs: []string{"type"}},
		"rdg":         {inline: spanOf("rdg"), attrs: []string{"type", "wit"}},
		"transChange": {inline: spanOf("add"), attrs: []string{"type"}},
		"q":           {inline: renderQuote, attrs: append([]string{"who", "marker", "level", "type"}, milestoneAttrs...)},
		"foreign":     {inline: spanOf("tl"), attrs: []string{"type"}},
		"inscription": {inline: spanOf("sc")},
		"abbr":        {inline: spanOf("abbr"), attrs: []string{"expansion"}},
		"signed":      {inline: spanOf("sig")},
		"catchWord":   {inline: renderCatchWord},
		"reference":   {inline: renderReference, attrs: []string{"type", "osisRef", "osisID"}},
		"w":           {inline: renderWord, attrs: []string{"lemma", "morph", "POS", "xlit", "gloss", "src", "savlm", "wn", "type"}},
		"milestone":   {inline: renderMilestone, attrs: []string{"type", "marker", "sID", "eID", "osisID"}},
		"a":           {inline: renderTransparent, attrs: []string{"href"}},
		"label":       {inline: renderTransparent, attrs: []string{"type"}},
		"mentioned":   {inline: renderTransparent},
		"rdgGroup":    {inline: renderTransparent},
		"index":       {inline: skipInline, attrs: []string{"index", "level1", "level2", "level3", "level4", "see"}},
	}
}

// walk dispatches one element and emits its tail text.
func (cv *converter) walk(el *xml.Element, cur cursor) cursor {
	if el.Tag != "lg" && el.Tag != "verse" {
		cur.afterLG = false
	}
	h, ok := tags[el.Tag]
	if !ok {
		cv.report(cur, KindUnknownElement, "unknown element <%s> skipped", el.Tag)
		return cv.appendText(cur, el.Tail)
	}
	cv.checkAttrs(el, cur, h.attrs)

	if h.block != nil {
		cur = h.block(cv, el, cur)
	} else {
		sb := newSpanBuilder()
		cur = h.inline(cv, sb, el, cur)
		cur = cv.appendInline(cur, sb.String())
	}

	if h.tail != "" && strings.TrimSpace(el.Tail) != "" {
		cur = cv.addBlock(cur, h.tail)
	}
	return cv.appendText(cur, el.Tail)
}

// walkChildren walks the content of a transparent container.
func (cv *converter) walkChildren(el *xml.Element, cur cursor) cursor {
	if strings.TrimSpace(el.Text) != "" {
		cur = cv.appendText(cur, el.Text)
	}
	for _, c := range el.Children {
		cur = cv.walk(c, cur)
	}
	return cur
}

// renderContent renders el's text and children as one inline run appended to
// the open line.
func (cv *converter) renderContent(el *xml.Element, cur cursor) cursor {
	sb := newSpanBuilder()
	cur = cv.renderPlain(sb, el, cur)
	return cv.appendInline(cur, sb.String())
}

func (cv *converter) renderChildren(sb *spanBuilder, el *xml.Element, cur cursor) cursor {
	return cv.renderElements(sb, el.Children, nil, cur)
}

// renderElements renders children into sb, skipping the element skip but
// keeping its tail.
func (cv *converter) renderElements(sb *spanBuilder, children []*xml.Element, skip *xml.Element, cur cursor) cursor {
	for _, c := range children {
		if c != skip {
			cur = cv.renderElement(sb, c, cur)
		}
		sb.text(cv.clean(cur, c.Tail))
	}
	return cur
}

// renderElement renders one element inside an inline run. A structural
// element interrupts the run: the run so far is flushed to the open line,
// the element is handled as a block and the open spans resume after it.
func (cv *converter) renderElement(sb *spanBuilder, el *xml.Element, cur cursor) cursor {
	if el.Tag != "lg" && el.Tag != "verse" {
		cur.afterLG = false
	}
	h, ok := tags[el.Tag]
	switch {
	case !ok:
		cv.report(cur, KindUnknownElement, "unknown element <%s> skipped", el.Tag)
	case h.inline != nil:
		cv.checkAttrs(el, cur, h.attrs)
		cur = h.inline(cv, sb, el, cur)
	case cur.note != nil:
		cv.report(cur, KindUnknownElement, "<%s> inside %s note skipped", el.Tag, cur.note.name)
	default:
		cv.checkAttrs(el, cur, h.attrs)
		cur = cv.appendInline(cur, sb.suspend())
		cur = h.block(cv, el, cur)
		if h.tail != "" && strings.TrimSpace(el.Tail) != "" {
			cur = cv.addBlock(cur, h.tail)
		}
	}
	return cur
}

// checkAttrs records attributes the handler does not expect. Namespaced
// attributes are always accepted.
func (cv *converter) checkAttrs(el *xml.Element, cur cursor, allowed []string) {
	for _, a := range el.Attrs {
		if strings.Contains(a.Name, ":") || contains(commonAttrs, a.Name) || contains(allowed, a.Name) {
			continue
		}
		cv.report(cur, KindUnknownAttribute, "unexpected attribute %s on <%s>", a.Name, el.Tag)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// clean sanitizes raw text, recording every anomaly.
func (cv *converter) clean(cur cursor, s string) string {
	if s == "" {
		return ""
	}
	if cv.rules.UnescapeEntities {
		s = unescapeEntities(s)
	}
	out, anomalies := Clean(s)
	for _, a := range anomalies {
		cv.report(cur, KindTextQuality, "%s", a)
	}
	return out
}

// appendText cleans raw text and appends it to the open line.
func (cv *converter) appendText(cur cursor, s string) cursor {
	return cv.appendInline(cur, cv.clean(cur, s))
}

// appendInline appends cleaned or serialized text to the open line, joining
// fragments with exactly one space. Text directly after a chapter line opens
// a paragraph; text directly after a verse number is separated by a space.
func (cv *converter) appendInline(cur cursor, s string) cursor {
	if s == "" {
		return cur
	}
	last, ok := cv.book.Last()

	if strings.Trim(s, " ") == "" {
		if ok && last.Text != "" && !cur.awaitVerseText && !strings.HasSuffix(last.Text, " ") {
			cv.book.AppendToLastLine(" ")
		}
		return cur
	}

	if ok && last.Marker == ir.MarkerChapter {
		cv.book.AddLine(ir.MarkerParagraph, "")
		last = ir.Line{Marker: ir.MarkerParagraph}
	}

	switch {
	case cur.awaitVerseText:
		s = " " + strings.TrimLeft(s, " ")
		cur.awaitVerseText = false
	case !ok || last.Text == "" || strings.HasSuffix(last.Text, " "):
		s = strings.TrimLeft(s, " ")
	}

	if cv.book.AppendToLastLine(s) {
		cv.report(cur, KindMilestoneMismatch, "text found before any chapter, verse or paragraph")
	}
	return cur
}

// addBlock opens a new structural line.
func (cv *converter) addBlock(cur cursor, marker string) cursor {
	cv.book.AddLine(marker, "")
	cur.awaitVerseText = false
	cur.afterLG = false
	return cur
}

func paragraphMarker(cur cursor) string {
	if cur.seenChapter {
		return ir.MarkerParagraph
	}
	return "ip"
}

// milestoneForm reports whether el is an empty sID/eID milestone and which.
func milestoneForm(el *xml.Element) (start, end bool) {
	if el.HasChildren() || strings.TrimSpace(el.Text) != "" {
		return false, false
	}
	_, start = el.LookupAttr("sID")
	_, end = el.LookupAttr("eID")
	return start, end && !start
}

func handleTransparent(cv *converter, el *xml.Element, cur cursor) cursor {
	return cv.walkChildren(el, cur)
}

func handleSkip(cv *converter, el *xml.Element, cur cursor) cursor {
	return cur
}

func handleParagraph(cv *converter, el *xml.Element, cur cursor) cursor {
	start, end := milestoneForm(el)
	if end {
		return cur
	}
	cur = cv.addBlock(cur, paragraphMarker(cur))
	if start {
		return cur
	}
	return cv.renderContent(el, cur)
}

func handleLineGroup(cv *converter, el *xml.Element, cur cursor) cursor {
	start, end := milestoneForm(el)
	switch {
	case start:
		return cur
	case end:
		cur.afterLG = true
		return cur
	}
	cur = cv.walkChildren(el, cur)
	cur.afterLG = true
	return cur
}

func handlePoetryLine(cv *converter, el *xml.Element, cur cursor) cursor {
	start, end := milestoneForm(el)
	if end {
		return cur
	}
	marker := "q1"
	if level, ok := el.LookupAttr("level"); ok {
		if n, err := strconv.Atoi(level); err == nil && n > 0 {
			marker = "q" + level
		} else {
			cv.report(cur, KindUnknownAttribute, "invalid poetry level %q, using 1", level)
		}
	}
	cur = cv.addBlock(cur, marker)
	if start {
		return cur
	}
	return cv.renderContent(el, cur)
}

func handleLineBreak(cv *converter, el *xml.Element, cur cursor) cursor {
	return cv.addBlock(cur, ir.MarkerMargin)
}

func handleCloser(cv *converter, el *xml.Element, cur cursor) cursor {
	cur = cv.addBlock(cur, ir.MarkerMargin)
	return cv.renderContent(el, cur)
}

func handleList(cv *converter, el *xml.Element, cur cursor) cursor {
	depth := cur.listDepth
	cur.listDepth++
	cur = cv.walkChildren(el, cur)
	cur.listDepth = depth
	return cur
}

func handleItem(cv *converter, el *xml.Element, cur cursor) cursor {
	depth := cur.listDepth
	if depth < 1 {
		depth = 1
	}
	cur = cv.addBlock(cur, "li"+strconv.Itoa(depth))
	return cv.renderContent(el, cur)
}

var titleMarkers = map[string]string{
	"parallel": "r",
	"psalm":    "d",
	"sub":      "s2",
	"main":     "mt1",
	"chapter":  "cl",
}

func handleTitle(cv *converter, el *xml.Element, cur cursor) cursor {
	if el.IsEmpty() {
		return cur
	}
	marker, ok := titleMarkers[el.Attr("type")]
	switch {
	case ok:
	case !cur.seenChapter:
		marker = "mt1"
	case el.Attr("type") == "" && cv.rules.UntypedTitleMarker != "":
		marker = cv.rules.UntypedTitleMarker
	default:
		marker = "s1"
	}
	cur = cv.addBlock(cur, marker)
	return cv.renderContent(el, cur)
}

func handleDiv(cv *converter, el *xml.Element, cur cursor) cursor {
	if el.Attr("type") != "book" {
		return cv.walkChildren(el, cur)
	}
	if _, end := milestoneForm(el); end {
		return cur
	}

	fields := strings.Fields(el.Attr("osisID"))
	if len(fields) == 0 {
		cv.report(cur, KindUnknownAttribute, "book div has no osisID")
		return cv.walkChildren(el, cur)
	}
	code := fields[0]
	if i := strings.IndexByte(code, '.'); i > 0 && cv.rules.StripBookIDSuffix {
		cv.report(cur, KindUnknownAttribute, "book id %s corrected to %s", code, code[:i])
		code = code[:i]
	}
	cur = cv.enterBook(cur, code, false)
	return cv.walkChildren(el, cur)
}

// handleHeader takes the document metadata from the work describing the
// text, or from the first work when none matches.
func handleHeader(cv *converter, el *xml.Element, cur cursor) cursor {
	var work *xml.Element
	for _, c := range el.Children {
		if c.Tag != "work" {
			continue
		}
		if cv.result.WorkID != "" && c.Attr("osisWork") == cv.result.WorkID {
			work = c
			break
		}
		if work == nil {
			work = c
		}
	}
	if work == nil {
		return cur
	}
	if t := work.Child("title"); t != nil {
		cv.result.Title = strings.TrimSpace(plainText(t))
	}
	if l := work.Child("language"); l != nil && cv.result.Language == "" {
		cv.result.Language = strings.TrimSpace(plainText(l))
	}
	if r := work.Child("refSystem"); r != nil {
		cv.result.RefSystem = strings.TrimSpace(plainText(r))
	}
	return cur
}
