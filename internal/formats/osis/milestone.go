package osis

import (
	"strconv"
	"strings"

	"github.com/FocuswithJustin/osisingest/core/ir"
	"github.com/FocuswithJustin/osisingest/core/xml"
)

// Milestone is a classified chapter or verse element.
type Milestone interface {
	isMilestone()
}

// ChapterStart opens a chapter. Raw is the id later matched by ChapterEnd.
type ChapterStart struct {
	ID  *ir.Ref
	Raw string
}

// ChapterEnd closes the chapter whose start carried Raw.
type ChapterEnd struct {
	Raw string
}

// ChapterContainer is a chapter element that nests its content.
type ChapterContainer struct {
	ID  *ir.Ref
	Raw string
}

// VerseStart opens a verse. ID.IsBridge reports a verse bridge.
type VerseStart struct {
	ID  *ir.VerseID
	Raw string
}

// VerseEnd closes the verse whose start carried Raw.
type VerseEnd struct {
	Raw string
}

// VerseContainer is a verse element whose body follows as its children.
type VerseContainer struct {
	ID  *ir.VerseID
	Raw string
}

// VerseContents is a verse element carrying its text directly.
type VerseContents struct {
	ID     *ir.VerseID
	Raw    string
	Number string
	Text   string
}

// InvalidMilestone is a chapter or verse element that fits no encoding.
type InvalidMilestone struct {
	Reason string
}

func (ChapterStart) isMilestone()     {}
func (ChapterEnd) isMilestone()       {}
func (ChapterContainer) isMilestone() {}
func (VerseStart) isMilestone()       {}
func (VerseEnd) isMilestone()         {}
func (VerseContainer) isMilestone()   {}
func (VerseContents) isMilestone()    {}
func (InvalidMilestone) isMilestone() {}

// ClassifyChapter decides between the milestone and container encodings of
// a chapter element. A childless element with sID, eID or a bare osisID is a
// milestone; the returned notes describe tolerated irregularities.
func ClassifyChapter(el *xml.Element) (Milestone, []string) {
	osisID, hasOsisID := el.LookupAttr("osisID")
	sID, hasSID := el.LookupAttr("sID")
	eID, hasEID := el.LookupAttr("eID")
	var notes []string

	if !el.HasChildren() && (hasSID || hasEID || hasOsisID) {
		switch {
		case hasEID && !hasSID:
			return ChapterEnd{Raw: eID}, nil
		case hasSID:
			if hasEID {
				notes = append(notes, "chapter "+sID+" carries both sID and eID; treated as a start")
			}
			id := osisID
			if id == "" {
				notes = append(notes, "chapter start "+sID+" has no osisID")
				id = sID
			} else if id != sID {
				notes = append(notes, "chapter osisID "+osisID+" differs from sID "+sID)
			}
			return ChapterStart{ID: parseChapterRef(id), Raw: sID}, notes
		default:
			return ChapterStart{ID: parseChapterRef(osisID), Raw: osisID}, nil
		}
	}

	if !hasOsisID {
		return InvalidMilestone{Reason: "chapter element has neither milestone ids nor osisID"}, nil
	}
	return ChapterContainer{ID: parseChapterRef(osisID), Raw: osisID}, nil
}

// ClassifyVerse decides between the milestone and container encodings of a
// verse element. A container with direct text is VerseContents.
func ClassifyVerse(el *xml.Element) (Milestone, []string) {
	osisID, hasOsisID := el.LookupAttr("osisID")
	sID, hasSID := el.LookupAttr("sID")
	eID, hasEID := el.LookupAttr("eID")
	var notes []string

	if !el.HasChildren() && (hasSID || hasEID) {
		switch {
		case hasEID && !hasSID:
			return VerseEnd{Raw: eID}, nil
		default:
			if hasEID {
				notes = append(notes, "verse "+sID+" carries both sID and eID; treated as a start")
			}
			id := osisID
			if id == "" {
				notes = append(notes, "verse start "+sID+" has no osisID")
				id = sID
			}
			return VerseStart{ID: parseVerseID(id), Raw: sID}, notes
		}
	}

	if !hasOsisID {
		return InvalidMilestone{Reason: "verse element has neither milestone ids nor osisID"}, nil
	}
	id := parseVerseID(osisID)
	if strings.TrimSpace(el.Text) != "" {
		return VerseContents{ID: id, Raw: osisID, Number: verseNumber(id, osisID), Text: el.Text}, nil
	}
	return VerseContainer{ID: id, Raw: osisID}, nil
}

func parseChapterRef(raw string) *ir.Ref {
	ref, err := ir.ParseRef(raw)
	if err != nil || ref.Chapter == 0 {
		return nil
	}
	return ref
}

func parseVerseID(raw string) *ir.VerseID {
	id, err := ir.ParseVerseID(raw)
	if err != nil || id.Start.Verse == 0 {
		return nil
	}
	return id
}

// verseNumber is the number field of a "v" line. Unparseable ids fall back
// to their last dotted component.
func verseNumber(id *ir.VerseID, raw string) string {
	if id != nil {
		return id.Number()
	}
	return lastComponent(raw)
}

func chapterNumber(ref *ir.Ref, raw string) string {
	if ref != nil {
		return strconv.Itoa(ref.Chapter)
	}
	return lastComponent(raw)
}

func lastComponent(raw string) string {
	raw = strings.TrimSpace(raw)
	if i := strings.LastIndexByte(raw, '.'); i >= 0 {
		return raw[i+1:]
	}
	return raw
}

// handleChapter resolves a chapter element against the cursor.
func handleChapter(cv *converter, el *xml.Element, cur cursor) cursor {
	m, notes := ClassifyChapter(el)
	for _, n := range notes {
		cv.report(cur, KindMilestoneMismatch, "%s", n)
	}

	switch m := m.(type) {
	case ChapterStart:
		if cur.chapter != nil && cv.chapterEnds {
			cv.report(cur, KindMilestoneMismatch, "chapter %s starts while chapter %s is open", m.Raw, cur.chapter.raw)
		}
		cur = cv.openChapter(cur, m.ID, m.Raw)

	case ChapterEnd:
		cur = cv.closeVerseAtChapterEnd(cur, m.Raw)
		switch {
		case cur.chapter == nil:
			cv.report(cur, KindMilestoneMismatch, "chapter end %s with no open chapter", m.Raw)
		case cur.chapter.raw != m.Raw:
			cv.report(cur, KindMilestoneMismatch, "chapter end %s does not match open chapter %s", m.Raw, cur.chapter.raw)
			cur.chapter = nil
		default:
			cur.chapter = nil
		}

	case ChapterContainer:
		if cur.chapter != nil && cv.chapterEnds {
			cv.report(cur, KindMilestoneMismatch, "chapter %s starts while chapter %s is open", m.Raw, cur.chapter.raw)
		}
		cur = cv.openChapter(cur, m.ID, m.Raw)
		cur = cv.walkChildren(el, cur)
		cur = cv.closeVerseAtChapterEnd(cur, m.Raw)
		cur.chapter = nil

	case InvalidMilestone:
		cv.report(cur, KindMilestoneMismatch, "%s", m.Reason)
	}
	return cur
}

// openChapter closes any open verse, switches books when the chapter belongs
// to a new one, and emits the "c" line.
func (cv *converter) openChapter(cur cursor, ref *ir.Ref, raw string) cursor {
	if cur.verse != nil {
		if cv.verseEnds {
			cv.report(cur, KindMilestoneMismatch, "chapter %s starts while verse is open", raw)
		}
		cur.verse = nil
	}
	if ref == nil {
		cv.report(cur, KindMilestoneMismatch, "unparseable chapter id %q", raw)
	} else {
		cur = cv.enterBook(cur, ref.Book, true)
	}

	cv.book.AddLine(ir.MarkerChapter, chapterNumber(ref, raw))
	cur.chapter = &chapterMark{raw: raw, ref: ref}
	cur.seenChapter = true
	cur.afterLG = false
	cur.awaitVerseText = false
	return cur
}

func (cv *converter) closeVerseAtChapterEnd(cur cursor, raw string) cursor {
	if cur.verse != nil {
		if cv.verseEnds {
			cv.report(cur, KindMilestoneMismatch, "chapter %s ends while verse is open", raw)
		}
		cur.verse = nil
	}
	return cur
}

// handleVerse resolves a verse element against the cursor.
func handleVerse(cv *converter, el *xml.Element, cur cursor) cursor {
	m, notes := ClassifyVerse(el)
	for _, n := range notes {
		cv.report(cur, KindMilestoneMismatch, "%s", n)
	}

	switch m := m.(type) {
	case VerseStart:
		if cur.verse != nil && cv.verseEnds {
			cv.report(cur, KindMilestoneMismatch, "verse %s starts while verse %s is open", m.Raw, cur.verse.raw)
		}
		cur = cv.openVerse(cur, m.ID, m.Raw)
		cv.book.AddLine(ir.MarkerVerse, verseNumber(m.ID, m.Raw))
		cur.awaitVerseText = true

	case VerseEnd:
		switch {
		case cur.verse == nil:
			cv.report(cur, KindMilestoneMismatch, "verse end %s with no open verse", m.Raw)
		case cur.verse.raw != m.Raw:
			cv.report(cur, KindMilestoneMismatch, "verse end %s does not match open verse %s", m.Raw, cur.verse.raw)
			cur.verse = nil
		default:
			cur.verse = nil
		}

	case VerseContents:
		cur = cv.openVerse(cur, m.ID, m.Raw)
		text := strings.TrimLeft(cv.clean(cur, m.Text), " ")
		cv.book.AddLine(ir.MarkerVerse, m.Number+" "+text)
		cur.awaitVerseText = false
		sb := newSpanBuilder()
		cur = cv.renderChildren(sb, el, cur)
		cur = cv.appendInline(cur, sb.String())
		cur.verse = nil

	case VerseContainer:
		cur = cv.openVerse(cur, m.ID, m.Raw)
		cv.book.AddLine(ir.MarkerVerse, verseNumber(m.ID, m.Raw))
		cur.awaitVerseText = true
		cur = cv.renderContent(el, cur)
		cur.verse = nil

	case InvalidMilestone:
		cv.report(cur, KindMilestoneMismatch, "%s", m.Reason)
	}
	return cur
}

// openVerse makes id the open verse, checking it against the open chapter.
func (cv *converter) openVerse(cur cursor, id *ir.VerseID, raw string) cursor {
	if id == nil {
		cv.report(cur, KindMilestoneMismatch, "unparseable verse id %q", raw)
	} else {
		if cv.book.Code() == "" {
			cur = cv.enterBook(cur, id.Book(), false)
		}
		if cur.chapter != nil && cur.chapter.ref != nil && !cur.chapter.ref.Contains(&ir.Ref{Book: id.Book(), Chapter: id.Chapter()}) {
			cv.report(cur, KindMilestoneMismatch, "verse %s lies outside the open chapter", raw)
		}
	}
	if cur.afterLG {
		cv.book.AddLine(ir.MarkerMargin, "")
		cur.afterLG = false
	}
	cur.verse = &verseMark{raw: raw, id: id}
	return cur
}

var entityReplacer = strings.NewReplacer("&quot;", `"`, "&lt;", "<", "&gt;", ">", "&apos;", "'", "&amp;", "&")

// unescapeEntities decodes entities that survived one round of XML decoding.
func unescapeEntities(s string) string {
	return entityReplacer.Replace(s)
}
