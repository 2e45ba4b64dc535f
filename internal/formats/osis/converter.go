// Package osis converts OSIS XML element trees into canonical ir.Book line
// sequences.
//
// One document may use milestone or container encodings for chapters and
// verses, may hold a single book or many, and may nest inline annotations
// arbitrarily. Local malformation is recorded as diagnostics and conversion
// always runs to completion; only an unrecognizable top-level shape aborts.
package osis

import (
	"fmt"
	"log/slog"

	"github.com/FocuswithJustin/osisingest/core/errors"
	"github.com/FocuswithJustin/osisingest/core/ir"
	"github.com/FocuswithJustin/osisingest/core/xml"
	"github.com/FocuswithJustin/osisingest/internal/logging"
)

// Options configure one conversion. Nothing is read from global state.
type Options struct {
	// Strict returns a *errors.StrictError alongside the complete result
	// when any diagnostic was recorded.
	Strict bool

	// Debug logs every diagnostic at debug level as it is recorded.
	Debug bool

	// Quirks is the per-dialect special-case table.
	Quirks Quirks

	// DocumentID names the document in diagnostics and quirk lookups. It
	// defaults to the osisIDWork attribute.
	DocumentID string

	// Logger defaults to logging.GetLogger().
	Logger *slog.Logger

	// OnBook, when set, receives each book as soon as it is finalized.
	OnBook func(*ir.Book)
}

// Result is the output of one document.
type Result struct {
	WorkID    string
	Language  string
	Title     string
	RefSystem string

	// Books are in document order.
	Books []*ir.Book

	// Diagnostics are in the order they were recorded.
	Diagnostics []string

	issues []Diagnostic
}

// Issues returns the classified diagnostics.
func (r *Result) Issues() []Diagnostic {
	return r.issues
}

// Count returns the number of diagnostics of the given kind.
func (r *Result) Count(kind Kind) int {
	n := 0
	for _, d := range r.issues {
		if d.Kind == kind {
			n++
		}
	}
	return n
}

// chapterMark is the open chapter milestone.
type chapterMark struct {
	raw string
	ref *ir.Ref
}

// verseMark is the open verse milestone. id is nil when the raw id could not
// be parsed.
type verseMark struct {
	raw string
	id  *ir.VerseID
}

// cursor is the walk state threaded by value through every handler and
// returned updated.
type cursor struct {
	chapter *chapterMark
	verse   *verseMark

	// seenChapter is set once the current book has had a chapter, which
	// separates introduction markers from body markers.
	seenChapter bool

	// afterLG is set when a line group ended and no other block followed.
	afterLG bool

	// awaitVerseText is set while the last line holds only a verse number.
	awaitVerseText bool

	// note is the kind of the note being rendered, nil outside notes.
	note *noteKind

	listDepth int
}

// converter holds the per-document collaborators. It is used by exactly one
// goroutine for exactly one document.
type converter struct {
	docID  string
	rules  Rules
	opts   Options
	logger *slog.Logger
	diags  *collector
	book   *ir.Builder
	result *Result

	verseEnds   bool
	chapterEnds bool
}

// Convert turns one OSIS document tree into canonical books.
//
// The root must be osis (with an osisText child), osisText, or a div
// fragment; anything else is an *errors.StructuralError and no result is
// returned. Every other problem is recorded in Result.Diagnostics.
func Convert(root *xml.Element, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.GetLogger()
	}

	text, err := textElement(root, opts.DocumentID)
	if err != nil {
		return nil, err
	}

	workID := text.Attr("osisIDWork")
	docID := opts.DocumentID
	if docID == "" {
		docID = workID
	}
	if docID == "" {
		docID = "osis"
	}

	rules := opts.Quirks.Lookup(opts.DocumentID, workID)
	verseEnds, chapterEnds := scanEnds(text)

	cv := &converter{
		docID:       docID,
		rules:       rules,
		opts:        opts,
		logger:      logger,
		diags:       newCollector(docID, logger, opts.Debug),
		book:        ir.NewBuilder(""),
		result:      &Result{WorkID: workID, Language: text.Attr("xml:lang")},
		verseEnds:   rules.VerseEnds.expectsEnds(verseEnds),
		chapterEnds: rules.ChapterEnds.expectsEnds(chapterEnds),
	}
	if cv.result.Language == "" {
		cv.result.Language = text.Attr("lang")
	}

	if text.Tag == "div" {
		cv.walk(text, cursor{})
	} else {
		cv.checkAttrs(text, cursor{}, osisTextAttrs)
		cv.walkChildren(text, cursor{})
	}
	cv.flush()

	cv.result.Diagnostics = cv.diags.strings()
	cv.result.issues = cv.diags.items
	if opts.Strict && cv.diags.len() > 0 {
		return cv.result, &errors.StrictError{Document: docID, Diagnostics: cv.diags.len()}
	}
	return cv.result, nil
}

var osisTextAttrs = []string{"osisIDWork", "osisRefWork", "lang", "canonical"}

// textElement locates the element whose children are walked.
func textElement(root *xml.Element, docID string) (*xml.Element, error) {
	if root == nil {
		return nil, errors.NewStructural(docID, "", "empty document")
	}
	switch root.Tag {
	case "osis":
		if text := root.Child("osisText"); text != nil {
			return text, nil
		}
		return nil, errors.NewStructural(docID, root.Tag, "osis element has no osisText child")
	case "osisText", "div":
		return root, nil
	}
	return nil, errors.NewStructural(docID, root.Tag, "expected osis, osisText or div root")
}

// scanEnds reports whether the document contains verse and chapter end
// milestones at all.
func scanEnds(el *xml.Element) (verse, chapter bool) {
	if _, ok := el.LookupAttr("eID"); ok {
		switch el.Tag {
		case "verse":
			verse = true
		case "chapter":
			chapter = true
		}
	}
	for _, c := range el.Children {
		v, ch := scanEnds(c)
		verse = verse || v
		chapter = chapter || ch
		if verse && chapter {
			break
		}
	}
	return verse, chapter
}

// report records a diagnostic located at the open verse or chapter.
func (cv *converter) report(cur cursor, kind Kind, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	switch {
	case cur.verse != nil:
		msg += " at " + cur.verse.raw
	case cur.chapter != nil:
		msg += " at " + cur.chapter.raw
	case cv.book.Code() != "":
		msg += " in " + cv.book.Code()
	}
	cv.diags.add(kind, "%s", msg)
}

// flush finalizes the current book and hands it to the caller.
func (cv *converter) flush() {
	if cv.book.Len() == 0 {
		cv.book.SetCode("")
		return
	}
	if cv.book.Code() == "" {
		cv.diags.add(KindUnknownAttribute, "content found before any book or chapter identifier")
	}
	book := cv.book.Finalize()
	logging.BookFlushed(cv.logger, cv.docID, book.Code, len(book.Lines))
	cv.result.Books = append(cv.result.Books, book)
	if cv.opts.OnBook != nil {
		cv.opts.OnBook(book)
	}
}

// enterBook switches the accumulator to code. Trailing section headings of
// the old book move to the new one as main titles when migrate is set.
func (cv *converter) enterBook(cur cursor, code string, migrate bool) cursor {
	if code == "" || code == cv.book.Code() {
		return cur
	}
	if cv.book.Code() == "" {
		cv.book.SetCode(code)
		return cur
	}

	var headings []ir.Line
	if migrate {
		headings = cv.book.PopTrailing(headingMarkers...)
	}
	cv.flush()
	cv.book.SetCode(code)
	for _, h := range headings {
		cv.book.AddLine("mt1", h.Text)
	}

	cur.chapter = nil
	cur.verse = nil
	cur.seenChapter = false
	cur.afterLG = false
	cur.awaitVerseText = false
	return cur
}

var headingMarkers = []string{"s1", "s2", "s3", "s4"}
