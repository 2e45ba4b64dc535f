package ir

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Ref represents a canonical scripture reference.
type Ref struct {
	// Book is the OSIS book ID (e.g., "Gen", "Matt", "1John").
	Book string `json:"book"`

	// Chapter is the chapter number (1-indexed, 0 for whole-book references).
	Chapter int `json:"chapter,omitempty"`

	// Verse is the verse number (1-indexed, 0 for whole-chapter references).
	Verse int `json:"verse,omitempty"`

	// SubVerse is the verse subdivision (e.g., "a", "b").
	SubVerse string `json:"sub_verse,omitempty"`

	// OSISID is the OSIS ID string the reference was parsed from.
	OSISID string `json:"osis_id,omitempty"`
}

// refGrammar is the participle grammar for a single OSIS reference.
// Examples: "Gen", "Gen.1", "Gen.1.1", "Gen.1.1a", "1John.3.16", "Ps151.1"
//
//nolint:govet // participle grammar tags are not standard struct tags
type refGrammar struct {
	BookPrefix string       `@Int?`
	BookName   string       `@Ident`
	ChapterRef *chapterPart `( "." @@ )?`
}

//nolint:govet // participle grammar tags are not standard struct tags
type chapterPart struct {
	Chapter  int        `@Int`
	VerseRef *versePart `( "." @@ )?`
}

//nolint:govet // participle grammar tags are not standard struct tags
type versePart struct {
	Verse    int     `@Int`
	SubVerse *string `@SubVerse?`
}

// refLexer defines the lexer for OSIS references.
// Ident starts with uppercase to distinguish it from SubVerse (single lowercase).
var refLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Ident", Pattern: `[A-Z][A-Za-z0-9]*`},
	{Name: "SubVerse", Pattern: `[a-z]+`},
	{Name: "Punct", Pattern: `[.]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var refParser = participle.MustBuild[refGrammar](
	participle.Lexer(refLexer),
	participle.Elide("Whitespace"),
)

// ParseRef parses a single OSIS-style reference.
// Supported formats:
//   - "Gen" (book only)
//   - "Gen.1" (book and chapter)
//   - "Gen.1.1" (book, chapter, and verse)
//   - "Gen.1.1a" (with sub-verse)
//   - "KJV:Gen.1.1" (work prefix, ignored)
func ParseRef(s string) (*Ref, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty reference string")
	}

	body := s
	if i := strings.IndexByte(body, ':'); i >= 0 {
		body = body[i+1:]
	}

	parsed, err := refParser.ParseString("", body)
	if err != nil {
		return nil, fmt.Errorf("invalid reference format: %q: %w", s, err)
	}

	ref := &Ref{
		Book:   parsed.BookPrefix + parsed.BookName,
		OSISID: s,
	}

	if parsed.ChapterRef != nil {
		ref.Chapter = parsed.ChapterRef.Chapter

		if parsed.ChapterRef.VerseRef != nil {
			ref.Verse = parsed.ChapterRef.VerseRef.Verse
			if parsed.ChapterRef.VerseRef.SubVerse != nil {
				ref.SubVerse = *parsed.ChapterRef.VerseRef.SubVerse
			}
		}
	}

	return ref, nil
}

// String returns the OSIS ID representation of the reference.
func (r *Ref) String() string {
	if r.OSISID != "" {
		return r.OSISID
	}

	var sb strings.Builder
	sb.WriteString(r.Book)

	if r.Chapter > 0 {
		sb.WriteString(".")
		sb.WriteString(strconv.Itoa(r.Chapter))

		if r.Verse > 0 {
			sb.WriteString(".")
			sb.WriteString(strconv.Itoa(r.Verse))
			sb.WriteString(r.SubVerse)
		}
	}

	return sb.String()
}

// Contains returns true if this reference contains the other reference.
func (r *Ref) Contains(other *Ref) bool {
	if r.Book != other.Book {
		return false
	}

	// Book-only reference contains all chapters
	if r.Chapter == 0 {
		return true
	}

	if r.Chapter != other.Chapter {
		return false
	}

	// Chapter-only reference contains all verses in that chapter
	if r.Verse == 0 {
		return true
	}

	return r.Verse == other.Verse
}

// VerseID is a parsed verse identifier, possibly a bridge spanning several
// verses such as "Gen.1.7-Gen.1.8" or "Gen.1.7-8".
type VerseID struct {
	// Raw is the identifier exactly as it appeared in the source.
	Raw string

	// Start is the first verse of the identifier.
	Start *Ref

	// End is the last verse of a bridge, nil for a single verse.
	End *Ref
}

// ParseVerseID parses an OSIS verse identifier. Bridge endpoints may be
// separated by a hyphen, an en dash, an em dash or whitespace, and the end
// may be a full reference or a bare verse number.
func ParseVerseID(raw string) (*VerseID, error) {
	s := strings.TrimSpace(raw)
	parts := strings.FieldsFunc(s, isBridgeSeparator)
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty verse id")
	}

	start, err := ParseRef(parts[0])
	if err != nil {
		return nil, err
	}
	id := &VerseID{Raw: raw, Start: start}
	if len(parts) == 1 {
		return id, nil
	}

	last := parts[len(parts)-1]
	if n, suffix, ok := splitVerseNumber(last); ok {
		id.End = &Ref{
			Book:     start.Book,
			Chapter:  start.Chapter,
			Verse:    n,
			SubVerse: suffix,
			OSISID:   last,
		}
		return id, nil
	}

	end, err := ParseRef(last)
	if err != nil {
		return nil, fmt.Errorf("invalid bridge end in %q: %w", raw, err)
	}
	id.End = end
	return id, nil
}

// IsBridge reports whether the identifier spans more than one verse.
func (v *VerseID) IsBridge() bool {
	return v.End != nil && (v.End.Verse != v.Start.Verse || v.End.Chapter != v.Start.Chapter)
}

// Number returns the verse number field for the canonical "v" line:
// "7" for a single verse, "7-8" for a bridge. Letter suffixes are dropped.
func (v *VerseID) Number() string {
	n := strconv.Itoa(v.Start.Verse)
	if v.IsBridge() {
		n += "-" + strconv.Itoa(v.End.Verse)
	}
	return n
}

// Book returns the book code of the first verse.
func (v *VerseID) Book() string {
	return v.Start.Book
}

// Chapter returns the chapter number of the first verse.
func (v *VerseID) Chapter() int {
	return v.Start.Chapter
}

func isBridgeSeparator(r rune) bool {
	return r == '-' || r == '–' || r == '—' || unicode.IsSpace(r)
}

// splitVerseNumber splits "8" or "8b" into its number and letter suffix.
func splitVerseNumber(s string) (int, string, bool) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, "", false
	}
	for _, c := range s[i:] {
		if c < 'a' || c > 'z' {
			return 0, "", false
		}
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil {
		return 0, "", false
	}
	return n, s[i:], true
}
