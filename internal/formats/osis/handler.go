package osis

import (
	"bytes"

	"github.com/FocuswithJustin/osisingest/core/errors"
	"github.com/FocuswithJustin/osisingest/core/xml"
)

// detectWindow bounds how much of a file Detect looks at.
const detectWindow = 4096

// Detect reports whether data looks like an OSIS document or fragment.
func Detect(data []byte) bool {
	head := data
	if len(head) > detectWindow {
		head = head[:detectWindow]
	}
	return bytes.Contains(head, []byte("<osis")) || bytes.Contains(head, []byte("osisIDWork"))
}

// ConvertBytes parses data and converts the resulting tree.
func ConvertBytes(data []byte, opts Options) (*Result, error) {
	doc, err := xml.Parse(data)
	if err != nil {
		return nil, errors.NewParse("OSIS", opts.DocumentID, err)
	}
	return Convert(doc.Tree(), opts)
}

// Summary counts the structural elements of a document without converting
// it. It is used to cross-check conversion output.
type Summary struct {
	WorkID   string
	Books    int
	Chapters int
	Verses   int
	Notes    int

	// VerseEnds is the number of verse end milestones.
	VerseEnds int
}

var summaryQueries = []struct {
	expr string
	dst  func(*Summary) *int
}{
	{"//div[@type='book'][not(@eID)]", func(s *Summary) *int { return &s.Books }},
	{"//chapter[@sID or (@osisID and not(@eID))]", func(s *Summary) *int { return &s.Chapters }},
	{"//verse[@sID or (@osisID and not(@eID))]", func(s *Summary) *int { return &s.Verses }},
	{"//verse[@eID and not(@sID)]", func(s *Summary) *int { return &s.VerseEnds }},
	{"//note", func(s *Summary) *int { return &s.Notes }},
}

// Inspect summarizes a parsed document with XPath queries.
func Inspect(doc *xml.Document) (*Summary, error) {
	s := &Summary{}
	text, err := doc.XPathFirst("//osisText")
	if err != nil {
		return nil, err
	}
	if text != nil {
		s.WorkID = text.Attr("osisIDWork")
	}
	for _, q := range summaryQueries {
		nodes, err := doc.XPath(q.expr)
		if err != nil {
			return nil, errors.Wrapf(err, "inspect %s", q.expr)
		}
		*q.dst(s) = len(nodes)
	}
	return s, nil
}
