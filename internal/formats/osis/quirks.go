package osis

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/FocuswithJustin/osisingest/core/errors"
)

// EndPolicy says whether a dialect emits end milestones.
type EndPolicy string

const (
	// EndsAuto decides from the document itself: ends are expected when at
	// least one end milestone of that kind occurs.
	EndsAuto EndPolicy = "auto"
	// EndsNever treats every open-while-open start as a silent implicit close.
	EndsNever EndPolicy = "never"
	// EndsAlways reports every implicit close.
	EndsAlways EndPolicy = "always"
)

// Rules are the special cases applied to one document dialect.
type Rules struct {
	VerseEnds          EndPolicy `yaml:"verse_ends"`
	ChapterEnds        EndPolicy `yaml:"chapter_ends"`
	UnescapeEntities   bool      `yaml:"unescape_entities"`
	StripBookIDSuffix  bool      `yaml:"strip_book_id_suffix"`
	UntypedTitleMarker string    `yaml:"untyped_title_marker"`
}

// Quirks maps a document identifier (osisIDWork or source name) to its rules.
//
//	WEB:
//	  verse_ends: always
//	albanian_utf8:
//	  unescape_entities: true
//	KarenBible:
//	  untyped_title_marker: cp
type Quirks map[string]Rules

// ParseQuirks decodes a YAML quirks table.
func ParseQuirks(data []byte) (Quirks, error) {
	var q Quirks
	if err := yaml.Unmarshal(data, &q); err != nil {
		return nil, errors.NewParse("YAML", "", err)
	}
	for id, r := range q {
		for _, p := range []EndPolicy{r.VerseEnds, r.ChapterEnds} {
			switch p {
			case "", EndsAuto, EndsNever, EndsAlways:
			default:
				return nil, fmt.Errorf("quirks for %q: unknown end policy %q: %w", id, p, errors.ErrInvalidInput)
			}
		}
	}
	return q, nil
}

// LoadQuirks reads a YAML quirks table from path.
func LoadQuirks(path string) (Quirks, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIO("read", path, err)
	}
	q, err := ParseQuirks(data)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return q, nil
}

// Lookup returns the rules of the first identifier present in the table.
// Unset end policies default to EndsAuto.
func (q Quirks) Lookup(ids ...string) Rules {
	var r Rules
	for _, id := range ids {
		if id == "" {
			continue
		}
		if found, ok := q[id]; ok {
			r = found
			break
		}
	}
	if r.VerseEnds == "" {
		r.VerseEnds = EndsAuto
	}
	if r.ChapterEnds == "" {
		r.ChapterEnds = EndsAuto
	}
	return r
}

// expectsEnds resolves a policy against what the document actually contains.
func (p EndPolicy) expectsEnds(seen bool) bool {
	switch p {
	case EndsNever:
		return false
	case EndsAlways:
		return true
	default:
		return seen
	}
}
