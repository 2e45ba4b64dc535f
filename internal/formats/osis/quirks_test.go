package osis

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/FocuswithJustin/osisingest/core/errors"
)

const sampleQuirks = `
WEB:
  verse_ends: always
albanian_utf8:
  unescape_entities: true
KarenBible:
  untyped_title_marker: cp
  chapter_ends: never
`

func TestParseQuirks(t *testing.T) {
	q, err := ParseQuirks([]byte(sampleQuirks))
	if err != nil {
		t.Fatalf("ParseQuirks() error = %v", err)
	}
	if len(q) != 3 {
		t.Fatalf("got %d entries, want 3", len(q))
	}
	if q["WEB"].VerseEnds != EndsAlways {
		t.Errorf("WEB verse_ends = %q, want always", q["WEB"].VerseEnds)
	}
	if !q["albanian_utf8"].UnescapeEntities {
		t.Error("albanian_utf8 unescape_entities = false, want true")
	}
	if q["KarenBible"].UntypedTitleMarker != "cp" {
		t.Errorf("KarenBible untyped_title_marker = %q, want cp", q["KarenBible"].UntypedTitleMarker)
	}
}

func TestParseQuirksErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad policy", "WEB:\n  verse_ends: sometimes\n"},
		{"bad yaml", "WEB: [unclosed\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseQuirks([]byte(tt.data)); err == nil {
				t.Error("expected error")
			}
		})
	}

	_, err := ParseQuirks([]byte("WEB:\n  verse_ends: sometimes\n"))
	if !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("error = %v, want ErrInvalidInput", err)
	}
}

func TestLoadQuirks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quirks.yaml")
	if err := os.WriteFile(path, []byte(sampleQuirks), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	q, err := LoadQuirks(path)
	if err != nil {
		t.Fatalf("LoadQuirks() error = %v", err)
	}
	if _, ok := q["WEB"]; !ok {
		t.Error("WEB entry missing")
	}

	if _, err := LoadQuirks(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestQuirksLookup(t *testing.T) {
	q := Quirks{
		"WEB":      {VerseEnds: EndsAlways},
		"web.osis": {ChapterEnds: EndsNever},
	}

	tests := []struct {
		name        string
		ids         []string
		verseEnds   EndPolicy
		chapterEnds EndPolicy
	}{
		{"first id wins", []string{"web.osis", "WEB"}, EndsAuto, EndsNever},
		{"falls through empty id", []string{"", "WEB"}, EndsAlways, EndsAuto},
		{"no match defaults", []string{"KJV"}, EndsAuto, EndsAuto},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := q.Lookup(tt.ids...)
			if r.VerseEnds != tt.verseEnds || r.ChapterEnds != tt.chapterEnds {
				t.Errorf("Lookup(%v) = %q/%q, want %q/%q", tt.ids, r.VerseEnds, r.ChapterEnds, tt.verseEnds, tt.chapterEnds)
			}
		})
	}
}

func TestEndPolicyExpectsEnds(t *testing.T) {
	tests := []struct {
		policy EndPolicy
		seen   bool
		want   bool
	}{
		{EndsAuto, true, true},
		{EndsAuto, false, false},
		{EndsNever, true, false},
		{EndsAlways, false, true},
	}
	for _, tt := range tests {
		if got := tt.policy.expectsEnds(tt.seen); got != tt.want {
			t.Errorf("%s.expectsEnds(%v) = %v, want %v", tt.policy, tt.seen, got, tt.want)
		}
	}
}
