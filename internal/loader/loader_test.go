package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/osisingest/core/errors"
	"github.com/FocuswithJustin/osisingest/core/ir"
	"github.com/FocuswithJustin/osisingest/internal/formats/osis"
)

func osisDoc(work, book string, verses int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `<osis><osisText osisIDWork="%s"><div type="book" osisID="%s">`, work, book)
	fmt.Fprintf(&sb, `<chapter osisID="%s.1">`, book)
	for i := 1; i <= verses; i++ {
		fmt.Fprintf(&sb, `<verse osisID="%s.1.%d">Verse %d</verse>`, book, i, i)
	}
	sb.WriteString(`</chapter></div></osisText></osis>`)
	return sb.String()
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func writeXz(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	defer f.Close()

	xw, err := xz.NewWriter(f)
	if err != nil {
		t.Fatalf("xz writer: %v", err)
	}
	if _, err := xw.Write([]byte(content)); err != nil {
		t.Fatalf("write content: %v", err)
	}
	if err := xw.Close(); err != nil {
		t.Fatalf("close xz writer: %v", err)
	}
	return path
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	plain := writeFile(t, dir, "plain.xml", "hello")
	packed := writeXz(t, dir, "packed.xml.xz", "hello xz")

	tests := []struct {
		path string
		want string
	}{
		{plain, "hello"},
		{packed, "hello xz"},
	}
	for _, tt := range tests {
		got, err := ReadFile(tt.path)
		if err != nil {
			t.Fatalf("ReadFile(%s): %v", tt.path, err)
		}
		if string(got) != tt.want {
			t.Errorf("ReadFile(%s) = %q, want %q", filepath.Base(tt.path), got, tt.want)
		}
	}
}

func TestReadFile_Errors(t *testing.T) {
	dir := t.TempDir()
	notXz := writeFile(t, dir, "bad.xml.xz", "not compressed")

	for _, path := range []string{filepath.Join(dir, "missing.xml"), notXz} {
		_, err := ReadFile(path)
		if err == nil {
			t.Errorf("ReadFile(%s) succeeded, want error", filepath.Base(path))
			continue
		}
		var ioErr *errors.IOError
		if !errors.As(err, &ioErr) {
			t.Errorf("ReadFile(%s) error = %T, want *errors.IOError", filepath.Base(path), err)
		}
	}
}

func TestDocumentID(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/data/kjv.osis.xml", "kjv.osis.xml"},
		{"/data/kjv.osis.xml.xz", "kjv.osis.xml"},
		{"web.xml", "web.xml"},
	}
	for _, tt := range tests {
		if got := DocumentID(tt.path); got != tt.want {
			t.Errorf("DocumentID(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := writeXz(t, dir, "gen.xml.xz", osisDoc("TEST", "Gen", 3))

	doc := LoadFile(context.Background(), path, osis.Options{})
	if doc.Err != nil {
		t.Fatalf("LoadFile: %v", doc.Err)
	}
	if doc.Path != path {
		t.Errorf("Path = %q, want %q", doc.Path, path)
	}
	if len(doc.Result.Books) != 1 {
		t.Fatalf("got %d books, want 1", len(doc.Result.Books))
	}
	if got := doc.Result.Books[0].Code; got != "Gen" {
		t.Errorf("book code = %q, want Gen", got)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	doc := LoadFile(context.Background(), filepath.Join(t.TempDir(), "nope.xml"), osis.Options{})
	if doc.Err == nil {
		t.Fatal("expected error for missing file")
	}
	if doc.Result != nil {
		t.Errorf("Result = %v, want nil", doc.Result)
	}
}

func TestLoadFile_StrictKeepsResult(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "odd.xml", `<osis><osisText osisIDWork="T"><div type="book" osisID="Gen">`+
		`<chapter osisID="Gen.1"><verse osisID="Gen.1.1">Text<bogus/></verse></chapter></div></osisText></osis>`)

	doc := LoadFile(context.Background(), path, osis.Options{Strict: true})
	var strict *errors.StrictError
	if !errors.As(doc.Err, &strict) {
		t.Fatalf("Err = %v, want *errors.StrictError", doc.Err)
	}
	if doc.Result == nil || len(doc.Result.Books) != 1 {
		t.Errorf("strict failure should keep the converted book, got %+v", doc.Result)
	}
}

func TestLoadAll_PreservesOrder(t *testing.T) {
	dir := t.TempDir()
	books := []string{"Gen", "Exod", "Lev", "Num", "Deut", "Josh", "Judg", "Ruth"}
	var paths []string
	for i, b := range books {
		paths = append(paths, writeFile(t, dir, fmt.Sprintf("%02d.xml", i), osisDoc("T", b, i+1)))
	}

	var mu sync.Mutex
	seen := 0
	opts := osis.Options{OnBook: func(*ir.Book) {
		mu.Lock()
		seen++
		mu.Unlock()
	}}

	batch, err := LoadAll(context.Background(), paths, 3, opts)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if batch.RunID == "" {
		t.Error("RunID is empty")
	}
	if len(batch.Documents) != len(paths) {
		t.Fatalf("got %d documents, want %d", len(batch.Documents), len(paths))
	}
	for i, doc := range batch.Documents {
		if doc.Path != paths[i] {
			t.Errorf("document %d path = %q, want %q", i, doc.Path, paths[i])
		}
		if doc.Err != nil {
			t.Errorf("document %d: %v", i, doc.Err)
		}
	}
	if got := batch.Books(); got != len(books) {
		t.Errorf("Books() = %d, want %d", got, len(books))
	}
	if seen != len(books) {
		t.Errorf("OnBook called %d times, want %d", seen, len(books))
	}
	if n := len(batch.Failed()); n != 0 {
		t.Errorf("Failed() has %d documents, want 0", n)
	}
}

func TestLoadAll_RecordsFailures(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeFile(t, dir, "good.xml", osisDoc("T", "Gen", 1)),
		filepath.Join(dir, "missing.xml"),
		writeFile(t, dir, "broken.xml", "<osis><osisText></osis>"),
	}

	batch, err := LoadAll(context.Background(), paths, 2, osis.Options{})
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	failed := batch.Failed()
	if len(failed) != 2 {
		t.Fatalf("Failed() = %d documents, want 2", len(failed))
	}
	if failed[0].Path != paths[1] || failed[1].Path != paths[2] {
		t.Errorf("failed paths = %s, %s", failed[0].Path, failed[1].Path)
	}
	var parseErr *errors.ParseError
	if !errors.As(failed[1].Err, &parseErr) {
		t.Errorf("broken.xml error = %T, want *errors.ParseError", failed[1].Err)
	}
}

func TestLoadAll_Cancelled(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeFile(t, dir, "a.xml", osisDoc("T", "Gen", 1)),
		writeFile(t, dir, "b.xml", osisDoc("T", "Exod", 1)),
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch, err := LoadAll(ctx, paths, 1, osis.Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	for i, doc := range batch.Documents {
		if doc == nil {
			t.Fatalf("document %d is nil", i)
		}
		if !errors.Is(doc.Err, context.Canceled) {
			t.Errorf("document %d err = %v, want context.Canceled", i, doc.Err)
		}
	}
}

func TestLoadAll_Empty(t *testing.T) {
	batch, err := LoadAll(context.Background(), nil, 4, osis.Options{})
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(batch.Documents) != 0 || batch.Books() != 0 || batch.Diagnostics() != 0 {
		t.Errorf("empty batch = %+v", batch)
	}
}
