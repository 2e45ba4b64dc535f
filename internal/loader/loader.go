// Package loader feeds OSIS files to the converter, one converter per
// document, optionally in parallel, and gathers the results of a run.
package loader

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/osisingest/core/errors"
	"github.com/FocuswithJustin/osisingest/internal/formats/osis"
	"github.com/FocuswithJustin/osisingest/internal/logging"
)

// Document is the outcome of loading one file.
type Document struct {
	Path     string
	Result   *osis.Result
	Err      error
	Duration time.Duration
}

// Batch is one run over a set of files.
type Batch struct {
	RunID     string
	StartedAt time.Time

	// Documents are in input order regardless of completion order.
	Documents []*Document
}

// Books returns the number of books converted in the run.
func (b *Batch) Books() int {
	n := 0
	for _, d := range b.Documents {
		if d.Result != nil {
			n += len(d.Result.Books)
		}
	}
	return n
}

// Diagnostics returns the number of diagnostics recorded in the run.
func (b *Batch) Diagnostics() int {
	n := 0
	for _, d := range b.Documents {
		if d.Result != nil {
			n += len(d.Result.Diagnostics)
		}
	}
	return n
}

// Failed returns the documents that produced an error, strict errors
// included.
func (b *Batch) Failed() []*Document {
	var out []*Document
	for _, d := range b.Documents {
		if d.Err != nil {
			out = append(out, d)
		}
	}
	return out
}

// ReadFile reads path, decompressing it when it ends in ".xz".
func ReadFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".xz") {
		xzr, err := xz.NewReader(f)
		if err != nil {
			return nil, errors.NewIO("decompress", path, err)
		}
		r = xzr
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, errors.NewIO("read", path, err)
	}
	return buf.Bytes(), nil
}

// DocumentID is the identifier a file is known by in diagnostics and quirk
// lookups: its base name without a compression suffix.
func DocumentID(path string) string {
	return strings.TrimSuffix(filepath.Base(path), ".xz")
}

// LoadFile reads and converts one file. The returned document carries the
// result even when Err is a strict-mode error.
func LoadFile(ctx context.Context, path string, opts osis.Options) *Document {
	start := time.Now()
	doc := &Document{Path: path}
	id := DocumentID(path)

	if opts.DocumentID == "" {
		opts.DocumentID = id
	}
	if opts.Logger == nil {
		opts.Logger = logging.LoggerFromContext(ctx)
	}

	logging.ConversionStart(ctx, id, "path", path)

	data, err := ReadFile(path)
	if err != nil {
		doc.Err = err
		doc.Duration = time.Since(start)
		logging.ConversionError(ctx, id, err)
		return doc
	}

	doc.Result, doc.Err = osis.ConvertBytes(data, opts)
	doc.Duration = time.Since(start)

	switch {
	case doc.Result == nil:
		logging.ConversionError(ctx, id, doc.Err)
	default:
		logging.ConversionDone(ctx, id, len(doc.Result.Books), len(doc.Result.Diagnostics), doc.Duration)
		if doc.Err != nil {
			logging.WarnContext(ctx, "strict_failure", "document", id, "error", doc.Err.Error())
		}
	}
	return doc
}

type job struct {
	index int
	path  string
}

type jobResult struct {
	index int
	doc   *Document
}

// LoadAll converts every path on a worker pool of the given size. Each
// document gets its own converter. OnBook in opts, if set, is called from
// several goroutines.
//
// When ctx is cancelled, documents not yet started are recorded with the
// context error, and that error is also returned.
func LoadAll(ctx context.Context, paths []string, workers int, opts osis.Options) (*Batch, error) {
	batch := &Batch{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		Documents: make([]*Document, len(paths)),
	}
	if len(paths) == 0 {
		return batch, nil
	}
	ctx = logging.WithRunID(ctx, batch.RunID)

	pool := NewWorkerPool[job, jobResult](workers, len(paths))
	pool.Start(ctx, func(ctx context.Context, j job) jobResult {
		if err := ctx.Err(); err != nil {
			return jobResult{index: j.index, doc: &Document{Path: j.path, Err: err}}
		}
		return jobResult{index: j.index, doc: LoadFile(ctx, j.path, opts)}
	})
	for i, p := range paths {
		pool.Submit(job{index: i, path: p})
	}
	pool.Close()

	for r := range pool.Results() {
		batch.Documents[r.index] = r.doc
	}

	logging.InfoContext(ctx, "batch_done",
		"documents", len(paths),
		"workers", pool.Workers(),
		"books", batch.Books(),
		"diagnostics", batch.Diagnostics(),
		"failed", len(batch.Failed()),
	)
	return batch, ctx.Err()
}
