// Package store persists conversion runs to SQLite. Book contents are
// stored once per BLAKE3 hash; runs reference them.
package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/FocuswithJustin/osisingest/core/errors"
	"github.com/FocuswithJustin/osisingest/core/ir"
	"github.com/FocuswithJustin/osisingest/core/sqlite"
	"github.com/FocuswithJustin/osisingest/internal/loader"
	"github.com/FocuswithJustin/osisingest/internal/logging"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	started_at TEXT NOT NULL,
	documents  INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS documents (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	seq         INTEGER NOT NULL,
	path        TEXT NOT NULL,
	work_id     TEXT NOT NULL DEFAULT '',
	title       TEXT NOT NULL DEFAULT '',
	language    TEXT NOT NULL DEFAULT '',
	error       TEXT NOT NULL DEFAULT '',
	duration_ms INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (run_id, seq)
);
CREATE TABLE IF NOT EXISTS books (
	hash  TEXT PRIMARY KEY,
	code  TEXT NOT NULL,
	lines INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS book_lines (
	hash   TEXT NOT NULL REFERENCES books(hash),
	seq    INTEGER NOT NULL,
	marker TEXT NOT NULL,
	text   TEXT NOT NULL,
	PRIMARY KEY (hash, seq)
);
CREATE TABLE IF NOT EXISTS run_books (
	run_id   TEXT NOT NULL REFERENCES runs(id),
	doc_seq  INTEGER NOT NULL,
	position INTEGER NOT NULL,
	code     TEXT NOT NULL,
	hash     TEXT NOT NULL REFERENCES books(hash),
	PRIMARY KEY (run_id, doc_seq, position)
);
CREATE TABLE IF NOT EXISTS diagnostics (
	run_id  TEXT NOT NULL REFERENCES runs(id),
	doc_seq INTEGER NOT NULL,
	seq     INTEGER NOT NULL,
	message TEXT NOT NULL,
	PRIMARY KEY (run_id, doc_seq, seq)
);
`

// ErrRunNotFound is returned for a run id the store has never saved.
var ErrRunNotFound = errors.New("run not found")

// Store is a SQLite-backed record of conversion runs.
type Store struct {
	db *sql.DB
}

// Open opens or creates the store at path.
func Open(path string) (*Store, error) {
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create schema")
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// BookRef is one book of a saved run.
type BookRef struct {
	Document string
	Code     string
	Hash     string
	Lines    int
}

// SaveBatch records a run in one transaction. Books whose hash is already
// stored are referenced, not copied. It returns the number of books that
// were new to the store.
func (s *Store) SaveBatch(ctx context.Context, batch *loader.Batch) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO runs (id, started_at, documents) VALUES (?, ?, ?)",
		batch.RunID, batch.StartedAt.UTC().Format(time.RFC3339Nano), len(batch.Documents)); err != nil {
		return 0, errors.Wrapf(err, "insert run %s", batch.RunID)
	}

	added := 0
	for i, doc := range batch.Documents {
		if doc == nil {
			continue
		}
		n, err := saveDocument(ctx, tx, batch.RunID, i, doc)
		if err != nil {
			return 0, err
		}
		added += n
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "commit")
	}
	logging.InfoContext(ctx, "batch_saved", "run_id", batch.RunID, "documents", len(batch.Documents), "new_books", added)
	return added, nil
}

func saveDocument(ctx context.Context, tx *sql.Tx, runID string, seq int, doc *loader.Document) (int, error) {
	var workID, title, lang, msg string
	if doc.Result != nil {
		workID, title, lang = doc.Result.WorkID, doc.Result.Title, doc.Result.Language
	}
	if doc.Err != nil {
		msg = doc.Err.Error()
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO documents (run_id, seq, path, work_id, title, language, error, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, seq, doc.Path, workID, title, lang, msg, doc.Duration.Milliseconds()); err != nil {
		return 0, errors.Wrapf(err, "insert document %s", doc.Path)
	}
	if doc.Result == nil {
		return 0, nil
	}

	for i, d := range doc.Result.Diagnostics {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO diagnostics (run_id, doc_seq, seq, message) VALUES (?, ?, ?, ?)",
			runID, seq, i, d); err != nil {
			return 0, errors.Wrap(err, "insert diagnostic")
		}
	}

	added := 0
	for pos, book := range doc.Result.Books {
		hash := book.Hash()
		isNew, err := saveBook(ctx, tx, hash, book)
		if err != nil {
			return 0, err
		}
		if isNew {
			added++
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO run_books (run_id, doc_seq, position, code, hash) VALUES (?, ?, ?, ?, ?)",
			runID, seq, pos, book.Code, hash); err != nil {
			return 0, errors.Wrapf(err, "insert run book %s", book.Code)
		}
	}
	return added, nil
}

// saveBook stores a book's lines unless its hash is already present.
func saveBook(ctx context.Context, tx *sql.Tx, hash string, book *ir.Book) (bool, error) {
	res, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO books (hash, code, lines) VALUES (?, ?, ?)",
		hash, book.Code, len(book.Lines))
	if err != nil {
		return false, errors.Wrapf(err, "insert book %s", book.Code)
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return false, err
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO book_lines (hash, seq, marker, text) VALUES (?, ?, ?, ?)")
	if err != nil {
		return false, errors.Wrap(err, "prepare line insert")
	}
	defer stmt.Close()
	for i, l := range book.Lines {
		if _, err := stmt.ExecContext(ctx, hash, i, l.Marker, l.Text); err != nil {
			return false, errors.Wrapf(err, "insert line %d of %s", i, book.Code)
		}
	}
	return true, nil
}

func (s *Store) checkRun(ctx context.Context, runID string) error {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs WHERE id = ?", runID).Scan(&n); err != nil {
		return errors.Wrap(err, "query run")
	}
	if n == 0 {
		return errors.Wrapf(ErrRunNotFound, "run %s", runID)
	}
	return nil
}

// Books lists a run's books in input and document order.
func (s *Store) Books(ctx context.Context, runID string) ([]BookRef, error) {
	if err := s.checkRun(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.path, rb.code, rb.hash, b.lines
		FROM run_books rb
		JOIN documents d ON d.run_id = rb.run_id AND d.seq = rb.doc_seq
		JOIN books b ON b.hash = rb.hash
		WHERE rb.run_id = ?
		ORDER BY rb.doc_seq, rb.position`, runID)
	if err != nil {
		return nil, errors.Wrap(err, "query books")
	}
	defer rows.Close()

	var out []BookRef
	for rows.Next() {
		var r BookRef
		if err := rows.Scan(&r.Document, &r.Code, &r.Hash, &r.Lines); err != nil {
			return nil, errors.Wrap(err, "scan book")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Lines returns the lines of the first book with the given code in a run.
// A code the run does not contain yields no lines and no error.
func (s *Store) Lines(ctx context.Context, runID, code string) ([]ir.Line, error) {
	if err := s.checkRun(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT bl.marker, bl.text
		FROM book_lines bl
		WHERE bl.hash = (
			SELECT hash FROM run_books
			WHERE run_id = ? AND code = ?
			ORDER BY doc_seq, position LIMIT 1)
		ORDER BY bl.seq`, runID, code)
	if err != nil {
		return nil, errors.Wrap(err, "query lines")
	}
	defer rows.Close()

	var out []ir.Line
	for rows.Next() {
		var l ir.Line
		if err := rows.Scan(&l.Marker, &l.Text); err != nil {
			return nil, errors.Wrap(err, "scan line")
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Diagnostics returns a run's diagnostics keyed by document path.
func (s *Store) Diagnostics(ctx context.Context, runID string) (map[string][]string, error) {
	if err := s.checkRun(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.path, g.message
		FROM diagnostics g
		JOIN documents d ON d.run_id = g.run_id AND d.seq = g.doc_seq
		WHERE g.run_id = ?
		ORDER BY g.doc_seq, g.seq`, runID)
	if err != nil {
		return nil, errors.Wrap(err, "query diagnostics")
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var path, msg string
		if err := rows.Scan(&path, &msg); err != nil {
			return nil, errors.Wrap(err, "scan diagnostic")
		}
		out[path] = append(out[path], msg)
	}
	return out, rows.Err()
}
