// Command osisingest converts OSIS XML Bibles into canonical marker/text
// lines, optionally saving runs to a SQLite store.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/FocuswithJustin/osisingest/core/errors"
	"github.com/FocuswithJustin/osisingest/core/ir"
	"github.com/FocuswithJustin/osisingest/core/sqlite"
	"github.com/FocuswithJustin/osisingest/core/xml"
	"github.com/FocuswithJustin/osisingest/internal/formats/osis"
	"github.com/FocuswithJustin/osisingest/internal/loader"
	"github.com/FocuswithJustin/osisingest/internal/logging"
	"github.com/FocuswithJustin/osisingest/internal/store"
)

const version = "0.1.0"

// Globals are flags shared by every command.
type Globals struct {
	LogLevel  string `name:"log-level" help:"Log level (debug, info, warn, error)" default:"info" enum:"debug,info,warn,error"`
	LogFormat string `name:"log-format" help:"Log format (text, json)" default:"text" enum:"text,json"`
}

// CLI defines the command-line interface for osisingest.
var CLI struct {
	Globals

	Convert  ConvertCmd  `cmd:"" help:"Convert OSIS files to canonical lines"`
	Validate ValidateCmd `cmd:"" help:"Check well-formedness and summarize an OSIS file"`
	Watch    WatchCmd    `cmd:"" help:"Convert OSIS files as they appear in a directory"`
	Version  VersionCmd  `cmd:"" help:"Print version information"`
}

// ConversionFlags configure the converter and the outputs of a run.
type ConversionFlags struct {
	Strict  bool   `help:"Fail documents that record any diagnostic"`
	Debug   bool   `help:"Log every diagnostic as it is recorded"`
	Quirks  string `help:"YAML quirks table" type:"existingfile"`
	Workers int    `help:"Documents converted in parallel (0 = one per CPU)" default:"0"`
	Out     string `help:"Write one JSON file per document to this directory" type:"path"`
	DB      string `name:"db" help:"Save runs to this SQLite database" type:"path"`
}

func (f *ConversionFlags) options() (osis.Options, error) {
	opts := osis.Options{Strict: f.Strict, Debug: f.Debug}
	if f.Quirks != "" {
		q, err := osis.LoadQuirks(f.Quirks)
		if err != nil {
			return opts, err
		}
		opts.Quirks = q
	}
	return opts, nil
}

// save writes a finished batch to the configured outputs.
func (f *ConversionFlags) save(ctx context.Context, batch *loader.Batch) error {
	if f.Out != "" {
		if err := os.MkdirAll(f.Out, 0755); err != nil {
			return errors.NewIO("mkdir", f.Out, err)
		}
		for _, doc := range batch.Documents {
			if doc.Result == nil {
				continue
			}
			if err := writeDocument(f.Out, doc); err != nil {
				return err
			}
		}
	}
	if f.DB != "" {
		st, err := store.Open(f.DB)
		if err != nil {
			return err
		}
		defer st.Close()
		if _, err := st.SaveBatch(ctx, batch); err != nil {
			return err
		}
	}
	return nil
}

// documentJSON is the on-disk form of one converted document.
type documentJSON struct {
	Source      string     `json:"source"`
	WorkID      string     `json:"work_id,omitempty"`
	Title       string     `json:"title,omitempty"`
	Language    string     `json:"language,omitempty"`
	RefSystem   string     `json:"ref_system,omitempty"`
	Books       []*ir.Book `json:"books"`
	Diagnostics []string   `json:"diagnostics"`
}

func writeDocument(dir string, doc *loader.Document) error {
	res := doc.Result
	data, err := json.MarshalIndent(documentJSON{
		Source:      doc.Path,
		WorkID:      res.WorkID,
		Title:       res.Title,
		Language:    res.Language,
		RefSystem:   res.RefSystem,
		Books:       res.Books,
		Diagnostics: res.Diagnostics,
	}, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "encode %s", doc.Path)
	}
	name := strings.TrimSuffix(loader.DocumentID(doc.Path), filepath.Ext(loader.DocumentID(doc.Path))) + ".json"
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.NewIO("write", path, err)
	}
	return nil
}

// ConvertCmd converts a set of files in one run.
type ConvertCmd struct {
	ConversionFlags

	Files []string `arg:"" help:"OSIS files (.xml, .osis, optionally .xz compressed)" type:"existingfile"`
}

func (c *ConvertCmd) Run(ctx context.Context) error {
	opts, err := c.options()
	if err != nil {
		return err
	}

	batch, err := loader.LoadAll(ctx, c.Files, c.Workers, opts)
	if err != nil {
		return err
	}
	if err := c.save(ctx, batch); err != nil {
		return err
	}

	for _, doc := range batch.Documents {
		status := "ok"
		if doc.Err != nil {
			status = "FAILED: " + doc.Err.Error()
		}
		books, diags := 0, 0
		if doc.Result != nil {
			books, diags = len(doc.Result.Books), len(doc.Result.Diagnostics)
		}
		fmt.Printf("%s: %d books, %d diagnostics, %s\n", doc.Path, books, diags, status)
	}
	fmt.Printf("run %s: %d documents, %d books, %d diagnostics\n",
		batch.RunID, len(batch.Documents), batch.Books(), batch.Diagnostics())

	if failed := batch.Failed(); len(failed) > 0 {
		return fmt.Errorf("%d of %d documents failed", len(failed), len(batch.Documents))
	}
	return nil
}

// ValidateCmd checks a single file and compares the converter's verse count
// against an XPath census of the document.
type ValidateCmd struct {
	File   string `arg:"" help:"OSIS file" type:"existingfile"`
	Quirks string `help:"YAML quirks table" type:"existingfile"`
}

func (c *ValidateCmd) Run(ctx context.Context) error {
	data, err := loader.ReadFile(c.File)
	if err != nil {
		return err
	}

	if v := xml.Validate(data); !v.Valid {
		for _, e := range v.Errors {
			fmt.Printf("%s:%d:%d: %s\n", c.File, e.Line, e.Column, e.Message)
		}
		return fmt.Errorf("%s is not well-formed", c.File)
	}
	if !osis.Detect(data) {
		return errors.Wrapf(errors.ErrUnsupported, "%s does not look like OSIS", c.File)
	}

	doc, err := xml.Parse(data)
	if err != nil {
		return errors.NewParse("OSIS", c.File, err)
	}
	summary, err := osis.Inspect(doc)
	if err != nil {
		return err
	}

	opts := osis.Options{DocumentID: loader.DocumentID(c.File), Logger: logging.LoggerFromContext(ctx)}
	if c.Quirks != "" {
		if opts.Quirks, err = osis.LoadQuirks(c.Quirks); err != nil {
			return err
		}
	}
	res, err := osis.Convert(doc.Tree(), opts)
	if err != nil {
		return err
	}

	verses := 0
	for _, b := range res.Books {
		verses += b.Count(ir.MarkerVerse)
	}

	fmt.Printf("work:        %s\n", summary.WorkID)
	fmt.Printf("books:       %d\n", summary.Books)
	fmt.Printf("chapters:    %d\n", summary.Chapters)
	fmt.Printf("verses:      %d (converted %d)\n", summary.Verses, verses)
	fmt.Printf("notes:       %d\n", summary.Notes)
	fmt.Printf("diagnostics: %d\n", len(res.Diagnostics))
	for _, d := range res.Diagnostics {
		fmt.Printf("  %s\n", d)
	}

	if verses != summary.Verses {
		return fmt.Errorf("verse count mismatch: document has %d, converted %d", summary.Verses, verses)
	}
	return nil
}

// WatchCmd converts every OSIS file written into a directory.
type WatchCmd struct {
	ConversionFlags

	Dir string `arg:"" help:"Directory to watch" type:"existingdir"`
}

func (c *WatchCmd) Run(ctx context.Context) error {
	opts, err := c.options()
	if err != nil {
		return err
	}
	fmt.Printf("Watching %s (Ctrl+C to stop)\n", c.Dir)

	return loader.Watch(ctx, c.Dir, func(path string) {
		batch, err := loader.LoadAll(ctx, []string{path}, 1, opts)
		if err != nil {
			return
		}
		if err := c.save(ctx, batch); err != nil {
			logging.ErrorContext(ctx, "save_failed", "path", path, "error", err.Error())
			return
		}
		doc := batch.Documents[0]
		if doc.Err != nil {
			fmt.Printf("%s: FAILED: %v\n", path, doc.Err)
			return
		}
		fmt.Printf("%s: %d books, %d diagnostics\n", path, len(doc.Result.Books), len(doc.Result.Diagnostics))
	})
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	info := sqlite.GetInfo()
	fmt.Printf("osisingest version %s (sqlite driver: %s)\n", version, info.Package)
	return nil
}

// setupLogging installs the global logger. debug lowers the level so
// diagnostics requested with --debug are not filtered out.
func setupLogging(g *Globals, debug bool) error {
	level, err := logging.ParseLevel(g.LogLevel)
	if err != nil {
		return err
	}
	if debug {
		level = logging.LevelDebug
	}
	format, err := logging.ParseFormat(g.LogFormat)
	if err != nil {
		return err
	}
	logging.InitLogger(level, format)
	return nil
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("osisingest"),
		kong.Description("OSIS XML to canonical line converter"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	kctx.FatalIfErrorf(setupLogging(&CLI.Globals, CLI.Convert.Debug || CLI.Watch.Debug))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kctx.BindTo(ctx, (*context.Context)(nil))
	err := kctx.Run()
	kctx.FatalIfErrorf(err)
}
