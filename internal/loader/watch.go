package loader

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/FocuswithJustin/osisingest/core/errors"
	"github.com/FocuswithJustin/osisingest/internal/logging"
)

// Extensions lists the file suffixes the loader treats as OSIS documents.
var Extensions = []string{".xml", ".osis", ".xml.xz", ".osis.xz"}

// IsDocument reports whether path has one of the loader's extensions.
func IsDocument(path string) bool {
	name := strings.ToLower(filepath.Base(path))
	for _, ext := range Extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// Settle is how long a file must go without events before Watch hands it
// to fn. Editors and copy tools often create a file and then write it in
// several steps.
var Settle = 200 * time.Millisecond

// Watch calls fn for every document created or written in dir until ctx is
// cancelled, once per burst of events on that path. fn runs on the watching
// goroutine, so a slow fn delays later events.
func Watch(ctx context.Context, dir string, fn func(path string)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create watcher")
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return errors.NewIO("watch", dir, err)
	}
	logging.InfoContext(ctx, "watch_start", "dir", dir)

	pending := make(map[string]*time.Timer)
	ready := make(chan string)
	stop := make(chan struct{})
	defer func() {
		close(stop)
		for _, t := range pending {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case path := <-ready:
			delete(pending, path)
			fn(path)
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !IsDocument(event.Name) {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			logging.DebugContext(ctx, "watch_event", "path", event.Name, "op", event.Op.String())
			if t, ok := pending[event.Name]; ok {
				t.Reset(Settle)
				continue
			}
			path := event.Name
			pending[path] = time.AfterFunc(Settle, func() {
				select {
				case ready <- path:
				case <-stop:
				}
			})
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logging.WarnContext(ctx, "watch_error", "dir", dir, "error", err.Error())
		}
	}
}
