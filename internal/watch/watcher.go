// Package watch re-runs the analysis whenever the input export file is
// rewritten. Each trigger is a fresh full pass over the file, not
// incremental ingestion.
package watch

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher monitors one input file and invokes onChange on every rewrite.
type Watcher struct {
	path     string
	onChange func()
	log      zerolog.Logger
}

func New(path string, onChange func(), log zerolog.Logger) *Watcher {
	return &Watcher{path: path, onChange: onChange, log: log}
}

// Run watches the input file's directory until ctx is done. Editors and
// exporters commonly replace files via rename, so Create and Rename events
// for the watched name count as changes too.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return err
	}
	w.log.Info().Str("path", w.path).Msg("watching input for changes")

	target := filepath.Clean(w.path)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt := <-watcher.Events:
			if filepath.Clean(evt.Name) != target {
				continue
			}
			if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.log.Info().Str("op", evt.Op.String()).Msg("input changed, re-running analysis")
			w.onChange()
		case err := <-watcher.Errors:
			w.log.Warn().Err(err).Msg("watcher error")
		}
	}
}
