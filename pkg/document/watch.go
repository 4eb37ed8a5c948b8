// ABOUTME: Optional filesystem watcher for the corpus file
// ABOUTME: Debounces change events and triggers Corpus.Reload

package document

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce coalesces the bursts of events editors and pipelines emit.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reloads a Corpus when any of its candidate files changes.
type Watcher struct {
	corpus   *Corpus
	fsw      *fsnotify.Watcher
	targets  map[string]struct{}
	debounce time.Duration
	log      zerolog.Logger
}

// NewWatcher watches the directories of every candidate that exists. It
// fails if none of them does, since there would be nothing to watch.
func NewWatcher(c *Corpus, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		corpus:   c,
		fsw:      fsw,
		targets:  make(map[string]struct{}),
		debounce: debounce,
		log:      c.log.With().Str("subcomponent", "watcher").Logger(),
	}

	dirs := make(map[string]struct{})
	for _, cand := range c.candidates {
		p := cand
		if !filepath.IsAbs(p) {
			p = filepath.Join(c.root, cand)
		}
		p = filepath.Clean(p)
		w.targets[p] = struct{}{}

		dir := filepath.Dir(p)
		if _, seen := dirs[dir]; seen {
			continue
		}
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			continue
		}
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		dirs[dir] = struct{}{}
	}

	if len(dirs) == 0 {
		fsw.Close()
		return nil, fmt.Errorf("no corpus directory exists under %q", c.root)
	}

	return w, nil
}

// Run processes events until ctx is cancelled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if _, hit := w.targets[filepath.Clean(ev.Name)]; !hit {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
				!ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
				continue
			}
			w.log.Debug().Str("file", ev.Name).Str("op", ev.Op.String()).Msg("Corpus file changed")
			timer.Reset(w.debounce)

		case <-timer.C:
			if err := w.corpus.Reload(ctx); err != nil {
				w.log.Error().Err(err).Msg("Corpus reload failed")
				continue
			}
			w.log.Info().Str("path", w.corpus.Path()).Msg("Corpus reloaded")

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn().Err(err).Msg("Watcher error")
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
