// Package watch re-runs a job whenever corpus files change.
package watch

import (
	"context"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	log "github.com/golang/glog"
)

// DefaultDebounce is how long the watcher waits for a burst of file events
// to settle before running the job.
const DefaultDebounce = 500 * time.Millisecond

// Watcher monitors a directory tree for changes to files matching a
// doublestar pattern.
type Watcher struct {
	watcher  *fsnotify.Watcher
	dir      string
	pattern  string
	debounce time.Duration
}

// New watches dir and every directory below it.
func New(dir, pattern string, debounce time.Duration) (*Watcher, error) {
	if pattern == "" {
		pattern = "*.csv"
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{watcher: fw, dir: dir, pattern: pattern, debounce: debounce}
	if err := w.addTree(dir); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// Run calls job after every settled burst of matching changes until ctx
// is done. A failing job is logged and the watcher keeps going, since the
// next change may fix the input.
func (w *Watcher) Run(ctx context.Context, job func(context.Context) error) error {
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create == fsnotify.Create {
				// new subdirectories need their own watch
				if err := w.addTree(event.Name); err != nil {
					log.V(1).Infof("watch: %v", err)
				}
			}
			if !w.relevant(event) {
				continue
			}
			log.V(1).Infof("watch: %s %s", event.Op, event.Name)
			timer.Reset(w.debounce)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			log.Errorf("watch %s: %v", w.dir, err)
		case <-timer.C:
			log.Infof("watch: corpus under %s changed, regenerating", w.dir)
			if err := job(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				log.Errorf("watch: run failed: %v", err)
			}
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	rel, err := filepath.Rel(w.dir, event.Name)
	if err != nil {
		return false
	}
	ok, err := doublestar.Match(w.pattern, filepath.ToSlash(rel))
	return err == nil && ok
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
}
