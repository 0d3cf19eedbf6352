package provider

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/thiagokokada/gitviz-go/internal/debounce"
)

const nudgeDebounceDelay = 350 * time.Millisecond

// watcher turns repository metadata writes into debounced nudges.
type watcher struct {
	fs       *fsnotify.Watcher
	debounce *debounce.Debouncer
	wg       sync.WaitGroup
}

func startWatch(root string, nudge func()) (*watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}
	for path := range watchPaths(root) {
		slog.Debug("adding path to FS watcher", slog.String("path", path))
		if err := fw.Add(path); err != nil {
			err := errors.Join(err, fw.Close())
			return nil, fmt.Errorf("watch %s: %w", path, err)
		}
	}
	w := &watcher{fs: fw}
	debounce.Ensure(&w.debounce, nudgeDebounceDelay, func() {
		slog.Debug("filesystem nudge")
		nudge()
	})
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.loop()
	}()
	return w, nil
}

func (w *watcher) loop() {
	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if shouldIgnoreWatchPath(ev.Name) {
				continue
			}
			slog.Debug("fsnotify event",
				slog.String("op", ev.Op.String()),
				slog.String("path", ev.Name),
			)
			w.debounce.Trigger()
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			slog.Error("fsnotify error", slog.Any("error", err))
		}
	}
}

func (w *watcher) Close() {
	w.debounce.Stop()
	if err := w.fs.Close(); err != nil {
		slog.Error("watcher close", slog.Any("error", err))
	}
	w.wg.Wait()
}

// watchPaths yields the metadata directories whose changes move references:
// .git itself (HEAD, packed-refs) and every directory under .git/refs, since
// fsnotify does not recurse. Without a .git directory the root is watched so
// that a later git init is noticed.
func watchPaths(root string) iter.Seq[string] {
	return func(yield func(string) bool) {
		if root == "" {
			return
		}
		gitDir := filepath.Join(root, ".git")
		info, err := os.Stat(gitDir)
		if err != nil || !info.IsDir() {
			yield(root)
			return
		}
		if !yield(gitDir) {
			return
		}
		stop := errors.New("stop")
		_ = filepath.WalkDir(filepath.Join(gitDir, "refs"), func(path string, d fs.DirEntry, err error) error {
			if err != nil || !d.IsDir() {
				return nil
			}
			if !yield(path) {
				return stop
			}
			return nil
		})
	}
}

func shouldIgnoreWatchPath(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".lock" || ext == ".ipc"
}
