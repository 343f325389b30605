package vfx

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// effectExt is the file extension for effect shader sources.
const effectExt = ".wgsl"

//go:embed effects
var embeddedEffects embed.FS

// ContentSource resolves effect shader source and image bytes by name.
// *Library is the production implementation; tests substitute stubs.
// Implementations must be safe for concurrent use: fetches run on
// worker goroutines.
type ContentSource interface {
	// Source returns the WGSL source of the named effect.
	Source(name string) (string, error)

	// ImageData returns the raw bytes of the named image file.
	ImageData(name string) ([]byte, error)
}

// Library serves effect shaders and images from the embedded stock set
// and an optional on-disk directory. Disk entries shadow embedded ones,
// so a directory can override a stock effect for live editing.
//
// Library is safe for concurrent use.
type Library struct {
	dir string

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	changed map[string]struct{}
	done    chan struct{}
}

// NewLibrary creates a library. dir is the override directory; pass ""
// to serve the embedded stock effects only.
func NewLibrary(dir string) *Library {
	return &Library{dir: dir}
}

// Source returns the WGSL source of the named effect, e.g. "purple".
// A "<name>.wgsl" file in the override directory wins over the
// embedded stock effect of the same name. Missing effects return an
// error wrapping ErrNotFound.
func (l *Library) Source(name string) (string, error) {
	data, err := l.read(name + effectExt)
	if err != nil {
		return "", fmt.Errorf("effect %q: %w", name, err)
	}
	return string(data), nil
}

// ImageData returns the raw bytes of the named image file, e.g.
// "smoke.png". Lookup order matches Source. Missing images return an
// error wrapping ErrNotFound.
func (l *Library) ImageData(name string) ([]byte, error) {
	data, err := l.read(name)
	if err != nil {
		return nil, fmt.Errorf("image %q: %w", name, err)
	}
	return data, nil
}

// read fetches one file, disk first, then the embedded set.
func (l *Library) read(file string) ([]byte, error) {
	if l.dir != "" {
		data, err := os.ReadFile(filepath.Join(l.dir, file))
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	data, err := embeddedEffects.ReadFile("effects/" + file)
	if err == nil {
		return data, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return nil, err
}

// Watch starts watching the override directory for changes. Modified
// entries accumulate until drained with Changed. Watch fails when the
// library has no directory.
func (l *Library) Watch() error {
	if l.dir == "" {
		return fmt.Errorf("vfx: library has no directory to watch")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.watcher != nil {
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch library: %w", err)
	}
	if err := w.Add(l.dir); err != nil {
		w.Close()
		return fmt.Errorf("watch %q: %w", l.dir, err)
	}

	l.watcher = w
	l.changed = make(map[string]struct{})
	l.done = make(chan struct{})
	go l.watch(w, l.done)
	return nil
}

// watch records change events until the watcher or library closes.
func (l *Library) watch(w *fsnotify.Watcher, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) ||
				ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove) {
				l.record(ev.Name)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			Logger().Warn("library watch error", "dir", l.dir, "error", err)
		}
	}
}

// record notes one changed file under its content name: effects lose
// their extension, images keep theirs.
func (l *Library) record(path string) {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, effectExt)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.changed == nil {
		return
	}
	l.changed[name] = struct{}{}
}

// Changed drains the set of content names modified since the last
// call, sorted for determinism. It returns nil when nothing changed
// or the library is not watching.
func (l *Library) Changed() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.changed) == 0 {
		return nil
	}
	names := make([]string, 0, len(l.changed))
	for name := range l.changed {
		names = append(names, name)
	}
	l.changed = make(map[string]struct{})
	sort.Strings(names)
	return names
}

// Close stops watching. It is safe to call multiple times and on a
// library that never watched.
func (l *Library) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.watcher == nil {
		return nil
	}
	close(l.done)
	err := l.watcher.Close()
	l.watcher = nil
	l.changed = nil
	return err
}
