/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

package devserver

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"bennypowers.dev/hotmod/internal/logging"
	"bennypowers.dev/hotmod/modpath"
)

// ChangeOp is what happened to a watched path.
type ChangeOp int

const (
	Created ChangeOp = iota
	Modified
	Removed
)

func (op ChangeOp) String() string {
	switch op {
	case Created:
		return "created"
	case Modified:
		return "modified"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// Change is one debounced filesystem change.
type Change struct {
	Path string
	Op   ChangeOp
}

// batch coalesces the events for a path seen within one debounce window.
type batch map[string]ChangeOp

func (b batch) add(path string, op ChangeOp) {
	prev, seen := b[path]
	switch {
	case !seen:
		b[path] = op
	case prev == Created && op == Modified:
		// still new to the graph
	case prev == Removed && op == Created:
		b[path] = Modified
	default:
		b[path] = op
	}
}

func (b batch) drain() []Change {
	changes := make([]Change, 0, len(b))
	for path, op := range b {
		changes = append(changes, Change{Path: path, Op: op})
		delete(b, path)
	}
	slices.SortFunc(changes, func(a, b Change) int {
		return cmp.Compare(a.Path, b.Path)
	})
	return changes
}

// Watcher reports debounced changes below a root directory.
type Watcher struct {
	root   string
	ignore []string
	delay  time.Duration
	logger logging.Logger
}

// NewWatcher creates a watcher for root. ignore holds doublestar patterns
// matched against root-relative paths. logger may be nil.
func NewWatcher(root string, ignore []string, delay time.Duration, logger logging.Logger) (*Watcher, error) {
	for _, pattern := range ignore {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid ignore pattern %q", pattern)
		}
	}
	return &Watcher{root: root, ignore: ignore, delay: delay, logger: logger}, nil
}

// Ignored reports whether path matches an ignore pattern.
func (w *Watcher) Ignored(path string) bool {
	rel := modpath.Key(w.root, path)
	for _, pattern := range w.ignore {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// Run watches until ctx is done. handle is called from Run's goroutine
// with each debounced batch, so batches are processed one at a time.
func (w *Watcher) Run(ctx context.Context, handle func([]Change)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()

	if err := w.addRecursive(fw, w.root); err != nil {
		return err
	}

	pending := make(batch)
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			op, ok := w.classify(fw, event)
			if !ok {
				continue
			}
			pending.add(event.Name, op)
			timer.Reset(w.delay)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			if w.logger != nil {
				w.logger.Warning("File watcher error: %v", err)
			}
		case <-timer.C:
			if changes := pending.drain(); len(changes) > 0 {
				handle(changes)
			}
		}
	}
}

func (w *Watcher) classify(fw *fsnotify.Watcher, event fsnotify.Event) (ChangeOp, bool) {
	if w.Ignored(event.Name) {
		return 0, false
	}
	switch {
	case event.Has(fsnotify.Create):
		info, err := os.Stat(event.Name)
		if err == nil && info.IsDir() {
			if err := w.addRecursive(fw, event.Name); err != nil && w.logger != nil {
				w.logger.Warning("Cannot watch %s: %v", event.Name, err)
			}
			return 0, false
		}
		return Created, true
	case event.Has(fsnotify.Write):
		return Modified, true
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return Removed, true
	default:
		return 0, false
	}
}

func (w *Watcher) addRecursive(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d iofs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, iofs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.Ignored(path) {
			return filepath.SkipDir
		}
		if err := fw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}
