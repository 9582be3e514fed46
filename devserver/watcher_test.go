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
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchCoalesces(t *testing.T) {
	b := make(batch)
	b.add("/p/new.js", Created)
	b.add("/p/new.js", Modified)
	b.add("/p/gone.js", Modified)
	b.add("/p/gone.js", Removed)
	b.add("/p/back.js", Removed)
	b.add("/p/back.js", Created)
	b.add("/p/a.js", Modified)
	b.add("/p/a.js", Modified)

	assert.Equal(t, []Change{
		{Path: "/p/a.js", Op: Modified},
		{Path: "/p/back.js", Op: Modified},
		{Path: "/p/gone.js", Op: Removed},
		{Path: "/p/new.js", Op: Created},
	}, b.drain())
	assert.Empty(t, b.drain())
}

func TestChangeOpString(t *testing.T) {
	assert.Equal(t, "created", Created.String())
	assert.Equal(t, "modified", Modified.String())
	assert.Equal(t, "removed", Removed.String())
	assert.Equal(t, "unknown", ChangeOp(9).String())
}

func TestWatcherIgnored(t *testing.T) {
	w, err := NewWatcher("/p", []string{"**/node_modules/**", "**/.git/**", "dist/**"}, 0, nil)
	require.NoError(t, err)

	tests := map[string]bool{
		"/p/src/a.js":                  false,
		"/p/node_modules":              true,
		"/p/node_modules/lit/index.js": true,
		"/p/packages/ui/node_modules":  true,
		"/p/.git/HEAD":                 true,
		"/p/dist/out.js":               true,
		"/p/src/dist/out.js":           false,
	}
	for path, want := range tests {
		assert.Equal(t, want, w.Ignored(path), path)
	}
}

func TestNewWatcherRejectsBadPattern(t *testing.T) {
	_, err := NewWatcher("/p", []string{"src/[a"}, 0, nil)
	assert.Error(t, err)
}

func TestWatcherRun(t *testing.T) {
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules", "lit"), 0755))

	w, err := NewWatcher(root, []string{"**/node_modules/**"}, 20*time.Millisecond, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	batches := make(chan []Change, 10)
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, func(c []Change) { batches <- c }) }()

	// give the watcher time to register directories
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(root, "node_modules", "lit", "index.js"), []byte("x"), 0644))
	file := filepath.Join(root, "src", "a.js")
	require.NoError(t, os.WriteFile(file, []byte("export {}"), 0644))

	select {
	case changes := <-batches:
		require.Len(t, changes, 1)
		assert.Equal(t, file, changes[0].Path)
		assert.Equal(t, Created, changes[0].Op)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
