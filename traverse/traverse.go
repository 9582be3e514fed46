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

// Package traverse rebuilds the transitive import edges of a set of entry
// points from a compiler manifest, without parsing any source.
package traverse

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"

	"bennypowers.dev/hotmod/graph"
	"bennypowers.dev/hotmod/manifest"
	"bennypowers.dev/hotmod/modpath"
)

// ErrNotAbsolute is returned when the working directory or an entry point
// is a relative path.
var ErrNotAbsolute = errors.New("path must be absolute")

// ErrMissingEntry matches every *MissingEntryError.
var ErrMissingEntry = errors.New("manifest entry missing")

// Edge is one import: Importer imports ResolvedImportPath. Both are absolute.
type Edge struct {
	Importer           string `json:"importer"`
	ResolvedImportPath string `json:"resolvedImportPath"`
}

// MissingEntryError reports a reachable path the manifest has no input for.
type MissingEntryError struct {
	// Path is the manifest key that was looked up.
	Path string
	// Known is every input key in the manifest, sorted.
	Known []string
}

func (e *MissingEntryError) Error() string {
	return fmt.Sprintf("entry %s is not present in manifest inputs [%s]",
		e.Path, strings.Join(e.Known, ", "))
}

// Is lets errors.Is(err, ErrMissingEntry) match.
func (e *MissingEntryError) Is(target error) bool {
	return target == ErrMissingEntry
}

// StopFunc reports whether the traversal should treat resolved as a leaf.
// It is applied by the compiler while it builds the manifest.
type StopFunc func(resolved string) bool

// Options configures a compiler-backed traversal.
type Options struct {
	// Entries are absolute entry point paths.
	Entries []string
	// Cwd is the absolute directory manifest paths are relative to.
	Cwd string
	// Extensions is the resolution extension list, e.g. ".ts", ".js".
	Extensions []string
	// Stop marks resolved paths as external. Nil traverses everything.
	Stop StopFunc
}

// Compiler builds entry points and returns the manifest of the build.
// Implementations own their output location and must clean it up.
type Compiler interface {
	Compile(ctx context.Context, opts Options) (*manifest.Manifest, error)
}

// Traverse compiles opts.Entries and returns their import edges.
// Path preconditions are checked before the compiler is invoked.
func Traverse(ctx context.Context, c Compiler, opts Options) ([]Edge, error) {
	if err := checkAbs("working directory", opts.Cwd); err != nil {
		return nil, err
	}
	for _, entry := range opts.Entries {
		if err := checkAbs("entry", entry); err != nil {
			return nil, err
		}
	}
	m, err := c.Compile(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("compiling %d entry points: %w", len(opts.Entries), err)
	}
	return FromManifest(m, opts.Entries, opts.Cwd)
}

// FromManifest walks every entry and returns the combined edges, in
// breadth-first order per entry, with repeated importer/import pairs removed.
func FromManifest(m *manifest.Manifest, entries []string, cwd string) ([]Edge, error) {
	var all []Edge
	for _, entry := range entries {
		edges, err := Walk(m, entry, cwd)
		if err != nil {
			return nil, err
		}
		all = append(all, edges...)
	}
	return modpath.Unique(all, edgeKey), nil
}

// Walk expands entry breadth-first through the manifest and returns one edge
// per direct import of every reachable input. Each input is expanded once,
// so cycles terminate. Imports the compiler marked external are skipped.
func Walk(m *manifest.Manifest, entry, cwd string) ([]Edge, error) {
	if err := checkAbs("working directory", cwd); err != nil {
		return nil, err
	}
	if err := checkAbs("entry", entry); err != nil {
		return nil, err
	}

	processed := make(map[string]struct{})
	queue := []string{filepath.Clean(entry)}
	var edges []Edge

	for len(queue) > 0 {
		file := queue[0]
		queue = queue[1:]
		if _, done := processed[file]; done {
			continue
		}
		processed[file] = struct{}{}

		input, ok := lookup(m, cwd, file)
		if !ok {
			return nil, errors.WithHintf(
				&MissingEntryError{Path: modpath.Key(cwd, file), Known: m.Keys()},
				"manifest paths are resolved against %s", cwd)
		}

		for _, imp := range input.Imports {
			if imp.External {
				continue
			}
			resolved := modpath.Abs(cwd, imp.Path)
			edges = append(edges, Edge{Importer: file, ResolvedImportPath: resolved})
			if _, done := processed[resolved]; !done {
				queue = append(queue, resolved)
			}
		}
	}
	return edges, nil
}

// Seed records edges in g as import relations between root-relative keys.
// Every entry and every module the edges mention has its importees
// replaced, so imports missing from this traversal are dropped.
func Seed(g *graph.Graph, root string, entries []string, edges []Edge) {
	importees := make(map[string][]string)
	var order []string
	reach := func(file string) string {
		key := modpath.Key(root, file)
		if _, ok := importees[key]; !ok {
			importees[key] = nil
			order = append(order, key)
		}
		return key
	}

	for _, entry := range entries {
		reach(entry)
	}
	for _, e := range edges {
		from := reach(e.Importer)
		to := reach(e.ResolvedImportPath)
		importees[from] = append(importees[from], to)
	}
	for _, key := range order {
		g.SetImportees(key, importees[key])
	}
}

// lookup finds the input for an absolute file, trying the cwd-relative
// key the compiler normally writes before the absolute forms.
func lookup(m *manifest.Manifest, cwd, file string) (manifest.Input, bool) {
	for _, key := range []string{modpath.Key(cwd, file), file, filepath.ToSlash(file)} {
		if in, ok := m.Inputs[key]; ok {
			return in, true
		}
	}
	return manifest.Input{}, false
}

func checkAbs(what, p string) error {
	if !filepath.IsAbs(p) {
		return errors.Wrapf(ErrNotAbsolute, "%s %q", what, p)
	}
	return nil
}

func edgeKey(e Edge) string {
	return e.Importer + "\x00" + e.ResolvedImportPath
}
