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

// Package devserver runs the development session: it builds the module
// graph for a project, serves the project's files to the browser,
// watches them, and pushes HMR messages over a websocket when they change.
package devserver

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"

	"bennypowers.dev/hotmod/config"
	"bennypowers.dev/hotmod/fs"
	"bennypowers.dev/hotmod/graph"
	"bennypowers.dev/hotmod/hmr"
	"bennypowers.dev/hotmod/importmap"
	"bennypowers.dev/hotmod/internal/logging"
	"bennypowers.dev/hotmod/modpath"
	"bennypowers.dev/hotmod/prebundle"
	"bennypowers.dev/hotmod/scan"
	"bennypowers.dev/hotmod/traverse"
)

// dependencyInputs are root files whose change invalidates the traversal.
var dependencyInputs = []string{
	"package.json",
	"package-lock.json",
	"npm-shrinkwrap.json",
	"yarn.lock",
	"pnpm-lock.yaml",
	"bun.lock",
}

// Options configures a Session.
type Options struct {
	Config   *config.Config
	FS       fs.FileSystem
	Compiler traverse.Compiler
	// Logger may be nil.
	Logger logging.Logger
}

// Session owns the module graph of one project and everything that
// keeps it current.
type Session struct {
	cfg      *config.Config
	root     string
	fs       fs.FileSystem
	compiler traverse.Compiler
	logger   logging.Logger

	graph      *graph.Graph
	scanner    *scan.Scanner
	hub        *Hub
	propagator *hmr.Propagator

	// mu serializes graph mutation: loading and change handling.
	mu      sync.Mutex
	planner *prebundle.Planner
	plan    []prebundle.Package
	imports atomic.Pointer[importmap.ImportMap]
}

// NewSession traverses the project's entry points and returns a session
// whose graph holds the result.
func NewSession(ctx context.Context, opts Options) (*Session, error) {
	cfg := opts.Config
	scanner, err := scan.NewScanner(opts.FS, cfg.Resolve.Extensions, opts.Logger)
	if err != nil {
		return nil, fmt.Errorf("creating scanner: %w", err)
	}

	g := graph.New()
	hub := NewHub(opts.Logger)
	s := &Session{
		cfg:        cfg,
		root:       cfg.Root,
		fs:         opts.FS,
		compiler:   opts.Compiler,
		logger:     opts.Logger,
		graph:      g,
		scanner:    scanner,
		hub:        hub,
		propagator: hmr.New(g, cfg.Root, hub, opts.Logger),
	}
	s.imports.Store(importmap.New())

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(ctx, cfg.Prebundle.Force); err != nil {
		return nil, err
	}
	return s, nil
}

// Graph returns the session's module graph.
func (s *Session) Graph() *graph.Graph {
	return s.graph
}

// Hub returns the websocket hub HMR messages are sent to.
func (s *Session) Hub() *Hub {
	return s.hub
}

// Plan returns the current prebundle plan.
func (s *Session) Plan() []prebundle.Package {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.plan)
}

// ImportMap returns the import map served to pages.
func (s *Session) ImportMap() *importmap.ImportMap {
	return s.imports.Load()
}

func (s *Session) load(ctx context.Context, force bool) error {
	planner, err := prebundle.NewPlanner(s.fs, s.root, prebundle.Options{
		IncludeWorkspacePackages: s.cfg.Prebundle.IncludeWorkspacePackages,
		Logger:                   s.logger,
	})
	if err != nil {
		return err
	}

	entries, err := scan.Entries(s.fs, s.root, s.cfg.Entries)
	if err != nil {
		return err
	}

	edges, err := traverse.Traverse(ctx, s.compiler, traverse.Options{
		Entries:    entries,
		Cwd:        s.root,
		Extensions: s.cfg.Resolve.Extensions,
		Stop:       planner.Stop,
	})
	if err != nil {
		return fmt.Errorf("traversing %s: %w", s.root, err)
	}

	traverse.Seed(s.graph, s.root, entries, edges)
	s.annotate(planner, entries, edges)

	s.planner = planner
	s.plan = s.resolvePlan(planner, edges, force)
	s.imports.Store(prebundle.ImportMap(s.root, s.plan))

	if s.logger != nil {
		s.logger.Info("Traversed %d entries: %d modules, %d packages to prebundle",
			len(entries), s.graph.Len(), len(s.plan))
	}
	return nil
}

// annotate records the HMR flags of every source module the traversal
// reached. Importees stay as the compiler resolved them.
func (s *Session) annotate(planner *prebundle.Planner, entries []string, edges []traverse.Edge) {
	files := slices.Clone(entries)
	for _, e := range edges {
		files = append(files, e.Importer, e.ResolvedImportPath)
	}
	slices.Sort(files)
	files = slices.Compact(files)

	for _, file := range files {
		if planner.Stop(file) {
			continue
		}
		key := modpath.Key(s.root, file)
		s.graph.EnsureEntry(key)
		mod, err := s.scanner.Scan(file)
		if err != nil {
			continue
		}
		s.graph.SetHMR(key, mod.HMR)
	}
}

func (s *Session) resolvePlan(planner *prebundle.Planner, edges []traverse.Edge, force bool) []prebundle.Package {
	if !force {
		plan, fresh, err := prebundle.LoadFresh(s.fs, s.root)
		switch {
		case err != nil:
			s.warn("Ignoring saved prebundle plan: %v", err)
		case fresh:
			if s.logger != nil {
				s.logger.Debug("Reusing saved prebundle plan")
			}
			return plan
		}
	}
	plan := planner.Plan(edges)
	if err := prebundle.Save(s.fs, s.root, plan); err != nil {
		s.warn("Cannot save prebundle plan: %v", err)
	}
	return plan
}

// HandleChanges applies a batch of file changes to the graph one at a
// time and propagates each through the HMR propagator. A change to the
// root package manifest or a lockfile re-runs the traversal and asks
// browsers to reload.
func (s *Session) HandleChanges(ctx context.Context, changes []Change) []hmr.Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	var reports []hmr.Report
	retraverse := false
	for _, c := range changes {
		s.scanner.Forget(c.Path)
		if filepath.Base(c.Path) == "package.json" {
			s.planner.Invalidate(c.Path)
		}
		if s.isDependencyInput(c.Path) {
			retraverse = true
			continue
		}

		if s.rescannable(c) {
			if err := s.scanner.Update(s.graph, s.root, c.Path); err != nil {
				s.warn("%v", err)
			}
		}

		report := s.propagator.OnFileChange(c.Path)
		if s.logger != nil {
			s.logger.Info("%s %s: %d updates, %d reloads", c.Op, report.Key, len(report.Updates), report.Reloads)
		}
		reports = append(reports, report)
	}

	if retraverse {
		if err := s.load(ctx, true); err != nil {
			s.warn("Re-traversal failed: %v", err)
		}
		s.hub.Send(hmr.Message{Kind: hmr.KindReload})
	}
	return reports
}

// rescannable reports whether c touches a source module whose imports
// should be re-read. Pages are served, not imported, and stay untracked.
func (s *Session) rescannable(c Change) bool {
	if c.Op == Removed || s.planner.Stop(c.Path) {
		return false
	}
	lang, ok := scan.LanguageFor(c.Path)
	return ok && lang != scan.LangHTML
}

func (s *Session) isDependencyInput(path string) bool {
	return filepath.Dir(path) == s.root && slices.Contains(dependencyInputs, filepath.Base(path))
}

func (s *Session) warn(format string, args ...any) {
	if s.logger != nil {
		s.logger.Warning(format, args...)
	}
}
