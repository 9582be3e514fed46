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

// Package prebundle decides which packages the dev server prebundles. It
// supplies the stop predicate for dependency traversal and turns the
// edges that cross into a package into a sorted plan.
package prebundle

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"path/filepath"
	"slices"
	"strings"

	"bennypowers.dev/hotmod/fs"
	"bennypowers.dev/hotmod/internal/logging"
	"bennypowers.dev/hotmod/packagejson"
	"bennypowers.dev/hotmod/traverse"
)

const nodeModules = "/node_modules/"

// Kind classifies a prebundled package against the root package.json.
type Kind int

const (
	// Dependency is listed in dependencies.
	Dependency Kind = iota
	// DevDependency is listed in devDependencies.
	DevDependency
	// Transitive is installed but not declared by the root package.
	Transitive
	// Workspace is a package of the same monorepo.
	Workspace
)

var kindNames = []string{"dependency", "devDependency", "transitive", "workspace"}

// String returns a human-readable description of the kind.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	i := slices.Index(kindNames, string(text))
	if i < 0 {
		return fmt.Errorf("unknown package kind %q", text)
	}
	*k = Kind(i)
	return nil
}

// Package is one prebundle candidate.
type Package struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
	// Dir is the absolute package directory.
	Dir string `json:"dir"`
	// Entry is the absolute path of the module a bare import loads.
	Entry string `json:"entry,omitempty"`
	Kind  Kind   `json:"kind"`
	// Importers are the source files that import the package, sorted.
	Importers []string `json:"importers"`
}

// Options configures a Planner.
type Options struct {
	// IncludeWorkspacePackages prebundles linked workspace packages
	// instead of traversing them as source.
	IncludeWorkspacePackages bool
	Logger                   logging.Logger
}

// Planner classifies resolved paths for one project root.
type Planner struct {
	fs         fs.FileSystem
	root       string
	opts       Options
	cache      *packagejson.Cache
	rootPkg    *packagejson.PackageJSON
	workspaces []WorkspacePackage
}

// NewPlanner reads root/package.json, if present, and its workspaces.
func NewPlanner(fsys fs.FileSystem, root string, opts Options) (*Planner, error) {
	cache, err := packagejson.NewCache(packagejson.DefaultCacheSize)
	if err != nil {
		return nil, err
	}
	p := &Planner{fs: fsys, root: root, opts: opts, cache: cache}

	p.rootPkg, err = cache.Load(fsys, filepath.Join(root, "package.json"))
	switch {
	case errors.Is(err, iofs.ErrNotExist):
		p.rootPkg = &packagejson.PackageJSON{}
	case err != nil:
		return nil, fmt.Errorf("reading root package.json: %w", err)
	}

	if p.rootPkg.HasWorkspaces() {
		p.workspaces, err = DiscoverWorkspacePackages(fsys, root)
		if err != nil {
			return nil, fmt.Errorf("discovering workspace packages: %w", err)
		}
	}
	return p, nil
}

// Workspaces returns the discovered workspace packages.
func (p *Planner) Workspaces() []WorkspacePackage {
	return p.workspaces
}

// Stop reports whether traversal should stop at resolved. It is a
// traverse.StopFunc.
func (p *Planner) Stop(resolved string) bool {
	_, ok := p.packageDir(resolved)
	return ok
}

// Invalidate forgets a cached package.json, typically after it changed.
func (p *Planner) Invalidate(path string) {
	p.cache.Invalidate(path)
}

// Plan returns the packages that source files import, sorted by name and
// then directory. Edges whose importer is itself inside a package are
// ignored.
func (p *Planner) Plan(edges []traverse.Edge) []Package {
	byDir := make(map[string]*Package)
	for _, e := range edges {
		if p.Stop(e.Importer) {
			continue
		}
		dir, ok := p.packageDir(e.ResolvedImportPath)
		if !ok {
			continue
		}
		pkg, ok := byDir[dir]
		if !ok {
			pkg = p.describe(dir)
			byDir[dir] = pkg
		}
		pkg.Importers = append(pkg.Importers, e.Importer)
	}

	plan := make([]Package, 0, len(byDir))
	for _, pkg := range byDir {
		slices.Sort(pkg.Importers)
		pkg.Importers = slices.Compact(pkg.Importers)
		plan = append(plan, *pkg)
	}
	slices.SortFunc(plan, func(a, b Package) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.Dir, b.Dir)
	})
	return plan
}

func (p *Planner) packageDir(resolved string) (string, bool) {
	if dir, ok := NodeModulesPackage(resolved); ok {
		return dir, true
	}
	if p.opts.IncludeWorkspacePackages {
		if ws, ok := p.workspaceOf(resolved); ok {
			return ws.Path, true
		}
	}
	return "", false
}

func (p *Planner) workspaceOf(resolved string) (WorkspacePackage, bool) {
	for _, ws := range p.workspaces {
		if resolved == ws.Path || strings.HasPrefix(resolved, ws.Path+string(filepath.Separator)) {
			return ws, true
		}
	}
	return WorkspacePackage{}, false
}

func (p *Planner) describe(dir string) *Package {
	pkg := &Package{Dir: dir, Name: nameFromDir(dir)}

	meta, err := p.cache.Load(p.fs, filepath.Join(dir, "package.json"))
	if err != nil {
		if p.opts.Logger != nil {
			p.opts.Logger.Warning("No package.json for %s: %v", dir, err)
		}
	} else {
		if meta.Name != "" {
			pkg.Name = meta.Name
		}
		pkg.Version = meta.Version
		pkg.Entry = filepath.Join(dir, filepath.FromSlash(meta.Entry(nil)))
	}

	pkg.Kind = p.classify(pkg.Name, dir)
	return pkg
}

func (p *Planner) classify(name, dir string) Kind {
	for _, ws := range p.workspaces {
		if ws.Name == name || ws.Path == dir {
			return Workspace
		}
	}
	if _, ok := p.rootPkg.Dependencies[name]; ok {
		return Dependency
	}
	if _, ok := p.rootPkg.DevDependencies[name]; ok {
		return DevDependency
	}
	return Transitive
}

// NodeModulesPackage returns the directory of the package that contains
// file when file is inside a node_modules directory. The innermost
// node_modules wins, and scoped packages span two path segments.
func NodeModulesPackage(file string) (string, bool) {
	slashed := filepath.ToSlash(file)
	idx := strings.LastIndex(slashed, nodeModules)
	if idx < 0 {
		return "", false
	}
	base := slashed[:idx+len(nodeModules)]
	parts := strings.Split(slashed[len(base):], "/")

	n := 1
	if strings.HasPrefix(parts[0], "@") {
		n = 2
	}
	if len(parts) < n || parts[n-1] == "" || strings.HasPrefix(parts[0], ".") {
		return "", false
	}
	return filepath.FromSlash(base + strings.Join(parts[:n], "/")), true
}

// nameFromDir derives a package name from its directory.
func nameFromDir(dir string) string {
	parent, name := filepath.Split(filepath.Clean(dir))
	if scope := filepath.Base(parent); strings.HasPrefix(scope, "@") {
		return scope + "/" + name
	}
	return name
}
