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

// Package packagejson reads the parts of package.json that decide how a
// dependency is prebundled: its name and version, its entry module, and
// the workspace packages of a monorepo root.
package packagejson

import (
	"encoding/json"
	"errors"
	"strings"

	"bennypowers.dev/hotmod/fs"
)

// workspacesObjectFormat represents the object format for workspaces field.
// Used by yarn classic with nohoist: {"packages": [...], "nohoist": [...]}
type workspacesObjectFormat struct {
	Packages []string `json:"packages"`
}

// ErrNotExported is returned when a subpath is not exported by the package.
var ErrNotExported = errors.New("not exported by package.json")

// DefaultConditions is the export condition priority of a browser build.
var DefaultConditions = []string{"browser", "import", "module", "default"}

// ResolveOptions configures how conditional exports are resolved.
type ResolveOptions struct {
	// Conditions is the ordered list of conditions to try when resolving exports.
	// If nil, defaults to DefaultConditions.
	Conditions []string
}

// PackageJSON is the subset of package.json hotmod reads.
type PackageJSON struct {
	Name            string            `json:"name"`
	Version         string            `json:"version"`
	Main            string            `json:"main,omitempty"`
	Module          string            `json:"module,omitempty"`
	Browser         any               `json:"browser,omitempty"`
	Exports         any               `json:"exports,omitempty"`
	Dependencies    map[string]string `json:"dependencies,omitempty"`
	DevDependencies map[string]string `json:"devDependencies,omitempty"`
	RawWorkspaces   json.RawMessage   `json:"workspaces,omitempty"`
}

// WorkspacePatterns returns the workspace glob patterns from the workspaces field.
// Handles both array format ["packages/*"] and object format {"packages": ["libs/*"]}.
func (pkg *PackageJSON) WorkspacePatterns() []string {
	if len(pkg.RawWorkspaces) == 0 {
		return nil
	}

	var patterns []string
	if err := json.Unmarshal(pkg.RawWorkspaces, &patterns); err == nil {
		return patterns
	}

	var obj workspacesObjectFormat
	if err := json.Unmarshal(pkg.RawWorkspaces, &obj); err == nil {
		return obj.Packages
	}

	return nil
}

// HasWorkspaces returns true if the package has workspace patterns defined.
func (pkg *PackageJSON) HasWorkspaces() bool {
	return len(pkg.WorkspacePatterns()) > 0
}

// Parse parses package.json data.
func Parse(data []byte) (*PackageJSON, error) {
	var pkg PackageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, err
	}
	return &pkg, nil
}

// ParseFile parses a package.json file.
func ParseFile(fsys fs.FileSystem, path string) (*PackageJSON, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Entry returns the package-relative path of the module a bare import of
// the package loads. The exports map wins; otherwise the module, browser
// and main fields are tried in that order, then index.js.
func (pkg *PackageJSON) Entry(opts *ResolveOptions) string {
	if pkg.Exports != nil {
		if entry, err := pkg.ResolveExport(".", opts); err == nil {
			return entry
		}
	}
	if pkg.Module != "" {
		return trimDotSlash(pkg.Module)
	}
	if browser, ok := pkg.Browser.(string); ok && browser != "" {
		return trimDotSlash(browser)
	}
	if pkg.Main != "" {
		return trimDotSlash(pkg.Main)
	}
	return "index.js"
}

// ResolveExport resolves a subpath export to its target file path.
// The subpath should be "." for the main export or "./subpath" for subpath exports.
// Returns the resolved path without leading "./".
// Pass nil for opts to use DefaultConditions.
func (pkg *PackageJSON) ResolveExport(subpath string, opts *ResolveOptions) (string, error) {
	switch exports := pkg.Exports.(type) {
	case nil:
		if subpath == "." && pkg.Main != "" {
			return trimDotSlash(pkg.Main), nil
		}
		return "", ErrNotExported

	case string:
		if subpath == "." {
			return trimDotSlash(exports), nil
		}
		return "", ErrNotExported

	case map[string]any:
		if !hasSubpaths(exports) {
			// Conditions for the main entry only.
			if subpath == "." {
				return resolveConditions(exports, opts)
			}
			return "", ErrNotExported
		}
		value, ok := exports[subpath]
		if !ok {
			return "", ErrNotExported
		}
		return resolveExportValue(value, opts)
	}
	return "", ErrNotExported
}

func hasSubpaths(exports map[string]any) bool {
	for key := range exports {
		if strings.HasPrefix(key, ".") {
			return true
		}
	}
	return false
}

func resolveExportValue(value any, opts *ResolveOptions) (string, error) {
	switch v := value.(type) {
	case string:
		return trimDotSlash(v), nil
	case map[string]any:
		return resolveConditions(v, opts)
	case []any:
		// Fallback arrays: the first resolvable target wins.
		for _, item := range v {
			if resolved, err := resolveExportValue(item, opts); err == nil {
				return resolved, nil
			}
		}
	}
	return "", ErrNotExported
}

// resolveConditions tries each condition in priority order, recursing into
// nested condition maps.
func resolveConditions(conditions map[string]any, opts *ResolveOptions) (string, error) {
	conditionList := DefaultConditions
	if opts != nil && len(opts.Conditions) > 0 {
		conditionList = opts.Conditions
	}

	for _, cond := range conditionList {
		if value, ok := conditions[cond]; ok {
			if result, err := resolveExportValue(value, opts); err == nil {
				return result, nil
			}
		}
	}

	return "", ErrNotExported
}

// trimDotSlash removes a leading "./" from a path.
func trimDotSlash(path string) string {
	return strings.TrimPrefix(path, "./")
}
