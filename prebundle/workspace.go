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

package prebundle

import (
	"fmt"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"bennypowers.dev/hotmod/fs"
	"bennypowers.dev/hotmod/packagejson"
)

// WorkspacePackage is a package linked into a monorepo through the
// workspaces field of the root package.json.
type WorkspacePackage struct {
	Name string
	Path string // absolute directory
}

// DiscoverWorkspacePackages finds all workspace packages based on the
// workspaces field in the root package.json.
// Returns nil if no workspaces are defined.
func DiscoverWorkspacePackages(fsys fs.FileSystem, rootDir string) ([]WorkspacePackage, error) {
	rootPkg, err := packagejson.ParseFile(fsys, filepath.Join(rootDir, "package.json"))
	if err != nil {
		return nil, err
	}

	patterns := rootPkg.WorkspacePatterns()
	if len(patterns) == 0 {
		return nil, nil
	}

	var packages []WorkspacePackage
	for _, pattern := range patterns {
		dirs, err := expandWorkspacePattern(fsys, rootDir, pattern)
		if err != nil {
			continue // skip patterns that can't be expanded
		}
		for _, dir := range dirs {
			pkg, err := parseWorkspacePackage(fsys, dir)
			if err != nil {
				continue // skip directories without valid package.json
			}
			packages = append(packages, pkg)
		}
	}

	slices.SortFunc(packages, func(a, b WorkspacePackage) int {
		return strings.Compare(a.Path, b.Path)
	})
	return slices.CompactFunc(packages, func(a, b WorkspacePackage) bool {
		return a.Path == b.Path
	}), nil
}

// expandWorkspacePattern expands a workspace glob ("packages/*",
// "libs/**", "tools/cli") to the matching directories below rootDir.
func expandWorkspacePattern(fsys fs.FileSystem, rootDir, pattern string) ([]string, error) {
	pattern = path.Clean(strings.TrimPrefix(filepath.ToSlash(pattern), "./"))
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid workspace pattern %q", pattern)
	}

	matches, err := doublestar.Glob(fs.Sub(fsys, rootDir), pattern)
	if err != nil {
		return nil, err
	}

	var dirs []string
	for _, match := range matches {
		if strings.Contains(match, "node_modules") {
			continue
		}
		dir := filepath.Join(rootDir, filepath.FromSlash(match))
		if info, err := fsys.Stat(dir); err == nil && info.IsDir() {
			dirs = append(dirs, dir)
		}
	}
	return dirs, nil
}

// parseWorkspacePackage reads a package.json from a directory and returns
// a WorkspacePackage with its name and path.
func parseWorkspacePackage(fsys fs.FileSystem, dir string) (WorkspacePackage, error) {
	pkg, err := packagejson.ParseFile(fsys, filepath.Join(dir, "package.json"))
	if err != nil {
		return WorkspacePackage{}, err
	}
	if pkg.Name == "" {
		return WorkspacePackage{}, fmt.Errorf("package at %s has no name", dir)
	}
	return WorkspacePackage{Name: pkg.Name, Path: dir}, nil
}
