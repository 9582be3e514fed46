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

// Package scan reads source files with tree-sitter to learn what the module
// graph needs: import specifiers, use of the import.meta.hot API, and the
// module scripts an HTML page loads.
package scan

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"bennypowers.dev/hotmod/fs"
	"bennypowers.dev/hotmod/graph"
	"bennypowers.dev/hotmod/internal/logging"
	"bennypowers.dev/hotmod/modpath"
)

// DefaultCacheSize is the number of parsed modules a Scanner keeps.
const DefaultCacheSize = 4096

// ErrUnsupported is returned by Scan for files that are neither scripts
// nor HTML.
var ErrUnsupported = errors.New("unsupported file type")

type cached struct {
	modTime time.Time
	size    int64
	mod     *Module
}

// Scanner parses modules and records them in a graph. Parsed modules are
// cached until the file's modification time or size changes.
type Scanner struct {
	fs         fs.FileSystem
	extensions []string
	logger     logging.Logger
	cache      *lru.Cache[string, cached]
}

// NewScanner creates a scanner. extensions is the order in which
// extensionless relative specifiers are resolved. logger may be nil.
func NewScanner(fsys fs.FileSystem, extensions []string, logger logging.Logger) (*Scanner, error) {
	cache, err := lru.New[string, cached](DefaultCacheSize)
	if err != nil {
		return nil, err
	}
	return &Scanner{
		fs:         fsys,
		extensions: extensions,
		logger:     logger,
		cache:      cache,
	}, nil
}

// Scan parses file, or returns the cached result if it is unchanged.
func (s *Scanner) Scan(file string) (*Module, error) {
	lang, ok := LanguageFor(file)
	if !ok {
		return nil, ErrUnsupported
	}
	info, err := s.fs.Stat(file)
	if err != nil {
		return nil, err
	}
	if c, ok := s.cache.Get(file); ok && c.modTime.Equal(info.ModTime()) && c.size == info.Size() {
		return c.mod, nil
	}

	content, err := s.fs.ReadFile(file)
	if err != nil {
		return nil, err
	}

	var mod *Module
	if lang == LangHTML {
		mod, err = parsePage(content)
	} else {
		mod, err = ParseModule(content, lang)
	}
	if err != nil {
		return nil, err
	}

	s.cache.Add(file, cached{modTime: info.ModTime(), size: info.Size(), mod: mod})
	return mod, nil
}

// Forget drops any cached parse of file.
func (s *Scanner) Forget(file string) {
	s.cache.Remove(file)
}

// Update rescans file and replaces its importees and HMR flags in g.
// Bare specifiers are left to the compiler and produce no edges.
// Files that are not scripts or HTML leave g untouched.
func (s *Scanner) Update(g *graph.Graph, root, file string) error {
	mod, err := s.Scan(file)
	if errors.Is(err, ErrUnsupported) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("scanning %s: %w", file, err)
	}

	var importees []string
	for _, imp := range mod.Imports {
		resolved, ok := s.Resolve(root, file, imp.Specifier)
		if !ok {
			continue
		}
		importees = append(importees, modpath.Key(root, resolved))
	}
	slices.Sort(importees)
	importees = slices.Compact(importees)

	key := modpath.Key(root, file)
	g.SetImportees(key, importees)
	g.SetHMR(key, mod.HMR)

	if s.logger != nil {
		s.logger.Debug("Scanned %s: %d imports, hmr=%+v", key, len(importees), mod.HMR)
	}
	return nil
}

// Resolve maps a relative or root-absolute specifier imported by importer
// onto a file. An exact match wins, then each extension, then an index
// file. When nothing exists the joined path is returned so that the edge
// is in place once the file is created. Bare and remote specifiers are
// not resolved.
func (s *Scanner) Resolve(root, importer, specifier string) (string, bool) {
	spec := modpath.CleanURL(specifier)
	var candidate string
	switch {
	case strings.HasPrefix(spec, "//"):
		return "", false
	case strings.HasPrefix(spec, "/"):
		candidate = modpath.RequestToFile(root, spec)
	case strings.HasPrefix(spec, "./"), strings.HasPrefix(spec, "../"):
		candidate = filepath.Join(filepath.Dir(importer), filepath.FromSlash(spec))
	default:
		return "", false
	}

	if s.isFile(candidate) {
		return candidate, true
	}
	for _, ext := range s.extensions {
		if s.isFile(candidate + ext) {
			return candidate + ext, true
		}
	}
	for _, ext := range s.extensions {
		index := filepath.Join(candidate, "index"+ext)
		if s.isFile(index) {
			return index, true
		}
	}
	return candidate, true
}

func (s *Scanner) isFile(path string) bool {
	info, err := s.fs.Stat(path)
	return err == nil && !info.IsDir()
}

// parsePage treats an HTML page as a module importing its module scripts.
func parsePage(content []byte) (*Module, error) {
	scripts, err := ExtractScripts(content)
	if err != nil {
		return nil, err
	}
	mod := &Module{}
	for _, script := range scripts {
		if script.IsModule() && script.Src != "" {
			mod.Imports = append(mod.Imports, ModuleImport{Specifier: script.Src})
		}
		for _, spec := range script.Imports {
			mod.Imports = append(mod.Imports, ModuleImport{Specifier: spec})
		}
	}
	return mod, nil
}
