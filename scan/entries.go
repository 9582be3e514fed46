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

package scan

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"bennypowers.dev/hotmod/fs"
	"bennypowers.dev/hotmod/modpath"
)

// ErrNoEntries is returned when no entry points can be found.
var ErrNoEntries = errors.New("no entry points found")

// Entries returns absolute entry point paths for root. Configured entries
// are resolved against root; an HTML entry contributes the module scripts
// it loads. With nothing configured, root/index.html is used.
func Entries(fsys fs.FileSystem, root string, configured []string) ([]string, error) {
	if len(configured) == 0 {
		configured = []string{"index.html"}
	}

	var entries []string
	for _, entry := range configured {
		file := modpath.Abs(root, entry)
		if !isHTML(file) {
			entries = append(entries, file)
			continue
		}
		scripts, err := pageScripts(fsys, root, file)
		if err != nil {
			return nil, err
		}
		entries = append(entries, scripts...)
	}

	entries = modpath.Unique(entries, func(s string) string { return s })
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoEntries, strings.Join(configured, ", "))
	}
	return entries, nil
}

func pageScripts(fsys fs.FileSystem, root, page string) ([]string, error) {
	content, err := fsys.ReadFile(page)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", page, err)
	}
	scripts, err := ExtractScripts(content)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", page, err)
	}

	var files []string
	for _, script := range scripts {
		src := modpath.CleanURL(script.Src)
		if !script.IsModule() || src == "" || isRemote(src) {
			continue
		}
		if strings.HasPrefix(src, "/") {
			files = append(files, modpath.RequestToFile(root, src))
		} else {
			files = append(files, filepath.Join(filepath.Dir(page), filepath.FromSlash(src)))
		}
	}
	return files, nil
}

func isHTML(file string) bool {
	ext := strings.ToLower(filepath.Ext(file))
	return ext == ".html" || ext == ".htm"
}

func isRemote(src string) bool {
	return strings.HasPrefix(src, "//") || strings.Contains(src, "://")
}
