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

// Package modpath converts between filesystem paths, graph keys and the
// URL paths a browser uses to request modules.
//
// A graph key is a root-relative, forward-slash path ("src/app.js"). An import
// path is the same key served from the site root ("/src/app.js").
package modpath

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	queryRE = regexp.MustCompile(`\?.*$`)
	hashRE  = regexp.MustCompile(`#.*$`)

	imageRE = regexp.MustCompile(`\.(png|jpe?g|gif|svg|ico|webp)(\?.*)?$`)
	mediaRE = regexp.MustCompile(`\.(mp4|webm|ogg|mp3|wav|flac|aac)(\?.*)?$`)
	fontsRE = regexp.MustCompile(`(?i)\.(woff2?|eot|ttf|otf)(\?.*)?$`)
)

// Key returns the graph key for file relative to root.
// Relative file paths are taken to be relative to root.
func Key(root, file string) string {
	if !filepath.IsAbs(file) {
		file = filepath.Join(root, file)
	}
	rel, err := filepath.Rel(root, filepath.Clean(file))
	if err != nil {
		return filepath.ToSlash(filepath.Clean(file))
	}
	return filepath.ToSlash(rel)
}

// ImportPath returns the path a browser uses to request file,
// e.g. "/src/app.js".
func ImportPath(root, file string) string {
	return KeyToImportPath(Key(root, file))
}

// KeyToImportPath converts a graph key into its import path.
func KeyToImportPath(key string) string {
	return "/" + strings.TrimPrefix(key, "/")
}

// RequestToFile maps a request URL path onto a file below root.
// Query strings and fragments are ignored.
func RequestToFile(root, request string) string {
	request = strings.TrimPrefix(CleanURL(request), "/")
	return filepath.Join(root, filepath.FromSlash(request))
}

// RequestToKey maps a request URL path onto a graph key.
func RequestToKey(request string) string {
	return strings.TrimPrefix(CleanURL(request), "/")
}

// CleanURL strips the query string and fragment from url.
func CleanURL(url string) string {
	return queryRE.ReplaceAllString(hashRE.ReplaceAllString(url, ""), "")
}

// IsStaticAsset reports whether file is an image, media or font asset
// that is served as-is rather than as a module.
func IsStaticAsset(file string) bool {
	return imageRE.MatchString(file) || mediaRE.MatchString(file) || fontsRE.MatchString(file)
}

// Abs resolves p against dir. Manifest paths use forward slashes regardless
// of platform, so p is converted before joining.
func Abs(dir, p string) string {
	p = filepath.FromSlash(p)
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(dir, p)
}

// Unique returns items with duplicates removed, where two items are
// duplicates if key returns the same string for both. The first occurrence
// wins and the relative order of the survivors is preserved.
func Unique[T any](items []T, key func(T) string) []T {
	seen := make(map[string]struct{}, len(items))
	result := make([]T, 0, len(items))
	for _, item := range items {
		k := key(item)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		result = append(result, item)
	}
	return result
}
