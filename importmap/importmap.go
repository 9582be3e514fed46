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

// Package importmap models the import map the dev server hands to the
// browser so that bare specifiers such as "lit" load from node_modules.
//
// See https://developer.mozilla.org/en-US/docs/Web/HTML/Element/script/type/importmap
package importmap

import (
	"encoding/json"
	"maps"
)

// ImportMap is an ES module import map.
type ImportMap struct {
	// Imports maps specifiers, or specifier prefixes ending in "/", to URLs.
	Imports map[string]string `json:"imports,omitempty"`
	// Scopes holds imports that only apply to referrers below a URL prefix.
	Scopes map[string]map[string]string `json:"scopes,omitempty"`
}

// New returns an empty import map.
func New() *ImportMap {
	return &ImportMap{Imports: make(map[string]string)}
}

// Parse decodes an import map.
func Parse(data []byte) (*ImportMap, error) {
	var im ImportMap
	if err := json.Unmarshal(data, &im); err != nil {
		return nil, err
	}
	return &im, nil
}

// Add maps specifier to url.
func (im *ImportMap) Add(specifier, url string) {
	if im.Imports == nil {
		im.Imports = make(map[string]string)
	}
	im.Imports[specifier] = url
}

// Merge returns a new map holding the entries of both maps. Entries in
// other win over entries in im. Neither input is modified.
func (im *ImportMap) Merge(other *ImportMap) *ImportMap {
	result := &ImportMap{}
	for _, src := range []*ImportMap{im, other} {
		if src == nil {
			continue
		}
		if len(src.Imports) > 0 && result.Imports == nil {
			result.Imports = make(map[string]string)
		}
		maps.Copy(result.Imports, src.Imports)
		for scope, imports := range src.Scopes {
			if result.Scopes == nil {
				result.Scopes = make(map[string]map[string]string)
			}
			if result.Scopes[scope] == nil {
				result.Scopes[scope] = make(map[string]string, len(imports))
			}
			maps.Copy(result.Scopes[scope], imports)
		}
	}
	return result
}

// Empty reports whether the map has no entries.
func (im *ImportMap) Empty() bool {
	return im == nil || (len(im.Imports) == 0 && len(im.Scopes) == 0)
}

// ToJSON renders the map as indented JSON, or "" when it is empty.
// Keys come out sorted.
func (im *ImportMap) ToJSON() string {
	if im.Empty() {
		return ""
	}
	data, err := json.MarshalIndent(im, "", "  ")
	if err != nil {
		return ""
	}
	return string(data)
}
