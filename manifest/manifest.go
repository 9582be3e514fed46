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

// Package manifest decodes the metafile an esbuild build writes: a record of
// every input file the compiler processed and the files each one imports.
package manifest

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"bennypowers.dev/hotmod/fs"
)

// Manifest is the decoded metafile. Only Inputs is needed to rebuild the
// import graph; Outputs is kept for diagnostics.
type Manifest struct {
	Inputs  map[string]Input  `json:"inputs"`
	Outputs map[string]Output `json:"outputs,omitempty"`
}

// Input is one processed source file.
type Input struct {
	Bytes   int      `json:"bytes"`
	Imports []Import `json:"imports"`
	Format  string   `json:"format,omitempty"` // "cjs" or "esm"
}

// Import is one import of an input, in source order.
type Import struct {
	Path     string `json:"path"`
	Kind     string `json:"kind,omitempty"`
	External bool   `json:"external,omitempty"`
	Original string `json:"original,omitempty"`
}

// Output is one emitted file.
type Output struct {
	Bytes      int                     `json:"bytes"`
	Inputs     map[string]InputContrib `json:"inputs"`
	Imports    []Import                `json:"imports"`
	Exports    []string                `json:"exports"`
	EntryPoint string                  `json:"entryPoint,omitempty"`
}

// InputContrib is the share of an output contributed by one input.
type InputContrib struct {
	BytesInOutput int `json:"bytesInOutput"`
}

// Parse decodes metafile JSON. Plugin namespaces are stripped from every
// input key and import path so that modules loaded through a plugin are
// addressed by their file path.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}
	m.stripNamespaces()
	return &m, nil
}

// ParseFile reads and decodes a metafile.
func ParseFile(fsys fs.FileSystem, path string) (*Manifest, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Keys returns the sorted input keys.
func (m *Manifest) Keys() []string {
	keys := make([]string, 0, len(m.Inputs))
	for k := range m.Inputs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (m *Manifest) stripNamespaces() {
	if len(m.Inputs) == 0 {
		return
	}
	inputs := make(map[string]Input, len(m.Inputs))
	for key, in := range m.Inputs {
		for i := range in.Imports {
			if !in.Imports[i].External {
				in.Imports[i].Path = StripNamespace(in.Imports[i].Path)
			}
		}
		inputs[StripNamespace(key)] = in
	}
	m.Inputs = inputs
}

// StripNamespace removes an esbuild plugin namespace prefix ("ns:path")
// from p. Windows drive letters ("C:\...") are not namespaces.
func StripNamespace(p string) string {
	idx := strings.Index(p, ":")
	if idx <= 1 {
		return p
	}
	return p[idx+1:]
}
