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

package bundler

import (
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

var loaders = map[string]api.Loader{
	".ts":  api.LoaderTS,
	".mts": api.LoaderTS,
	".cts": api.LoaderTS,
	".tsx": api.LoaderTSX,
	".jsx": api.LoaderJSX,
}

// NeedsTransform reports whether file must be compiled before a browser
// can load it.
func NeedsTransform(file string) bool {
	_, ok := loaders[strings.ToLower(filepath.Ext(file))]
	return ok
}

// Transform compiles a single TypeScript or JSX module to browser-ready
// JavaScript with an inline source map. Imports are left as written.
func Transform(code []byte, file string) ([]byte, error) {
	loader, ok := loaders[strings.ToLower(filepath.Ext(file))]
	if !ok {
		loader = api.LoaderJS
	}
	result := api.Transform(string(code), api.TransformOptions{
		Loader:     loader,
		Format:     api.FormatESModule,
		Target:     api.ESNext,
		Sourcemap:  api.SourceMapInline,
		Sourcefile: file,
		JSX:        api.JSXAutomatic,
		Define: map[string]string{
			"process.env.NODE_ENV": `"development"`,
		},
		LogLevel: api.LogLevelSilent,
	})
	if len(result.Errors) > 0 {
		return nil, &BuildError{Messages: formatMessages(result.Errors)}
	}
	return result.Code, nil
}
