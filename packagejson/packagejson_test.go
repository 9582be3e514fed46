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

package packagejson_test

import (
	"errors"
	"slices"
	"testing"

	"bennypowers.dev/hotmod/internal/mapfs"
	"bennypowers.dev/hotmod/packagejson"
)

func mustParse(t *testing.T, data string) *packagejson.PackageJSON {
	t.Helper()
	pkg, err := packagejson.Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return pkg
}

func TestParseFile(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/test/package.json", `{
		"name": "@scope/widgets",
		"version": "2.0.1",
		"module": "./esm/index.js",
		"dependencies": {"lit": "^3.0.0"}
	}`, 0644)

	pkg, err := packagejson.ParseFile(mfs, "/test/package.json")
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	if pkg.Name != "@scope/widgets" || pkg.Version != "2.0.1" {
		t.Errorf("Unexpected name/version %q@%q", pkg.Name, pkg.Version)
	}
	if pkg.Dependencies["lit"] != "^3.0.0" {
		t.Errorf("Expected lit dependency, got %v", pkg.Dependencies)
	}

	if _, err := packagejson.ParseFile(mfs, "/missing/package.json"); err == nil {
		t.Error("Expected error for missing file")
	}
	if _, err := packagejson.Parse([]byte("{")); err == nil {
		t.Error("Expected error for invalid JSON")
	}
}

func TestResolveExport(t *testing.T) {
	tests := []struct {
		name    string
		pkg     string
		subpath string
		opts    *packagejson.ResolveOptions
		want    string
		wantErr bool
	}{
		{
			name:    "string export",
			pkg:     `{"name": "a", "exports": "./index.js"}`,
			subpath: ".",
			want:    "index.js",
		},
		{
			name:    "string export has no subpaths",
			pkg:     `{"name": "a", "exports": "./index.js"}`,
			subpath: "./button",
			wantErr: true,
		},
		{
			name:    "subpath export",
			pkg:     `{"name": "a", "exports": {".": "./index.js", "./button": "./button/button.js"}}`,
			subpath: "./button",
			want:    "button/button.js",
		},
		{
			name:    "missing subpath",
			pkg:     `{"name": "a", "exports": {".": "./index.js"}}`,
			subpath: "./missing",
			wantErr: true,
		},
		{
			name:    "conditions for main entry",
			pkg:     `{"name": "a", "exports": {"require": "./index.cjs", "import": "./index.mjs"}}`,
			subpath: ".",
			want:    "index.mjs",
		},
		{
			name:    "browser condition wins",
			pkg:     `{"name": "a", "exports": {".": {"node": "./node.js", "browser": "./browser.js", "default": "./index.js"}}}`,
			subpath: ".",
			want:    "browser.js",
		},
		{
			name:    "nested conditions",
			pkg:     `{"name": "a", "exports": {".": {"import": {"types": "./index.d.ts", "default": "./index.js"}}}}`,
			subpath: ".",
			want:    "index.js",
		},
		{
			name:    "custom conditions",
			pkg:     `{"name": "a", "exports": {".": {"development": "./dev.js", "default": "./prod.js"}}}`,
			subpath: ".",
			opts:    &packagejson.ResolveOptions{Conditions: []string{"development", "default"}},
			want:    "dev.js",
		},
		{
			name:    "fallback array",
			pkg:     `{"name": "a", "exports": {".": [{"worker": "./worker.js"}, "./index.js"]}}`,
			subpath: ".",
			want:    "index.js",
		},
		{
			name:    "main fallback",
			pkg:     `{"name": "a", "main": "./lib/main.js"}`,
			subpath: ".",
			want:    "lib/main.js",
		},
		{
			name:    "no exports",
			pkg:     `{"name": "a"}`,
			subpath: ".",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkg := mustParse(t, tt.pkg)
			got, err := pkg.ResolveExport(tt.subpath, tt.opts)
			if tt.wantErr {
				if !errors.Is(err, packagejson.ErrNotExported) {
					t.Errorf("Expected ErrNotExported, got %q, %v", got, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveExport failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("ResolveExport(%q) = %q, want %q", tt.subpath, got, tt.want)
			}
		})
	}
}

func TestEntry(t *testing.T) {
	tests := map[string]string{
		`{"exports": {".": {"import": "./esm/index.js"}}, "main": "./cjs/index.js"}`: "esm/index.js",
		`{"exports": {"./only-sub": "./sub.js"}, "module": "./mod.js"}`:              "mod.js",
		`{"module": "./mod.js", "main": "./main.js"}`:                                "mod.js",
		`{"browser": "./browser.js", "main": "./main.js"}`:                           "browser.js",
		`{"browser": {"./node.js": false}, "main": "./main.js"}`:                     "main.js",
		`{"name": "bare"}`:                                                           "index.js",
	}
	for data, want := range tests {
		if got := mustParse(t, data).Entry(nil); got != want {
			t.Errorf("Entry() for %s = %q, want %q", data, got, want)
		}
	}
}

func TestWorkspacePatterns(t *testing.T) {
	tests := []struct {
		name string
		pkg  string
		want []string
	}{
		{"array", `{"workspaces": ["packages/*", "apps/*"]}`, []string{"packages/*", "apps/*"}},
		{"object", `{"workspaces": {"packages": ["libs/*"], "nohoist": ["**/x"]}}`, []string{"libs/*"}},
		{"none", `{"name": "solo"}`, nil},
		{"malformed", `{"workspaces": 42}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkg := mustParse(t, tt.pkg)
			if got := pkg.WorkspacePatterns(); !slices.Equal(got, tt.want) {
				t.Errorf("WorkspacePatterns() = %v, want %v", got, tt.want)
			}
			if pkg.HasWorkspaces() != (len(tt.want) > 0) {
				t.Errorf("HasWorkspaces() = %v", pkg.HasWorkspaces())
			}
		})
	}
}
