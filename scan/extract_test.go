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
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bennypowers.dev/hotmod/graph"
	"bennypowers.dev/hotmod/testutil"
)

func TestExtractScripts(t *testing.T) {
	mfs := testutil.NewFixtureFS(t, "scan/extract-scripts", "/test")
	html, err := mfs.ReadFile("/test/index.html")
	if err != nil {
		t.Fatalf("Failed to read fixture: %v", err)
	}

	scripts, err := ExtractScripts(html)
	if err != nil {
		t.Fatalf("ExtractScripts failed: %v", err)
	}

	expectedBytes, err := mfs.ReadFile("/test/expected.json")
	if err != nil {
		t.Fatalf("Failed to read expected.json: %v", err)
	}

	var expected struct {
		Scripts []struct {
			Type    string   `json:"type"`
			Src     string   `json:"src"`
			Inline  bool     `json:"inline"`
			Imports []string `json:"imports"`
		} `json:"scripts"`
	}
	if err := json.Unmarshal(expectedBytes, &expected); err != nil {
		t.Fatalf("Failed to parse expected.json: %v", err)
	}

	if len(scripts) != len(expected.Scripts) {
		t.Fatalf("Expected %d scripts, got %d", len(expected.Scripts), len(scripts))
	}

	for i, exp := range expected.Scripts {
		if scripts[i].Type != exp.Type {
			t.Errorf("Script %d: expected type %q, got %q", i, exp.Type, scripts[i].Type)
		}
		if scripts[i].Src != exp.Src {
			t.Errorf("Script %d: expected src %q, got %q", i, exp.Src, scripts[i].Src)
		}
		if scripts[i].Inline != exp.Inline {
			t.Errorf("Script %d: expected Inline=%v, got %v", i, exp.Inline, scripts[i].Inline)
		}
		if len(scripts[i].Imports) != len(exp.Imports) {
			t.Errorf("Script %d: expected %d imports, got %d", i, len(exp.Imports), len(scripts[i].Imports))
			continue
		}
		for j, imp := range exp.Imports {
			if scripts[i].Imports[j] != imp {
				t.Errorf("Script %d import %d: expected %q, got %q", i, j, imp, scripts[i].Imports[j])
			}
		}
	}
}

func TestExtractImports(t *testing.T) {
	mfs := testutil.NewFixtureFS(t, "scan/extract-imports", "/test")
	js, err := mfs.ReadFile("/test/module.js")
	if err != nil {
		t.Fatalf("Failed to read fixture: %v", err)
	}

	imports, err := ExtractImports(js)
	if err != nil {
		t.Fatalf("ExtractImports failed: %v", err)
	}

	expectedBytes, err := mfs.ReadFile("/test/expected.json")
	if err != nil {
		t.Fatalf("Failed to read expected.json: %v", err)
	}

	var expected struct {
		Imports []struct {
			Specifier string `json:"specifier"`
			Dynamic   bool   `json:"dynamic"`
		} `json:"imports"`
	}
	if err := json.Unmarshal(expectedBytes, &expected); err != nil {
		t.Fatalf("Failed to parse expected.json: %v", err)
	}

	if len(imports) != len(expected.Imports) {
		t.Fatalf("Expected %d imports, got %d: %+v", len(expected.Imports), len(imports), imports)
	}

	for i, exp := range expected.Imports {
		if imports[i].Specifier != exp.Specifier {
			t.Errorf("Import %d: expected specifier %q, got %q", i, exp.Specifier, imports[i].Specifier)
		}
		if imports[i].IsDynamic != exp.Dynamic {
			t.Errorf("Import %d: expected dynamic=%v, got %v", i, exp.Dynamic, imports[i].IsDynamic)
		}
	}
	if imports[0].Line != 1 {
		t.Errorf("Expected first import on line 1, got %d", imports[0].Line)
	}
}

func TestParseModuleHot(t *testing.T) {
	tests := []struct {
		name   string
		source string
		lang   Language
		want   graph.HMR
	}{
		{
			name:   "no hot api",
			source: "export const x = import.meta.url;",
			lang:   LangTypeScript,
			want:   graph.HMR{},
		},
		{
			name:   "reference only",
			source: "if (import.meta.hot) { console.log('hot') }",
			lang:   LangTypeScript,
			want:   graph.HMR{Enabled: true},
		},
		{
			name:   "accept",
			source: "import.meta.hot.accept();",
			lang:   LangTypeScript,
			want:   graph.HMR{Enabled: true, Accepts: true},
		},
		{
			name:   "accept with callback",
			source: "import.meta.hot.accept(({ module }) => { render(module) });",
			lang:   LangTSX,
			want:   graph.HMR{Enabled: true, Accepts: true},
		},
		{
			name:   "optional decline",
			source: "import.meta.hot?.decline();",
			lang:   LangTSX,
			want:   graph.HMR{Enabled: true, Declines: true},
		},
		{
			name:   "method referenced but not called",
			source: "const accept = import.meta.hot.accept;",
			lang:   LangTypeScript,
			want:   graph.HMR{Enabled: true},
		},
		{
			name:   "other method",
			source: "import.meta.hot.dispose(() => {});",
			lang:   LangTypeScript,
			want:   graph.HMR{Enabled: true},
		},
		{
			name:   "jsx module",
			source: "export const V = () => <b>hi</b>;\nimport.meta.hot.accept();",
			lang:   LangTSX,
			want:   graph.HMR{Enabled: true, Accepts: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mod, err := ParseModule([]byte(tt.source), tt.lang)
			require.NoError(t, err)
			assert.Equal(t, tt.want, mod.HMR)
		})
	}
}

func TestParseModuleRejectsHTML(t *testing.T) {
	_, err := ParseModule([]byte("<p>hi</p>"), LangHTML)
	assert.Error(t, err)
}

func TestLanguageFor(t *testing.T) {
	tests := map[string]Language{
		"a.ts":       LangTypeScript,
		"a.js":       LangTSX,
		"a.tsx":      LangTSX,
		"a.mjs":      LangTSX,
		"index.html": LangHTML,
	}
	for file, want := range tests {
		got, ok := LanguageFor(file)
		assert.True(t, ok, file)
		assert.Equal(t, want, got, file)
	}
	_, ok := LanguageFor("style.css")
	assert.False(t, ok)
}

func TestQueryManagerUnknownQuery(t *testing.T) {
	qm, err := NewQueryManager(map[Language][]string{LangTypeScript: {"imports"}})
	require.NoError(t, err)
	defer qm.Close()

	_, err = qm.Query(LangTypeScript, "missing")
	assert.Error(t, err)

	_, err = NewQueryManager(map[Language][]string{LangHTML: {"missing"}})
	assert.Error(t, err)

	qm.Close()
}
