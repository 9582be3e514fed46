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
	"fmt"
	"path/filepath"
	"strings"

	ts "github.com/tree-sitter/go-tree-sitter"

	"bennypowers.dev/hotmod/graph"
)

// ModuleImport is one import specifier found in a module.
type ModuleImport struct {
	Specifier string // e.g. "lit", "./foo.js"
	IsDynamic bool   // true for import()
	Line      int    // 1-indexed
}

// Module is what the scanner learns from one source file.
type Module struct {
	Imports []ModuleImport
	HMR     graph.HMR
}

// LanguageFor picks the grammar for a source file by extension. Files that
// may contain JSX use the TSX grammar.
func LanguageFor(file string) (Language, bool) {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".ts", ".mts", ".cts":
		return LangTypeScript, true
	case ".js", ".mjs", ".cjs", ".jsx", ".tsx":
		return LangTSX, true
	case ".html", ".htm":
		return LangHTML, true
	}
	return "", false
}

// ExtractImports parses JavaScript or TypeScript and returns its import
// specifiers in source order.
func ExtractImports(content []byte) ([]ModuleImport, error) {
	mod, err := ParseModule(content, LangTypeScript)
	if err != nil {
		return nil, err
	}
	return mod.Imports, nil
}

// ParseModule parses a script in the given language and returns its
// imports and its use of the import.meta.hot API.
func ParseModule(content []byte, lang Language) (*Module, error) {
	if lang != LangTypeScript && lang != LangTSX {
		return nil, fmt.Errorf("not a script language: %s", lang)
	}
	qm, err := GetQueryManager()
	if err != nil {
		return nil, err
	}

	parser := getParser(lang)
	defer putParser(lang, parser)

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse content")
	}
	defer tree.Close()

	mod := &Module{}
	if mod.Imports, err = queryImports(qm, lang, tree, content); err != nil {
		return nil, err
	}
	if mod.HMR, err = queryHot(qm, lang, tree, content); err != nil {
		return nil, err
	}
	return mod, nil
}

func queryImports(qm *QueryManager, lang Language, tree *ts.Tree, content []byte) ([]ModuleImport, error) {
	query, err := qm.Query(lang, "imports")
	if err != nil {
		return nil, err
	}

	cursor := ts.NewQueryCursor()
	defer cursor.Close()

	var imports []ModuleImport
	matches := cursor.Matches(query, tree.RootNode(), content)
	captureNames := query.CaptureNames()

	for {
		match := matches.Next()
		if match == nil {
			break
		}
		for _, capture := range match.Captures {
			imp := ModuleImport{
				Specifier: capture.Node.Utf8Text(content),
				Line:      int(capture.Node.StartPosition().Row) + 1,
			}
			switch captureNames[capture.Index] {
			case "import.spec", "reexport.spec":
			case "dynamicImport.spec":
				imp.IsDynamic = true
			default:
				continue
			}
			imports = append(imports, imp)
		}
	}
	return imports, nil
}

// queryHot finds import.meta.hot references. A reference is enough to mark
// the module HMR-enabled; a direct call to import.meta.hot.accept or
// import.meta.hot.decline sets the matching flag.
func queryHot(qm *QueryManager, lang Language, tree *ts.Tree, content []byte) (graph.HMR, error) {
	var hmr graph.HMR
	query, err := qm.Query(lang, "hot")
	if err != nil {
		return hmr, err
	}

	cursor := ts.NewQueryCursor()
	defer cursor.Close()

	matches := cursor.Matches(query, tree.RootNode(), content)
	captureNames := query.CaptureNames()

	for {
		match := matches.Next()
		if match == nil {
			break
		}
		var hot *ts.Node
		var property string
		for i := range match.Captures {
			capture := &match.Captures[i]
			switch captureNames[capture.Index] {
			case "hot":
				hot = &capture.Node
			case "hot.property":
				property = capture.Node.Utf8Text(content)
			}
		}
		if hot == nil || property != "hot" {
			continue
		}
		hmr.Enabled = true

		switch hotMethod(hot, content) {
		case "accept":
			hmr.Accepts = true
		case "decline":
			hmr.Declines = true
		}
	}
	return hmr, nil
}

// hotMethod returns the name of the method called directly on the
// import.meta.hot expression hot, or "" if it is not a method call.
func hotMethod(hot *ts.Node, content []byte) string {
	member := hot.Parent()
	if member == nil || member.Kind() != "member_expression" {
		return ""
	}
	if obj := member.ChildByFieldName("object"); obj == nil || obj.Id() != hot.Id() {
		return ""
	}
	call := member.Parent()
	if call == nil || call.Kind() != "call_expression" {
		return ""
	}
	if fn := call.ChildByFieldName("function"); fn == nil || fn.Id() != member.Id() {
		return ""
	}
	prop := member.ChildByFieldName("property")
	if prop == nil {
		return ""
	}
	return prop.Utf8Text(content)
}
