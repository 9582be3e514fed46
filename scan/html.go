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
	"strings"

	ts "github.com/tree-sitter/go-tree-sitter"
)

// ScriptTag represents a <script> tag found in HTML.
type ScriptTag struct {
	Type    string   // the type attribute, e.g. "module"
	Src     string   // the src attribute
	Inline  bool     // true if the script has inline content
	Content string   // the inline content
	Imports []string // import specifiers found in inline content
}

// IsModule reports whether the tag is an ES module script.
func (s ScriptTag) IsModule() bool {
	return s.Type == "module"
}

// ExtractScripts parses HTML content and extracts all script tags.
func ExtractScripts(content []byte) ([]ScriptTag, error) {
	qm, err := GetQueryManager()
	if err != nil {
		return nil, err
	}

	parser := getParser(LangHTML)
	defer putParser(LangHTML, parser)

	tree := parser.Parse(content, nil)
	defer tree.Close()

	query, err := qm.Query(LangHTML, "scriptTags")
	if err != nil {
		return nil, err
	}

	cursor := ts.NewQueryCursor()
	defer cursor.Close()

	var scripts []ScriptTag
	matches := cursor.Matches(query, tree.RootNode(), content)

	for {
		match := matches.Next()
		if match == nil {
			break
		}
		for i := range match.Captures {
			scripts = append(scripts, readScript(&match.Captures[i].Node, content))
		}
	}

	return scripts, nil
}

func readScript(element *ts.Node, content []byte) ScriptTag {
	script := ScriptTag{}
	for i := uint(0); i < element.NamedChildCount(); i++ {
		child := element.NamedChild(i)
		switch child.Kind() {
		case "start_tag":
			readAttributes(child, content, &script)
		case "raw_text":
			raw := strings.TrimSpace(child.Utf8Text(content))
			if raw != "" && script.Src == "" {
				script.Content = raw
				script.Inline = true
			}
		}
	}

	// Best-effort: syntax errors in inline scripts are ignored. Classic
	// scripts can only load modules dynamically.
	if script.Inline {
		imports, _ := ExtractImports([]byte(script.Content))
		for _, imp := range imports {
			if script.IsModule() || imp.IsDynamic {
				script.Imports = append(script.Imports, imp.Specifier)
			}
		}
	}
	return script
}

func readAttributes(tag *ts.Node, content []byte, script *ScriptTag) {
	for i := uint(0); i < tag.NamedChildCount(); i++ {
		attr := tag.NamedChild(i)
		if attr.Kind() != "attribute" {
			continue
		}
		var name, value string
		for j := uint(0); j < attr.NamedChildCount(); j++ {
			part := attr.NamedChild(j)
			switch part.Kind() {
			case "attribute_name":
				name = strings.ToLower(part.Utf8Text(content))
			case "attribute_value":
				value = part.Utf8Text(content)
			case "quoted_attribute_value":
				if part.NamedChildCount() > 0 {
					value = part.NamedChild(0).Utf8Text(content)
				}
			}
		}
		switch name {
		case "type":
			script.Type = value
		case "src":
			script.Src = value
		}
	}
}
