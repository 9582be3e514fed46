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
	"embed"
	"fmt"
	"path"
	"sync"

	ts "github.com/tree-sitter/go-tree-sitter"
	tsHtml "github.com/tree-sitter/tree-sitter-html/bindings/go"
	tsTypescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

//go:embed queries/*/*.scm
var queryFiles embed.FS

// Language names a grammar the scanner can parse.
type Language string

const (
	LangHTML       Language = "html"
	LangTypeScript Language = "typescript"
	LangTSX        Language = "tsx"
)

var languages = map[Language]*ts.Language{
	LangHTML:       ts.NewLanguage(tsHtml.Language()),
	LangTypeScript: ts.NewLanguage(tsTypescript.LanguageTypescript()),
	LangTSX:        ts.NewLanguage(tsTypescript.LanguageTSX()),
}

// queryDirs maps a language onto the directory its queries live in.
// TSX shares the TypeScript queries.
var queryDirs = map[Language]string{
	LangHTML:       "html",
	LangTypeScript: "typescript",
	LangTSX:        "typescript",
}

var parserPools = map[Language]*sync.Pool{
	LangHTML:       newParserPool(LangHTML),
	LangTypeScript: newParserPool(LangTypeScript),
	LangTSX:        newParserPool(LangTSX),
}

func newParserPool(lang Language) *sync.Pool {
	return &sync.Pool{
		New: func() any {
			parser := ts.NewParser()
			if err := parser.SetLanguage(languages[lang]); err != nil {
				panic(fmt.Sprintf("failed to set %s language: %v", lang, err))
			}
			return parser
		},
	}
}

func getParser(lang Language) *ts.Parser {
	return parserPools[lang].Get().(*ts.Parser)
}

func putParser(lang Language, p *ts.Parser) {
	p.Reset()
	parserPools[lang].Put(p)
}

// QueryManager owns compiled tree-sitter queries, per language.
type QueryManager struct {
	mu      sync.Mutex
	closed  bool
	queries map[Language]map[string]*ts.Query
}

// NewQueryManager compiles the named queries for each language.
func NewQueryManager(names map[Language][]string) (*QueryManager, error) {
	qm := &QueryManager{queries: make(map[Language]map[string]*ts.Query)}
	for lang, list := range names {
		for _, name := range list {
			if err := qm.loadQuery(lang, name); err != nil {
				qm.Close()
				return nil, err
			}
		}
	}
	return qm, nil
}

func (qm *QueryManager) loadQuery(lang Language, name string) error {
	dir, ok := queryDirs[lang]
	if !ok {
		return fmt.Errorf("unknown language: %s", lang)
	}
	queryPath := path.Join("queries", dir, name+".scm")
	data, err := queryFiles.ReadFile(queryPath)
	if err != nil {
		return fmt.Errorf("failed to read query %s: %w", queryPath, err)
	}

	query, qerr := ts.NewQuery(languages[lang], string(data))
	if qerr != nil {
		return fmt.Errorf("failed to parse query %s/%s: %w", lang, name, qerr)
	}
	if qm.queries[lang] == nil {
		qm.queries[lang] = make(map[string]*ts.Query)
	}
	qm.queries[lang][name] = query
	return nil
}

// Close releases all query resources. Safe to call multiple times.
func (qm *QueryManager) Close() {
	qm.mu.Lock()
	if qm.closed {
		qm.mu.Unlock()
		return
	}
	qm.closed = true
	queries := qm.queries
	qm.queries = nil
	qm.mu.Unlock()

	for _, byName := range queries {
		for _, q := range byName {
			q.Close()
		}
	}
}

// Query returns a query by language and name.
func (qm *QueryManager) Query(lang Language, name string) (*ts.Query, error) {
	q, ok := qm.queries[lang][name]
	if !ok {
		return nil, fmt.Errorf("query not found: %s/%s", lang, name)
	}
	return q, nil
}

var (
	globalQM     *QueryManager
	globalQMOnce sync.Once
	globalQMErr  error
)

// GetQueryManager returns the process-wide query manager.
func GetQueryManager() (*QueryManager, error) {
	globalQMOnce.Do(func() {
		globalQM, globalQMErr = NewQueryManager(map[Language][]string{
			LangHTML:       {"scriptTags"},
			LangTypeScript: {"imports", "hot"},
			LangTSX:        {"imports", "hot"},
		})
	})
	return globalQM, globalQMErr
}
