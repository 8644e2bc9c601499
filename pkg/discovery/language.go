// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package discovery

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/Bullish-Design/remora-sub001/internal/errs"
)

// Language binds a tree-sitter grammar to the extraction query that
// turns its parse tree into SourceNodes.
type Language struct {
	Name       string
	Extensions []string
	Grammar    *sitter.Language
	Query      string
}

// registry maps file extension (including the leading dot) to the
// Language that handles it. Built once at package init from the
// built-in language set; LanguagesByExt exposes a copy for callers
// that want to extend or restrict it.
var registry = buildRegistry()

func buildRegistry() map[string]*Language {
	langs := []*Language{
		{Name: "go", Extensions: []string{".go"}, Grammar: golang.GetLanguage(), Query: goQuery},
		{Name: "python", Extensions: []string{".py"}, Grammar: python.GetLanguage(), Query: pythonQuery},
		{Name: "javascript", Extensions: []string{".js", ".jsx", ".mjs"}, Grammar: javascript.GetLanguage(), Query: javascriptQuery},
	}

	m := make(map[string]*Language)
	for _, l := range langs {
		for _, ext := range l.Extensions {
			m[ext] = l
		}
	}
	return m
}

// LanguagesByExt returns the built-in extension-to-language table.
func LanguagesByExt() map[string]*Language {
	out := make(map[string]*Language, len(registry))
	for ext, l := range registry {
		out[ext] = l
	}
	return out
}

// compiledQuery caches one *sitter.Query per Language so Walk does not
// recompile the same query for every matching file.
type compiledQuery struct {
	query *sitter.Query
	lang  *Language
}

func compileQueries(langs map[string]*Language) (map[string]*compiledQuery, error) {
	seen := make(map[*Language]*compiledQuery)
	out := make(map[string]*compiledQuery, len(langs))

	for ext, l := range langs {
		cq, ok := seen[l]
		if !ok {
			q, err := sitter.NewQuery([]byte(l.Query), l.Grammar)
			if err != nil {
				return nil, errs.Wrap(errs.ErrDiscovery, "compiling %s extraction query: %v", l.Name, err)
			}
			cq = &compiledQuery{query: q, lang: l}
			seen[l] = cq
		}
		out[ext] = cq
	}
	return out, nil
}
