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

// Package discovery walks a project tree, parses every file whose
// extension is registered to a language, and extracts one SourceNode
// per file plus one per function/method/class construct found by that
// language's tree-sitter query, at any nesting depth.
//
// Discovery is error-tolerant at the file level (an unreadable or
// unparseable file is skipped with a warning) and fatal only at the
// query-pack level (a Language whose query fails to compile aborts the
// whole walk, since every file of that language would otherwise be
// silently skipped).
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/Bullish-Design/remora-sub001/pkg/source"
)

// Options configures Walk.
type Options struct {
	// IgnoreDirs names directories (matched by base name) never descended into.
	IgnoreDirs []string
	// Languages overrides the built-in extension table; nil uses LanguagesByExt().
	Languages map[string]*Language
	// MaxFileBytes skips (with a warning) any file larger than this. 0 means no limit.
	MaxFileBytes int64
}

// Walk discovers every SourceNode under root. The returned slice is
// sorted deterministically by (file path, start line, type) so two
// runs over an unchanged tree produce identical graphs.
func Walk(ctx context.Context, root string, opts Options) ([]source.Node, error) {
	langs := opts.Languages
	if langs == nil {
		langs = LanguagesByExt()
	}
	queries, err := compileQueries(langs)
	if err != nil {
		return nil, err
	}

	ignore := make(map[string]struct{}, len(opts.IgnoreDirs))
	for _, d := range opts.IgnoreDirs {
		ignore[d] = struct{}{}
	}

	var nodes []source.Node
	ids := make(map[string]int) // collision counter, keyed by original id

	err = filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return fmt.Errorf("walking %s: %w", path, walkErr)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if _, skip := ignore[d.Name()]; skip {
				return filepath.SkipDir
			}
			return nil
		}

		cq, ok := queries[strings.ToLower(filepath.Ext(path))]
		if !ok {
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			slog.Warn("discovery: cannot stat file, skipping", "path", path, "error", infoErr)
			return nil
		}
		if opts.MaxFileBytes > 0 && info.Size() > opts.MaxFileBytes {
			slog.Warn("discovery: file exceeds size limit, skipping", "path", path, "size", info.Size())
			return nil
		}

		fileNodes, fileErr := extractFile(ctx, path, cq)
		if fileErr != nil {
			slog.Warn("discovery: skipping unparseable file", "path", path, "error", fileErr)
			return nil
		}

		for i := range fileNodes {
			dedupeID(&fileNodes[i], ids)
		}
		nodes = append(nodes, fileNodes...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].FilePath != nodes[j].FilePath {
			return nodes[i].FilePath < nodes[j].FilePath
		}
		if nodes[i].StartLine != nodes[j].StartLine {
			return nodes[i].StartLine < nodes[j].StartLine
		}
		return nodes[i].Type < nodes[j].Type
	})

	return nodes, nil
}

// dedupeID appends a "#n" suffix to n's id (and warns) if an earlier
// node in this walk already claimed the same id. Collisions happen
// when a query's name capture produces a non-unique name within one
// file, e.g. two overloaded-by-signature functions in a language Go's
// grammar doesn't disambiguate further.
func dedupeID(n *source.Node, ids map[string]int) {
	count := ids[n.ID]
	ids[n.ID] = count + 1
	if count == 0 {
		return
	}
	original := n.ID
	n.ID = fmt.Sprintf("%s#%d", original, count)
	slog.Warn("discovery: node id collision, disambiguating", "original_id", original, "new_id", n.ID, "file", n.FilePath, "name", n.Name)
}

func extractFile(ctx context.Context, path string, cq *compiledQuery) ([]source.Node, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	parser := sitter.NewParser()
	parser.SetLanguage(cq.lang.Grammar)
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	defer tree.Close()

	lineStarts := computeLineStarts(src)
	lastLine := len(lineStarts)
	if len(src) > 0 && src[len(src)-1] == '\n' {
		lastLine--
	}
	fileStem := source.FileStem(path)
	nodes := []source.Node{
		source.NewNode(source.NodeFile, fileStem, path, string(src), 1, lastLine),
	}

	cursor := sitter.NewQueryCursor()
	defer cursor.Close()
	cursor.Exec(cq.query, tree.RootNode())

	for {
		match, ok := cursor.NextMatch()
		if !ok {
			break
		}

		var defCapture, nameCapture *sitter.Node
		var kind string
		for _, c := range match.Captures {
			capName := cq.query.CaptureNameForId(c.Index)
			parts := strings.SplitN(capName, ".", 2)
			if len(parts) != 2 {
				continue
			}
			k, role := parts[0], parts[1]
			switch role {
			case "def":
				defCapture = c.Node
				kind = k
			case "name":
				nameCapture = c.Node
			}
		}
		if defCapture == nil || nameCapture == nil {
			continue
		}

		nodeType := toNodeType(kind)
		if nodeType == "" {
			continue
		}

		name := nameCapture.Content(src)
		text := defCapture.Content(src)
		start := int(defCapture.StartPoint().Row) + 1
		end := int(defCapture.EndPoint().Row) + 1

		nodes = append(nodes, source.NewNode(nodeType, name, path, text, start, end))
	}

	return nodes, nil
}

func toNodeType(kind string) source.NodeType {
	switch kind {
	case "function":
		return source.NodeFunction
	case "method":
		return source.NodeMethod
	case "class":
		return source.NodeClass
	default:
		return ""
	}
}

func computeLineStarts(src []byte) []int {
	starts := []int{0}
	for i, b := range src {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}
