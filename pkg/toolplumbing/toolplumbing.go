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

// Package toolplumbing holds the small pieces every component needs
// but none of them owns: translating a SourceNode's absolute project
// path into the path an agent's workspace understands, and discovering
// the tool scripts a bundle ships alongside its prompt. The core never
// interprets a tool script's contents — only its name and location.
package toolplumbing

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Bullish-Design/remora-sub001/internal/errs"
)

// ToProjectRelative converts projectRoot-absolute path filePath into the
// slash-relative form a workspace.Workspace's Read/Write/Exists expect.
// It rejects paths that escape projectRoot (".." after Rel), returning
// an empty string and an error the caller should treat as
// "not representable in this workspace" rather than fatal.
func ToProjectRelative(projectRoot, filePath string) (string, error) {
	rel, err := filepath.Rel(projectRoot, filePath)
	if err != nil {
		return "", errs.Wrap(errs.ErrWorkspace, "relativizing %s against %s: %v", filePath, projectRoot, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errs.Wrap(errs.ErrWorkspace, "%s escapes project root %s", filePath, projectRoot)
	}
	return filepath.ToSlash(rel), nil
}

// ToProjectAbsolute is ToProjectRelative's inverse: join a
// workspace-relative path back onto projectRoot to get the path the
// real filesystem (or a tool script invoked against it) expects.
func ToProjectAbsolute(projectRoot, relPath string) string {
	return filepath.Join(projectRoot, filepath.FromSlash(relPath))
}

// ToolScript is one executable discovered under a bundle's tools/ dir.
type ToolScript struct {
	// Name is the file name with its extension stripped, e.g. "lint.sh" -> "lint".
	Name string
	// Path is the script's absolute path.
	Path string
}

// DiscoverTools scans <bundlePath>/tools for executable files and
// returns them sorted by Name. A missing tools/ directory is not an
// error: bundles are not required to carry any tool scripts.
func DiscoverTools(bundlePath string) ([]ToolScript, error) {
	toolsDir := filepath.Join(bundlePath, "tools")

	entries, err := os.ReadDir(toolsDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrWorkspace, "scanning tool dir %s: %v", toolsDir, err)
	}

	var scripts []ToolScript
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		info, err := ent.Info()
		if err != nil {
			return nil, errs.Wrap(errs.ErrWorkspace, "statting %s: %v", ent.Name(), err)
		}
		if info.Mode()&0o111 == 0 {
			continue
		}
		scripts = append(scripts, ToolScript{
			Name: stripExt(ent.Name()),
			Path: filepath.Join(toolsDir, ent.Name()),
		})
	}

	sort.Slice(scripts, func(i, j int) bool { return scripts[i].Name < scripts[j].Name })
	return scripts, nil
}

// FindTool looks up a single tool script by name within bundlePath.
func FindTool(bundlePath, name string) (ToolScript, bool, error) {
	scripts, err := DiscoverTools(bundlePath)
	if err != nil {
		return ToolScript{}, false, err
	}
	for _, s := range scripts {
		if s.Name == name {
			return s, true, nil
		}
	}
	return ToolScript{}, false, nil
}

func stripExt(name string) string {
	ext := filepath.Ext(name)
	if ext == "" {
		return name
	}
	return strings.TrimSuffix(name, ext)
}

// DescribeTools renders a short human-readable list, used by prompt
// assembly to tell an agent what tools its bundle makes available.
func DescribeTools(scripts []ToolScript) string {
	if len(scripts) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("Available tools:\n")
	for _, s := range scripts {
		fmt.Fprintf(&sb, "- %s (%s)\n", s.Name, s.Path)
	}
	return sb.String()
}
