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

// Package source holds the immutable discovered-syntax-unit type shared
// by discovery, the graph builder, and the executor.
package source

import (
	"crypto/sha256"
	"encoding/hex"
)

// FileStem returns path's base name with its directory and final
// extension removed, e.g. "/proj/pkg/a.py" -> "a". Discovery uses this
// to name file-type nodes; the graph builder uses the same function to
// recompute a file node's id when wiring FileEdge, so the two packages
// never drift apart.
func FileStem(path string) string {
	start := 0
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			start = i + 1
			break
		}
	}
	name := path[start:]
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			return name[:i]
		}
	}
	return name
}

// NodeType identifies the syntactic kind of a SourceNode. The set is
// open: implementers add new kinds as languages are added.
type NodeType string

const (
	NodeFile     NodeType = "file"
	NodeClass    NodeType = "class"
	NodeFunction NodeType = "function"
	NodeMethod   NodeType = "method"
	NodeSection  NodeType = "section"
	NodeTable    NodeType = "table"
)

// idHexLen is the number of hex characters kept from the sha256 digest.
const idHexLen = 16

// Node is an immutable discovered syntactic unit: a file, class,
// function, method, or other language-specific construct.
type Node struct {
	// ID is a 16-char hex string, deterministically derived from
	// (canonical file path, type, name). See DeriveID. Discovery appends
	// a "#n" suffix when two nodes of one walk derive the same id.
	ID string `json:"id"`

	Type NodeType `json:"type"`
	Name string   `json:"name"`

	// FilePath is the absolute canonical path of the file this node was
	// discovered in.
	FilePath string `json:"file_path"`

	// Text is the exact source slice of the node.
	Text string `json:"text"`

	// StartLine and EndLine are 1-indexed, inclusive.
	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line"`
}

// DeriveID computes the stable id for (canonicalPath, nodeType, name):
// the first 16 hex characters of sha256(canonicalPath || ":" || type ||
// ":" || name).
func DeriveID(canonicalPath string, nodeType NodeType, name string) string {
	sum := sha256.Sum256([]byte(canonicalPath + ":" + string(nodeType) + ":" + name))
	return hex.EncodeToString(sum[:])[:idHexLen]
}

// NewNode builds a Node and derives its ID from its own fields.
func NewNode(nodeType NodeType, name, filePath, text string, startLine, endLine int) Node {
	return Node{
		ID:        DeriveID(filePath, nodeType, name),
		Type:      nodeType,
		Name:      name,
		FilePath:  filePath,
		Text:      text,
		StartLine: startLine,
		EndLine:   endLine,
	}
}
