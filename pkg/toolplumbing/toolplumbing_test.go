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

package toolplumbing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToProjectRelative_NormalPath(t *testing.T) {
	rel, err := ToProjectRelative("/proj", "/proj/pkg/a.go")
	require.NoError(t, err)
	assert.Equal(t, "pkg/a.go", rel)
}

func TestToProjectRelative_RejectsEscape(t *testing.T) {
	_, err := ToProjectRelative("/proj/sub", "/proj/other/a.go")
	require.Error(t, err)
}

func TestToProjectAbsolute_RoundTrips(t *testing.T) {
	abs := ToProjectAbsolute("/proj", "pkg/a.go")
	assert.Equal(t, filepath.Join("/proj", "pkg", "a.go"), abs)
}

func TestDiscoverTools_FindsExecutablesOnly(t *testing.T) {
	bundleDir := t.TempDir()
	toolsDir := filepath.Join(bundleDir, "tools")
	require.NoError(t, os.MkdirAll(toolsDir, 0o755))

	require.NoError(t, os.WriteFile(filepath.Join(toolsDir, "lint.sh"), []byte("#!/bin/sh\n"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(toolsDir, "README.md"), []byte("not a tool"), 0o644))

	scripts, err := DiscoverTools(bundleDir)
	require.NoError(t, err)
	require.Len(t, scripts, 1)
	assert.Equal(t, "lint", scripts[0].Name)
}

func TestDiscoverTools_MissingDirIsNotAnError(t *testing.T) {
	scripts, err := DiscoverTools(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, scripts)
}

func TestFindTool_LooksUpByName(t *testing.T) {
	bundleDir := t.TempDir()
	toolsDir := filepath.Join(bundleDir, "tools")
	require.NoError(t, os.MkdirAll(toolsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(toolsDir, "format.sh"), []byte("#!/bin/sh\n"), 0o755))

	script, ok, err := FindTool(bundleDir, "format")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(toolsDir, "format.sh"), script.Path)

	_, ok, err = FindTool(bundleDir, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDescribeTools_EmptyListRendersEmptyString(t *testing.T) {
	assert.Equal(t, "", DescribeTools(nil))
}
