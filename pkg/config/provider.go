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

package config

import (
	"context"
	"fmt"
	"os"
)

// Provider supplies the raw bytes a Loader decodes into a RunConfig.
// The interface exists so a Loader is never tied to one storage
// backend; the core only ships FileProvider, since remote config
// stores are out of scope for the execution plane.
type Provider interface {
	Load(ctx context.Context) ([]byte, error)
}

// FileProvider reads a RunConfig from a YAML file on disk.
type FileProvider struct {
	Path string
}

// NewFileProvider constructs a FileProvider for path.
func NewFileProvider(path string) *FileProvider {
	return &FileProvider{Path: path}
}

func (p *FileProvider) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", p.Path, err)
	}
	return data, nil
}
