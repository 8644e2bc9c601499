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

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/Bullish-Design/remora-sub001/internal/errs"
)

// Loader reads, decodes, defaults, and validates a RunConfig from a Provider.
type Loader struct {
	provider Provider
}

// NewLoader constructs a Loader over p.
func NewLoader(p Provider) *Loader {
	return &Loader{provider: p}
}

// Load produces a validated, defaulted RunConfig.
func (l *Loader) Load(ctx context.Context) (*RunConfig, error) {
	data, err := l.provider.Load(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.ErrConfig, "loading config: %v", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errs.Wrap(errs.ErrConfig, "parsing config yaml: %v", err)
	}

	cfg := &RunConfig{}
	if err := decode(raw, cfg); err != nil {
		return nil, errs.Wrap(errs.ErrConfig, "decoding config: %v", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(input map[string]any, output *RunConfig) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           output,
		TagName:          "yaml",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return fmt.Errorf("creating decoder: %w", err)
	}
	return decoder.Decode(input)
}
