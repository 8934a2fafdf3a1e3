// SPDX-License-Identifier: MPL-2.0

package config

import "context"

// LoadOptions defines explicit configuration loading inputs.
type LoadOptions struct {
	// ConfigFilePath forces loading from a specific config file when set.
	// The CLI routes its --config flag here.
	ConfigFilePath string
	// ConfigDirPath overrides the platform config directory lookup when
	// set, bypassing the XDG/AppData resolution.
	ConfigDirPath string
}

// Provider loads seedr configuration from explicit options.
type Provider interface {
	Load(ctx context.Context, opts LoadOptions) (*Config, error)
}

type fileProvider struct{}

// NewProvider creates a provider reading config.cue from disk. Missing
// files are not an error; defaults apply.
func NewProvider() Provider {
	return &fileProvider{}
}

// Load reads configuration from the requested source, validates it against
// the schema, and folds in the SEEDR_REGISTRY_PATH environment override.
func (p *fileProvider) Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	cfg, _, err := loadWithOptions(ctx, opts)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}
