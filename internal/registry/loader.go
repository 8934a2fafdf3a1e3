// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"seedr-cli/pkg/types"
)

// ManifestFileName is the per-item manifest file name inside each item
// directory of the registry tree.
const ManifestFileName = "item.yaml"

// ErrManifest is the sentinel error wrapped by ManifestError.
var ErrManifest = errors.New("invalid item manifest")

type (
	// ManifestError is returned when an item manifest cannot be parsed or
	// violates an item invariant. Path is the manifest file path.
	ManifestError struct {
		Path string
		Err  error
	}

	// manifest mirrors the on-disk item.yaml schema. It is decoded strictly:
	// unknown fields are an error so typos surface instead of being ignored.
	manifest struct {
		Name         string            `yaml:"name"`
		Version      string            `yaml:"version"`
		Kind         string            `yaml:"kind"`
		Description  string            `yaml:"description"`
		Dependencies []string          `yaml:"dependencies"`
		EnvVars      []manifestEnvVar  `yaml:"env_vars"`
		Files        []manifestFile    `yaml:"files"`
		Fragment     map[string]any    `yaml:"fragment"`
	}

	manifestEnvVar struct {
		Name        string  `yaml:"name"`
		Description string  `yaml:"description"`
		// Required is a pointer so a missing field is distinguishable from
		// an explicit false; the manifest must state it either way.
		Required *bool   `yaml:"required"`
		Default  *string `yaml:"default"`
	}

	manifestFile struct {
		Dest   string `yaml:"dest"`
		Source string `yaml:"source"`
	}
)

// Error implements the error interface.
func (e *ManifestError) Error() string {
	return fmt.Sprintf("invalid item manifest %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying cause for errors.Is/As chains.
func (e *ManifestError) Unwrap() error { return e.Err }

// Is reports whether target is ErrManifest.
func (e *ManifestError) Is(target error) bool { return target == ErrManifest }

// Load walks the registry directory and builds the catalog. Each immediate
// subdirectory containing an item.yaml manifest contributes one item;
// directories without a manifest are ignored (shared asset trees live there).
// Any malformed manifest aborts the load: the catalog is all-or-nothing.
func Load(registryPath string) (*Catalog, error) {
	entries, err := os.ReadDir(registryPath)
	if err != nil {
		return nil, fmt.Errorf("read registry %s: %w", registryPath, err)
	}

	var items []*Item
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		manifestPath := filepath.Join(registryPath, entry.Name(), ManifestFileName)
		data, err := os.ReadFile(manifestPath)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("read manifest %s: %w", manifestPath, err)
		}

		item, err := parseManifest(manifestPath, entry.Name(), data)
		if err != nil {
			return nil, err
		}

		// The catalog guarantees source files exist before the pipeline
		// runs, so staging failures are limited to genuine I/O errors.
		for _, fm := range item.Files {
			src := filepath.Join(registryPath, filepath.FromSlash(fm.Source))
			if _, err := os.Stat(src); err != nil {
				return nil, &ManifestError{
					Path: manifestPath,
					Err:  fmt.Errorf("source file %q: %w", fm.Source, err),
				}
			}
		}

		items = append(items, item)
	}

	return NewCatalog(items)
}

// parseManifest decodes and validates a single item.yaml document.
// dirName is the item's directory name, which must match the declared name
// so on-disk layout and catalog identity cannot drift apart.
func parseManifest(path, dirName string, data []byte) (*Item, error) {
	var m manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, &ManifestError{Path: path, Err: err}
	}

	if m.Name != dirName {
		return nil, &ManifestError{
			Path: path,
			Err:  fmt.Errorf("declared name %q does not match directory name %q", m.Name, dirName),
		}
	}

	spec := ItemSpec{
		Name:        types.ItemName(m.Name),
		Version:     types.SemVer(m.Version),
		Kind:        ItemKind(m.Kind),
		Description: m.Description,
	}

	for _, dep := range m.Dependencies {
		spec.Dependencies = append(spec.Dependencies, types.ItemName(dep))
	}

	for i, ev := range m.EnvVars {
		if ev.Required == nil {
			return nil, &ManifestError{
				Path: path,
				Err:  fmt.Errorf("env_vars[%d] (%s): required must be stated explicitly", i, ev.Name),
			}
		}
		spec.EnvVars = append(spec.EnvVars, EnvVar{
			Name:        types.EnvVarName(ev.Name),
			Description: ev.Description,
			Required:    *ev.Required,
			Default:     ev.Default,
		})
	}

	for _, fm := range m.Files {
		spec.Files = append(spec.Files, FileMapping{Dest: fm.Dest, Source: fm.Source})
	}

	if m.Fragment != nil {
		spec.Fragment = Fragment(m.Fragment)
	}

	item, err := NewItem(spec)
	if err != nil {
		return nil, &ManifestError{Path: path, Err: err}
	}
	return item, nil
}
