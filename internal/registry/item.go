// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"seedr-cli/pkg/types"
)

const (
	// KindSubagent is a sub-agent definition installed as one or more files.
	KindSubagent ItemKind = "subagent"
	// KindCommand is a slash-command definition installed as one or more files.
	KindCommand ItemKind = "command"
	// KindMcpServer is an MCP server configuration. In addition to files it
	// contributes a fragment to the merged server configuration document.
	KindMcpServer ItemKind = "mcp-server"
)

var (
	// ErrInvalidItemKind is the sentinel error wrapped by InvalidItemKindError.
	ErrInvalidItemKind = errors.New("invalid item kind")
	// ErrInvalidItem is the sentinel error wrapped by InvalidItemError.
	ErrInvalidItem = errors.New("invalid item")
)

type (
	// ItemKind is the closed set of registry item variants.
	ItemKind string

	// InvalidItemKindError is returned when an ItemKind value is not recognized.
	InvalidItemKindError struct {
		Value ItemKind
	}

	// InvalidItemError is returned when an ItemSpec violates an item
	// invariant. Field identifies the offending field.
	InvalidItemError struct {
		Name  types.ItemName
		Field string
		Err   error
	}

	// EnvVar documents an environment variable an item needs at runtime.
	EnvVar struct {
		Name        types.EnvVarName
		Description string
		Required    bool
		// Default is the optional default value. Nil means no default.
		Default *string
	}

	// FileMapping maps one installed file: Dest is relative to the target
	// directory, Source is relative to the registry root. Mappings are
	// ordered as declared in the manifest.
	FileMapping struct {
		Dest   string
		Source string
	}

	// Fragment is the nested configuration document an mcp-server item
	// contributes to the merged output.
	Fragment map[string]any

	// ItemSpec carries the raw fields for constructing an Item. It is the
	// loader's hand-off format; NewItem validates it.
	ItemSpec struct {
		Name         types.ItemName
		Version      types.SemVer
		Kind         ItemKind
		Description  string
		Dependencies []types.ItemName
		EnvVars      []EnvVar
		Files        []FileMapping
		// Fragment must be non-nil exactly when Kind is KindMcpServer.
		Fragment Fragment
	}

	// Item is one validated registry entry. Items are constructed once by
	// the loader and immutable thereafter. The fragment is unexported and
	// only reachable through Fragment(), which keeps "fragment present iff
	// kind == mcp-server" a construction-time fact instead of a check every
	// consumer repeats.
	Item struct {
		Name         types.ItemName
		Version      types.SemVer
		Kind         ItemKind
		Description  string
		Dependencies []types.ItemName
		EnvVars      []EnvVar
		Files        []FileMapping

		fragment Fragment
	}
)

// Error implements the error interface.
func (e *InvalidItemKindError) Error() string {
	return fmt.Sprintf("invalid item kind %q (must be one of: subagent, command, mcp-server)", e.Value)
}

// Unwrap returns ErrInvalidItemKind for errors.Is() compatibility.
func (e *InvalidItemKindError) Unwrap() error { return ErrInvalidItemKind }

// Error implements the error interface.
func (e *InvalidItemError) Error() string {
	return fmt.Sprintf("invalid item %q: %s: %v", e.Name, e.Field, e.Err)
}

// Unwrap returns the underlying cause for errors.Is/As chains.
func (e *InvalidItemError) Unwrap() error { return e.Err }

// Is reports whether target is ErrInvalidItem.
func (e *InvalidItemError) Is(target error) bool { return target == ErrInvalidItem }

// Validate returns an error if the ItemKind is not one of the known variants.
func (k ItemKind) Validate() error {
	switch k {
	case KindSubagent, KindCommand, KindMcpServer:
		return nil
	}
	return &InvalidItemKindError{Value: k}
}

// NewItem validates spec and constructs an immutable Item.
func NewItem(spec ItemSpec) (*Item, error) {
	fail := func(field string, err error) (*Item, error) {
		return nil, &InvalidItemError{Name: spec.Name, Field: field, Err: err}
	}

	if err := spec.Name.Validate(); err != nil {
		return fail("name", err)
	}
	if err := spec.Version.Validate(); err != nil {
		return fail("version", err)
	}
	if err := spec.Kind.Validate(); err != nil {
		return fail("kind", err)
	}

	if spec.Kind == KindMcpServer && spec.Fragment == nil {
		return fail("fragment", errors.New("mcp-server items must declare a fragment"))
	}
	if spec.Kind != KindMcpServer && spec.Fragment != nil {
		return fail("fragment", fmt.Errorf("%s items must not declare a fragment", spec.Kind))
	}

	seenDeps := make(map[types.ItemName]bool, len(spec.Dependencies))
	for _, dep := range spec.Dependencies {
		if err := dep.Validate(); err != nil {
			return fail("dependencies", err)
		}
		if dep == spec.Name {
			return fail("dependencies", fmt.Errorf("item depends on itself"))
		}
		if seenDeps[dep] {
			return fail("dependencies", fmt.Errorf("duplicate dependency %q", dep))
		}
		seenDeps[dep] = true
	}

	seenEnv := make(map[types.EnvVarName]bool, len(spec.EnvVars))
	for _, ev := range spec.EnvVars {
		if err := ev.Name.Validate(); err != nil {
			return fail("env_vars", err)
		}
		if seenEnv[ev.Name] {
			return fail("env_vars", fmt.Errorf("duplicate environment variable %q", ev.Name))
		}
		seenEnv[ev.Name] = true
	}

	seenDest := make(map[string]bool, len(spec.Files))
	for _, fm := range spec.Files {
		if err := validateRelPath("dest", fm.Dest); err != nil {
			return fail("files", err)
		}
		if err := validateRelPath("source", fm.Source); err != nil {
			return fail("files", err)
		}
		if seenDest[fm.Dest] {
			return fail("files", fmt.Errorf("duplicate destination path %q", fm.Dest))
		}
		seenDest[fm.Dest] = true
	}

	return &Item{
		Name:         spec.Name,
		Version:      spec.Version,
		Kind:         spec.Kind,
		Description:  spec.Description,
		Dependencies: spec.Dependencies,
		EnvVars:      spec.EnvVars,
		Files:        spec.Files,
		fragment:     spec.Fragment,
	}, nil
}

// Fragment returns the item's configuration fragment. It is non-nil exactly
// for mcp-server items. Callers must treat the returned document as read-only.
func (i *Item) Fragment() Fragment {
	return i.fragment
}

// validateRelPath rejects absolute paths and path traversal in file mappings.
func validateRelPath(field, p string) error {
	if strings.TrimSpace(p) == "" {
		return fmt.Errorf("%s path must not be empty", field)
	}
	if filepath.IsAbs(p) {
		return fmt.Errorf("%s path %q must be relative", field, p)
	}
	clean := filepath.Clean(filepath.FromSlash(p))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%s path %q must not escape its root", field, p)
	}
	return nil
}
