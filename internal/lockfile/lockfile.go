// SPDX-License-Identifier: MPL-2.0

// Package lockfile reads and writes the seedr.lock.json record of a
// completed installation: which items were resolved, at which versions,
// and the content hash of every installed file. The lock file is the
// input for reproducing the same installation elsewhere.
package lockfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"time"

	"seedr-cli/internal/install"
	"seedr-cli/internal/registry"
	"seedr-cli/pkg/types"
)

const (
	// FileName is the lock file's name inside the target directory.
	FileName = "seedr.lock.json"

	// FormatVersion is the current lock file format version. Bump on any
	// incompatible schema change.
	FormatVersion = "1"
)

var (
	// ErrUnsupportedFormat is the sentinel error wrapped by UnsupportedFormatError.
	ErrUnsupportedFormat = errors.New("unsupported lock file format")
	// ErrVersionMismatch is the sentinel error wrapped by VersionMismatchError.
	ErrVersionMismatch = errors.New("locked version differs from registry version")
	// ErrLockedItemMissing is the sentinel error wrapped by LockedItemMissingError.
	ErrLockedItemMissing = errors.New("locked item missing from registry")
)

type (
	// FileEntry records one installed file of one item.
	FileEntry struct {
		// Dest is the destination path relative to the target directory.
		Dest string `json:"dest"`
		// Size is the content length in bytes.
		Size int64 `json:"size"`
		// Hash is the canonical content hash ("sha256:<hex>").
		Hash string `json:"hash"`
	}

	// ItemEntry records one resolved item at the version it was installed.
	ItemEntry struct {
		Version types.SemVer      `json:"version"`
		Kind    registry.ItemKind `json:"kind"`
		// AutoIncluded is true for items pulled in via dependency edges
		// rather than selected explicitly.
		AutoIncluded bool        `json:"auto_included,omitempty"`
		Files        []FileEntry `json:"files,omitempty"`
	}

	// LockFile is the full seedr.lock.json document.
	LockFile struct {
		FormatVersion string    `json:"format_version"`
		GeneratedAt   time.Time `json:"generated_at"`
		// RegistryPath records the registry this installation came from, as
		// given at init time. Informational for reproduction runs, which may
		// point at a copy of the registry elsewhere.
		RegistryPath string `json:"registry_path"`
		// Explicit preserves the user's original selection so a later run
		// can distinguish it from dependency-driven inclusions.
		Explicit []types.ItemName `json:"explicit"`
		// Force records whether conflicts were overridden when this lock was
		// produced. A reproduction run replays the same policy.
		Force bool `json:"force,omitempty"`
		// Merged is the hash of the merged server configuration document,
		// empty when no mcp-server item contributed a fragment.
		Merged string `json:"merged,omitempty"`
		// Items maps item name to its locked entry. JSON serialization
		// sorts the keys, keeping the file diff-friendly and reproducible.
		Items map[types.ItemName]ItemEntry `json:"items"`
	}

	// UnsupportedFormatError is returned when a lock file declares a format
	// version this build does not understand.
	UnsupportedFormatError struct {
		Path  string
		Found string
	}

	// VersionMismatch describes one item whose registry version no longer
	// matches the locked version.
	VersionMismatch struct {
		Name     types.ItemName
		Locked   types.SemVer
		Registry types.SemVer
	}

	// VersionMismatchError is returned when the registry has drifted from
	// the lock file. Mismatches lists every drifted item, not just the first.
	VersionMismatchError struct {
		Mismatches []VersionMismatch
	}

	// LockedItemMissingError is returned when a locked item no longer
	// exists in the registry at all.
	LockedItemMissingError struct {
		Name types.ItemName
	}
)

// Direction reports whether the registry moved ahead of or behind the lock.
func (m VersionMismatch) Direction() string {
	if m.Registry.Compare(m.Locked) > 0 {
		return "newer"
	}
	return "older"
}

// Error implements the error interface.
func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("lock file %s uses format version %q, this build supports %q",
		e.Path, e.Found, FormatVersion)
}

// Unwrap returns ErrUnsupportedFormat for errors.Is() compatibility.
func (e *UnsupportedFormatError) Unwrap() error { return ErrUnsupportedFormat }

// Error implements the error interface.
func (e *VersionMismatchError) Error() string {
	if len(e.Mismatches) == 1 {
		m := e.Mismatches[0]
		return fmt.Sprintf("item %q is locked at %s but the registry has %s (%s)",
			m.Name, m.Locked, m.Registry, m.Direction())
	}
	return fmt.Sprintf("%d items have drifted from the lock file", len(e.Mismatches))
}

// Unwrap returns ErrVersionMismatch for errors.Is() compatibility.
func (e *VersionMismatchError) Unwrap() error { return ErrVersionMismatch }

// Error implements the error interface.
func (e *LockedItemMissingError) Error() string {
	return fmt.Sprintf("item %q is in the lock file but not in the registry", e.Name)
}

// Unwrap returns ErrLockedItemMissing for errors.Is() compatibility.
func (e *LockedItemMissingError) Unwrap() error { return ErrLockedItemMissing }

// New builds a lock file from a completed installation. Items carries the
// resolved working set, autoIncluded flags the dependency-driven members,
// result supplies the per-file hashes the installer recorded, and
// registryPath names the registry the content came from.
func New(items []*registry.Item, explicit []types.ItemName, autoIncluded map[types.ItemName]bool, result *install.Result, registryPath string) *LockFile {
	lf := &LockFile{
		FormatVersion: FormatVersion,
		GeneratedAt:   time.Now().UTC().Truncate(time.Second),
		RegistryPath:  registryPath,
		Explicit:      explicit,
		Items:         make(map[types.ItemName]ItemEntry, len(items)),
	}

	filesByItem := make(map[types.ItemName][]FileEntry)
	for _, rec := range result.Files {
		filesByItem[rec.Item] = append(filesByItem[rec.Item], FileEntry{
			Dest: rec.Dest,
			Size: rec.Size,
			Hash: rec.Hash,
		})
	}
	if result.MergedConfig != nil {
		lf.Merged = result.MergedConfig.Hash
	}

	for _, item := range items {
		lf.Items[item.Name] = ItemEntry{
			Version:      item.Version,
			Kind:         item.Kind,
			AutoIncluded: autoIncluded[item.Name],
			Files:        filesByItem[item.Name],
		}
	}
	return lf
}

// Load reads and parses the lock file at path.
func Load(path string) (*LockFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lock file: %w", err)
	}

	var lf LockFile
	if err := json.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("parse lock file %s: %w", path, err)
	}
	if lf.FormatVersion != FormatVersion {
		return nil, &UnsupportedFormatError{Path: path, Found: lf.FormatVersion}
	}
	if lf.Items == nil {
		lf.Items = make(map[types.ItemName]ItemEntry)
	}
	return &lf, nil
}

// Marshal serializes the lock file as indented JSON with sorted map keys,
// so the same installation always produces byte-identical output (modulo
// the timestamp).
func (l *LockFile) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serialize lock file: %w", err)
	}
	return append(data, '\n'), nil
}

// Save writes the lock file to path atomically via temp file + rename.
func (l *LockFile) Save(path string) error {
	data, err := l.Marshal()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create lock file directory: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write lock file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename lock file: %w", err)
	}
	return nil
}

// CheckAgainst verifies the lock file against the current registry catalog:
// every locked item must still exist at exactly the locked version. It
// returns LockedItemMissingError for a vanished item and a
// VersionMismatchError listing every drifted item otherwise. Names are
// checked in sorted order so the first reported problem is deterministic.
func (l *LockFile) CheckAgainst(catalog *registry.Catalog) error {
	var mismatches []VersionMismatch
	for _, name := range sortedNames(l.Items) {
		entry := l.Items[name]
		item, ok := catalog.Get(name)
		if !ok {
			return &LockedItemMissingError{Name: name}
		}
		if item.Version.Compare(entry.Version) != 0 {
			mismatches = append(mismatches, VersionMismatch{
				Name:     name,
				Locked:   entry.Version,
				Registry: item.Version,
			})
		}
	}
	if len(mismatches) > 0 {
		return &VersionMismatchError{Mismatches: mismatches}
	}
	return nil
}

// VerifyInstalled checks every recorded file hash against the actual
// content under targetDir. The merged document hash is checked too when
// present. The first mismatch is returned as a *install.ChecksumError.
func (l *LockFile) VerifyInstalled(targetDir string) error {
	for _, name := range sortedNames(l.Items) {
		for _, fe := range l.Items[name].Files {
			if err := install.VerifyFile(filepath.Join(targetDir, filepath.FromSlash(fe.Dest)), fe.Hash); err != nil {
				return err
			}
		}
	}
	if l.Merged != "" {
		if err := install.VerifyFile(filepath.Join(targetDir, install.MergedConfigPath), l.Merged); err != nil {
			return err
		}
	}
	return nil
}

func sortedNames(items map[types.ItemName]ItemEntry) []types.ItemName {
	return slices.Sorted(maps.Keys(items))
}
