// SPDX-License-Identifier: MPL-2.0

// Package install writes the resolved working set to disk as a single
// all-or-nothing operation. Since the filesystem has no transactions, it
// stages everything into an arena directory on the same filesystem as the
// target, validates fully, and commits with atomic renames; any staging
// failure deletes the arena and leaves the target untouched.
package install

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"seedr-cli/internal/registry"
	"seedr-cli/pkg/types"
)

// MergedConfigPath is the fixed destination of the merged MCP server
// configuration document, relative to the target directory.
const MergedConfigPath = ".mcp.json"

const (
	// ModeCommit stages and commits the installation.
	ModeCommit Mode = iota
	// ModeDryRun computes the full plan without touching the target or
	// creating any staging directory.
	ModeDryRun
)

var (
	// ErrStaging is the sentinel error wrapped by StagingError.
	ErrStaging = errors.New("staging failed")
	// ErrPreexistingTarget is the sentinel error wrapped by PreexistingTargetError.
	ErrPreexistingTarget = errors.New("target already contains installed output")
	// ErrDuplicateDest is the sentinel error wrapped by DuplicateDestError.
	ErrDuplicateDest = errors.New("duplicate destination path")
)

type (
	// Mode selects between committing and planning an installation.
	Mode int

	// StagingError is returned for any I/O failure while populating or
	// committing the staging arena. By the time the caller sees it, the
	// arena has been deleted and the target directory is unchanged.
	StagingError struct {
		Path string
		Err  error
	}

	// PreexistingTargetError is returned when the target directory already
	// contains paths this installation would create. Pre-existing output is
	// never silently merged with a prior installation.
	PreexistingTargetError struct {
		TargetDir string
		Paths     []string
	}

	// DuplicateDestError is returned when two files in the working set map
	// to the same destination path. ItemA is empty when the collision is
	// with the merged configuration document.
	DuplicateDestError struct {
		Dest  string
		ItemA types.ItemName
		ItemB types.ItemName
	}

	// FileRecord describes one installed (or planned) file.
	FileRecord struct {
		// Item is the contributing item; empty for the merged config document.
		Item types.ItemName
		// Dest is the destination path relative to the target directory.
		Dest string
		// Size is the file's content length in bytes.
		Size int64
		// Hash is the canonical content hash ("sha256:<hex>").
		Hash string
	}

	// Result summarizes a completed installation or dry-run plan.
	Result struct {
		// Files lists item files in staging order.
		Files []FileRecord
		// MergedConfig is the merged document's record, nil when no
		// mcp-server item contributed a fragment.
		MergedConfig *FileRecord
		// TotalBytes is the byte total across Files and MergedConfig.
		TotalBytes int64
	}

	// Installer copies item files from the registry into a target directory.
	Installer struct {
		registryRoot string
		logger       *slog.Logger
	}
)

// Error implements the error interface.
func (e *StagingError) Error() string {
	return fmt.Sprintf("staging failed at %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying cause for errors.Is/As chains.
func (e *StagingError) Unwrap() error { return e.Err }

// Is reports whether target is ErrStaging.
func (e *StagingError) Is(target error) bool { return target == ErrStaging }

// Error implements the error interface.
func (e *PreexistingTargetError) Error() string {
	return fmt.Sprintf("target %s already contains: %s", e.TargetDir, strings.Join(e.Paths, ", "))
}

// Unwrap returns ErrPreexistingTarget for errors.Is() compatibility.
func (e *PreexistingTargetError) Unwrap() error { return ErrPreexistingTarget }

// Error implements the error interface.
func (e *DuplicateDestError) Error() string {
	if e.ItemA == "" {
		return fmt.Sprintf("item %q installs %s, which collides with the merged configuration document", e.ItemB, e.Dest)
	}
	return fmt.Sprintf("items %q and %q both install %s", e.ItemA, e.ItemB, e.Dest)
}

// Unwrap returns ErrDuplicateDest for errors.Is() compatibility.
func (e *DuplicateDestError) Unwrap() error { return ErrDuplicateDest }

// NewInstaller creates an Installer copying sources from registryRoot.
func NewInstaller(registryRoot string, logger *slog.Logger) *Installer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Installer{registryRoot: registryRoot, logger: logger}
}

// Install writes every file of every resolved item, plus the merged
// configuration document (when mergedConfig is non-nil), into targetDir.
//
// For ModeCommit the sequence is: preflight the target, stage everything
// into a temporary arena next to the target, hash all staged content, then
// move the staged top-level entries into place. Any error before the move
// deletes the arena and leaves targetDir byte-for-byte unchanged.
//
// For ModeDryRun the same plan (files, sizes, hashes) is computed by
// reading the sources only; no path under targetDir is created, modified,
// or deleted, and no arena is created.
func (ins *Installer) Install(items []*registry.Item, mergedConfig []byte, targetDir string, mode Mode) (*Result, error) {
	// Destination collisions are checked in both modes: a plan that would
	// fail to commit must already fail as a dry run.
	if err := checkDuplicateDests(items, mergedConfig); err != nil {
		return nil, err
	}
	if err := ins.preflight(items, mergedConfig, targetDir); err != nil {
		return nil, err
	}

	if mode == ModeDryRun {
		return ins.plan(items, mergedConfig)
	}
	return ins.commit(items, mergedConfig, targetDir)
}

// preflight rejects installation into a target that already contains any
// top-level entry this run would create. It runs before any staging so a
// failed run provably never touches the target.
func (ins *Installer) preflight(items []*registry.Item, mergedConfig []byte, targetDir string) error {
	var existing []string
	for _, root := range topLevelEntries(items, mergedConfig) {
		if _, err := os.Lstat(filepath.Join(targetDir, root)); err == nil {
			existing = append(existing, root)
		}
	}
	if len(existing) > 0 {
		return &PreexistingTargetError{TargetDir: targetDir, Paths: existing}
	}
	return nil
}

// plan computes the dry-run result by reading source content in place.
func (ins *Installer) plan(items []*registry.Item, mergedConfig []byte) (*Result, error) {
	res := &Result{}
	for _, item := range items {
		for _, fm := range item.Files {
			src := filepath.Join(ins.registryRoot, filepath.FromSlash(fm.Source))
			info, err := os.Stat(src)
			if err != nil {
				return nil, &StagingError{Path: src, Err: err}
			}
			hash, err := ComputeFileHash(src)
			if err != nil {
				return nil, &StagingError{Path: src, Err: err}
			}
			res.Files = append(res.Files, FileRecord{
				Item: item.Name,
				Dest: fm.Dest,
				Size: info.Size(),
				Hash: hash,
			})
			res.TotalBytes += info.Size()
		}
	}
	if mergedConfig != nil {
		res.MergedConfig = &FileRecord{
			Dest: MergedConfigPath,
			Size: int64(len(mergedConfig)),
			Hash: ComputeHash(mergedConfig),
		}
		res.TotalBytes += res.MergedConfig.Size
	}
	return res, nil
}

// commit stages into an arena and moves the staged tree into targetDir.
func (ins *Installer) commit(items []*registry.Item, mergedConfig []byte, targetDir string) (_ *Result, err error) {
	absTarget, err := filepath.Abs(targetDir)
	if err != nil {
		return nil, &StagingError{Path: targetDir, Err: err}
	}

	// A fresh target directory is a normal starting point. Create it (and
	// its parents) up front; the arena needs an existing neighbor directory.
	if err := os.MkdirAll(absTarget, 0o755); err != nil {
		return nil, &StagingError{Path: absTarget, Err: err}
	}

	// The arena lives next to the target so the final renames stay on one
	// filesystem and therefore atomic.
	arena, err := os.MkdirTemp(filepath.Dir(absTarget), ".seedr-stage-")
	if err != nil {
		return nil, &StagingError{Path: filepath.Dir(absTarget), Err: err}
	}
	committed := false
	defer func() {
		if !committed {
			if rmErr := os.RemoveAll(arena); rmErr != nil {
				ins.logger.Warn("failed to clean staging arena", "arena", arena, "error", rmErr)
			}
		}
	}()

	res := &Result{}
	for _, item := range items {
		for _, fm := range item.Files {
			src := filepath.Join(ins.registryRoot, filepath.FromSlash(fm.Source))
			dst := filepath.Join(arena, filepath.FromSlash(fm.Dest))
			size, err := copyFile(src, dst)
			if err != nil {
				return nil, &StagingError{Path: src, Err: err}
			}
			res.Files = append(res.Files, FileRecord{Item: item.Name, Dest: fm.Dest, Size: size})
			res.TotalBytes += size
		}
	}

	if mergedConfig != nil {
		dst := filepath.Join(arena, MergedConfigPath)
		if err := os.WriteFile(dst, mergedConfig, 0o644); err != nil {
			return nil, &StagingError{Path: dst, Err: err}
		}
		res.MergedConfig = &FileRecord{
			Dest: MergedConfigPath,
			Size: int64(len(mergedConfig)),
			Hash: ComputeHash(mergedConfig),
		}
		res.TotalBytes += res.MergedConfig.Size
	}

	// Hash after all staging I/O has settled: the hashes must describe the
	// exact bytes that land in the target.
	for i := range res.Files {
		hash, err := ComputeFileHash(filepath.Join(arena, filepath.FromSlash(res.Files[i].Dest)))
		if err != nil {
			return nil, &StagingError{Path: res.Files[i].Dest, Err: err}
		}
		res.Files[i].Hash = hash
	}

	// Re-check the target immediately before the move; another process may
	// have written output since the preflight.
	if err := ins.preflight(items, mergedConfig, absTarget); err != nil {
		return nil, err
	}

	if err := moveEntries(arena, absTarget, ins.logger); err != nil {
		return nil, err
	}
	committed = true
	if rmErr := os.RemoveAll(arena); rmErr != nil {
		ins.logger.Warn("failed to remove empty staging arena", "arena", arena, "error", rmErr)
	}

	ins.logger.Info("installation committed",
		"target", absTarget, "files", len(res.Files), "bytes", res.TotalBytes)
	return res, nil
}

// moveEntries renames every top-level entry of arena into target. If a
// rename fails partway, the already-moved entries are moved back so the
// target is restored before the error is returned.
func moveEntries(arena, target string, logger *slog.Logger) error {
	entries, err := os.ReadDir(arena)
	if err != nil {
		return &StagingError{Path: arena, Err: err}
	}

	var moved []string
	for _, entry := range entries {
		src := filepath.Join(arena, entry.Name())
		dst := filepath.Join(target, entry.Name())
		if err := os.Rename(src, dst); err != nil {
			for _, name := range moved {
				if backErr := os.Rename(filepath.Join(target, name), filepath.Join(arena, name)); backErr != nil {
					logger.Error("rollback failed; target may retain partial output",
						"entry", name, "error", backErr)
				}
			}
			return &StagingError{Path: dst, Err: err}
		}
		moved = append(moved, entry.Name())
	}
	return nil
}

// checkDuplicateDests rejects working sets where two files map to the same
// destination path, including a collision with the merged document's fixed
// path. Items are scanned in order, so the reported pair is deterministic.
func checkDuplicateDests(items []*registry.Item, mergedConfig []byte) error {
	owners := make(map[string]types.ItemName)
	if mergedConfig != nil {
		owners[MergedConfigPath] = ""
	}
	for _, item := range items {
		for _, fm := range item.Files {
			dest := path.Clean(fm.Dest)
			if prev, taken := owners[dest]; taken {
				return &DuplicateDestError{Dest: dest, ItemA: prev, ItemB: item.Name}
			}
			owners[dest] = item.Name
		}
	}
	return nil
}

// topLevelEntries returns the sorted, deduplicated first path components of
// every destination this installation would create in the target.
func topLevelEntries(items []*registry.Item, mergedConfig []byte) []string {
	seen := make(map[string]bool)
	for _, item := range items {
		for _, fm := range item.Files {
			seen[firstComponent(fm.Dest)] = true
		}
	}
	if mergedConfig != nil {
		seen[firstComponent(MergedConfigPath)] = true
	}
	roots := make([]string, 0, len(seen))
	for root := range seen {
		roots = append(roots, root)
	}
	slices.Sort(roots)
	return roots
}

func firstComponent(p string) string {
	p = filepath.ToSlash(filepath.Clean(filepath.FromSlash(p)))
	if idx := strings.IndexByte(p, '/'); idx >= 0 {
		return p[:idx]
	}
	return p
}

// copyFile copies src to dst, creating parent directories as needed and
// preserving the source file mode. It returns the number of bytes copied.
func copyFile(src, dst string) (int64, error) {
	info, err := os.Stat(src)
	if err != nil {
		return 0, err
	}

	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer func() { _ = in.Close() }()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(out, in)
	if err != nil {
		_ = out.Close()
		return 0, err
	}
	if err := out.Close(); err != nil {
		return 0, err
	}
	return n, nil
}
