// SPDX-License-Identifier: MPL-2.0

// Package pipeline orchestrates one end-to-end run: resolve the selection,
// merge server configuration fragments, gate on conflicts, install
// atomically, and record the result in a lock file. It owns the ordering
// and failure policy; the mechanics live in the packages it composes.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"seedr-cli/internal/install"
	"seedr-cli/internal/lockfile"
	"seedr-cli/internal/merge"
	"seedr-cli/internal/registry"
	"seedr-cli/internal/resolve"
	"seedr-cli/pkg/types"
)

// ErrMergeConflict is the sentinel error wrapped by ConflictError.
var ErrMergeConflict = errors.New("merge conflict")

type (
	// Options configures one pipeline run.
	Options struct {
		// RegistryPath is the registry root directory.
		RegistryPath string
		// TargetDir is the installation target directory.
		TargetDir string
		// Force installs despite merge conflicts; the later fragment's value
		// wins and every conflict is still reported in the outcome.
		Force bool
		// DryRun computes the full outcome without touching the target.
		DryRun bool
		// Verify re-reads the freshly committed files and checks them
		// against the locked hashes after a reproduction run. No-op for
		// dry runs, which write nothing to re-read.
		Verify bool
		// Logger receives progress events; nil means slog.Default().
		Logger *slog.Logger
	}

	// ConflictError aborts an installation whose fragments collide. The
	// conflict list is exhaustive, not just the first collision found.
	ConflictError struct {
		Conflicts []merge.Conflict
	}

	// Outcome is the complete result of a pipeline run. For a dry run the
	// install result describes what would have been written and Lock is the
	// lock file that would have been saved.
	Outcome struct {
		Selection *resolve.Selection
		// Conflicts holds merge collisions; non-empty only with Force or
		// DryRun, since they otherwise abort the run.
		Conflicts []merge.Conflict
		Merged    merge.Document
		Install   *install.Result
		Lock      *lockfile.LockFile
		// LockPath is where the lock file was (or would be) saved.
		LockPath string
		DryRun   bool
	}
)

// Error implements the error interface.
func (e *ConflictError) Error() string {
	if len(e.Conflicts) == 1 {
		c := e.Conflicts[0]
		return fmt.Sprintf("conflict at %s: %q (from %s) vs %q (from %s)",
			c.PathString(), c.ValueA, c.ItemA, c.ValueB, c.ItemB)
	}
	return fmt.Sprintf("%d configuration conflicts between selected items", len(e.Conflicts))
}

// Unwrap returns ErrMergeConflict for errors.Is() compatibility.
func (e *ConflictError) Unwrap() error { return ErrMergeConflict }

// Init runs the full pipeline for a fresh selection: resolve the transitive
// working set, merge mcp-server fragments, install atomically, and save the
// lock file next to the installed output.
//
// Conflicts abort before anything is staged unless opts.Force is set. A dry
// run never touches the target, including on conflict: the outcome carries
// the conflicts so the caller can show them.
func Init(catalog *registry.Catalog, explicit []types.ItemName, opts Options) (*Outcome, error) {
	logger := opts.logger()

	sel, err := resolve.Resolve(catalog, explicit)
	if err != nil {
		return nil, err
	}
	logger.Info("selection resolved",
		"explicit", len(sel.Explicit), "total", len(sel.Items))

	mergeRes := merge.Merge(sel.Items, opts.Force)
	if len(mergeRes.Conflicts) > 0 && !opts.Force && !opts.DryRun {
		return nil, &ConflictError{Conflicts: mergeRes.Conflicts}
	}

	var mergedDoc []byte
	if len(mergeRes.Document) > 0 {
		mergedDoc, err = mergeRes.Document.MarshalCanonical()
		if err != nil {
			return nil, err
		}
	}

	lockPath := filepath.Join(opts.TargetDir, lockfile.FileName)
	if !opts.DryRun {
		// The installer preflights its own outputs; the lock file is written
		// outside the staging arena, so check it here.
		if _, err := os.Lstat(lockPath); err == nil {
			return nil, &install.PreexistingTargetError{
				TargetDir: opts.TargetDir,
				Paths:     []string{lockfile.FileName},
			}
		}
	}

	installer := install.NewInstaller(opts.RegistryPath, logger)
	installRes, err := installer.Install(sel.Items, mergedDoc, opts.TargetDir, opts.mode())
	if err != nil {
		return nil, err
	}

	lock := lockfile.New(sel.Items, sel.Explicit, sel.AutoIncluded, installRes, opts.RegistryPath)
	lock.Force = opts.Force
	if !opts.DryRun {
		if err := lock.Save(lockPath); err != nil {
			return nil, err
		}
		logger.Info("lock file written", "path", lockPath)
	}

	return &Outcome{
		Selection: sel,
		Conflicts: mergeRes.Conflicts,
		Merged:    mergeRes.Document,
		Install:   installRes,
		Lock:      lock,
		LockPath:  lockPath,
		DryRun:    opts.DryRun,
	}, nil
}

// InstallFromLock reproduces a previous installation from its lock file.
// The registry must still carry every locked item at exactly the locked
// version, and the source content must hash to the locked hashes; any drift
// fails before the target is touched.
func InstallFromLock(catalog *registry.Catalog, lockPath string, opts Options) (*Outcome, error) {
	lock, err := lockfile.Load(lockPath)
	if err != nil {
		return nil, err
	}
	if err := lock.CheckAgainst(catalog); err != nil {
		return nil, err
	}

	// Re-resolve from the recorded explicit selection. With versions pinned
	// and verified this reproduces the original working set.
	sel, err := resolve.Resolve(catalog, lock.Explicit)
	if err != nil {
		return nil, err
	}

	mergeRes := merge.Merge(sel.Items, lock.Force)
	if len(mergeRes.Conflicts) > 0 && !lock.Force && !opts.DryRun {
		return nil, &ConflictError{Conflicts: mergeRes.Conflicts}
	}

	var mergedDoc []byte
	if len(mergeRes.Document) > 0 {
		mergedDoc, err = mergeRes.Document.MarshalCanonical()
		if err != nil {
			return nil, err
		}
	}

	installer := install.NewInstaller(opts.RegistryPath, opts.logger())

	// Plan first and compare every planned hash against the lock: content
	// drift at unchanged versions must fail without touching the target.
	plan, err := installer.Install(sel.Items, mergedDoc, opts.TargetDir, install.ModeDryRun)
	if err != nil {
		return nil, err
	}
	if err := checkPlanAgainstLock(plan, lock); err != nil {
		return nil, err
	}

	installRes := plan
	if !opts.DryRun {
		installRes, err = installer.Install(sel.Items, mergedDoc, opts.TargetDir, install.ModeCommit)
		if err != nil {
			return nil, err
		}
		if err := lock.Save(filepath.Join(opts.TargetDir, lockfile.FileName)); err != nil {
			return nil, err
		}
		if opts.Verify {
			// Hash what actually landed on disk, not what was planned.
			if err := lock.VerifyInstalled(opts.TargetDir); err != nil {
				return nil, err
			}
		}
	}

	return &Outcome{
		Selection: sel,
		Conflicts: mergeRes.Conflicts,
		Merged:    mergeRes.Document,
		Install:   installRes,
		Lock:      lock,
		LockPath:  filepath.Join(opts.TargetDir, lockfile.FileName),
		DryRun:    opts.DryRun,
	}, nil
}

// checkPlanAgainstLock compares the planned content hashes with the locked
// ones. Versions already matched, so any difference means registry content
// changed without a version bump.
func checkPlanAgainstLock(plan *install.Result, lock *lockfile.LockFile) error {
	lockedHashes := make(map[string]string)
	for _, entry := range lock.Items {
		for _, fe := range entry.Files {
			lockedHashes[fe.Dest] = fe.Hash
		}
	}

	for _, rec := range plan.Files {
		expected, ok := lockedHashes[rec.Dest]
		if !ok {
			return &install.ChecksumError{Path: rec.Dest, Expected: "(not in lock file)", Got: rec.Hash}
		}
		if rec.Hash != expected {
			return &install.ChecksumError{Path: rec.Dest, Expected: expected, Got: rec.Hash}
		}
	}

	if plan.MergedConfig != nil && lock.Merged != "" && plan.MergedConfig.Hash != lock.Merged {
		return &install.ChecksumError{
			Path:     install.MergedConfigPath,
			Expected: lock.Merged,
			Got:      plan.MergedConfig.Hash,
		}
	}
	return nil
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o Options) mode() install.Mode {
	if o.DryRun {
		return install.ModeDryRun
	}
	return install.ModeCommit
}
