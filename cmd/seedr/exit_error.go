// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"

	"seedr-cli/internal/dag"
	"seedr-cli/internal/install"
	"seedr-cli/internal/lockfile"
	"seedr-cli/internal/pipeline"
	"seedr-cli/internal/registry"
	"seedr-cli/internal/resolve"
	"seedr-cli/pkg/types"
)

// Exit codes form the CLI's error contract: scripts branch on them, so the
// mapping from error class to code is fixed at this boundary and nowhere else.
const (
	// ExitOK means the command succeeded.
	ExitOK types.ExitCode = 0
	// ExitUsage covers unknown items and malformed input (manifests, lock files).
	ExitUsage types.ExitCode = 2
	// ExitSystem covers filesystem and other system failures.
	ExitSystem types.ExitCode = 3
	// ExitConflict means fragment merging detected unresolved conflicts.
	ExitConflict types.ExitCode = 4
	// ExitValidation covers dependency cycles and lock file validation
	// failures (version drift, checksum mismatch).
	ExitValidation types.ExitCode = 5
)

// ExitError signals a non-zero exit code without forcing os.Exit in RunE handlers.
type ExitError struct {
	Code types.ExitCode
	Err  error
}

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// exitCodeForError classifies an error into the CLI exit code contract.
func exitCodeForError(err error) types.ExitCode {
	var cycleErr *dag.CycleError

	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, pipeline.ErrMergeConflict):
		return ExitConflict
	case errors.As(err, &cycleErr),
		errors.Is(err, lockfile.ErrVersionMismatch),
		errors.Is(err, install.ErrChecksumMismatch):
		return ExitValidation
	case errors.Is(err, resolve.ErrUnknownItem),
		errors.Is(err, registry.ErrManifest),
		errors.Is(err, registry.ErrInvalidItem),
		errors.Is(err, registry.ErrDuplicateItem),
		errors.Is(err, install.ErrDuplicateDest),
		errors.Is(err, lockfile.ErrUnsupportedFormat),
		errors.Is(err, lockfile.ErrLockedItemMissing):
		return ExitUsage
	case errors.Is(err, install.ErrPreexistingTarget),
		errors.Is(err, install.ErrStaging):
		return ExitSystem
	default:
		return 1
	}
}
