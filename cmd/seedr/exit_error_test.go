// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"seedr-cli/internal/dag"
	"seedr-cli/internal/install"
	"seedr-cli/internal/issue"
	"seedr-cli/internal/lockfile"
	"seedr-cli/internal/pipeline"
	"seedr-cli/internal/resolve"
	"seedr-cli/pkg/types"
)

func TestExitError_Error(t *testing.T) {
	t.Parallel()

	withErr := &ExitError{Code: ExitUsage, Err: errors.New("boom")}
	if withErr.Error() != "boom" {
		t.Errorf("Error() = %q, want %q", withErr.Error(), "boom")
	}

	withoutErr := &ExitError{Code: ExitSystem}
	if withoutErr.Error() != "exit status 3" {
		t.Errorf("Error() = %q, want %q", withoutErr.Error(), "exit status 3")
	}
}

func TestExitCodeForError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want types.ExitCode
	}{
		{name: "nil", err: nil, want: ExitOK},
		{
			name: "unknown item",
			err:  &resolve.UnknownItemError{Name: "ghost"},
			want: ExitUsage,
		},
		{
			name: "wrapped unknown item",
			err:  fmt.Errorf("resolving: %w", &resolve.UnknownItemError{Name: "ghost"}),
			want: ExitUsage,
		},
		{
			name: "locked item missing",
			err:  &lockfile.LockedItemMissingError{Name: "ghost"},
			want: ExitUsage,
		},
		{
			name: "unsupported lock format",
			err:  &lockfile.UnsupportedFormatError{Found: "99"},
			want: ExitUsage,
		},
		{
			name: "duplicate destination",
			err:  &install.DuplicateDestError{Dest: ".claude/agents/a.md", ItemA: "one", ItemB: "two"},
			want: ExitUsage,
		},
		{
			name: "preexisting target",
			err:  &install.PreexistingTargetError{TargetDir: ".", Paths: []string{".claude"}},
			want: ExitSystem,
		},
		{
			name: "staging failure",
			err:  &install.StagingError{Path: "x", Err: fs.ErrPermission},
			want: ExitSystem,
		},
		{
			name: "merge conflict",
			err:  &pipeline.ConflictError{},
			want: ExitConflict,
		},
		{
			name: "dependency cycle",
			err:  fmt.Errorf("resolving: %w", &dag.CycleError{Cycle: []string{"a", "b", "a"}}),
			want: ExitValidation,
		},
		{
			name: "version mismatch",
			err:  &lockfile.VersionMismatchError{},
			want: ExitValidation,
		},
		{
			name: "checksum mismatch",
			err:  &install.ChecksumError{Path: "f", Expected: "sha256:aa", Got: "sha256:bb"},
			want: ExitValidation,
		},
		{
			name: "unclassified",
			err:  errors.New("something else"),
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := exitCodeForError(tt.err); got != tt.want {
				t.Errorf("exitCodeForError(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestIssueIDForError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want issue.Id
	}{
		{name: "nil", err: nil, want: 0},
		{name: "cycle", err: &dag.CycleError{Cycle: []string{"a", "a"}}, want: issue.DependencyCycleId},
		{name: "conflict", err: &pipeline.ConflictError{}, want: issue.MergeConflictId},
		{name: "unknown item", err: &resolve.UnknownItemError{Name: "x"}, want: issue.UnknownItemId},
		{name: "checksum", err: &install.ChecksumError{}, want: issue.ChecksumMismatchId},
		{name: "unclassified", err: errors.New("other"), want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := issueIDForError(tt.err); got != tt.want {
				t.Errorf("issueIDForError(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
