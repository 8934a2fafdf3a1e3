// SPDX-License-Identifier: MPL-2.0

package install

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"seedr-cli/internal/registry"
	"seedr-cli/pkg/types"
)

// testItem builds an item whose files map dest -> source pairs.
func testItem(t *testing.T, name string, files ...registry.FileMapping) *registry.Item {
	t.Helper()
	item, err := registry.NewItem(registry.ItemSpec{
		Name:    types.ItemName(name),
		Version: types.SemVer("1.0.0"),
		Kind:    registry.KindSubagent,
		Files:   files,
	})
	if err != nil {
		t.Fatalf("NewItem(%s): %v", name, err)
	}
	return item
}

// writeSource creates a registry source file with the given content.
func writeSource(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// snapshot returns a sorted listing of every path under dir with its content.
func snapshot(t *testing.T, dir string) []string {
	t.Helper()
	var out []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(dir, path)
		if rel == "." {
			return nil
		}
		entry := rel
		if !info.IsDir() {
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			entry += "=" + string(data)
		}
		out = append(out, entry)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(out)
	return out
}

func equalSnapshots(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestInstall_CommitWritesFilesAndHashes(t *testing.T) {
	t.Parallel()
	reg := t.TempDir()
	target := t.TempDir()
	writeSource(t, reg, "agent/a.md", "agent body\n")

	item := testItem(t, "agent", registry.FileMapping{Dest: ".claude/agents/a.md", Source: "agent/a.md"})
	ins := NewInstaller(reg, slog.New(slog.DiscardHandler))

	merged := []byte("{\n  \"mcpServers\": {}\n}\n")
	res, err := ins.Install([]*registry.Item{item}, merged, target, ModeCommit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(target, ".claude", "agents", "a.md"))
	if err != nil {
		t.Fatalf("installed file missing: %v", err)
	}
	if string(data) != "agent body\n" {
		t.Errorf("unexpected content: %q", data)
	}

	mcp, err := os.ReadFile(filepath.Join(target, MergedConfigPath))
	if err != nil {
		t.Fatalf("merged config missing: %v", err)
	}
	if string(mcp) != string(merged) {
		t.Errorf("merged config content mismatch: %q", mcp)
	}

	if len(res.Files) != 1 {
		t.Fatalf("expected 1 file record, got %d", len(res.Files))
	}
	if !ValidHash(res.Files[0].Hash) {
		t.Errorf("invalid hash: %q", res.Files[0].Hash)
	}
	if res.MergedConfig == nil || !ValidHash(res.MergedConfig.Hash) {
		t.Errorf("expected hashed merged config record, got %+v", res.MergedConfig)
	}
	if res.TotalBytes != int64(len("agent body\n"))+int64(len(merged)) {
		t.Errorf("unexpected total bytes: %d", res.TotalBytes)
	}

	// The committed content must verify against the recorded hashes.
	if err := VerifyFile(filepath.Join(target, ".claude", "agents", "a.md"), res.Files[0].Hash); err != nil {
		t.Errorf("hash verification failed: %v", err)
	}

	// No staging arena may remain next to the target.
	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(target), ".seedr-stage-*"))
	if err != nil {
		t.Fatal(err)
	}
	if len(leftovers) != 0 {
		t.Errorf("staging arena left behind: %v", leftovers)
	}
}

func TestInstall_NoMergedConfigWhenNil(t *testing.T) {
	t.Parallel()
	reg := t.TempDir()
	target := t.TempDir()
	writeSource(t, reg, "cmd/c.md", "c\n")

	item := testItem(t, "cmd-item", registry.FileMapping{Dest: ".claude/commands/c.md", Source: "cmd/c.md"})
	ins := NewInstaller(reg, slog.New(slog.DiscardHandler))

	res, err := ins.Install([]*registry.Item{item}, nil, target, ModeCommit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.MergedConfig != nil {
		t.Error("expected no merged config record")
	}
	if _, err := os.Stat(filepath.Join(target, MergedConfigPath)); !os.IsNotExist(err) {
		t.Error("merged config file must not exist")
	}
}

func TestInstall_DryRunNeverTouchesTarget(t *testing.T) {
	t.Parallel()
	reg := t.TempDir()
	target := t.TempDir()
	writeSource(t, reg, "agent/a.md", "agent body\n")
	// Pre-existing unrelated content must survive untouched.
	writeSource(t, target, "README.md", "existing\n")

	before := snapshot(t, target)

	item := testItem(t, "agent", registry.FileMapping{Dest: ".claude/agents/a.md", Source: "agent/a.md"})
	ins := NewInstaller(reg, slog.New(slog.DiscardHandler))

	res, err := ins.Install([]*registry.Item{item}, []byte("{}\n"), target, ModeDryRun)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !equalSnapshots(before, snapshot(t, target)) {
		t.Error("dry run modified the target directory")
	}
	if len(res.Files) != 1 || res.Files[0].Size != int64(len("agent body\n")) {
		t.Errorf("unexpected plan: %+v", res.Files)
	}
	if !ValidHash(res.Files[0].Hash) {
		t.Errorf("dry-run plan should include content hashes, got %q", res.Files[0].Hash)
	}
	if res.MergedConfig == nil {
		t.Error("expected merged config in plan")
	}

	// Dry run must not create a staging arena either.
	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(target), ".seedr-stage-*"))
	if err != nil {
		t.Fatal(err)
	}
	if len(leftovers) != 0 {
		t.Errorf("dry run created staging arena: %v", leftovers)
	}
}

func TestInstall_PreexistingTargetFailsBeforeStaging(t *testing.T) {
	t.Parallel()
	reg := t.TempDir()
	target := t.TempDir()
	writeSource(t, reg, "agent/a.md", "agent body\n")
	// A previous installation left a .claude root behind.
	if err := os.MkdirAll(filepath.Join(target, ".claude"), 0o755); err != nil {
		t.Fatal(err)
	}

	before := snapshot(t, target)

	item := testItem(t, "agent", registry.FileMapping{Dest: ".claude/agents/a.md", Source: "agent/a.md"})
	ins := NewInstaller(reg, slog.New(slog.DiscardHandler))

	_, err := ins.Install([]*registry.Item{item}, nil, target, ModeCommit)
	if err == nil {
		t.Fatal("expected pre-existing target error")
	}
	var preErr *PreexistingTargetError
	if !errors.As(err, &preErr) {
		t.Fatalf("expected *PreexistingTargetError, got %T: %v", err, err)
	}
	if len(preErr.Paths) != 1 || preErr.Paths[0] != ".claude" {
		t.Errorf("unexpected conflicting paths: %v", preErr.Paths)
	}
	if !errors.Is(err, ErrPreexistingTarget) {
		t.Error("expected ErrPreexistingTarget classification")
	}

	if !equalSnapshots(before, snapshot(t, target)) {
		t.Error("failed preflight modified the target directory")
	}
}

func TestInstall_MidStagingFailureRollsBack(t *testing.T) {
	t.Parallel()
	reg := t.TempDir()
	target := t.TempDir()
	writeSource(t, reg, "ok/one.md", "one\n")
	writeSource(t, reg, "ok/two.md", "two\n")
	writeSource(t, target, "keep.txt", "keep\n")

	before := snapshot(t, target)

	// The third file's source is missing, so staging fails after two
	// successful copies.
	good := testItem(t, "good",
		registry.FileMapping{Dest: ".claude/one.md", Source: "ok/one.md"},
		registry.FileMapping{Dest: ".claude/two.md", Source: "ok/two.md"},
	)
	bad := testItem(t, "bad", registry.FileMapping{Dest: ".claude/three.md", Source: "missing/three.md"})

	ins := NewInstaller(reg, slog.New(slog.DiscardHandler))
	_, err := ins.Install([]*registry.Item{good, bad}, nil, target, ModeCommit)
	if err == nil {
		t.Fatal("expected staging error")
	}
	var stagingErr *StagingError
	if !errors.As(err, &stagingErr) {
		t.Fatalf("expected *StagingError, got %T: %v", err, err)
	}
	if !errors.Is(err, ErrStaging) {
		t.Error("expected ErrStaging classification")
	}

	if !equalSnapshots(before, snapshot(t, target)) {
		t.Error("failed staging modified the target directory")
	}
	leftovers, globErr := filepath.Glob(filepath.Join(filepath.Dir(target), ".seedr-stage-*"))
	if globErr != nil {
		t.Fatal(globErr)
	}
	if len(leftovers) != 0 {
		t.Errorf("staging arena not rolled back: %v", leftovers)
	}
}

func TestInstall_DuplicateDestFailsInBothModes(t *testing.T) {
	t.Parallel()
	reg := t.TempDir()
	target := t.TempDir()
	writeSource(t, reg, "a/readme.md", "from a\n")
	writeSource(t, reg, "b/readme.md", "from b\n")

	// Two items claim the same destination. The plan must fail exactly
	// like the commit would, not succeed and leave the failure for later.
	first := testItem(t, "first", registry.FileMapping{Dest: ".claude/agents/readme.md", Source: "a/readme.md"})
	second := testItem(t, "second", registry.FileMapping{Dest: ".claude/agents/readme.md", Source: "b/readme.md"})

	before := snapshot(t, target)
	ins := NewInstaller(reg, slog.New(slog.DiscardHandler))

	for _, mode := range []Mode{ModeDryRun, ModeCommit} {
		_, err := ins.Install([]*registry.Item{first, second}, nil, target, mode)
		if err == nil {
			t.Fatalf("mode %v: expected duplicate destination error", mode)
		}
		var dupErr *DuplicateDestError
		if !errors.As(err, &dupErr) {
			t.Fatalf("mode %v: expected *DuplicateDestError, got %T: %v", mode, err, err)
		}
		if dupErr.Dest != ".claude/agents/readme.md" || dupErr.ItemA != "first" || dupErr.ItemB != "second" {
			t.Errorf("mode %v: unexpected collision report: %+v", mode, dupErr)
		}
		if !errors.Is(err, ErrDuplicateDest) {
			t.Errorf("mode %v: expected ErrDuplicateDest classification", mode)
		}
	}

	if !equalSnapshots(before, snapshot(t, target)) {
		t.Error("duplicate destination check modified the target directory")
	}
}

func TestInstall_DestCollidingWithMergedConfig(t *testing.T) {
	t.Parallel()
	reg := t.TempDir()
	target := t.TempDir()
	writeSource(t, reg, "rogue/mcp.json", "{}\n")

	rogue := testItem(t, "rogue", registry.FileMapping{Dest: MergedConfigPath, Source: "rogue/mcp.json"})
	ins := NewInstaller(reg, slog.New(slog.DiscardHandler))

	_, err := ins.Install([]*registry.Item{rogue}, []byte("{}\n"), target, ModeDryRun)
	var dupErr *DuplicateDestError
	if !errors.As(err, &dupErr) {
		t.Fatalf("expected *DuplicateDestError, got %T: %v", err, err)
	}
	if dupErr.ItemA != "" || dupErr.ItemB != "rogue" {
		t.Errorf("unexpected collision report: %+v", dupErr)
	}
}

func TestInstall_CommitCreatesMissingTarget(t *testing.T) {
	t.Parallel()
	reg := t.TempDir()
	target := filepath.Join(t.TempDir(), "workspaces", "fresh")
	writeSource(t, reg, "agent/a.md", "agent body\n")

	item := testItem(t, "agent", registry.FileMapping{Dest: ".claude/agents/a.md", Source: "agent/a.md"})
	ins := NewInstaller(reg, slog.New(slog.DiscardHandler))

	if _, err := ins.Install([]*registry.Item{item}, nil, target, ModeCommit); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(target, ".claude", "agents", "a.md"))
	if err != nil {
		t.Fatalf("installed file missing: %v", err)
	}
	if string(data) != "agent body\n" {
		t.Errorf("unexpected content: %q", data)
	}
}

func TestComputeHash_CanonicalForm(t *testing.T) {
	t.Parallel()
	hash := ComputeHash([]byte("hello\n"))
	if !strings.HasPrefix(hash, HashPrefix) {
		t.Errorf("expected %q prefix, got %q", HashPrefix, hash)
	}
	if !ValidHash(hash) {
		t.Errorf("ComputeHash produced invalid form: %q", hash)
	}
}

func TestValidHash(t *testing.T) {
	t.Parallel()

	valid := ComputeHash([]byte("x"))
	tests := []struct {
		name  string
		value string
		want  bool
	}{
		{"canonical", valid, true},
		{"missing prefix", strings.TrimPrefix(valid, HashPrefix), false},
		{"short", HashPrefix + "abc123", false},
		{"uppercase hex", HashPrefix + strings.ToUpper(strings.TrimPrefix(valid, HashPrefix)), false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ValidHash(tt.value); got != tt.want {
				t.Errorf("ValidHash(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestVerifyFile_Mismatch(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(path, []byte("content"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := VerifyFile(path, ComputeHash([]byte("different")))
	if err == nil {
		t.Fatal("expected mismatch error")
	}
	var checksumErr *ChecksumError
	if !errors.As(err, &checksumErr) {
		t.Fatalf("expected *ChecksumError, got %T: %v", err, err)
	}
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Error("expected ErrChecksumMismatch classification")
	}
}
