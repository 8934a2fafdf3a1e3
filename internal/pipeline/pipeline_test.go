// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"seedr-cli/internal/install"
	"seedr-cli/internal/lockfile"
	"seedr-cli/internal/registry"
	"seedr-cli/pkg/types"
)

// fixture is a registry root with source files plus the matching catalog.
type fixture struct {
	registryPath string
	catalog      *registry.Catalog
}

// newFixture builds a registry on disk from item specs, writing a source
// file for every file mapping.
func newFixture(t *testing.T, specs ...registry.ItemSpec) *fixture {
	t.Helper()
	root := t.TempDir()

	var items []*registry.Item
	for _, spec := range specs {
		item, err := registry.NewItem(spec)
		if err != nil {
			t.Fatalf("NewItem(%s): %v", spec.Name, err)
		}
		for _, fm := range item.Files {
			src := filepath.Join(root, filepath.FromSlash(fm.Source))
			if err := os.MkdirAll(filepath.Dir(src), 0o755); err != nil {
				t.Fatal(err)
			}
			content := "content of " + fm.Source + "\n"
			if err := os.WriteFile(src, []byte(content), 0o644); err != nil {
				t.Fatal(err)
			}
		}
		items = append(items, item)
	}

	catalog, err := registry.NewCatalog(items)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	return &fixture{registryPath: root, catalog: catalog}
}

func (f *fixture) options(targetDir string) Options {
	return Options{
		RegistryPath: f.registryPath,
		TargetDir:    targetDir,
		Logger:       slog.New(slog.DiscardHandler),
	}
}

func agentSpec(name, version string, deps ...types.ItemName) registry.ItemSpec {
	return registry.ItemSpec{
		Name:         types.ItemName(name),
		Version:      types.SemVer(version),
		Kind:         registry.KindSubagent,
		Dependencies: deps,
		Files: []registry.FileMapping{
			{Dest: ".claude/agents/" + name + ".md", Source: name + "/" + name + ".md"},
		},
	}
}

func serverSpec(name, version string, fragment registry.Fragment) registry.ItemSpec {
	return registry.ItemSpec{
		Name:     types.ItemName(name),
		Version:  types.SemVer(version),
		Kind:     registry.KindMcpServer,
		Fragment: fragment,
	}
}

func TestInit_InstallsClosureAndWritesLock(t *testing.T) {
	t.Parallel()
	fx := newFixture(t,
		agentSpec("base-context", "2.1.0"),
		agentSpec("research-agent", "1.2.0", "base-context"),
		serverSpec("serena", "1.0.0", registry.Fragment{
			"mcpServers": map[string]any{"serena": map[string]any{"command": "serena-mcp"}},
		}),
	)
	target := t.TempDir()

	out, err := Init(fx.catalog, []types.ItemName{"research-agent", "serena"}, fx.options(target))
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	// base-context is pulled in by dependency and flagged as such.
	if len(out.Selection.Items) != 3 {
		t.Fatalf("expected 3 resolved items, got %d", len(out.Selection.Items))
	}
	if !out.Selection.AutoIncluded["base-context"] {
		t.Error("base-context should be auto-included")
	}

	for _, rel := range []string{
		".claude/agents/base-context.md",
		".claude/agents/research-agent.md",
		install.MergedConfigPath,
	} {
		if _, err := os.Stat(filepath.Join(target, filepath.FromSlash(rel))); err != nil {
			t.Errorf("expected %s installed: %v", rel, err)
		}
	}

	lock, err := lockfile.Load(filepath.Join(target, lockfile.FileName))
	if err != nil {
		t.Fatalf("lock file not readable: %v", err)
	}
	if len(lock.Items) != 3 {
		t.Errorf("expected 3 locked items, got %d", len(lock.Items))
	}
	if lock.Items["base-context"].Version != "2.1.0" || !lock.Items["base-context"].AutoIncluded {
		t.Errorf("unexpected base-context entry: %+v", lock.Items["base-context"])
	}
	if lock.Merged == "" {
		t.Error("expected merged document hash in lock")
	}
	if lock.RegistryPath != fx.registryPath {
		t.Errorf("lock registry path = %q, want %q", lock.RegistryPath, fx.registryPath)
	}
	if len(out.Conflicts) != 0 {
		t.Errorf("unexpected conflicts: %v", out.Conflicts)
	}
}

func TestInit_ConflictAbortsBeforeInstall(t *testing.T) {
	t.Parallel()
	fx := newFixture(t,
		serverSpec("server-a", "1.0.0", registry.Fragment{
			"mcpServers": map[string]any{"shared": map[string]any{"command": "a-mcp"}},
		}),
		serverSpec("server-b", "1.0.0", registry.Fragment{
			"mcpServers": map[string]any{"shared": map[string]any{"command": "b-mcp"}},
		}),
	)
	target := t.TempDir()

	_, err := Init(fx.catalog, []types.ItemName{"server-a", "server-b"}, fx.options(target))
	if err == nil {
		t.Fatal("expected conflict error")
	}
	var conflictErr *ConflictError
	if !errors.As(err, &conflictErr) {
		t.Fatalf("expected *ConflictError, got %T: %v", err, err)
	}
	if len(conflictErr.Conflicts) != 1 {
		t.Errorf("expected one conflict, got %d", len(conflictErr.Conflicts))
	}
	if !errors.Is(err, ErrMergeConflict) {
		t.Error("expected ErrMergeConflict classification")
	}

	entries, readErr := os.ReadDir(target)
	if readErr != nil {
		t.Fatal(readErr)
	}
	if len(entries) != 0 {
		t.Errorf("conflicting run touched the target: %v", entries)
	}
}

func TestInit_ForceInstallsDespiteConflicts(t *testing.T) {
	t.Parallel()
	fx := newFixture(t,
		serverSpec("server-a", "1.0.0", registry.Fragment{"port": 8080}),
		serverSpec("server-b", "1.0.0", registry.Fragment{"port": 9090}),
	)
	target := t.TempDir()

	opts := fx.options(target)
	opts.Force = true
	out, err := Init(fx.catalog, []types.ItemName{"server-a", "server-b"}, opts)
	if err != nil {
		t.Fatalf("Init with force: %v", err)
	}
	if len(out.Conflicts) != 1 {
		t.Errorf("forced run must still report conflicts, got %d", len(out.Conflicts))
	}
	// Later fragment wins under force.
	if out.Merged["port"] != 9090 {
		t.Errorf("expected forced value 9090, got %v", out.Merged["port"])
	}
	if !out.Lock.Force {
		t.Error("lock file must record the force policy")
	}
}

func TestInit_DryRunReportsConflictsWithoutTouchingTarget(t *testing.T) {
	t.Parallel()
	fx := newFixture(t,
		serverSpec("server-a", "1.0.0", registry.Fragment{"port": 8080}),
		serverSpec("server-b", "1.0.0", registry.Fragment{"port": 9090}),
	)
	target := t.TempDir()

	opts := fx.options(target)
	opts.DryRun = true
	out, err := Init(fx.catalog, []types.ItemName{"server-a", "server-b"}, opts)
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if len(out.Conflicts) != 1 {
		t.Errorf("expected conflicts in dry-run outcome, got %d", len(out.Conflicts))
	}
	if !out.DryRun {
		t.Error("outcome must be marked as dry run")
	}

	entries, readErr := os.ReadDir(target)
	if readErr != nil {
		t.Fatal(readErr)
	}
	if len(entries) != 0 {
		t.Errorf("dry run touched the target: %v", entries)
	}
}

func TestInit_ExistingLockFileRejected(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, agentSpec("agent", "1.0.0"))
	target := t.TempDir()
	if err := os.WriteFile(filepath.Join(target, lockfile.FileName), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Init(fx.catalog, []types.ItemName{"agent"}, fx.options(target))
	if !errors.Is(err, install.ErrPreexistingTarget) {
		t.Fatalf("expected ErrPreexistingTarget, got %v", err)
	}
}

func TestInstallFromLock_ReproducesInstallation(t *testing.T) {
	t.Parallel()
	fx := newFixture(t,
		agentSpec("base-context", "2.1.0"),
		agentSpec("research-agent", "1.2.0", "base-context"),
		serverSpec("serena", "1.0.0", registry.Fragment{
			"mcpServers": map[string]any{"serena": map[string]any{"command": "serena-mcp"}},
		}),
	)
	first := t.TempDir()
	second := t.TempDir()

	original, err := Init(fx.catalog, []types.ItemName{"research-agent", "serena"}, fx.options(first))
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	reproduced, err := InstallFromLock(fx.catalog, original.LockPath, fx.options(second))
	if err != nil {
		t.Fatalf("InstallFromLock: %v", err)
	}

	// Byte-identical content: every recorded hash must verify in the new target.
	if err := reproduced.Lock.VerifyInstalled(second); err != nil {
		t.Errorf("reproduced installation does not verify: %v", err)
	}
	if len(reproduced.Install.Files) != len(original.Install.Files) {
		t.Errorf("file count drifted: %d vs %d",
			len(reproduced.Install.Files), len(original.Install.Files))
	}
	for i := range original.Install.Files {
		if reproduced.Install.Files[i].Hash != original.Install.Files[i].Hash {
			t.Errorf("hash drifted for %s", original.Install.Files[i].Dest)
		}
	}
	if _, err := os.Stat(filepath.Join(second, lockfile.FileName)); err != nil {
		t.Errorf("reproduction must write its own lock file: %v", err)
	}
}

func TestInstallFromLock_VerifyChecksCommittedFiles(t *testing.T) {
	t.Parallel()
	fx := newFixture(t,
		agentSpec("base-context", "2.1.0"),
		agentSpec("research-agent", "1.2.0", "base-context"),
	)
	first := t.TempDir()

	original, err := Init(fx.catalog, []types.ItemName{"research-agent"}, fx.options(first))
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	// The round trip: reproducing with verification on a fresh target must
	// succeed, having re-hashed every freshly written file against the lock.
	second := t.TempDir()
	opts := fx.options(second)
	opts.Verify = true
	out, err := InstallFromLock(fx.catalog, original.LockPath, opts)
	if err != nil {
		t.Fatalf("InstallFromLock with verify: %v", err)
	}
	if len(out.Install.Files) != 2 {
		t.Errorf("expected 2 installed files, got %d", len(out.Install.Files))
	}

	// Verification on a dry run is a no-op: nothing was written to re-read.
	third := t.TempDir()
	opts = fx.options(third)
	opts.Verify = true
	opts.DryRun = true
	if _, err := InstallFromLock(fx.catalog, original.LockPath, opts); err != nil {
		t.Fatalf("dry run with verify: %v", err)
	}
}

func TestInstallFromLock_VersionDriftFailsUntouched(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, agentSpec("base-context", "2.1.0"))
	first := t.TempDir()

	original, err := Init(fx.catalog, []types.ItemName{"base-context"}, fx.options(first))
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	// Same registry content, but the catalog now reports 2.2.0.
	drifted := newFixture(t, agentSpec("base-context", "2.2.0"))
	second := t.TempDir()

	_, err = InstallFromLock(drifted.catalog, original.LockPath, drifted.options(second))
	var mismatchErr *lockfile.VersionMismatchError
	if !errors.As(err, &mismatchErr) {
		t.Fatalf("expected *VersionMismatchError, got %v", err)
	}
	m := mismatchErr.Mismatches[0]
	if m.Locked != "2.1.0" || m.Registry != "2.2.0" || m.Direction() != "newer" {
		t.Errorf("unexpected mismatch detail: %+v", m)
	}

	entries, readErr := os.ReadDir(second)
	if readErr != nil {
		t.Fatal(readErr)
	}
	if len(entries) != 0 {
		t.Errorf("failed reproduction touched the target: %v", entries)
	}
}

func TestInstallFromLock_ContentDriftFailsUntouched(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, agentSpec("agent", "1.0.0"))
	first := t.TempDir()

	original, err := Init(fx.catalog, []types.ItemName{"agent"}, fx.options(first))
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	// Rewrite the source content without bumping the version.
	src := filepath.Join(fx.registryPath, "agent", "agent.md")
	if err := os.WriteFile(src, []byte("silently changed\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	second := t.TempDir()
	_, err = InstallFromLock(fx.catalog, original.LockPath, fx.options(second))
	if !errors.Is(err, install.ErrChecksumMismatch) {
		t.Fatalf("expected ErrChecksumMismatch, got %v", err)
	}

	entries, readErr := os.ReadDir(second)
	if readErr != nil {
		t.Fatal(readErr)
	}
	if len(entries) != 0 {
		t.Errorf("failed reproduction touched the target: %v", entries)
	}
}

func TestInstallFromLock_DryRun(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, agentSpec("agent", "1.0.0"))
	first := t.TempDir()

	original, err := Init(fx.catalog, []types.ItemName{"agent"}, fx.options(first))
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	second := t.TempDir()
	opts := fx.options(second)
	opts.DryRun = true
	out, err := InstallFromLock(fx.catalog, original.LockPath, opts)
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if !out.DryRun {
		t.Error("outcome must be marked as dry run")
	}

	entries, readErr := os.ReadDir(second)
	if readErr != nil {
		t.Fatal(readErr)
	}
	if len(entries) != 0 {
		t.Errorf("dry run touched the target: %v", entries)
	}
}
