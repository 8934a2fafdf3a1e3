// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// writeItem creates an item directory with a manifest and its source files.
func writeItem(t *testing.T, root, name, manifest string, sources ...string) {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFileName), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}
	for _, src := range sources {
		path := filepath.Join(root, filepath.FromSlash(src))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("content of "+src+"\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestLoad_BuildsCatalog(t *testing.T) {
	t.Parallel()
	root := t.TempDir()

	writeItem(t, root, "base-context", `
name: base-context
version: 1.2.0
kind: subagent
description: Shared project context.
files:
  - dest: .claude/agents/base.md
    source: base-context/base.md
`, "base-context/base.md")

	writeItem(t, root, "serena", `
name: serena
version: 0.3.1
kind: mcp-server
dependencies: [base-context]
env_vars:
  - name: SERENA_TOKEN
    description: API token for serena.
    required: true
files:
  - dest: .claude/docs/serena.md
    source: serena/serena.md
fragment:
  mcpServers:
    serena:
      command: serena-mcp
      args: [--stdio]
`, "serena/serena.md")

	// A directory without a manifest is shared assets, not an item.
	if err := os.MkdirAll(filepath.Join(root, "shared"), 0o755); err != nil {
		t.Fatal(err)
	}

	cat, err := Load(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cat.Len() != 2 {
		t.Fatalf("expected 2 items, got %d", cat.Len())
	}

	serena, ok := cat.Get("serena")
	if !ok {
		t.Fatal("expected serena in catalog")
	}
	if serena.Kind != KindMcpServer {
		t.Errorf("expected mcp-server kind, got %q", serena.Kind)
	}
	if serena.Fragment() == nil {
		t.Error("expected fragment on serena")
	}
	if len(serena.Dependencies) != 1 || serena.Dependencies[0] != "base-context" {
		t.Errorf("unexpected dependencies: %v", serena.Dependencies)
	}
	if len(serena.EnvVars) != 1 || !serena.EnvVars[0].Required {
		t.Errorf("unexpected env vars: %+v", serena.EnvVars)
	}
}

func TestLoad_MissingRegistry(t *testing.T) {
	t.Parallel()
	_, err := Load(filepath.Join(t.TempDir(), "nope"))
	if err == nil {
		t.Fatal("expected error for missing registry directory")
	}
}

func TestLoad_ManifestErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		dir      string
		manifest string
	}{
		{
			"yaml syntax error",
			"broken",
			"name: [unclosed",
		},
		{
			"unknown field",
			"typo",
			"name: typo\nversion: 1.0.0\nkind: command\nfilez: []\n",
		},
		{
			"name mismatch",
			"actual",
			"name: declared\nversion: 1.0.0\nkind: command\n",
		},
		{
			"implicit required",
			"implicit",
			"name: implicit\nversion: 1.0.0\nkind: command\nenv_vars:\n  - name: KEY\n",
		},
		{
			"fragment on command",
			"cmd",
			"name: cmd\nversion: 1.0.0\nkind: command\nfragment:\n  a: 1\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			root := t.TempDir()
			writeItem(t, root, tt.dir, tt.manifest)

			_, err := Load(root)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			var mErr *ManifestError
			if !errors.As(err, &mErr) {
				t.Fatalf("expected *ManifestError, got %T: %v", err, err)
			}
			if !errors.Is(err, ErrManifest) {
				t.Errorf("expected ErrManifest classification, got %v", err)
			}
		})
	}
}

func TestLoad_MissingSourceFile(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeItem(t, root, "ghost", `
name: ghost
version: 1.0.0
kind: command
files:
  - dest: .claude/commands/ghost.md
    source: ghost/missing.md
`)

	_, err := Load(root)
	if err == nil {
		t.Fatal("expected error for missing source file")
	}
	var mErr *ManifestError
	if !errors.As(err, &mErr) {
		t.Fatalf("expected *ManifestError, got %T: %v", err, err)
	}
}
