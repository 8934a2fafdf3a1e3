// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"testing"

	"seedr-cli/internal/registry"
	"seedr-cli/pkg/types"
)

func testCatalog(t *testing.T, names ...string) *registry.Catalog {
	t.Helper()

	items := make([]*registry.Item, 0, len(names))
	for _, name := range names {
		item, err := registry.NewItem(registry.ItemSpec{
			Name:    types.ItemName(name),
			Version: "1.0.0",
			Kind:    registry.KindSubagent,
			Files: []registry.FileMapping{
				{Dest: ".claude/agents/" + name + ".md", Source: name + "/agent.md"},
			},
		})
		if err != nil {
			t.Fatalf("NewItem(%s): %v", name, err)
		}
		items = append(items, item)
	}

	catalog, err := registry.NewCatalog(items)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}

	return catalog
}

func TestFilterItems(t *testing.T) {
	t.Parallel()

	catalog := testCatalog(t, "db-agent", "db-migrator", "research-agent")

	tests := []struct {
		name   string
		substr string
		want   []types.ItemName
	}{
		{name: "prefix match", substr: "db", want: []types.ItemName{"db-agent", "db-migrator"}},
		{name: "infix match", substr: "agent", want: []types.ItemName{"db-agent", "research-agent"}},
		{name: "no match", substr: "zzz", want: nil},
		{name: "everything", substr: "", want: []types.ItemName{"db-agent", "db-migrator", "research-agent"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := filterItems(catalog, tt.substr)
			if len(got) != len(tt.want) {
				t.Fatalf("filterItems(%q) = %v, want %v", tt.substr, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("filterItems(%q)[%d] = %q, want %q", tt.substr, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestItemNameStrings(t *testing.T) {
	t.Parallel()

	got := itemNameStrings([]types.ItemName{"a", "b"})
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("itemNameStrings = %v", got)
	}
}
