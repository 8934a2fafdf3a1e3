// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"seedr-cli/internal/registry"

	"github.com/spf13/cobra"
)

var (
	listKind string

	// listCmd prints the registry catalog.
	listCmd = &cobra.Command{
		Use:   "list",
		Short: "List all registry items",
		Long: `List all registry items with their version, kind, and description.

Examples:
  seedr list
  seedr list --kind mcp-server`,
		RunE: runList,
	}
)

func init() {
	listCmd.Flags().StringVarP(&listKind, "kind", "k", "", "only show items of this kind (subagent, command, mcp-server)")
}

func runList(cmd *cobra.Command, args []string) error {
	if listKind != "" {
		if err := registry.ItemKind(listKind).Validate(); err != nil {
			return failCommand(err)
		}
	}

	catalog, err := loadCatalog()
	if err != nil {
		return failCommand(err)
	}

	shown := 0
	for _, item := range catalog.Items() {
		if listKind != "" && item.Kind != registry.ItemKind(listKind) {
			continue
		}
		shown++

		fmt.Printf("%s %s %s\n",
			CmdStyle.Render(string(item.Name)),
			item.Version.String(),
			VerboseStyle.Render("("+string(item.Kind)+")"))
		if item.Description != "" {
			fmt.Printf("  %s\n", SubtitleStyle.Render(item.Description))
		}
		if len(item.Dependencies) > 0 {
			deps := make([]string, len(item.Dependencies))
			for i, d := range item.Dependencies {
				deps[i] = string(d)
			}
			fmt.Printf("  %s %s\n", VerboseHighlightStyle.Render("depends on:"), strings.Join(deps, ", "))
		}
	}

	if shown == 0 {
		fmt.Println(SubtitleStyle.Render("No items found."))
	}

	return nil
}
