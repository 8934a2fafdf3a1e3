// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"

	"seedr-cli/internal/merge"
	"seedr-cli/internal/resolve"

	"github.com/spf13/cobra"
)

// validateCmd checks every manifest in the registry.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate every manifest in the registry",
	Long: `Validate every manifest in the registry.

Loads and validates all item manifests, resolves the full dependency
graph to detect unknown references and cycles, and reports fragment
conflicts that would arise if every item were installed together.
Whole-catalog conflicts are reported as warnings: they only block an
installation that actually selects both conflicting items.

Examples:
  seedr validate
  seedr validate --registry ./my-registry`,
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	catalog, err := loadCatalog()
	if err != nil {
		return failCommand(err)
	}

	selection, err := resolve.Resolve(catalog, catalog.Names())
	if err != nil {
		return failCommand(err)
	}

	result := merge.Merge(selection.Items, true)
	if len(result.Conflicts) > 0 {
		fmt.Fprintln(os.Stderr, WarningStyle.Render(
			fmt.Sprintf("Warning: %d fragment conflict(s) across the full catalog", len(result.Conflicts))))
		renderConflicts(os.Stderr, result.Conflicts)
	}

	fmt.Printf("%s %d item(s) valid\n", SuccessStyle.Render("✓"), catalog.Len())

	return nil
}
