// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"seedr-cli/internal/pipeline"
	"seedr-cli/internal/registry"
	"seedr-cli/internal/report"
	"seedr-cli/internal/tui"
	"seedr-cli/pkg/types"

	"github.com/spf13/cobra"
)

var (
	initItems  []string
	initFilter string
	initForce  bool
	initDryRun bool
	initYes    bool
	initTarget string

	// initCmd installs selected registry items into the target directory.
	initCmd = &cobra.Command{
		Use:   "init [item...]",
		Short: "Install registry items into the target directory",
		Long: `Install registry items into the target directory.

Items can be named as arguments or via --item; with --filter, every item
whose name contains the substring is selected. Without any of these,
seedr opens an interactive picker when a terminal is attached.

Dependencies are resolved transitively, MCP server fragments are merged
into a single config document, and the result is recorded in a lock file
for later reproduction with 'seedr install'.

Examples:
  seedr init research-agent             Install one item and its dependencies
  seedr init --filter db --dry-run      Preview everything matching "db"
  seedr init --item a --item b --yes    Install without a confirmation prompt`,
		RunE: runInit,
	}
)

func init() {
	initCmd.Flags().StringArrayVarP(&initItems, "item", "i", nil, "item to install (repeatable)")
	initCmd.Flags().StringVar(&initFilter, "filter", "", "select every item whose name contains this substring")
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "install despite merge conflicts (later item wins)")
	initCmd.Flags().BoolVar(&initDryRun, "dry-run", false, "compute the full plan without touching the target")
	initCmd.Flags().BoolVarP(&initYes, "yes", "y", false, "skip the confirmation prompt")
	initCmd.Flags().StringVarP(&initTarget, "target", "t", ".", "target directory")
}

func runInit(cmd *cobra.Command, args []string) error {
	catalog, err := loadCatalog()
	if err != nil {
		return failCommand(err)
	}

	explicit, err := selectItems(catalog, args)
	if err != nil {
		if errors.Is(err, tui.ErrCancelled) {
			fmt.Println(SubtitleStyle.Render("Aborted."))
			return nil
		}
		return failCommand(err)
	}
	if len(explicit) == 0 {
		return failCommand(fmt.Errorf("no items selected: pass item names, --item, or --filter"))
	}

	if !initYes && !initDryRun && tui.InteractiveAvailable() {
		ok, err := tui.Confirm(tui.ConfirmOptions{
			Title:       fmt.Sprintf("Install %d item(s) into %s?", len(explicit), initTarget),
			Description: strings.Join(itemNameStrings(explicit), ", "),
			Default:     true,
			Config:      tui.DefaultConfig(),
		})
		if err != nil && !errors.Is(err, tui.ErrCancelled) {
			return failCommand(err)
		}
		if !ok {
			fmt.Println(SubtitleStyle.Render("Aborted."))
			return nil
		}
	}

	out, err := pipeline.Init(catalog, explicit, pipeline.Options{
		RegistryPath: resolveRegistryPath(),
		TargetDir:    initTarget,
		Force:        initForce,
		DryRun:       initDryRun,
	})
	if err != nil {
		var conflictErr *pipeline.ConflictError
		if errors.As(err, &conflictErr) {
			renderConflicts(os.Stderr, conflictErr.Conflicts)
		}
		return failCommand(err)
	}

	if out.DryRun {
		renderPlan(os.Stdout, out)
		return nil
	}

	fmt.Print(report.InstallSummary(out))

	if env := report.EnvExample(out.Selection.Items); env != "" {
		envPath := filepath.Join(initTarget, report.EnvExampleFileName)
		if err := os.WriteFile(envPath, []byte(env), 0o644); err != nil {
			// The installation itself committed; a failed report write is a
			// warning, not a rollback.
			fmt.Fprintln(os.Stderr, WarningStyle.Render("Warning: ")+fmt.Sprintf("could not write %s: %v", envPath, err))
		} else {
			fmt.Printf("%s Wrote %s\n", SuccessStyle.Render("✓"), envPath)
		}
	}

	return nil
}

// selectItems determines the explicit selection: named items first, then the
// filter, then the interactive picker.
func selectItems(catalog *registry.Catalog, args []string) ([]types.ItemName, error) {
	named := make([]types.ItemName, 0, len(args)+len(initItems))
	for _, a := range args {
		named = append(named, types.ItemName(a))
	}
	for _, it := range initItems {
		named = append(named, types.ItemName(it))
	}
	if len(named) > 0 {
		return named, nil
	}

	if initFilter != "" {
		return filterItems(catalog, initFilter), nil
	}

	if !tui.InteractiveAvailable() {
		return nil, nil
	}

	return tui.SelectItems(tui.SelectItemsOptions{
		Title:  "Select items to install",
		Items:  catalog.Items(),
		Config: tui.DefaultConfig(),
	})
}

// filterItems returns every catalog item whose name contains the substring.
func filterItems(catalog *registry.Catalog, substr string) []types.ItemName {
	var names []types.ItemName
	for _, name := range catalog.Names() {
		if strings.Contains(string(name), substr) {
			names = append(names, name)
		}
	}
	return names
}

func itemNameStrings(names []types.ItemName) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = string(n)
	}
	return out
}
