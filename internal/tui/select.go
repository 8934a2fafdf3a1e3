// SPDX-License-Identifier: MPL-2.0

package tui

import (
	"fmt"

	"github.com/charmbracelet/huh"

	"seedr-cli/internal/registry"
	"seedr-cli/pkg/types"
)

// SelectItemsOptions configures the item multi-select prompt.
type SelectItemsOptions struct {
	// Title is the prompt displayed above the options.
	Title string
	// Items is the candidate list, shown in the given order.
	Items []*registry.Item
	// Preselected marks item names checked when the prompt opens.
	Preselected []types.ItemName
	// Config holds common TUI configuration.
	Config Config
}

// SelectItems prompts the user to pick any number of items from the
// catalog. Each option shows name, version, kind, and description. Returns
// ErrCancelled when the user aborts.
func SelectItems(opts SelectItemsOptions) ([]types.ItemName, error) {
	preselected := make(map[types.ItemName]bool, len(opts.Preselected))
	for _, name := range opts.Preselected {
		preselected[name] = true
	}

	huhOpts := make([]huh.Option[types.ItemName], len(opts.Items))
	for i, item := range opts.Items {
		label := fmt.Sprintf("%s %s (%s)", item.Name, item.Version, item.Kind)
		if item.Description != "" {
			label += " - " + item.Description
		}
		o := huh.NewOption(label, item.Name)
		if preselected[item.Name] {
			o = o.Selected(true)
		}
		huhOpts[i] = o
	}

	title := opts.Title
	if title == "" {
		title = "Select items to install"
	}

	var selected []types.ItemName
	sel := huh.NewMultiSelect[types.ItemName]().
		Title(title).
		Options(huhOpts...).
		Value(&selected)

	form := huh.NewForm(huh.NewGroup(sel)).
		WithTheme(getHuhTheme(opts.Config.Theme)).
		WithAccessible(opts.Config.Accessible)

	if err := runForm(form); err != nil {
		return nil, err
	}
	return selected, nil
}
