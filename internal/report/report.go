// SPDX-License-Identifier: MPL-2.0

// Package report renders post-installation artifacts: a .env.example
// documenting the environment variables the installed items need, and a
// markdown summary of what was installed. Both are pure functions over the
// pipeline outcome; callers decide where the output goes.
package report

import (
	"fmt"
	"strings"

	"seedr-cli/internal/install"
	"seedr-cli/internal/pipeline"
	"seedr-cli/internal/registry"
)

// EnvExampleFileName is where the CLI writes the env var template.
const EnvExampleFileName = ".env.example"

// EnvExample renders a .env.example covering every environment variable the
// given items declare, grouped per item in the given (resolution) order.
// Required variables get an empty assignment, optional ones are commented
// out with their default when one exists. Returns "" when no item declares
// any variable.
func EnvExample(items []*registry.Item) string {
	var sb strings.Builder
	for _, item := range items {
		if len(item.EnvVars) == 0 {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "# %s %s\n", item.Name, item.Version)
		for _, ev := range item.EnvVars {
			if ev.Description != "" {
				fmt.Fprintf(&sb, "# %s\n", ev.Description)
			}
			switch {
			case ev.Required:
				fmt.Fprintf(&sb, "%s=\n", ev.Name)
			case ev.Default != nil:
				fmt.Fprintf(&sb, "#%s=%s\n", ev.Name, *ev.Default)
			default:
				fmt.Fprintf(&sb, "#%s=\n", ev.Name)
			}
		}
	}
	return sb.String()
}

// RequiredEnvVars returns every required environment variable of items,
// with the declaring item, in resolution order.
func RequiredEnvVars(items []*registry.Item) []RequiredVar {
	var out []RequiredVar
	for _, item := range items {
		for _, ev := range item.EnvVars {
			if ev.Required {
				out = append(out, RequiredVar{Item: item, Var: ev})
			}
		}
	}
	return out
}

// RequiredVar pairs a required environment variable with its declaring item.
type RequiredVar struct {
	Item *registry.Item
	Var  registry.EnvVar
}

// InstallSummary renders a markdown section describing a completed (or
// planned) installation, suitable for appending to a project README.
func InstallSummary(out *pipeline.Outcome) string {
	var sb strings.Builder

	sb.WriteString("## Installed configuration\n\n")
	if out.DryRun {
		sb.WriteString("_Dry run: nothing was written._\n\n")
	}

	for _, item := range out.Selection.Items {
		fmt.Fprintf(&sb, "- **%s** %s (%s)", item.Name, item.Version, item.Kind)
		if out.Selection.AutoIncluded[item.Name] {
			sb.WriteString(" (included as a dependency)")
		}
		sb.WriteString("\n")
		if item.Description != "" {
			fmt.Fprintf(&sb, "  %s\n", item.Description)
		}
	}

	if out.Install != nil {
		fmt.Fprintf(&sb, "\n%d files, %d bytes", len(out.Install.Files), out.Install.TotalBytes)
		if out.Install.MergedConfig != nil {
			fmt.Fprintf(&sb, ", merged server configuration at `%s`", install.MergedConfigPath)
		}
		sb.WriteString(".\n")
	}

	if required := RequiredEnvVars(out.Selection.Items); len(required) > 0 {
		sb.WriteString("\n### Required environment variables\n\n")
		for _, rv := range required {
			fmt.Fprintf(&sb, "- `%s` (%s)", rv.Var.Name, rv.Item.Name)
			if rv.Var.Description != "" {
				fmt.Fprintf(&sb, ": %s", rv.Var.Description)
			}
			sb.WriteString("\n")
		}
	}

	if len(out.Conflicts) > 0 {
		fmt.Fprintf(&sb, "\n%d configuration conflicts were overridden; see the lock file.\n", len(out.Conflicts))
	}

	return sb.String()
}
