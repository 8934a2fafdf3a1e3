// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"os"

	"seedr-cli/internal/merge"
	"seedr-cli/internal/pipeline"
	"seedr-cli/pkg/types"
)

// failCommand renders an error for the user and converts it into an
// ExitError carrying the exit code contract. RunE handlers return its result
// directly so fang prints the message once and main exits with the right code.
func failCommand(err error) error {
	if err == nil {
		return nil
	}

	renderServiceError(os.Stderr, newServiceError(err, issueIDForError(err), ""))

	return &ExitError{Code: exitCodeForError(err), Err: err}
}

// renderPlan prints the resolved installation plan without executing. It
// shows every file the pipeline would write, the merged config document,
// and the byte total — everything a user needs to understand what seedr
// would do.
func renderPlan(w io.Writer, out *pipeline.Outcome) {
	fmt.Fprintln(w, TitleStyle.Render("Dry Run"))
	fmt.Fprintln(w)

	// Selection metadata.
	fmt.Fprintf(w, "  %s %d item(s), %d auto-included\n",
		VerboseHighlightStyle.Render("Selection:"),
		len(out.Selection.Items), len(out.Selection.AutoIncluded))

	fmt.Fprintln(w)
	fmt.Fprintln(w, VerboseHighlightStyle.Render("  Files:"))

	var current types.ItemName
	for _, rec := range out.Install.Files {
		if rec.Item != current {
			current = rec.Item
			fmt.Fprintf(w, "    %s\n", CmdStyle.Render(string(current)))
		}
		fmt.Fprintf(w, "      %s  %s\n", rec.Dest, VerboseStyle.Render(fmt.Sprintf("(%d bytes)", rec.Size)))
	}
	if mc := out.Install.MergedConfig; mc != nil {
		fmt.Fprintf(w, "    %s\n", CmdStyle.Render("merged config"))
		fmt.Fprintf(w, "      %s  %s\n", mc.Dest, VerboseStyle.Render(fmt.Sprintf("(%d bytes)", mc.Size)))
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s %d bytes\n", VerboseHighlightStyle.Render("Total:"), out.Install.TotalBytes)
	fmt.Fprintf(w, "  %s %s\n", VerboseHighlightStyle.Render("Lock:"), out.LockPath)

	if len(out.Conflicts) > 0 {
		fmt.Fprintln(w)
		renderConflicts(w, out.Conflicts)
	}

	fmt.Fprintln(w)
}

// renderConflicts prints a styled card for every merge conflict, naming the
// colliding path and both contributing items.
func renderConflicts(w io.Writer, conflicts []merge.Conflict) {
	fmt.Fprintln(w, renderHeaderStyle.Render(fmt.Sprintf("%d merge conflict(s)", len(conflicts))))

	for _, c := range conflicts {
		fmt.Fprintf(w, "  %s %s\n", renderLabelStyle.Render("Path:"), renderCommandStyle.Render(c.PathString()))
		fmt.Fprintf(w, "    %s %v\n", renderValueStyle.Render(string(c.ItemA)+" ="), c.ValueA)
		fmt.Fprintf(w, "    %s %v\n", renderValueStyle.Render(string(c.ItemB)+" ="), c.ValueB)
	}

	fmt.Fprintln(w, renderHintStyle.Render("Re-run with --force to let the later item win; every override is recorded in the lock file."))
}
