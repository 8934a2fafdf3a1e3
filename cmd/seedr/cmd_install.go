// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"seedr-cli/internal/lockfile"
	"seedr-cli/internal/pipeline"
	"seedr-cli/internal/report"

	"github.com/spf13/cobra"
)

var (
	installLock   string
	installTarget string
	installDryRun bool
	installVerify bool
	installAudit  bool

	// installCmd reproduces an installation from a lock file.
	installCmd = &cobra.Command{
		Use:   "install",
		Short: "Reproduce an installation from a lock file",
		Long: `Reproduce an installation from a lock file.

The locked selection is re-resolved against the current registry. If any
locked item is missing or its version drifted, the command fails before
touching the target. Registry content that no longer matches the locked
checksums also fails the run.

With --verify, the freshly installed files are re-read and checked
against the locked checksums after the commit. With --audit, no
installation happens: the files already present in the target are
checked against the lock instead.

Examples:
  seedr install                          Install from ./seedr.lock.json
  seedr install --lock /ops/seedr.lock.json --target /srv/agent
  seedr install --verify                 Install, then re-check the written files
  seedr install --audit                  Audit an existing installation`,
		RunE: runInstall,
	}
)

func init() {
	installCmd.Flags().StringVarP(&installLock, "lock", "l", "", "lock file path (default <target>/"+lockfile.FileName+")")
	installCmd.Flags().StringVarP(&installTarget, "target", "t", ".", "target directory")
	installCmd.Flags().BoolVar(&installDryRun, "dry-run", false, "compute the full plan without touching the target")
	installCmd.Flags().BoolVar(&installVerify, "verify", false, "re-check the installed files against the lock after committing")
	installCmd.Flags().BoolVar(&installAudit, "audit", false, "verify an existing installation against the lock without installing")
}

func runInstall(cmd *cobra.Command, args []string) error {
	lockPath := installLock
	if lockPath == "" {
		lockPath = filepath.Join(installTarget, lockfile.FileName)
	}

	if installAudit {
		return runAudit(lockPath)
	}

	catalog, err := loadCatalog()
	if err != nil {
		return failCommand(err)
	}

	out, err := pipeline.InstallFromLock(catalog, lockPath, pipeline.Options{
		RegistryPath: resolveRegistryPath(),
		TargetDir:    installTarget,
		DryRun:       installDryRun,
		Verify:       installVerify,
	})
	if err != nil {
		return failCommand(err)
	}

	if out.DryRun {
		renderPlan(os.Stdout, out)
		return nil
	}

	fmt.Print(report.InstallSummary(out))
	if installVerify {
		fmt.Printf("%s Installed files match the lock\n", SuccessStyle.Render("✓"))
	}

	return nil
}

// runAudit checks installed files against the lock without installing.
func runAudit(lockPath string) error {
	lock, err := lockfile.Load(lockPath)
	if err != nil {
		return failCommand(err)
	}

	if err := lock.VerifyInstalled(installTarget); err != nil {
		return failCommand(err)
	}

	total := 0
	for _, entry := range lock.Items {
		total += len(entry.Files)
	}
	if lock.Merged != "" {
		total++
	}

	fmt.Printf("%s %d file(s) match the lock\n", SuccessStyle.Render("✓"), total)

	return nil
}
