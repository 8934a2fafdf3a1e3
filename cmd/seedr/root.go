// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for seedr.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"seedr-cli/internal/config"
	"seedr-cli/internal/issue"
	"seedr-cli/internal/registry"

	"github.com/charmbracelet/fang"
	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// Verbose enables verbose output
	verbose bool
	// cfgFile allows specifying a custom config file
	cfgFile string
	// registryFlag overrides the registry path from env and config file
	registryFlag string

	// appConfig holds the loaded configuration, nil until initRootConfig runs.
	appConfig *config.Config

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "seedr",
		Short: "Seed agent workspaces from a configuration registry",
		Long: TitleStyle.Render("seedr") + SubtitleStyle.Render(" - Seed agent workspaces from a configuration registry") + `

seedr installs curated configuration items (subagents, commands, and
MCP servers) from a local registry into a target directory. It resolves
item dependencies, merges MCP server fragments into a single config
document, and records the result in a reproducible lock file.

` + SubtitleStyle.Render("Quick Start:") + `
  1. Point seedr at a registry directory (--registry, ` + config.EnvRegistryPath + `, or config.cue)
  2. Pick items with 'seedr init --item <name>' or interactively
  3. Reproduce an installation elsewhere with 'seedr install'

` + SubtitleStyle.Render("Examples:") + `
  seedr list                       List all registry items
  seedr init research-agent       Install an item and its dependencies
  seedr init --dry-run --item db   Preview without touching the target
  seedr install --verify           Install, then re-check the written files
  seedr validate                   Check every manifest in the registry`,
	}
)

func init() {
	cobra.OnInitialize(initRootConfig)

	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/seedr/config.cue)")
	rootCmd.PersistentFlags().StringVarP(&registryFlag, "registry", "r", "", "registry directory (overrides "+config.EnvRegistryPath+" and the config file)")

	// Add subcommands
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(configCmd)
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	// Use fang.Execute for enhanced Cobra styling
	// Pass version via fang.WithVersion() since fang overrides rootCmd.Version
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code))
		}
		os.Exit(1)
	}
}

// initRootConfig reads in config file and ENV variables if set.
func initRootConfig() {
	cfg, err := config.NewProvider().Load(context.Background(), config.LoadOptions{
		ConfigFilePath: cfgFile,
	})
	if err != nil {
		// Always surface config loading errors; defaults still apply.
		fmt.Fprintln(os.Stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, verbose))
	}
	appConfig = cfg

	// Apply verbose from config if not set via flag
	if cfg != nil && !verbose {
		verbose = cfg.UI.Verbose
	}

	level := charmlog.WarnLevel
	if verbose {
		level = charmlog.DebugLevel
	}
	handler := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		Level:           level,
		ReportTimestamp: false,
	})
	slog.SetDefault(slog.New(handler))
}

// resolveRegistryPath applies the precedence flag > environment > config
// file > default. The environment variable is folded into the config value
// by the config loader.
func resolveRegistryPath() string {
	if registryFlag != "" {
		return registryFlag
	}
	if appConfig != nil && appConfig.RegistryPath != "" {
		return appConfig.RegistryPath.String()
	}
	return config.DefaultRegistryDirName
}

// loadCatalog loads the registry catalog from the resolved registry path.
func loadCatalog() (*registry.Catalog, error) {
	path := resolveRegistryPath()

	catalog, err := registry.Load(path)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("load registry").
			WithResource(path).
			WithSuggestion("Check that the registry directory exists").
			WithSuggestion("Run 'seedr validate' to check every manifest").
			Wrap(err).
			BuildError()
	}

	return catalog, nil
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// GetVerbose returns the verbose flag value
func GetVerbose() bool {
	return verbose
}
