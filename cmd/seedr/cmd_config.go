// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"seedr-cli/internal/config"
	"seedr-cli/internal/issue"

	"github.com/spf13/cobra"
)

// configCmd is the `seedr config` command tree.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage seedr configuration",
	Long: `Manage seedr configuration.

Configuration is stored in:
  - Linux: ~/.config/seedr/config.cue
  - macOS: ~/Library/Application Support/seedr/config.cue
  - Windows: %APPDATA%\seedr\config.cue`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd.Context())
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfigFile()
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfigPath()
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setConfigValue(cmd.Context(), args[0], args[1])
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "check <file>",
		Short: "Validate a configuration file against the schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkConfigFile(args[0])
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output raw configuration as CUE",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfigForCommand(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Print(config.GenerateCUE(cfg))
			return nil
		},
	})
}

// loadConfigForCommand loads the configuration honoring the global --config
// flag, the same source the root command uses.
func loadConfigForCommand(ctx context.Context) (*config.Config, error) {
	return config.NewProvider().Load(ctx, config.LoadOptions{ConfigFilePath: cfgFile})
}

func showConfig(ctx context.Context) error {
	cfg, err := loadConfigForCommand(ctx)
	if err != nil {
		rendered, _ := issue.Get(issue.ConfigLoadFailedId).Render("dark")
		fmt.Fprint(os.Stderr, rendered)
		return err
	}

	keyStyle := CmdStyle
	valueStyle := SuccessStyle

	fmt.Println(TitleStyle.Render("Current Configuration"))
	fmt.Println()

	cfgDir, dirErr := config.ConfigDir()
	cfgPath := ""
	if dirErr == nil {
		cfgPath = filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt)
	}
	if cfgFile != "" {
		fmt.Printf("%s: %s\n", keyStyle.Render("Config file"), cfgFile)
	} else if cfgPath != "" && fileExistsCheck(cfgPath) {
		fmt.Printf("%s: %s\n", keyStyle.Render("Config file"), cfgPath)
	} else {
		fmt.Printf("%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Println()

	if cfg.RegistryPath != "" {
		fmt.Printf("%s: %s\n", keyStyle.Render("registry_path"), valueStyle.Render(cfg.RegistryPath.String()))
	} else {
		fmt.Printf("%s: %s\n", keyStyle.Render("registry_path"),
			SubtitleStyle.Render("(not set, using ./"+config.DefaultRegistryDirName+")"))
	}

	fmt.Println()
	fmt.Printf("%s:\n", keyStyle.Render("ui"))
	fmt.Printf("  color_scheme: %s\n", valueStyle.Render(cfg.UI.ColorScheme.String()))
	fmt.Printf("  verbose: %s\n", valueStyle.Render(fmt.Sprintf("%v", cfg.UI.Verbose)))

	return nil
}

func initConfigFile() error {
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return err
	}

	if err := config.CreateDefaultConfig(); err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}

	fmt.Printf("%s Created default configuration at %s\n", SuccessStyle.Render("✓"),
		filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt))
	return nil
}

func showConfigPath() error {
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return err
	}

	fmt.Printf("Config directory: %s\n", cfgDir)
	fmt.Printf("Config file: %s\n", filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt))

	return nil
}

func setConfigValue(ctx context.Context, key, value string) error {
	cfg, err := loadConfigForCommand(ctx)
	if err != nil {
		return err
	}

	switch key {
	case "registry_path":
		p := config.RegistryDirPath(value)
		if valid, errs := p.IsValid(); !valid {
			return errs[0]
		}
		cfg.RegistryPath = p

	case "ui.color_scheme":
		cs := config.ColorScheme(value)
		if valid, errs := cs.IsValid(); !valid {
			return errs[0]
		}
		cfg.UI.ColorScheme = cs

	case "ui.verbose":
		cfg.UI.Verbose = value == "true" || value == "1"

	default:
		return fmt.Errorf("unknown configuration key: %s\nValid keys: registry_path, ui.color_scheme, ui.verbose", key)
	}

	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("%s Set %s = %s\n", SuccessStyle.Render("✓"), key, value)
	return nil
}

// checkConfigFile validates a config file in isolation: strict schema check,
// no defaults merged in from the platform config.
func checkConfigFile(path string) error {
	cfg, err := config.ValidateFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("✗ ")+formatErrorForDisplay(err, GetVerbose()))
		return &ExitError{Code: ExitUsage, Err: err}
	}

	fmt.Printf("%s %s is valid\n", SuccessStyle.Render("✓"), path)
	if cfg.RegistryPath != "" {
		fmt.Printf("  registry_path: %s\n", cfg.RegistryPath)
	}
	return nil
}

// fileExistsCheck checks if a file exists and is not a directory.
func fileExistsCheck(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}
