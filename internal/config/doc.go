// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/seedr/config.cue (or XDG equivalent on Linux,
// ~/Library/Application Support/seedr/config.cue on macOS, %APPDATA%\seedr\config.cue
// on Windows). The registry path additionally honors the SEEDR_REGISTRY_PATH environment
// variable, which takes precedence over the config file; command-line flags override both.
//
// Configuration validation is performed against a CUE schema (config_schema.cue) to ensure
// type safety and provide clear error messages for invalid configurations.
package config
