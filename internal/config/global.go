// SPDX-License-Identifier: MPL-2.0

package config

// configDirOverride redirects ConfigDir for tests. os.UserHomeDir() does
// not reliably respect the HOME environment variable on every platform
// (macOS in CI, notably), so tests point seedr at a temp directory here
// instead of faking a home.
var configDirOverride string

// Reset clears test overrides. Call from test cleanup to restore defaults.
func Reset() {
	configDirOverride = ""
}

// SetConfigDirOverride sets a custom config directory path for tests.
// Production code resolves the directory per platform via ConfigDir.
func SetConfigDirOverride(dir string) {
	configDirOverride = dir
}
