// SPDX-License-Identifier: MPL-2.0

// Command seedr seeds agent workspaces from a configuration registry.
package main

import cmd "seedr-cli/cmd/seedr"

func main() {
	cmd.Execute()
}
