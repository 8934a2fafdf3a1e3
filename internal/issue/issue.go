// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	RegistryLoadFailedId Id = iota + 1
	UnknownItemId
	DependencyCycleId
	MergeConflictId
	PreexistingTargetId
	StagingFailedId
	LockFileInvalidId
	VersionMismatchId
	ChecksumMismatchId
	ConfigLoadFailedId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // must never be empty, because we need to have docs about all issue types
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n"
		extraMd += "## See also: "
		for _, link := range i.docLinks {
			extraMd += "- [" + string(link) + "]"
		}
		for _, link := range i.extLinks {
			extraMd += "- [" + string(link) + "]"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	registryLoadFailedIssue = &Issue{
		id: RegistryLoadFailedId,
		mdMsg: `
# Failed to load the registry!

The registry directory could not be read, or one of its item manifests is
malformed.

## Registry layout:
~~~
<registry>/
  <item-name>/
    item.yaml
  shared/          # asset trees without a manifest are ignored
~~~

## Things you can try:
- Check the error message above for the offending manifest path
- Validate the whole registry:
~~~
$ seedr validate
~~~

- Point seedr at a different registry:
~~~
$ seedr --registry /path/to/registry list
~~~

## Example item.yaml:
~~~yaml
name: research-agent
version: 1.2.0
kind: subagent
description: Deep research sub-agent
dependencies:
  - base-context
files:
  - dest: .claude/agents/research.md
    source: research-agent/research.md
~~~`,
	}

	unknownItemIssue = &Issue{
		id: UnknownItemId,
		mdMsg: `
# Unknown item!

The item you selected, or a dependency it declares, does not exist in the
registry.

## Things you can try:
- List all available items:
~~~
$ seedr list
~~~

- Check for typos in the item name (names are lowercase, digits, hyphens)
- If a dependency is unknown, fix the depending item's manifest`,
	}

	dependencyCycleIssue = &Issue{
		id: DependencyCycleId,
		mdMsg: `
# Dependency cycle detected!

The selected items' dependencies form a cycle, so no installation order
exists.

## Example of a cycle:
~~~yaml
# a/item.yaml
dependencies: [b]
# b/item.yaml
dependencies: [a]   # cycle: a -> b -> a
~~~

## Things you can try:
- The error message shows the exact cycle path
- Remove one edge of the cycle in the registry manifests
- Extract the shared part into a third item both can depend on`,
	}

	mergeConflictIssue = &Issue{
		id: MergeConflictId,
		mdMsg: `
# Configuration conflict!

Two selected mcp-server items define different values at the same key path
of the merged server configuration.

## Things you can try:
- The report lists every conflicting path with both items and both values
- Deselect one of the conflicting items
- Fix the fragments in the registry so they agree
- Override deliberately, keeping the later item's value:
~~~
$ seedr init --item a --item b --force
~~~`,
	}

	preexistingTargetIssue = &Issue{
		id: PreexistingTargetId,
		mdMsg: `
# Target already contains installed output!

The target directory already has files or directories this installation
would create. seedr never merges on top of a previous installation.

## Things you can try:
- Inspect what is already there (a previous run's output, usually)
- Remove the listed paths and the lock file, then retry
- Install into a clean directory:
~~~
$ seedr init --target /path/to/fresh/dir
~~~`,
	}

	stagingFailedIssue = &Issue{
		id: StagingFailedId,
		mdMsg: `
# Installation failed while staging!

A filesystem error interrupted the installation. The staging area has been
rolled back and the target directory was left untouched.

## Common causes:
- A registry source file disappeared mid-run
- Disk full or quota exceeded
- Missing write permission on the target's parent directory

## Things you can try:
- Check the error message above for the failing path
- Validate the registry before retrying:
~~~
$ seedr validate
~~~`,
	}

	lockFileInvalidIssue = &Issue{
		id: LockFileInvalidId,
		mdMsg: `
# Lock file unreadable!

The lock file is missing, malformed, or uses a format version this build
does not support.

## Things you can try:
- Check the path passed via --lock (default: seedr.lock.json in the target)
- If the format version is newer, upgrade seedr
- Re-create the lock file with a fresh installation:
~~~
$ seedr init --item <name> --target /path/to/fresh/dir
~~~`,
	}

	versionMismatchIssue = &Issue{
		id: VersionMismatchId,
		mdMsg: `
# Registry drifted from the lock file!

An item's version in the registry no longer matches the version recorded in
the lock file, so the installation cannot be reproduced exactly.

## Things you can try:
- The error says whether the registry is newer or older than the lock
- Pin the registry to the revision the lock file was created from
- Accept the new versions by re-initializing:
~~~
$ seedr init --item <name> --target /path/to/fresh/dir
~~~`,
	}

	checksumMismatchIssue = &Issue{
		id: ChecksumMismatchId,
		mdMsg: `
# Content hash mismatch!

A file's content does not match the hash recorded in the lock file, even
though the item versions match. Registry content changed without a version
bump, or installed files were modified afterwards.

## Things you can try:
- Compare the expected and actual hashes in the error message
- Restore the registry to the revision the lock file was created from
- Bump the item's version if the content change was intentional`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

Could not load the seedr configuration file.

## Configuration file locations:
- Linux: ~/.config/seedr/config.cue
- macOS: ~/Library/Application Support/seedr/config.cue
- Windows: %APPDATA%\seedr\config.cue

## Things you can try:
- Check the configuration syntax
- Remove the config file to use defaults:
~~~
$ rm ~/.config/seedr/config.cue
~~~

## Example configuration:
~~~cue
registry_path: "/home/user/seedr-registry"

ui: {
  color_scheme: "auto"
  verbose: false
}
~~~`,
	}

	issues = map[Id]*Issue{
		registryLoadFailedIssue.Id(): registryLoadFailedIssue,
		unknownItemIssue.Id():        unknownItemIssue,
		dependencyCycleIssue.Id():    dependencyCycleIssue,
		mergeConflictIssue.Id():      mergeConflictIssue,
		preexistingTargetIssue.Id():  preexistingTargetIssue,
		stagingFailedIssue.Id():      stagingFailedIssue,
		lockFileInvalidIssue.Id():    lockFileInvalidIssue,
		versionMismatchIssue.Id():    versionMismatchIssue,
		checksumMismatchIssue.Id():   checksumMismatchIssue,
		configLoadFailedIssue.Id():   configLoadFailedIssue,
	}
)

func Values() []*Issue {
	return maps.Values(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}
