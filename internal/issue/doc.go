// SPDX-License-Identifier: MPL-2.0

// Package issue is seedr's catalog of known failure modes. Each catalog
// entry pairs an error class (unknown item, dependency cycle, merge
// conflict, checksum drift, ...) with Markdown remediation guidance that
// the CLI renders when the corresponding command fails.
//
// The package also provides ActionableError, which carries the failed
// operation, the resource involved, and concrete suggestions alongside the
// underlying error chain.
package issue
