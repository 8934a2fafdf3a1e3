// SPDX-License-Identifier: MPL-2.0

// Package registry models the local content registry: versioned, vetted
// configuration items with declared dependencies, environment variables,
// and files. It loads item manifests from a registry directory tree into
// an immutable in-memory catalog that the resolution pipeline consumes.
package registry
