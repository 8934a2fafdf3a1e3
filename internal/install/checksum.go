// SPDX-License-Identifier: MPL-2.0

package install

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// HashPrefix tags every content hash this tool records, so the lock file
// format can evolve to other algorithms without ambiguity.
const HashPrefix = "sha256:"

// ErrChecksumMismatch indicates a computed hash does not match the expected hash.
var ErrChecksumMismatch = errors.New("checksum mismatch")

// ChecksumError provides details about a checksum verification failure.
// It wraps ErrChecksumMismatch so callers can use errors.Is for classification.
type ChecksumError struct {
	Path     string
	Expected string
	Got      string
}

// Error returns a human-readable description of the checksum mismatch,
// showing both expected and actual hash values for debugging.
func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum verification failed for %s\nExpected: %s\nGot:      %s", e.Path, e.Expected, e.Got)
}

// Unwrap returns ErrChecksumMismatch so callers can use errors.Is.
func (e *ChecksumError) Unwrap() error { return ErrChecksumMismatch }

// ComputeFileHash computes the content hash of the file at path in the
// tool's canonical "sha256:<64 hex chars>" form. It streams the file
// through the hash function to avoid loading it into memory.
func ComputeFileHash(path string) (_ string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		// Read-only file handle; close errors are exotic (NFS edge cases).
		_ = f.Close()
	}()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing file %s: %w", path, err)
	}

	return HashPrefix + hex.EncodeToString(h.Sum(nil)), nil
}

// ComputeHash returns the canonical content hash of an in-memory document.
func ComputeHash(data []byte) string {
	sum := sha256.Sum256(data)
	return HashPrefix + hex.EncodeToString(sum[:])
}

// VerifyFile computes the hash of the file at path and compares it with
// expected. Returns nil if they match, or a *ChecksumError wrapping
// ErrChecksumMismatch if they differ.
func VerifyFile(path, expected string) error {
	got, err := ComputeFileHash(path)
	if err != nil {
		return err
	}
	if got != expected {
		return &ChecksumError{Path: path, Expected: expected, Got: got}
	}
	return nil
}

// ValidHash checks whether s is a canonical "sha256:<64 hex chars>" hash.
func ValidHash(s string) bool {
	hexPart, ok := strings.CutPrefix(s, HashPrefix)
	if !ok || len(hexPart) != 64 {
		return false
	}
	for _, c := range hexPart {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
