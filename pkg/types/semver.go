// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidSemVer is the sentinel error wrapped by InvalidSemVerError.
var ErrInvalidSemVer = errors.New("invalid semantic version")

// semVerPattern matches exact MAJOR.MINOR.PATCH versions. Registry items
// declare exact versions only; there is no range or constraint syntax.
var semVerPattern = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)$`)

type (
	// SemVer is an exact semantic version string (MAJOR.MINOR.PATCH).
	SemVer string

	// InvalidSemVerError is returned when a SemVer value is not an exact
	// MAJOR.MINOR.PATCH version.
	InvalidSemVerError struct {
		Value SemVer
	}
)

// Error implements the error interface.
func (e *InvalidSemVerError) Error() string {
	return fmt.Sprintf("invalid semantic version %q (must be MAJOR.MINOR.PATCH)", e.Value)
}

// Unwrap returns ErrInvalidSemVer for errors.Is() compatibility.
func (e *InvalidSemVerError) Unwrap() error { return ErrInvalidSemVer }

// Validate returns an error if the SemVer is not an exact MAJOR.MINOR.PATCH version.
func (v SemVer) Validate() error {
	if !semVerPattern.MatchString(string(v)) {
		return &InvalidSemVerError{Value: v}
	}
	return nil
}

// Compare returns -1, 0, or +1 if v is older than, equal to, or newer than o.
// Both versions must be valid; invalid versions compare lexically as a
// last resort so the result is still deterministic.
func (v SemVer) Compare(o SemVer) int {
	av, aok := v.parts()
	bv, bok := o.parts()
	if !aok || !bok {
		return strings.Compare(string(v), string(o))
	}
	for i := range 3 {
		switch {
		case av[i] < bv[i]:
			return -1
		case av[i] > bv[i]:
			return 1
		}
	}
	return 0
}

// String returns the string representation of the SemVer.
func (v SemVer) String() string { return string(v) }

// parts decomposes the version into its three numeric components.
func (v SemVer) parts() ([3]int, bool) {
	m := semVerPattern.FindStringSubmatch(string(v))
	if m == nil {
		return [3]int{}, false
	}
	var out [3]int
	for i := range 3 {
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return [3]int{}, false
		}
		out[i] = n
	}
	return out, true
}
