// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidItemName is the sentinel error wrapped by InvalidItemNameError.
var ErrInvalidItemName = errors.New("invalid item name")

// itemNamePattern matches valid registry item names: lowercase letters,
// digits, and hyphens only.
var itemNamePattern = regexp.MustCompile(`^[a-z0-9-]+$`)

type (
	// ItemName identifies a registry item. Names are unique within a
	// registry and must match [a-z0-9-]+. The zero value ("") is invalid.
	ItemName string

	// InvalidItemNameError is returned when an ItemName does not match
	// the required pattern.
	InvalidItemNameError struct {
		Value ItemName
	}
)

// Error implements the error interface.
func (e *InvalidItemNameError) Error() string {
	return fmt.Sprintf("invalid item name %q (must match [a-z0-9-]+)", e.Value)
}

// Unwrap returns ErrInvalidItemName for errors.Is() compatibility.
func (e *InvalidItemNameError) Unwrap() error { return ErrInvalidItemName }

// Validate returns an error if the ItemName is empty or contains
// characters outside [a-z0-9-].
func (n ItemName) Validate() error {
	if !itemNamePattern.MatchString(string(n)) {
		return &InvalidItemNameError{Value: n}
	}
	return nil
}

// String returns the string representation of the ItemName.
func (n ItemName) String() string { return string(n) }
