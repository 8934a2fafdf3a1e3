// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidEnvVarName is the sentinel error wrapped by InvalidEnvVarNameError.
var ErrInvalidEnvVarName = errors.New("invalid environment variable name")

// envVarNamePattern matches conventional environment variable names:
// uppercase letters, digits, and underscores, not starting with a digit.
var envVarNamePattern = regexp.MustCompile(`^[A-Z_][A-Z0-9_]*$`)

type (
	// EnvVarName is the name of an environment variable a registry item
	// requires or documents.
	EnvVarName string

	// InvalidEnvVarNameError is returned when an EnvVarName does not match
	// the required pattern.
	InvalidEnvVarNameError struct {
		Value EnvVarName
	}
)

// Error implements the error interface.
func (e *InvalidEnvVarNameError) Error() string {
	return fmt.Sprintf("invalid environment variable name %q (must match [A-Z_][A-Z0-9_]*)", e.Value)
}

// Unwrap returns ErrInvalidEnvVarName for errors.Is() compatibility.
func (e *InvalidEnvVarNameError) Unwrap() error { return ErrInvalidEnvVarName }

// Validate returns an error if the EnvVarName does not match [A-Z_][A-Z0-9_]*.
func (n EnvVarName) Validate() error {
	if !envVarNamePattern.MatchString(string(n)) {
		return &InvalidEnvVarNameError{Value: n}
	}
	return nil
}

// String returns the string representation of the EnvVarName.
func (n EnvVarName) String() string { return string(n) }
