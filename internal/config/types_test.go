// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"testing"
)

func TestColorScheme_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		scheme ColorScheme
		want   bool
	}{
		{name: "auto", scheme: ColorSchemeAuto, want: true},
		{name: "dark", scheme: ColorSchemeDark, want: true},
		{name: "light", scheme: ColorSchemeLight, want: true},
		{name: "empty", scheme: ColorScheme(""), want: false},
		{name: "unknown", scheme: ColorScheme("sepia"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			valid, errs := tt.scheme.IsValid()
			if valid != tt.want {
				t.Errorf("IsValid() = %v, want %v", valid, tt.want)
			}
			if !tt.want {
				if len(errs) != 1 {
					t.Fatalf("expected 1 error, got %d", len(errs))
				}
				if !errors.Is(errs[0], ErrInvalidColorScheme) {
					t.Errorf("error %v does not match ErrInvalidColorScheme", errs[0])
				}
			}
		})
	}
}

func TestRegistryDirPath_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path RegistryDirPath
		want bool
	}{
		{name: "zero value is valid", path: "", want: true},
		{name: "relative path", path: "registry", want: true},
		{name: "absolute path", path: "/srv/seedr/registry", want: true},
		{name: "whitespace only", path: "   ", want: false},
		{name: "tab only", path: "\t", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			valid, errs := tt.path.IsValid()
			if valid != tt.want {
				t.Errorf("IsValid() = %v, want %v", valid, tt.want)
			}
			if !tt.want && !errors.Is(errs[0], ErrInvalidRegistryDirPath) {
				t.Errorf("error %v does not match ErrInvalidRegistryDirPath", errs[0])
			}
		})
	}
}

func TestConfig_IsValid_CollectsFieldErrors(t *testing.T) {
	t.Parallel()

	cfg := Config{
		RegistryPath: "  ",
		UI:           UIConfig{ColorScheme: "sepia"},
	}

	valid, errs := cfg.IsValid()
	if valid {
		t.Fatal("expected invalid config")
	}
	if len(errs) != 1 {
		t.Fatalf("expected 1 wrapping error, got %d", len(errs))
	}
	if !errors.Is(errs[0], ErrInvalidConfig) {
		t.Errorf("error %v does not match ErrInvalidConfig", errs[0])
	}

	var cfgErr *InvalidConfigError
	if !errors.As(errs[0], &cfgErr) {
		t.Fatalf("expected *InvalidConfigError, got %T", errs[0])
	}
	if len(cfgErr.FieldErrors) != 2 {
		t.Errorf("expected 2 field errors, got %d", len(cfgErr.FieldErrors))
	}
}

func TestDefaultConfig_IsValid(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if valid, errs := cfg.IsValid(); !valid {
		t.Fatalf("default config invalid: %v", errs)
	}
	if cfg.UI.ColorScheme != ColorSchemeAuto {
		t.Errorf("default color scheme = %q, want %q", cfg.UI.ColorScheme, ColorSchemeAuto)
	}
	if cfg.RegistryPath != "" {
		t.Errorf("default registry path = %q, want empty", cfg.RegistryPath)
	}
}
