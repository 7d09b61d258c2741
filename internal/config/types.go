// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

const (
	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"

	// DefaultArtifactName is the artifact name used when none is configured.
	DefaultArtifactName ArtifactName = "InspirationStation"
)

var (
	// ErrInvalidArtifactName is returned when an ArtifactName value cannot name a file.
	ErrInvalidArtifactName = errors.New("invalid artifact name")
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidRelPath is returned when a RelPath value is empty or whitespace-only.
	ErrInvalidRelPath = errors.New("invalid path")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ArtifactName is the logical name of the produced executable, without
	// any platform suffix.
	ArtifactName string

	// InvalidArtifactNameError is returned when an ArtifactName is blank,
	// contains a path separator or is a relative path element.
	// It wraps ErrInvalidArtifactName for errors.Is() compatibility.
	InvalidArtifactNameError struct {
		Value ArtifactName
	}

	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	// It wraps ErrInvalidColorScheme for errors.Is() compatibility.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// RelPath is a filesystem path, usually relative to the project directory.
	RelPath string

	// InvalidRelPathError is returned when a RelPath is empty or whitespace-only.
	InvalidRelPathError struct {
		Field string
		Value RelPath
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the build configuration.
	Config struct {
		// ProjectDir is the root holding the manifest and entry point.
		ProjectDir RelPath `json:"project_dir" mapstructure:"project_dir"`
		// EntryPoint is the Python script handed to the bundler.
		EntryPoint RelPath `json:"entry_point" mapstructure:"entry_point"`
		// ArtifactName is the executable's name without platform suffix.
		ArtifactName ArtifactName `json:"artifact_name" mapstructure:"artifact_name"`
		// DistDir receives the finished artifact.
		DistDir RelPath `json:"dist_dir" mapstructure:"dist_dir"`
		// WorkDir holds bundler intermediates and the staging area.
		WorkDir RelPath `json:"work_dir" mapstructure:"work_dir"`
		// Manifest is the dependency manifest file.
		Manifest RelPath `json:"manifest" mapstructure:"manifest"`
		// Python is the interpreter to use; empty means auto-detect.
		Python string `json:"python" mapstructure:"python"`
		// Bundler configures the bundler invocation
		Bundler BundlerConfig `json:"bundler" mapstructure:"bundler"`
		// Install configures the dependency installer
		Install InstallConfig `json:"install" mapstructure:"install"`
		// UI configures the user interface
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}

	// BundlerConfig configures the bundler invocation.
	BundlerConfig struct {
		// Package is installed with the manifest when the manifest does not
		// declare it already. Empty disables the extra install.
		Package string `json:"package" mapstructure:"package"`
		// Module is run as python -m <module>.
		Module      string   `json:"module" mapstructure:"module"`
		NoConfirm   bool     `json:"no_confirm" mapstructure:"no_confirm"`
		CheckSyntax bool     `json:"check_syntax" mapstructure:"check_syntax"`
		ExtraArgs   []string `json:"extra_args" mapstructure:"extra_args"`
	}

	// InstallConfig configures the dependency installer.
	InstallConfig struct {
		UpgradePip bool     `json:"upgrade_pip" mapstructure:"upgrade_pip"`
		ExtraArgs  []string `json:"extra_args" mapstructure:"extra_args"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// Verbose enables debug logging and full error chains
		Verbose bool `json:"verbose" mapstructure:"verbose"`
		// ColorScheme sets the color scheme
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
	}
)

// String returns the string representation of the ArtifactName.
func (n ArtifactName) String() string { return string(n) }

// IsValid returns whether the ArtifactName can be used as a file name on every
// supported platform, and a list of validation errors if it cannot.
func (n ArtifactName) IsValid() (bool, []error) {
	s := string(n)
	if strings.TrimSpace(s) == "" || s == "." || s == ".." || strings.ContainsAny(s, `/\:`) {
		return false, []error{&InvalidArtifactNameError{Value: n}}
	}
	return true, nil
}

// Error implements the error interface for InvalidArtifactNameError.
func (e *InvalidArtifactNameError) Error() string {
	return fmt.Sprintf("invalid artifact name %q (must be non-empty and contain no path separators)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidArtifactNameError) Unwrap() error { return ErrInvalidArtifactName }

// String returns the string representation of the ColorScheme.
func (cs ColorScheme) String() string { return string(cs) }

// IsValid returns whether the ColorScheme is one of the defined color schemes,
// and a list of validation errors if it is not.
func (cs ColorScheme) IsValid() (bool, []error) {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: cs}}
	}
}

// Error implements the error interface for InvalidColorSchemeError.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error { return ErrInvalidColorScheme }

// String returns the string representation of the RelPath.
func (p RelPath) String() string { return string(p) }

// Resolve joins a relative path onto base. Absolute paths are returned cleaned.
func (p RelPath) Resolve(base string) string {
	if filepath.IsAbs(string(p)) {
		return filepath.Clean(string(p))
	}
	return filepath.Join(base, string(p))
}

func (p RelPath) validate(field string) []error {
	if strings.TrimSpace(string(p)) == "" {
		return []error{&InvalidRelPathError{Field: field, Value: p}}
	}
	return nil
}

// Error implements the error interface for InvalidRelPathError.
func (e *InvalidRelPathError) Error() string {
	return fmt.Sprintf("%s: invalid path %q (must not be empty)", e.Field, e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidRelPathError) Unwrap() error { return ErrInvalidRelPath }

// IsValid returns whether the Config has valid fields. It delegates to the
// typed fields' own validation and also checks the directory layout: the work
// directory must not be or contain the project, and neither of dist_dir and
// work_dir may be or contain the other.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	errs = append(errs, c.ProjectDir.validate("project_dir")...)
	errs = append(errs, c.EntryPoint.validate("entry_point")...)
	errs = append(errs, c.DistDir.validate("dist_dir")...)
	errs = append(errs, c.WorkDir.validate("work_dir")...)
	errs = append(errs, c.Manifest.validate("manifest")...)
	if valid, fieldErrs := c.ArtifactName.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.UI.ColorScheme.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if strings.TrimSpace(c.Bundler.Module) == "" {
		errs = append(errs, errors.New("bundler.module: must not be empty"))
	}
	if len(errs) == 0 {
		errs = append(errs, c.layoutErrors()...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

func (c Config) layoutErrors() []error {
	project, err := filepath.Abs(string(c.ProjectDir))
	if err != nil {
		return []error{fmt.Errorf("project_dir: %w", err)}
	}
	work := c.WorkDir.Resolve(project)
	dist := c.DistDir.Resolve(project)

	var errs []error
	if within(work, project) {
		errs = append(errs, fmt.Errorf("work_dir %q must not be or contain project_dir %q", c.WorkDir, project))
	}
	switch {
	case within(work, dist):
		errs = append(errs, fmt.Errorf("dist_dir %q must not be or lie inside work_dir %q", c.DistDir, c.WorkDir))
	case within(dist, work):
		errs = append(errs, fmt.Errorf("work_dir %q must not lie inside dist_dir %q", c.WorkDir, c.DistDir))
	}
	return errs
}

// within reports whether path is parent or lies below it.
func within(parent, path string) bool {
	rel, err := filepath.Rel(parent, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, 0, len(e.FieldErrors))
	for _, err := range e.FieldErrors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// ProjectPath resolves a project-relative path against ProjectDir.
func (c *Config) ProjectPath(p RelPath) string {
	return p.Resolve(string(c.ProjectDir))
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		ProjectDir:   ".",
		EntryPoint:   "app.py",
		ArtifactName: DefaultArtifactName,
		DistDir:      "dist",
		WorkDir:      "build",
		Manifest:     "requirements.txt",
		Python:       "", // auto-detect
		Bundler: BundlerConfig{
			Package:     "pyinstaller",
			Module:      "PyInstaller",
			NoConfirm:   true,
			CheckSyntax: true,
			ExtraArgs:   []string{},
		},
		Install: InstallConfig{
			UpgradePip: false,
			ExtraArgs:  []string{},
		},
		UI: UIConfig{
			Verbose:     false,
			ColorScheme: ColorSchemeAuto,
		},
	}
}
