// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/inspiration-station/packager/internal/issue"
	"github.com/inspiration-station/packager/pkg/cueutil"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "packager"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "packager"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment variable overrides (PACKAGER_PYTHON, ...).
	EnvPrefix = "PACKAGER"
)

//go:embed config_schema.cue
var configSchema string

// fieldHints explains the constraint behind each top-level key of #Config.
var fieldHints = map[string]string{
	"entry_point":   "entry_point must name a .py or .pyw script",
	"artifact_name": "artifact_name must start with a letter or digit and contain only letters, digits, '.', '_', '-' and spaces",
	"bundler":       "bundler accepts package, module, no_confirm, check_syntax and extra_args",
	"install":       "install accepts upgrade_pip and extra_args",
	"ui":            "ui.color_scheme must be \"auto\", \"dark\" or \"light\"",
}

// FilePath returns the config file that a load with opts reads, and whether
// that file exists. An explicit ConfigFilePath always wins.
func FilePath(opts LoadOptions) (string, bool) {
	if opts.ConfigFilePath != "" {
		return opts.ConfigFilePath, fileExists(opts.ConfigFilePath)
	}
	dir := opts.ProjectDir
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	return path, fileExists(path)
}

// loadWithOptions performs option-driven config loading. It returns the
// config and the path of the file that was read ("" when only defaults apply).
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults
	defaults := DefaultConfig()
	v.SetDefault("project_dir", defaults.ProjectDir)
	v.SetDefault("entry_point", defaults.EntryPoint)
	v.SetDefault("artifact_name", defaults.ArtifactName)
	v.SetDefault("dist_dir", defaults.DistDir)
	v.SetDefault("work_dir", defaults.WorkDir)
	v.SetDefault("manifest", defaults.Manifest)
	v.SetDefault("python", defaults.Python)
	v.SetDefault("bundler.package", defaults.Bundler.Package)
	v.SetDefault("bundler.module", defaults.Bundler.Module)
	v.SetDefault("bundler.no_confirm", defaults.Bundler.NoConfirm)
	v.SetDefault("bundler.check_syntax", defaults.Bundler.CheckSyntax)
	v.SetDefault("bundler.extra_args", defaults.Bundler.ExtraArgs)
	v.SetDefault("install.upgrade_pip", defaults.Install.UpgradePip)
	v.SetDefault("install.extra_args", defaults.Install.ExtraArgs)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)
	v.SetDefault("ui.color_scheme", defaults.UI.ColorScheme)

	path, exists := FilePath(opts)
	resolvedPath := ""

	switch {
	case opts.ConfigFilePath != "" && !exists:
		// An explicit --config must point at a real file.
		return nil, "", issue.NewErrorContext().
			WithOperation("load configuration").
			WithResource(path).
			WithSuggestion("Verify the file path is correct").
			WithSuggestion("Check that the file exists and is readable").
			WithSuggestion("Run 'packager config init' to create a packager.cue").
			Wrap(fmt.Errorf("config file not found: %s", path)).
			BuildError()
	case exists:
		if err := loadCUEIntoViper(v, path); err != nil {
			ec := issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(path).
				WithSuggestion("Check that the file contains valid CUE syntax")
			var verr *cueutil.ValidationError
			if errors.As(err, &verr) {
				for _, key := range verr.Paths() {
					if hint, ok := fieldHints[key]; ok {
						ec.WithSuggestion(hint)
					}
				}
			}
			return nil, "", ec.
				WithSuggestion("Run 'packager config init --force' to regenerate a valid packager.cue").
				Wrap(err).
				BuildError()
		}
		resolvedPath = path
	}
	// If no config file found, use defaults (no error)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	if err := resolveProjectDir(&cfg, opts, resolvedPath); err != nil {
		return nil, "", err
	}

	if valid, errs := cfg.IsValid(); !valid {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithSuggestion("Keep dist_dir and work_dir apart, with neither inside the other").
			WithSuggestion("Point work_dir at a subdirectory of the project, such as \"build\"").
			WithSuggestion("Use a plain file name for artifact_name, without slashes").
			Wrap(errs[0]).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

// resolveProjectDir makes ProjectDir absolute. A relative project_dir taken
// from a config file is relative to that file; otherwise it is relative to
// opts.ProjectDir (or the working directory).
func resolveProjectDir(cfg *Config, opts LoadOptions, configPath string) error {
	base := opts.ProjectDir
	if configPath != "" {
		base = filepath.Dir(configPath)
	}
	if base == "" {
		base = "."
	}
	abs, err := filepath.Abs(cfg.ProjectDir.Resolve(base))
	if err != nil {
		return fmt.Errorf("failed to resolve project directory: %w", err)
	}
	cfg.ProjectDir = RelPath(abs)
	return nil
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// and merges its contents into Viper.
//
// Note: This uses manual CUE parsing because:
// 1. Config decodes to map[string]any (not a struct) for Viper integration
// 2. Uses Concrete(false) because config fields are optional
// 3. Needs to merge into Viper's config map, not return a struct
func loadCUEIntoViper(v *viper.Viper, path string) error {
	// Read CUE file
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, path); err != nil {
		return err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return cueutil.FormatError(userValue.Err(), path)
	}

	// Unify with schema to validate against #Config definition
	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return cueutil.FormatError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return cueutil.FormatError(err, path)
	}

	// Merge into Viper (preserves defaults, allows env overrides)
	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// WriteDefault writes a default packager.cue to path. It refuses to
// overwrite an existing file unless force is set.
func WriteDefault(path string, force bool) error {
	if !force && fileExists(path) {
		return fmt.Errorf("config file already exists: %s", path)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateCUE generates a CUE representation of the configuration
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// packager build configuration\n")
	sb.WriteString("// Relative paths are resolved against project_dir.\n\n")

	fmt.Fprintf(&sb, "project_dir: %q\n", cfg.ProjectDir)
	fmt.Fprintf(&sb, "entry_point: %q\n", cfg.EntryPoint)
	fmt.Fprintf(&sb, "artifact_name: %q\n", cfg.ArtifactName)
	fmt.Fprintf(&sb, "dist_dir: %q\n", cfg.DistDir)
	fmt.Fprintf(&sb, "work_dir: %q\n", cfg.WorkDir)
	fmt.Fprintf(&sb, "manifest: %q\n", cfg.Manifest)
	fmt.Fprintf(&sb, "python: %q\n", cfg.Python)

	sb.WriteString("\nbundler: {\n")
	fmt.Fprintf(&sb, "\tpackage: %q\n", cfg.Bundler.Package)
	fmt.Fprintf(&sb, "\tmodule: %q\n", cfg.Bundler.Module)
	fmt.Fprintf(&sb, "\tno_confirm: %v\n", cfg.Bundler.NoConfirm)
	fmt.Fprintf(&sb, "\tcheck_syntax: %v\n", cfg.Bundler.CheckSyntax)
	fmt.Fprintf(&sb, "\textra_args: %s\n", cueList(cfg.Bundler.ExtraArgs))
	sb.WriteString("}\n")

	sb.WriteString("\ninstall: {\n")
	fmt.Fprintf(&sb, "\tupgrade_pip: %v\n", cfg.Install.UpgradePip)
	fmt.Fprintf(&sb, "\textra_args: %s\n", cueList(cfg.Install.ExtraArgs))
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tverbose: %v\n", cfg.UI.Verbose)
	fmt.Fprintf(&sb, "\tcolor_scheme: %q\n", cfg.UI.ColorScheme)
	sb.WriteString("}\n")

	return sb.String()
}

func cueList(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = fmt.Sprintf("%q", item)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
