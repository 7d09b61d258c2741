// SPDX-License-Identifier: MPL-2.0

package bundler

import (
	"path/filepath"

	"github.com/inspiration-station/packager/pkg/platform"
)

const (
	// DefaultModule is the Python module PyInstaller is run as.
	DefaultModule = "PyInstaller"

	stageDirName  = "stage"
	backupDirName = "previous"
)

// Options configure a bundler invocation.
type Options struct {
	// Python is the interpreter used to run the bundler.
	Python string
	// Module is run as "python -m <Module>".
	Module string
	// EntryPoint is the script to bundle, relative to ProjectDir.
	EntryPoint string
	// Name is the logical artifact name.
	Name string

	NoConfirm   bool
	CheckSyntax bool
	ExtraArgs   []string

	// ProjectDir is the directory every relative path is resolved against.
	ProjectDir string
	// DistDir receives the finished artifact.
	DistDir string
	// WorkDir holds PyInstaller's intermediate files, the spec file and the staging dir.
	WorkDir string

	// Format is the artifact format of the host.
	Format platform.ArtifactFormat
}

func (o Options) resolve(path string) string {
	if filepath.IsAbs(path) || o.ProjectDir == "" {
		return path
	}
	return filepath.Join(o.ProjectDir, path)
}

// ArtifactPath is where the finished artifact lives.
func (o Options) ArtifactPath() string {
	return filepath.Join(o.resolve(o.DistDir), o.Format.FileName(o.Name))
}

// EntryPointPath is the resolved entry-point script path.
func (o Options) EntryPointPath() string {
	return o.resolve(o.EntryPoint)
}

// WorkPath is the resolved work directory.
func (o Options) WorkPath() string {
	return o.resolve(o.WorkDir)
}

// StagePath is the directory PyInstaller writes its output to.
func (o Options) StagePath() string {
	return filepath.Join(o.WorkPath(), stageDirName)
}

// SpecPath is the spec file PyInstaller generates.
func (o Options) SpecPath() string {
	return filepath.Join(o.WorkPath(), o.Name+".spec")
}

// BuildPath is PyInstaller's per-artifact intermediate directory.
func (o Options) BuildPath() string {
	return filepath.Join(o.WorkPath(), o.Name)
}

// BackupPath holds the previous artifact while a new one is promoted.
func (o Options) BackupPath() string {
	return filepath.Join(o.WorkPath(), backupDirName)
}

func (o Options) module() string {
	if o.Module == "" {
		return DefaultModule
	}
	return o.Module
}

// Args returns the interpreter arguments that run the bundler. The artifact
// is always a single windowed executable, which is what Inspect expects.
func (o Options) Args() []string {
	args := []string{"-m", o.module(), "--onefile", "--windowed", "--name", o.Name}
	if o.NoConfirm {
		args = append(args, "--noconfirm")
	}
	args = append(args,
		"--distpath", o.StagePath(),
		"--workpath", o.WorkPath(),
		"--specpath", o.WorkPath(),
	)
	args = append(args, o.ExtraArgs...)
	return append(args, o.EntryPoint)
}

// SyntaxCheckArgs returns the interpreter arguments that byte-compile the entry point.
func (o Options) SyntaxCheckArgs() []string {
	return []string{"-m", "py_compile", o.EntryPoint}
}
