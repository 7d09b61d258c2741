// SPDX-License-Identifier: MPL-2.0

package platform

import "runtime"

// ArtifactFormat describes how a standalone application looks on disk for one
// platform family.
type ArtifactFormat struct {
	// Family is the platform family the format belongs to.
	Family Family
	// Suffix is appended to the logical artifact name ("" for bare executables).
	Suffix string
	// IsBundle reports whether the artifact is a directory (macOS .app) rather
	// than a single file.
	IsBundle bool
}

var formats = map[Family]ArtifactFormat{
	FamilyWindows: {Family: FamilyWindows, Suffix: ".exe"},
	FamilyDarwin:  {Family: FamilyDarwin, Suffix: ".app", IsBundle: true},
	FamilyUnix:    {Family: FamilyUnix},
}

// FormatFor returns the artifact format used on the given runtime.GOOS.
func FormatFor(goos string) ArtifactFormat {
	return formats[FamilyOf(goos)]
}

// HostFormat returns the artifact format of the running host.
func HostFormat() ArtifactFormat {
	return FormatFor(runtime.GOOS)
}

// FileName returns the on-disk name of an artifact with the given logical name.
func (f ArtifactFormat) FileName(name string) string {
	return name + f.Suffix
}

// Kind returns a short human-readable description of the format.
func (f ArtifactFormat) Kind() string {
	switch {
	case f.IsBundle:
		return "application bundle"
	case f.Suffix != "":
		return f.Suffix + " executable"
	default:
		return "executable"
	}
}
