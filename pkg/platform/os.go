// SPDX-License-Identifier: MPL-2.0

package platform

// OS name constants for runtime.GOOS comparisons.
const (
	Windows = "windows"
	Darwin  = "darwin"
	Linux   = "linux"
)

// Platform family constants.
const (
	// FamilyWindows covers every Windows host.
	FamilyWindows Family = "windows"
	// FamilyDarwin covers macOS hosts.
	FamilyDarwin Family = "darwin"
	// FamilyUnix covers Linux and the remaining POSIX hosts.
	FamilyUnix Family = "unix"
)

// Family groups operating systems that share an executable format.
type Family string

// String returns the family name.
func (f Family) String() string { return string(f) }

// FamilyOf returns the platform family for a runtime.GOOS value.
func FamilyOf(goos string) Family {
	switch goos {
	case Windows:
		return FamilyWindows
	case Darwin:
		return FamilyDarwin
	default:
		return FamilyUnix
	}
}
