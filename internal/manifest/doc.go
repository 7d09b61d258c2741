// SPDX-License-Identifier: MPL-2.0

// Package manifest reads the dependency manifest of the application being
// packaged.
//
// Two formats are understood: pip requirements files (requirements.txt and
// friends) and the [project].dependencies table of a pyproject.toml. The
// result is an ordered list of requirements that the installer hands to pip.
package manifest
