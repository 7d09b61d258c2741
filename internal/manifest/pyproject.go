// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
)

type pyProject struct {
	Project struct {
		Name         string   `toml:"name"`
		Dependencies []string `toml:"dependencies"`
	} `toml:"project"`
}

// ParsePyProject reads [project].dependencies from a pyproject.toml.
func ParsePyProject(path string, data []byte) (*Manifest, error) {
	var doc pyProject
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", path, ErrInvalidManifest, err)
	}

	m := &Manifest{Path: path, Format: FormatPyProject}
	for _, raw := range doc.Project.Dependencies {
		req, err := ParseRequirement(raw)
		if err != nil {
			return nil, &ParseError{Path: path, Text: raw, Msg: err.Error()}
		}
		m.Requirements = append(m.Requirements, req)
	}
	return m, nil
}
