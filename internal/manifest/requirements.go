// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"bufio"
	"bytes"
	"strings"
)

// ParseRequirements parses a pip requirements file.
//
// Supported: blank lines, full-line and inline comments ("  # ..."), backslash
// continuations, environment markers and pip option lines starting with '-'.
// Option lines are kept verbatim in Manifest.Options.
func ParseRequirements(path string, data []byte) (*Manifest, error) {
	m := &Manifest{Path: path, Format: FormatRequirements}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	var (
		pending     strings.Builder
		pendingLine int
		lineNo      int
	)

	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}

		if pending.Len() == 0 {
			pendingLine = lineNo
		}
		if strings.HasSuffix(line, `\`) {
			pending.WriteString(strings.TrimSuffix(line, `\`))
			pending.WriteString(" ")
			continue
		}
		pending.WriteString(line)
		logical := stripComment(pending.String())
		pending.Reset()

		if logical == "" {
			continue
		}
		if strings.HasPrefix(logical, "-") {
			m.Options = append(m.Options, logical)
			continue
		}

		if err := m.addRequirement(logical, pendingLine); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if pending.Len() > 0 {
		if logical := stripComment(pending.String()); logical != "" {
			if err := m.addRequirement(logical, pendingLine); err != nil {
				return nil, err
			}
		}
	}

	return m, nil
}

// addRequirement parses one logical requirement line. Per-requirement pip
// options ("--hash=...") are left to pip and not part of the requirement.
func (m *Manifest) addRequirement(logical string, line int) error {
	if i := strings.Index(logical, " --"); i > 0 {
		logical = strings.TrimSpace(logical[:i])
	}
	req, err := ParseRequirement(logical)
	if err != nil {
		return &ParseError{Path: m.Path, Line: line, Text: logical, Msg: err.Error()}
	}
	req.Line = line
	m.Requirements = append(m.Requirements, req)
	return nil
}

// stripComment drops a '#' comment that starts the line or follows whitespace.
// A '#' inside a URL fragment (no preceding space) is kept.
func stripComment(line string) string {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "#") {
		return ""
	}
	for i := 1; i < len(trimmed); i++ {
		if trimmed[i] == '#' && (trimmed[i-1] == ' ' || trimmed[i-1] == '\t') {
			return strings.TrimSpace(trimmed[:i])
		}
	}
	return trimmed
}
