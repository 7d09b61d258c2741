// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/inspiration-station/packager/internal/issue"
)

const (
	// FormatRequirements is a pip requirements file.
	FormatRequirements Format = "requirements"
	// FormatPyProject is a PEP 621 pyproject.toml.
	FormatPyProject Format = "pyproject"

	pyprojectFileName = "pyproject.toml"
)

var (
	// ErrInvalidRequirement is the sentinel error wrapped by ParseError.
	ErrInvalidRequirement = errors.New("invalid requirement")
	// ErrInvalidManifest is returned when a manifest file cannot be decoded at all.
	ErrInvalidManifest = errors.New("invalid manifest")

	// name, optional [extras], then the remainder (specifier).
	requirementPattern = regexp.MustCompile(`^([A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?)\s*(\[[^\]]*\])?\s*(.*)$`)
	namePattern        = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?$`)
	nameSeparators     = regexp.MustCompile(`[-_.]+`)

	vcsPrefixes     = []string{"git+", "hg+", "svn+", "bzr+"}
	archiveSuffixes = []string{".whl", ".zip", ".tar.gz", ".tar.bz2", ".tar.xz", ".tgz", ".tar"}
)

type (
	// Format identifies the manifest file flavour.
	Format string

	// Requirement is one declared package.
	Requirement struct {
		// Name is the distribution name as written. It is empty for a
		// requirement given only by location, unless the location carries
		// an #egg= fragment.
		Name string
		// Extras holds the bracketed extras without brackets ("socks" for requests[socks]).
		Extras []string
		// Specifier is the version constraint, e.g. ">=2.31,<3".
		Specifier string
		// Markers is the PEP 508 environment marker after ';'.
		Markers string
		// URL is the VCS URL, archive URL or local path the requirement is
		// installed from, for "name @ url" and bare location lines.
		URL string
		// Raw is the requirement as written (minus comments).
		Raw string
		// Line is the 1-based line of the requirement in its file (0 for pyproject entries).
		Line int
	}

	// Manifest is the ordered list of requirements declared for the application.
	Manifest struct {
		// Path is the manifest file path.
		Path string
		// Format is the detected file format.
		Format Format
		// Requirements are the declared packages in declaration order.
		Requirements []Requirement
		// Options are pip option lines (-r, -c, --index-url, ...) in a requirements file.
		Options []string
	}

	// ParseError reports a malformed requirement.
	ParseError struct {
		Path string
		Line int
		Text string
		Msg  string
	}
)

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s: %q", e.Path, e.Line, e.Msg, e.Text)
	}
	return fmt.Sprintf("%s: %s: %q", e.Path, e.Msg, e.Text)
}

// Unwrap returns ErrInvalidRequirement for errors.Is() compatibility.
func (e *ParseError) Unwrap() error { return ErrInvalidRequirement }

// DetectFormat returns the manifest format implied by a file name.
func DetectFormat(path string) Format {
	if strings.EqualFold(filepath.Base(path), pyprojectFileName) {
		return FormatPyProject
	}
	return FormatRequirements
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("read dependency manifest").
			WithResource(path).
			WithSuggestion("Run the build from the project root").
			WithSuggestion("Set 'manifest' in packager.cue to your requirements.txt or pyproject.toml").
			Wrap(err).
			BuildError()
	}

	switch DetectFormat(path) {
	case FormatPyProject:
		return ParsePyProject(path, data)
	default:
		return ParseRequirements(path, data)
	}
}

// ParseRequirement parses a single PEP 508 style requirement string. Lines
// that name a location instead of a package (VCS or archive URLs, local
// paths and wheel files) are accepted as written and left for pip to resolve.
func ParseRequirement(raw string) (Requirement, error) {
	text := strings.TrimSpace(raw)
	req := Requirement{Raw: text}

	if isLocation(text) {
		req.URL = text
		if before, after, found := strings.Cut(text, " ;"); found {
			req.URL = strings.TrimSpace(before)
			req.Markers = strings.TrimSpace(after)
		}
		req.Name = eggName(req.URL)
		return req, nil
	}

	spec := text
	if before, after, found := strings.Cut(text, ";"); found {
		spec = strings.TrimSpace(before)
		req.Markers = strings.TrimSpace(after)
	}

	if strings.Contains(spec, " @ ") {
		// Direct reference: name @ url.
		name, url, _ := strings.Cut(spec, " @ ")
		spec = strings.TrimSpace(name)
		req.URL = strings.TrimSpace(url)
		req.Specifier = "@ " + req.URL
	}

	m := requirementPattern.FindStringSubmatch(spec)
	if m == nil {
		return Requirement{}, errors.New("missing package name")
	}
	req.Name = m[1]
	if m[2] != "" {
		for _, extra := range strings.Split(strings.Trim(m[2], "[]"), ",") {
			if extra = strings.TrimSpace(extra); extra != "" {
				req.Extras = append(req.Extras, extra)
			}
		}
	}
	if rest := strings.TrimSpace(m[3]); rest != "" {
		// Older PEP 508 form: name (>=1.0).
		if strings.HasPrefix(rest, "(") && strings.HasSuffix(rest, ")") {
			rest = strings.TrimSpace(rest[1 : len(rest)-1])
		}
		if req.Specifier != "" || !isSpecifier(rest) {
			return Requirement{}, fmt.Errorf("unexpected text after package name: %q", rest)
		}
		req.Specifier = strings.ReplaceAll(rest, " ", "")
	}

	return req, nil
}

// isLocation reports whether text points at a distribution instead of naming one.
func isLocation(text string) bool {
	if strings.Contains(text, " @ ") {
		return false
	}
	target, _, _ := strings.Cut(text, " ")
	lower := strings.ToLower(target)
	switch {
	case strings.Contains(lower, "://"), strings.HasPrefix(lower, "file:"):
		return true
	case strings.HasPrefix(target, "."), strings.HasPrefix(target, "~"), strings.ContainsAny(target, `/\`):
		return true
	}
	for _, prefix := range vcsPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	for _, suffix := range archiveSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

// eggName returns the project named by a "#egg=" fragment, or "".
func eggName(location string) string {
	_, fragment, found := strings.Cut(location, "#")
	if !found {
		return ""
	}
	for _, part := range strings.Split(fragment, "&") {
		if value, ok := strings.CutPrefix(part, "egg="); ok {
			name, _, _ := strings.Cut(value, "[")
			if namePattern.MatchString(name) {
				return name
			}
		}
	}
	return ""
}

// isSpecifier reports whether s is a comma-separated list of version clauses.
func isSpecifier(s string) bool {
	for _, clause := range strings.Split(s, ",") {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			return false
		}
		switch {
		case strings.HasPrefix(clause, "==="),
			strings.HasPrefix(clause, "=="),
			strings.HasPrefix(clause, "!="),
			strings.HasPrefix(clause, "~="),
			strings.HasPrefix(clause, ">="),
			strings.HasPrefix(clause, "<="),
			strings.HasPrefix(clause, ">"),
			strings.HasPrefix(clause, "<"):
		default:
			return false
		}
	}
	return true
}

// NormalizeName applies PEP 503 normalization to a distribution name.
func NormalizeName(name string) string {
	return strings.ToLower(nameSeparators.ReplaceAllString(name, "-"))
}

// Declares reports whether the manifest lists the given distribution.
func (m *Manifest) Declares(name string) bool {
	want := NormalizeName(name)
	for _, req := range m.Requirements {
		if NormalizeName(req.Name) == want {
			return true
		}
	}
	return false
}

// Names returns the declared distribution names in order. A requirement
// known only by its location is listed by that location.
func (m *Manifest) Names() []string {
	names := make([]string, 0, len(m.Requirements))
	for _, req := range m.Requirements {
		if req.Name == "" {
			names = append(names, req.URL)
			continue
		}
		names = append(names, req.Name)
	}
	return names
}

// InstallArgs returns the pip install arguments that install every requirement.
// Requirements files are passed with -r so pip sees options and includes exactly
// as written; pyproject requirements are passed one by one.
func (m *Manifest) InstallArgs() []string {
	if m.Format == FormatRequirements {
		return []string{"-r", m.Path}
	}
	args := make([]string, 0, len(m.Requirements))
	for _, req := range m.Requirements {
		args = append(args, req.Raw)
	}
	return args
}
