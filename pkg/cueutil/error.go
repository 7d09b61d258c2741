// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue/errors"
)

// DefaultMaxFileSize caps user-supplied CUE files (5MB).
const DefaultMaxFileSize int64 = 5 * 1024 * 1024

type (
	// FieldError is one schema violation at a JSON-style path.
	FieldError struct {
		// Path is e.g. "bundler.extra_args[0]"; empty for file-level errors.
		Path    string
		Message string
	}

	// ValidationError lists the schema violations found in one CUE file.
	ValidationError struct {
		File   string
		Fields []FieldError
		cause  error
	}
)

// Error renders "<file>: <path>: <message>", one line per violation.
func (e *ValidationError) Error() string {
	lines := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		if f.Path == "" {
			lines[i] = f.Message
		} else {
			lines[i] = f.Path + ": " + f.Message
		}
	}
	if len(lines) == 1 {
		return e.File + ": " + lines[0]
	}
	return e.File + ": validation failed:\n  " + strings.Join(lines, "\n  ")
}

// Unwrap returns the original CUE error.
func (e *ValidationError) Unwrap() error { return e.cause }

// Paths returns the top-level keys of the offending fields, e.g. "bundler"
// for "bundler.one_file", without duplicates.
func (e *ValidationError) Paths() []string {
	var keys []string
	seen := make(map[string]bool)
	for _, f := range e.Fields {
		key, _, _ := strings.Cut(f.Path, ".")
		key, _, _ = strings.Cut(key, "[")
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}
	return keys
}

// FormatError converts a CUE error into a *ValidationError for filePath.
// Errors that carry no CUE detail are wrapped with the file name.
//
//	packager.cue: bundler.one_file: conflicting values true and "yes"
func FormatError(err error, filePath string) error {
	if err == nil {
		return nil
	}

	cueErrors := errors.Errors(err)
	if len(cueErrors) == 0 {
		return fmt.Errorf("%s: %w", filePath, err)
	}

	verr := &ValidationError{File: filePath, cause: err}
	for _, e := range cueErrors {
		path := formatPath(errors.Path(e))
		msg := e.Error()
		// CUE sometimes repeats the path inside the message.
		if path != "" && strings.HasPrefix(msg, path) {
			msg = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(msg, path), ":"))
		}
		verr.Fields = append(verr.Fields, FieldError{Path: path, Message: msg})
	}
	return verr
}

// formatPath converts a CUE error path (["bundler", "extra_args", "0"]) to
// JSON-path notation ("bundler.extra_args[0]").
func formatPath(path []string) string {
	var result strings.Builder
	for i, part := range path {
		switch {
		case i > 0 && isIndex(part):
			result.WriteString("[" + part + "]")
		case i > 0:
			result.WriteString("." + part)
		default:
			result.WriteString(part)
		}
	}
	return result.String()
}

func isIndex(part string) bool {
	if part == "" {
		return false
	}
	for _, c := range part {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// CheckFileSize rejects data larger than maxSize.
func CheckFileSize(data []byte, maxSize int64, filename string) error {
	if size := int64(len(data)); size > maxSize {
		return fmt.Errorf("%s: %d bytes exceeds the %d byte limit", filename, size, maxSize)
	}
	return nil
}
