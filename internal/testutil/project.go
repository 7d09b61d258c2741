// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"path/filepath"
	"testing"
)

const (
	// EntryPoint is the entry-point script name WriteProject creates.
	EntryPoint = "app.py"
	// Requirements is the manifest name WriteProject creates.
	Requirements = "requirements.txt"
)

// WriteProject creates a minimal GUI application project in a temp dir and
// returns its path.
func WriteProject(t testing.TB) string {
	t.Helper()
	dir := t.TempDir()
	MustWriteFile(t, filepath.Join(dir, EntryPoint), "import tkinter as tk\n\nroot = tk.Tk()\nroot.mainloop()\n")
	MustWriteFile(t, filepath.Join(dir, Requirements), "requests\nPillow\n")
	return dir
}
