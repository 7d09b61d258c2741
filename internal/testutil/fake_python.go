// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/inspiration-station/packager/internal/runner"
	"github.com/inspiration-station/packager/pkg/platform"
	"github.com/inspiration-station/packager/pkg/types"
)

// Module names FakePython recognises after "-m".
const (
	ModulePip         = "pip"
	ModulePyCompile   = "py_compile"
	ModulePyInstaller = "PyInstaller"
)

// FakePython imitates "python -m <module>" for the modules a build uses.
//
// A PyInstaller run writes an artifact in Format into the --distpath directory,
// with Content as its payload.
type FakePython struct {
	// Format is the artifact format PyInstaller produces.
	Format platform.ArtifactFormat
	// Content is written into the produced artifact.
	Content string
	// Fail maps a module name to the exit code it fails with.
	Fail map[string]types.ExitCode
	// PartialOutput makes a failing PyInstaller leave a truncated artifact in --distpath.
	PartialOutput bool
	// SkipArtifact makes PyInstaller exit 0 without producing the artifact.
	SkipArtifact bool
	// Missing makes LookPath fail for every program.
	Missing bool

	mu    sync.Mutex
	calls []runner.Invocation
}

// LookPath reports the interpreter as found unless Missing is set.
func (f *FakePython) LookPath(name string) (string, error) {
	if f.Missing {
		return "", fmt.Errorf("%w: %s", runner.ErrProgramNotFound, name)
	}
	return filepath.Join("/usr/bin", name), nil
}

// Run records the invocation and imitates the requested module.
func (f *FakePython) Run(ctx context.Context, inv runner.Invocation) *runner.Result {
	f.mu.Lock()
	f.calls = append(f.calls, inv)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return runner.NewErrorResult(1, err)
	}

	module := ModuleOf(inv)
	if code, ok := f.Fail[module]; ok {
		if inv.Stderr != nil {
			fmt.Fprintf(inv.Stderr, "%s: simulated failure\n", module)
		}
		if module == ModulePyInstaller && f.PartialOutput {
			if dist := argAfter(inv.Args, "--distpath"); dist != "" {
				_ = os.MkdirAll(dist, 0o755)
				_ = os.WriteFile(filepath.Join(dist, f.Format.FileName(argAfter(inv.Args, "--name"))), []byte("trunc"), 0o755)
			}
		}
		return runner.NewExitCodeResult(code)
	}

	if module == ModulePyInstaller && !f.SkipArtifact {
		if err := f.writeArtifact(inv); err != nil {
			return runner.NewErrorResult(1, err)
		}
	}
	if inv.Stdout != nil {
		io.WriteString(inv.Stdout, module+": ok\n")
	}
	return runner.NewSuccessResult()
}

// Calls returns a copy of the recorded invocations.
func (f *FakePython) Calls() []runner.Invocation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// Modules returns the module of every recorded invocation, in order.
func (f *FakePython) Modules() []string {
	calls := f.Calls()
	modules := make([]string, 0, len(calls))
	for _, inv := range calls {
		modules = append(modules, ModuleOf(inv))
	}
	return modules
}

func (f *FakePython) writeArtifact(inv runner.Invocation) error {
	dist := argAfter(inv.Args, "--distpath")
	name := argAfter(inv.Args, "--name")
	if dist == "" || name == "" {
		return fmt.Errorf("fake PyInstaller: missing --distpath or --name in %v", inv.Args)
	}

	target := filepath.Join(dist, f.Format.FileName(name))
	if f.Format.IsBundle {
		// PyInstaller also leaves the bare executable next to the .app.
		if err := os.WriteFile(filepath.Join(dist, name), []byte(f.Content), 0o755); err != nil {
			return err
		}
		target = filepath.Join(target, "Contents", "MacOS", name)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	return os.WriteFile(target, []byte(f.Content), 0o755)
}

// ModuleOf returns the module of a "python -m <module>" invocation.
func ModuleOf(inv runner.Invocation) string {
	return argAfter(inv.Args, "-m")
}

func argAfter(args []string, flag string) string {
	for i, arg := range args {
		if arg == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}
