// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/inspiration-station/packager/internal/bundler"
	"github.com/inspiration-station/packager/internal/config"
	"github.com/inspiration-station/packager/internal/installer"
	"github.com/inspiration-station/packager/internal/issue"
	"github.com/inspiration-station/packager/internal/manifest"
	"github.com/inspiration-station/packager/internal/runner"
	"github.com/inspiration-station/packager/internal/testutil"
	"github.com/inspiration-station/packager/pkg/platform"
	"github.com/inspiration-station/packager/pkg/types"
)

const artifactName = "InspirationStation"

var fullBuild = []Stage{
	StageStart, StageDependenciesInstalling, StageDependenciesReady, StageBundling, StageArtifactProduced,
}

func testConfig(dir string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.ProjectDir = config.RelPath(dir)
	return cfg
}

func newTestPipeline(cfg *config.Config, goos string, py *testutil.FakePython, opts ...Option) *Pipeline {
	py.Format = platform.FormatFor(goos)
	base := []Option{WithRunner(py), WithHostOS(goos), WithOutput(io.Discard, io.Discard)}
	return New(cfg, append(base, opts...)...)
}

func distEntries(t *testing.T, dir string) []string {
	t.Helper()
	dist := filepath.Join(dir, "dist")
	if _, err := os.Stat(dist); os.IsNotExist(err) {
		return nil
	}
	return testutil.MustReadDir(t, dist)
}

func assertPipelineError(t *testing.T, err error, kind error) *Error {
	t.Helper()
	if err == nil {
		t.Fatal("expected the build to fail")
	}
	var pErr *Error
	if !errors.As(err, &pErr) {
		t.Fatalf("expected *pipeline.Error, got %T: %v", err, err)
	}
	if !errors.Is(err, kind) {
		t.Errorf("error should wrap %v, got %v", kind, err)
	}
	for _, other := range []error{ErrEnvironment, ErrDependencyResolution, ErrBundling} {
		if other != kind && errors.Is(err, other) {
			t.Errorf("error should not also wrap %v", other)
		}
	}
	var ae *issue.ActionableError
	if !errors.As(err, &ae) || !ae.HasSuggestions() {
		t.Errorf("expected an actionable error with suggestions, got %v", err)
	}
	return pErr
}

func TestRun_HappyPath(t *testing.T) {
	t.Parallel()

	dir := testutil.WriteProject(t)
	py := &testutil.FakePython{Content: "station-v1"}
	var observed []Stage
	p := newTestPipeline(testConfig(dir), platform.Linux, py, WithObserver(func(tr Transition) {
		observed = append(observed, tr.To)
	}))

	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !slices.Equal(report.Stages, fullBuild) {
		t.Errorf("Stages = %v, want %v", report.Stages, fullBuild)
	}
	if !slices.Equal(observed, fullBuild[1:]) {
		t.Errorf("observer saw %v", observed)
	}
	if report.Artifact == nil || report.Artifact.Path != filepath.Join(dir, "dist", artifactName) {
		t.Fatalf("unexpected artifact: %+v", report.Artifact)
	}
	if got := distEntries(t, dir); !slices.Equal(got, []string{artifactName}) {
		t.Errorf("dist = %v, want exactly the artifact", got)
	}
	if report.Python != filepath.Join("/usr/bin", "python3") {
		t.Errorf("Python = %q, want the first candidate", report.Python)
	}

	modules := py.Modules()
	if !slices.Equal(modules, []string{testutil.ModulePip, testutil.ModulePyCompile, testutil.ModulePyInstaller}) {
		t.Errorf("modules run = %v", modules)
	}

	pip := py.Calls()[0]
	wantPip := []string{"-m", "pip", "install", "-r", filepath.Join(dir, "requirements.txt"), "pyinstaller"}
	if !slices.Equal(pip.Args, wantPip) {
		t.Errorf("pip args = %q, want %q", pip.Args, wantPip)
	}
	bundle := strings.Join(py.Calls()[2].Args, " ")
	for _, flag := range []string{"--onefile", "--windowed", "--name " + artifactName, "--noconfirm"} {
		if !strings.Contains(bundle, flag) {
			t.Errorf("bundler invocation %q is missing %q", bundle, flag)
		}
	}
	for _, inv := range py.Calls() {
		if inv.Program != report.Python || inv.Dir != dir {
			t.Errorf("every step should run the same interpreter in the project dir, got %+v", inv)
		}
	}
}

func TestRun_Idempotent(t *testing.T) {
	t.Parallel()

	dir := testutil.WriteProject(t)
	cfg := testConfig(dir)

	first, err := newTestPipeline(cfg, platform.Linux, &testutil.FakePython{Content: "build"}).Run(context.Background())
	if err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	second, err := newTestPipeline(cfg, platform.Linux, &testutil.FakePython{Content: "build"}).Run(context.Background())
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}

	if first.Artifact.Path != second.Artifact.Path {
		t.Errorf("artifact path changed: %s -> %s", first.Artifact.Path, second.Artifact.Path)
	}
	if first.Artifact.Digest != second.Artifact.Digest {
		t.Error("unchanged inputs should yield an identical artifact")
	}
	if got := distEntries(t, dir); len(got) != 1 {
		t.Errorf("dist should hold one entry after two builds, got %v", got)
	}
}

func TestRun_SecondBuildReplacesArtifact(t *testing.T) {
	t.Parallel()

	dir := testutil.WriteProject(t)
	cfg := testConfig(dir)

	if _, err := newTestPipeline(cfg, platform.Windows, &testutil.FakePython{Content: "old"}).Run(context.Background()); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	report, err := newTestPipeline(cfg, platform.Windows, &testutil.FakePython{Content: "new"}).Run(context.Background())
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if got := testutil.MustReadFile(t, report.Artifact.Path); got != "new" {
		t.Errorf("artifact content = %q, want new", got)
	}
	if got := distEntries(t, dir); !slices.Equal(got, []string{artifactName + ".exe"}) {
		t.Errorf("dist = %v", got)
	}
}

func TestRun_UnresolvableDependency(t *testing.T) {
	t.Parallel()

	for _, previous := range []bool{false, true} {
		t.Run(map[bool]string{false: "no previous", true: "with previous"}[previous], func(t *testing.T) {
			t.Parallel()

			dir := testutil.WriteProject(t)
			artifact := filepath.Join(dir, "dist", artifactName)
			if previous {
				testutil.MustWriteFile(t, artifact, "previous")
			}
			py := &testutil.FakePython{Fail: map[string]types.ExitCode{testutil.ModulePip: 1}}

			report, err := newTestPipeline(testConfig(dir), platform.Linux, py).Run(context.Background())

			pErr := assertPipelineError(t, err, ErrDependencyResolution)
			if !errors.Is(err, installer.ErrInstallFailed) {
				t.Errorf("error should wrap installer.ErrInstallFailed, got %v", err)
			}
			if pErr.ExitCode() != 1 {
				t.Errorf("ExitCode() = %d, want pip's exit code 1", pErr.ExitCode())
			}
			if got := py.Modules(); !slices.Equal(got, []string{testutil.ModulePip}) {
				t.Errorf("bundler must not run after a failed install, modules = %v", got)
			}
			want := []Stage{StageStart, StageDependenciesInstalling, StageFailed}
			if !slices.Equal(report.Stages, want) {
				t.Errorf("Stages = %v, want %v", report.Stages, want)
			}
			if report.Artifact != nil {
				t.Error("no artifact expected")
			}

			if previous {
				if got := testutil.MustReadFile(t, artifact); got != "previous" {
					t.Errorf("previous artifact modified: %q", got)
				}
			} else if got := distEntries(t, dir); len(got) != 0 {
				t.Errorf("no artifact should be written, dist = %v", got)
			}
		})
	}
}

// A failed bundling step leaves the previous artifact in place and never
// writes a partial one.
func TestRun_EntryPointDefect(t *testing.T) {
	t.Parallel()

	for _, previous := range []bool{false, true} {
		t.Run(map[bool]string{false: "no previous", true: "with previous"}[previous], func(t *testing.T) {
			t.Parallel()

			dir := testutil.WriteProject(t)
			testutil.MustWriteFile(t, filepath.Join(dir, testutil.EntryPoint), "def broken(:\n")
			artifact := filepath.Join(dir, "dist", artifactName)
			if previous {
				testutil.MustWriteFile(t, artifact, "previous")
			}
			py := &testutil.FakePython{Fail: map[string]types.ExitCode{testutil.ModulePyCompile: 1}}

			report, err := newTestPipeline(testConfig(dir), platform.Linux, py).Run(context.Background())

			pErr := assertPipelineError(t, err, ErrBundling)
			if !errors.Is(err, bundler.ErrEntryPointDefect) {
				t.Errorf("error should wrap bundler.ErrEntryPointDefect, got %v", err)
			}
			if pErr.Stage != StageBundling {
				t.Errorf("Stage = %s, want bundling", pErr.Stage)
			}
			want := []Stage{StageStart, StageDependenciesInstalling, StageDependenciesReady, StageBundling, StageFailed}
			if !slices.Equal(report.Stages, want) {
				t.Errorf("Stages = %v, want %v", report.Stages, want)
			}
			if slices.Contains(py.Modules(), testutil.ModulePyInstaller) {
				t.Error("PyInstaller should not run when the entry point does not compile")
			}

			if previous {
				if got := testutil.MustReadFile(t, artifact); got != "previous" {
					t.Errorf("previous artifact modified: %q", got)
				}
			} else if got := distEntries(t, dir); len(got) != 0 {
				t.Errorf("no artifact should be written, dist = %v", got)
			}
		})
	}
}

func TestRun_BundlerFailureLeavesNoPartialArtifact(t *testing.T) {
	t.Parallel()

	dir := testutil.WriteProject(t)
	py := &testutil.FakePython{
		Fail:          map[string]types.ExitCode{testutil.ModulePyInstaller: 4},
		PartialOutput: true,
	}

	_, err := newTestPipeline(testConfig(dir), platform.Linux, py).Run(context.Background())

	pErr := assertPipelineError(t, err, ErrBundling)
	if !errors.Is(err, bundler.ErrBundleFailed) {
		t.Errorf("error should wrap bundler.ErrBundleFailed, got %v", err)
	}
	if pErr.ExitCode() != 4 {
		t.Errorf("ExitCode() = %d, want 4", pErr.ExitCode())
	}
	if got := distEntries(t, dir); len(got) != 0 {
		t.Errorf("partial output must not reach dist, got %v", got)
	}
}

func TestRun_PlatformFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		goos     string
		fileName string
		isDir    bool
	}{
		{platform.Windows, artifactName + ".exe", false},
		{platform.Darwin, artifactName + ".app", true},
		{platform.Linux, artifactName, false},
		{"freebsd", artifactName, false},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			t.Parallel()

			dir := testutil.WriteProject(t)
			report, err := newTestPipeline(testConfig(dir), tt.goos, &testutil.FakePython{Content: "bin"}).Run(context.Background())
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			if got := distEntries(t, dir); !slices.Equal(got, []string{tt.fileName}) {
				t.Errorf("dist = %v, want [%s]", got, tt.fileName)
			}
			info, err := os.Stat(report.Artifact.Path)
			if err != nil {
				t.Fatalf("stat artifact: %v", err)
			}
			if info.IsDir() != tt.isDir {
				t.Errorf("artifact IsDir = %v, want %v", info.IsDir(), tt.isDir)
			}
		})
	}
}

// The bundler only recognises the host's format: an artifact in another
// platform's format is reported as missing rather than published.
func TestRun_IgnoresForeignFormat(t *testing.T) {
	t.Parallel()

	dir := testutil.WriteProject(t)
	py := &testutil.FakePython{Content: "bin"}
	p := New(testConfig(dir), WithRunner(py), WithHostOS(platform.Linux), WithOutput(io.Discard, io.Discard))
	py.Format = platform.FormatFor(platform.Windows)

	_, err := p.Run(context.Background())
	assertPipelineError(t, err, ErrBundling)
	if !errors.Is(err, bundler.ErrArtifactMissing) {
		t.Errorf("expected ErrArtifactMissing, got %v", err)
	}
	if got := distEntries(t, dir); len(got) != 0 {
		t.Errorf("dist = %v, want empty", got)
	}
}

func TestRun_PreflightFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		setup  func(t *testing.T, dir string, cfg *config.Config, py *testutil.FakePython)
		kind   error
		target error
	}{
		{
			name:  "python missing",
			setup: func(_ *testing.T, _ string, _ *config.Config, py *testutil.FakePython) { py.Missing = true },
			kind:  ErrEnvironment,
		},
		{
			name: "manifest missing",
			setup: func(t *testing.T, dir string, _ *config.Config, _ *testutil.FakePython) {
				if err := os.Remove(filepath.Join(dir, testutil.Requirements)); err != nil {
					t.Fatal(err)
				}
			},
			kind:   ErrDependencyResolution,
			target: os.ErrNotExist,
		},
		{
			name: "manifest invalid",
			setup: func(t *testing.T, dir string, _ *config.Config, _ *testutil.FakePython) {
				testutil.MustWriteFile(t, filepath.Join(dir, testutil.Requirements), "requests\nPillow is great\n")
			},
			kind:   ErrDependencyResolution,
			target: manifest.ErrInvalidRequirement,
		},
		{
			name: "entry point missing",
			setup: func(_ *testing.T, _ string, cfg *config.Config, _ *testutil.FakePython) {
				cfg.EntryPoint = "main.py"
			},
			kind:   ErrBundling,
			target: os.ErrNotExist,
		},
		{
			name: "work dir is the project",
			setup: func(_ *testing.T, _ string, cfg *config.Config, _ *testutil.FakePython) {
				cfg.WorkDir = "."
			},
			kind:   ErrEnvironment,
			target: config.ErrInvalidConfig,
		},
		{
			name: "dist dir inside work dir",
			setup: func(_ *testing.T, _ string, cfg *config.Config, _ *testutil.FakePython) {
				cfg.DistDir = "build/stage"
			},
			kind:   ErrEnvironment,
			target: config.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := testutil.WriteProject(t)
			cfg := testConfig(dir)
			py := &testutil.FakePython{}
			tt.setup(t, dir, cfg, py)

			report, err := newTestPipeline(cfg, platform.Linux, py).Run(context.Background())

			assertPipelineError(t, err, tt.kind)
			if tt.target != nil && !errors.Is(err, tt.target) {
				t.Errorf("error should wrap %v, got %v", tt.target, err)
			}
			if calls := py.Calls(); len(calls) != 0 {
				t.Errorf("nothing should run when preflight fails, got %d calls", len(calls))
			}
			if want := []Stage{StageStart, StageDependenciesInstalling, StageFailed}; !slices.Equal(report.Stages, want) {
				t.Errorf("Stages = %v, want %v", report.Stages, want)
			}
		})
	}
}

func TestRun_Canceled(t *testing.T) {
	t.Parallel()

	dir := testutil.WriteProject(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := newTestPipeline(testConfig(dir), platform.Linux, &testutil.FakePython{}).Run(ctx)

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled in the chain, got %v", err)
	}
	if report.Stages[len(report.Stages)-1] != StageFailed {
		t.Errorf("an interrupted build should end failed, got %v", report.Stages)
	}
	if got := distEntries(t, dir); len(got) != 0 {
		t.Errorf("dist = %v, want empty", got)
	}
}

type lookPathRunner struct {
	*testutil.FakePython
	found map[string]bool
}

func (r *lookPathRunner) LookPath(name string) (string, error) {
	if !r.found[name] {
		return "", runner.ErrProgramNotFound
	}
	return "/opt/bin/" + name, nil
}

func TestResolvePython(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		goos   string
		python string
		found  []string
		want   string
	}{
		{"unix prefers python3", platform.Linux, "", []string{"python3", "python"}, "/opt/bin/python3"},
		{"unix falls back to python", platform.Darwin, "", []string{"python"}, "/opt/bin/python"},
		{"windows prefers python", platform.Windows, "", []string{"python", "py"}, "/opt/bin/python"},
		{"windows falls back to py launcher", platform.Windows, "", []string{"py"}, "/opt/bin/py"},
		{"configured interpreter", platform.Linux, "python3.12", []string{"python3", "python3.12"}, "/opt/bin/python3.12"},
		{"configured interpreter missing", platform.Linux, "python3.12", []string{"python3"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := testConfig(t.TempDir())
			cfg.Python = tt.python
			found := map[string]bool{}
			for _, name := range tt.found {
				found[name] = true
			}
			r := &lookPathRunner{FakePython: &testutil.FakePython{}, found: found}
			p := New(cfg, WithRunner(r), WithHostOS(tt.goos))

			got, err := p.resolvePython()
			if tt.want == "" {
				if !errors.Is(err, ErrEnvironment) || !errors.Is(err, runner.ErrProgramNotFound) {
					t.Errorf("expected an environment error wrapping ErrProgramNotFound, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("resolvePython() = %q, %v; want %q", got, err, tt.want)
			}
		})
	}
}

func TestPlan(t *testing.T) {
	t.Parallel()

	dir := testutil.WriteProject(t)
	cfg := testConfig(dir)
	cfg.Install.UpgradePip = true
	py := &testutil.FakePython{}

	plan, err := newTestPipeline(cfg, platform.Darwin, py).Plan()
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if len(py.Calls()) != 0 {
		t.Error("Plan must not run anything")
	}

	var modules []string
	for _, inv := range plan.Steps {
		modules = append(modules, testutil.ModuleOf(inv))
	}
	want := []string{testutil.ModulePip, testutil.ModulePip, testutil.ModulePyCompile, testutil.ModulePyInstaller}
	if !slices.Equal(modules, want) {
		t.Errorf("planned modules = %v, want %v", modules, want)
	}
	if plan.Artifact != filepath.Join(dir, "dist", artifactName+".app") {
		t.Errorf("Artifact = %q", plan.Artifact)
	}
	if len(plan.Manifest.Requirements) != 2 {
		t.Errorf("expected 2 requirements, got %d", len(plan.Manifest.Requirements))
	}
}

func TestClean(t *testing.T) {
	t.Parallel()

	dir := testutil.WriteProject(t)
	cfg := testConfig(dir)
	if _, err := newTestPipeline(cfg, platform.Linux, &testutil.FakePython{Content: "x"}).Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	removed, err := newTestPipeline(cfg, platform.Linux, &testutil.FakePython{}).Clean()
	if err != nil {
		t.Fatalf("Clean() error = %v", err)
	}
	if !slices.Contains(removed, filepath.Join(dir, "dist", artifactName)) {
		t.Errorf("removed = %v, want the artifact", removed)
	}
	if got := distEntries(t, dir); len(got) != 0 {
		t.Errorf("dist = %v, want empty", got)
	}
}

func TestRun_OverlappingDistKeepsPreviousArtifact(t *testing.T) {
	t.Parallel()

	dir := testutil.WriteProject(t)
	cfg := testConfig(dir)
	cfg.DistDir = "build/stage"
	previous := filepath.Join(dir, "build", "stage", artifactName)
	testutil.MustWriteFile(t, previous, "previous-build")

	py := &testutil.FakePython{Fail: map[string]types.ExitCode{testutil.ModulePyInstaller: 1}}
	_, err := newTestPipeline(cfg, platform.Linux, py).Run(context.Background())

	assertPipelineError(t, err, ErrEnvironment)
	if slices.Contains(py.Modules(), testutil.ModulePyInstaller) {
		t.Error("the bundler must not run with an overlapping layout")
	}
	if got := testutil.MustReadFile(t, previous); got != "previous-build" {
		t.Errorf("previous artifact = %q, want it untouched", got)
	}
}

func TestClean_RefusesOverlappingLayout(t *testing.T) {
	t.Parallel()

	for _, workDir := range []config.RelPath{".", "..", "dist"} {
		t.Run(string(workDir), func(t *testing.T) {
			t.Parallel()

			dir := testutil.WriteProject(t)
			cfg := testConfig(dir)
			cfg.WorkDir = workDir

			removed, err := newTestPipeline(cfg, platform.Linux, &testutil.FakePython{}).Clean()

			assertPipelineError(t, err, ErrEnvironment)
			if len(removed) != 0 {
				t.Errorf("removed = %v, want nothing", removed)
			}
			for _, kept := range []string{testutil.EntryPoint, testutil.Requirements} {
				if _, err := os.Stat(filepath.Join(dir, kept)); err != nil {
					t.Errorf("%s should survive: %v", kept, err)
				}
			}
		})
	}
}

func TestRun_EmptyPyProjectSkipsInstall(t *testing.T) {
	t.Parallel()

	dir := testutil.WriteProject(t)
	testutil.MustWriteFile(t, filepath.Join(dir, "pyproject.toml"), "[project]\nname = \"muse\"\n")
	cfg := testConfig(dir)
	cfg.Manifest = "pyproject.toml"
	cfg.Bundler.Package = ""

	py := &testutil.FakePython{Content: "x"}
	report, err := newTestPipeline(cfg, platform.Linux, py).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !slices.Equal(report.Stages, fullBuild) {
		t.Errorf("Stages = %v, want %v", report.Stages, fullBuild)
	}
	if slices.Contains(py.Modules(), testutil.ModulePip) {
		t.Errorf("pip should not run for an empty manifest, modules = %v", py.Modules())
	}
}
