// SPDX-License-Identifier: MPL-2.0

package installer

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/inspiration-station/packager/internal/manifest"
	"github.com/inspiration-station/packager/internal/runner"
)

type recordingRunner struct {
	calls   []runner.Invocation
	results []*runner.Result
}

func (r *recordingRunner) LookPath(name string) (string, error) { return name, nil }

func (r *recordingRunner) Run(_ context.Context, inv runner.Invocation) *runner.Result {
	r.calls = append(r.calls, inv)
	if len(r.results) == 0 {
		return runner.NewSuccessResult()
	}
	res := r.results[0]
	r.results = r.results[1:]
	return res
}

func requirementsManifest(names ...string) *manifest.Manifest {
	m := &manifest.Manifest{Path: "requirements.txt", Format: manifest.FormatRequirements}
	for _, n := range names {
		m.Requirements = append(m.Requirements, manifest.Requirement{Name: n, Raw: n})
	}
	return m
}

func TestInstaller_Plan(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		installer Installer
		want      [][]string
	}{
		{
			name: "adds bundler package",
			installer: Installer{
				Python:         "python3",
				Manifest:       requirementsManifest("requests", "Pillow"),
				BundlerPackage: "pyinstaller",
			},
			want: [][]string{{"-m", "pip", "install", "-r", "requirements.txt", "pyinstaller"}},
		},
		{
			name: "bundler already declared",
			installer: Installer{
				Python:         "python3",
				Manifest:       requirementsManifest("requests", "PyInstaller"),
				BundlerPackage: "pyinstaller",
			},
			want: [][]string{{"-m", "pip", "install", "-r", "requirements.txt"}},
		},
		{
			name: "upgrade pip and extra args",
			installer: Installer{
				Python:     "python3",
				Manifest:   &manifest.Manifest{Format: manifest.FormatPyProject, Requirements: []manifest.Requirement{{Name: "requests", Raw: "requests>=2"}}},
				UpgradePip: true,
				ExtraArgs:  []string{"--user"},
			},
			want: [][]string{
				{"-m", "pip", "install", "--upgrade", "pip"},
				{"-m", "pip", "install", "requests>=2", "--user"},
			},
		},
		{
			name: "nothing to install",
			installer: Installer{
				Python:    "python3",
				Manifest:  &manifest.Manifest{Format: manifest.FormatPyProject},
				ExtraArgs: []string{"--no-cache-dir"},
			},
			want: nil,
		},
		{
			name: "only pip upgrade when nothing to install",
			installer: Installer{
				Python:     "python3",
				Manifest:   &manifest.Manifest{Format: manifest.FormatPyProject},
				UpgradePip: true,
			},
			want: [][]string{{"-m", "pip", "install", "--upgrade", "pip"}},
		},
		{
			name: "only the bundler package",
			installer: Installer{
				Python:         "python3",
				Manifest:       &manifest.Manifest{Format: manifest.FormatPyProject},
				BundlerPackage: "pyinstaller",
			},
			want: [][]string{{"-m", "pip", "install", "pyinstaller"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			plan := tt.installer.Plan()
			if len(plan) != len(tt.want) {
				t.Fatalf("len(Plan()) = %d, want %d", len(plan), len(tt.want))
			}
			for i, inv := range plan {
				if inv.Program != "python3" {
					t.Errorf("plan[%d].Program = %q", i, inv.Program)
				}
				if !reflect.DeepEqual(inv.Args, tt.want[i]) {
					t.Errorf("plan[%d].Args = %v, want %v", i, inv.Args, tt.want[i])
				}
			}
		})
	}
}

func TestInstaller_Install(t *testing.T) {
	t.Parallel()

	r := &recordingRunner{}
	inst := &Installer{Runner: r, Python: "python3", Manifest: requirementsManifest("requests"), UpgradePip: true, Dir: "/proj"}

	if err := inst.Install(context.Background()); err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	if len(r.calls) != 2 {
		t.Fatalf("runner called %d times, want 2", len(r.calls))
	}
	if r.calls[1].Dir != "/proj" {
		t.Errorf("Dir = %q, want /proj", r.calls[1].Dir)
	}
}

func TestInstaller_Install_StopsAtFirstFailure(t *testing.T) {
	t.Parallel()

	r := &recordingRunner{results: []*runner.Result{runner.NewExitCodeResult(1)}}
	inst := &Installer{Runner: r, Python: "python3", Manifest: requirementsManifest("nope-not-a-package"), UpgradePip: true}

	err := inst.Install(context.Background())
	if !errors.Is(err, ErrInstallFailed) {
		t.Fatalf("Install() error = %v, want ErrInstallFailed", err)
	}
	var ie *InstallError
	if !errors.As(err, &ie) || ie.ExitCode != 1 {
		t.Errorf("error = %#v, want InstallError with exit code 1", err)
	}
	if len(r.calls) != 1 {
		t.Errorf("runner called %d times, want 1", len(r.calls))
	}
}

func TestInstaller_Install_RunError(t *testing.T) {
	t.Parallel()

	r := &recordingRunner{results: []*runner.Result{runner.NewErrorResult(127, runner.ErrProgramNotFound)}}
	inst := &Installer{Runner: r, Python: "python3", Manifest: requirementsManifest("requests")}

	err := inst.Install(context.Background())
	if !errors.Is(err, ErrInstallFailed) || !errors.Is(err, runner.ErrProgramNotFound) {
		t.Errorf("Install() error = %v, want ErrInstallFailed and ErrProgramNotFound", err)
	}
}

func TestInstaller_Install_NothingToInstall(t *testing.T) {
	t.Parallel()

	r := &recordingRunner{}
	inst := &Installer{Runner: r, Python: "python3", Manifest: &manifest.Manifest{Format: manifest.FormatPyProject}}

	if err := inst.Install(context.Background()); err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	if len(r.calls) != 0 {
		t.Errorf("pip should not run without requirements, got %v", r.calls)
	}
}
