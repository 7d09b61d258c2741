// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/charmbracelet/log"

	"github.com/inspiration-station/packager/internal/bundler"
	"github.com/inspiration-station/packager/internal/config"
	"github.com/inspiration-station/packager/internal/installer"
	"github.com/inspiration-station/packager/internal/manifest"
	"github.com/inspiration-station/packager/internal/runner"
	"github.com/inspiration-station/packager/pkg/platform"
)

type (
	// Pipeline builds the configured application: install, then bundle.
	Pipeline struct {
		cfg      *config.Config
		runner   runner.Runner
		stdout   io.Writer
		stderr   io.Writer
		logger   *log.Logger
		goos     string
		observer func(Transition)
	}

	// Option configures a Pipeline.
	Option func(*Pipeline)

	// Report summarizes a pipeline run.
	Report struct {
		// Stages lists every stage visited, starting with StageStart.
		Stages []Stage
		// Python is the interpreter that ran both steps.
		Python string
		// Artifact is the produced artifact; nil unless the build succeeded.
		Artifact *bundler.Artifact
		Duration time.Duration
	}

	// BuildPlan describes what Run would execute.
	BuildPlan struct {
		Python   string
		Manifest *manifest.Manifest
		Steps    []runner.Invocation
		// Artifact is the path the artifact would be written to.
		Artifact string
		Format   platform.ArtifactFormat
	}
)

// WithRunner sets the process runner. Defaults to a NativeRunner.
func WithRunner(r runner.Runner) Option {
	return func(p *Pipeline) { p.runner = r }
}

// WithOutput sets where child process output is streamed. Defaults to os.Stdout/os.Stderr.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(p *Pipeline) {
		p.stdout = stdout
		p.stderr = stderr
	}
}

// WithLogger sets the logger for progress messages.
func WithLogger(l *log.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithObserver registers a callback for every stage transition.
func WithObserver(fn func(Transition)) Option {
	return func(p *Pipeline) { p.observer = fn }
}

// WithHostOS overrides the host operating system used to pick the artifact
// format and the interpreter candidates.
func WithHostOS(goos string) Option {
	return func(p *Pipeline) { p.goos = goos }
}

// New creates a pipeline for cfg.
func New(cfg *config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:    cfg,
		runner: runner.NewNativeRunner(),
		stdout: os.Stdout,
		stderr: os.Stderr,
		logger: log.New(io.Discard),
		goos:   runtime.GOOS,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Format returns the artifact format the pipeline produces.
func (p *Pipeline) Format() platform.ArtifactFormat {
	return platform.FormatFor(p.goos)
}

// Run executes the build. On failure the returned report is still populated
// with the stages visited, and the error is an *Error.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	machine := NewMachine(p.observe)
	report := &Report{}

	finish := func(err error) (*Report, error) {
		if err != nil {
			_ = machine.Fail()
		}
		report.Stages = machine.Stages()
		report.Duration = time.Since(start)
		return report, err
	}

	if err := machine.To(StageDependenciesInstalling); err != nil {
		return finish(err)
	}

	python, man, err := p.preflight()
	if err != nil {
		return finish(err)
	}
	report.Python = python

	inst := p.installer(python, man)
	if err := inst.Install(ctx); err != nil {
		return finish(installError(man.Path, err))
	}
	if err := machine.To(StageDependenciesReady); err != nil {
		return finish(err)
	}

	if err := machine.To(StageBundling); err != nil {
		return finish(err)
	}
	artifact, err := p.bundler(python).Bundle(ctx)
	if err != nil {
		return finish(bundlingError(string(p.cfg.EntryPoint), err))
	}
	report.Artifact = artifact

	if err := machine.To(StageArtifactProduced); err != nil {
		return finish(err)
	}
	return finish(nil)
}

// Plan runs the preflight checks and returns the invocations Run would execute.
func (p *Pipeline) Plan() (*BuildPlan, error) {
	python, man, err := p.preflight()
	if err != nil {
		return nil, err
	}
	b := p.bundler(python)
	steps := p.installer(python, man).Plan()
	steps = append(steps, b.Plan()...)
	return &BuildPlan{
		Python:   python,
		Manifest: man,
		Steps:    steps,
		Artifact: b.Options.ArtifactPath(),
		Format:   b.Options.Format,
	}, nil
}

// Clean removes the artifact and intermediate files.
func (p *Pipeline) Clean() ([]string, error) {
	if err := p.checkLayout(); err != nil {
		return nil, err
	}
	return p.bundler("").Clean()
}

// checkLayout refuses configurations whose build directories overlap the
// project or each other, since bundling and cleaning remove files there.
func (p *Pipeline) checkLayout() error {
	if valid, errs := p.cfg.IsValid(); !valid {
		return invalidLayoutError(string(p.cfg.ProjectDir), errs[0])
	}
	return nil
}

// preflight resolves the interpreter and checks the project inputs before
// anything is installed.
func (p *Pipeline) preflight() (string, *manifest.Manifest, error) {
	if err := p.checkLayout(); err != nil {
		return "", nil, err
	}

	python, err := p.resolvePython()
	if err != nil {
		return "", nil, err
	}

	manifestPath := p.cfg.ProjectPath(p.cfg.Manifest)
	if _, err := os.Stat(manifestPath); err != nil {
		return "", nil, manifestNotFoundError(manifestPath, err)
	}

	entryPoint := p.cfg.ProjectPath(p.cfg.EntryPoint)
	info, err := os.Stat(entryPoint)
	if err == nil && info.IsDir() {
		err = fmt.Errorf("%s is a directory", entryPoint)
	}
	if err != nil {
		return "", nil, entryPointMissingError(entryPoint, err)
	}

	man, err := manifest.Load(manifestPath)
	if err != nil {
		return "", nil, manifestError(manifestPath, err)
	}
	p.logger.Debug("preflight ok", "python", python, "manifest", man.Path, "requirements", len(man.Requirements))
	return python, man, nil
}

// pythonCandidates lists the interpreter names tried in order.
func (p *Pipeline) pythonCandidates() []string {
	if p.cfg.Python != "" {
		return []string{p.cfg.Python}
	}
	if p.goos == platform.Windows {
		return []string{"python", "py"}
	}
	return []string{"python3", "python"}
}

func (p *Pipeline) resolvePython() (string, error) {
	candidates := p.pythonCandidates()
	var errs []error
	for _, name := range candidates {
		path, err := p.runner.LookPath(name)
		if err == nil {
			return path, nil
		}
		errs = append(errs, err)
	}
	return "", pythonNotFoundError(candidates, errors.Join(errs...))
}

func (p *Pipeline) installer(python string, man *manifest.Manifest) *installer.Installer {
	return &installer.Installer{
		Runner:         p.runner,
		Python:         python,
		Manifest:       man,
		BundlerPackage: p.cfg.Bundler.Package,
		UpgradePip:     p.cfg.Install.UpgradePip,
		ExtraArgs:      p.cfg.Install.ExtraArgs,
		Dir:            string(p.cfg.ProjectDir),
		Stdout:         p.stdout,
		Stderr:         p.stderr,
		Logger:         p.logger,
	}
}

func (p *Pipeline) bundler(python string) *bundler.Bundler {
	cfg := p.cfg
	return &bundler.Bundler{
		Runner: p.runner,
		Options: bundler.Options{
			Python:      python,
			Module:      cfg.Bundler.Module,
			EntryPoint:  string(cfg.EntryPoint),
			Name:        string(cfg.ArtifactName),
			NoConfirm:   cfg.Bundler.NoConfirm,
			CheckSyntax: cfg.Bundler.CheckSyntax,
			ExtraArgs:   cfg.Bundler.ExtraArgs,
			ProjectDir:  string(cfg.ProjectDir),
			DistDir:     string(cfg.DistDir),
			WorkDir:     string(cfg.WorkDir),
			Format:      p.Format(),
		},
		Stdout: p.stdout,
		Stderr: p.stderr,
		Logger: p.logger,
	}
}

func (p *Pipeline) observe(t Transition) {
	p.logger.Debug("stage", "from", t.From, "to", t.To)
	if p.observer != nil {
		p.observer(t)
	}
}
