// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"os"
	"runtime"

	"github.com/charmbracelet/log"

	"github.com/inspiration-station/packager/internal/config"
	"github.com/inspiration-station/packager/internal/pipeline"
	"github.com/inspiration-station/packager/internal/runner"
)

type (
	// App wires CLI services and shared dependencies. All Cobra command
	// handlers receive an App reference and build pipelines through it.
	App struct {
		Config ConfigProvider
		Runner runner.Runner
		// HostOS selects the artifact format and interpreter candidates.
		HostOS string
		stdout io.Writer
		stderr io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil fields are
	// replaced with production defaults by NewApp.
	Dependencies struct {
		Config ConfigProvider
		Runner runner.Runner
		HostOS string
		Stdout io.Writer
		Stderr io.Writer
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Runner == nil {
		deps.Runner = runner.NewNativeRunner()
	}
	if deps.HostOS == "" {
		deps.HostOS = runtime.GOOS
	}

	return &App{
		Config: deps.Config,
		Runner: deps.Runner,
		HostOS: deps.HostOS,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
	}
}

// newLogger returns the progress logger written to stderr.
func (a *App) newLogger(verbose bool) *log.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(a.stderr, log.Options{
		Prefix: config.AppName,
		Level:  level,
	})
}

// newPipeline builds a pipeline for cfg that streams child output to the
// App's writers.
func (a *App) newPipeline(cfg *config.Config, verbose bool) *pipeline.Pipeline {
	return pipeline.New(cfg,
		pipeline.WithRunner(a.Runner),
		pipeline.WithOutput(a.stdout, a.stderr),
		pipeline.WithLogger(a.newLogger(verbose)),
		pipeline.WithHostOS(a.HostOS),
	)
}
