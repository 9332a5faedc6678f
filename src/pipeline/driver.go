package pipeline

import (
	"context"
	"fmt"

	"github.com/buildkiln/kiln/src/backend"
	"github.com/buildkiln/kiln/src/build"
	"github.com/buildkiln/kiln/src/image"
	"github.com/buildkiln/kiln/src/source"
)

// Options configure one pipeline run. The plugin lists come from the
// build descriptor; an empty build-step list falls back to the docker
// engine build.
type Options struct {
	Source source.Spec
	Image  string

	PreBuildPlugins   []PluginConf
	BuildStepPlugins  []PluginConf
	PrePublishPlugins []PluginConf
	PostBuildPlugins  []PluginConf
	ExitPlugins       []PluginConf

	// Tmpdir roots the source checkout; empty means the system temp
	// directory.
	Tmpdir string

	Logf func(format string, args ...any)
}

// Driver strings the phases into one build run.
type Driver struct {
	backend backend.Backend
	opts    Options

	// Workflow is the state of the last BuildImage run, kept for
	// callers that render results and metadata.
	Workflow *Workflow
}

// NewDriver validates the options and prepares a run.
func NewDriver(b backend.Backend, opts Options) (*Driver, error) {
	if opts.Image == "" {
		return nil, fmt.Errorf("no target image given")
	}
	if opts.Source.URI == "" {
		return nil, fmt.Errorf("no source given")
	}
	if len(opts.BuildStepPlugins) == 0 {
		opts.BuildStepPlugins = []PluginConf{{Name: "docker_api"}}
	}
	return &Driver{backend: b, opts: opts}, nil
}

// BuildImage runs the whole pipeline. The exit phase and the source
// teardown always happen, whatever the earlier phases did. The result
// is non-nil whenever the build step ran to an in-band conclusion;
// the error reflects the first fatal problem, with exit-phase failures
// only surfacing when nothing earlier went wrong.
func (d *Driver) BuildImage(ctx context.Context) (*build.Result, error) {
	img, err := image.Parse(d.opts.Image)
	if err != nil {
		return nil, fmt.Errorf("parsing target image %q: %w", d.opts.Image, err)
	}

	src, err := source.New(d.opts.Source, d.opts.Tmpdir)
	if err != nil {
		return nil, err
	}

	w := NewWorkflow(img, src, d.opts.Logf)
	d.Workflow = w

	runErr := d.runBuild(ctx, w, src, img)

	exitErr := (&Runner{
		Phase:   PhaseExit,
		Backend: d.backend,
		Plugins: d.opts.ExitPlugins,
		Options: RunOptions{KeepGoing: true},
	}).Run(ctx, w)

	if err := src.Remove(); err != nil {
		w.Logf("removing source workdir: %v", err)
	}

	if runErr != nil {
		return w.BuildResult, runErr
	}
	if exitErr != nil {
		return w.BuildResult, exitErr
	}
	if w.BuildResult != nil && w.BuildResult.IsFailed() {
		return w.BuildResult, &BuildFailedError{Reason: w.BuildResult.FailReason()}
	}
	return w.BuildResult, nil
}

// runBuild covers everything before the exit phase.
func (d *Driver) runBuild(ctx context.Context, w *Workflow, src source.Source, img image.Name) error {
	builder, err := build.NewBuilder(ctx, d.backend, src, img, d.opts.Source.DockerfilePath)
	if err != nil {
		return err
	}
	w.Builder = builder

	if err := d.runPhase(ctx, w, PhasePreBuild, d.opts.PreBuildPlugins, RunOptions{}); err != nil {
		return err
	}

	err = d.runPhase(ctx, w, PhaseBuildStep, d.opts.BuildStepPlugins, RunOptions{StopOnSuccess: true})
	if err != nil {
		return err
	}
	if w.BuildResult == nil {
		return fmt.Errorf("build step produced no result")
	}
	if w.BuildResult.IsFailed() {
		// in-band build failure: skip publishing, the exit phase and
		// the caller see the failed result
		return nil
	}

	if err := d.runPhase(ctx, w, PhasePrePublish, d.opts.PrePublishPlugins, RunOptions{}); err != nil {
		return err
	}
	return d.runPhase(ctx, w, PhasePostBuild, d.opts.PostBuildPlugins, RunOptions{})
}

func (d *Driver) runPhase(ctx context.Context, w *Workflow, phase Phase, plugins []PluginConf, opts RunOptions) error {
	return (&Runner{
		Phase:   phase,
		Backend: d.backend,
		Plugins: plugins,
		Options: opts,
	}).Run(ctx, w)
}
