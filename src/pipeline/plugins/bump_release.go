package plugins

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/buildkiln/kiln/src/backend"
	"github.com/buildkiln/kiln/src/build"
	"github.com/buildkiln/kiln/src/pipeline"
)

const defaultReleaseLabel = "release"

// bumpRelease gives every rebuild a fresh release label: it reads the
// previous build's release from the engine and appends the patch-bumped
// successor to the Dockerfile. The first build starts at 1.0.0.
type bumpRelease struct {
	backend  backend.Backend
	workflow *pipeline.Workflow
	label    string
}

func init() {
	pipeline.Register(pipeline.PhasePreBuild, "bump_release",
		func(b backend.Backend, w *pipeline.Workflow, args map[string]any) (pipeline.Plugin, error) {
			label, err := stringArg(args, "label", defaultReleaseLabel)
			if err != nil {
				return nil, err
			}
			return &bumpRelease{backend: b, workflow: w, label: label}, nil
		})
}

func (p *bumpRelease) Key() string         { return "bump_release" }
func (p *bumpRelease) AllowedToFail() bool { return false }

func (p *bumpRelease) Run(ctx context.Context) (any, error) {
	builder := p.workflow.Builder
	if builder == nil {
		return nil, fmt.Errorf("no builder prepared")
	}

	// explicit release in the Dockerfile wins, nothing to bump
	labels, err := build.ParseLabels(builder.DockerfilePath)
	if err != nil {
		return nil, err
	}
	if value, ok := labels[p.label]; ok {
		p.workflow.Logf("release pinned in Dockerfile: %s", value)
		return value, nil
	}

	release := "1.0.0"
	info, err := p.backend.InspectImage(ctx, p.workflow.Image.String())
	switch {
	case errors.Is(err, backend.ErrImageNotFound):
		// first build of this tag
	case err != nil:
		return nil, err
	default:
		if previous, ok := info.Labels[p.label]; ok {
			version, err := semver.NewVersion(previous)
			if err != nil {
				return nil, fmt.Errorf("previous %s label %q: %w", p.label, previous, err)
			}
			next := version.IncPatch()
			release = next.String()
		}
	}

	if err := build.AppendLabels(builder.DockerfilePath, map[string]string{p.label: release}); err != nil {
		return nil, err
	}
	p.workflow.Logf("release for this build: %s", release)
	return release, nil
}
