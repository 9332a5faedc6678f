package plugins

import (
	"context"
	"fmt"

	"github.com/buildkiln/kiln/src/backend"
	"github.com/buildkiln/kiln/src/pipeline"
)

// pullBaseImage fetches the Dockerfile's base image before the build,
// so the build never races against a missing or stale base.
type pullBaseImage struct {
	backend  backend.Backend
	workflow *pipeline.Workflow
}

func init() {
	pipeline.Register(pipeline.PhasePreBuild, "pull_base_image",
		func(b backend.Backend, w *pipeline.Workflow, args map[string]any) (pipeline.Plugin, error) {
			return &pullBaseImage{backend: b, workflow: w}, nil
		})
}

func (p *pullBaseImage) Key() string         { return "pull_base_image" }
func (p *pullBaseImage) AllowedToFail() bool { return false }

func (p *pullBaseImage) Run(ctx context.Context) (any, error) {
	builder := p.workflow.Builder
	if builder == nil {
		return nil, fmt.Errorf("no builder prepared")
	}

	base := builder.BaseImage
	p.workflow.Logf("pulling base image %s", base)
	if err := p.backend.PullImage(ctx, base); err != nil {
		return nil, err
	}

	info, err := p.backend.InspectImage(ctx, base.String())
	if err != nil {
		return nil, err
	}
	return info.ID, nil
}
