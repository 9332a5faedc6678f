package plugins

import (
	"context"
	"errors"

	"github.com/buildkiln/kiln/src/backend"
	"github.com/buildkiln/kiln/src/pipeline"
)

// checkRebuild stops automated rebuilds whose target image already
// exists, so rebuild triggers do not churn registries with identical
// images. The cancellation is a distinct terminal state, not a
// failure.
type checkRebuild struct {
	backend        backend.Backend
	workflow       *pipeline.Workflow
	cancelIfExists bool
}

func init() {
	pipeline.Register(pipeline.PhasePreBuild, "check_rebuild",
		func(b backend.Backend, w *pipeline.Workflow, args map[string]any) (pipeline.Plugin, error) {
			cancelIfExists, err := boolArg(args, "cancel_if_exists", true)
			if err != nil {
				return nil, err
			}
			return &checkRebuild{backend: b, workflow: w, cancelIfExists: cancelIfExists}, nil
		})
}

func (p *checkRebuild) Key() string         { return "check_rebuild" }
func (p *checkRebuild) AllowedToFail() bool { return false }

func (p *checkRebuild) Run(ctx context.Context) (any, error) {
	if !p.cancelIfExists {
		return false, nil
	}

	info, err := p.backend.InspectImage(ctx, p.workflow.Image.String())
	if errors.Is(err, backend.ErrImageNotFound) {
		return false, nil
	}
	if err != nil {
		return nil, err
	}

	return nil, &pipeline.AutoRebuildCanceledError{
		Plugin: p.Key(),
		Reason: "image " + p.workflow.Image.String() + " already exists as " + info.ID,
	}
}
