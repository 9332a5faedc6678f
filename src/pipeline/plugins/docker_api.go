package plugins

import (
	"context"
	"fmt"

	"github.com/buildkiln/kiln/src/backend"
	"github.com/buildkiln/kiln/src/pipeline"
)

// dockerAPI is the default build-step plugin: it runs the build
// through the engine API and stores the outcome on the workflow.
type dockerAPI struct {
	workflow *pipeline.Workflow
}

func init() {
	pipeline.Register(pipeline.PhaseBuildStep, "docker_api",
		func(b backend.Backend, w *pipeline.Workflow, args map[string]any) (pipeline.Plugin, error) {
			return &dockerAPI{workflow: w}, nil
		})
}

func (p *dockerAPI) Key() string         { return "docker_api" }
func (p *dockerAPI) AllowedToFail() bool { return false }

func (p *dockerAPI) Run(ctx context.Context) (any, error) {
	builder := p.workflow.Builder
	if builder == nil {
		return nil, fmt.Errorf("no builder prepared")
	}

	result, err := builder.Build(ctx)
	if err != nil {
		return nil, err
	}
	p.workflow.BuildResult = result

	for _, line := range result.Logs() {
		p.workflow.Logf("build: %s", line)
	}
	if result.IsFailed() {
		p.workflow.Logf("build failed: %s", result.FailReason())
	} else {
		p.workflow.Logf("built image %s (%s)", p.workflow.Image, result.ImageID())
	}
	return result, nil
}
