package plugins

import (
	"context"
	"errors"

	"github.com/buildkiln/kiln/src/backend"
	"github.com/buildkiln/kiln/src/pipeline"
)

// removeBuiltImage cleans the built image and its local tags off the
// engine after the build, keeping build hosts from filling up.
type removeBuiltImage struct {
	backend  backend.Backend
	workflow *pipeline.Workflow
}

func init() {
	pipeline.Register(pipeline.PhaseExit, "remove_built_image",
		func(b backend.Backend, w *pipeline.Workflow, args map[string]any) (pipeline.Plugin, error) {
			return &removeBuiltImage{backend: b, workflow: w}, nil
		})
}

func (p *removeBuiltImage) Key() string         { return "remove_built_image" }
func (p *removeBuiltImage) AllowedToFail() bool { return true }

func (p *removeBuiltImage) Run(ctx context.Context) (any, error) {
	if p.workflow.Builder == nil || !p.workflow.Builder.IsBuilt() {
		return nil, nil
	}

	var removed []string
	names := []string{p.workflow.Image.String()}
	for _, reg := range p.workflow.PushConf.DockerRegistries() {
		for name := range reg.Digests {
			names = append(names, name)
		}
	}

	for _, name := range names {
		err := p.backend.RemoveImage(ctx, name)
		if errors.Is(err, backend.ErrImageNotFound) {
			continue
		}
		if err != nil {
			return removed, err
		}
		removed = append(removed, name)
	}
	return removed, nil
}
