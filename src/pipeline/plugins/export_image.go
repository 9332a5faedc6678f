package plugins

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/buildkiln/kiln/src/backend"
	"github.com/buildkiln/kiln/src/pipeline"
)

// exportImage writes the built image as a tarball next to the source
// tree and records its checksummed metadata on the workflow.
type exportImage struct {
	backend  backend.Backend
	workflow *pipeline.Workflow
	filename string
}

func init() {
	pipeline.Register(pipeline.PhasePrePublish, "export_image",
		func(b backend.Backend, w *pipeline.Workflow, args map[string]any) (pipeline.Plugin, error) {
			filename, err := stringArg(args, "filename", "image.tar")
			if err != nil {
				return nil, err
			}
			return &exportImage{backend: b, workflow: w, filename: filename}, nil
		})
}

func (p *exportImage) Key() string         { return "export_image" }
func (p *exportImage) AllowedToFail() bool { return false }

func (p *exportImage) Run(ctx context.Context) (any, error) {
	if p.workflow.Source == nil {
		return nil, fmt.Errorf("no source workdir to export into")
	}

	path := filepath.Join(p.workflow.Source.Workdir(), p.filename)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating export file: %w", err)
	}

	if err := p.backend.ExportImage(ctx, p.workflow.Image.String(), f); err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("writing export file: %w", err)
	}

	exported, err := pipeline.DescribeExportedImage(path, "docker-archive")
	if err != nil {
		return nil, err
	}
	p.workflow.ExportedImageSequence = append(p.workflow.ExportedImageSequence, exported)
	p.workflow.Files[p.filename] = path
	p.workflow.Logf("exported image to %s (%d bytes)", path, exported.Size)
	return exported, nil
}
