package plugins

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/buildkiln/kiln/src/backend"
	"github.com/buildkiln/kiln/src/build"
	"github.com/buildkiln/kiln/src/pipeline"
)

const defaultPinFile = "kiln-pins.toml"

// pinFile is the on-disk pin table: repository -> exact reference.
type pinFile struct {
	Pins map[string]string `toml:"pins"`
}

// pinBaseImage rewrites the Dockerfile's base image to the exact
// reference pinned in the repository's pin file, making rebuilds
// reproducible against moving tags.
type pinBaseImage struct {
	workflow *pipeline.Workflow
	file     string
}

func init() {
	pipeline.Register(pipeline.PhasePreBuild, "pin_base_image",
		func(b backend.Backend, w *pipeline.Workflow, args map[string]any) (pipeline.Plugin, error) {
			file, err := stringArg(args, "pin_file", defaultPinFile)
			if err != nil {
				return nil, err
			}
			return &pinBaseImage{workflow: w, file: file}, nil
		})
}

func (p *pinBaseImage) Key() string         { return "pin_base_image" }
func (p *pinBaseImage) AllowedToFail() bool { return false }

func (p *pinBaseImage) Run(ctx context.Context) (any, error) {
	builder := p.workflow.Builder
	if builder == nil {
		return nil, fmt.Errorf("no builder prepared")
	}

	path := filepath.Join(builder.DockerfileDir, p.file)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		p.workflow.Logf("no %s, base image stays %s", p.file, builder.BaseImage)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading pin file: %w", err)
	}

	var pins pinFile
	if err := toml.Unmarshal(data, &pins); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", p.file, err)
	}

	base := builder.BaseImage
	pinned, ok := pins.Pins[base.Repository()]
	if !ok {
		pinned, ok = pins.Pins[base.String()]
	}
	if !ok {
		p.workflow.Logf("no pin for %s", base)
		return nil, nil
	}

	if err := build.ReplaceBaseImage(builder.DockerfilePath, pinned); err != nil {
		return nil, err
	}
	if err := builder.SetBaseImage(pinned); err != nil {
		return nil, err
	}
	p.workflow.Logf("pinned base image %s -> %s", base, pinned)
	return pinned, nil
}
