package plugins

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/buildkiln/kiln/src/backend"
	"github.com/buildkiln/kiln/src/pipeline"
)

const defaultHelpFile = "help.md"

// addHelp ships the repository's help file inside the image, so
// `docker run image help` style tooling can find it. A repository
// without a help file is fine, the plugin is a no-op then.
type addHelp struct {
	workflow *pipeline.Workflow
	helpFile string
}

func init() {
	pipeline.Register(pipeline.PhasePreBuild, "add_help",
		func(b backend.Backend, w *pipeline.Workflow, args map[string]any) (pipeline.Plugin, error) {
			helpFile, err := stringArg(args, "help_file", defaultHelpFile)
			if err != nil {
				return nil, err
			}
			return &addHelp{workflow: w, helpFile: helpFile}, nil
		})
}

func (p *addHelp) Key() string         { return "add_help" }
func (p *addHelp) AllowedToFail() bool { return false }

func (p *addHelp) Run(ctx context.Context) (any, error) {
	builder := p.workflow.Builder
	if builder == nil {
		return nil, fmt.Errorf("no builder prepared")
	}

	helpPath := filepath.Join(builder.DockerfileDir, p.helpFile)
	if _, err := os.Stat(helpPath); os.IsNotExist(err) {
		p.workflow.Logf("no %s in source, skipping help injection", p.helpFile)
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("checking help file: %w", err)
	}

	instruction := fmt.Sprintf("\nADD %s /%s\n", p.helpFile, p.helpFile)
	f, err := os.OpenFile(builder.DockerfilePath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("appending help instruction: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(instruction); err != nil {
		return nil, fmt.Errorf("appending help instruction: %w", err)
	}
	return p.helpFile, nil
}
