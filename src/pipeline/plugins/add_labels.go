package plugins

import (
	"context"
	"fmt"
	"time"

	"github.com/buildkiln/kiln/src/backend"
	"github.com/buildkiln/kiln/src/build"
	"github.com/buildkiln/kiln/src/pipeline"
)

// addLabels appends descriptor-provided and VCS provenance labels to
// the Dockerfile before the build.
type addLabels struct {
	workflow *pipeline.Workflow
	labels   map[string]string
	vcs      bool
	now      func() time.Time
}

func init() {
	pipeline.Register(pipeline.PhasePreBuild, "add_labels",
		func(b backend.Backend, w *pipeline.Workflow, args map[string]any) (pipeline.Plugin, error) {
			labels, err := stringMapArg(args, "labels")
			if err != nil {
				return nil, err
			}
			vcs, err := boolArg(args, "vcs_labels", true)
			if err != nil {
				return nil, err
			}
			return &addLabels{workflow: w, labels: labels, vcs: vcs, now: time.Now}, nil
		})
}

func (p *addLabels) Key() string         { return "add_labels" }
func (p *addLabels) AllowedToFail() bool { return false }

func (p *addLabels) Run(ctx context.Context) (any, error) {
	builder := p.workflow.Builder
	if builder == nil {
		return nil, fmt.Errorf("no builder prepared")
	}

	labels := map[string]string{}
	for key, value := range p.labels {
		labels[key] = value
	}
	labels["build-date"] = p.now().UTC().Format(time.RFC3339)

	if p.vcs && p.workflow.Source != nil {
		if info := p.workflow.Source.VCSInfo(); info != nil {
			labels["vcs-type"] = info.VCSType
			labels["vcs-url"] = info.VCSURL
			labels["vcs-ref"] = info.VCSRef
		}
	}

	if err := build.AppendLabels(builder.DockerfilePath, labels); err != nil {
		return nil, err
	}
	return labels, nil
}
