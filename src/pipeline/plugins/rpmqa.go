package plugins

import (
	"context"
	"fmt"

	"github.com/buildkiln/kiln/src/backend"
	"github.com/buildkiln/kiln/src/pipeline"
)

// rpmqa lists the rpm packages installed in the built image by running
// `rpm -qa` in a throwaway container, so the package inventory lands
// in the build metadata.
type rpmqa struct {
	backend  backend.Backend
	workflow *pipeline.Workflow
	queryFmt string
}

func init() {
	pipeline.Register(pipeline.PhasePostBuild, "all_rpm_packages",
		func(b backend.Backend, w *pipeline.Workflow, args map[string]any) (pipeline.Plugin, error) {
			queryFmt, err := stringArg(args, "query_format", "")
			if err != nil {
				return nil, err
			}
			return &rpmqa{backend: b, workflow: w, queryFmt: queryFmt}, nil
		})
}

func (p *rpmqa) Key() string         { return "all_rpm_packages" }
func (p *rpmqa) AllowedToFail() bool { return true }

func (p *rpmqa) Run(ctx context.Context) (any, error) {
	command := []string{"rpm", "-qa"}
	if p.queryFmt != "" {
		command = append(command, "--qf", p.queryFmt)
	}

	containerID, err := p.backend.RunContainer(ctx, backend.RunOptions{
		Image:   p.workflow.Image,
		Command: command,
	})
	if err != nil {
		return nil, err
	}
	defer p.backend.RemoveContainer(ctx, containerID)

	code, err := p.backend.WaitContainer(ctx, containerID)
	if err != nil {
		return nil, err
	}
	logs, logErr := p.backend.ContainerLogs(ctx, containerID)
	if code != 0 {
		return nil, fmt.Errorf("rpm -qa exited with %d", code)
	}
	if logErr != nil {
		return nil, logErr
	}
	return logs, nil
}
