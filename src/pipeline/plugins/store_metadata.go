package plugins

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/buildkiln/kiln/src/backend"
	"github.com/buildkiln/kiln/src/pipeline"
)

// BuildMetadata is the exported record of one build run.
type BuildMetadata struct {
	Image       string                       `json:"image"`
	ImageID     string                       `json:"image_id,omitempty"`
	Status      string                       `json:"status"`
	FailReason  string                       `json:"fail_reason,omitempty"`
	Errors      map[string]map[string]string `json:"errors,omitempty"`
	Durations   map[string]map[string]string `json:"durations,omitempty"`
	Digests     map[string]map[string]string `json:"digests,omitempty"`
	Exported    []pipeline.ExportedImage     `json:"exported_images,omitempty"`
	RPMPackages []string                     `json:"rpm_packages,omitempty"`
	GeneratedAt string                       `json:"generated_at"`
}

// storeMetadata serializes the workflow into a JSON file at the end of
// the build, success or failure.
type storeMetadata struct {
	workflow *pipeline.Workflow
	path     string
}

func init() {
	pipeline.Register(pipeline.PhaseExit, "store_metadata",
		func(b backend.Backend, w *pipeline.Workflow, args map[string]any) (pipeline.Plugin, error) {
			path, err := stringArg(args, "path", "kiln-metadata.json")
			if err != nil {
				return nil, err
			}
			return &storeMetadata{workflow: w, path: path}, nil
		})
}

func (p *storeMetadata) Key() string         { return "store_metadata" }
func (p *storeMetadata) AllowedToFail() bool { return true }

func (p *storeMetadata) Run(ctx context.Context) (any, error) {
	meta := p.collect()

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serializing metadata: %w", err)
	}
	if err := os.WriteFile(p.path, append(data, '\n'), 0o644); err != nil {
		return nil, fmt.Errorf("writing metadata: %w", err)
	}
	p.workflow.Logf("stored build metadata in %s", p.path)
	return p.path, nil
}

func (p *storeMetadata) collect() BuildMetadata {
	w := p.workflow
	meta := BuildMetadata{
		Image:       w.Image.String(),
		Status:      "success",
		Exported:    w.ExportedImageSequence,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}

	switch {
	case w.AutoRebuildCanceled:
		meta.Status = "canceled"
	case w.BuildProcessFailed():
		meta.Status = "failed"
	}
	if w.BuildResult != nil {
		meta.ImageID = w.BuildResult.ImageID()
		meta.FailReason = w.BuildResult.FailReason()
	}

	for _, phase := range pipeline.Phases {
		if errs := w.Errors(phase); len(errs) > 0 {
			if meta.Errors == nil {
				meta.Errors = map[string]map[string]string{}
			}
			meta.Errors[string(phase)] = errs
		}
		if durations := w.Durations(phase); len(durations) > 0 {
			if meta.Durations == nil {
				meta.Durations = map[string]map[string]string{}
			}
			rendered := make(map[string]string, len(durations))
			for plugin, took := range durations {
				rendered[plugin] = took.Round(time.Millisecond).String()
			}
			meta.Durations[string(phase)] = rendered
		}
	}

	for _, reg := range w.PushConf.DockerRegistries() {
		if len(reg.Digests) == 0 {
			continue
		}
		if meta.Digests == nil {
			meta.Digests = map[string]map[string]string{}
		}
		meta.Digests[reg.URI] = reg.Digests
	}

	if result, ok := w.Result(pipeline.PhasePostBuild, "all_rpm_packages"); ok {
		if packages, ok := result.([]string); ok {
			meta.RPMPackages = packages
		}
	}
	return meta
}
