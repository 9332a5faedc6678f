package plugins

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/buildkiln/kiln/src/backend"
	"github.com/buildkiln/kiln/src/image"
	"github.com/buildkiln/kiln/src/pipeline"
	"github.com/buildkiln/kiln/src/registry"
)

// registryTarget is one push destination from the plugin args.
type registryTarget struct {
	URI      string
	Insecure bool
}

// tagAndPush tags the built image for every configured registry and
// pushes each tag, recording the returned manifest digests. Pushes to
// different registries run concurrently, they share nothing but the
// local image.
type tagAndPush struct {
	backend    backend.Backend
	workflow   *pipeline.Workflow
	registries []registryTarget
}

func init() {
	pipeline.Register(pipeline.PhasePostBuild, "tag_and_push",
		func(b backend.Backend, w *pipeline.Workflow, args map[string]any) (pipeline.Plugin, error) {
			targets, err := parseRegistryTargets(args)
			if err != nil {
				return nil, err
			}
			if len(targets) == 0 {
				return nil, fmt.Errorf("arg \"registries\" is required")
			}
			return &tagAndPush{backend: b, workflow: w, registries: targets}, nil
		})
}

func parseRegistryTargets(args map[string]any) ([]registryTarget, error) {
	value, ok := args["registries"]
	if !ok {
		return nil, nil
	}
	raw, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("arg \"registries\": expected list, got %T", value)
	}

	targets := make([]registryTarget, 0, len(raw))
	for i, entry := range raw {
		switch e := entry.(type) {
		case string:
			targets = append(targets, registryTarget{URI: e})
		case map[string]any:
			uri, err := requiredStringArg(e, "uri")
			if err != nil {
				return nil, fmt.Errorf("registries[%d]: %w", i, err)
			}
			insecure, err := boolArg(e, "insecure", false)
			if err != nil {
				return nil, fmt.Errorf("registries[%d]: %w", i, err)
			}
			targets = append(targets, registryTarget{URI: uri, Insecure: insecure})
		default:
			return nil, fmt.Errorf("registries[%d]: expected string or mapping, got %T", i, entry)
		}
	}
	return targets, nil
}

func (p *tagAndPush) Key() string         { return "tag_and_push" }
func (p *tagAndPush) AllowedToFail() bool { return false }

func (p *tagAndPush) Run(ctx context.Context) (any, error) {
	tags := p.workflow.TagConf.Images()
	if len(tags) == 0 {
		tags = []image.Name{p.workflow.Image}
	}

	var mu sync.Mutex
	pushed := map[string]string{}

	group, ctx := errgroup.WithContext(ctx)
	for _, target := range p.registries {
		reg := p.workflow.PushConf.DockerRegistry(target.URI, target.Insecure)
		group.Go(func() error {
			for _, tag := range tags {
				remote := tag.WithRegistry(target.URI)
				if err := p.backend.TagImage(ctx, p.workflow.Image.String(), remote); err != nil {
					return err
				}

				digest, err := p.backend.PushImage(ctx, remote)
				if err != nil {
					return err
				}
				if digest == "" {
					// older engines omit the digest from the push
					// stream, ask the registry directly
					digest, err = registry.NewSession(target.URI, target.Insecure).ManifestDigest(ctx, remote)
					if err != nil {
						p.workflow.Logf("querying digest of %s: %v", remote, err)
					}
				}

				mu.Lock()
				reg.Digests[remote.String()] = digest
				pushed[remote.String()] = digest
				mu.Unlock()
				p.workflow.Logf("pushed %s (%s)", remote, digest)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return pushed, nil
}
