// Package build drives a single image build: source checkout, base
// image detection, the engine call, and the unbuilt/built state that
// guards which queries are legal when.
package build

import (
	"context"
	"fmt"

	"github.com/buildkiln/kiln/src/backend"
	"github.com/buildkiln/kiln/src/image"
	"github.com/buildkiln/kiln/src/source"
)

// Builder owns one build attempt against one backend. Construction
// fetches the source and resolves the Dockerfile; Build may then be
// called exactly once.
type Builder struct {
	backend backend.Backend
	source  source.Source
	state   StateMachine

	// Image is the target name the built image is tagged as.
	Image image.Name

	// BaseImage is the first FROM of the Dockerfile, updated when a
	// plugin rewrites the base.
	BaseImage image.Name

	// DockerfilePath and DockerfileDir locate the build context.
	DockerfilePath string
	DockerfileDir  string

	imageID string
}

// NewBuilder fetches the source tree, finds the Dockerfile and parses
// its base image. dockerfileRel is relative to the source root.
func NewBuilder(ctx context.Context, b backend.Backend, src source.Source, img image.Name, dockerfileRel string) (*Builder, error) {
	sourcePath, err := src.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching source: %w", err)
	}

	dfPath, dfDir, err := FindDockerfile(sourcePath, dockerfileRel)
	if err != nil {
		return nil, err
	}

	base, err := ParseBaseImage(dfPath)
	if err != nil {
		return nil, err
	}
	baseImage, err := image.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parsing base image %q: %w", base, err)
	}

	return &Builder{
		backend:        b,
		source:         src,
		Image:          img,
		BaseImage:      baseImage,
		DockerfilePath: dfPath,
		DockerfileDir:  dfDir,
	}, nil
}

// Source returns the build's source tree.
func (b *Builder) Source() source.Source { return b.source }

// IsBuilt reports whether the build attempt already happened.
func (b *Builder) IsBuilt() bool { return b.state.IsBuilt() }

// ImageID is the engine id of the built image; empty until a
// successful Build.
func (b *Builder) ImageID() string { return b.imageID }

// SetBaseImage records a rewritten base image name, only legal before
// the build.
func (b *Builder) SetBaseImage(name string) error {
	if err := b.state.EnsureNotBuilt(); err != nil {
		return err
	}
	parsed, err := image.Parse(name)
	if err != nil {
		return fmt.Errorf("parsing base image %q: %w", name, err)
	}
	b.BaseImage = parsed
	return nil
}

// Build runs the engine build and returns its Result. The state flips
// to built no matter how the build ends; calling Build again returns
// ErrImageAlreadyBuilt. In-band build failures come back as a failed
// Result, transport errors as an error.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	if err := b.state.EnsureNotBuilt(); err != nil {
		return nil, err
	}

	stream, err := b.backend.BuildImage(ctx, b.DockerfileDir, b.Image)
	// the attempt is consumed even when the engine call failed
	if stateErr := b.state.MarkBuilt(); stateErr != nil {
		return nil, stateErr
	}
	if err != nil {
		return nil, fmt.Errorf("starting build: %w", err)
	}

	cmd := backend.Wait(stream)
	if cmd.IsFailed() {
		return NewFailedResult(cmd.Error(), cmd.Logs()), nil
	}

	info, err := b.backend.InspectImage(ctx, b.Image.String())
	if err != nil {
		return nil, fmt.Errorf("inspecting built image: %w", err)
	}
	b.imageID = info.ID
	return NewResult(info.ID, cmd.Logs()), nil
}

// InspectBuiltImage queries the engine for the built image, only legal
// after the build.
func (b *Builder) InspectBuiltImage(ctx context.Context) (*backend.ImageInfo, error) {
	if err := b.state.EnsureIsBuilt(); err != nil {
		return nil, err
	}
	return b.backend.InspectImage(ctx, b.Image.String())
}

// InspectBaseImage queries the engine for the base image; legal in any
// state since the base exists independently of the build.
func (b *Builder) InspectBaseImage(ctx context.Context) (*backend.ImageInfo, error) {
	return b.backend.InspectImage(ctx, b.BaseImage.String())
}
