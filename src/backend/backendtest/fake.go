// Package backendtest provides a scriptable in-memory Backend for
// tests, covering the happy path by default.
package backendtest

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/buildkiln/kiln/src/backend"
	"github.com/buildkiln/kiln/src/image"
)

// Fake is an in-memory backend. The zero value builds successfully and
// knows no images; seed Images or set the Fail* knobs to script other
// behavior. All mutating calls are recorded for assertions.
type Fake struct {
	mu sync.Mutex

	// Images maps name -> inspect info. BuildImage registers the built
	// image here on success.
	Images map[string]*backend.ImageInfo

	// BuildLog is the stream emitted by BuildImage; when nil a minimal
	// successful stream is used. FailBuild appends an error item.
	BuildLog  []backend.LogItem
	FailBuild bool

	// PushDigest is returned from PushImage; PushErr fails the push.
	PushDigest string
	PushErr    error
	PullErr    error

	// ContainerExitCode and ContainerLog script RunContainer results.
	ContainerExitCode int
	ContainerLog      []string

	Built      []string // image names passed to BuildImage
	Tagged     []string // "source -> target"
	Pushed     []string
	Pulled     []string
	Removed    []string // removed image names
	Containers []string // created container ids
	Exported   []string
}

var _ backend.Backend = (*Fake)(nil)

func (f *Fake) record(list *[]string, entry string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	*list = append(*list, entry)
}

func (f *Fake) BuildImage(ctx context.Context, contextDir string, img image.Name) (<-chan backend.LogItem, error) {
	f.record(&f.Built, img.String())

	items := f.BuildLog
	if items == nil {
		items = []backend.LogItem{
			{Stream: "Step 1/1 : FROM fedora\n"},
			{Stream: "Successfully built deadbeef\n"},
		}
	}
	if f.FailBuild {
		items = append(items, backend.LogItem{
			Error:       "build failed",
			ErrorDetail: &backend.ErrorDetail{Message: "build failed"},
		})
	}

	stream := make(chan backend.LogItem, len(items))
	for _, item := range items {
		stream <- item
	}
	close(stream)

	if !f.FailBuild {
		f.mu.Lock()
		if f.Images == nil {
			f.Images = map[string]*backend.ImageInfo{}
		}
		if _, ok := f.Images[img.String()]; !ok {
			f.Images[img.String()] = &backend.ImageInfo{ID: "sha256:deadbeef"}
		}
		f.mu.Unlock()
	}
	return stream, nil
}

func (f *Fake) InspectImage(ctx context.Context, name string) (*backend.ImageInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if info, ok := f.Images[name]; ok {
		return info, nil
	}
	return nil, fmt.Errorf("%w: %s", backend.ErrImageNotFound, name)
}

func (f *Fake) TagImage(ctx context.Context, name string, target image.Name) error {
	f.record(&f.Tagged, name+" -> "+target.String())
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Images == nil {
		f.Images = map[string]*backend.ImageInfo{}
	}
	info := f.Images[name]
	if info == nil {
		info = &backend.ImageInfo{ID: "sha256:deadbeef"}
	}
	f.Images[target.String()] = info
	return nil
}

func (f *Fake) PushImage(ctx context.Context, img image.Name) (string, error) {
	if f.PushErr != nil {
		return "", f.PushErr
	}
	f.record(&f.Pushed, img.String())
	if f.PushDigest != "" {
		return f.PushDigest, nil
	}
	return "sha256:0000000000000000000000000000000000000000000000000000000000000000", nil
}

func (f *Fake) PullImage(ctx context.Context, img image.Name) error {
	if f.PullErr != nil {
		return f.PullErr
	}
	f.record(&f.Pulled, img.String())
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Images == nil {
		f.Images = map[string]*backend.ImageInfo{}
	}
	if _, ok := f.Images[img.String()]; !ok {
		f.Images[img.String()] = &backend.ImageInfo{ID: "sha256:base"}
	}
	return nil
}

func (f *Fake) RemoveImage(ctx context.Context, name string) error {
	f.mu.Lock()
	_, ok := f.Images[name]
	delete(f.Images, name)
	f.mu.Unlock()
	f.record(&f.Removed, name)
	if !ok {
		return fmt.Errorf("%w: %s", backend.ErrImageNotFound, name)
	}
	return nil
}

func (f *Fake) ExportImage(ctx context.Context, name string, w io.Writer) error {
	f.record(&f.Exported, name)
	_, err := w.Write([]byte("fake image tarball: " + name))
	return err
}

func (f *Fake) CommitContainer(ctx context.Context, containerID string, img image.Name, message string) (string, error) {
	return "sha256:committed", nil
}

func (f *Fake) RunContainer(ctx context.Context, opts backend.RunOptions) (string, error) {
	id := fmt.Sprintf("container-%d", len(f.Containers))
	f.record(&f.Containers, id)
	return id, nil
}

func (f *Fake) WaitContainer(ctx context.Context, containerID string) (int, error) {
	return f.ContainerExitCode, nil
}

func (f *Fake) ContainerLogs(ctx context.Context, containerID string) ([]string, error) {
	return f.ContainerLog, nil
}

func (f *Fake) RemoveContainer(ctx context.Context, containerID string) error {
	return nil
}
