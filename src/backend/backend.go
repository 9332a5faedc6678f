// Package backend defines the narrow container-engine contract the
// build pipeline depends on, plus the docker implementation of it.
package backend

import (
	"context"
	"errors"
	"io"

	"github.com/buildkiln/kiln/src/image"
)

// ErrImageNotFound is returned by InspectImage for unknown images.
var ErrImageNotFound = errors.New("backend: image not found")

// LogItem is one decoded entry of an engine log stream. A non-empty
// Error or ErrorDetail marks the operation as failed.
type LogItem struct {
	Stream      string       `json:"stream,omitempty"`
	Status      string       `json:"status,omitempty"`
	Error       string       `json:"error,omitempty"`
	ErrorDetail *ErrorDetail `json:"errorDetail,omitempty"`
}

// ErrorDetail carries structured failure info from the engine.
type ErrorDetail struct {
	Code    int    `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// ImageInfo is the subset of engine inspect output the pipeline reads.
type ImageInfo struct {
	ID           string
	Parent       string
	Created      string
	Architecture string
	Labels       map[string]string
	Env          []string
	RepoDigests  []string
	Size         int64
}

// RunOptions configures an auxiliary container run.
type RunOptions struct {
	Image      image.Name
	Command    []string
	Binds      []string
	Privileged bool
}

// Backend is the container-engine contract. BuildImage is
// asynchronous: callers must drain the returned stream to observe
// completion, and a failed build is reported in-band through error
// items rather than through the error return.
type Backend interface {
	BuildImage(ctx context.Context, contextDir string, img image.Name) (<-chan LogItem, error)
	InspectImage(ctx context.Context, name string) (*ImageInfo, error)
	TagImage(ctx context.Context, name string, target image.Name) error
	PushImage(ctx context.Context, img image.Name) (digest string, err error)
	PullImage(ctx context.Context, img image.Name) error
	RemoveImage(ctx context.Context, name string) error
	ExportImage(ctx context.Context, name string, w io.Writer) error
	CommitContainer(ctx context.Context, containerID string, img image.Name, message string) (string, error)
	RunContainer(ctx context.Context, opts RunOptions) (containerID string, err error)
	WaitContainer(ctx context.Context, containerID string) (exitCode int, err error)
	ContainerLogs(ctx context.Context, containerID string) ([]string, error)
	RemoveContainer(ctx context.Context, containerID string) error
}
