package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"time"

	docker "github.com/fsouza/go-dockerclient"

	"github.com/buildkiln/kiln/src/image"
)

// Docker implements Backend against a docker daemon. Every unary call
// is wrapped in the transient-status retry policy; the build stream is
// not retried, a broken stream surfaces as an error item.
type Docker struct {
	client *docker.Client
	retry  Retry
	auth   docker.AuthConfiguration
}

// DockerOptions configures the docker backend.
type DockerOptions struct {
	// Endpoint of the daemon; empty means DOCKER_HOST/environment.
	Endpoint string
	Retries  int
	Backoff  time.Duration
	Username string
	Password string
}

// NewDocker connects to the docker daemon.
func NewDocker(opts DockerOptions) (*Docker, error) {
	var client *docker.Client
	var err error
	if opts.Endpoint != "" {
		client, err = docker.NewClient(opts.Endpoint)
	} else {
		client, err = docker.NewClientFromEnv()
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to docker: %w", err)
	}

	retries := opts.Retries
	if retries == 0 {
		retries = DefaultRetryCount
	}
	backoff := opts.Backoff
	if backoff == 0 {
		backoff = DefaultBackoff
	}

	return &Docker{
		client: client,
		retry:  Retry{Times: retries, Delay: backoff, Status: dockerStatus},
		auth:   docker.AuthConfiguration{Username: opts.Username, Password: opts.Password},
	}, nil
}

// dockerStatus extracts the HTTP status from a daemon API error.
func dockerStatus(err error) (int, bool) {
	var de *docker.Error
	if errors.As(err, &de) {
		return de.Status, true
	}
	return 0, false
}

// BuildImage submits a build and returns the decoded log stream. The
// stream is closed when the build finishes; failures during the build
// appear as error items, not as a returned error.
func (d *Docker) BuildImage(ctx context.Context, contextDir string, img image.Name) (<-chan LogItem, error) {
	pr, pw := io.Pipe()
	stream := make(chan LogItem)

	go func() {
		err := d.client.BuildImage(docker.BuildImageOptions{
			Context:             ctx,
			ContextDir:          contextDir,
			Name:                img.String(),
			OutputStream:        pw,
			RawJSONStream:       true,
			NoCache:             true,
			RmTmpContainer:      true,
			ForceRmTmpContainer: true,
		})
		pw.CloseWithError(err)
	}()

	go func() {
		defer close(stream)
		dec := json.NewDecoder(pr)
		for {
			var item LogItem
			err := dec.Decode(&item)
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				stream <- LogItem{Error: err.Error()}
				return
			}
			stream <- item
		}
	}()

	return stream, nil
}

func (d *Docker) InspectImage(ctx context.Context, name string) (*ImageInfo, error) {
	var img *docker.Image
	err := d.retry.Do(func() error {
		var inner error
		img, inner = d.client.InspectImage(name)
		return inner
	})
	if errors.Is(err, docker.ErrNoSuchImage) {
		return nil, fmt.Errorf("%w: %s", ErrImageNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("inspecting image %s: %w", name, err)
	}

	info := &ImageInfo{
		ID:           img.ID,
		Parent:       img.Parent,
		Created:      img.Created.Format(time.RFC3339),
		Architecture: img.Architecture,
		RepoDigests:  img.RepoDigests,
		Size:         img.Size,
	}
	if img.Config != nil {
		info.Labels = img.Config.Labels
		info.Env = img.Config.Env
	}
	return info, nil
}

func (d *Docker) TagImage(ctx context.Context, name string, target image.Name) error {
	err := d.retry.Do(func() error {
		return d.client.TagImage(name, docker.TagImageOptions{
			Context: ctx,
			Repo:    target.Format(image.FormatOptions{NoTag: true}),
			Tag:     target.Tag,
			Force:   true,
		})
	})
	if err != nil {
		return fmt.Errorf("tagging %s as %s: %w", name, target, err)
	}
	return nil
}

// pushDigestRe matches the digest status line of a completed push.
var pushDigestRe = regexp.MustCompile(`digest:\s*(sha256:[0-9a-f]+)`)

func (d *Docker) PushImage(ctx context.Context, img image.Name) (string, error) {
	var out bytes.Buffer
	err := d.retry.Do(func() error {
		out.Reset()
		return d.client.PushImage(docker.PushImageOptions{
			Context:       ctx,
			Name:          img.Format(image.FormatOptions{NoTag: true}),
			Tag:           img.Tag,
			Registry:      img.Registry,
			OutputStream:  &out,
			RawJSONStream: true,
		}, d.auth)
	})
	if err != nil {
		return "", fmt.Errorf("pushing %s: %w", img, err)
	}

	result := decodeStream(out.Bytes())
	if result.IsFailed() {
		return "", fmt.Errorf("pushing %s: %s", img, result.Error())
	}
	for _, line := range result.Logs() {
		if m := pushDigestRe.FindStringSubmatch(line); m != nil {
			return m[1], nil
		}
	}
	return "", nil
}

func (d *Docker) PullImage(ctx context.Context, img image.Name) error {
	var out bytes.Buffer
	err := d.retry.Do(func() error {
		out.Reset()
		return d.client.PullImage(docker.PullImageOptions{
			Context:       ctx,
			Repository:    img.Format(image.FormatOptions{NoTag: true}),
			Tag:           img.Tag,
			Registry:      img.Registry,
			OutputStream:  &out,
			RawJSONStream: true,
		}, d.auth)
	})
	if err != nil {
		return fmt.Errorf("pulling %s: %w", img, err)
	}
	if result := decodeStream(out.Bytes()); result.IsFailed() {
		return fmt.Errorf("pulling %s: %s", img, result.Error())
	}
	return nil
}

func (d *Docker) RemoveImage(ctx context.Context, name string) error {
	err := d.retry.Do(func() error {
		return d.client.RemoveImageExtended(name, docker.RemoveImageOptions{Context: ctx})
	})
	if errors.Is(err, docker.ErrNoSuchImage) {
		return fmt.Errorf("%w: %s", ErrImageNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("removing image %s: %w", name, err)
	}
	return nil
}

func (d *Docker) ExportImage(ctx context.Context, name string, w io.Writer) error {
	err := d.client.ExportImage(docker.ExportImageOptions{
		Context:      ctx,
		Name:         name,
		OutputStream: w,
	})
	if err != nil {
		return fmt.Errorf("exporting image %s: %w", name, err)
	}
	return nil
}

func (d *Docker) CommitContainer(ctx context.Context, containerID string, img image.Name, message string) (string, error) {
	var committed *docker.Image
	err := d.retry.Do(func() error {
		var inner error
		committed, inner = d.client.CommitContainer(docker.CommitContainerOptions{
			Context:    ctx,
			Container:  containerID,
			Repository: img.Format(image.FormatOptions{NoTag: true}),
			Tag:        img.Tag,
			Message:    message,
		})
		return inner
	})
	if err != nil {
		return "", fmt.Errorf("committing container %s: %w", containerID, err)
	}
	return committed.ID, nil
}

func (d *Docker) RunContainer(ctx context.Context, opts RunOptions) (string, error) {
	var container *docker.Container
	err := d.retry.Do(func() error {
		var inner error
		container, inner = d.client.CreateContainer(docker.CreateContainerOptions{
			Context: ctx,
			Config: &docker.Config{
				Image: opts.Image.String(),
				Cmd:   opts.Command,
			},
			HostConfig: &docker.HostConfig{
				Binds:      opts.Binds,
				Privileged: opts.Privileged,
			},
		})
		return inner
	})
	if err != nil {
		return "", fmt.Errorf("creating container from %s: %w", opts.Image, err)
	}

	if err := d.client.StartContainerWithContext(container.ID, nil, ctx); err != nil {
		return "", fmt.Errorf("starting container %s: %w", container.ID, err)
	}
	return container.ID, nil
}

func (d *Docker) WaitContainer(ctx context.Context, containerID string) (int, error) {
	code, err := d.client.WaitContainerWithContext(containerID, ctx)
	if err != nil {
		return 0, fmt.Errorf("waiting for container %s: %w", containerID, err)
	}
	return code, nil
}

func (d *Docker) ContainerLogs(ctx context.Context, containerID string) ([]string, error) {
	var out bytes.Buffer
	err := d.client.Logs(docker.LogsOptions{
		Context:      ctx,
		Container:    containerID,
		Stdout:       true,
		Stderr:       true,
		OutputStream: &out,
		ErrorStream:  &out,
	})
	if err != nil {
		return nil, fmt.Errorf("reading logs of container %s: %w", containerID, err)
	}

	var lines []string
	for _, line := range bytes.Split(out.Bytes(), []byte("\n")) {
		if len(line) > 0 {
			lines = append(lines, string(line))
		}
	}
	return lines, nil
}

func (d *Docker) RemoveContainer(ctx context.Context, containerID string) error {
	err := d.retry.Do(func() error {
		return d.client.RemoveContainer(docker.RemoveContainerOptions{
			Context: ctx,
			ID:      containerID,
			Force:   true,
		})
	})
	if err != nil {
		return fmt.Errorf("removing container %s: %w", containerID, err)
	}
	return nil
}

// decodeStream decodes a buffered raw JSON stream into a CommandResult.
func decodeStream(data []byte) *CommandResult {
	result := &CommandResult{}
	dec := json.NewDecoder(bytes.NewReader(data))
	for {
		var item LogItem
		if err := dec.Decode(&item); err != nil {
			return result
		}
		result.ParseItem(item)
	}
}
