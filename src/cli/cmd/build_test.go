package cmd

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/buildkiln/kiln/src/backend"
	"github.com/buildkiln/kiln/src/build"
	"github.com/buildkiln/kiln/src/image"
	"github.com/buildkiln/kiln/src/pipeline"
)

type noopPlugin struct {
	key string
	err error
}

func (p noopPlugin) Key() string         { return p.key }
func (p noopPlugin) AllowedToFail() bool { return true }
func (p noopPlugin) Run(ctx context.Context) (any, error) {
	return nil, p.err
}

func init() {
	for _, name := range []string{"render_alpha", "render_beta", "render_gamma"} {
		var failure error
		if name == "render_beta" {
			failure = errors.New("scripted failure")
		}
		plugin := noopPlugin{key: name, err: failure}
		pipeline.Register(pipeline.PhaseExit, name,
			func(b backend.Backend, w *pipeline.Workflow, args map[string]any) (pipeline.Plugin, error) {
				return plugin, nil
			})
	}
}

func renderedWorkflow(t *testing.T) *pipeline.Workflow {
	t.Helper()
	img, err := image.Parse("registry.example.com/app:1.0")
	if err != nil {
		t.Fatal(err)
	}
	w := pipeline.NewWorkflow(img, nil, nil)
	r := &pipeline.Runner{
		Phase: pipeline.PhaseExit,
		Plugins: []pipeline.PluginConf{
			{Name: "render_alpha"},
			{Name: "render_beta"},
			{Name: "render_gamma"},
		},
		Options: pipeline.RunOptions{KeepGoing: true},
	}
	if err := r.Run(context.Background(), w); err != nil {
		t.Fatal(err)
	}
	return w
}

func TestRenderPhasesExecutionOrder(t *testing.T) {
	w := renderedWorkflow(t)

	var out bytes.Buffer
	renderPhases(w, &out, false)

	text := out.String()
	alpha := strings.Index(text, "render_alpha")
	beta := strings.Index(text, "render_beta")
	gamma := strings.Index(text, "render_gamma")
	if alpha < 0 || beta < 0 || gamma < 0 {
		t.Fatalf("missing plugin rows:\n%s", text)
	}
	if !(alpha < beta && beta < gamma) {
		t.Errorf("rows out of execution order:\n%s", text)
	}
	if !strings.Contains(text, "scripted failure") {
		t.Errorf("failure note missing:\n%s", text)
	}
}

func TestBuildStatus(t *testing.T) {
	ok := build.NewResult("sha256:abc", nil)
	failed := build.NewFailedResult("step 3 exited 1", nil)

	status, err := buildStatus(ok, nil)
	if status != "success" || err != nil {
		t.Errorf("success run = %q, %v", status, err)
	}

	buildErr := &pipeline.BuildFailedError{Reason: failed.FailReason()}
	status, err = buildStatus(failed, buildErr)
	if status != "failed" || err == nil {
		t.Errorf("failed run = %q, %v", status, err)
	}

	pluginErr := &pipeline.PluginFailedError{Plugin: "tag_and_push", Err: errors.New("push refused")}
	status, err = buildStatus(ok, pluginErr)
	if status != "failed" || err == nil {
		t.Errorf("plugin failure = %q, %v", status, err)
	}

	// canceled rebuilds report their own status but the process still
	// exits non-zero
	cancelErr := &pipeline.AutoRebuildCanceledError{Plugin: "check_rebuild", Reason: "image already up to date"}
	status, err = buildStatus(nil, cancelErr)
	if status != "canceled" {
		t.Errorf("canceled run status = %q", status)
	}
	if err == nil {
		t.Error("canceled run returned nil error")
	}
}
