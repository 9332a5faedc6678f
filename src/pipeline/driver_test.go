package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/buildkiln/kiln/src/backend"
	"github.com/buildkiln/kiln/src/backend/backendtest"
	"github.com/buildkiln/kiln/src/pipeline"
	_ "github.com/buildkiln/kiln/src/pipeline/plugins"
	"github.com/buildkiln/kiln/src/source"
)

var exitTrace []string

func init() {
	pipeline.Register(pipeline.PhaseExit, "dt_exit",
		func(b backend.Backend, w *pipeline.Workflow, args map[string]any) (pipeline.Plugin, error) {
			return scriptedPlugin{key: "dt_exit", run: func() (any, error) {
				exitTrace = append(exitTrace, "dt_exit")
				return nil, nil
			}}, nil
		})
	pipeline.Register(pipeline.PhasePreBuild, "dt_fail",
		func(b backend.Backend, w *pipeline.Workflow, args map[string]any) (pipeline.Plugin, error) {
			return scriptedPlugin{key: "dt_fail", run: func() (any, error) {
				return nil, errors.New("scripted prebuild failure")
			}}, nil
		})
	pipeline.Register(pipeline.PhasePostBuild, "dt_publish",
		func(b backend.Backend, w *pipeline.Workflow, args map[string]any) (pipeline.Plugin, error) {
			return scriptedPlugin{key: "dt_publish", run: func() (any, error) {
				exitTrace = append(exitTrace, "dt_publish")
				return nil, nil
			}}, nil
		})
}

type scriptedPlugin struct {
	key string
	run func() (any, error)
}

func (p scriptedPlugin) Key() string         { return p.key }
func (p scriptedPlugin) AllowedToFail() bool { return false }
func (p scriptedPlugin) Run(ctx context.Context) (any, error) {
	return p.run()
}

func sourceDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "Dockerfile"), []byte("FROM fedora:41\nRUN true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func driverOpts(t *testing.T) pipeline.Options {
	t.Helper()
	exitTrace = nil
	return pipeline.Options{
		Source:      source.Spec{Provider: "path", URI: sourceDir(t)},
		Image:       "registry.example.com/app:1.0",
		ExitPlugins: []pipeline.PluginConf{{Name: "dt_exit"}},
		Tmpdir:      t.TempDir(),
	}
}

func TestDriverSuccess(t *testing.T) {
	fake := &backendtest.Fake{}
	opts := driverOpts(t)
	opts.PostBuildPlugins = []pipeline.PluginConf{{Name: "dt_publish"}}

	driver, err := pipeline.NewDriver(fake, opts)
	if err != nil {
		t.Fatal(err)
	}
	result, err := driver.BuildImage(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result == nil || result.IsFailed() {
		t.Fatalf("result = %+v", result)
	}
	if len(fake.Built) != 1 {
		t.Errorf("builds = %v", fake.Built)
	}
	want := []string{"dt_publish", "dt_exit"}
	if len(exitTrace) != 2 || exitTrace[0] != want[0] || exitTrace[1] != want[1] {
		t.Errorf("trace = %v, want %v", exitTrace, want)
	}
	if _, err := os.Stat(driver.Workflow.Source.Workdir()); !os.IsNotExist(err) {
		t.Error("source workdir survived the build")
	}
}

func TestDriverBuildFailureShortCircuits(t *testing.T) {
	fake := &backendtest.Fake{FailBuild: true}
	opts := driverOpts(t)
	opts.PostBuildPlugins = []pipeline.PluginConf{{Name: "dt_publish"}}

	driver, err := pipeline.NewDriver(fake, opts)
	if err != nil {
		t.Fatal(err)
	}
	result, err := driver.BuildImage(context.Background())
	var buildFailed *pipeline.BuildFailedError
	if !errors.As(err, &buildFailed) {
		t.Fatalf("err = %v, want BuildFailedError", err)
	}
	var pluginFailed *pipeline.PluginFailedError
	if errors.As(err, &pluginFailed) {
		t.Errorf("in-band build failure reported as a plugin failure: %v", err)
	}
	if result == nil || !result.IsFailed() {
		t.Fatalf("result = %+v", result)
	}

	// postbuild skipped, exit still ran
	for _, step := range exitTrace {
		if step == "dt_publish" {
			t.Error("postbuild ran after failed build")
		}
	}
	if len(exitTrace) != 1 || exitTrace[0] != "dt_exit" {
		t.Errorf("trace = %v", exitTrace)
	}
}

func TestDriverPrebuildFailureSkipsBuild(t *testing.T) {
	fake := &backendtest.Fake{}
	opts := driverOpts(t)
	opts.PreBuildPlugins = []pipeline.PluginConf{{Name: "dt_fail"}}

	driver, err := pipeline.NewDriver(fake, opts)
	if err != nil {
		t.Fatal(err)
	}
	_, err = driver.BuildImage(context.Background())

	var failed *pipeline.PluginFailedError
	if !errors.As(err, &failed) || failed.Plugin != "dt_fail" {
		t.Fatalf("err = %v", err)
	}
	if len(fake.Built) != 0 {
		t.Errorf("build ran after fatal prebuild failure: %v", fake.Built)
	}
	if len(exitTrace) != 1 || exitTrace[0] != "dt_exit" {
		t.Errorf("exit phase trace = %v", exitTrace)
	}
}

func TestDriverAutoRebuildCanceled(t *testing.T) {
	fake := &backendtest.Fake{Images: map[string]*backend.ImageInfo{
		"registry.example.com/app:1.0": {ID: "sha256:previous"},
	}}
	opts := driverOpts(t)
	opts.PreBuildPlugins = []pipeline.PluginConf{{Name: "check_rebuild"}}

	driver, err := pipeline.NewDriver(fake, opts)
	if err != nil {
		t.Fatal(err)
	}
	_, err = driver.BuildImage(context.Background())

	var canceled *pipeline.AutoRebuildCanceledError
	if !errors.As(err, &canceled) {
		t.Fatalf("err = %v, want AutoRebuildCanceledError", err)
	}
	if !driver.Workflow.AutoRebuildCanceled {
		t.Error("workflow flag not set")
	}
	if len(fake.Built) != 0 {
		t.Error("build ran after cancellation")
	}
	if len(exitTrace) != 1 || exitTrace[0] != "dt_exit" {
		t.Errorf("exit phase trace = %v", exitTrace)
	}
}

func TestDriverDefaultBuildStep(t *testing.T) {
	fake := &backendtest.Fake{}
	driver, err := pipeline.NewDriver(fake, driverOpts(t))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := driver.BuildImage(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, ok := driver.Workflow.Result(pipeline.PhaseBuildStep, "docker_api"); !ok {
		t.Error("docker_api did not run as the default build step")
	}
}

func TestDriverValidation(t *testing.T) {
	if _, err := pipeline.NewDriver(&backendtest.Fake{}, pipeline.Options{Image: "app:1.0"}); err == nil {
		t.Error("missing source accepted")
	}
	if _, err := pipeline.NewDriver(&backendtest.Fake{}, pipeline.Options{Source: source.Spec{URI: "x"}}); err == nil {
		t.Error("missing image accepted")
	}
}
