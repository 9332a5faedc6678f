package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/buildkiln/kiln/src/backend"
	"github.com/buildkiln/kiln/src/build"
	"github.com/buildkiln/kiln/src/input"
	"github.com/buildkiln/kiln/src/output"
	"github.com/buildkiln/kiln/src/pipeline"
	_ "github.com/buildkiln/kiln/src/pipeline/plugins"
)

var (
	buildInput       string
	buildInputArgs   []string
	buildSubstitutes []string
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Run a container image build pipeline",
	Long: `Run a plugin-driven image build.

The build descriptor names the source, the target image, and the
plugins of each phase. It comes from an input provider: a file
(--input path --input-arg path=build.json), the environment, or
autodetection.`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&buildInput, "input", input.AutoName, "input provider for the build descriptor")
	buildCmd.Flags().StringSliceVar(&buildInputArgs, "input-arg", nil, "input provider arg (key=value)")
	buildCmd.Flags().StringSliceVar(&buildSubstitutes, "substitute", nil, "descriptor override (key=value)")

	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	w := os.Stdout
	color := output.UseColor()
	start := time.Now()

	inputArgs, err := parseKeyValues(buildInputArgs)
	if err != nil {
		return err
	}
	desc, err := input.Resolve(buildInput, inputArgs, buildSubstitutes)
	if err != nil {
		return err
	}

	engine, err := backend.NewDocker(backend.DockerOptions{
		Endpoint: cfg.Backend.Endpoint,
		Retries:  cfg.Backend.Retries,
		Backoff:  cfg.Backend.Backoff,
		Username: cfg.Registry.Username,
		Password: cfg.Registry.Password,
	})
	if err != nil {
		return err
	}

	opts := desc.PipelineOptions()
	if verbose {
		opts.Logf = func(format string, a ...any) {
			fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, a...))
		}
	}

	driver, err := pipeline.NewDriver(engine, opts)
	if err != nil {
		return err
	}

	output.CIHeader(w)
	output.SectionStart(w, "kiln_build", "Build "+desc.Image)
	result, runErr := driver.BuildImage(ctx)
	output.SectionEnd(w, "kiln_build")

	renderPhases(driver.Workflow, w, color)

	status, buildErr := buildStatus(result, runErr)
	output.BuildSummary(w, desc.Image, status, time.Since(start), color)

	var canceled *pipeline.AutoRebuildCanceledError
	if errors.As(runErr, &canceled) {
		fmt.Fprintf(w, "    %s\n", canceled.Reason)
	}
	return buildErr
}

// buildStatus maps the pipeline outcome to the summary status and the
// process error. A canceled rebuild reports its own status instead of
// "failed" but the process still exits non-zero.
func buildStatus(result *build.Result, runErr error) (string, error) {
	var canceled *pipeline.AutoRebuildCanceledError
	if errors.As(runErr, &canceled) {
		return "canceled", runErr
	}
	if runErr != nil || (result != nil && result.IsFailed()) {
		return "failed", runErr
	}
	return "success", nil
}

// renderPhases prints one section per phase that ran, with a row per
// plugin in execution order.
func renderPhases(w *pipeline.Workflow, out io.Writer, color bool) {
	if w == nil {
		return
	}
	for _, phase := range pipeline.Phases {
		plugins := w.PluginOrder(phase)
		if len(plugins) == 0 {
			continue
		}
		durations := w.Durations(phase)
		errs := w.Errors(phase)

		sec := output.NewSection(out, string(phase), 0, color)
		for _, plugin := range plugins {
			status := "success"
			note := ""
			if msg, failed := errs[plugin]; failed {
				status = "failed"
				note = msg
			}
			sec.PluginRow(plugin, status, durations[plugin], note)
		}
		sec.Close()
	}
}

func parseKeyValues(entries []string) (map[string]string, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(entries))
	for _, entry := range entries {
		key, value, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("expected key=value, got %q", entry)
		}
		out[key] = value
	}
	return out, nil
}
