package pipeline

import (
	"time"

	"github.com/buildkiln/kiln/src/build"
	"github.com/buildkiln/kiln/src/image"
	"github.com/buildkiln/kiln/src/source"
)

// Workflow is the shared mutable state of one build. Every plugin gets
// the same instance: earlier phases leave results and configuration
// for later phases to pick up.
type Workflow struct {
	// Image is the target name of the build.
	Image image.Name

	// Source is the build input tree; set before the prebuild phase.
	Source source.Source

	// Builder is set once the build-step phase created it. Plugins
	// running earlier must tolerate nil.
	Builder *build.Builder

	// BuildResult is the outcome of the build-step phase.
	BuildResult *build.Result

	// TagConf and PushConf accumulate publish targets across phases.
	TagConf  TagConf
	PushConf PushConf

	// ExportedImageSequence lists image artifacts written to disk, in
	// export order.
	ExportedImageSequence []ExportedImage

	// Files carries small named artifacts between plugins, path keyed.
	Files map[string]string

	// PluginWorkspace is scratch state shared between cooperating
	// plugins, keyed by plugin key.
	PluginWorkspace map[string]any

	// PluginFailed is set when a non-tolerated plugin failure occurred.
	PluginFailed bool

	// AutoRebuildCanceled is set when a plugin deliberately stopped an
	// automated rebuild.
	AutoRebuildCanceled bool

	// Logf reports build progress; never nil after NewWorkflow.
	Logf func(format string, args ...any)

	results    map[Phase]map[string]any
	errors     map[Phase]map[string]string
	startTimes map[Phase]map[string]time.Time
	durations  map[Phase]map[string]time.Duration
	order      map[Phase][]string
}

// NewWorkflow returns an empty workflow for one build of img.
func NewWorkflow(img image.Name, src source.Source, logf func(string, ...any)) *Workflow {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Workflow{
		Image:           img,
		Source:          src,
		Files:           map[string]string{},
		PluginWorkspace: map[string]any{},
		Logf:            logf,
		results:         map[Phase]map[string]any{},
		errors:          map[Phase]map[string]string{},
		startTimes:      map[Phase]map[string]time.Time{},
		durations:       map[Phase]map[string]time.Duration{},
		order:           map[Phase][]string{},
	}
}

// Result returns the stored result of a plugin run, with ok=false when
// the plugin did not run or stored nothing.
func (w *Workflow) Result(phase Phase, plugin string) (any, bool) {
	value, ok := w.results[phase][plugin]
	return value, ok
}

// Results returns the result map of a phase; nil when nothing ran.
func (w *Workflow) Results(phase Phase) map[string]any {
	return w.results[phase]
}

// Errors returns the per-plugin error messages recorded for a phase.
// Tolerated failures appear here too, only PluginFailed tells fatal
// from tolerated.
func (w *Workflow) Errors(phase Phase) map[string]string {
	return w.errors[phase]
}

// Durations returns the per-plugin run durations of a phase.
func (w *Workflow) Durations(phase Phase) map[string]time.Duration {
	return w.durations[phase]
}

// PluginOrder returns the plugins of a phase in execution order.
// Plugins that failed before running (lookup, instantiation) appear at
// the position their run was attempted.
func (w *Workflow) PluginOrder(phase Phase) []string {
	return append([]string(nil), w.order[phase]...)
}

// BuildProcessFailed reports whether the build can no longer succeed:
// either the image build failed or a fatal plugin error occurred.
func (w *Workflow) BuildProcessFailed() bool {
	if w.PluginFailed {
		return true
	}
	return w.BuildResult != nil && w.BuildResult.IsFailed()
}

func (w *Workflow) setResult(phase Phase, plugin string, value any) {
	if w.results[phase] == nil {
		w.results[phase] = map[string]any{}
	}
	w.results[phase][plugin] = value
}

func (w *Workflow) setError(phase Phase, plugin string, err error) {
	if w.errors[phase] == nil {
		w.errors[phase] = map[string]string{}
	}
	w.errors[phase][plugin] = err.Error()
	w.noteOrder(phase, plugin)
}

func (w *Workflow) markStarted(phase Phase, plugin string, at time.Time) {
	if w.startTimes[phase] == nil {
		w.startTimes[phase] = map[string]time.Time{}
	}
	w.startTimes[phase][plugin] = at
	w.noteOrder(phase, plugin)
}

func (w *Workflow) noteOrder(phase Phase, plugin string) {
	for _, seen := range w.order[phase] {
		if seen == plugin {
			return
		}
	}
	w.order[phase] = append(w.order[phase], plugin)
}

func (w *Workflow) markFinished(phase Phase, plugin string, took time.Duration) {
	if w.durations[phase] == nil {
		w.durations[phase] = map[string]time.Duration{}
	}
	w.durations[phase][plugin] = took
}
