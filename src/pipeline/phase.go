// Package pipeline runs the plugin phases of a build: the ordered
// execution engine, the shared workflow state the plugins mutate, and
// the driver that strings the phases into one build.
package pipeline

// Phase names one of the fixed plugin phases of a build.
type Phase string

const (
	// PhasePreBuild runs after the source is fetched, before the build.
	PhasePreBuild Phase = "prebuild"
	// PhaseBuildStep produces the image; first success wins.
	PhaseBuildStep Phase = "buildstep"
	// PhasePrePublish runs on the built image before publishing.
	PhasePrePublish Phase = "prepublish"
	// PhasePostBuild publishes and annotates the built image.
	PhasePostBuild Phase = "postbuild"
	// PhaseExit always runs, success or failure.
	PhaseExit Phase = "exit"
	// PhaseInput resolves the build descriptor; runs outside the
	// build pipeline proper.
	PhaseInput Phase = "input"
)

// Phases lists the pipeline phases in execution order. PhaseInput is
// not part of the pipeline, it feeds it.
var Phases = []Phase{PhasePreBuild, PhaseBuildStep, PhasePrePublish, PhasePostBuild, PhaseExit}
