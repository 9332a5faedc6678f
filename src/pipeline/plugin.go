package pipeline

import (
	"context"

	"github.com/buildkiln/kiln/src/backend"
)

// Plugin is one step of a phase. Instances live for a single build.
type Plugin interface {
	// Key is the name the plugin registers and is configured under.
	Key() string

	// AllowedToFail is the plugin's default failure tolerance; a
	// per-build configuration override wins over it.
	AllowedToFail() bool

	// Run does the work. The returned value is stored in the
	// workflow's result map under the plugin key.
	Run(ctx context.Context) (any, error)
}

// Factory constructs a plugin for one build. args come straight from
// the build descriptor; a factory rejecting its args fails the build.
type Factory func(b backend.Backend, w *Workflow, args map[string]any) (Plugin, error)
