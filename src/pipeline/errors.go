package pipeline

import "fmt"

// PluginFailedError wraps a plugin run failure with the plugin key, so
// the per-build error map and the final process error both name the
// culprit.
type PluginFailedError struct {
	Plugin string
	Err    error
}

func (e *PluginFailedError) Error() string {
	return fmt.Sprintf("plugin %s failed: %v", e.Plugin, e.Err)
}

func (e *PluginFailedError) Unwrap() error { return e.Err }

// InstantiationError marks a plugin whose factory refused to build an
// instance. These are configuration defects and always fatal,
// regardless of the plugin's failure tolerance.
type InstantiationError struct {
	Plugin string
	Err    error
}

func (e *InstantiationError) Error() string {
	return fmt.Sprintf("cannot instantiate plugin %s: %v", e.Plugin, e.Err)
}

func (e *InstantiationError) Unwrap() error { return e.Err }

// BuildFailedError reports an in-band build failure: the engine ran
// the build and the build itself failed. Distinct from a plugin
// failure, the build step plugin did its job.
type BuildFailedError struct {
	Reason string
}

func (e *BuildFailedError) Error() string {
	return fmt.Sprintf("build failed: %s", e.Reason)
}

// AutoRebuildCanceledError deliberately stops an automated rebuild. It
// is never downgraded by failure tolerance; the build ends in the
// canceled state instead of failed.
type AutoRebuildCanceledError struct {
	Plugin string
	Reason string
}

func (e *AutoRebuildCanceledError) Error() string {
	return fmt.Sprintf("auto rebuild canceled by plugin %s: %s", e.Plugin, e.Reason)
}
