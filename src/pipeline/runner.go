package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/buildkiln/kiln/src/backend"
)

// RunOptions select the failure policy of a phase run.
type RunOptions struct {
	// KeepGoing runs every plugin even after failures and returns the
	// failures joined; used by the exit phase.
	KeepGoing bool

	// StopOnSuccess ends the phase after the first plugin that
	// succeeds; used by the build-step phase.
	StopOnSuccess bool
}

// Runner executes the configured plugins of one phase in order.
type Runner struct {
	Phase   Phase
	Backend backend.Backend
	Plugins []PluginConf
	Options RunOptions
}

// Run executes the phase against the workflow. Every plugin failure is
// recorded in the workflow's error map; only failures that are neither
// tolerated nor kept-going abort the phase. Rebuild cancellation
// propagates immediately, no policy downgrades it.
func (r *Runner) Run(ctx context.Context, w *Workflow) error {
	var failures []error

	for _, conf := range r.Plugins {
		factory, err := Lookup(r.Phase, conf.Name)
		if err != nil {
			if !conf.IsRequired() {
				w.Logf("skipping optional plugin %s/%s: not available", r.Phase, conf.Name)
				continue
			}
			w.setError(r.Phase, conf.Name, err)
			w.PluginFailed = true
			if r.Options.KeepGoing {
				failures = append(failures, err)
				continue
			}
			return err
		}

		plugin, err := factory(r.Backend, w, TranslateArgs(w, conf.Args))
		if err != nil {
			// a factory rejecting its args is a configuration defect,
			// failure tolerance does not apply
			ierr := &InstantiationError{Plugin: conf.Name, Err: err}
			w.setError(r.Phase, conf.Name, ierr)
			w.PluginFailed = true
			if r.Options.KeepGoing {
				failures = append(failures, ierr)
				continue
			}
			return ierr
		}

		w.Logf("running plugin %s/%s", r.Phase, conf.Name)
		started := time.Now()
		w.markStarted(r.Phase, conf.Name, started)
		result, err := plugin.Run(ctx)
		w.markFinished(r.Phase, conf.Name, time.Since(started))

		if err == nil {
			w.setResult(r.Phase, conf.Name, result)
			if r.Options.StopOnSuccess {
				return nil
			}
			continue
		}

		w.setError(r.Phase, conf.Name, err)

		var canceled *AutoRebuildCanceledError
		if errors.As(err, &canceled) {
			w.AutoRebuildCanceled = true
			return err
		}

		if allowedToFail(plugin, conf) {
			w.Logf("plugin %s/%s failed (tolerated): %v", r.Phase, conf.Name, err)
			continue
		}

		w.PluginFailed = true
		ferr := &PluginFailedError{Plugin: conf.Name, Err: err}
		if r.Options.KeepGoing {
			w.Logf("plugin %s/%s failed, continuing: %v", r.Phase, conf.Name, err)
			failures = append(failures, ferr)
			continue
		}
		return ferr
	}

	return errors.Join(failures...)
}

// allowedToFail resolves failure tolerance: the per-build override
// wins over the plugin's default.
func allowedToFail(p Plugin, conf PluginConf) bool {
	if conf.AllowedToFail != nil {
		return *conf.AllowedToFail
	}
	return p.AllowedToFail()
}
