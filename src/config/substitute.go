package config

import (
	"fmt"
	"strings"

	"github.com/buildkiln/kiln/src/pipeline"
)

// ApplySubstitutions overrides descriptor values in place. Each entry
// is key=value, where key is either a root field (image, source.uri,
// source.provider, source.dockerfile_path, source.git_commit) or a
// plugin arg path like prebuild_plugins.add_labels.vcs_labels. A
// plugin arg path for a plugin the descriptor does not list appends
// that plugin to the phase.
func ApplySubstitutions(d *Descriptor, subs []string) error {
	for _, sub := range subs {
		key, value, ok := strings.Cut(sub, "=")
		if !ok {
			return fmt.Errorf("substitution %q: expected key=value", sub)
		}
		if err := applyOne(d, key, value); err != nil {
			return err
		}
	}
	return nil
}

func applyOne(d *Descriptor, key, value string) error {
	switch key {
	case "image":
		d.Image = value
		return nil
	case "source.uri":
		d.Source.URI = value
		return nil
	case "source.provider":
		d.Source.Provider = value
		return nil
	case "source.dockerfile_path":
		d.Source.DockerfilePath = value
		return nil
	case "source.git_commit":
		d.Source.ProviderParams.GitCommit = value
		return nil
	}

	parts := strings.SplitN(key, ".", 3)
	if len(parts) == 3 {
		if confs := d.phasePlugins(parts[0]); confs != nil {
			substitutePluginArg(confs, parts[1], parts[2], value)
			return nil
		}
	}
	return fmt.Errorf("substitution key %q not recognized", key)
}

// phasePlugins returns a pointer to the conf list of a phase key, nil
// for unknown keys.
func (d *Descriptor) phasePlugins(key string) *[]pipeline.PluginConf {
	switch key {
	case "prebuild_plugins":
		return &d.PreBuildPlugins
	case "buildstep_plugins":
		return &d.BuildStepPlugins
	case "prepublish_plugins":
		return &d.PrePublishPlugins
	case "postbuild_plugins":
		return &d.PostBuildPlugins
	case "exit_plugins":
		return &d.ExitPlugins
	}
	return nil
}

func substitutePluginArg(confs *[]pipeline.PluginConf, plugin, arg, value string) {
	for i := range *confs {
		if (*confs)[i].Name == plugin {
			if (*confs)[i].Args == nil {
				(*confs)[i].Args = map[string]any{}
			}
			(*confs)[i].Args[arg] = value
			return
		}
	}
	*confs = append(*confs, pipeline.PluginConf{
		Name: plugin,
		Args: map[string]any{arg: value},
	})
}
