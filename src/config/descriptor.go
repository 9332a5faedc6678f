package config

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/buildkiln/kiln/src/pipeline"
	"github.com/buildkiln/kiln/src/source"
)

// Descriptor is the per-build input: where the source lives, what the
// image is called, and which plugins run in which phase.
type Descriptor struct {
	Source source.Spec `json:"source" yaml:"source"`
	Image  string      `json:"image" yaml:"image"`

	PreBuildPlugins   []pipeline.PluginConf `json:"prebuild_plugins,omitempty" yaml:"prebuild_plugins,omitempty"`
	BuildStepPlugins  []pipeline.PluginConf `json:"buildstep_plugins,omitempty" yaml:"buildstep_plugins,omitempty"`
	PrePublishPlugins []pipeline.PluginConf `json:"prepublish_plugins,omitempty" yaml:"prepublish_plugins,omitempty"`
	PostBuildPlugins  []pipeline.PluginConf `json:"postbuild_plugins,omitempty" yaml:"postbuild_plugins,omitempty"`
	ExitPlugins       []pipeline.PluginConf `json:"exit_plugins,omitempty" yaml:"exit_plugins,omitempty"`
}

// ParseDescriptor decodes a build descriptor, accepting JSON first and
// YAML as fallback, and validates it.
func ParseDescriptor(data []byte) (*Descriptor, error) {
	var desc Descriptor
	if err := json.Unmarshal(data, &desc); err != nil {
		desc = Descriptor{}
		if yerr := yaml.Unmarshal(data, &desc); yerr != nil {
			return nil, fmt.Errorf("parsing build descriptor: %w", yerr)
		}
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return &desc, nil
}

// Validate checks the fields every build needs.
func (d *Descriptor) Validate() error {
	if d.Image == "" {
		return fmt.Errorf("build descriptor: image is required")
	}
	if d.Source.URI == "" {
		return fmt.Errorf("build descriptor: source.uri is required")
	}
	for _, phase := range d.phaseConfs() {
		for _, conf := range phase.confs {
			if conf.Name == "" {
				return fmt.Errorf("build descriptor: %s plugin without a name", phase.name)
			}
		}
	}
	return nil
}

// PipelineOptions maps the descriptor onto driver options.
func (d *Descriptor) PipelineOptions() pipeline.Options {
	return pipeline.Options{
		Source:            d.Source,
		Image:             d.Image,
		PreBuildPlugins:   d.PreBuildPlugins,
		BuildStepPlugins:  d.BuildStepPlugins,
		PrePublishPlugins: d.PrePublishPlugins,
		PostBuildPlugins:  d.PostBuildPlugins,
		ExitPlugins:       d.ExitPlugins,
	}
}

type phaseConfs struct {
	name  string
	confs []pipeline.PluginConf
}

func (d *Descriptor) phaseConfs() []phaseConfs {
	return []phaseConfs{
		{"prebuild", d.PreBuildPlugins},
		{"buildstep", d.BuildStepPlugins},
		{"prepublish", d.PrePublishPlugins},
		{"postbuild", d.PostBuildPlugins},
		{"exit", d.ExitPlugins},
	}
}
