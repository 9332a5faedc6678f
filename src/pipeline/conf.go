package pipeline

// PluginConf is one plugin entry of a phase in the build descriptor.
// Order in the descriptor is execution order.
type PluginConf struct {
	Name string         `json:"name" yaml:"name"`
	Args map[string]any `json:"args,omitempty" yaml:"args,omitempty"`

	// AllowedToFail overrides the plugin's default failure tolerance
	// when set.
	AllowedToFail *bool `json:"can_fail,omitempty" yaml:"can_fail,omitempty"`

	// Required controls whether an unregistered plugin name aborts the
	// build; defaults to true.
	Required *bool `json:"required,omitempty" yaml:"required,omitempty"`
}

// IsRequired resolves the required flag, defaulting to true.
func (c PluginConf) IsRequired() bool {
	return c.Required == nil || *c.Required
}
