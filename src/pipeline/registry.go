package pipeline

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrPluginNotFound marks a configured plugin with no registered
// factory. Whether that aborts the build depends on the plugin's
// required flag.
var ErrPluginNotFound = errors.New("plugin not found")

var (
	registryMu sync.RWMutex
	registry   = map[Phase]map[string]Factory{}
)

// Register adds a plugin factory for a phase. Called from init() in
// each plugin file.
func Register(phase Phase, name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	phaseReg, ok := registry[phase]
	if !ok {
		phaseReg = map[string]Factory{}
		registry[phase] = phaseReg
	}
	if _, exists := phaseReg[name]; exists {
		panic(fmt.Sprintf("pipeline: duplicate plugin registration: %s/%s", phase, name))
	}
	phaseReg[name] = factory
}

// Lookup returns the factory registered for phase/name.
func Lookup(phase Phase, name string) (Factory, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	factory, ok := registry[phase][name]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrPluginNotFound, phase, name)
	}
	return factory, nil
}

// All returns sorted names of the plugins registered for a phase.
func All(phase Phase) []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry[phase]))
	for name := range registry[phase] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
