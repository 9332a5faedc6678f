// Package input resolves the build descriptor from wherever the
// caller put it: a file, an environment variable, or autodetection
// across the registered providers.
package input

import (
	"fmt"
	"sort"
	"sync"

	"github.com/buildkiln/kiln/src/config"
)

// AutoName asks Resolve to pick the single usable provider.
const AutoName = "auto"

// Provider reads a raw build descriptor from one kind of location.
type Provider interface {
	Name() string

	// Usable reports whether the provider could deliver a descriptor
	// with the given args and environment; autodetection picks the
	// provider for which this is true.
	Usable(args map[string]string) bool

	// Read returns the raw descriptor bytes.
	Read(args map[string]string) ([]byte, error)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Provider{}
)

// Register adds a provider. Called from init() in each provider file.
func Register(p Provider) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[p.Name()]; exists {
		panic(fmt.Sprintf("input: duplicate provider registration: %s", p.Name()))
	}
	registry[p.Name()] = p
}

// All returns sorted names of the registered providers.
func All() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve reads and parses the build descriptor using the named
// provider, then applies the substitutions. Name "auto" requires
// exactly one usable provider.
func Resolve(name string, args map[string]string, substitutions []string) (*config.Descriptor, error) {
	provider, err := pick(name, args)
	if err != nil {
		return nil, err
	}

	data, err := provider.Read(args)
	if err != nil {
		return nil, fmt.Errorf("reading build descriptor via %s: %w", provider.Name(), err)
	}

	desc, err := config.ParseDescriptor(data)
	if err != nil {
		return nil, err
	}
	if err := config.ApplySubstitutions(desc, substitutions); err != nil {
		return nil, err
	}
	return desc, nil
}

func pick(name string, args map[string]string) (Provider, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	if name != AutoName && name != "" {
		provider, ok := registry[name]
		if !ok {
			return nil, fmt.Errorf("unknown input provider %q", name)
		}
		return provider, nil
	}

	var usable []Provider
	for _, provider := range registry {
		if provider.Usable(args) {
			usable = append(usable, provider)
		}
	}
	switch len(usable) {
	case 0:
		return nil, fmt.Errorf("no input provider is usable, specify one of %v", All())
	case 1:
		return usable[0], nil
	default:
		names := make([]string, len(usable))
		for i, provider := range usable {
			names[i] = provider.Name()
		}
		sort.Strings(names)
		return nil, fmt.Errorf("input is ambiguous, %v are all usable", names)
	}
}
