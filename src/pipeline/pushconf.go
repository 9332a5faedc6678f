package pipeline

// DockerRegistry is one registry the built image was pushed to,
// together with the digests returned per pushed tag.
type DockerRegistry struct {
	URI      string
	Insecure bool

	// Digests maps pushed image name -> manifest digest.
	Digests map[string]string
}

// ContentRegistry is a non-image artifact target, keyed by name.
type ContentRegistry struct {
	Name string
	URI  string
}

// PushConf collects publish targets filled in by postbuild plugins.
type PushConf struct {
	dockerRegistries  []*DockerRegistry
	contentRegistries map[string]*ContentRegistry
}

// DockerRegistry returns the registry entry for uri, creating it on
// first use so every push to the same registry shares one digest map.
func (p *PushConf) DockerRegistry(uri string, insecure bool) *DockerRegistry {
	for _, reg := range p.dockerRegistries {
		if reg.URI == uri {
			return reg
		}
	}
	reg := &DockerRegistry{URI: uri, Insecure: insecure, Digests: map[string]string{}}
	p.dockerRegistries = append(p.dockerRegistries, reg)
	return reg
}

// DockerRegistries returns the registries in first-use order.
func (p *PushConf) DockerRegistries() []*DockerRegistry {
	return append([]*DockerRegistry(nil), p.dockerRegistries...)
}

// ContentRegistry returns the named content registry, creating it on
// first use.
func (p *PushConf) ContentRegistry(name string) *ContentRegistry {
	if p.contentRegistries == nil {
		p.contentRegistries = map[string]*ContentRegistry{}
	}
	reg, ok := p.contentRegistries[name]
	if !ok {
		reg = &ContentRegistry{Name: name}
		p.contentRegistries[name] = reg
	}
	return reg
}
