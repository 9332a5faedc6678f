// Package image models container image references.
//
// Naming conventions:
//
//	registry.somewhere/namespace/repo:tag
//	|-----------------|                    registry
//	                  |---------|          namespace
//	                  |--------------|     image name
//	                                  |--| tag
package image

import (
	"fmt"
	"strings"
)

// Name is a parsed image reference. The zero value is not usable; build
// one with Parse or by filling Repo explicitly.
type Name struct {
	Registry  string
	Namespace string
	Repo      string
	Tag       string
}

// Parse splits an image reference into its components.
// A single path segment before the repo is treated as a registry only
// when it contains a dot or a port, otherwise as a namespace.
func Parse(s string) (Name, error) {
	var n Name
	if s == "" {
		return n, fmt.Errorf("empty image reference")
	}

	parts := strings.SplitN(s, "/", 3)
	switch len(parts) {
	case 2:
		if strings.ContainsAny(parts[0], ".:") {
			n.Registry = parts[0]
		} else {
			n.Namespace = parts[0]
		}
	case 3:
		n.Registry = parts[0]
		n.Namespace = parts[1]
	}
	n.Repo = parts[len(parts)-1]

	for _, sep := range []string{"@", ":"} {
		if idx := strings.LastIndex(n.Repo, sep); idx >= 0 {
			n.Repo, n.Tag = n.Repo[:idx], n.Repo[idx+1:]
			break
		}
	}

	if n.Repo == "" {
		return Name{}, fmt.Errorf("image reference %q has no repository", s)
	}
	return n, nil
}

// FormatOptions controls Format output.
type FormatOptions struct {
	NoRegistry        bool
	NoTag             bool
	ExplicitTag       bool // emit ":latest" when no tag is set
	ExplicitNamespace bool // emit "library/" when no namespace is set
}

// Format renders the reference. Tags that are themselves digests
// (contain a colon) are joined with "@" instead of ":".
func (n Name) Format(o FormatOptions) string {
	result := n.Repo

	switch {
	case !o.NoTag && n.Tag != "" && strings.Contains(n.Tag, ":"):
		result = fmt.Sprintf("%s@%s", result, n.Tag)
	case !o.NoTag && n.Tag != "":
		result = fmt.Sprintf("%s:%s", result, n.Tag)
	case !o.NoTag && o.ExplicitTag:
		result = fmt.Sprintf("%s:latest", result)
	}

	if n.Namespace != "" {
		result = fmt.Sprintf("%s/%s", n.Namespace, result)
	} else if o.ExplicitNamespace {
		result = fmt.Sprintf("library/%s", result)
	}

	if !o.NoRegistry && n.Registry != "" {
		result = fmt.Sprintf("%s/%s", n.Registry, result)
	}

	return result
}

// String renders the full reference including registry and tag.
func (n Name) String() string {
	return n.Format(FormatOptions{})
}

// Repository renders the reference without registry and tag.
func (n Name) Repository() string {
	return n.Format(FormatOptions{NoRegistry: true, NoTag: true})
}

// WithRegistry returns a copy pointing at the given registry.
func (n Name) WithRegistry(registry string) Name {
	n.Registry = registry
	return n
}

// WithTag returns a copy with the given tag.
func (n Name) WithTag(tag string) Name {
	n.Tag = tag
	return n
}

// IsZero reports whether the name is empty.
func (n Name) IsZero() bool {
	return n.Repo == ""
}
