// Package plugins holds the built-in phase plugins. Each file
// registers one plugin from init(); importing the package for side
// effects makes the whole set available.
package plugins

import "fmt"

// stringArg reads an optional string arg, falling back to def.
func stringArg(args map[string]any, key, def string) (string, error) {
	value, ok := args[key]
	if !ok {
		return def, nil
	}
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("arg %q: expected string, got %T", key, value)
	}
	return s, nil
}

// requiredStringArg reads a mandatory string arg.
func requiredStringArg(args map[string]any, key string) (string, error) {
	s, err := stringArg(args, key, "")
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", fmt.Errorf("arg %q is required", key)
	}
	return s, nil
}

// boolArg reads an optional bool arg, falling back to def.
func boolArg(args map[string]any, key string, def bool) (bool, error) {
	value, ok := args[key]
	if !ok {
		return def, nil
	}
	b, ok := value.(bool)
	if !ok {
		return false, fmt.Errorf("arg %q: expected bool, got %T", key, value)
	}
	return b, nil
}

// stringMapArg reads an optional map[string]string arg; descriptors
// decoded from JSON or YAML deliver map[string]any values.
func stringMapArg(args map[string]any, key string) (map[string]string, error) {
	value, ok := args[key]
	if !ok {
		return nil, nil
	}
	raw, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("arg %q: expected mapping, got %T", key, value)
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("arg %q: value of %q is %T, expected string", key, k, v)
		}
		out[k] = s
	}
	return out, nil
}

// stringSliceArg reads an optional []string arg.
func stringSliceArg(args map[string]any, key string) ([]string, error) {
	value, ok := args[key]
	if !ok {
		return nil, nil
	}
	raw, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("arg %q: expected list, got %T", key, value)
	}
	out := make([]string, 0, len(raw))
	for i, v := range raw {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("arg %q: element %d is %T, expected string", key, i, v)
		}
		out = append(out, s)
	}
	return out, nil
}
