package input

import (
	"fmt"
	"os"
)

// DefaultEnvName is where orchestrators hand the descriptor over
// without touching the filesystem.
const DefaultEnvName = "KILN_BUILD_JSON"

// envProvider reads the descriptor from an environment variable; the
// "env_name" arg overrides the default variable.
type envProvider struct{}

func init() {
	Register(envProvider{})
}

func (envProvider) Name() string { return "env" }

func (envProvider) Usable(args map[string]string) bool {
	_, ok := os.LookupEnv(envName(args))
	return ok
}

func (envProvider) Read(args map[string]string) ([]byte, error) {
	name := envName(args)
	value, ok := os.LookupEnv(name)
	if !ok {
		return nil, fmt.Errorf("environment variable %s is not set", name)
	}
	return []byte(value), nil
}

func envName(args map[string]string) string {
	if name := args["env_name"]; name != "" {
		return name
	}
	return DefaultEnvName
}
