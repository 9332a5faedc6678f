package input

import (
	"fmt"
	"os"
)

// pathProvider reads the descriptor from a file named by the "path"
// arg.
type pathProvider struct{}

func init() {
	Register(pathProvider{})
}

func (pathProvider) Name() string { return "path" }

func (pathProvider) Usable(args map[string]string) bool {
	path := args["path"]
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func (pathProvider) Read(args map[string]string) ([]byte, error) {
	path := args["path"]
	if path == "" {
		return nil, fmt.Errorf("arg \"path\" is required")
	}
	return os.ReadFile(path)
}
