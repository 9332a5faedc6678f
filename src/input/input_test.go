package input

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const descriptor = `{
  "source": {"provider": "git", "uri": "https://git.example.com/app.git"},
  "image": "registry.example.com/app:1.0"
}`

func writeDescriptor(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "build.json")
	if err := os.WriteFile(path, []byte(descriptor), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestResolvePath(t *testing.T) {
	desc, err := Resolve("path", map[string]string{"path": writeDescriptor(t)}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if desc.Image != "registry.example.com/app:1.0" {
		t.Errorf("image = %q", desc.Image)
	}
}

func TestResolveEnv(t *testing.T) {
	t.Setenv(DefaultEnvName, descriptor)
	desc, err := Resolve("env", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if desc.Source.URI != "https://git.example.com/app.git" {
		t.Errorf("uri = %q", desc.Source.URI)
	}
}

func TestResolveEnvCustomName(t *testing.T) {
	t.Setenv("OTHER_BUILD_JSON", descriptor)
	desc, err := Resolve("env", map[string]string{"env_name": "OTHER_BUILD_JSON"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if desc.Image == "" {
		t.Error("empty image")
	}
}

func TestResolveAutoSingleUsable(t *testing.T) {
	// only the path provider is usable: descriptor env unset
	os.Unsetenv(DefaultEnvName)
	desc, err := Resolve(AutoName, map[string]string{"path": writeDescriptor(t)}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if desc.Image == "" {
		t.Error("empty image")
	}
}

func TestResolveAutoAmbiguous(t *testing.T) {
	t.Setenv(DefaultEnvName, descriptor)
	_, err := Resolve(AutoName, map[string]string{"path": writeDescriptor(t)}, nil)
	if err == nil || !strings.Contains(err.Error(), "ambiguous") {
		t.Fatalf("err = %v, want ambiguity error", err)
	}
}

func TestResolveAutoNoneUsable(t *testing.T) {
	os.Unsetenv(DefaultEnvName)
	if _, err := Resolve(AutoName, nil, nil); err == nil {
		t.Fatal("expected error with no usable provider")
	}
}

func TestResolveUnknownProvider(t *testing.T) {
	if _, err := Resolve("carrier-pigeon", nil, nil); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestResolveAppliesSubstitutions(t *testing.T) {
	desc, err := Resolve("path",
		map[string]string{"path": writeDescriptor(t)},
		[]string{"image=registry.example.com/app:2.0"})
	if err != nil {
		t.Fatal(err)
	}
	if desc.Image != "registry.example.com/app:2.0" {
		t.Errorf("image = %q", desc.Image)
	}
}
