package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Backend.Endpoint != "" || cfg.Backend.Retries != 0 {
		t.Errorf("defaults = %+v", cfg.Backend)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".kiln.yml")
	content := `
backend:
  endpoint: tcp://build-host:2375
  retries: 2
  backoff: 10s
registry:
  username: builder
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Backend.Endpoint != "tcp://build-host:2375" {
		t.Errorf("endpoint = %q", cfg.Backend.Endpoint)
	}
	if cfg.Backend.Backoff != 10*time.Second {
		t.Errorf("backoff = %v", cfg.Backend.Backoff)
	}
	if cfg.Registry.Username != "builder" {
		t.Errorf("username = %q", cfg.Registry.Username)
	}
}
