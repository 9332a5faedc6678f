package build

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeDockerfile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Dockerfile")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseBaseImage(t *testing.T) {
	tests := []struct {
		name       string
		dockerfile string
		want       string
	}{
		{"plain", "FROM fedora:41\n", "fedora:41"},
		{"platform flag", "FROM --platform=linux/amd64 fedora:41 AS base\n", "fedora:41"},
		{"comment and blank first", "# builder\n\nFROM alpine\n", "alpine"},
		{"multi stage takes first", "FROM golang:1.25 AS build\nFROM scratch\n", "golang:1.25"},
		{"lowercase from", "from fedora\n", "fedora"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBaseImage(writeDockerfile(t, tt.dockerfile))
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("ParseBaseImage = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseBaseImageNoFrom(t *testing.T) {
	if _, err := ParseBaseImage(writeDockerfile(t, "# empty\n")); err == nil {
		t.Fatal("expected error for Dockerfile without FROM")
	}
}

func TestReplaceBaseImage(t *testing.T) {
	path := writeDockerfile(t, "# app\nFROM --platform=linux/amd64 fedora:41 AS base\nRUN true\n")
	if err := ReplaceBaseImage(path, "fedora:42"); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "FROM --platform=linux/amd64 fedora:42 AS base") {
		t.Errorf("rewritten Dockerfile:\n%s", data)
	}
	got, err := ParseBaseImage(path)
	if err != nil {
		t.Fatal(err)
	}
	if got != "fedora:42" {
		t.Errorf("base after rewrite = %q", got)
	}
}

func TestParseLabels(t *testing.T) {
	path := writeDockerfile(t, `FROM fedora
LABEL name="app" version="1.0"
LABEL release=3
`)
	labels, err := ParseLabels(path)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{"name": "app", "version": "1.0", "release": "3"}
	for key, value := range want {
		if labels[key] != value {
			t.Errorf("labels[%q] = %q, want %q", key, labels[key], value)
		}
	}
}

func TestParseLabelsQuotedSpace(t *testing.T) {
	path := writeDockerfile(t, "FROM fedora\nLABEL description=\"a longer text\"\n")
	labels, err := ParseLabels(path)
	if err != nil {
		t.Fatal(err)
	}
	if labels["description"] != "a longer text" {
		t.Errorf("description = %q", labels["description"])
	}
}

func TestAppendLabels(t *testing.T) {
	path := writeDockerfile(t, "FROM fedora\n")
	err := AppendLabels(path, map[string]string{"vcs-ref": "abc123", "build-date": "2026-08-25"})
	if err != nil {
		t.Fatal(err)
	}

	labels, err := ParseLabels(path)
	if err != nil {
		t.Fatal(err)
	}
	if labels["vcs-ref"] != "abc123" || labels["build-date"] != "2026-08-25" {
		t.Errorf("labels = %v", labels)
	}
}

func TestFindDockerfileInSubdir(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "images", "web")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "Dockerfile"), []byte("FROM fedora\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	path, dir, err := FindDockerfile(root, "images/web")
	if err != nil {
		t.Fatal(err)
	}
	if dir != sub {
		t.Errorf("dir = %q, want %q", dir, sub)
	}
	if filepath.Base(path) != "Dockerfile" {
		t.Errorf("path = %q", path)
	}
}

func TestStateMachine(t *testing.T) {
	var s StateMachine
	if err := s.EnsureNotBuilt(); err != nil {
		t.Fatal(err)
	}
	if err := s.EnsureIsBuilt(); err == nil {
		t.Fatal("EnsureIsBuilt passed before build")
	}
	if err := s.MarkBuilt(); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkBuilt(); err == nil {
		t.Fatal("MarkBuilt flipped twice")
	}
	if err := s.EnsureNotBuilt(); err == nil {
		t.Fatal("EnsureNotBuilt passed after build")
	}
	if err := s.EnsureIsBuilt(); err != nil {
		t.Fatal(err)
	}
}
