package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestPathSourceCopiesTree(t *testing.T) {
	from := writeTree(t, map[string]string{
		"Dockerfile":    "FROM fedora\n",
		"app/main.go":   "package main\n",
		"app/README.md": "hi\n",
	})

	src, err := New(Spec{Provider: "path", URI: "file://" + from}, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer src.Remove()

	path, err := src.Get(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(path, "app", "main.go"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "package main\n" {
		t.Errorf("copied content = %q", data)
	}

	// mutating the copy must not leak back
	if err := os.WriteFile(filepath.Join(path, "Dockerfile"), []byte("FROM alpine\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	orig, _ := os.ReadFile(filepath.Join(from, "Dockerfile"))
	if string(orig) != "FROM fedora\n" {
		t.Errorf("original tree mutated: %q", orig)
	}
}

func TestPathSourceGetIdempotent(t *testing.T) {
	from := writeTree(t, map[string]string{"Dockerfile": "FROM fedora\n"})

	src, err := New(Spec{Provider: "path", URI: from}, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer src.Remove()

	first, err := src.Get(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	second, err := src.Get(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("Get returned %q then %q", first, second)
	}
	if src.VCSInfo() != nil {
		t.Error("path source reported VCS info")
	}
}

func TestSourceRemove(t *testing.T) {
	from := writeTree(t, map[string]string{"Dockerfile": "FROM fedora\n"})

	src, err := New(Spec{Provider: "path", URI: from}, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := src.Get(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := src.Remove(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(src.Workdir()); !os.IsNotExist(err) {
		t.Errorf("workdir still present after Remove: %v", err)
	}
}

func TestUnknownProvider(t *testing.T) {
	if _, err := New(Spec{Provider: "svn", URI: "svn://example"}, t.TempDir()); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
