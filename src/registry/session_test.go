package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/buildkiln/kiln/src/image"
)

func TestManifestDigest(t *testing.T) {
	const digest = "sha256:4bc453b53cb3d914b45f4b250294236adba2c0e09ff6f03793949e7e39fd4cc1"

	var gotPath, gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Docker-Content-Digest", digest)
	}))
	defer server.Close()

	img, err := image.Parse("registry.example.com/app/web:1.0")
	if err != nil {
		t.Fatal(err)
	}

	got, err := NewSession(server.URL, false).ManifestDigest(context.Background(), img)
	if err != nil {
		t.Fatal(err)
	}
	if got != digest {
		t.Errorf("digest = %q, want %q", got, digest)
	}
	if gotPath != "/v2/app/web/manifests/1.0" {
		t.Errorf("path = %q", gotPath)
	}
	if !strings.Contains(gotAccept, "manifest") {
		t.Errorf("accept = %q", gotAccept)
	}
}

func TestManifestDigestMissingHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	img, _ := image.Parse("registry.example.com/app:1.0")
	if _, err := NewSession(server.URL, false).ManifestDigest(context.Background(), img); err == nil {
		t.Fatal("expected error without digest header")
	}
}

func TestManifestDigestNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	img, _ := image.Parse("registry.example.com/app:1.0")
	if _, err := NewSession(server.URL, false).ManifestDigest(context.Background(), img); err == nil {
		t.Fatal("expected error for 404")
	}
}

func TestInsecureScheme(t *testing.T) {
	s := NewSession("registry.local:5000", true)
	if !strings.HasPrefix(s.base, "http://") {
		t.Errorf("base = %q", s.base)
	}
	s = NewSession("registry.example.com", false)
	if !strings.HasPrefix(s.base, "https://") {
		t.Errorf("base = %q", s.base)
	}
}
