// Package registry talks to docker registries over the v2 HTTP API,
// for the few queries the engine API cannot answer.
package registry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/buildkiln/kiln/src/image"
)

const manifestMediaTypes = "application/vnd.docker.distribution.manifest.v2+json, " +
	"application/vnd.oci.image.manifest.v1+json"

// Session is a connection to one registry.
type Session struct {
	base    string
	headers map[string]string
	client  *http.Client
}

// NewSession prepares a session against the registry at uri. Insecure
// registries are reached over plain http.
func NewSession(uri string, insecure bool) *Session {
	base := uri
	if !strings.Contains(base, "://") {
		scheme := "https"
		if insecure {
			scheme = "http"
		}
		base = scheme + "://" + base
	}
	return &Session{
		base:    strings.TrimSuffix(base, "/"),
		headers: map[string]string{"Accept": manifestMediaTypes},
		client:  http.DefaultClient,
	}
}

// WithAuth sets a bearer token for all requests of the session.
func (s *Session) WithAuth(token string) *Session {
	s.headers["Authorization"] = "Bearer " + token
	return s
}

// ManifestDigest asks the registry for the manifest digest of an
// image, via the Docker-Content-Digest header of a HEAD request.
func (s *Session) ManifestDigest(ctx context.Context, img image.Name) (string, error) {
	url := fmt.Sprintf("%s/v2/%s/manifests/%s", s.base, img.Repository(), img.Tag)
	resp, err := s.do(ctx, http.MethodHead, url)
	if err != nil {
		return "", err
	}
	resp.Body.Close()

	digest := resp.Header.Get("Docker-Content-Digest")
	if digest == "" {
		return "", fmt.Errorf("registry %s returned no digest for %s", s.base, img)
	}
	return digest, nil
}

// DeleteManifest removes an image manifest by digest. Registries with
// delete disabled answer 405, surfaced as an error.
func (s *Session) DeleteManifest(ctx context.Context, img image.Name, digest string) error {
	url := fmt.Sprintf("%s/v2/%s/manifests/%s", s.base, img.Repository(), digest)
	resp, err := s.do(ctx, http.MethodDelete, url)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// do executes a request and returns the response. Caller must close
// the body.
func (s *Session) do(ctx context.Context, method, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, url, err)
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("%s %s: %d %s", method, url, resp.StatusCode, truncateBody(body, 512))
	}
	return resp, nil
}

func truncateBody(b []byte, max int) string {
	if len(b) <= max {
		return string(b)
	}
	return string(b[:max]) + "..."
}
