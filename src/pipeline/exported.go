package pipeline

import (
	"crypto/md5"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
)

// ExportedImage describes one image artifact written to disk, e.g. a
// docker save tarball.
type ExportedImage struct {
	Path      string `json:"path"`
	Type      string `json:"type"`
	Size      int64  `json:"size"`
	MD5Sum    string `json:"md5sum"`
	SHA256Sum string `json:"sha256sum"`
}

// DescribeExportedImage stats and checksums an artifact file.
func DescribeExportedImage(path, artifactType string) (ExportedImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return ExportedImage{}, fmt.Errorf("reading exported image: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return ExportedImage{}, fmt.Errorf("reading exported image: %w", err)
	}

	md5h := md5.New()
	sha := sha256.New()
	if _, err := io.Copy(io.MultiWriter(md5h, sha), f); err != nil {
		return ExportedImage{}, fmt.Errorf("checksumming exported image: %w", err)
	}

	return ExportedImage{
		Path:      path,
		Type:      artifactType,
		Size:      st.Size(),
		MD5Sum:    fmt.Sprintf("%x", md5h.Sum(nil)),
		SHA256Sum: fmt.Sprintf("%x", sha.Sum(nil)),
	}, nil
}
