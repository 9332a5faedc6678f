package plugins

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/zricethezav/gitleaks/v8/detect"

	"github.com/buildkiln/kiln/src/backend"
	"github.com/buildkiln/kiln/src/pipeline"
)

// SecretFinding is one leaked credential found in the build context.
type SecretFinding struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	RuleID  string `json:"rule_id"`
	Message string `json:"message"`
}

// secretsScan refuses to build a context that contains committed
// credentials: anything the build context holds ends up in image
// layers.
type secretsScan struct {
	workflow *pipeline.Workflow
	detector *detect.Detector
}

func init() {
	pipeline.Register(pipeline.PhasePreBuild, "secrets_scan",
		func(b backend.Backend, w *pipeline.Workflow, args map[string]any) (pipeline.Plugin, error) {
			return &secretsScan{workflow: w}, nil
		})
}

func (p *secretsScan) Key() string         { return "secrets_scan" }
func (p *secretsScan) AllowedToFail() bool { return false }

func (p *secretsScan) Run(ctx context.Context) (any, error) {
	builder := p.workflow.Builder
	if builder == nil {
		return nil, fmt.Errorf("no builder prepared")
	}

	if p.detector == nil {
		d, err := detect.NewDetectorDefaultConfig()
		if err != nil {
			return nil, fmt.Errorf("initializing secret detector: %w", err)
		}
		p.detector = d
	}

	var findings []SecretFinding
	root := builder.DockerfileDir
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if entry.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, path)
		for _, h := range p.detector.DetectBytes(data) {
			findings = append(findings, SecretFinding{
				File:    rel,
				Line:    h.StartLine + 1, // gitleaks is 0-indexed
				RuleID:  h.RuleID,
				Message: h.Description,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning build context: %w", err)
	}

	if len(findings) > 0 {
		files := make([]string, 0, len(findings))
		for _, f := range findings {
			files = append(files, fmt.Sprintf("%s:%d (%s)", f.File, f.Line, f.RuleID))
		}
		return findings, fmt.Errorf("build context contains secrets: %s", strings.Join(files, ", "))
	}
	return findings, nil
}
