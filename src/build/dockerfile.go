package build

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var (
	// FROM [--platform=...] <image> [AS <name>]
	fromRe = regexp.MustCompile(`(?i)^FROM\s+(?:--platform=\S+\s+)?(\S+)(?:\s+AS\s+(\S+))?`)
	// LABEL <key>=<value> ...
	labelRe = regexp.MustCompile(`(?i)^LABEL\s+(.+)`)
)

// FindDockerfile locates the Dockerfile inside sourceDir. relPath may
// name a file or a directory relative to the source root; empty means
// the root. Returns the Dockerfile path and its directory, which is
// the build context.
func FindDockerfile(sourceDir, relPath string) (path, dir string, err error) {
	candidate := filepath.Join(sourceDir, relPath)

	st, err := os.Stat(candidate)
	if err != nil {
		return "", "", fmt.Errorf("locating Dockerfile: %w", err)
	}
	if st.IsDir() {
		candidate = filepath.Join(candidate, "Dockerfile")
		if _, err := os.Stat(candidate); err != nil {
			return "", "", fmt.Errorf("locating Dockerfile: %w", err)
		}
	}
	return candidate, filepath.Dir(candidate), nil
}

// ParseBaseImage returns the image of the first FROM instruction.
// This is a regex-based scan, not a full AST; sufficient for base
// image detection and substitution.
func ParseBaseImage(dockerfilePath string) (string, error) {
	f, err := os.Open(dockerfilePath)
	if err != nil {
		return "", fmt.Errorf("reading Dockerfile: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if m := fromRe.FindStringSubmatch(line); m != nil {
			return m[1], nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading Dockerfile: %w", err)
	}
	return "", fmt.Errorf("no FROM instruction in %s", dockerfilePath)
}

// ReplaceBaseImage rewrites the first FROM instruction to use newBase,
// preserving platform flags and stage names.
func ReplaceBaseImage(dockerfilePath, newBase string) error {
	data, err := os.ReadFile(dockerfilePath)
	if err != nil {
		return fmt.Errorf("reading Dockerfile: %w", err)
	}

	lines := strings.Split(string(data), "\n")
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if m := fromRe.FindStringSubmatch(line); m != nil {
			lines[i] = strings.Replace(raw, m[1], newBase, 1)
			break
		}
	}

	if err := os.WriteFile(dockerfilePath, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		return fmt.Errorf("writing Dockerfile: %w", err)
	}
	return nil
}

// ParseLabels collects LABEL instructions across all stages. Values
// keep surrounding quotes stripped; multi-pair LABEL lines are split
// on unquoted whitespace.
func ParseLabels(dockerfilePath string) (map[string]string, error) {
	f, err := os.Open(dockerfilePath)
	if err != nil {
		return nil, fmt.Errorf("reading Dockerfile: %w", err)
	}
	defer f.Close()

	labels := map[string]string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if m := labelRe.FindStringSubmatch(line); m != nil {
			for key, value := range parseLabelPairs(m[1]) {
				labels[key] = value
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading Dockerfile: %w", err)
	}
	return labels, nil
}

// AppendLabels adds a LABEL instruction with the given pairs at the
// end of the Dockerfile. Existing labels with the same key are
// overridden by docker's last-wins semantics, no rewrite needed.
func AppendLabels(dockerfilePath string, labels map[string]string) error {
	if len(labels) == 0 {
		return nil
	}

	keys := make([]string, 0, len(labels))
	for key := range labels {
		keys = append(keys, key)
	}
	// deterministic instruction for reproducible builds
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("\nLABEL")
	for _, key := range keys {
		fmt.Fprintf(&b, " %q=%q", key, labels[key])
	}
	b.WriteString("\n")

	f, err := os.OpenFile(dockerfilePath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("appending labels: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("appending labels: %w", err)
	}
	return nil
}

// parseLabelPairs splits "k1=v1 k2=\"v 2\"" into pairs.
func parseLabelPairs(s string) map[string]string {
	pairs := map[string]string{}
	for _, field := range splitQuoted(s) {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		pairs[unquote(key)] = unquote(value)
	}
	return pairs
}

// splitQuoted splits on whitespace outside double quotes.
func splitQuoted(s string) []string {
	var fields []string
	var cur strings.Builder
	inQuote := false
	for _, r := range s {
		switch {
		case r == '"':
			inQuote = !inQuote
			cur.WriteRune(r)
		case (r == ' ' || r == '\t') && !inQuote:
			if cur.Len() > 0 {
				fields = append(fields, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		fields = append(fields, cur.String())
	}
	return fields
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
