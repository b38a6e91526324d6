package matrix

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ResolveOutputPath maps a caller-supplied output location to a concrete
// file path. A path ending in .jsonld is used as-is; anything else is
// treated as a directory and FileName is appended.
func ResolveOutputPath(output string) string {
	if strings.HasSuffix(output, ".jsonld") {
		return output
	}
	return filepath.Join(output, FileName)
}

// WriteDocument marshals the matrix as a single-object @graph document and
// writes it atomically (write temp + rename), so a concurrent reader never
// observes a partially written file.
func WriteDocument(m *Matrix, path string) error {
	doc := Document{
		Context: Context,
		Graph:   []Matrix{*m},
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("matrix: marshal document: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("matrix: create output directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("matrix: write temp document: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("matrix: rename document: %w", err)
	}
	return nil
}

// CopyFile duplicates src to dst byte-for-byte, creating dst's directory if
// needed. Used to mirror the generated matrix into the dashboard directory.
func CopyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("matrix: read %s: %w", src, err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("matrix: create directory for %s: %w", dst, err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("matrix: write %s: %w", dst, err)
	}
	return nil
}

// ReadDocument loads a previously generated matrix document. It is used by
// the history command and by tests; malformed documents return an error.
func ReadDocument(path string) (*Matrix, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("matrix: read %s: %w", path, err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("matrix: parse %s: %w", path, err)
	}
	if len(doc.Graph) == 0 {
		return nil, fmt.Errorf("matrix: %s has an empty @graph", path)
	}
	return &doc.Graph[0], nil
}
