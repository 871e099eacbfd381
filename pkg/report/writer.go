package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Writer writes aggregate report files into the reports directory.
type Writer struct {
	outputDir string
}

// NewWriter creates a new report writer
func NewWriter(outputDir string) *Writer {
	return &Writer{
		outputDir: outputDir,
	}
}

// Dir returns the output directory.
func (w *Writer) Dir() string {
	return w.outputDir
}

// WriteJSON writes v as indented JSON to <dir>/<name> and returns the path.
func (w *Writer) WriteJSON(name string, v interface{}) (string, error) {
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(w.outputDir, name)

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	if writeErr := os.WriteFile(path, data, 0600); writeErr != nil {
		return "", fmt.Errorf("failed to write %s: %w", name, writeErr)
	}

	return path, nil
}
