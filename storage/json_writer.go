package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gmaps-scraper/models"
)

// JSONWriter writes scraped businesses to a pretty-printed JSON array.
type JSONWriter struct {
	path string
}

// NewJSONWriter prepares a JSON export at the given path, creating
// intermediate directories as needed.
func NewJSONWriter(path string) (*JSONWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("json: create output dir: %w", err)
	}
	return &JSONWriter{path: path}, nil
}

// Write replaces the file's contents with the full business list.
func (j *JSONWriter) Write(businesses []*models.Business) error {
	data, err := json.MarshalIndent(businesses, "", "  ")
	if err != nil {
		return fmt.Errorf("json: marshal: %w", err)
	}
	if err := os.WriteFile(j.path, data, 0644); err != nil {
		return fmt.Errorf("json: write %q: %w", j.path, err)
	}
	return nil
}

// Close is a no-op; the file is written atomically per Write call.
func (j *JSONWriter) Close() error {
	return nil
}
