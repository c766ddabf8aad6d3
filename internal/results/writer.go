// Package results persists per-dataset fit results as JSON files. Each
// dataset identifier owns exactly one file, so concurrent workers never
// contend for the same destination.
package results

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sedbatch/sedbatch/internal/engine"
)

// ErrEmptyDataset rejects writes without a dataset identifier.
var ErrEmptyDataset = errors.New("dataset identifier cannot be empty")

// Document is the persisted record for one completed fit.
type Document struct {
	Dataset     string         `json:"dataset"`
	RunID       string         `json:"run_id"`
	Source      string         `json:"source"`
	Version     string         `json:"version"`
	CompletedAt time.Time      `json:"completed_at"`
	Result      *engine.Result `json:"result"`
}

// Writer stores result documents under a single output directory.
type Writer struct {
	directory string
}

// NewWriter creates the output directory if needed and returns a writer
// bound to it.
func NewWriter(directory string) (*Writer, error) {
	if directory == "" {
		return nil, errors.New("output directory cannot be empty")
	}
	if err := os.MkdirAll(directory, 0750); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	return &Writer{directory: directory}, nil
}

// Write persists the document as <dir>/<dataset>.json, replacing any
// file from a previous launch, and returns the path written.
func (w *Writer) Write(doc Document) (string, error) {
	if doc.Dataset == "" {
		return "", ErrEmptyDataset
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling result for %s: %w", doc.Dataset, err)
	}

	path := filepath.Join(w.directory, doc.Dataset+".json")
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", fmt.Errorf("writing result file %s: %w", path, err)
	}
	return path, nil
}

// Read loads a previously written document, mainly for tests and
// post-run tooling.
func (w *Writer) Read(dataset string) (*Document, error) {
	if dataset == "" {
		return nil, ErrEmptyDataset
	}

	path := filepath.Join(w.directory, dataset+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading result file %s: %w", path, err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing result file %s: %w", path, err)
	}
	return &doc, nil
}
