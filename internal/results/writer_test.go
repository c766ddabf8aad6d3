package results

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sedbatch/sedbatch/internal/engine"
)

func TestWriter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	w, err := NewWriter(dir)
	require.NoError(t, err, "missing directories are created")

	doc := Document{
		Dataset:     "NGC1234",
		RunID:       "01JD0000000000000000000000",
		Source:      "data/NGC1234.json",
		Version:     "V1",
		CompletedAt: time.Now().UTC(),
		Result: &engine.Result{
			Algorithm:    "dynesty",
			ModelVariant: "ContinuitySFH",
			Photometry:   &engine.ModalityStats{Points: 3, ValidPoints: 2, ChiSquare: 50},
		},
	}

	path, err := w.Write(doc)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "NGC1234.json"), path)

	got, err := w.Read("NGC1234")
	require.NoError(t, err)
	assert.Equal(t, doc.Dataset, got.Dataset)
	assert.Equal(t, doc.RunID, got.RunID)
	require.NotNil(t, got.Result)
	assert.Equal(t, "dynesty", got.Result.Algorithm)
	assert.Equal(t, 2, got.Result.Photometry.ValidPoints)
}

func TestWriter_ReplacesPreviousRun(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)

	_, err = w.Write(Document{Dataset: "NGC1234", RunID: "run-1"})
	require.NoError(t, err)
	_, err = w.Write(Document{Dataset: "NGC1234", RunID: "run-2"})
	require.NoError(t, err)

	got, err := w.Read("NGC1234")
	require.NoError(t, err)
	assert.Equal(t, "run-2", got.RunID)
}

func TestWriter_Errors(t *testing.T) {
	t.Run("empty directory", func(t *testing.T) {
		_, err := NewWriter("")
		assert.Error(t, err)
	})

	t.Run("empty dataset", func(t *testing.T) {
		w, err := NewWriter(t.TempDir())
		require.NoError(t, err)
		_, err = w.Write(Document{})
		assert.ErrorIs(t, err, ErrEmptyDataset)
		_, err = w.Read("")
		assert.ErrorIs(t, err, ErrEmptyDataset)
	})

	t.Run("missing result file", func(t *testing.T) {
		w, err := NewWriter(t.TempDir())
		require.NoError(t, err)
		_, err = w.Read("NGC9999")
		assert.Error(t, err)
	})

	t.Run("corrupt result file", func(t *testing.T) {
		dir := t.TempDir()
		w, err := NewWriter(dir)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{"), 0600))
		_, err = w.Read("bad")
		assert.Error(t, err)
	})
}
