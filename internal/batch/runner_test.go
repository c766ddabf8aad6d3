package batch

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sedbatch/sedbatch/internal/config"
	"github.com/sedbatch/sedbatch/internal/engine"
	"github.com/sedbatch/sedbatch/internal/model"
	"github.com/sedbatch/sedbatch/internal/observation"
	"github.com/sedbatch/sedbatch/internal/results"
)

// stubFitter lets tests force engine behavior.
type stubFitter struct {
	err      error
	panicMsg string
	calls    int
}

func (s *stubFitter) Fit(
	_ context.Context,
	bundle *observation.Bundle,
	m *model.PhysicalModel,
	opts engine.Options,
) (*engine.Result, error) {
	s.calls++
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	if s.err != nil {
		return nil, s.err
	}
	return &engine.Result{Algorithm: opts.Algorithm, ModelVariant: m.Variant}, nil
}

const goodSource = `{
  "V1": {
    "metadata": {"redshift": 0.045},
    "photometry": {
      "flux": [1.0, 2.0, 3.0],
      "flux_err": [0.1, 0.1, 0.2],
      "filters": ["u", "g", "r"],
      "mask": [true, true, true]
    },
    "spectroscopy": {
      "wavelength": [4000.0, 4001.0],
      "flux": [1.5, 1.6],
      "flux_err": [0.05, 0.05],
      "mask": [true, true]
    }
  }
}`

// writeDataset drops a source file and returns a job unit for it.
func writeDataset(t *testing.T, dir, name, contents string, opts *config.Options) JobUnit {
	t.Helper()
	path := filepath.Join(dir, name+".json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0600))
	jobOpts := opts.Clone()
	jobOpts.Source = path
	return JobUnit{Dataset: name, Source: path, Options: jobOpts}
}

func newTestRunner(t *testing.T, fitter engine.Fitter) *Runner {
	t.Helper()
	writer, err := results.NewWriter(filepath.Join(t.TempDir(), "out"))
	require.NoError(t, err)
	return &Runner{
		Fitter:  fitter,
		Results: writer,
		Logger:  zerolog.New(io.Discard),
		RunID:   "testrun",
		Worker:  0,
	}
}

func baseOptions(dir string) *config.Options {
	o := config.Defaults()
	o.OutDir = filepath.Join(dir, "out")
	o.Verbose = false
	return o
}

func TestRunner_Success(t *testing.T) {
	dir := t.TempDir()
	opts := baseOptions(dir)
	job := writeDataset(t, dir, "NGC1234", goodSource, opts)

	fitter := &stubFitter{}
	runner := newTestRunner(t, fitter)

	outcome := runner.Run(context.Background(), job)

	assert.Equal(t, StatusSuccess, outcome.Status)
	assert.Equal(t, "NGC1234", outcome.Dataset)
	assert.Empty(t, outcome.ErrKind)
	assert.NotEmpty(t, outcome.ResultPath)
	assert.FileExists(t, outcome.ResultPath)
	assert.Greater(t, outcome.Duration.Nanoseconds(), int64(0))
	assert.Equal(t, 1, fitter.calls)
}

func TestRunner_FailureKinds(t *testing.T) {
	dir := t.TempDir()
	opts := baseOptions(dir)

	t.Run("missing source", func(t *testing.T) {
		job := JobUnit{
			Dataset: "ghost",
			Source:  filepath.Join(dir, "ghost.json"),
			Options: opts.Clone(),
		}
		outcome := newTestRunner(t, &stubFitter{}).Run(context.Background(), job)
		assert.Equal(t, StatusFailure, outcome.Status)
		assert.Equal(t, KindSourceAccess, outcome.ErrKind)
	})

	t.Run("version not found", func(t *testing.T) {
		job := writeDataset(t, dir, "wrongver", goodSource, opts)
		job.Options.Version = "V9"
		outcome := newTestRunner(t, &stubFitter{}).Run(context.Background(), job)
		assert.Equal(t, KindVersionNotFound, outcome.ErrKind)
	})

	t.Run("missing field", func(t *testing.T) {
		job := writeDataset(t, dir, "nofluxerr",
			`{"V1": {"photometry": {"flux": [1.0], "filters": ["u"], "mask": [true]}}}`, opts)
		job.Options.UseSpectroscopy = false
		outcome := newTestRunner(t, &stubFitter{}).Run(context.Background(), job)
		assert.Equal(t, KindMissingField, outcome.ErrKind)
		assert.Contains(t, outcome.ErrMsg, "flux_err")
	})

	t.Run("empty modality", func(t *testing.T) {
		job := writeDataset(t, dir, "allbad",
			`{"V1": {"photometry": {"flux": [1.0], "flux_err": [-1.0], "filters": ["u"], "mask": [true]}}}`,
			opts)
		job.Options.UseSpectroscopy = false
		outcome := newTestRunner(t, &stubFitter{}).Run(context.Background(), job)
		assert.Equal(t, KindEmptyModality, outcome.ErrKind)
	})

	t.Run("engine error", func(t *testing.T) {
		job := writeDataset(t, dir, "engfail", goodSource, opts)
		fitter := &stubFitter{err: errors.New("likelihood evaluation diverged")}
		outcome := newTestRunner(t, fitter).Run(context.Background(), job)
		assert.Equal(t, KindEngine, outcome.ErrKind)
		assert.Contains(t, outcome.ErrMsg, "diverged")
	})

}

func TestRunner_PanicIsContained(t *testing.T) {
	dir := t.TempDir()
	opts := baseOptions(dir)
	job := writeDataset(t, dir, "boom", goodSource, opts)

	runner := newTestRunner(t, &stubFitter{panicMsg: "index out of range"})

	var outcome Outcome
	require.NotPanics(t, func() {
		outcome = runner.Run(context.Background(), job)
	})
	assert.Equal(t, StatusFailure, outcome.Status)
	assert.Equal(t, KindPanic, outcome.ErrKind)
	assert.Contains(t, outcome.ErrMsg, "index out of range")
}

func TestRunner_FailureDoesNotBlockNextJob(t *testing.T) {
	// The batch's whole value proposition: one bad galaxy does not kill
	// the run.
	dir := t.TempDir()
	opts := baseOptions(dir)

	bad := writeDataset(t, dir, "bad", `{"V1": {}}`, opts)
	good := writeDataset(t, dir, "good", goodSource, opts)

	runner := newTestRunner(t, &stubFitter{})

	first := runner.Run(context.Background(), bad)
	assert.Equal(t, StatusFailure, first.Status)

	second := runner.Run(context.Background(), good)
	assert.Equal(t, StatusSuccess, second.Status)
}

func TestRunner_JobScopedLogFile(t *testing.T) {
	dir := t.TempDir()
	opts := baseOptions(dir)
	opts.LogToFile = true
	opts.LogDir = filepath.Join(dir, "log")

	job := writeDataset(t, dir, "NGC1234", goodSource, opts)
	runner := newTestRunner(t, &stubFitter{})

	outcome := runner.Run(context.Background(), job)
	require.Equal(t, StatusSuccess, outcome.Status)

	logPath := filepath.Join(opts.LogDir, "NGC1234.log")
	require.FileExists(t, logPath)
	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "job started")
	assert.Contains(t, string(data), "job completed")
}

func TestClassify(t *testing.T) {
	assert.Equal(t, KindMissingMetadata, classify(&observation.MissingMetadataError{Key: "redshift"}))
	assert.Equal(t, KindLengthMismatch, classify(&observation.LengthMismatchError{}))
	assert.Equal(t, KindEngine, classify(&engine.Error{Algorithm: "dynesty", Err: errors.New("x")}))
	assert.Equal(t, KindInternal, classify(errors.New("anything else")))
}
