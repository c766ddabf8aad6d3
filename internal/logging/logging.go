// Package logging configures zerolog output for the CLI and provides
// job-scoped loggers so concurrent workers never interleave diagnostic
// output for different datasets.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// New creates the process-wide logger. Output goes to stderr with a
// human-readable console format. When debug is true the level is lowered
// to DebugLevel, otherwise InfoLevel.
func New(debug bool) zerolog.Logger {
	lvl := zerolog.InfoLevel
	if debug {
		lvl = zerolog.DebugLevel
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}

	return zerolog.New(consoleWriter).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}

// ComponentLogger returns a child logger tagged with a component name.
func ComponentLogger(logger zerolog.Logger, component string) zerolog.Logger {
	return logger.With().Str("component", component).Logger()
}

// WorkerLogger returns a child logger tagged with the worker index so
// multi-worker runs remain attributable line by line.
func WorkerLogger(logger zerolog.Logger, workerIndex int) zerolog.Logger {
	return logger.With().Int("worker", workerIndex).Logger()
}

// JobLogger is a logger bound to a per-dataset log file. It must be
// closed when the job finishes so re-runs can reopen the file cleanly.
type JobLogger struct {
	Logger zerolog.Logger

	// Path is the log file path, empty when logging to the console only.
	Path string

	file *os.File
}

// NewJobLogger opens a job-scoped diagnostic destination for one dataset.
//
// When dir is non-empty, a file named <dataset>.log is created (truncated
// if present, so relaunched batches get clean per-dataset files) and job
// diagnostics are routed there, keeping the parent's destination clean.
// The parent's level and context fields (worker index, timestamps) carry
// over via Output. When dir is empty the parent logger is used unchanged.
func NewJobLogger(parent zerolog.Logger, dir, dataset string) (*JobLogger, error) {
	jl := &JobLogger{Logger: parent.With().Str("dataset", dataset).Logger()}
	if dir == "" {
		return jl, nil
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("creating log directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, dataset+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("opening job log file %s: %w", path, err)
	}

	fileWriter := zerolog.ConsoleWriter{
		Out:        f,
		TimeFormat: time.RFC3339,
		NoColor:    true,
	}

	jl.Logger = parent.Output(fileWriter).With().Str("dataset", dataset).Logger()
	jl.Path = path
	jl.file = f
	return jl, nil
}

// Close releases the underlying log file, if any.
func (jl *JobLogger) Close() error {
	if jl.file == nil {
		return nil
	}
	err := jl.file.Close()
	jl.file = nil
	return err
}
