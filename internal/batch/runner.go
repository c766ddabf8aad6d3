package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/sedbatch/sedbatch/internal/dataset"
	"github.com/sedbatch/sedbatch/internal/engine"
	"github.com/sedbatch/sedbatch/internal/logging"
	"github.com/sedbatch/sedbatch/internal/model"
	"github.com/sedbatch/sedbatch/internal/observation"
	"github.com/sedbatch/sedbatch/internal/results"
)

// Runner executes one job end to end behind the fault-isolation
// boundary. Every failure inside the job (loading, validation, model
// construction, the engine, even a panic) is converted into a Failure
// outcome here and nowhere else; all other components fail loudly.
type Runner struct {
	Fitter  engine.Fitter
	Results *results.Writer
	Logger  zerolog.Logger
	RunID   string
	Worker  int
}

// Run executes the job and records its outcome. It never returns an
// error and never lets a fault escape: one bad dataset must not kill
// the batch.
func (r *Runner) Run(ctx context.Context, job JobUnit) (out Outcome) {
	start := time.Now()
	out = Outcome{Dataset: job.Dataset, Worker: r.Worker}

	defer func() {
		out.Duration = time.Since(start)
		if rec := recover(); rec != nil {
			out.Status = StatusFailure
			out.ErrKind = KindPanic
			out.ErrMsg = fmt.Sprintf("panic: %v", rec)
			r.Logger.Error().
				Str("dataset", job.Dataset).
				Str("err_kind", out.ErrKind).
				Str("error", out.ErrMsg).
				Dur("duration", out.Duration).
				Msg("job failed")
		}
	}()

	// Job-scoped diagnostic destination: one log file per dataset so
	// concurrent workers never interleave or overwrite each other.
	logDir := ""
	if job.Options.LogToFile {
		logDir = job.Options.LogDir
	}
	jobLog, err := logging.NewJobLogger(r.Logger, logDir, job.Dataset)
	if err != nil {
		return r.failure(out, start, job, err, KindInternal)
	}
	defer jobLog.Close()

	jobLog.Logger.Info().Str("source", job.Source).Str("run_id", r.RunID).Msg("job started")

	resultPath, err := r.execute(ctx, job, jobLog.Logger)
	if err != nil {
		return r.failure(out, start, job, err, classify(err))
	}

	out.Status = StatusSuccess
	out.ResultPath = resultPath
	jobLog.Logger.Info().
		Dur("duration", time.Since(start)).
		Str("result", resultPath).
		Msg("job completed")
	return out
}

// execute runs the load -> validate -> model -> fit -> persist pipeline
// for one dataset.
func (r *Runner) execute(ctx context.Context, job JobUnit, log zerolog.Logger) (string, error) {
	opts := job.Options

	rec, err := dataset.Load(job.Source, opts.Version)
	if err != nil {
		return "", err
	}
	log.Debug().Str("version", rec.Version).Msg("record loaded")

	bundle, err := observation.Validate(rec, observation.PolicyFromOptions(opts))
	if err != nil {
		return "", err
	}
	logBundle(log, bundle)

	redshift := 0.0
	if bundle.HasRedshift {
		redshift = bundle.Redshift
	}
	m, err := model.Build(opts, redshift)
	if err != nil {
		return "", err
	}
	if opts.Verbose {
		var buf bytes.Buffer
		model.Render(&buf, m)
		log.Info().Msg("\n" + buf.String())
	}

	result, err := r.Fitter.Fit(ctx, bundle, m, engine.OptionsFrom(opts))
	if err != nil {
		return "", asEngineError(err, opts.EngineName())
	}

	path, err := r.Results.Write(results.Document{
		Dataset:     job.Dataset,
		RunID:       r.RunID,
		Source:      job.Source,
		Version:     opts.Version,
		CompletedAt: time.Now().UTC(),
		Result:      result,
	})
	if err != nil {
		return "", err
	}
	return path, nil
}

// failure finalizes a Failure outcome and logs it with the dataset and
// error kind so the batch log explains itself.
func (r *Runner) failure(out Outcome, start time.Time, job JobUnit, err error, kind string) Outcome {
	out.Status = StatusFailure
	out.ErrKind = kind
	out.ErrMsg = err.Error()
	out.Duration = time.Since(start)
	r.Logger.Error().
		Str("dataset", job.Dataset).
		Str("err_kind", kind).
		Err(err).
		Dur("duration", out.Duration).
		Msg("job failed")
	return out
}

// asEngineError guarantees failures crossing the engine boundary carry
// the engine taxonomy, even from external fitters returning plain
// errors.
func asEngineError(err error, algorithm string) error {
	var engineErr *engine.Error
	if errors.As(err, &engineErr) {
		return err
	}
	return &engine.Error{Algorithm: algorithm, Err: err}
}

func logBundle(log zerolog.Logger, bundle *observation.Bundle) {
	ev := log.Debug()
	if bundle.Photometry != nil {
		ev = ev.Int("phot_valid", bundle.Photometry.ValidCount()).
			Int("phot_total", bundle.Photometry.Len())
	}
	if bundle.Spectroscopy != nil {
		ev = ev.Int("spec_valid", bundle.Spectroscopy.ValidCount()).
			Int("spec_total", bundle.Spectroscopy.Len())
	}
	if bundle.HasRedshift {
		ev = ev.Float64("redshift", bundle.Redshift)
	}
	ev.Msg("observation validated")
}
