package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/sedbatch/sedbatch/internal/config"
	"github.com/sedbatch/sedbatch/internal/engine"
	"github.com/sedbatch/sedbatch/internal/logging"
	"github.com/sedbatch/sedbatch/internal/model"
	"github.com/sedbatch/sedbatch/internal/results"
)

// Orchestrator runs one worker's share of a batch. Worker index and
// count are explicit parameters: every worker derives the identical
// assignment from them, so no runtime coordination is needed.
type Orchestrator struct {
	Base        *config.Options
	WorkerIndex int
	WorkerCount int
	Fitter      engine.Fitter
	Logger      zerolog.Logger
	RunID       string
}

// Run enumerates the batch, takes this worker's share, and executes it
// strictly sequentially through the fault-isolation runner.
//
// The returned error is reserved for orchestration-setup failures
// (unreadable manifest, invalid worker geometry) and context
// cancellation between jobs; per-job failures are recorded in the
// summary and never surface here.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	if o.WorkerCount < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrNoWorkers, o.WorkerCount)
	}
	if o.WorkerIndex < 0 || o.WorkerIndex >= o.WorkerCount {
		return nil, fmt.Errorf("worker index %d out of range [0, %d)", o.WorkerIndex, o.WorkerCount)
	}
	// A bad model type would fail every job identically; reject it here
	// so the batch never starts.
	if !model.IsKnownVariant(o.Base.ModelType) {
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownModel, o.Base.ModelType)
	}

	log := logging.WorkerLogger(o.Logger, o.WorkerIndex)

	targets, err := o.Base.Targets()
	if err != nil {
		return nil, err
	}
	jobs := EnumerateJobs(o.Base, targets)

	assignment, err := Assign(len(jobs), o.WorkerCount)
	if err != nil {
		return nil, err
	}
	share := assignment.Share(o.WorkerIndex)

	writer, err := results.NewWriter(o.Base.OutDir)
	if err != nil {
		return nil, err
	}

	state := StateIdle
	state = state.transition(StateAssigned)
	logHostSnapshot(log)
	log.Info().
		Str("run_id", o.RunID).
		Int("total_jobs", len(jobs)).
		Int("assigned", len(share)).
		Int("worker_count", o.WorkerCount).
		Str("state", state.String()).
		Msg("batch share assigned")

	summary := &Summary{
		RunID:       o.RunID,
		Worker:      o.WorkerIndex,
		WorkerCount: o.WorkerCount,
		TotalJobs:   len(jobs),
		Assigned:    len(share),
		Started:     time.Now(),
	}

	runner := &Runner{
		Fitter:  o.Fitter,
		Results: writer,
		Logger:  log,
		RunID:   o.RunID,
		Worker:  o.WorkerIndex,
	}

	for _, ordinal := range share {
		select {
		case <-ctx.Done():
			summary.Finished = time.Now()
			return summary, ctx.Err()
		default:
		}

		job := jobs[ordinal]
		state = state.transition(StateProcessingJob)
		log.Info().
			Str("dataset", job.Dataset).
			Int("ordinal", ordinal).
			Str("state", state.String()).
			Msg("processing job")

		outcome := runner.Run(ctx, job)
		summary.Outcomes = append(summary.Outcomes, outcome)

		// The runner absorbs every job fault, so processing always
		// reaches job_done.
		state = state.transition(StateJobDone)
	}

	state = state.transition(StateFinished)
	summary.Finished = time.Now()
	log.Info().
		Str("state", state.String()).
		Int("succeeded", summary.Successes()).
		Int("failed", summary.Failures()).
		Dur("elapsed", summary.Finished.Sub(summary.Started)).
		Msg("batch share finished")
	return summary, nil
}

// logHostSnapshot records the machine the worker landed on. Best effort:
// probe failures only lower the log to debug.
func logHostSnapshot(log zerolog.Logger) {
	cores, err := cpu.Counts(true)
	if err != nil {
		log.Debug().Err(err).Msg("cpu probe failed")
		return
	}
	vm, err := mem.VirtualMemory()
	if err != nil {
		log.Debug().Err(err).Msg("memory probe failed")
		return
	}
	log.Info().
		Int("logical_cores", cores).
		Uint64("mem_total", vm.Total).
		Uint64("mem_available", vm.Available).
		Msg("host snapshot")
}
