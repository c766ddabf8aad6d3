package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sedbatch/sedbatch/internal/config"
)

// setupBatch writes n dataset files plus a manifest and returns base
// options pointing at them.
func setupBatch(t *testing.T, n int, broken map[int]string) *config.Options {
	t.Helper()
	dir := t.TempDir()

	names := make([]string, 0, n)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("GAL%03d", i)
		contents := goodSource
		if alt, ok := broken[i]; ok {
			contents = alt
		}
		path := filepath.Join(dir, name+".json")
		require.NoError(t, os.WriteFile(path, []byte(contents), 0600))
		names = append(names, path)
	}

	manifest := filepath.Join(dir, "targets.txt")
	require.NoError(t, os.WriteFile(manifest, []byte(strings.Join(names, "\n")+"\n"), 0600))

	opts := config.Defaults()
	opts.Manifest = manifest
	opts.OutDir = filepath.Join(dir, "out")
	opts.LogDir = filepath.Join(dir, "log")
	opts.Verbose = false
	return opts
}

func TestOrchestrator_SingleWorkerRunsAll(t *testing.T) {
	base := setupBatch(t, 3, nil)

	orch := &Orchestrator{
		Base:        base,
		WorkerIndex: 0,
		WorkerCount: 1,
		Fitter:      &stubFitter{},
		Logger:      zerolog.Nop(),
		RunID:       "run1",
	}

	summary, err := orch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.TotalJobs)
	assert.Equal(t, 3, summary.Assigned)
	assert.Len(t, summary.Outcomes, 3)
	assert.Equal(t, 3, summary.Successes())
	assert.Zero(t, summary.Failures())
	assert.False(t, summary.Finished.Before(summary.Started))
}

func TestOrchestrator_WorkersPartitionRoundRobin(t *testing.T) {
	base := setupBatch(t, 5, nil)

	run := func(index int) *Summary {
		orch := &Orchestrator{
			Base:        base,
			WorkerIndex: index,
			WorkerCount: 2,
			Fitter:      &stubFitter{},
			Logger:      zerolog.Nop(),
			RunID:       "run2",
		}
		summary, err := orch.Run(context.Background())
		require.NoError(t, err)
		return summary
	}

	first := run(0)
	second := run(1)

	datasets := func(s *Summary) []string {
		out := make([]string, 0, len(s.Outcomes))
		for _, o := range s.Outcomes {
			out = append(out, o.Dataset)
		}
		return out
	}

	assert.Equal(t, []string{"GAL000", "GAL002", "GAL004"}, datasets(first))
	assert.Equal(t, []string{"GAL001", "GAL003"}, datasets(second))
	assert.Equal(t, 5, first.TotalJobs)
	assert.Equal(t, first.TotalJobs, first.Assigned+second.Assigned)
}

func TestOrchestrator_BadDatasetDoesNotStopShare(t *testing.T) {
	base := setupBatch(t, 3, map[int]string{1: `{"V1": {}}`})

	orch := &Orchestrator{
		Base:        base,
		WorkerIndex: 0,
		WorkerCount: 1,
		Fitter:      &stubFitter{},
		Logger:      zerolog.Nop(),
		RunID:       "run3",
	}

	summary, err := orch.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, summary.Outcomes, 3)
	assert.Equal(t, StatusSuccess, summary.Outcomes[0].Status)
	assert.Equal(t, StatusFailure, summary.Outcomes[1].Status)
	assert.Equal(t, StatusSuccess, summary.Outcomes[2].Status)
	assert.Equal(t, 2, summary.Successes())
	assert.Equal(t, 1, summary.Failures())
}

func TestOrchestrator_SetupErrors(t *testing.T) {
	base := setupBatch(t, 1, nil)

	t.Run("zero workers", func(t *testing.T) {
		orch := &Orchestrator{Base: base, WorkerCount: 0, Logger: zerolog.Nop()}
		_, err := orch.Run(context.Background())
		assert.ErrorIs(t, err, ErrNoWorkers)
	})

	t.Run("index out of range", func(t *testing.T) {
		orch := &Orchestrator{Base: base, WorkerIndex: 2, WorkerCount: 2, Logger: zerolog.Nop()}
		_, err := orch.Run(context.Background())
		assert.ErrorContains(t, err, "out of range")
	})

	t.Run("unknown model type", func(t *testing.T) {
		opts := base.Clone()
		opts.ModelType = "NoSuchModel"
		orch := &Orchestrator{
			Base:        opts,
			WorkerCount: 1,
			Fitter:      &stubFitter{},
			Logger:      zerolog.Nop(),
		}
		summary, err := orch.Run(context.Background())
		assert.ErrorIs(t, err, config.ErrUnknownModel)
		assert.Nil(t, summary)
	})

	t.Run("unreadable manifest", func(t *testing.T) {
		opts := base.Clone()
		opts.Manifest = filepath.Join(t.TempDir(), "missing.txt")
		orch := &Orchestrator{Base: opts, WorkerCount: 1, Logger: zerolog.Nop()}
		_, err := orch.Run(context.Background())
		assert.Error(t, err)
	})
}

func TestOrchestrator_CancelledContextStopsBetweenJobs(t *testing.T) {
	base := setupBatch(t, 3, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	orch := &Orchestrator{
		Base:        base,
		WorkerIndex: 0,
		WorkerCount: 1,
		Fitter:      &stubFitter{},
		Logger:      zerolog.Nop(),
		RunID:       "run4",
	}

	summary, err := orch.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, summary)
	assert.Empty(t, summary.Outcomes)
}

func TestSummary_Render(t *testing.T) {
	summary := &Summary{
		RunID:       "run5",
		Worker:      0,
		WorkerCount: 1,
		TotalJobs:   2,
		Assigned:    2,
		Outcomes: []Outcome{
			{Dataset: "GAL000", Status: StatusSuccess},
			{Dataset: "GAL001", Status: StatusFailure, ErrKind: KindEngine, ErrMsg: "diverged"},
		},
	}

	var sb strings.Builder
	summary.Render(&sb)
	out := sb.String()
	assert.Contains(t, out, "GAL000")
	assert.Contains(t, out, "GAL001")
	assert.Contains(t, out, "diverged")
}
