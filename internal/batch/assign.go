package batch

import (
	"errors"
	"fmt"
)

// Assignment setup errors. Process-fatal: they are raised before any job
// begins and never routed through the fault-isolation runner.
var (
	ErrNoWorkers        = errors.New("worker count must be >= 1")
	ErrNegativeJobCount = errors.New("job count cannot be negative")
)

// Assignment maps worker indices to their ordered job shares. Computed
// once per batch launch and never mutated.
type Assignment struct {
	workerCount int
	shares      [][]int
}

// Assign partitions job ordinals [0, jobCount) across workerCount
// workers round-robin: job i goes to worker i mod workerCount.
//
// The partition is exact (every job assigned exactly once), balanced
// (share sizes differ by at most one), and deterministic, so every
// worker process derives the identical assignment independently.
// Workers with ordinal >= jobCount simply receive an empty share.
func Assign(jobCount, workerCount int) (Assignment, error) {
	if workerCount < 1 {
		return Assignment{}, fmt.Errorf("%w: got %d", ErrNoWorkers, workerCount)
	}
	if jobCount < 0 {
		return Assignment{}, fmt.Errorf("%w: got %d", ErrNegativeJobCount, jobCount)
	}

	shares := make([][]int, workerCount)
	for i := 0; i < jobCount; i++ {
		w := i % workerCount
		shares[w] = append(shares[w], i)
	}
	return Assignment{workerCount: workerCount, shares: shares}, nil
}

// WorkerCount returns the number of workers the assignment was computed
// for.
func (a Assignment) WorkerCount() int { return a.workerCount }

// Share returns the ordered job ordinals assigned to one worker. An
// out-of-range worker index returns an empty share.
func (a Assignment) Share(worker int) []int {
	if worker < 0 || worker >= len(a.shares) {
		return nil
	}
	return a.shares[worker]
}
