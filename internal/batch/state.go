package batch

import "fmt"

// WorkerState tracks a worker's progress through its batch share:
// Idle -> Assigned -> (ProcessingJob -> JobDone)* -> Finished.
// ProcessingJob always reaches JobDone because the runner absorbs every
// job fault; Finished is terminal.
type WorkerState int

const (
	StateIdle WorkerState = iota
	StateAssigned
	StateProcessingJob
	StateJobDone
	StateFinished
)

func (s WorkerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAssigned:
		return "assigned"
	case StateProcessingJob:
		return "processing_job"
	case StateJobDone:
		return "job_done"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// validTransitions enumerates the worker state machine.
var validTransitions = map[WorkerState][]WorkerState{
	StateIdle:          {StateAssigned},
	StateAssigned:      {StateProcessingJob, StateFinished},
	StateProcessingJob: {StateJobDone},
	StateJobDone:       {StateProcessingJob, StateFinished},
	StateFinished:      {},
}

// transition validates and performs a state change. An invalid
// transition is a programming error inside the orchestrator, not a data
// condition, so it panics.
func (s WorkerState) transition(to WorkerState) WorkerState {
	for _, next := range validTransitions[s] {
		if next == to {
			return to
		}
	}
	panic(fmt.Sprintf("invalid worker state transition %s -> %s", s, to))
}
