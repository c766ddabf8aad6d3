package batch

import (
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
)

// Summary aggregates one worker's outcomes for a batch invocation.
type Summary struct {
	RunID       string
	Worker      int
	WorkerCount int

	// TotalJobs is the batch-wide job count; Assigned is this worker's
	// share of it.
	TotalJobs int
	Assigned  int

	Outcomes []Outcome
	Started  time.Time
	Finished time.Time
}

// Successes counts jobs that completed.
func (s *Summary) Successes() int {
	n := 0
	for _, o := range s.Outcomes {
		if !o.Failed() {
			n++
		}
	}
	return n
}

// Failures counts jobs that were recorded as failed.
func (s *Summary) Failures() int {
	return len(s.Outcomes) - s.Successes()
}

// Render writes the per-dataset outcome table followed by a one-line
// tally.
func (s *Summary) Render(w io.Writer) {
	fmt.Fprintf(w, "worker %d/%d, run %s\n", s.Worker, s.WorkerCount, s.RunID)

	table := tablewriter.NewWriter(w)
	table.Header("Dataset", "Status", "Duration", "Error")
	for _, o := range s.Outcomes {
		errCol := ""
		if o.Failed() {
			errCol = fmt.Sprintf("[%s] %s", o.ErrKind, o.ErrMsg)
		}
		table.Append(o.Dataset, string(o.Status), o.Duration.Round(time.Millisecond).String(), errCol)
	}
	table.Render()

	fmt.Fprintf(w, "%d assigned, %d succeeded, %d failed\n",
		s.Assigned, s.Successes(), s.Failures())
}
