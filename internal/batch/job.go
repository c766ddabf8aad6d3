// Package batch distributes fitting jobs across a fixed pool of workers
// and isolates per-job failures so one bad dataset cannot abort the run.
package batch

import (
	"github.com/sedbatch/sedbatch/internal/config"
)

// JobUnit is the atomic piece of work: one dataset plus the resolved
// configuration snapshot it runs with. Created once when the batch is
// enumerated and never mutated.
type JobUnit struct {
	// Dataset is the identifier derived from the source path.
	Dataset string

	// Source is the path of the input file.
	Source string

	// Options is this job's own configuration snapshot. Cloned from the
	// base so per-job fields never leak between jobs.
	Options *config.Options
}

// EnumerateJobs builds the batch's job units from the target list, in
// enumeration order. Every worker derives the identical list from the
// same configuration, which is what makes the assignment reproducible
// without any coordination channel.
func EnumerateJobs(base *config.Options, targets []string) []JobUnit {
	jobs := make([]JobUnit, 0, len(targets))
	for _, target := range targets {
		opts := base.Clone()
		opts.Source = target
		jobs = append(jobs, JobUnit{
			Dataset: config.DatasetID(target),
			Source:  target,
			Options: opts,
		})
	}
	return jobs
}
