package domain

import "time"

// JobStatus enumerates the lifecycle states of a scan job.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// jobTransitions is the validated transition table for jobs. Forward-only,
// except the pending/running toggle: a job drops back to pending between
// invocations and re-enters running when its domains are picked up again.
var jobTransitions = map[JobStatus][]JobStatus{
	JobQueued:    {JobPending},
	JobPending:   {JobRunning, JobCompleted, JobFailed},
	JobRunning:   {JobPending, JobCompleted, JobFailed},
	JobCompleted: {},
	JobFailed:    {},
}

// CanTransition reports whether a job may move from one status to another.
// Same-status writes are treated as no-ops and allowed.
func (s JobStatus) CanTransition(to JobStatus) bool {
	if s == to {
		return true
	}
	for _, next := range jobTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return len(jobTransitions[s]) == 0
}

// Job is a user-submitted batch of domains enriched over a scheduled window.
type Job struct {
	ID           string
	Name         string
	Kind         EnrichmentKind
	TotalDomains int
	Status       JobStatus
	StartDate    time.Time
	EndDate      time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// JobStats tallies a job's domains by status.
type JobStats struct {
	Pending    int
	Processing int
	Completed  int
	Failed     int
	Total      int
}

// Done reports whether every domain has reached a terminal status.
func (st JobStats) Done() bool {
	return st.Pending == 0 && st.Processing == 0
}

// AllFailed reports whether the job finished without a single success.
func (st JobStats) AllFailed() bool {
	return st.Done() && st.Completed == 0 && st.Failed > 0
}
