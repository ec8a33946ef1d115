package model

import "time"

// RunStatus is a workflow run lifecycle state as accepted by the GitHub
// "list workflow runs" status filter.
type RunStatus string

const (
	RunStatusQueued     RunStatus = "queued"
	RunStatusInProgress RunStatus = "in_progress"
	RunStatusRequested  RunStatus = "requested"
)

// QueriedStatuses is the fixed set of status classes searched for duplicates,
// in report order.
var QueriedStatuses = []RunStatus{
	RunStatusQueued,
	RunStatusInProgress,
	RunStatusRequested,
}

// TriggerEvent is the newly requested workflow run that starts one
// reconciliation episode.
type TriggerEvent struct {
	Owner        string
	Repo         string
	WorkflowID   int64
	WorkflowName string
	Branch       string
	ActivityKind string    // Event that created the run: push, pull_request, workflow_dispatch, ...
	RunID        int64     // ID of the run that triggered the episode.
	RunCreatedAt time.Time // Creation time of the triggering run.
}

// FullName returns the "owner/repo" form of the event's repository.
func (e TriggerEvent) FullName() string {
	return e.Owner + "/" + e.Repo
}

// CandidateRun is the minimal projection of a listed workflow run used to
// decide whether it duplicates the trigger.
type CandidateRun struct {
	ID        int64
	CreatedAt time.Time
}

// OlderThan reports whether c was created before other. Runs created in the
// same instant are ordered by ascending ID so that exactly one of any pair
// is considered the older.
func (c CandidateRun) OlderThan(other CandidateRun) bool {
	if c.CreatedAt.Equal(other.CreatedAt) {
		return c.ID < other.ID
	}
	return c.CreatedAt.Before(other.CreatedAt)
}
