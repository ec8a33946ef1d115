package model

import "time"

// Outcome summarizes how a reconciliation episode ended.
type Outcome string

const (
	OutcomeNotApplicable Outcome = "not_applicable"
	OutcomeNoDuplicates  Outcome = "no_duplicates"
	OutcomeReconciled    Outcome = "reconciled"
)

// StatusQueryResult is the result of listing runs for one status class.
// Err is set when the listing failed; Runs is then empty.
type StatusQueryResult struct {
	Status     RunStatus
	Runs       []CandidateRun
	Err        error
	StatusCode int // HTTP status of a failed listing; 0 when unknown.
}

// Failed reports whether the listing for this status class failed.
func (r StatusQueryResult) Failed() bool {
	return r.Err != nil
}

// CancellationOutcome records the result of one cancel request.
type CancellationOutcome struct {
	RunID      int64
	Cancelled  bool
	StatusCode int
	Message    string
}

// Report is the observability trace of one reconciliation episode. It is
// never used to drive decisions.
type Report struct {
	ID            string
	Owner         string
	Repo          string
	Branch        string
	WorkflowID    int64
	WorkflowName  string
	ActivityKind  string
	RunID         int64
	Outcome       Outcome
	Reason        string // Why the episode was not applicable.
	DryRun        bool
	Queries       []StatusQueryResult
	Duplicates    []CandidateRun
	Cancellations []CancellationOutcome
	StartedAt     time.Time
	FinishedAt    time.Time
}

// FullName returns the "owner/repo" form of the report's repository.
func (r Report) FullName() string {
	return r.Owner + "/" + r.Repo
}

// CancelledCount returns how many cancel requests were accepted.
func (r Report) CancelledCount() int {
	n := 0
	for _, c := range r.Cancellations {
		if c.Cancelled {
			n++
		}
	}
	return n
}

// FailedCount returns how many cancel requests were rejected or errored.
func (r Report) FailedCount() int {
	return len(r.Cancellations) - r.CancelledCount()
}

// EpisodeSummary is the stored, listable form of a Report.
type EpisodeSummary struct {
	ID           string
	RepoFullName string
	Branch       string
	WorkflowName string
	ActivityKind string
	RunID        int64
	Outcome      Outcome
	Duplicates   int
	Cancelled    int
	Failed       int
	FinishedAt   time.Time
}
