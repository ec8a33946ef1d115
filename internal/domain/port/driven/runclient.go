package driven

import (
	"context"
	"fmt"

	"github.com/ericfisherdev/runreaper/internal/domain/model"
)

// APIError wraps a failed GitHub API call together with the HTTP status the
// API answered with. StatusCode is 0 when no response was received.
type APIError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// RunQuery scopes a workflow run listing to one status class.
type RunQuery struct {
	Owner        string
	Repo         string
	WorkflowID   int64
	Branch       string
	ActivityKind string
	Status       model.RunStatus
}

// RunClient defines the driven port for GitHub Actions workflow runs.
type RunClient interface {
	// ListRuns returns every run matching q, following pagination.
	ListRuns(ctx context.Context, q RunQuery) ([]model.CandidateRun, error)
	// CancelRun requests cancellation of a run. It returns nil only when
	// GitHub accepted the request (202).
	CancelRun(ctx context.Context, owner, repo string, runID int64) error
	// GetRun fetches a single run and maps it to a TriggerEvent.
	GetRun(ctx context.Context, owner, repo string, runID int64) (*model.TriggerEvent, error)
}
