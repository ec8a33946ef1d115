package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	gh "github.com/google/go-github/v82/github"

	"github.com/ericfisherdev/runreaper/internal/domain/model"
	"github.com/ericfisherdev/runreaper/internal/domain/port/driven"
)

// ListRuns retrieves the runs of a workflow on one branch, created by one
// event, in one status. It handles pagination automatically.
func (c *Client) ListRuns(ctx context.Context, q driven.RunQuery) ([]model.CandidateRun, error) {
	opts := &gh.ListWorkflowRunsOptions{
		Branch: q.Branch,
		Event:  q.ActivityKind,
		Status: string(q.Status),
		ListOptions: gh.ListOptions{
			PerPage: 100,
		},
	}

	endpoint := fmt.Sprintf("%s/%s/workflows/%d/runs", q.Owner, q.Repo, q.WorkflowID)
	allRuns := []model.CandidateRun{}

	for {
		runs, resp, err := c.gh.Actions.ListWorkflowRunsByID(ctx, q.Owner, q.Repo, q.WorkflowID, opts)
		if err != nil {
			return nil, apiError(fmt.Sprintf("listing %s runs for %s (page %d)", q.Status, endpoint, opts.Page), resp, err)
		}

		logRateLimit(resp, endpoint, opts.Page, len(runs.WorkflowRuns))

		for _, run := range runs.WorkflowRuns {
			allRuns = append(allRuns, mapWorkflowRun(run))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allRuns, nil
}

// CancelRun requests cancellation of a workflow run. GitHub answers an
// accepted cancellation with 202; any other answer is reported as an error.
func (c *Client) CancelRun(ctx context.Context, owner, repo string, runID int64) error {
	op := fmt.Sprintf("cancelling run %d in %s/%s", runID, owner, repo)

	resp, err := c.gh.Actions.CancelWorkflowRunByID(ctx, owner, repo, runID)

	var accepted *gh.AcceptedError
	if errors.As(err, &accepted) {
		return nil
	}
	if err != nil {
		return apiError(op, resp, err)
	}

	if resp.StatusCode == http.StatusAccepted {
		return nil
	}
	return &driven.APIError{
		Op:         op,
		StatusCode: resp.StatusCode,
		Err:        fmt.Errorf("expected %d Accepted, got %d", http.StatusAccepted, resp.StatusCode),
	}
}

// GetRun fetches a single workflow run and maps it to the event that would
// have announced it.
func (c *Client) GetRun(ctx context.Context, owner, repo string, runID int64) (*model.TriggerEvent, error) {
	run, resp, err := c.gh.Actions.GetWorkflowRunByID(ctx, owner, repo, runID)
	if err != nil {
		return nil, apiError(fmt.Sprintf("fetching run %d in %s/%s", runID, owner, repo), resp, err)
	}

	logRateLimit(resp, fmt.Sprintf("%s/%s/runs/%d", owner, repo, runID), 0, 1)

	ev := triggerEventFromRun(owner, repo, run)
	return &ev, nil
}

// triggerEventFromRun converts a go-github WorkflowRun into the TriggerEvent
// of a reconciliation episode.
func triggerEventFromRun(owner, repo string, run *gh.WorkflowRun) model.TriggerEvent {
	return model.TriggerEvent{
		Owner:        owner,
		Repo:         repo,
		WorkflowID:   run.GetWorkflowID(),
		WorkflowName: run.GetName(),
		Branch:       run.GetHeadBranch(),
		ActivityKind: run.GetEvent(),
		RunID:        run.GetID(),
		RunCreatedAt: run.GetCreatedAt().Time,
	}
}

// mapWorkflowRun converts a go-github WorkflowRun to a CandidateRun.
func mapWorkflowRun(run *gh.WorkflowRun) model.CandidateRun {
	return model.CandidateRun{
		ID:        run.GetID(),
		CreatedAt: run.GetCreatedAt().Time,
	}
}
