package github

import (
	"context"
	"fmt"

	gh "github.com/google/go-github/v82/github"
)

// CreateIssueComment creates a top-level comment on an issue or pull request.
func (c *Client) CreateIssueComment(ctx context.Context, owner, repo string, number int, body string) error {
	_, resp, err := c.gh.Issues.CreateComment(ctx, owner, repo, number, &gh.IssueComment{
		Body: gh.Ptr(body),
	})
	if err != nil {
		return apiError(fmt.Sprintf("creating comment on %s/%s#%d", owner, repo, number), resp, err)
	}

	return nil
}

// AddLabels applies labels to an issue or pull request. Labels that do not
// exist yet are created by GitHub.
func (c *Client) AddLabels(ctx context.Context, owner, repo string, number int, labels []string) error {
	_, resp, err := c.gh.Issues.AddLabelsToIssue(ctx, owner, repo, number, labels)
	if err != nil {
		return apiError(fmt.Sprintf("adding labels to %s/%s#%d", owner, repo, number), resp, err)
	}

	return nil
}

// SetIssueState opens or closes an issue. Pull requests are issues to this
// endpoint, so it also closes and reopens pull requests.
func (c *Client) SetIssueState(ctx context.Context, owner, repo string, number int, state string) error {
	if state != "open" && state != "closed" {
		return fmt.Errorf("invalid issue state %q: expected open or closed", state)
	}

	_, resp, err := c.gh.Issues.Edit(ctx, owner, repo, number, &gh.IssueRequest{
		State: gh.Ptr(state),
	})
	if err != nil {
		return apiError(fmt.Sprintf("setting %s/%s#%d %s", owner, repo, number, state), resp, err)
	}

	return nil
}
