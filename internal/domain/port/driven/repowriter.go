package driven

import "context"

// RepoWriter defines the driven port for the single-call write operations
// performed in response to issue and pull request events.
type RepoWriter interface {
	// CreateIssueComment posts a comment on an issue or pull request.
	CreateIssueComment(ctx context.Context, owner, repo string, number int, body string) error
	// AddLabels applies labels to an issue or pull request.
	AddLabels(ctx context.Context, owner, repo string, number int, labels []string) error
	// SetIssueState opens or closes an issue or pull request. state is "open" or "closed".
	SetIssueState(ctx context.Context, owner, repo string, number int, state string) error
}
