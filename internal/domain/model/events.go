package model

// PullRequestOpened carries the fields of a pull_request.opened delivery
// needed to greet the author.
type PullRequestOpened struct {
	Owner    string
	Repo     string
	Number   int
	HeadUser string // Owner of the head repository (the fork when from a fork).
	HeadRepo string
	HeadRef  string
}

// IssueOpened carries the fields of an issues.opened delivery.
type IssueOpened struct {
	Owner  string
	Repo   string
	Number int
}

// CommentCreated carries the fields of an issue_comment.created delivery.
type CommentCreated struct {
	Owner         string
	Repo          string
	Number        int
	IsPullRequest bool
	Author        string
	Body          string
}
