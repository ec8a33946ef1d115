// Package webhook implements the GitHub webhook driving adapter.
package webhook

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	gh "github.com/google/go-github/v82/github"
	"github.com/sourcegraph/conc"

	"github.com/ericfisherdev/runreaper/internal/domain/model"
	"github.com/ericfisherdev/runreaper/internal/domain/port/driven"
)

// Reconciler runs one duplicate-run reconciliation episode.
type Reconciler interface {
	Reconcile(ctx context.Context, ev model.TriggerEvent) model.Report
}

// Responder performs the single-call remediation actions.
type Responder interface {
	GreetPullRequest(ctx context.Context, ev model.PullRequestOpened) error
	TriageIssue(ctx context.Context, ev model.IssueOpened) error
	RestartOnRequest(ctx context.Context, ev model.CommentCreated) error
}

// Handler receives GitHub webhook deliveries. Work triggered by a delivery
// runs after the response is written, under a context owned by the Handler
// rather than the request. Drain waits for that work and cancels it when
// the caller's deadline passes.
type Handler struct {
	reconciler Reconciler
	responder  Responder
	sink       driven.DiagnosticSink
	secret     []byte
	logger     *slog.Logger
	wg         conc.WaitGroup

	jobCtx    context.Context
	cancelJob context.CancelFunc
}

// NewHandler creates a Handler. An empty secret disables signature checks.
func NewHandler(reconciler Reconciler, responder Responder, sink driven.DiagnosticSink, secret string, logger *slog.Logger) *Handler {
	if sink == nil {
		sink = driven.NopSink{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	jobCtx, cancelJob := context.WithCancel(context.Background())
	return &Handler{
		reconciler: reconciler,
		responder:  responder,
		sink:       sink,
		secret:     []byte(secret),
		logger:     logger,
		jobCtx:     jobCtx,
		cancelJob:  cancelJob,
	}
}

// RegisterRoutes registers the webhook endpoint on the provided mux.
func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	mux.Handle("POST /webhook", h)
}

// ServeHTTP validates, parses and dispatches one delivery.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	payload, err := gh.ValidatePayload(r, h.secret)
	if err != nil {
		status := http.StatusBadRequest
		if len(h.secret) > 0 {
			status = http.StatusUnauthorized
		}
		h.logger.Warn("rejected webhook delivery", "status", status, "error", err)
		http.Error(w, http.StatusText(status), status)
		return
	}

	eventType := gh.WebHookType(r)
	delivery := gh.DeliveryID(r)

	switch eventType {
	case "ping":
		w.WriteHeader(http.StatusOK)
		return
	case "workflow_run", "pull_request", "issues", "issue_comment":
	default:
		h.logger.Debug("ignoring webhook event", "event", eventType, "delivery", delivery)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	event, err := gh.ParseWebHook(eventType, payload)
	if err != nil {
		h.logger.Warn("malformed webhook payload", "event", eventType, "delivery", delivery, "error", err)
		http.Error(w, "malformed payload", http.StatusBadRequest)
		return
	}

	h.sink.Record("webhook", map[string]any{
		"event":    eventType,
		"delivery": delivery,
		"payload":  json.RawMessage(payload),
	})

	if !h.dispatch(event, delivery) {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// Wait blocks until every dispatched job has finished.
func (h *Handler) Wait() {
	if r := h.wg.WaitAndRecover(); r != nil {
		h.logger.Error("webhook job panicked", "panic", r.Value)
	}
}

// Drain waits for dispatched jobs to finish. If ctx ends first, the jobs'
// context is cancelled and Drain returns once they have unwound, with the
// error from ctx. Deliveries accepted after Drain get a cancelled context.
func (h *Handler) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.Wait()
		close(done)
	}()

	defer h.cancelJob()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		h.logger.Warn("cancelling in-flight webhook jobs", "error", ctx.Err())
		h.cancelJob()
		<-done
		return ctx.Err()
	}
}

// dispatch starts the work for a parsed event and reports whether any was
// started.
func (h *Handler) dispatch(event any, delivery string) bool {
	switch e := event.(type) {
	case *gh.WorkflowRunEvent:
		if e.GetAction() != "requested" {
			return false
		}
		ev := triggerEvent(e)
		h.goAsync("reconcile", delivery, func(ctx context.Context) error {
			h.reconciler.Reconcile(ctx, ev)
			return nil
		})

	case *gh.PullRequestEvent:
		if e.GetAction() != "opened" {
			return false
		}
		ev := pullRequestOpened(e)
		h.goAsync("greet pull request", delivery, func(ctx context.Context) error {
			return h.responder.GreetPullRequest(ctx, ev)
		})

	case *gh.IssuesEvent:
		if e.GetAction() != "opened" {
			return false
		}
		ev := model.IssueOpened{
			Owner:  e.GetRepo().GetOwner().GetLogin(),
			Repo:   e.GetRepo().GetName(),
			Number: e.GetIssue().GetNumber(),
		}
		h.goAsync("triage issue", delivery, func(ctx context.Context) error {
			return h.responder.TriageIssue(ctx, ev)
		})

	case *gh.IssueCommentEvent:
		if e.GetAction() != "created" {
			return false
		}
		ev := model.CommentCreated{
			Owner:         e.GetRepo().GetOwner().GetLogin(),
			Repo:          e.GetRepo().GetName(),
			Number:        e.GetIssue().GetNumber(),
			IsPullRequest: e.GetIssue().IsPullRequest(),
			Author:        e.GetComment().GetUser().GetLogin(),
			Body:          e.GetComment().GetBody(),
		}
		h.goAsync("restart on request", delivery, func(ctx context.Context) error {
			return h.responder.RestartOnRequest(ctx, ev)
		})

	default:
		return false
	}

	return true
}

// goAsync runs fn under the handler's job context since the request context
// is cancelled once the response is sent.
func (h *Handler) goAsync(job, delivery string, fn func(ctx context.Context) error) {
	h.wg.Go(func() {
		if err := fn(h.jobCtx); err != nil {
			h.logger.Error("webhook job failed", "job", job, "delivery", delivery, "error", err)
		}
	})
}

func triggerEvent(e *gh.WorkflowRunEvent) model.TriggerEvent {
	run := e.GetWorkflowRun()
	return model.TriggerEvent{
		Owner:        e.GetRepo().GetOwner().GetLogin(),
		Repo:         e.GetRepo().GetName(),
		WorkflowID:   run.GetWorkflowID(),
		WorkflowName: run.GetName(),
		Branch:       run.GetHeadBranch(),
		ActivityKind: run.GetEvent(),
		RunID:        run.GetID(),
		RunCreatedAt: run.GetCreatedAt().Time,
	}
}

func pullRequestOpened(e *gh.PullRequestEvent) model.PullRequestOpened {
	pr := e.GetPullRequest()
	return model.PullRequestOpened{
		Owner:    e.GetRepo().GetOwner().GetLogin(),
		Repo:     e.GetRepo().GetName(),
		Number:   pr.GetNumber(),
		HeadUser: pr.GetHead().GetUser().GetLogin(),
		HeadRepo: pr.GetHead().GetRepo().GetName(),
		HeadRef:  pr.GetHead().GetRef(),
	}
}
