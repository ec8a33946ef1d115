package application

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ericfisherdev/runreaper/internal/domain/model"
)

const reportRule = "--------------------------------"

// FormatReport renders the report as the plain-text trace written to the log.
func FormatReport(r model.Report) string {
	var b strings.Builder

	b.WriteString(reportRule + "\n")
	b.WriteString("Checking for duplicate runs:\n")
	fmt.Fprintf(&b, "    repo: %s\n", r.FullName())
	fmt.Fprintf(&b, "    branch: %s\n", r.Branch)
	fmt.Fprintf(&b, "    workflow: %s\n", r.WorkflowName)
	fmt.Fprintf(&b, "    event_type: %s\n", r.ActivityKind)
	fmt.Fprintf(&b, "    run: %d\n", r.RunID)

	if r.Outcome == model.OutcomeNotApplicable {
		fmt.Fprintf(&b, "Not applicable: %s\n", r.Reason)
	}

	for _, q := range r.Queries {
		fmt.Fprintf(&b, "%s: %s\n", q.Status, describeQuery(q))
	}

	switch r.Outcome {
	case model.OutcomeNoDuplicates:
		b.WriteString("No duplicate runs found!\n")
	case model.OutcomeReconciled:
		fmt.Fprintf(&b, "Duplicates: %s\n", joinRunIDs(r.Duplicates))
		if r.DryRun {
			b.WriteString("Dry run: no runs canceled\n")
		}
	}

	for _, c := range r.Cancellations {
		b.WriteString(describeCancellation(c) + "\n")
	}

	b.WriteString("Finished handling duplicate runs\n")
	b.WriteString(reportRule + "\n")

	return b.String()
}

// ReportMarkdown renders the report as GitHub-flavored markdown for the web view.
func ReportMarkdown(r model.Report) string {
	var b strings.Builder

	b.WriteString("### Duplicate run reconciliation\n\n")
	fmt.Fprintf(&b, "- **Repository:** `%s`\n", r.FullName())
	fmt.Fprintf(&b, "- **Branch:** `%s`\n", r.Branch)
	fmt.Fprintf(&b, "- **Workflow:** %s\n", r.WorkflowName)
	fmt.Fprintf(&b, "- **Activity kind:** `%s`\n", r.ActivityKind)
	fmt.Fprintf(&b, "- **Run:** %d\n", r.RunID)
	fmt.Fprintf(&b, "- **Outcome:** %s\n", r.Outcome)
	if r.Reason != "" {
		fmt.Fprintf(&b, "- **Reason:** %s\n", r.Reason)
	}
	if r.DryRun {
		b.WriteString("- **Dry run:** no runs canceled\n")
	}

	if len(r.Queries) > 0 {
		b.WriteString("\n#### Status queries\n\n")
		b.WriteString("| Status | Result |\n|---|---|\n")
		for _, q := range r.Queries {
			fmt.Fprintf(&b, "| %s | %s |\n", q.Status, strings.ReplaceAll(describeQuery(q), "|", `\|`))
		}
	}

	if len(r.Duplicates) > 0 {
		fmt.Fprintf(&b, "\n#### Duplicates\n\n%s\n", joinRunIDs(r.Duplicates))
	}

	if len(r.Cancellations) > 0 {
		b.WriteString("\n#### Cancellations\n\n")
		for _, c := range r.Cancellations {
			fmt.Fprintf(&b, "- %s\n", describeCancellation(c))
		}
	}

	return b.String()
}

func describeQuery(q model.StatusQueryResult) string {
	if q.Failed() {
		if q.StatusCode != 0 {
			return fmt.Sprintf("query failed (status %d): %v", q.StatusCode, q.Err)
		}
		return fmt.Sprintf("query failed: %v", q.Err)
	}

	switch len(q.Runs) {
	case 0:
		return "0 runs"
	case 1:
		return "1 run: " + joinRunIDs(q.Runs)
	default:
		return fmt.Sprintf("%d runs: %s", len(q.Runs), joinRunIDs(q.Runs))
	}
}

func describeCancellation(c model.CancellationOutcome) string {
	if c.Cancelled {
		return fmt.Sprintf("Canceled run %d", c.RunID)
	}
	if c.StatusCode != 0 {
		return fmt.Sprintf("Failed to cancel run %d (status %d): %s", c.RunID, c.StatusCode, c.Message)
	}
	return fmt.Sprintf("Failed to cancel run %d: %s", c.RunID, c.Message)
}

func joinRunIDs(runs []model.CandidateRun) string {
	ids := make([]string, 0, len(runs))
	for _, run := range runs {
		ids = append(ids, strconv.FormatInt(run.ID, 10))
	}
	return strings.Join(ids, ", ")
}
