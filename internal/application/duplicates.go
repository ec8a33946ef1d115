package application

import (
	"slices"

	"github.com/ericfisherdev/runreaper/internal/domain/model"
)

// MergeCandidates unions the runs of every successful status query into a
// set keyed by run ID. A run listed under several status classes appears
// once. The result is ordered oldest first.
func MergeCandidates(results []model.StatusQueryResult) []model.CandidateRun {
	seen := make(map[int64]bool)
	var merged []model.CandidateRun

	for _, res := range results {
		if res.Failed() {
			continue
		}
		for _, run := range res.Runs {
			if seen[run.ID] {
				continue
			}
			seen[run.ID] = true
			merged = append(merged, run)
		}
	}

	sortOldestFirst(merged)
	return merged
}

// SelectDuplicates returns the runs that trigger should cancel: every merged
// candidate other than the trigger run itself that is older than it. Ties on
// creation time are broken by ascending run ID, so of two runs created in the
// same instant only the higher ID survives.
func SelectDuplicates(trigger model.TriggerEvent, results []model.StatusQueryResult) []model.CandidateRun {
	self := model.CandidateRun{ID: trigger.RunID, CreatedAt: trigger.RunCreatedAt}

	var duplicates []model.CandidateRun
	for _, run := range MergeCandidates(results) {
		if run.ID == self.ID {
			continue
		}
		if !run.OlderThan(self) {
			continue
		}
		duplicates = append(duplicates, run)
	}

	return duplicates
}

func sortOldestFirst(runs []model.CandidateRun) {
	slices.SortFunc(runs, func(a, b model.CandidateRun) int {
		switch {
		case a.OlderThan(b):
			return -1
		case b.OlderThan(a):
			return 1
		default:
			return 0
		}
	})
}
