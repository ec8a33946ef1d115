package driven

import (
	"context"

	"github.com/ericfisherdev/runreaper/internal/domain/model"
)

// EpisodeStore defines the driven port for the reconciliation history.
// The history is write-only from an episode's perspective; it backs the
// HTTP views and is never read when deciding what to cancel.
type EpisodeStore interface {
	Save(ctx context.Context, report model.Report) error
	// GetByID returns (nil, nil) when no episode has the given id.
	GetByID(ctx context.Context, id string) (*model.Report, error)
	// ListRecent returns the newest episodes first.
	ListRecent(ctx context.Context, limit int) ([]model.EpisodeSummary, error)
}
