package driven

import (
	"context"

	"github.com/ericfisherdev/runreaper/internal/domain/model"
)

// RepoConfigLoader reads the per-repository configuration file. A missing
// file yields a zero RepoConfig and no error.
type RepoConfigLoader interface {
	FetchRepoConfig(ctx context.Context, owner, repo string) (model.RepoConfig, error)
}
