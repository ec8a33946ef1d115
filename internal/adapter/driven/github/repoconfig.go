package github

import (
	"context"
	"fmt"
	"net/http"

	"gopkg.in/yaml.v3"

	"github.com/ericfisherdev/runreaper/internal/domain/model"
)

// FetchRepoConfig reads the YAML config file from the repository's default
// branch. A missing file yields the zero config.
func (c *Client) FetchRepoConfig(ctx context.Context, owner, repo string) (model.RepoConfig, error) {
	var cfg model.RepoConfig

	file, _, resp, err := c.gh.Repositories.GetContents(ctx, owner, repo, c.configPath, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return cfg, nil
		}
		return cfg, apiError(fmt.Sprintf("fetching %s from %s/%s", c.configPath, owner, repo), resp, err)
	}
	if file == nil {
		return cfg, fmt.Errorf("%s in %s/%s is a directory", c.configPath, owner, repo)
	}

	content, err := file.GetContent()
	if err != nil {
		return cfg, fmt.Errorf("decoding %s from %s/%s: %w", c.configPath, owner, repo, err)
	}

	if err := yaml.Unmarshal([]byte(content), &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s from %s/%s: %w", c.configPath, owner, repo, err)
	}

	return cfg, nil
}
