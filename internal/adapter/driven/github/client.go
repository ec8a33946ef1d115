// Package github implements the driven GitHub ports using the go-github library.
package github

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"

	"github.com/ericfisherdev/runreaper/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.RunClient        = (*Client)(nil)
	_ driven.RepoWriter       = (*Client)(nil)
	_ driven.RepoConfigLoader = (*Client)(nil)
)

// DefaultConfigPath is where repositories keep their runreaper settings.
const DefaultConfigPath = ".github/runreaper.yml"

// Client implements the RunClient, RepoWriter and RepoConfigLoader ports.
type Client struct {
	gh         *gh.Client
	configPath string
}

// NewClient creates a new GitHub API client with the following transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. revalidation of Actions requests, so run listings are never served
//     from the cache without asking GitHub
//  3. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  4. go-github (GitHub REST API client with token auth)
func NewClient(token, configPath string) *Client {
	client := gh.NewClient(newHTTPClient(nil)).WithAuthToken(token)

	return &Client{
		gh:         client,
		configPath: orDefaultConfigPath(configPath),
	}
}

// newHTTPClient assembles the caching and rate-limiting transport stack on
// top of base. A nil base uses http.DefaultTransport.
func newHTTPClient(base http.RoundTripper) *http.Client {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	cacheTransport.Transport = base
	return github_ratelimit.NewClient(revalidatingTransport{next: cacheTransport})
}

// revalidatingTransport marks Actions GET requests with max-age=0. GitHub
// answers authenticated calls with max-age=60, and a run listing reused from
// the cache would hide runs requested in the meantime. With max-age=0 the
// cache sends a conditional request and only reuses its copy on a 304.
type revalidatingTransport struct {
	next http.RoundTripper
}

func (t revalidatingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method == http.MethodGet && strings.Contains(req.URL.Path, "/actions/") {
		req = req.Clone(req.Context())
		req.Header.Set("Cache-Control", "max-age=0")
	}
	return t.next.RoundTrip(req)
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL, configPath string) (*Client, error) {
	client := gh.NewClient(httpClient)

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	return &Client{
		gh:         client,
		configPath: orDefaultConfigPath(configPath),
	}, nil
}

func orDefaultConfigPath(p string) string {
	if p == "" {
		return DefaultConfigPath
	}
	return p
}

// apiError wraps err with the HTTP status of resp, when there is one.
func apiError(op string, resp *gh.Response, err error) error {
	apiErr := &driven.APIError{Op: op, Err: err}
	if resp != nil && resp.Response != nil {
		apiErr.StatusCode = resp.StatusCode
	}
	return apiErr
}

// logRateLimit logs the GitHub API rate limit status after each call.
func logRateLimit(resp *gh.Response, endpoint string, page, count int) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"page", page,
		"count", count,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Limit > 0 && resp.Rate.Remaining < 100 {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}
