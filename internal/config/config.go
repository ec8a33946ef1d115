// Package config loads application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// EnvGitHubToken is the environment variable holding the GitHub API token.
const EnvGitHubToken = "RUNREAPER_GITHUB_TOKEN"

// ErrMissingToken is returned by Load when no GitHub token is configured.
var ErrMissingToken = errors.New(EnvGitHubToken + " is required")

// Config holds the application configuration loaded from environment variables.
type Config struct {
	GitHubToken    string
	WebhookSecret  string
	ListenAddr     string
	DBPath         string
	ExcludedEvents []string
	RepoConfigPath string
	Debug          bool
	DebugFile      string
	LogLevel       slog.Level
	HistoryLimit   int
}

// Load reads configuration from environment variables and returns a validated Config.
// RUNREAPER_GITHUB_TOKEN is required. Optional variables with defaults:
// RUNREAPER_WEBHOOK_SECRET (unset, signatures not checked),
// RUNREAPER_LISTEN_ADDR (127.0.0.1:8080), RUNREAPER_DB_PATH (runreaper.db),
// RUNREAPER_EXCLUDED_EVENTS (workflow_dispatch,issue_comment),
// RUNREAPER_REPO_CONFIG_PATH (.github/runreaper.yml), RUNREAPER_DEBUG (false),
// RUNREAPER_DEBUG_FILE (outputs.txt), RUNREAPER_LOG_LEVEL (info),
// RUNREAPER_HISTORY_LIMIT (50).
func Load() (*Config, error) {
	token := strings.TrimSpace(os.Getenv(EnvGitHubToken))
	if token == "" {
		return nil, ErrMissingToken
	}

	cfg := &Config{
		GitHubToken:    token,
		WebhookSecret:  os.Getenv("RUNREAPER_WEBHOOK_SECRET"),
		ListenAddr:     "127.0.0.1:8080",
		DBPath:         "runreaper.db",
		ExcludedEvents: []string{"workflow_dispatch", "issue_comment"},
		RepoConfigPath: ".github/runreaper.yml",
		DebugFile:      "outputs.txt",
		LogLevel:       slog.LevelInfo,
		HistoryLimit:   50,
	}

	if v, ok := os.LookupEnv("RUNREAPER_LISTEN_ADDR"); ok {
		cfg.ListenAddr = v
	}

	if v, ok := os.LookupEnv("RUNREAPER_DB_PATH"); ok {
		cfg.DBPath = v
	}

	if v, ok := os.LookupEnv("RUNREAPER_EXCLUDED_EVENTS"); ok {
		cfg.ExcludedEvents = splitList(v)
	}

	if v, ok := os.LookupEnv("RUNREAPER_REPO_CONFIG_PATH"); ok && v != "" {
		cfg.RepoConfigPath = v
	}

	if v, ok := os.LookupEnv("RUNREAPER_DEBUG"); ok && v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("RUNREAPER_DEBUG has invalid value %q: %w", v, err)
		}
		cfg.Debug = debug
	}

	if v, ok := os.LookupEnv("RUNREAPER_DEBUG_FILE"); ok && v != "" {
		cfg.DebugFile = v
	}

	if v, ok := os.LookupEnv("RUNREAPER_LOG_LEVEL"); ok && v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("RUNREAPER_LOG_LEVEL has invalid value %q: %w", v, err)
		}
	}

	if v, ok := os.LookupEnv("RUNREAPER_HISTORY_LIMIT"); ok && v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			return nil, fmt.Errorf("RUNREAPER_HISTORY_LIMIT must be a positive integer, got %q", v)
		}
		cfg.HistoryLimit = limit
	}

	return cfg, nil
}

// splitList parses a comma-separated list, dropping blank entries.
func splitList(v string) []string {
	items := []string{}
	for _, item := range strings.Split(v, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}
