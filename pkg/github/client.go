// Package github wraps the GitHub API collaborators the gate depends on:
// the compare API for change sets, check runs for skip-with-success
// reporting, and workflow dispatch for delegating to the full test suite.
package github

import (
	"context"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/jingkaihe/changegate/pkg/logger"
)

// Client wraps the GitHub API client for a single repository.
type Client struct {
	client *github.Client
	owner  string
	repo   string
}

// NewClient creates a new GitHub client with authentication. An empty
// token yields an unauthenticated client, which is enough for reads
// against public repositories but not for check reporting.
func NewClient(ctx context.Context, token, owner, repo string) *Client {
	log := logger.G(ctx)

	if token == "" {
		log.Warn("No GitHub token provided - API rate limits will be restricted")
		return &Client{client: github.NewClient(nil), owner: owner, repo: repo}
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(ctx, ts)

	log.Debug("GitHub client initialized with authentication")
	return &Client{client: github.NewClient(tc), owner: owner, repo: repo}
}

// GetClient returns the underlying GitHub client.
func (c *Client) GetClient() *github.Client {
	return c.client
}
