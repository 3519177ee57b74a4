package github

import (
	"context"

	"github.com/google/go-github/v57/github"
	"github.com/pkg/errors"

	"github.com/jingkaihe/changegate/pkg/changeset"
	"github.com/jingkaihe/changegate/pkg/logger"
)

// CompareChanges computes the ChangeSet between base and head using the
// GitHub compare API. This is the diff collaborator used in server mode,
// where no local clone exists. Results are paginated; all pages are
// drained so large pull requests are classified on their full file list.
func (c *Client) CompareChanges(ctx context.Context, base, head string) (*changeset.ChangeSet, error) {
	if base == "" || head == "" {
		return nil, errors.New("base and head revisions are required")
	}

	log := logger.G(ctx).WithField("base", base).WithField("head", head)

	cs := changeset.New()
	opts := &github.ListOptions{PerPage: 100}

	for {
		var comparison *github.CommitsComparison
		var resp *github.Response

		err := retryAPI(ctx, "compare commits", func() error {
			var apiErr error
			comparison, resp, apiErr = c.client.Repositories.CompareCommits(
				ctx, c.owner, c.repo, base, head, opts)
			return apiErr
		})
		if err != nil {
			return nil, errors.Wrapf(err, "failed to compare %s...%s", base, head)
		}

		for _, f := range comparison.Files {
			cs.Add(f.GetFilename())
			// A rename touches both sides of the move.
			if prev := f.GetPreviousFilename(); prev != "" {
				cs.Add(prev)
			}
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	log.WithField("files", cs.Len()).Debug("computed change set from compare API")
	return cs, nil
}
