package github

import (
	"context"
	"fmt"
	"strings"
	"time"

	retry "github.com/avast/retry-go/v4"
	"github.com/google/go-github/v57/github"
	"github.com/pkg/errors"

	"github.com/jingkaihe/changegate/pkg/logger"
)

const skipTitle = "Skipped: no code changes"

// ReportSkipped creates a successful check run for each named check on
// the given head SHA without executing anything. Branch protection rules
// match required checks by name, so a skipped run must still complete
// with a success conclusion rather than stay pending.
func (c *Client) ReportSkipped(ctx context.Context, headSHA string, checks []string) error {
	if headSHA == "" {
		return errors.New("head SHA is required")
	}

	log := logger.G(ctx).WithField("head_sha", headSHA)
	summary := buildSkipSummary(checks)

	for _, name := range checks {
		err := retryAPI(ctx, "create check run", func() error {
			_, _, apiErr := c.client.Checks.CreateCheckRun(ctx, c.owner, c.repo, github.CreateCheckRunOptions{
				Name:       name,
				HeadSHA:    headSHA,
				Status:     github.String("completed"),
				Conclusion: github.String("success"),
				CompletedAt: &github.Timestamp{
					Time: time.Now().UTC(),
				},
				Output: &github.CheckRunOutput{
					Title:   github.String(skipTitle),
					Summary: github.String(summary),
				},
			})
			return apiErr
		})
		if err != nil {
			return errors.Wrapf(err, "failed to report check %q as skipped", name)
		}
		log.WithField("check", name).Info("reported check as successful without running it")
	}

	return nil
}

// buildSkipSummary renders the human-readable explanation attached to
// skipped check runs.
func buildSkipSummary(checks []string) string {
	var b strings.Builder
	b.WriteString("None of the changed files match the configured code paths, ")
	b.WriteString("so the full test suite was not run.\n\n")
	b.WriteString(fmt.Sprintf("The following %d check(s) were marked successful without executing:\n", len(checks)))
	for _, name := range checks {
		b.WriteString(fmt.Sprintf("- %s\n", name))
	}
	return b.String()
}

// retryAPI wraps a GitHub API call with the standard retry policy.
// Client-side errors (4xx other than rate limiting) are not retried.
func retryAPI(ctx context.Context, op string, fn func() error) error {
	return retry.Do(
		fn,
		retry.RetryIf(isRetryableError),
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.MaxDelay(5*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			logger.G(ctx).WithError(err).WithField("attempt", n+1).Warnf("retrying GitHub API call: %s", op)
		}),
	)
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return true
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return true
	}
	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		return respErr.Response.StatusCode >= 500
	}
	// Transport-level failures are worth retrying.
	return true
}
