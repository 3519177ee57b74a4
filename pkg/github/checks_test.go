package github

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/go-github/v57/github"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientWithoutToken(t *testing.T) {
	c := NewClient(context.Background(), "", "deepset-ai", "haystack")
	require.NotNil(t, c)
	assert.NotNil(t, c.GetClient())
}

func TestNewClientWithToken(t *testing.T) {
	c := NewClient(context.Background(), "ghp_test", "deepset-ai", "haystack")
	require.NotNil(t, c)
	assert.NotNil(t, c.GetClient())
}

func TestBuildSkipSummary(t *testing.T) {
	summary := buildSkipSummary([]string{"unit-tests", "integration-tests"})

	assert.Contains(t, summary, "full test suite was not run")
	assert.Contains(t, summary, "2 check(s)")
	assert.Contains(t, summary, "- unit-tests")
	assert.Contains(t, summary, "- integration-tests")
}

func TestReportSkippedRequiresHeadSHA(t *testing.T) {
	c := NewClient(context.Background(), "", "o", "r")
	err := c.ReportSkipped(context.Background(), "", []string{"tests"})
	assert.Error(t, err)
}

func TestDispatchWorkflowValidation(t *testing.T) {
	c := NewClient(context.Background(), "", "o", "r")

	err := c.DispatchWorkflow(context.Background(), "", "main", nil)
	assert.Error(t, err)

	err = c.DispatchWorkflow(context.Background(), "tests.yml", "", nil)
	assert.Error(t, err)
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "rate limit", err: &github.RateLimitError{}, want: true},
		{name: "abuse rate limit", err: &github.AbuseRateLimitError{}, want: true},
		{
			name: "server error",
			err: &github.ErrorResponse{
				Response: &http.Response{StatusCode: http.StatusBadGateway},
			},
			want: true,
		},
		{
			name: "client error",
			err: &github.ErrorResponse{
				Response: &http.Response{StatusCode: http.StatusUnprocessableEntity},
			},
			want: false,
		},
		{name: "transport error", err: errors.New("connection reset"), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryableError(tt.err))
		})
	}
}
