package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/changegate/pkg/changeset"
	"github.com/jingkaihe/changegate/pkg/config"
	"github.com/jingkaihe/changegate/pkg/runner"
)

type fakeComparer struct {
	files []string
	err   error
}

func (f *fakeComparer) CompareChanges(_ context.Context, _, _ string) (*changeset.ChangeSet, error) {
	if f.err != nil {
		return nil, f.err
	}
	return changeset.New(f.files...), nil
}

type fakeReporter struct {
	calls int
}

func (f *fakeReporter) ReportSkipped(_ context.Context, _ string, _ []string) error {
	f.calls++
	return nil
}

func newTestServer(t *testing.T, comparer Comparer, opts ...runner.Option) *Server {
	t.Helper()

	cfg := &config.Config{
		Gate: config.GateConfig{
			CodePaths: []string{"haystack/**/*.py", "pyproject.toml"},
			Checks:    []string{"unit-tests"},
		},
	}
	run, err := runner.New(cfg, opts...)
	require.NoError(t, err)

	srv, err := NewServer(&ServerConfig{Host: "127.0.0.1", Port: 8080}, run, comparer)
	require.NoError(t, err)
	return srv
}

func TestServerConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  ServerConfig
		wantErr bool
	}{
		{name: "valid", config: ServerConfig{Host: "127.0.0.1", Port: 8080}},
		{name: "empty host", config: ServerConfig{Port: 8080}, wantErr: true},
		{name: "port too low", config: ServerConfig{Host: "x", Port: 0}, wantErr: true},
		{name: "port too high", config: ServerConfig{Host: "x", Port: 70000}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &fakeComparer{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestEvaluateEndpoint(t *testing.T) {
	srv := newTestServer(t, &fakeComparer{})

	body, _ := json.Marshal(map[string][]string{
		"files": {"haystack/core/pipeline/base.py", "docs/README.md"},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/evaluate", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var outcome runner.Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcome))
	assert.True(t, outcome.Result.CodeChanged)
	assert.Equal(t, "haystack/**/*.py", outcome.Result.MatchedPattern)
}

func TestEvaluateEndpointNoCodeChanged(t *testing.T) {
	srv := newTestServer(t, &fakeComparer{})

	body, _ := json.Marshal(map[string][]string{"files": {"docs/README.md"}})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/evaluate", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var outcome runner.Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcome))
	assert.False(t, outcome.Result.CodeChanged)
}

func TestEvaluateEndpointBadBody(t *testing.T) {
	srv := newTestServer(t, &fakeComparer{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/evaluate", bytes.NewReader([]byte("{")))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func pullRequestPayload(action string) []byte {
	payload := map[string]interface{}{
		"action": action,
		"pull_request": map[string]interface{}{
			"base": map[string]interface{}{"ref": "main", "sha": "base-sha"},
			"head": map[string]interface{}{"ref": "feature", "sha": "head-sha"},
		},
	}
	out, _ := json.Marshal(payload)
	return out
}

func postWebhook(srv *Server, event string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/github", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Event", event)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestWebhookGatesDocOnlyPullRequest(t *testing.T) {
	reporter := &fakeReporter{}
	comparer := &fakeComparer{files: []string{"docs/README.md", "releasenotes/notes/foo.yaml"}}
	srv := newTestServer(t, comparer, runner.WithReporter(reporter))

	rec := postWebhook(srv, "pull_request", pullRequestPayload("opened"))

	require.Equal(t, http.StatusOK, rec.Code)

	var outcome runner.Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcome))
	assert.False(t, outcome.Result.CodeChanged)
	assert.Equal(t, 1, reporter.calls)
}

func TestWebhookCodeChange(t *testing.T) {
	reporter := &fakeReporter{}
	comparer := &fakeComparer{files: []string{"haystack/utils/hf.py"}}
	srv := newTestServer(t, comparer, runner.WithReporter(reporter))

	rec := postWebhook(srv, "pull_request", pullRequestPayload("synchronize"))

	require.Equal(t, http.StatusOK, rec.Code)

	var outcome runner.Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcome))
	assert.True(t, outcome.Result.CodeChanged)
	assert.Zero(t, reporter.calls)
}

func TestWebhookIgnoresOtherActions(t *testing.T) {
	srv := newTestServer(t, &fakeComparer{})

	rec := postWebhook(srv, "pull_request", pullRequestPayload("closed"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ignored")
}

func TestWebhookIgnoresOtherEvents(t *testing.T) {
	srv := newTestServer(t, &fakeComparer{})

	rec := postWebhook(srv, "push", []byte(`{"ref":"refs/heads/main"}`))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ignored")
}

func TestWebhookComparerFailure(t *testing.T) {
	comparer := &fakeComparer{err: errors.New("api down")}
	srv := newTestServer(t, comparer)

	rec := postWebhook(srv, "pull_request", pullRequestPayload("opened"))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	cfg := &config.Config{
		Gate: config.GateConfig{CodePaths: []string{"src/**"}},
	}
	run, err := runner.New(cfg)
	require.NoError(t, err)

	srv, err := NewServer(&ServerConfig{Host: "127.0.0.1", Port: 8080, WebhookSecret: "s3cret"}, run, &fakeComparer{})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/github", bytes.NewReader(pullRequestPayload("opened")))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Event", "pull_request")
	req.Header.Set("X-Hub-Signature-256", "sha256=deadbeef")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
