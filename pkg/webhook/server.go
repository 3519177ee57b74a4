// Package webhook provides the HTTP surface for server mode: a health
// endpoint, a direct evaluation API, and a GitHub pull_request webhook
// that runs the gate against the compare API.
package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/jingkaihe/changegate/pkg/changeset"
	"github.com/jingkaihe/changegate/pkg/logger"
	"github.com/jingkaihe/changegate/pkg/runner"
)

// Comparer computes the change set between two revisions. Implemented by
// the GitHub client; faked in tests.
type Comparer interface {
	CompareChanges(ctx context.Context, base, head string) (*changeset.ChangeSet, error)
}

// ServerConfig holds the configuration for the webhook server
type ServerConfig struct {
	Host string
	Port int
	// WebhookSecret validates GitHub webhook signatures. Empty disables
	// signature validation (local testing only).
	WebhookSecret string
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Host == "" {
		return errors.New("host cannot be empty")
	}
	if c.Port < 1 || c.Port > 65535 {
		return errors.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	return nil
}

// Server serves the gate over HTTP.
type Server struct {
	router   *mux.Router
	runner   *runner.Runner
	comparer Comparer
	config   *ServerConfig
	server   *http.Server
}

// NewServer creates a new webhook server.
func NewServer(config *ServerConfig, run *runner.Runner, comparer Comparer) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid server configuration")
	}

	s := &Server{
		router:   mux.NewRouter(),
		runner:   run,
		comparer: comparer,
		config:   config,
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/evaluate", s.handleEvaluate).Methods(http.MethodPost)
	s.router.HandleFunc("/webhooks/github", s.handleGitHubWebhook).Methods(http.MethodPost)
}

// Handler returns the HTTP handler, exposed for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins serving and blocks until the context is cancelled, then
// shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.G(ctx).WithField("addr", addr).Info("webhook server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "server failed")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// evaluateRequest is the direct evaluation API payload.
type evaluateRequest struct {
	Files []string `json:"files"`
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	outcome := s.runner.Evaluate(r.Context(), changeset.New(req.Files...))
	writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) handleGitHubWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.G(ctx)

	payload, err := github.ValidatePayload(r, []byte(s.config.WebhookSecret))
	if err != nil {
		log.WithError(err).Warn("webhook signature validation failed")
		writeError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	event, err := github.ParseWebHook(github.WebHookType(r), payload)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unparseable payload")
		return
	}

	pr, ok := event.(*github.PullRequestEvent)
	if !ok {
		// Other event types are acknowledged and ignored.
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	switch pr.GetAction() {
	case "opened", "synchronize", "reopened":
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	base := pr.GetPullRequest().GetBase()
	head := pr.GetPullRequest().GetHead()

	cs, err := s.comparer.CompareChanges(ctx, base.GetSHA(), head.GetSHA())
	if err != nil {
		log.WithError(err).Error("failed to compute change set")
		writeError(w, http.StatusBadGateway, "failed to compute change set")
		return
	}

	outcome, err := s.runner.Gate(ctx, cs, runner.Ref{
		BaseBranch: base.GetRef(),
		HeadRef:    head.GetRef(),
		HeadSHA:    head.GetSHA(),
	})
	if err != nil {
		log.WithError(err).Error("gate run failed")
		writeError(w, http.StatusBadGateway, "gate run failed")
		return
	}

	writeJSON(w, http.StatusOK, outcome)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
