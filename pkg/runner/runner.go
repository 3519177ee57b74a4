// Package runner ties the gate pieces together: it evaluates a change
// set against the configured code paths and applies the downstream
// policy — report skipped checks as successful when no code changed,
// dispatch the full test workflow when it did.
package runner

import (
	"context"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jingkaihe/changegate/pkg/changeset"
	"github.com/jingkaihe/changegate/pkg/config"
	"github.com/jingkaihe/changegate/pkg/gate"
	"github.com/jingkaihe/changegate/pkg/history"
	"github.com/jingkaihe/changegate/pkg/logger"
	"github.com/jingkaihe/changegate/pkg/telemetry"
)

// CheckReporter marks named checks as completed successfully without
// executing them. Implemented by the GitHub client.
type CheckReporter interface {
	ReportSkipped(ctx context.Context, headSHA string, checks []string) error
}

// WorkflowDispatcher delegates to the full test workflow. Implemented by
// the GitHub client.
type WorkflowDispatcher interface {
	DispatchWorkflow(ctx context.Context, workflow, ref string, inputs map[string]interface{}) error
}

// Recorder persists gate decisions. Implemented by the history store.
type Recorder interface {
	Record(ctx context.Context, d *history.Decision) error
}

// Ref identifies the change under evaluation.
type Ref struct {
	// BaseBranch is the branch the change targets, used for the branch
	// scope filter.
	BaseBranch string
	// HeadRef is the ref dispatched when code changed.
	HeadRef string
	// HeadSHA is the commit the skipped checks are attached to.
	HeadSHA string
}

// Outcome is the result of one gate run.
type Outcome struct {
	Result gate.Result `json:"result"`
	// Action records what the runner did: evaluated, skipped-checks,
	// dispatched-tests, or out-of-scope.
	Action string `json:"action"`
}

// ActionOutOfScope means the base branch is outside the gate's branch
// filter, so no decision was made.
const ActionOutOfScope = "out-of-scope"

// Runner evaluates the gate and applies the downstream policy.
type Runner struct {
	cfg        *config.Config
	patterns   *gate.PatternSet
	reporter   CheckReporter
	dispatcher WorkflowDispatcher
	recorder   Recorder
}

// Option configures a Runner.
type Option func(*Runner)

// WithReporter wires the check-reporting collaborator.
func WithReporter(r CheckReporter) Option {
	return func(run *Runner) { run.reporter = r }
}

// WithDispatcher wires the workflow-dispatch collaborator.
func WithDispatcher(d WorkflowDispatcher) Option {
	return func(run *Runner) { run.dispatcher = d }
}

// WithRecorder wires the decision-history store.
func WithRecorder(rec Recorder) Option {
	return func(run *Runner) { run.recorder = rec }
}

// New creates a Runner from a validated config. Pattern compilation
// happens once here; evaluation itself never errors.
func New(cfg *config.Config, opts ...Option) (*Runner, error) {
	patterns, err := cfg.PatternSet()
	if err != nil {
		return nil, errors.Wrap(err, "invalid gate configuration")
	}

	r := &Runner{cfg: cfg, patterns: patterns}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Evaluate runs only the classifier, with no downstream effects beyond
// an optional history row.
func (r *Runner) Evaluate(ctx context.Context, cs *changeset.ChangeSet) Outcome {
	result := r.patterns.Evaluate(cs.Paths())
	outcome := Outcome{Result: result, Action: history.ActionEvaluated}
	r.record(ctx, cs, Ref{}, outcome)
	return outcome
}

// Gate evaluates the change set and applies the downstream policy. The
// evaluation itself cannot fail; returned errors come from the GitHub
// collaborators only.
func (r *Runner) Gate(ctx context.Context, cs *changeset.ChangeSet, ref Ref) (Outcome, error) {
	log := logger.G(ctx).WithField("base_branch", ref.BaseBranch).WithField("head_sha", ref.HeadSHA)

	if !r.cfg.Gate.AppliesTo(ref.BaseBranch) {
		log.Debug("base branch outside gate scope")
		return Outcome{Action: ActionOutOfScope}, nil
	}

	var outcome Outcome
	err := telemetry.WithSpan(ctx, "gate.run", func(ctx context.Context) error {
		result := r.patterns.Evaluate(cs.Paths())
		telemetry.SetAttributes(ctx,
			attribute.Bool("gate.code_changed", result.CodeChanged),
			attribute.Int("gate.files_evaluated", result.Evaluated),
		)

		if result.CodeChanged {
			outcome = Outcome{Result: result, Action: history.ActionDispatchedTests}
			log.WithField("matched_path", result.MatchedPath).Info("code changed, delegating to full test workflow")
			if r.dispatcher != nil && r.cfg.Gate.Workflow != "" {
				return r.dispatcher.DispatchWorkflow(ctx, r.cfg.Gate.Workflow, ref.HeadRef, nil)
			}
			return nil
		}

		outcome = Outcome{Result: result, Action: history.ActionSkippedChecks}
		log.WithField("files", result.Evaluated).Info("no code changed, reporting checks as successful")
		if r.reporter != nil && len(r.cfg.Gate.Checks) > 0 && ref.HeadSHA != "" {
			return r.reporter.ReportSkipped(ctx, ref.HeadSHA, r.cfg.Gate.Checks)
		}
		return nil
	})
	if err != nil {
		return outcome, err
	}

	r.record(ctx, cs, ref, outcome)
	return outcome, nil
}

func (r *Runner) record(ctx context.Context, cs *changeset.ChangeSet, ref Ref, outcome Outcome) {
	if r.recorder == nil {
		return
	}

	d := &history.Decision{
		Base:           ref.BaseBranch,
		Head:           ref.HeadRef,
		FilesChanged:   cs.Len(),
		CodeChanged:    outcome.Result.CodeChanged,
		MatchedPath:    outcome.Result.MatchedPath,
		MatchedPattern: outcome.Result.MatchedPattern,
		Action:         outcome.Action,
	}
	if err := r.recorder.Record(ctx, d); err != nil {
		// History is best effort; the decision itself already happened.
		logger.G(ctx).WithError(err).Warn("failed to record gate decision")
	}
}
