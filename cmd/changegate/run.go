package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/changegate/pkg/changeset"
	"github.com/jingkaihe/changegate/pkg/config"
	"github.com/jingkaihe/changegate/pkg/github"
	"github.com/jingkaihe/changegate/pkg/history"
	"github.com/jingkaihe/changegate/pkg/presenter"
	"github.com/jingkaihe/changegate/pkg/runner"
)

// RunConfig holds configuration for the run command
type RunConfig struct {
	Base    string
	Head    string
	HeadSHA string
	RepoDir string
	DryRun  bool
}

// NewRunConfig creates a new RunConfig with default values
func NewRunConfig() *RunConfig {
	return &RunConfig{
		Head: "HEAD",
	}
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full gate: evaluate, then report or dispatch",
	Long: `Run the gate end to end. The change set is computed from the local git
diff between --base and --head. When no code changed, every configured
check is reported as successful on --head-sha without running; when code
did change, the configured test workflow is dispatched. With --dry-run the
decision is printed but nothing is reported or dispatched.`,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		runConfig := getRunConfigFromFlags(cmd)

		cfg, err := config.Load()
		if err != nil {
			presenter.Error(err, "Failed to load configuration")
			os.Exit(1)
		}

		opts := []runner.Option{}
		if !runConfig.DryRun {
			client := github.NewClient(ctx, cfg.GitHub.Token, cfg.GitHub.Owner, cfg.GitHub.Repo)
			opts = append(opts, runner.WithReporter(client), runner.WithDispatcher(client))
		}

		if !cfg.History.Disabled {
			store, err := history.NewStore(ctx, cfg.History.Path)
			if err != nil {
				presenter.Warning("History store unavailable, decisions will not be recorded")
			} else {
				defer store.Close()
				opts = append(opts, runner.WithRecorder(store))
			}
		}

		run, err := runner.New(cfg, opts...)
		if err != nil {
			presenter.Error(err, "Failed to initialize gate")
			os.Exit(1)
		}

		cs, err := changeset.GitDiff(ctx, runConfig.RepoDir, runConfig.Base, runConfig.Head)
		if err != nil {
			presenter.Error(err, "Failed to compute change set")
			os.Exit(1)
		}

		outcome, err := run.Gate(ctx, cs, runner.Ref{
			BaseBranch: runConfig.Base,
			HeadRef:    runConfig.Head,
			HeadSHA:    runConfig.HeadSHA,
		})
		if err != nil {
			presenter.Error(err, "Gate run failed")
			os.Exit(1)
		}

		presentOutcome(outcome, cs)
		switch outcome.Action {
		case history.ActionSkippedChecks:
			if !runConfig.DryRun {
				presenter.Success("Reported configured checks as successful")
			}
		case history.ActionDispatchedTests:
			if !runConfig.DryRun {
				presenter.Success("Dispatched full test workflow")
			}
		case runner.ActionOutOfScope:
			presenter.Info("Base branch outside gate scope; nothing to do")
		}
	},
}

func init() {
	defaults := NewRunConfig()
	runCmd.Flags().String("base", defaults.Base, "Base branch or revision (required)")
	runCmd.Flags().String("head", defaults.Head, "Head branch or revision")
	runCmd.Flags().String("head-sha", defaults.HeadSHA, "Commit SHA the skipped checks attach to")
	runCmd.Flags().String("repo-dir", defaults.RepoDir, "Git repository directory (defaults to the working directory)")
	runCmd.Flags().Bool("dry-run", defaults.DryRun, "Evaluate only; do not report or dispatch")
	runCmd.MarkFlagRequired("base")
}

// getRunConfigFromFlags extracts run configuration from command flags
func getRunConfigFromFlags(cmd *cobra.Command) *RunConfig {
	config := NewRunConfig()

	if base, err := cmd.Flags().GetString("base"); err == nil {
		config.Base = base
	}
	if head, err := cmd.Flags().GetString("head"); err == nil {
		config.Head = head
	}
	if headSHA, err := cmd.Flags().GetString("head-sha"); err == nil {
		config.HeadSHA = headSHA
	}
	if repoDir, err := cmd.Flags().GetString("repo-dir"); err == nil {
		config.RepoDir = repoDir
	}
	if dryRun, err := cmd.Flags().GetBool("dry-run"); err == nil {
		config.DryRun = dryRun
	}

	return config
}
