package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/changegate/pkg/changeset"
	"github.com/jingkaihe/changegate/pkg/config"
	"github.com/jingkaihe/changegate/pkg/presenter"
	"github.com/jingkaihe/changegate/pkg/runner"
)

// EvaluateConfig holds configuration for the evaluate command
type EvaluateConfig struct {
	Base       string
	Head       string
	Files      []string
	RepoDir    string
	JSON       bool
	ExitStatus bool
}

// NewEvaluateConfig creates a new EvaluateConfig with default values
func NewEvaluateConfig() *EvaluateConfig {
	return &EvaluateConfig{
		Head: "HEAD",
	}
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Decide whether a change set touches code paths",
	Long: `Evaluate the change-scope classifier against a change set and print
the decision. The change set comes from --files, from stdin (one path per
line, when --stdin is set), or from a local git diff between --base and
--head. Evaluation is pure: nothing is reported or dispatched.`,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		evalConfig := getEvaluateConfigFromFlags(cmd)

		cfg, err := config.Load()
		if err != nil {
			presenter.Error(err, "Failed to load configuration")
			os.Exit(1)
		}

		run, err := runner.New(cfg)
		if err != nil {
			presenter.Error(err, "Failed to initialize gate")
			os.Exit(1)
		}

		cs, err := resolveChangeSet(ctx, cmd, evalConfig)
		if err != nil {
			presenter.Error(err, "Failed to compute change set")
			os.Exit(1)
		}

		outcome := run.Evaluate(ctx, cs)

		if evalConfig.JSON {
			out, err := json.MarshalIndent(outcome, "", "  ")
			if err != nil {
				presenter.Error(err, "Failed to encode result")
				os.Exit(1)
			}
			fmt.Println(string(out))
		} else {
			presentOutcome(outcome, cs)
		}

		if evalConfig.ExitStatus && !outcome.Result.CodeChanged {
			os.Exit(1)
		}
	},
}

func init() {
	defaults := NewEvaluateConfig()
	evaluateCmd.Flags().String("base", defaults.Base, "Base revision for the git diff")
	evaluateCmd.Flags().String("head", defaults.Head, "Head revision for the git diff")
	evaluateCmd.Flags().StringSlice("files", defaults.Files, "Explicit change set (comma separated or repeated)")
	evaluateCmd.Flags().Bool("stdin", false, "Read the change set from stdin, one path per line")
	evaluateCmd.Flags().String("repo-dir", defaults.RepoDir, "Git repository directory (defaults to the working directory)")
	evaluateCmd.Flags().Bool("json", defaults.JSON, "Print the result as JSON")
	evaluateCmd.Flags().Bool("exit-status", defaults.ExitStatus, "Exit 1 when no code changed")
}

// getEvaluateConfigFromFlags extracts evaluate configuration from command flags
func getEvaluateConfigFromFlags(cmd *cobra.Command) *EvaluateConfig {
	config := NewEvaluateConfig()

	if base, err := cmd.Flags().GetString("base"); err == nil {
		config.Base = base
	}
	if head, err := cmd.Flags().GetString("head"); err == nil {
		config.Head = head
	}
	if files, err := cmd.Flags().GetStringSlice("files"); err == nil {
		config.Files = files
	}
	if repoDir, err := cmd.Flags().GetString("repo-dir"); err == nil {
		config.RepoDir = repoDir
	}
	if jsonOut, err := cmd.Flags().GetBool("json"); err == nil {
		config.JSON = jsonOut
	}
	if exitStatus, err := cmd.Flags().GetBool("exit-status"); err == nil {
		config.ExitStatus = exitStatus
	}

	return config
}

// resolveChangeSet picks the change-set source: explicit files, stdin, or
// a local git diff.
func resolveChangeSet(ctx context.Context, cmd *cobra.Command, evalConfig *EvaluateConfig) (*changeset.ChangeSet, error) {
	if len(evalConfig.Files) > 0 {
		return changeset.New(evalConfig.Files...), nil
	}

	if useStdin, err := cmd.Flags().GetBool("stdin"); err == nil && useStdin {
		return changeset.FromReader(os.Stdin)
	}

	return changeset.GitDiff(ctx, evalConfig.RepoDir, evalConfig.Base, evalConfig.Head)
}

// presentOutcome prints a human-readable gate decision.
func presentOutcome(outcome runner.Outcome, cs *changeset.ChangeSet) {
	presenter.Section("Gate Result")
	presenter.Info(fmt.Sprintf("Files evaluated: %d", cs.Len()))

	if outcome.Result.CodeChanged {
		presenter.Info(fmt.Sprintf("Matched: %s (pattern %s)", outcome.Result.MatchedPath, outcome.Result.MatchedPattern))
		presenter.Success("Code changed: full test suite required")
		return
	}

	presenter.Success("No code changed: checks can be skipped with success")
}
