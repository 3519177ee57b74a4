package changeset

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/jingkaihe/changegate/pkg/logger"
	"github.com/pkg/errors"
)

// GitDiff computes the ChangeSet between two revisions using the local
// git repository in dir. It uses the three-dot range so the comparison is
// against the merge base, matching how pull request diffs are computed.
func GitDiff(ctx context.Context, dir, base, head string) (*ChangeSet, error) {
	if base == "" || head == "" {
		return nil, errors.New("base and head revisions are required")
	}

	log := logger.G(ctx).WithField("base", base).WithField("head", head)

	args := []string{"diff", "--name-only", fmt.Sprintf("%s...%s", base, head)}
	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, errors.Wrapf(err, "git diff failed: %s", strings.TrimSpace(stderr.String()))
	}

	cs, err := FromReader(&stdout)
	if err != nil {
		return nil, err
	}

	log.WithField("files", cs.Len()).Debug("computed change set from git diff")
	return cs, nil
}

// IsGitRepository reports whether dir is inside a git work tree.
func IsGitRepository(ctx context.Context, dir string) bool {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--is-inside-work-tree")
	if dir != "" {
		cmd.Dir = dir
	}
	return cmd.Run() == nil
}
