package github

import (
	"context"

	"github.com/google/go-github/v57/github"
	"github.com/pkg/errors"

	"github.com/jingkaihe/changegate/pkg/logger"
)

// DispatchWorkflow triggers the named workflow file on the given ref via
// workflow_dispatch. This is how the gate delegates to the full test
// suite once code changes are detected.
func (c *Client) DispatchWorkflow(ctx context.Context, workflow, ref string, inputs map[string]interface{}) error {
	if workflow == "" {
		return errors.New("workflow file name is required")
	}
	if ref == "" {
		return errors.New("ref is required")
	}

	log := logger.G(ctx).WithField("workflow", workflow).WithField("ref", ref)

	err := retryAPI(ctx, "dispatch workflow", func() error {
		_, apiErr := c.client.Actions.CreateWorkflowDispatchEventByFileName(
			ctx, c.owner, c.repo, workflow, github.CreateWorkflowDispatchEventRequest{
				Ref:    ref,
				Inputs: inputs,
			})
		return apiErr
	})
	if err != nil {
		return errors.Wrapf(err, "failed to dispatch workflow %s", workflow)
	}

	log.Info("dispatched full test workflow")
	return nil
}
