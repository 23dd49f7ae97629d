package service

import (
	"context"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"

	"github.com/cx-tal-miterani/tour-booking/internal/booking"
	"github.com/cx-tal-miterani/tour-booking/internal/workflows"
)

// TemporalCascadeScheduler starts cascade workflows on a Temporal cluster
type TemporalCascadeScheduler struct {
	temporalClient client.Client
	taskQueue      string
}

// NewTemporalCascadeScheduler creates a scheduler for taskQueue
func NewTemporalCascadeScheduler(temporalClient client.Client, taskQueue string) *TemporalCascadeScheduler {
	return &TemporalCascadeScheduler{temporalClient: temporalClient, taskQueue: taskQueue}
}

// ScheduleTourCascade starts the cascade for tourID. A cascade already
// running for the tour is reused.
func (c *TemporalCascadeScheduler) ScheduleTourCascade(ctx context.Context, tourID int64) (string, error) {
	workflowOptions := client.StartWorkflowOptions{
		ID:                    workflows.WorkflowID(tourID),
		TaskQueue:             c.taskQueue,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
	}

	run, err := c.temporalClient.ExecuteWorkflow(ctx, workflowOptions, workflows.TourCascadeWorkflowName, workflows.TourCascadeInput{
		TourID: tourID,
	})
	if err != nil {
		return "", booking.Upstream("failed to start cascade workflow", err)
	}
	return run.GetID(), nil
}
