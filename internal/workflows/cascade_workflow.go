package workflows

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/cx-tal-miterani/tour-booking/internal/activities"
)

const (
	// TourCascadeWorkflowName is the registered workflow type
	TourCascadeWorkflowName = "TourCascadeWorkflow"

	// CascadeMaxAttempts bounds how long a cascade keeps retrying
	CascadeMaxAttempts = 10
	// CascadeActivityTimeout bounds one delete attempt
	CascadeActivityTimeout = 30 * time.Second
)

// TourCascadeInput is the input for the cascade workflow
type TourCascadeInput struct {
	TourID int64 `json:"tourId"`
}

// TourCascadeResult is the result of the cascade workflow
type TourCascadeResult struct {
	TourID  int64  `json:"tourId"`
	Deleted int64  `json:"deleted"`
	Message string `json:"message"`
}

// WorkflowID is the id a cascade for tourID runs under, so duplicate
// triggers for one tour collapse onto one execution
func WorkflowID(tourID int64) string {
	return fmt.Sprintf("tour-cascade-%d", tourID)
}

// TourCascadeWorkflow removes every booking of a deleted tour, retrying
// the delete until it lands or attempts run out
func TourCascadeWorkflow(ctx workflow.Context, input TourCascadeInput) (*TourCascadeResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Tour cascade workflow started", "tourID", input.TourID)

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: CascadeActivityTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        time.Second,
			BackoffCoefficient:     2.0,
			MaximumInterval:        time.Minute,
			MaximumAttempts:        CascadeMaxAttempts,
			NonRetryableErrorTypes: []string{activities.ErrTypeInvalidTour},
		},
	})

	var result activities.CascadeResult
	err := workflow.ExecuteActivity(ctx, activities.DeleteBookingsByTourName, activities.CascadeInput{
		TourID: input.TourID,
	}).Get(ctx, &result)
	if err != nil {
		logger.Error("Tour cascade failed", "tourID", input.TourID, "error", err)
		return nil, err
	}

	message := fmt.Sprintf("Deleted %d bookings for tour %d", result.Deleted, input.TourID)
	if result.Deleted == 0 {
		message = "No bookings found for this tour"
	}
	logger.Info("Tour cascade completed", "tourID", input.TourID, "deleted", result.Deleted)

	return &TourCascadeResult{
		TourID:  input.TourID,
		Deleted: result.Deleted,
		Message: message,
	}, nil
}
