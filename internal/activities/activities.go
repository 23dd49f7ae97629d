package activities

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
)

const (
	// DeleteBookingsByTourName is the registered name of the cascade activity
	DeleteBookingsByTourName = "DeleteBookingsByTour"

	// ErrTypeInvalidTour marks cascade input that no retry can fix
	ErrTypeInvalidTour = "InvalidTourID"
)

// BookingStore is the slice of persistence the cascade needs
type BookingStore interface {
	DeleteBookingsByTour(ctx context.Context, tourID int64) (int64, error)
}

// CascadeInput is the input of the cascade activity
type CascadeInput struct {
	TourID int64 `json:"tourId"`
}

// CascadeResult reports how many bookings a cascade removed
type CascadeResult struct {
	TourID  int64 `json:"tourId"`
	Deleted int64 `json:"deleted"`
}

// Activities holds the activity implementations
type Activities struct {
	store BookingStore
}

// NewActivities creates activities backed by store
func NewActivities(store BookingStore) *Activities {
	return &Activities{store: store}
}

// DeleteBookingsByTour removes every booking of the tour. Running it again
// after success deletes nothing, so retries are safe.
func (a *Activities) DeleteBookingsByTour(ctx context.Context, input CascadeInput) (*CascadeResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Deleting bookings for tour", "tourID", input.TourID)

	if input.TourID <= 0 {
		return nil, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("invalid tour id %d", input.TourID), ErrTypeInvalidTour, nil)
	}

	deleted, err := a.store.DeleteBookingsByTour(ctx, input.TourID)
	if err != nil {
		logger.Error("Failed to delete bookings", "tourID", input.TourID, "error", err)
		return nil, fmt.Errorf("failed to delete bookings for tour %d: %w", input.TourID, err)
	}

	logger.Info("Bookings deleted", "tourID", input.TourID, "deleted", deleted)
	return &CascadeResult{TourID: input.TourID, Deleted: deleted}, nil
}
