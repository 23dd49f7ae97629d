package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/cx-tal-miterani/tour-booking/internal/booking"
)

// RepositoryTestSuite runs against a real PostgreSQL instance
type RepositoryTestSuite struct {
	suite.Suite
	repo   *Repository
	ctx    context.Context
	tourID int64
}

func TestRepositoryTestSuite(t *testing.T) {
	if os.Getenv("TEST_DATABASE_URL") == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	suite.Run(t, new(RepositoryTestSuite))
}

func (s *RepositoryTestSuite) SetupSuite() {
	s.ctx = context.Background()
	pool, err := Connect(s.ctx, os.Getenv("TEST_DATABASE_URL"), 4)
	s.Require().NoError(err)
	s.T().Cleanup(pool.Close)

	s.repo = NewRepository(pool)
	s.Require().NoError(s.repo.Migrate(s.ctx))
	// Migrate must be repeatable
	s.Require().NoError(s.repo.Migrate(s.ctx))
}

func (s *RepositoryTestSuite) SetupTest() {
	// Each test works on its own tour so tests do not see each other
	s.tourID = time.Now().UnixNano() % 1_000_000_000
	s.T().Cleanup(func() {
		_, _ = s.repo.DeleteBookingsByTour(s.ctx, s.tourID)
	})
}

func (s *RepositoryTestSuite) newBooking(userID int64) *booking.Booking {
	now := time.Now().UTC().Truncate(time.Microsecond)
	b := booking.New(&booking.CreateRequest{
		UserID:     userID,
		TourID:     s.tourID,
		TravelDate: now.Add(30 * 24 * time.Hour),
	}, decimal.RequireFromString("150.25"), now)
	s.Require().NoError(s.repo.CreateBooking(s.ctx, b))
	return b
}

func (s *RepositoryTestSuite) TestCreateAndGet() {
	created := s.newBooking(1)

	got, err := s.repo.GetBooking(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(created.UserID, got.UserID)
	s.Equal(booking.StatusPending, got.Status)
	s.Equal(booking.PaymentStatusPending, got.PaymentStatus)
	s.True(decimal.RequireFromString("150.25").Equal(got.TotalPrice), "got %s", got.TotalPrice)
	s.Equal(int64(1), got.Version)
}

func (s *RepositoryTestSuite) TestGetMissing() {
	_, err := s.repo.GetBooking(s.ctx, uuid.New())
	s.ErrorIs(err, ErrNotFound)
}

func (s *RepositoryTestSuite) TestUpdateBookingCompareAndSwap() {
	created := s.newBooking(1)

	first, err := s.repo.GetBooking(s.ctx, created.ID)
	s.Require().NoError(err)
	second, err := s.repo.GetBooking(s.ctx, created.ID)
	s.Require().NoError(err)

	s.Require().NoError(first.Confirm(time.Now()))
	s.Require().NoError(s.repo.UpdateBooking(s.ctx, first))
	s.Equal(int64(2), first.Version)

	s.Require().NoError(second.Cancel(time.Now()))
	s.ErrorIs(s.repo.UpdateBooking(s.ctx, second), ErrVersionConflict)

	stored, err := s.repo.GetBooking(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(booking.StatusConfirmed, stored.Status)
	s.Equal(booking.PaymentStatusPaid, stored.PaymentStatus)
}

func (s *RepositoryTestSuite) TestUpdateMissing() {
	b := s.newBooking(1)
	b.ID = uuid.New()
	s.ErrorIs(s.repo.UpdateBooking(s.ctx, b), ErrNotFound)
}

func (s *RepositoryTestSuite) TestListAndCascade() {
	s.newBooking(1)
	s.newBooking(1)
	s.newBooking(2)

	tourID := s.tourID
	filter := booking.Filter{TourID: &tourID}
	s.Require().NoError(filter.Normalize())
	all, err := s.repo.ListBookings(s.ctx, filter)
	s.Require().NoError(err)
	s.Len(all, 3)

	userID := int64(1)
	filter = booking.Filter{TourID: &tourID, UserID: &userID, Limit: 1}
	s.Require().NoError(filter.Normalize())
	page, err := s.repo.ListBookings(s.ctx, filter)
	s.Require().NoError(err)
	s.Len(page, 1)

	deleted, err := s.repo.DeleteBookingsByTour(s.ctx, s.tourID)
	s.Require().NoError(err)
	s.Equal(int64(3), deleted)

	deleted, err = s.repo.DeleteBookingsByTour(s.ctx, s.tourID)
	s.Require().NoError(err)
	s.Equal(int64(0), deleted)
}

func (s *RepositoryTestSuite) TestStatusTotals() {
	b := s.newBooking(1)
	s.Require().NoError(b.Confirm(time.Now()))
	s.Require().NoError(s.repo.UpdateBooking(s.ctx, b))

	totals, err := s.repo.StatusTotals(s.ctx)
	s.Require().NoError(err)

	var confirmed *booking.StatusTotal
	for i := range totals {
		if totals[i].Status == booking.StatusConfirmed {
			confirmed = &totals[i]
		}
	}
	s.Require().NotNil(confirmed)
	s.GreaterOrEqual(confirmed.Count, int64(1))
}

func TestConnect_InvalidURL(t *testing.T) {
	_, err := Connect(context.Background(), "://not-a-url", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse database url")
}
