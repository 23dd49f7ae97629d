package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/cx-tal-miterani/tour-booking/internal/booking"
	"github.com/cx-tal-miterani/tour-booking/internal/clients"
)

// MockStore is a mock implementation of service.Store
type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreateBooking(ctx context.Context, b *booking.Booking) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *MockStore) GetBooking(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockStore) UpdateBooking(ctx context.Context, b *booking.Booking) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *MockStore) ListBookings(ctx context.Context, filter booking.Filter) ([]booking.Booking, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]booking.Booking), args.Error(1)
}

func (m *MockStore) DeleteBookingsByTour(ctx context.Context, tourID int64) (int64, error) {
	args := m.Called(ctx, tourID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) StatusTotals(ctx context.Context) ([]booking.StatusTotal, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]booking.StatusTotal), args.Error(1)
}

// MockIdentityLookup is a mock implementation of clients.IdentityLookup
type MockIdentityLookup struct {
	mock.Mock
}

func (m *MockIdentityLookup) LookupUser(ctx context.Context, userID int64, credential string) (*clients.User, error) {
	args := m.Called(ctx, userID, credential)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*clients.User), args.Error(1)
}

// MockPriceLookup is a mock implementation of clients.PriceLookup
type MockPriceLookup struct {
	mock.Mock
}

func (m *MockPriceLookup) UnitPrice(ctx context.Context, tourID int64) (decimal.Decimal, error) {
	args := m.Called(ctx, tourID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// MockTourLookup is a mock implementation of clients.TourLookup
type MockTourLookup struct {
	mock.Mock
}

func (m *MockTourLookup) TourInfo(ctx context.Context, tourID int64) (*booking.TourInfo, error) {
	args := m.Called(ctx, tourID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.TourInfo), args.Error(1)
}

// MockNotifier records published events
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Publish(event booking.Event) {
	m.Called(event)
}

// MockCascadeScheduler is a mock implementation of service.CascadeScheduler
type MockCascadeScheduler struct {
	mock.Mock
}

func (m *MockCascadeScheduler) ScheduleTourCascade(ctx context.Context, tourID int64) (string, error) {
	args := m.Called(ctx, tourID)
	return args.String(0), args.Error(1)
}
