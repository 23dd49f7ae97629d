package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/cx-tal-miterani/tour-booking/internal/booking"
	"github.com/cx-tal-miterani/tour-booking/internal/clients"
	"github.com/cx-tal-miterani/tour-booking/internal/database"
)

// maxEnrichConcurrency bounds parallel catalog calls per listing
const maxEnrichConcurrency = 4

// BookingService defines the booking service interface
type BookingService interface {
	CreateBooking(ctx context.Context, req *booking.CreateRequest, credential string) (*booking.Booking, error)
	GetBooking(ctx context.Context, id uuid.UUID) (*booking.Booking, error)
	UpdateBooking(ctx context.Context, id uuid.UUID, req *booking.UpdateRequest) (*booking.Booking, error)
	ConfirmBooking(ctx context.Context, id uuid.UUID) (*booking.Booking, error)
	CancelBooking(ctx context.Context, id uuid.UUID) (*booking.Booking, error)
	CompleteBooking(ctx context.Context, id uuid.UUID) (*booking.Booking, error)
	ListBookings(ctx context.Context, filter booking.Filter) ([]booking.Booking, error)
	ListUserBookings(ctx context.Context, userID int64, filter booking.Filter) ([]booking.WithTour, error)
	ListTourBookings(ctx context.Context, tourID int64, filter booking.Filter) ([]booking.Booking, error)
	GetStats(ctx context.Context) (*booking.Stats, error)
	DeleteTourBookings(ctx context.Context, tourID int64) (int64, error)
	ScheduleTourCascade(ctx context.Context, tourID int64) (string, error)
}

// Store is the persistence the orchestrator relies on
type Store interface {
	CreateBooking(ctx context.Context, b *booking.Booking) error
	GetBooking(ctx context.Context, id uuid.UUID) (*booking.Booking, error)
	UpdateBooking(ctx context.Context, b *booking.Booking) error
	ListBookings(ctx context.Context, filter booking.Filter) ([]booking.Booking, error)
	DeleteBookingsByTour(ctx context.Context, tourID int64) (int64, error)
	StatusTotals(ctx context.Context) ([]booking.StatusTotal, error)
}

// Notifier receives committed booking events
type Notifier interface {
	Publish(event booking.Event)
}

// CascadeScheduler starts the durable cascade for a tour
type CascadeScheduler interface {
	ScheduleTourCascade(ctx context.Context, tourID int64) (string, error)
}

// Option configures the booking service
type Option func(*bookingServiceImpl)

// WithTourLookup enables tour info on per-user listings
func WithTourLookup(tours clients.TourLookup) Option {
	return func(s *bookingServiceImpl) { s.tours = tours }
}

// WithNotifier publishes an event after every committed mutation
func WithNotifier(n Notifier) Option {
	return func(s *bookingServiceImpl) { s.notifier = n }
}

// WithCascadeScheduler enables the asynchronous cascade path
func WithCascadeScheduler(c CascadeScheduler) Option {
	return func(s *bookingServiceImpl) { s.cascade = c }
}

// WithParallelLookups issues the identity and price lookups concurrently
func WithParallelLookups(parallel bool) Option {
	return func(s *bookingServiceImpl) { s.parallel = parallel }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *bookingServiceImpl) { s.now = now }
}

// bookingServiceImpl implements BookingService
type bookingServiceImpl struct {
	store    Store
	identity clients.IdentityLookup
	prices   clients.PriceLookup
	tours    clients.TourLookup
	notifier Notifier
	cascade  CascadeScheduler
	parallel bool
	now      func() time.Time
	logger   logrus.FieldLogger
}

// NewBookingService creates a new BookingService
func NewBookingService(store Store, identity clients.IdentityLookup, prices clients.PriceLookup, logger logrus.FieldLogger, opts ...Option) BookingService {
	s := &bookingServiceImpl{
		store:    store,
		identity: identity,
		prices:   prices,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger.WithField("component", "booking-service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *bookingServiceImpl) CreateBooking(ctx context.Context, req *booking.CreateRequest, credential string) (*booking.Booking, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	unit, err := s.lookup(ctx, req.UserID, req.TourID, credential)
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"user_id": req.UserID,
			"tour_id": req.TourID,
		}).Warn("Booking lookup failed")
		return nil, err
	}

	total, err := booking.TotalPrice(unit, req.Participants())
	if err != nil {
		return nil, err
	}

	b := booking.New(req, total, s.now())
	if err := s.store.CreateBooking(ctx, b); err != nil {
		return nil, storeError(err)
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":  b.ID,
		"user_id":     b.UserID,
		"tour_id":     b.TourID,
		"total_price": b.TotalPrice.StringFixed(booking.PriceScale),
	}).Info("Booking created")
	s.publish(booking.EventCreated, b)
	return b, nil
}

// lookup validates the user and fetches the unit price. Identity is
// always judged first, even when both calls run at once.
func (s *bookingServiceImpl) lookup(ctx context.Context, userID, tourID int64, credential string) (decimal.Decimal, error) {
	if !s.parallel {
		if _, err := s.identity.LookupUser(ctx, userID, credential); err != nil {
			return decimal.Zero, err
		}
		return s.prices.UnitPrice(ctx, tourID)
	}

	var (
		g                 errgroup.Group
		userErr, priceErr error
		unit              decimal.Decimal
	)
	g.Go(func() error {
		_, userErr = s.identity.LookupUser(ctx, userID, credential)
		return userErr
	})
	g.Go(func() error {
		unit, priceErr = s.prices.UnitPrice(ctx, tourID)
		return priceErr
	})
	_ = g.Wait()

	if userErr != nil {
		return decimal.Zero, userErr
	}
	if priceErr != nil {
		return decimal.Zero, priceErr
	}
	return unit, nil
}

func (s *bookingServiceImpl) GetBooking(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	b, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	return b, nil
}

func (s *bookingServiceImpl) UpdateBooking(ctx context.Context, id uuid.UUID, req *booking.UpdateRequest) (*booking.Booking, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	b, err := s.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := b.CanUpdate(); err != nil {
		return nil, err
	}

	var total *decimal.Decimal
	if req.ParticipantsCount != nil {
		unit, err := s.prices.UnitPrice(ctx, b.TourID)
		if err != nil {
			return nil, err
		}
		t, err := booking.TotalPrice(unit, *req.ParticipantsCount)
		if err != nil {
			return nil, err
		}
		total = &t
	}

	if err := b.ApplyUpdate(req, total, s.now()); err != nil {
		return nil, err
	}
	return s.save(ctx, b, booking.EventUpdated)
}

func (s *bookingServiceImpl) ConfirmBooking(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	return s.transition(ctx, id, (*booking.Booking).Confirm, booking.EventConfirmed)
}

func (s *bookingServiceImpl) CancelBooking(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	return s.transition(ctx, id, (*booking.Booking).Cancel, booking.EventCancelled)
}

func (s *bookingServiceImpl) CompleteBooking(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	return s.transition(ctx, id, (*booking.Booking).Complete, booking.EventCompleted)
}

func (s *bookingServiceImpl) transition(ctx context.Context, id uuid.UUID, apply func(*booking.Booking, time.Time) error, event booking.EventType) (*booking.Booking, error) {
	b, err := s.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(b, s.now()); err != nil {
		return nil, err
	}
	return s.save(ctx, b, event)
}

// save persists b only if it is unchanged since it was read
func (s *bookingServiceImpl) save(ctx context.Context, b *booking.Booking, event booking.EventType) (*booking.Booking, error) {
	if err := s.store.UpdateBooking(ctx, b); err != nil {
		if errors.Is(err, database.ErrVersionConflict) {
			s.logger.WithField("booking_id", b.ID).Warn("Concurrent booking modification")
		}
		return nil, storeError(err)
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": b.ID,
		"status":     b.Status,
		"version":    b.Version,
	}).Info("Booking updated")
	s.publish(event, b)
	return b, nil
}

func (s *bookingServiceImpl) ListBookings(ctx context.Context, filter booking.Filter) ([]booking.Booking, error) {
	if err := filter.Normalize(); err != nil {
		return nil, err
	}
	bookings, err := s.store.ListBookings(ctx, filter)
	if err != nil {
		return nil, storeError(err)
	}
	return bookings, nil
}

func (s *bookingServiceImpl) ListUserBookings(ctx context.Context, userID int64, filter booking.Filter) ([]booking.WithTour, error) {
	if userID <= 0 {
		return nil, booking.Validationf("user_id must be positive")
	}
	filter.UserID = &userID
	filter.TourID = nil

	bookings, err := s.ListBookings(ctx, filter)
	if err != nil {
		return nil, err
	}

	infos := s.tourInfos(ctx, bookings)
	result := make([]booking.WithTour, len(bookings))
	for i, b := range bookings {
		result[i] = booking.WithTour{Booking: b, TourInfo: infos[b.TourID]}
	}
	return result, nil
}

// tourInfos fetches catalog data for each distinct tour. Failures are
// logged and leave the tour without info.
func (s *bookingServiceImpl) tourInfos(ctx context.Context, bookings []booking.Booking) map[int64]*booking.TourInfo {
	infos := make(map[int64]*booking.TourInfo)
	if s.tours == nil || len(bookings) == 0 {
		return infos
	}

	var (
		mu   sync.Mutex
		seen = make(map[int64]bool)
		g    errgroup.Group
	)
	g.SetLimit(maxEnrichConcurrency)
	for _, b := range bookings {
		tourID := b.TourID
		if seen[tourID] {
			continue
		}
		seen[tourID] = true

		g.Go(func() error {
			info, err := s.tours.TourInfo(ctx, tourID)
			if err != nil {
				s.logger.WithError(err).WithField("tour_id", tourID).Warn("Tour info unavailable")
				return nil
			}
			mu.Lock()
			infos[tourID] = info
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return infos
}

func (s *bookingServiceImpl) ListTourBookings(ctx context.Context, tourID int64, filter booking.Filter) ([]booking.Booking, error) {
	if tourID <= 0 {
		return nil, booking.Validationf("tour_id must be positive")
	}
	filter.TourID = &tourID
	filter.UserID = nil
	return s.ListBookings(ctx, filter)
}

func (s *bookingServiceImpl) GetStats(ctx context.Context) (*booking.Stats, error) {
	totals, err := s.store.StatusTotals(ctx)
	if err != nil {
		return nil, storeError(err)
	}
	stats := booking.Summarize(totals)
	return &stats, nil
}

func (s *bookingServiceImpl) DeleteTourBookings(ctx context.Context, tourID int64) (int64, error) {
	if tourID <= 0 {
		return 0, booking.Validationf("tour_id must be positive")
	}
	deleted, err := s.store.DeleteBookingsByTour(ctx, tourID)
	if err != nil {
		return 0, storeError(err)
	}

	s.logger.WithFields(logrus.Fields{
		"tour_id": tourID,
		"deleted": deleted,
	}).Info("Tour bookings deleted")
	if deleted > 0 && s.notifier != nil {
		s.notifier.Publish(booking.Event{
			Type:      booking.EventCascade,
			TourID:    tourID,
			Deleted:   deleted,
			Timestamp: s.now().UnixMilli(),
		})
	}
	return deleted, nil
}

func (s *bookingServiceImpl) ScheduleTourCascade(ctx context.Context, tourID int64) (string, error) {
	if tourID <= 0 {
		return "", booking.Validationf("tour_id must be positive")
	}
	if s.cascade == nil {
		return "", booking.Upstream("asynchronous cascade is not configured", nil)
	}
	workflowID, err := s.cascade.ScheduleTourCascade(ctx, tourID)
	if err != nil {
		return "", err
	}
	s.logger.WithFields(logrus.Fields{
		"tour_id":     tourID,
		"workflow_id": workflowID,
	}).Info("Tour cascade scheduled")
	return workflowID, nil
}

func (s *bookingServiceImpl) publish(t booking.EventType, b *booking.Booking) {
	if s.notifier == nil {
		return
	}
	snapshot := *b
	s.notifier.Publish(booking.NewEvent(t, &snapshot, s.now()))
}

// storeError maps persistence failures to booking error kinds
func storeError(err error) error {
	switch {
	case errors.Is(err, database.ErrNotFound):
		return booking.NewError(booking.KindNotFound, "booking not found", nil)
	case errors.Is(err, database.ErrVersionConflict):
		return booking.NewError(booking.KindConflict, "booking was modified concurrently, retry the request", err)
	case booking.KindOf(err) != booking.KindInternal:
		return err
	default:
		return booking.Internal("failed to access booking store", fmt.Errorf("store: %w", err))
	}
}
