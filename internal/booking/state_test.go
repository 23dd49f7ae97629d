package booking

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBooking(status Status, payment PaymentStatus) *Booking {
	b := New(&CreateRequest{
		UserID:     1,
		TourID:     5,
		TravelDate: time.Date(2026, 12, 1, 10, 0, 0, 0, time.UTC),
	}, decimal.RequireFromString("100.00"), time.Now())
	b.Status = status
	b.PaymentStatus = payment
	return b
}

func TestNew_StartsPending(t *testing.T) {
	participants := 2
	now := time.Now()
	b := New(&CreateRequest{
		UserID:            1,
		TourID:            5,
		TravelDate:        now.Add(24 * time.Hour),
		ParticipantsCount: &participants,
	}, decimal.RequireFromString("200.00"), now)

	assert.Equal(t, StatusPending, b.Status)
	assert.Equal(t, PaymentStatusPending, b.PaymentStatus)
	assert.Equal(t, 2, b.ParticipantsCount)
	assert.Equal(t, int64(1), b.Version)
	assert.Equal(t, now, b.BookingDate)
	assert.Equal(t, now, b.UpdatedAt)
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", b.ID.String())
}

func TestBooking_Confirm(t *testing.T) {
	tests := []struct {
		name        string
		status      Status
		payment     PaymentStatus
		expectError bool
	}{
		{name: "pending booking", status: StatusPending, payment: PaymentStatusPending},
		{name: "already confirmed", status: StatusConfirmed, payment: PaymentStatusPaid, expectError: true},
		{name: "cancelled booking", status: StatusCancelled, payment: PaymentStatusRefunded, expectError: true},
		{name: "completed booking", status: StatusCompleted, payment: PaymentStatusPaid, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBooking(tt.status, tt.payment)
			err := b.Confirm(time.Now())

			if tt.expectError {
				require.Error(t, err)
				assert.Equal(t, KindInvalidTransition, KindOf(err))
				assert.Equal(t, "only pending bookings can be confirmed", ReasonOf(err))
				assert.Equal(t, tt.status, b.Status)
				assert.Equal(t, tt.payment, b.PaymentStatus)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, StatusConfirmed, b.Status)
			assert.Equal(t, PaymentStatusPaid, b.PaymentStatus)
		})
	}
}

func TestBooking_Cancel(t *testing.T) {
	tests := []struct {
		name        string
		status      Status
		payment     PaymentStatus
		expectError string
	}{
		{name: "pending booking", status: StatusPending, payment: PaymentStatusPending},
		{name: "confirmed booking", status: StatusConfirmed, payment: PaymentStatusPaid},
		{name: "already cancelled", status: StatusCancelled, payment: PaymentStatusRefunded, expectError: "booking already cancelled"},
		{name: "completed booking", status: StatusCompleted, payment: PaymentStatusPaid, expectError: "cannot cancel completed booking"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBooking(tt.status, tt.payment)
			before := *b
			err := b.Cancel(time.Now())

			if tt.expectError != "" {
				require.Error(t, err)
				assert.Equal(t, KindInvalidTransition, KindOf(err))
				assert.Equal(t, tt.expectError, ReasonOf(err))
				assert.Equal(t, before, *b)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, StatusCancelled, b.Status)
			assert.Equal(t, PaymentStatusRefunded, b.PaymentStatus)
		})
	}
}

func TestBooking_Complete(t *testing.T) {
	b := newTestBooking(StatusConfirmed, PaymentStatusPaid)
	require.NoError(t, b.Complete(time.Now()))
	assert.Equal(t, StatusCompleted, b.Status)
	assert.Equal(t, PaymentStatusPaid, b.PaymentStatus)

	pending := newTestBooking(StatusPending, PaymentStatusPending)
	err := pending.Complete(time.Now())
	assert.Equal(t, KindInvalidTransition, KindOf(err))
	assert.Equal(t, StatusPending, pending.Status)
}

func TestBooking_ApplyUpdate(t *testing.T) {
	t.Run("recomputed total replaces stored total", func(t *testing.T) {
		b := newTestBooking(StatusPending, PaymentStatusPending)
		participants := 3
		total := decimal.RequireFromString("330.00")
		phone := "+100200300"

		err := b.ApplyUpdate(&UpdateRequest{ParticipantsCount: &participants, ContactPhone: &phone}, &total, time.Now())

		require.NoError(t, err)
		assert.Equal(t, 3, b.ParticipantsCount)
		assert.True(t, total.Equal(b.TotalPrice))
		assert.Equal(t, phone, *b.ContactPhone)
	})

	t.Run("party size without a total is refused", func(t *testing.T) {
		b := newTestBooking(StatusPending, PaymentStatusPending)
		participants := 3

		err := b.ApplyUpdate(&UpdateRequest{ParticipantsCount: &participants}, nil, time.Now())

		assert.Equal(t, KindInternal, KindOf(err))
		assert.Equal(t, 1, b.ParticipantsCount)
	})

	t.Run("cancelled booking is frozen", func(t *testing.T) {
		b := newTestBooking(StatusCancelled, PaymentStatusRefunded)
		notes := "window seat"

		err := b.ApplyUpdate(&UpdateRequest{SpecialRequests: &notes}, nil, time.Now())

		assert.Equal(t, KindInvalidTransition, KindOf(err))
		assert.Nil(t, b.SpecialRequests)
	})

	t.Run("completed booking still accepts edits", func(t *testing.T) {
		b := newTestBooking(StatusCompleted, PaymentStatusPaid)
		notes := "vegetarian"

		require.NoError(t, b.ApplyUpdate(&UpdateRequest{SpecialRequests: &notes}, nil, time.Now()))
		assert.Equal(t, notes, *b.SpecialRequests)
	})
}

func TestCreateRequest_Validate(t *testing.T) {
	zero := 0
	twentyOne := 21
	twenty := 20
	longPhone := "123456789012345678901"

	tests := []struct {
		name        string
		req         CreateRequest
		expectError bool
	}{
		{name: "defaults to one participant", req: CreateRequest{UserID: 1, TourID: 5, TravelDate: time.Now()}},
		{name: "upper bound", req: CreateRequest{UserID: 1, TourID: 5, TravelDate: time.Now(), ParticipantsCount: &twenty}},
		{name: "zero participants", req: CreateRequest{UserID: 1, TourID: 5, TravelDate: time.Now(), ParticipantsCount: &zero}, expectError: true},
		{name: "too many participants", req: CreateRequest{UserID: 1, TourID: 5, TravelDate: time.Now(), ParticipantsCount: &twentyOne}, expectError: true},
		{name: "missing user", req: CreateRequest{TourID: 5, TravelDate: time.Now()}, expectError: true},
		{name: "missing tour", req: CreateRequest{UserID: 1, TravelDate: time.Now()}, expectError: true},
		{name: "missing travel date", req: CreateRequest{UserID: 1, TourID: 5}, expectError: true},
		{name: "phone too long", req: CreateRequest{UserID: 1, TourID: 5, TravelDate: time.Now(), ContactPhone: &longPhone}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.expectError {
				assert.Equal(t, KindValidation, KindOf(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestFilter_Normalize(t *testing.T) {
	f := Filter{}
	require.NoError(t, f.Normalize())
	assert.Equal(t, DefaultLimit, f.Limit)

	f = Filter{Limit: 101}
	assert.Equal(t, KindValidation, KindOf(f.Normalize()))

	f = Filter{Skip: -1}
	assert.Equal(t, KindValidation, KindOf(f.Normalize()))

	unknown := Status("archived")
	f = Filter{Status: &unknown}
	assert.Equal(t, KindValidation, KindOf(f.Normalize()))
}
