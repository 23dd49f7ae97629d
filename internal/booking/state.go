package booking

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// New materializes a pending booking from a validated request and its total
func New(req *CreateRequest, total decimal.Decimal, now time.Time) *Booking {
	return &Booking{
		ID:                uuid.New(),
		UserID:            req.UserID,
		TourID:            req.TourID,
		BookingDate:       now,
		TravelDate:        req.TravelDate,
		ParticipantsCount: req.Participants(),
		TotalPrice:        total,
		Status:            StatusPending,
		PaymentStatus:     PaymentStatusPending,
		SpecialRequests:   req.SpecialRequests,
		ContactPhone:      req.ContactPhone,
		ContactEmail:      req.ContactEmail,
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// CanUpdate reports whether non-status fields may still change
func (b *Booking) CanUpdate() error {
	if b.Status == StatusCancelled {
		return Transitionf("cannot update cancelled booking")
	}
	return nil
}

// ApplyUpdate copies the supplied fields onto b. When the party size is
// supplied, total must be the price recomputed from a fresh unit price.
func (b *Booking) ApplyUpdate(req *UpdateRequest, total *decimal.Decimal, now time.Time) error {
	if err := b.CanUpdate(); err != nil {
		return err
	}
	if req.ParticipantsCount != nil {
		if total == nil {
			return Internal("participants changed without a recomputed total", nil)
		}
		b.ParticipantsCount = *req.ParticipantsCount
		b.TotalPrice = *total
	}
	if req.TravelDate != nil {
		b.TravelDate = *req.TravelDate
	}
	if req.SpecialRequests != nil {
		b.SpecialRequests = req.SpecialRequests
	}
	if req.ContactPhone != nil {
		b.ContactPhone = req.ContactPhone
	}
	if req.ContactEmail != nil {
		b.ContactEmail = req.ContactEmail
	}
	b.UpdatedAt = now
	return nil
}

// Confirm moves a pending booking to confirmed and marks it paid
func (b *Booking) Confirm(now time.Time) error {
	if b.Status != StatusPending {
		return Transitionf("only pending bookings can be confirmed")
	}
	b.Status = StatusConfirmed
	b.PaymentStatus = PaymentStatusPaid
	b.UpdatedAt = now
	return nil
}

// Cancel moves a pending or confirmed booking to cancelled and refunds it
func (b *Booking) Cancel(now time.Time) error {
	switch b.Status {
	case StatusCancelled:
		return Transitionf("booking already cancelled")
	case StatusCompleted:
		return Transitionf("cannot cancel completed booking")
	}
	b.Status = StatusCancelled
	b.PaymentStatus = PaymentStatusRefunded
	b.UpdatedAt = now
	return nil
}

// Complete records fulfillment of a confirmed booking. Payment status is
// carried forward unchanged.
func (b *Booking) Complete(now time.Time) error {
	if b.Status != StatusConfirmed {
		return Transitionf("only confirmed bookings can be completed")
	}
	b.Status = StatusCompleted
	b.UpdatedAt = now
	return nil
}
