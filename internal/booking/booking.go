package booking

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// MinParticipants is the smallest party a booking may carry
	MinParticipants = 1
	// MaxParticipants is the largest party a booking may carry
	MaxParticipants = 20

	maxContactPhoneLen = 20
	maxContactEmailLen = 100
)

// Status is the lifecycle status of a booking
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// Statuses lists every booking status in lifecycle order
var Statuses = []Status{StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted}

// Valid reports whether s is a known booking status
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// PaymentStatus is driven by status transitions, never set directly
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Booking is a reservation of a tour for a party of participants.
// UserID and TourID are lookup keys into the identity and catalog
// services; this service owns neither.
type Booking struct {
	ID                uuid.UUID       `json:"id"`
	UserID            int64           `json:"user_id"`
	TourID            int64           `json:"tour_id"`
	BookingDate       time.Time       `json:"booking_date"`
	TravelDate        time.Time       `json:"travel_date"`
	ParticipantsCount int             `json:"participants_count"`
	TotalPrice        decimal.Decimal `json:"total_price"`
	Status            Status          `json:"status"`
	PaymentStatus     PaymentStatus   `json:"payment_status"`
	SpecialRequests   *string         `json:"special_requests"`
	ContactPhone      *string         `json:"contact_phone"`
	ContactEmail      *string         `json:"contact_email"`
	Version           int64           `json:"version"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// TourInfo is the catalog summary attached to per-user listings
type TourInfo struct {
	Title        string          `json:"title"`
	Destination  string          `json:"destination"`
	Price        decimal.Decimal `json:"price"`
	DurationDays int             `json:"duration_days"`
}

// WithTour is a booking enriched with catalog data, if it could be fetched
type WithTour struct {
	Booking
	TourInfo *TourInfo `json:"tour_info"`
}

// CreateRequest is the input of the creation workflow
type CreateRequest struct {
	UserID            int64     `json:"user_id"`
	TourID            int64     `json:"tour_id"`
	TravelDate        time.Time `json:"travel_date"`
	ParticipantsCount *int      `json:"participants_count,omitempty"`
	SpecialRequests   *string   `json:"special_requests,omitempty"`
	ContactPhone      *string   `json:"contact_phone,omitempty"`
	ContactEmail      *string   `json:"contact_email,omitempty"`
}

// Participants returns the requested party size, defaulting to one
func (r *CreateRequest) Participants() int {
	if r.ParticipantsCount == nil {
		return MinParticipants
	}
	return *r.ParticipantsCount
}

// Validate checks the request before any remote authority is consulted
func (r *CreateRequest) Validate() error {
	if r.UserID <= 0 {
		return Validationf("user_id must be positive")
	}
	if r.TourID <= 0 {
		return Validationf("tour_id must be positive")
	}
	if r.TravelDate.IsZero() {
		return Validationf("travel_date is required")
	}
	if err := validateParticipants(r.Participants()); err != nil {
		return err
	}
	return validateContacts(r.ContactPhone, r.ContactEmail)
}

// UpdateRequest carries the mutable non-status fields; nil means unchanged
type UpdateRequest struct {
	TravelDate        *time.Time `json:"travel_date,omitempty"`
	ParticipantsCount *int       `json:"participants_count,omitempty"`
	SpecialRequests   *string    `json:"special_requests,omitempty"`
	ContactPhone      *string    `json:"contact_phone,omitempty"`
	ContactEmail      *string    `json:"contact_email,omitempty"`
}

// Validate checks the supplied fields only
func (r *UpdateRequest) Validate() error {
	if r.TravelDate != nil && r.TravelDate.IsZero() {
		return Validationf("travel_date must be a valid date")
	}
	if r.ParticipantsCount != nil {
		if err := validateParticipants(*r.ParticipantsCount); err != nil {
			return err
		}
	}
	return validateContacts(r.ContactPhone, r.ContactEmail)
}

// Empty reports whether the request changes nothing
func (r *UpdateRequest) Empty() bool {
	return r.TravelDate == nil && r.ParticipantsCount == nil &&
		r.SpecialRequests == nil && r.ContactPhone == nil && r.ContactEmail == nil
}

func validateParticipants(n int) error {
	if n < MinParticipants || n > MaxParticipants {
		return Validationf("participants_count must be between %d and %d, got %d", MinParticipants, MaxParticipants, n)
	}
	return nil
}

func validateContacts(phone, email *string) error {
	if phone != nil && len(*phone) > maxContactPhoneLen {
		return Validationf("contact_phone must be at most %d characters", maxContactPhoneLen)
	}
	if email != nil && len(*email) > maxContactEmailLen {
		return Validationf("contact_email must be at most %d characters", maxContactEmailLen)
	}
	return nil
}

// Filter selects bookings for listing
type Filter struct {
	UserID *int64
	TourID *int64
	Status *Status
	Skip   int
	Limit  int
}

const (
	// DefaultLimit is applied when a listing does not ask for one
	DefaultLimit = 100
	// MaxLimit caps the page size of every listing
	MaxLimit = 100
)

// Normalize applies paging defaults and rejects out-of-range values
func (f *Filter) Normalize() error {
	if f.Skip < 0 {
		return Validationf("skip must not be negative")
	}
	if f.Limit == 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit < 1 || f.Limit > MaxLimit {
		return Validationf("limit must be between 1 and %d", MaxLimit)
	}
	if f.Status != nil && !f.Status.Valid() {
		return Validationf("unknown status %q", *f.Status)
	}
	return nil
}
