package booking

import (
	"github.com/shopspring/decimal"
)

// StatusTotal is one row of the per-status rollup read from the store
type StatusTotal struct {
	Status Status
	Count  int64
	Sum    decimal.Decimal
}

// Stats is the read-only summary over every booking
type Stats struct {
	TotalBookings       int64           `json:"total_bookings"`
	PendingBookings     int64           `json:"pending_bookings"`
	ConfirmedBookings   int64           `json:"confirmed_bookings"`
	CancelledBookings   int64           `json:"cancelled_bookings"`
	CompletedBookings   int64           `json:"completed_bookings"`
	TotalRevenue        decimal.Decimal `json:"total_revenue"`
	AverageBookingValue decimal.Decimal `json:"average_booking_value"`
}

// Summarize folds per-status totals into Stats. Revenue counts confirmed
// and completed bookings; the average divides by the confirmed count only
// and is zero when nothing is confirmed.
func Summarize(totals []StatusTotal) Stats {
	s := Stats{TotalRevenue: decimal.Zero, AverageBookingValue: decimal.Zero}
	for _, t := range totals {
		s.TotalBookings += t.Count
		switch t.Status {
		case StatusPending:
			s.PendingBookings += t.Count
		case StatusConfirmed:
			s.ConfirmedBookings += t.Count
			s.TotalRevenue = s.TotalRevenue.Add(t.Sum)
		case StatusCancelled:
			s.CancelledBookings += t.Count
		case StatusCompleted:
			s.CompletedBookings += t.Count
			s.TotalRevenue = s.TotalRevenue.Add(t.Sum)
		}
	}
	if s.ConfirmedBookings > 0 {
		s.AverageBookingValue = s.TotalRevenue.DivRound(decimal.NewFromInt(s.ConfirmedBookings), PriceScale)
	}
	return s
}
