package database

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cx-tal-miterani/tour-booking/internal/booking"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrVersionConflict = errors.New("booking was modified concurrently")
)

//go:embed schema.sql
var schema string

const bookingColumns = `
	id, user_id, tour_id, booking_date, travel_date, participants_count,
	total_price, status, payment_status, special_requests, contact_phone,
	contact_email, version, created_at, updated_at`

// Repository handles all database operations
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Connect opens a pool and verifies it answers
func Connect(ctx context.Context, databaseURL string, maxConns int) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// Migrate creates the bookings table and its indexes if missing
func (r *Repository) Migrate(ctx context.Context) error {
	return r.withConn(ctx, func(conn *pgxpool.Conn) error {
		if _, err := conn.Exec(ctx, schema); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
		return nil
	})
}

// Ping checks that a connection can be acquired and used
func (r *Repository) Ping(ctx context.Context) error {
	return r.withConn(ctx, func(conn *pgxpool.Conn) error {
		return conn.Ping(ctx)
	})
}

// withConn acquires a pooled connection for the duration of fn and always
// hands it back, whatever fn returns.
func (r *Repository) withConn(ctx context.Context, fn func(conn *pgxpool.Conn) error) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()
	return fn(conn)
}

func (r *Repository) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return r.withConn(ctx, func(conn *pgxpool.Conn) error {
		tx, err := conn.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback(ctx)

		if err := fn(tx); err != nil {
			return err
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		return nil
	})
}

// --- Booking Operations ---

// CreateBooking inserts a new booking
func (r *Repository) CreateBooking(ctx context.Context, b *booking.Booking) error {
	query := `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}

	return r.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, query,
			b.ID, b.UserID, b.TourID, b.BookingDate, b.TravelDate, b.ParticipantsCount,
			b.TotalPrice, b.Status, b.PaymentStatus, b.SpecialRequests, b.ContactPhone,
			b.ContactEmail, b.Version, b.CreatedAt, b.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create booking: %w", err)
		}
		return nil
	})
}

// GetBooking returns a booking by ID
func (r *Repository) GetBooking(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	var b *booking.Booking
	err := r.withConn(ctx, func(conn *pgxpool.Conn) error {
		var err error
		b, err = scanBooking(conn.QueryRow(ctx, query, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to get booking: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// UpdateBooking writes every mutable column of b, provided nobody else has
// written the row since b was read. On success b.Version is advanced.
func (r *Repository) UpdateBooking(ctx context.Context, b *booking.Booking) error {
	query := `
		UPDATE bookings
		SET travel_date = $1, participants_count = $2, total_price = $3,
		    status = $4, payment_status = $5, special_requests = $6,
		    contact_phone = $7, contact_email = $8, updated_at = $9,
		    version = version + 1
		WHERE id = $10 AND version = $11
		RETURNING version
	`

	return r.withTx(ctx, func(tx pgx.Tx) error {
		var version int64
		err := tx.QueryRow(ctx, query,
			b.TravelDate, b.ParticipantsCount, b.TotalPrice,
			b.Status, b.PaymentStatus, b.SpecialRequests,
			b.ContactPhone, b.ContactEmail, b.UpdatedAt,
			b.ID, b.Version,
		).Scan(&version)
		if err == nil {
			b.Version = version
			return nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("failed to update booking: %w", err)
		}

		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bookings WHERE id = $1)`, b.ID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check booking: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrVersionConflict
	})
}

// ListBookings returns one page of bookings matching filter, oldest first
func (r *Repository) ListBookings(ctx context.Context, filter booking.Filter) ([]booking.Booking, error) {
	var (
		conds []string
		args  []any
	)
	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.TourID != nil {
		args = append(args, *filter.TourID)
		conds = append(conds, fmt.Sprintf("tour_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	args = append(args, filter.Limit, filter.Skip)
	query += fmt.Sprintf(` ORDER BY created_at ASC, id ASC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	bookings := make([]booking.Booking, 0)
	err := r.withConn(ctx, func(conn *pgxpool.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to query bookings: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			b, err := scanBooking(rows)
			if err != nil {
				return fmt.Errorf("failed to scan booking: %w", err)
			}
			bookings = append(bookings, *b)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

// DeleteBookingsByTour removes every booking of a tour in one transaction
// and returns how many rows went away
func (r *Repository) DeleteBookingsByTour(ctx context.Context, tourID int64) (int64, error) {
	var deleted int64
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM bookings WHERE tour_id = $1`, tourID)
		if err != nil {
			return fmt.Errorf("failed to delete bookings: %w", err)
		}
		deleted = tag.RowsAffected()
		return nil
	})
	return deleted, err
}

// StatusTotals returns the count and price sum of bookings per status
func (r *Repository) StatusTotals(ctx context.Context) ([]booking.StatusTotal, error) {
	query := `
		SELECT status, COUNT(*), COALESCE(SUM(total_price), 0)
		FROM bookings
		GROUP BY status
	`

	var totals []booking.StatusTotal
	err := r.withConn(ctx, func(conn *pgxpool.Conn) error {
		rows, err := conn.Query(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to query booking totals: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var t booking.StatusTotal
			if err := rows.Scan(&t.Status, &t.Count, &t.Sum); err != nil {
				return fmt.Errorf("failed to scan booking totals: %w", err)
			}
			totals = append(totals, t)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return totals, nil
}

func scanBooking(row pgx.Row) (*booking.Booking, error) {
	var b booking.Booking
	err := row.Scan(
		&b.ID, &b.UserID, &b.TourID, &b.BookingDate, &b.TravelDate, &b.ParticipantsCount,
		&b.TotalPrice, &b.Status, &b.PaymentStatus, &b.SpecialRequests, &b.ContactPhone,
		&b.ContactEmail, &b.Version, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
