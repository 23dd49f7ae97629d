package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/cx-tal-miterani/tour-booking/internal/auth"
	"github.com/cx-tal-miterani/tour-booking/internal/booking"
	"github.com/cx-tal-miterani/tour-booking/internal/service"
)

// retryAfterSeconds is advertised on UpstreamUnavailable responses
const retryAfterSeconds = "5"

// Pinger reports whether the database is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains HTTP handlers for the API
type Handler struct {
	bookingService service.BookingService
	policy         auth.Policy
	db             Pinger
	logger         logrus.FieldLogger
}

// NewHandler creates a new Handler instance
func NewHandler(bookingService service.BookingService, policy auth.Policy, db Pinger, logger logrus.FieldLogger) *Handler {
	return &Handler{
		bookingService: bookingService,
		policy:         policy,
		db:             db,
		logger:         logger,
	}
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error     booking.Kind `json:"error"`
	Message   string       `json:"message"`
	Retryable bool         `json:"retryable"`
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	kind := booking.KindOf(err)
	status := statusFor(kind)

	entry := h.logger.WithError(err).WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"kind":   kind,
	})
	if status >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Debug("Request rejected")
	}

	if kind == booking.KindUpstreamUnavailable {
		w.Header().Set("Retry-After", retryAfterSeconds)
	}
	message := booking.ReasonOf(err)
	if kind == booking.KindInternal {
		message = "internal error"
	}
	respondJSON(w, status, ErrorResponse{
		Error:     kind,
		Message:   message,
		Retryable: kind.Retryable(),
	})
}

func statusFor(kind booking.Kind) int {
	switch kind {
	case booking.KindValidation, booking.KindInvalidTransition:
		return http.StatusBadRequest
	case booking.KindNotFound, booking.KindUserNotFound, booking.KindTourNotFound:
		return http.StatusNotFound
	case booking.KindConflict:
		return http.StatusConflict
	case booking.KindUnauthorized:
		return http.StatusUnauthorized
	case booking.KindForbidden:
		return http.StatusForbidden
	case booking.KindUpstreamUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// requirePrivileged writes 403 and returns false unless the caller passes the policy
func (h *Handler) requirePrivileged(w http.ResponseWriter, r *http.Request) bool {
	id, _ := auth.FromContext(r.Context())
	if h.policy == nil || !h.policy.IsPrivileged(r.Context(), id) {
		h.respondError(w, r, booking.NewError(booking.KindForbidden, "not enough permissions", nil))
		return false
	}
	return true
}

func bookingID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		return uuid.Nil, booking.Validationf("invalid booking id")
	}
	return id, nil
}

func pathInt(r *http.Request, name string) (int64, error) {
	v, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || v <= 0 {
		return 0, booking.Validationf("%s must be a positive integer", name)
	}
	return v, nil
}

func queryInt(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, booking.Validationf("%s must be an integer", name)
	}
	return &v, nil
}

// parseFilter reads status, skip and limit from the query string
func parseFilter(r *http.Request) (booking.Filter, error) {
	var f booking.Filter
	if s := r.URL.Query().Get("status"); s != "" {
		status := booking.Status(s)
		f.Status = &status
	}
	skip, err := queryInt(r, "skip")
	if err != nil {
		return f, err
	}
	if skip != nil {
		f.Skip = int(*skip)
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		return f, err
	}
	if limit != nil {
		if *limit == 0 {
			return f, booking.Validationf("limit must be between 1 and %d", booking.MaxLimit)
		}
		f.Limit = int(*limit)
	}
	return f, nil
}

func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return booking.Validationf("invalid request body: %v", err)
	}
	return nil
}

// CreateBooking handles POST /bookings
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req booking.CreateRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	var credential string
	if id, ok := auth.FromContext(r.Context()); ok {
		credential = id.Token
	}

	b, err := h.bookingService.CreateBooking(r.Context(), &req, credential)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, b)
}

// GetBooking handles GET /bookings/{id}
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	id, err := bookingID(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	b, err := h.bookingService.GetBooking(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, b)
}

// ListBookings handles GET /bookings
func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	if !h.requirePrivileged(w, r) {
		return
	}
	filter, err := parseFilter(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if filter.UserID, err = queryInt(r, "user_id"); err != nil {
		h.respondError(w, r, err)
		return
	}
	if filter.TourID, err = queryInt(r, "tour_id"); err != nil {
		h.respondError(w, r, err)
		return
	}

	bookings, err := h.bookingService.ListBookings(r.Context(), filter)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, bookings)
}

// ListUserBookings handles GET /bookings/user/{user_id}
func (h *Handler) ListUserBookings(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt(r, "user_id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	filter, err := parseFilter(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	bookings, err := h.bookingService.ListUserBookings(r.Context(), userID, filter)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, bookings)
}

// ListTourBookings handles GET /bookings/tour/{tour_id}
func (h *Handler) ListTourBookings(w http.ResponseWriter, r *http.Request) {
	tourID, err := pathInt(r, "tour_id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	filter, err := parseFilter(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	bookings, err := h.bookingService.ListTourBookings(r.Context(), tourID, filter)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, bookings)
}

// UpdateBooking handles PUT /bookings/{id}
func (h *Handler) UpdateBooking(w http.ResponseWriter, r *http.Request) {
	id, err := bookingID(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var req booking.UpdateRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	b, err := h.bookingService.UpdateBooking(r.Context(), id, &req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, b)
}

// CancelBooking handles PUT /bookings/{id}/cancel
func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.bookingService.CancelBooking)
}

// ConfirmBooking handles POST /bookings/{id}/confirm
func (h *Handler) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.bookingService.ConfirmBooking)
}

// CompleteBooking handles POST /bookings/{id}/complete
func (h *Handler) CompleteBooking(w http.ResponseWriter, r *http.Request) {
	if !h.requirePrivileged(w, r) {
		return
	}
	h.transition(w, r, h.bookingService.CompleteBooking)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, apply func(context.Context, uuid.UUID) (*booking.Booking, error)) {
	id, err := bookingID(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	b, err := apply(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, b)
}

// GetStats handles GET /bookings/stats
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	if !h.requirePrivileged(w, r) {
		return
	}
	stats, err := h.bookingService.GetStats(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// DeleteTourBookings handles DELETE /bookings/tour/{tour_id}, the cascade
// the catalog service calls after removing a tour
func (h *Handler) DeleteTourBookings(w http.ResponseWriter, r *http.Request) {
	tourID, err := pathInt(r, "tour_id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async {
		workflowID, err := h.bookingService.ScheduleTourCascade(r.Context(), tourID)
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusAccepted, map[string]interface{}{
			"tour_id":     tourID,
			"workflow_id": workflowID,
			"message":     "Cascade scheduled",
		})
		return
	}

	deleted, err := h.bookingService.DeleteTourBookings(r.Context(), tourID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	message := fmt.Sprintf("Deleted %d bookings for tour %d", deleted, tourID)
	if deleted == 0 {
		message = "No bookings found for this tour"
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"deleted": deleted,
		"message": message,
	})
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":    "healthy",
		"service":   "booking-service",
		"timestamp": time.Now().UTC(),
	}
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			h.logger.WithError(err).Warn("Database ping failed")
			status["status"] = "unhealthy"
			status["database"] = "unreachable"
			respondJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		status["database"] = "ok"
	}
	respondJSON(w, http.StatusOK, status)
}
