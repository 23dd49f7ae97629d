package router

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/cx-tal-miterani/tour-booking/internal/handlers"
)

// uuidPattern keeps /bookings/stats and friends from matching {id}
const uuidPattern = "[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}"

// SetupRouter creates and configures the HTTP router. Every /bookings route
// passes through authenticate, except the cascade delete, which the catalog
// service calls without user credentials.
func SetupRouter(h *handlers.Handler, ws http.HandlerFunc, authenticate mux.MiddlewareFunc, logger logrus.FieldLogger) *mux.Router {
	r := mux.NewRouter()

	r.Use(corsMiddleware)
	r.Use(loggingMiddleware(logger))

	// Health check
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)

	// Cascade from the catalog service
	r.HandleFunc("/bookings/tour/{tour_id:[0-9-]+}", h.DeleteTourBookings).Methods(http.MethodDelete, http.MethodOptions)

	api := r.PathPrefix("/bookings").Subrouter()
	api.Use(authenticate)

	api.HandleFunc("", h.CreateBooking).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("", h.ListBookings).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/stats", h.GetStats).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/user/{user_id}", h.ListUserBookings).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/tour/{tour_id}", h.ListTourBookings).Methods(http.MethodGet, http.MethodOptions)

	// WebSocket for real-time booking events
	if ws != nil {
		api.HandleFunc("/tour/{tour_id}/ws", ws).Methods(http.MethodGet)
	}

	api.HandleFunc("/{id:"+uuidPattern+"}", h.GetBooking).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/{id:"+uuidPattern+"}", h.UpdateBooking).Methods(http.MethodPut, http.MethodOptions)
	api.HandleFunc("/{id:"+uuidPattern+"}/cancel", h.CancelBooking).Methods(http.MethodPut, http.MethodOptions)
	api.HandleFunc("/{id:"+uuidPattern+"}/confirm", h.ConfirmBooking).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/{id:"+uuidPattern+"}/complete", h.CompleteBooking).Methods(http.MethodPost, http.MethodOptions)

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack lets websocket upgrades through the recorder
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hj.Hijack()
}

func loggingMiddleware(logger logrus.FieldLogger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			logger.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": time.Since(start).String(),
			}).Info("HTTP request")
		})
	}
}
