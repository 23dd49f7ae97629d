package auth

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/cx-tal-miterani/tour-booking/internal/booking"
)

// Middleware rejects requests without a valid bearer token and attaches
// the caller's identity to the request context. Browsers cannot set headers
// on websocket handshakes, so those may pass the token as ?token= instead.
func Middleware(v *Verifier, logger logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r.Header.Get("Authorization"))
			if !ok && websocket.IsWebSocketUpgrade(r) {
				token = r.URL.Query().Get("token")
				ok = token != ""
			}
			if !ok {
				logger.WithField("path", r.URL.Path).Warn("Missing bearer token")
				unauthorized(w, "not authenticated")
				return
			}

			id, err := v.Verify(token)
			if err != nil {
				logger.WithError(err).WithField("path", r.URL.Path).Warn("Invalid bearer token")
				unauthorized(w, booking.ReasonOf(err))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":     booking.KindUnauthorized,
		"message":   message,
		"retryable": false,
	})
}
