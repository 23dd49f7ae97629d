package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cx-tal-miterani/tour-booking/internal/booking"
)

const testSecret = "test-secret"

func sign(t *testing.T, method jwt.SigningMethod, secret string, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func validClaims(sub, role string) Claims {
	return Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestNewVerifier(t *testing.T) {
	_, err := NewVerifier("", "HS256")
	assert.Error(t, err)

	_, err = NewVerifier(testSecret, "RS256")
	assert.Error(t, err)

	v, err := NewVerifier(testSecret, "HS512")
	require.NoError(t, err)
	assert.NotNil(t, v)
}

func TestVerifier_Verify(t *testing.T) {
	v, err := NewVerifier(testSecret, "HS256")
	require.NoError(t, err)

	expired := validClaims("alice", "")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	tests := []struct {
		name     string
		token    string
		wantErr  bool
		wantUser string
		wantRole string
	}{
		{
			name:     "valid",
			token:    sign(t, jwt.SigningMethodHS256, testSecret, validClaims("alice", "admin")),
			wantUser: "alice",
			wantRole: "admin",
		},
		{
			name:    "wrong secret",
			token:   sign(t, jwt.SigningMethodHS256, "other", validClaims("alice", "")),
			wantErr: true,
		},
		{
			name:    "wrong algorithm",
			token:   sign(t, jwt.SigningMethodHS512, testSecret, validClaims("alice", "")),
			wantErr: true,
		},
		{
			name:    "expired",
			token:   sign(t, jwt.SigningMethodHS256, testSecret, expired),
			wantErr: true,
		},
		{
			name:    "missing subject",
			token:   sign(t, jwt.SigningMethodHS256, testSecret, validClaims("", "")),
			wantErr: true,
		},
		{
			name:    "garbage",
			token:   "not.a.jwt",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := v.Verify(tt.token)
			if tt.wantErr {
				assert.Equal(t, booking.KindUnauthorized, booking.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantUser, id.Username)
			assert.Equal(t, tt.wantRole, id.Role)
			assert.Equal(t, tt.token, id.Token)
		})
	}
}

func TestBearerToken(t *testing.T) {
	tok, ok := BearerToken("Bearer abc.def")
	assert.True(t, ok)
	assert.Equal(t, "abc.def", tok)

	tok, ok = BearerToken("bearer xyz")
	assert.True(t, ok)
	assert.Equal(t, "xyz", tok)

	for _, h := range []string{"", "Bearer", "Bearer ", "Basic abc"} {
		_, ok := BearerToken(h)
		assert.False(t, ok, h)
	}
}

func TestRolePolicy(t *testing.T) {
	p := NewRolePolicy([]string{"admin"}, []string{"staff"})
	ctx := context.Background()

	assert.True(t, p.IsPrivileged(ctx, &Identity{Username: "admin"}))
	assert.True(t, p.IsPrivileged(ctx, &Identity{Username: "bob", Role: "staff"}))
	assert.False(t, p.IsPrivileged(ctx, &Identity{Username: "bob"}))
	assert.False(t, p.IsPrivileged(ctx, nil))

	empty := NewRolePolicy(nil, nil)
	assert.False(t, empty.IsPrivileged(ctx, &Identity{Username: "admin", Role: "admin"}))
}

func TestMiddleware(t *testing.T) {
	v, err := NewVerifier(testSecret, "HS256")
	require.NoError(t, err)
	logger, hook := test.NewNullLogger()

	var seen *Identity
	h := Middleware(v, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("valid token", func(t *testing.T) {
		token := sign(t, jwt.SigningMethodHS256, testSecret, validClaims("alice", ""))
		req := httptest.NewRequest(http.MethodGet, "/bookings/x", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()

		h.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNoContent, rr.Code)
		require.NotNil(t, seen)
		assert.Equal(t, "alice", seen.Username)
		assert.Equal(t, token, seen.Token)
	})

	t.Run("missing token", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/bookings/x", nil))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, "Bearer", rr.Header().Get("WWW-Authenticate"))
		assert.Contains(t, rr.Body.String(), `"error":"Unauthorized"`)
	})

	t.Run("bad token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/bookings/x", nil)
		req.Header.Set("Authorization", "Bearer nope")
		rr := httptest.NewRecorder()

		h.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.NotEmpty(t, hook.AllEntries())
	})
}

func TestMiddleware_WebSocketQueryToken(t *testing.T) {
	v, err := NewVerifier(testSecret, "HS256")
	require.NoError(t, err)
	logger, _ := test.NewNullLogger()
	h := Middleware(v, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	token := sign(t, jwt.SigningMethodHS256, testSecret, validClaims("alice", ""))

	req := httptest.NewRequest(http.MethodGet, "/bookings/tour/5/ws?token="+token, nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	// Plain requests must use the header
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/bookings/tour/5?token="+token, nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
