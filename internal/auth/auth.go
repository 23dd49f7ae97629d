package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cx-tal-miterani/tour-booking/internal/booking"
)

// Identity is the authenticated caller of a request
type Identity struct {
	Username string
	Role     string
	// Token is the raw bearer credential, forwarded to the identity service
	Token string
}

// Claims are the JWT claims issued by the identity service
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Verifier checks bearer tokens signed with a shared secret
type Verifier struct {
	secret    []byte
	algorithm string
}

// NewVerifier creates a verifier for HMAC tokens of the given algorithm
func NewVerifier(secret, algorithm string) (*Verifier, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	switch algorithm {
	case jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg():
	default:
		return nil, fmt.Errorf("unsupported jwt algorithm %q", algorithm)
	}
	return &Verifier{secret: []byte(secret), algorithm: algorithm}, nil
}

// Verify parses token and returns the identity it carries
func (v *Verifier) Verify(token string) (*Identity, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{v.algorithm}))
	if err != nil || !parsed.Valid {
		return nil, booking.NewError(booking.KindUnauthorized, "could not validate credentials", err)
	}

	if claims.Subject == "" {
		return nil, booking.NewError(booking.KindUnauthorized, "could not validate credentials", errors.New("missing subject"))
	}
	return &Identity{Username: claims.Subject, Role: claims.Role, Token: token}, nil
}

// BearerToken extracts the token from an Authorization header value
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

type contextKey struct{}

// WithIdentity attaches id to ctx
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the identity attached by the auth middleware
func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(*Identity)
	return id, ok && id != nil
}

// Policy decides whether a caller may use the administrative operations
type Policy interface {
	IsPrivileged(ctx context.Context, id *Identity) bool
}

// RolePolicy grants privileges by username or by role claim
type RolePolicy struct {
	users map[string]struct{}
	roles map[string]struct{}
}

// NewRolePolicy builds a policy from configured usernames and roles
func NewRolePolicy(users, roles []string) *RolePolicy {
	p := &RolePolicy{
		users: make(map[string]struct{}, len(users)),
		roles: make(map[string]struct{}, len(roles)),
	}
	for _, u := range users {
		p.users[u] = struct{}{}
	}
	for _, r := range roles {
		p.roles[r] = struct{}{}
	}
	return p
}

// IsPrivileged implements Policy
func (p *RolePolicy) IsPrivileged(ctx context.Context, id *Identity) bool {
	if id == nil {
		return false
	}
	if _, ok := p.users[id.Username]; ok {
		return true
	}
	if id.Role == "" {
		return false
	}
	_, ok := p.roles[id.Role]
	return ok
}
