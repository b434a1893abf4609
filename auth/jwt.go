/*
Package auth resolves caller credentials to acting users.

PURPOSE:
  Implements approval.AuthProvider. The production provider validates HMAC
  bearer tokens (golang-jwt) whose claims carry the actor's role; a static
  provider backs tests and local development.

ROLE STRICTNESS:
  The legacy system silently defaulted unrecognized role strings to
  employee. That defaulting is now opt-in via WithLenientRoles and off by
  default: an unknown role in a token is an authorization error.
*/
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/warp/custody-engine/approval"
)

// Claims are the token claims the provider reads and writes.
type Claims struct {
	Role string `json:"role"`
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// JWTProvider validates HS256 bearer tokens.
type JWTProvider struct {
	secret       []byte
	lenientRoles bool
}

// ProviderOption configures a JWTProvider.
type ProviderOption func(*JWTProvider)

// WithLenientRoles restores the legacy behavior of treating an unrecognized
// role claim as employee instead of rejecting the token. Intended only for
// migration windows.
func WithLenientRoles() ProviderOption {
	return func(p *JWTProvider) { p.lenientRoles = true }
}

// NewJWTProvider creates a provider around a shared HMAC secret.
func NewJWTProvider(secret []byte, opts ...ProviderOption) *JWTProvider {
	p := &JWTProvider{secret: secret}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CurrentActor parses and validates a bearer token, returning the actor it
// represents.
func (p *JWTProvider) CurrentActor(_ context.Context, credential string) (approval.Actor, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(credential, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil {
		return approval.Actor{}, &approval.AuthorizationError{Action: "authenticate"}
	}
	if !token.Valid || claims.Subject == "" {
		return approval.Actor{}, &approval.AuthorizationError{Action: "authenticate"}
	}

	role, err := approval.ParseRole(claims.Role)
	if err != nil {
		if !p.lenientRoles {
			return approval.Actor{}, &approval.AuthorizationError{
				Role:   approval.Role(claims.Role),
				Action: "authenticate",
			}
		}
		role = approval.RoleEmployee
	}

	return approval.Actor{ID: claims.Subject, Role: role}, nil
}

// Issue mints a token for an actor. Used by dev tooling and tests; the real
// identity system issues tokens out of band.
func (p *JWTProvider) Issue(actor approval.Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: string(actor.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}

// Static maps opaque credentials to actors. For tests and local dev.
type Static map[string]approval.Actor

func (s Static) CurrentActor(_ context.Context, credential string) (approval.Actor, error) {
	actor, ok := s[credential]
	if !ok {
		return approval.Actor{}, &approval.AuthorizationError{Action: "authenticate"}
	}
	return actor, nil
}
