package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/custody-engine/approval"
	"github.com/warp/custody-engine/auth"
)

var secret = []byte("test-secret")

func TestJWTProvider_RoundTrip(t *testing.T) {
	p := auth.NewJWTProvider(secret)

	token, err := p.Issue(approval.Actor{ID: "gm-1", Role: approval.RoleGeneralManager}, time.Hour)
	require.NoError(t, err)

	actor, err := p.CurrentActor(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "gm-1", actor.ID)
	assert.Equal(t, approval.RoleGeneralManager, actor.Role)
}

func TestJWTProvider_ExpiredToken_Rejected(t *testing.T) {
	p := auth.NewJWTProvider(secret)

	token, err := p.Issue(approval.Actor{ID: "emp-1", Role: approval.RoleEmployee}, -time.Minute)
	require.NoError(t, err)

	_, err = p.CurrentActor(context.Background(), token)
	assert.ErrorIs(t, err, approval.ErrAuthorization)
}

func TestJWTProvider_WrongSecret_Rejected(t *testing.T) {
	token, err := auth.NewJWTProvider([]byte("other-secret")).
		Issue(approval.Actor{ID: "emp-1", Role: approval.RoleEmployee}, time.Hour)
	require.NoError(t, err)

	_, err = auth.NewJWTProvider(secret).CurrentActor(context.Background(), token)
	assert.ErrorIs(t, err, approval.ErrAuthorization)
}

func TestJWTProvider_GarbageCredential_Rejected(t *testing.T) {
	p := auth.NewJWTProvider(secret)

	_, err := p.CurrentActor(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, approval.ErrAuthorization)
}

func TestJWTProvider_MissingSubject_Rejected(t *testing.T) {
	claims := auth.Claims{
		Role: string(approval.RoleEmployee),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)

	_, err = auth.NewJWTProvider(secret).CurrentActor(context.Background(), token)
	assert.ErrorIs(t, err, approval.ErrAuthorization)
}

func TestJWTProvider_UnknownRole_StrictVsLenient(t *testing.T) {
	claims := auth.Claims{
		Role: "superadmin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "emp-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)

	// Strict (default): unknown role is an authorization failure.
	_, err = auth.NewJWTProvider(secret).CurrentActor(context.Background(), token)
	assert.ErrorIs(t, err, approval.ErrAuthorization)

	// Lenient: legacy defaulting to employee.
	actor, err := auth.NewJWTProvider(secret, auth.WithLenientRoles()).CurrentActor(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, approval.RoleEmployee, actor.Role)
	assert.Equal(t, "emp-1", actor.ID)
}

func TestStatic_LookupAndMiss(t *testing.T) {
	s := auth.Static{
		"tok-pm": {ID: "pm-1", Role: approval.RoleProjectManager},
	}

	actor, err := s.CurrentActor(context.Background(), "tok-pm")
	require.NoError(t, err)
	assert.Equal(t, "pm-1", actor.ID)

	_, err = s.CurrentActor(context.Background(), "tok-ghost")
	assert.ErrorIs(t, err, approval.ErrAuthorization)
}
