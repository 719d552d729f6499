package jwtx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/issuer/pkg/idx"
	"github.com/aussiebroadwan/issuer/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestNewSessionClaims(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := jwtx.NewSessionClaims("0xAbCd000000000000000000000000000000000001", jwtx.MethodEIP191,
		jwtx.DefaultSessionTTL, "issuer", nil, now)

	require.Equal(t, "0xabcd000000000000000000000000000000000001", c.Subject)
	require.Equal(t, c.Subject, c.Address)
	require.Equal(t, []string{"eip191"}, c.AMR)
	require.Equal(t, now.Add(15*time.Minute), c.ExpiresAt.Time)
	require.NoError(t, c.ValidateSubject())

	jti, err := idx.ParseKind(c.ID, idx.PrefixSession)
	require.NoError(t, err)
	require.False(t, jti.Time().IsZero())
}

func TestValidateIssuer(t *testing.T) {
	c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{Issuer: "issuer"}}

	require.NoError(t, c.ValidateIssuer("issuer"))
	require.NoError(t, c.ValidateIssuer(""))
	require.ErrorIs(t, c.ValidateIssuer("other"), jwtx.ErrIssuer)
}

func TestValidateAudience(t *testing.T) {
	c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{Audience: []string{"api", "sdk"}}}

	require.NoError(t, c.ValidateAudience([]string{"sdk"}))
	require.NoError(t, c.ValidateAudience(nil))
	require.ErrorIs(t, c.ValidateAudience([]string{"admin"}), jwtx.ErrAudience)
}

func TestValidateExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
	}}

	require.NoError(t, c.ValidateExpiry(now, 0))
	require.ErrorIs(t, c.ValidateExpiry(now.Add(2*time.Minute), 0), jwtx.ErrExpired)
	require.NoError(t, c.ValidateExpiry(now.Add(2*time.Minute), 90*time.Second))
	require.ErrorIs(t, c.ValidateExpiry(now.Add(-time.Minute), 0), jwtx.ErrNotYetValid)
	require.NoError(t, c.ValidateExpiry(now.Add(-time.Minute), time.Minute))
}

func TestValidateSubject(t *testing.T) {
	c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "0xaa"}, Address: "0xbb"}
	require.ErrorIs(t, c.ValidateSubject(), jwtx.ErrInvalidClaim)

	c.Address = ""
	require.ErrorIs(t, c.ValidateSubject(), jwtx.ErrInvalidClaim)
}
