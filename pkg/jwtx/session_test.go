package jwtx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/issuer/pkg/cryptox"
	"github.com/aussiebroadwan/issuer/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const exampleIssuer = "https://issuer.example.test"

const exampleAddress = "0x90f79bf6eb2c4f870365e785982e1f101e93b906"

func newSigner(t *testing.T, kid string) *jwtx.Signer {
	t.Helper()
	pemKey, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)
	s, err := jwtx.NewSigner(kid, pemKey)
	require.NoError(t, err)
	require.NoError(t, s.Validate())
	return s
}

func TestSessionSignAndVerify(t *testing.T) {
	signer := newSigner(t, "test-key")
	require.Equal(t, "EdDSA", signer.Alg())
	require.Equal(t, "test-key", signer.KID())

	keys := jwtx.NewKeySet()
	require.NoError(t, keys.AddSigner(signer))

	now := time.Now().UTC()
	claims := jwtx.NewSessionClaims(exampleAddress, jwtx.MethodEIP191, 5*time.Minute, exampleIssuer, nil, now)
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	v := jwtx.NewVerifier(keys, exampleIssuer, nil)
	got, err := v.Verify(token)
	require.NoError(t, err)
	require.Equal(t, exampleAddress, got.Address)
	require.Equal(t, claims.ID, got.ID)
	require.Equal(t, []string{jwtx.MethodEIP191}, got.AMR)
}

func TestSessionVerifyFailures(t *testing.T) {
	signer := newSigner(t, "test-key")
	keys := jwtx.NewKeySet()
	require.NoError(t, keys.AddSigner(signer))

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sign := func(c jwtx.Claims) string {
		tok, err := signer.Sign(c)
		require.NoError(t, err)
		return tok
	}
	valid := jwtx.NewSessionClaims(exampleAddress, jwtx.MethodEIP191, 15*time.Minute, exampleIssuer, nil, now)

	t.Run("expired", func(t *testing.T) {
		v := jwtx.NewVerifier(keys, exampleIssuer, nil,
			jwtx.WithVerifyClock(func() time.Time { return now.Add(16 * time.Minute) }))
		_, err := v.Verify(sign(valid))
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})

	t.Run("leeway", func(t *testing.T) {
		v := jwtx.NewVerifier(keys, exampleIssuer, nil,
			jwtx.WithLeeway(2*time.Minute),
			jwtx.WithVerifyClock(func() time.Time { return now.Add(16 * time.Minute) }))
		_, err := v.Verify(sign(valid))
		require.NoError(t, err)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		v := jwtx.NewVerifier(keys, "someone-else", nil,
			jwtx.WithVerifyClock(func() time.Time { return now }))
		_, err := v.Verify(sign(valid))
		require.ErrorIs(t, err, jwtx.ErrIssuer)
	})

	t.Run("unknown kid", func(t *testing.T) {
		other := newSigner(t, "other-key")
		tok, err := other.Sign(valid)
		require.NoError(t, err)

		v := jwtx.NewVerifier(keys, exampleIssuer, nil,
			jwtx.WithVerifyClock(func() time.Time { return now }))
		_, err = v.Verify(tok)
		require.ErrorIs(t, err, jwtx.ErrUnknownKID)
	})

	t.Run("forged with a different key under a known kid", func(t *testing.T) {
		forger := newSigner(t, "test-key")
		tok, err := forger.Sign(valid)
		require.NoError(t, err)

		v := jwtx.NewVerifier(keys, exampleIssuer, nil,
			jwtx.WithVerifyClock(func() time.Time { return now }))
		_, err = v.Verify(tok)
		require.Error(t, err)
	})

	t.Run("alg none rejected", func(t *testing.T) {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, valid).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		v := jwtx.NewVerifier(keys, exampleIssuer, nil)
		_, err = v.Verify(tok)
		require.Error(t, err)
	})

	t.Run("subject mismatch", func(t *testing.T) {
		bad := valid
		bad.Address = "0x0000000000000000000000000000000000000001"
		v := jwtx.NewVerifier(keys, exampleIssuer, nil,
			jwtx.WithVerifyClock(func() time.Time { return now }))
		_, err := v.Verify(sign(bad))
		require.ErrorIs(t, err, jwtx.ErrInvalidClaim)
	})

	t.Run("garbage", func(t *testing.T) {
		v := jwtx.NewVerifier(keys, exampleIssuer, nil)
		_, err := v.Verify("not.a.jwt")
		require.Error(t, err)
	})
}
