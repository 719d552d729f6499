package jwtx

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJWK_PEM_Ed25519(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	jwk := NewEd25519JWK("test-key-id", "sig", AlgorithmEdDSA, pub)
	require.Equal(t, "OKP", jwk.Kty)
	require.Equal(t, "Ed25519", jwk.Crv)

	pemStr, err := jwk.PEM()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(pemStr, "-----BEGIN PUBLIC KEY-----"))

	block, _ := pem.Decode([]byte(pemStr))
	require.NotNil(t, block)
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	require.NoError(t, err)
	require.Equal(t, pub, parsed.(ed25519.PublicKey))
}

func TestJWK_PEM_Unsupported(t *testing.T) {
	_, err := JWK{Kty: "RSA"}.PEM()
	require.ErrorContains(t, err, "unsupported kty")

	_, err = JWK{Kty: "OKP", Crv: "X25519"}.PEM()
	require.ErrorContains(t, err, "unsupported OKP curve")

	_, err = JWK{Kty: "OKP", Crv: "Ed25519", X: "AAAA"}.PEM()
	require.ErrorContains(t, err, "invalid Ed25519 public key size")
}

func TestKeySetResetFromJWKS(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	ks := NewKeySet()
	require.False(t, ks.IsReady())

	require.NoError(t, ks.ResetFromJWKS(JWKS{Keys: []JWK{NewEd25519JWK("k1", "sig", AlgorithmEdDSA, pub)}}))
	require.True(t, ks.IsReady())

	got, err := ks.Get("k1")
	require.NoError(t, err)
	require.Equal(t, pub, got)

	_, err = ks.Get("k2")
	require.ErrorIs(t, err, ErrNoKey)

	// A bad key leaves the set untouched.
	require.Error(t, ks.ResetFromJWKS(JWKS{Keys: []JWK{{Kty: "EC"}}}))
	_, err = ks.Get("k1")
	require.NoError(t, err)
}
