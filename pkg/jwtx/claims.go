package jwtx

import (
	"slices"
	"strings"
	"time"

	"github.com/aussiebroadwan/issuer/pkg/idx"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultSessionTTL is kept below the 30 minute signature window so a
// session never outlives the challenge that created it by much.
const DefaultSessionTTL = 15 * time.Minute

// AMR values recorded in session tokens.
const (
	// MethodEIP191 means the session was opened with a personal_sign challenge.
	MethodEIP191 = "eip191"
)

// Claims are the session-token claims. Subject and Address both carry the
// lower-case wallet address; Address is kept separately so clients need
// not know the sub convention.
type Claims struct {
	jwt.RegisteredClaims

	Address string `json:"addr"`

	// Authentication Methods Reference, e.g. ["eip191"].
	AMR []string `json:"amr,omitempty"`
}

// NewSessionClaims builds claims for a wallet session.
func NewSessionClaims(address, method string, ttl time.Duration, issuer string, audience []string, now time.Time) Claims {
	address = strings.ToLower(address)
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   address,
			Audience:  jwt.ClaimStrings(audience),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Address: address,
		AMR:     []string{method},
	}
}

// NewJTI returns a time-ordered id for the "jti" claim, so a leaked token
// can be matched to the log line that minted it.
func NewJTI() string {
	return idx.PrefixSession.New().String()
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateAudience checks if at least one expected audience is present.
func (c *Claims) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil
	}
	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}
	return ErrAudience
}

// ValidateExpiry checks exp and nbf against now, allowing leeway either side.
func (c *Claims) ValidateExpiry(now time.Time, leeway time.Duration) error {
	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}
	return nil
}

// ValidateSubject requires a wallet address that matches the subject.
func (c *Claims) ValidateSubject() error {
	if c.Address == "" || !strings.EqualFold(c.Address, c.Subject) {
		return ErrInvalidClaim
	}
	return nil
}
