package service

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/issuer/pkg/jwtx"
	"github.com/aussiebroadwan/issuer/pkg/slogx"
)

var ErrNoSigningKey = errors.New("no session signing key available")

// SessionService trades a verified wallet signature for a short-lived
// bearer token.
type SessionService struct {
	Keys     *jwtx.KeyManager
	Issuer   string
	Audience []string
	TTL      time.Duration
	Now      func() time.Time
}

type Session struct {
	Token     string
	ExpiresAt time.Time
	TTL       time.Duration
}

func (s *SessionService) Issue(ctx context.Context, address string) (Session, error) {
	signer := s.Keys.GetSigner()
	if signer == nil {
		return Session{}, ErrNoSigningKey
	}

	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = jwtx.DefaultSessionTTL
	}

	claims := jwtx.NewSessionClaims(address, jwtx.MethodEIP191, ttl, s.Issuer, s.Audience, now)
	token, err := signer.Sign(claims)
	if err != nil {
		slogx.FromContext(ctx).Error("failed to sign session token", "error", err)
		return Session{}, err
	}

	slogx.FromContext(ctx).Info("session issued", "address", claims.Address, "kid", signer.KID())
	return Session{Token: token, ExpiresAt: claims.ExpiresAt.Time, TTL: ttl}, nil
}
