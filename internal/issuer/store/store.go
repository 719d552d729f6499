package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/issuer/internal/issuer/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
	ErrNestedTx      = errors.New("store: nested transactions not supported")
)

// Store is the root data access interface. Concrete drivers (sqlite,
// postgres, memory) implement this and expose sub-repositories so callers
// can't start a transaction inside a transaction.
type Store interface {
	Delegations() Delegations
	Issuances() Issuances
	RateLimits() RateLimits

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// Delegations persists delegation grants. Times are passed in rather than
// read from the database clock so every driver agrees on "now".
type Delegations interface {
	// CreateDelegation inserts d as given. The service fills defaults.
	CreateDelegation(ctx context.Context, d domain.Delegation) error

	GetDelegationByID(ctx context.Context, id string) (domain.Delegation, error)

	// GetActiveDelegationByIssuer returns the most recently created usable
	// delegation for issuer at now, or ErrNotFound.
	GetActiveDelegationByIssuer(ctx context.Context, issuer string, now time.Time) (domain.Delegation, error)

	// IncrementCallCount reserves one call with a single conditional update.
	// It returns false, with no mutation, when the delegation is missing,
	// revoked, expired at now, or already at its cap.
	IncrementCallCount(ctx context.Context, id string, now time.Time) (bool, error)

	// RevokeDelegation marks the delegation revoked. Revoking twice is not an
	// error and keeps the first revoked_at. Unknown ids return ErrNotFound.
	RevokeDelegation(ctx context.Context, id string, now time.Time) error

	// ListDelegationsByIssuer returns newest first.
	ListDelegationsByIssuer(ctx context.Context, issuer string, includeRevoked bool) ([]domain.Delegation, error)
}

// Issuances persists minted credentials and answers the history questions
// the store-backed risk data source asks.
type Issuances interface {
	CreateIssuance(ctx context.Context, rec domain.Issuance) error
	GetIssuanceByID(ctx context.Context, id string) (domain.Issuance, error)

	RecipientHistory(ctx context.Context, recipient string) (domain.RecipientHistory, error)
	CountInteractions(ctx context.Context, issuer, recipient string) (int, error)
	CountIssuedBy(ctx context.Context, issuer string) (int, error)
}

// RateLimits stores fixed windows for the rate limiter.
type RateLimits interface {
	// HitRateLimit follows the ratelimit.Backend contract in one statement.
	HitRateLimit(ctx context.Context, key string, max int, window time.Duration, now time.Time) (count int, resetAt time.Time, err error)

	// DeleteExpiredRateLimits removes windows that lapsed at or before now.
	DeleteExpiredRateLimits(ctx context.Context, now time.Time) (int64, error)
}
