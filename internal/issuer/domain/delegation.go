package domain

import "time"

// Delegation defaults applied when a create request leaves them out.
const (
	DefaultMaxCalls = 100
	DefaultLifetime = 30 * 24 * time.Hour
)

// DelegationStatus is derived from a Delegation at a point in time.
type DelegationStatus string

const (
	DelegationActive    DelegationStatus = "active"
	DelegationExhausted DelegationStatus = "exhausted"
	DelegationExpired   DelegationStatus = "expired"
	DelegationRevoked   DelegationStatus = "revoked"
)

// Delegation is a signed grant from an issuer letting the backend signer
// act on its behalf. Addresses are lower-case 0x hex.
//
// SealedPayload holds the permission context encrypted at rest; it is
// opened only when a mint is submitted and never leaves the service.
type Delegation struct {
	ID                  string
	IssuerAddress       string
	SmartAccountAddress string
	BackendAddress      string
	SealedPayload       []byte
	PayloadDigest       string
	MaxCalls            int
	CallsUsed           int
	ExpiresAt           time.Time
	IsRevoked           bool
	RevokedAt           *time.Time
	CreatedAt           time.Time
}

// Usable reports whether a call may be reserved against d at now.
func (d Delegation) Usable(now time.Time) bool {
	return d.Status(now) == DelegationActive
}

// Status resolves the lifecycle state. Revocation wins over expiry, which
// wins over exhaustion.
func (d Delegation) Status(now time.Time) DelegationStatus {
	switch {
	case d.IsRevoked:
		return DelegationRevoked
	case !now.Before(d.ExpiresAt):
		return DelegationExpired
	case d.CallsUsed >= d.MaxCalls:
		return DelegationExhausted
	default:
		return DelegationActive
	}
}

// RemainingCalls is never negative.
func (d Delegation) RemainingCalls() int {
	return max(d.MaxCalls-d.CallsUsed, 0)
}
