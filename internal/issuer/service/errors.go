package service

import (
	"errors"
	"fmt"

	"github.com/aussiebroadwan/issuer/internal/issuer/risk"
)

var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrDelegationNotFound  = errors.New("no active delegation found")
	ErrNotOwner            = errors.New("delegation does not belong to the caller")
	ErrDelegationRevoked   = errors.New("delegation has been revoked")
	ErrDelegationExpired   = errors.New("delegation has expired")
	ErrUsageExhausted      = errors.New("maximum usage limit reached")
	ErrDuplicateDelegation = errors.New("delegation payload is already registered")
	ErrCredentialNotFound  = errors.New("credential not found")
)

// RiskRejectedError stops an issuance the risk gate classified HIGH.
type RiskRejectedError struct {
	Assessment risk.Assessment
}

func (e *RiskRejectedError) Error() string {
	return fmt.Sprintf("issuance blocked: high fraud risk (score %d)", e.Assessment.Score)
}

// Pipeline stages that talk to collaborators.
const (
	StageMetadata = "metadata"
	StageChain    = "chain"
)

// UpstreamError is a terminal collaborator failure. The wrapped message is
// surfaced to callers, so collaborators must not put secrets in errors.
type UpstreamError struct {
	Stage string
	Err   error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}
