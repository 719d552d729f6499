package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aussiebroadwan/issuer/internal/issuer/domain"
	"github.com/aussiebroadwan/issuer/internal/issuer/store"
	"github.com/aussiebroadwan/issuer/pkg/cryptox"
	"github.com/aussiebroadwan/issuer/pkg/idx"
	"github.com/aussiebroadwan/issuer/pkg/sigauth"
	"github.com/aussiebroadwan/issuer/pkg/slogx"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Sealer encrypts delegation payloads at rest. *cryptox.Sealer implements it.
type Sealer interface {
	Seal(plaintext, aad []byte) ([]byte, error)
	Open(sealed, aad []byte) ([]byte, error)
}

type DelegationService struct {
	Store  store.Store
	Sealer Sealer

	// BackendAddress is the signer this service submits with. Delegations
	// naming any other delegate are useless to us and are rejected.
	BackendAddress string

	Now func() time.Time
}

// CreateDelegationCommand is a validated create request. Zero MaxCalls and
// ExpiresAt take the defaults.
type CreateDelegationCommand struct {
	SmartAccountAddress string
	BackendAddress      string
	PermissionContext   string // 0x hex, ABI-encoded delegation chain
	MaxCalls            int
	ExpiresAt           time.Time
}

func (s *DelegationService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *DelegationService) CreateDelegation(ctx context.Context, issuer string, cmd CreateDelegationCommand) (domain.Delegation, error) {
	l := slogx.FromContext(ctx)
	now := s.now().UTC()

	// 1. Validate and normalize
	if !common.IsHexAddress(cmd.SmartAccountAddress) {
		return domain.Delegation{}, invalid("smart_account_address must be a 0x address")
	}
	backend := s.BackendAddress
	if cmd.BackendAddress != "" {
		if !common.IsHexAddress(cmd.BackendAddress) {
			return domain.Delegation{}, invalid("backend_address must be a 0x address")
		}
		if !strings.EqualFold(cmd.BackendAddress, s.BackendAddress) {
			return domain.Delegation{}, invalid("backend_address does not match this service's signer")
		}
	}
	payload, err := hexutil.Decode(cmd.PermissionContext)
	if err != nil || len(payload) == 0 {
		return domain.Delegation{}, invalid("permission_context must be non-empty 0x hex")
	}

	maxCalls := cmd.MaxCalls
	switch {
	case maxCalls < 0:
		return domain.Delegation{}, invalid("max_calls must be positive")
	case maxCalls == 0:
		maxCalls = domain.DefaultMaxCalls
	}

	expiresAt := cmd.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = now.Add(domain.DefaultLifetime)
	}
	if !expiresAt.After(now) {
		return domain.Delegation{}, invalid("expires_at must be in the future")
	}

	// 2. Seal the payload bound to the delegation id
	id := idx.PrefixDelegation.NewAt(now).String()
	sealed, err := s.Sealer.Seal(payload, []byte(id))
	if err != nil {
		l.Error("failed to seal delegation payload", "error", err)
		return domain.Delegation{}, err
	}

	d := domain.Delegation{
		ID:                  id,
		IssuerAddress:       sigauth.NormalizeAddress(issuer),
		SmartAccountAddress: sigauth.NormalizeAddress(cmd.SmartAccountAddress),
		BackendAddress:      sigauth.NormalizeAddress(backend),
		SealedPayload:       sealed,
		PayloadDigest:       cryptox.Digest(payload),
		MaxCalls:            maxCalls,
		ExpiresAt:           expiresAt.UTC(),
		CreatedAt:           now,
	}

	// 3. Persist
	if err := s.Store.Delegations().CreateDelegation(ctx, d); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Delegation{}, ErrDuplicateDelegation
		}
		l.Error("failed to create delegation", "error", err)
		return domain.Delegation{}, err
	}

	l.Info("delegation created",
		"delegation_id", d.ID,
		"issuer", d.IssuerAddress,
		"max_calls", d.MaxCalls,
		"expires_at", d.ExpiresAt,
	)
	return d, nil
}

// ListDelegations returns the caller's delegations, newest first.
func (s *DelegationService) ListDelegations(ctx context.Context, issuer string, includeRevoked bool) ([]domain.Delegation, error) {
	return s.Store.Delegations().ListDelegationsByIssuer(ctx, sigauth.NormalizeAddress(issuer), includeRevoked)
}

// GetActiveDelegation is the delegation an "auto" issuance would use.
func (s *DelegationService) GetActiveDelegation(ctx context.Context, issuer string) (domain.Delegation, error) {
	d, err := s.Store.Delegations().GetActiveDelegationByIssuer(ctx, sigauth.NormalizeAddress(issuer), s.now())
	if errors.Is(err, store.ErrNotFound) {
		return domain.Delegation{}, ErrDelegationNotFound
	}
	return d, err
}

// RevokeDelegation revokes one of the caller's delegations. Revoking twice
// succeeds.
func (s *DelegationService) RevokeDelegation(ctx context.Context, issuer, id string) (domain.Delegation, error) {
	l := slogx.FromContext(ctx)

	// Ownership check and revoke share a transaction so the row we checked
	// is the row we revoke.
	var revoked domain.Delegation
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		d, err := tx.Delegations().GetDelegationByID(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrDelegationNotFound
			}
			return err
		}
		if d.IssuerAddress != sigauth.NormalizeAddress(issuer) {
			l.Warn("revoke attempted by non-owner", "delegation_id", id, "caller", issuer)
			return ErrNotOwner
		}

		if err := tx.Delegations().RevokeDelegation(ctx, id, s.now().UTC()); err != nil {
			return err
		}
		revoked, err = tx.Delegations().GetDelegationByID(ctx, id)
		return err
	})
	if err != nil {
		if !errors.Is(err, ErrDelegationNotFound) && !errors.Is(err, ErrNotOwner) {
			l.Error("failed to revoke delegation", "error", err, "delegation_id", id)
		}
		return domain.Delegation{}, err
	}

	l.Info("delegation revoked", "delegation_id", id)
	return revoked, nil
}
