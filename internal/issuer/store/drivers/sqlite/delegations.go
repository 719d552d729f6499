package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/issuer/internal/issuer/domain"
	"github.com/aussiebroadwan/issuer/internal/issuer/store"
	"github.com/aussiebroadwan/issuer/internal/issuer/store/drivers/sqlite/gen"
)

type delegationsRepo struct {
	q *gen.Queries
}

func (r *delegationsRepo) CreateDelegation(ctx context.Context, d domain.Delegation) error {
	err := r.q.CreateDelegation(ctx, gen.CreateDelegationParams{
		ID:                  d.ID,
		IssuerAddress:       d.IssuerAddress,
		SmartAccountAddress: d.SmartAccountAddress,
		BackendAddress:      d.BackendAddress,
		SealedPayload:       d.SealedPayload,
		PayloadDigest:       d.PayloadDigest,
		MaxCalls:            int64(d.MaxCalls),
		ExpiresAt:           toMillis(d.ExpiresAt),
		CreatedAt:           toMillis(d.CreatedAt),
	})
	return mapUniqueViolation(err)
}

func (r *delegationsRepo) GetDelegationByID(ctx context.Context, id string) (domain.Delegation, error) {
	row, err := r.q.GetDelegationByID(ctx, id)
	if err != nil {
		return domain.Delegation{}, mapNotFound(err)
	}
	return mapDelegation(row), nil
}

func (r *delegationsRepo) GetActiveDelegationByIssuer(
	ctx context.Context,
	issuer string,
	now time.Time,
) (domain.Delegation, error) {
	row, err := r.q.GetActiveDelegationByIssuer(ctx, gen.GetActiveDelegationByIssuerParams{
		IssuerAddress: issuer,
		Now:           toMillis(now),
	})
	if err != nil {
		return domain.Delegation{}, mapNotFound(err)
	}
	return mapDelegation(row), nil
}

func (r *delegationsRepo) IncrementCallCount(ctx context.Context, id string, now time.Time) (bool, error) {
	n, err := r.q.IncrementCallCount(ctx, gen.IncrementCallCountParams{
		ID:  id,
		Now: toMillis(now),
	})
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *delegationsRepo) RevokeDelegation(ctx context.Context, id string, now time.Time) error {
	n, err := r.q.RevokeDelegation(ctx, gen.RevokeDelegationParams{
		RevokedAt: toMillis(now),
		ID:        id,
	})
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	// Nothing changed: either already revoked or unknown.
	exists, err := r.q.DelegationExists(ctx, id)
	if err != nil {
		return err
	}
	if exists == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *delegationsRepo) ListDelegationsByIssuer(
	ctx context.Context,
	issuer string,
	includeRevoked bool,
) ([]domain.Delegation, error) {
	rows, err := r.q.ListDelegationsByIssuer(ctx, gen.ListDelegationsByIssuerParams{
		IssuerAddress:  issuer,
		IncludeRevoked: boolToInt(includeRevoked),
	})
	if err != nil {
		return nil, err
	}

	out := make([]domain.Delegation, 0, len(rows))
	for _, row := range rows {
		out = append(out, mapDelegation(row))
	}
	return out, nil
}
