package sqlite

import (
	"context"

	"github.com/aussiebroadwan/issuer/internal/issuer/domain"
	"github.com/aussiebroadwan/issuer/internal/issuer/store/drivers/sqlite/gen"
)

type issuancesRepo struct {
	q *gen.Queries
}

func (r *issuancesRepo) CreateIssuance(ctx context.Context, rec domain.Issuance) error {
	err := r.q.CreateIssuance(ctx, gen.CreateIssuanceParams{
		ID:               rec.ID,
		DelegationID:     rec.DelegationID,
		IssuerAddress:    rec.IssuerAddress,
		RecipientAddress: rec.RecipientAddress,
		CredentialType:   rec.CredentialType,
		TokenID:          rec.TokenID,
		TxHash:           rec.TxHash,
		MetadataUri:      rec.MetadataURI,
		RiskLevel:        rec.RiskLevel,
		RiskScore:        int64(rec.RiskScore),
		CreatedAt:        toMillis(rec.CreatedAt),
	})
	return mapUniqueViolation(err)
}

func (r *issuancesRepo) GetIssuanceByID(ctx context.Context, id string) (domain.Issuance, error) {
	row, err := r.q.GetIssuanceByID(ctx, id)
	if err != nil {
		return domain.Issuance{}, mapNotFound(err)
	}
	return mapIssuance(row), nil
}

// RecipientHistory treats every recorded issuance as active; credential
// revocation is tracked on-chain, not here.
func (r *issuancesRepo) RecipientHistory(ctx context.Context, recipient string) (domain.RecipientHistory, error) {
	total, err := r.q.CountIssuancesToRecipient(ctx, recipient)
	if err != nil {
		return domain.RecipientHistory{}, err
	}
	types, err := r.q.ListCredentialTypesForRecipient(ctx, recipient)
	if err != nil {
		return domain.RecipientHistory{}, err
	}
	return domain.RecipientHistory{
		TotalCredentials:  int(total),
		ActiveCredentials: int(total),
		CredentialTypes:   types,
	}, nil
}

func (r *issuancesRepo) CountInteractions(ctx context.Context, issuer, recipient string) (int, error) {
	n, err := r.q.CountInteractions(ctx, gen.CountInteractionsParams{
		IssuerAddress:    issuer,
		RecipientAddress: recipient,
	})
	return int(n), err
}

func (r *issuancesRepo) CountIssuedBy(ctx context.Context, issuer string) (int, error) {
	n, err := r.q.CountIssuedBy(ctx, issuer)
	return int(n), err
}
