package postgres

import (
	"context"
	"fmt"

	"github.com/aussiebroadwan/issuer/internal/issuer/domain"
)

type issuancesRepo struct {
	q querier
}

func (r *issuancesRepo) CreateIssuance(ctx context.Context, rec domain.Issuance) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO issuances (id, delegation_id, issuer_address, recipient_address, credential_type, token_id, tx_hash, metadata_uri, risk_level, risk_score, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		rec.ID, rec.DelegationID, rec.IssuerAddress, rec.RecipientAddress, rec.CredentialType,
		rec.TokenID, rec.TxHash, rec.MetadataURI, rec.RiskLevel, rec.RiskScore, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create issuance: %w", mapUniqueViolation(err))
	}
	return nil
}

func (r *issuancesRepo) GetIssuanceByID(ctx context.Context, id string) (domain.Issuance, error) {
	var rec domain.Issuance
	err := r.q.QueryRowContext(ctx,
		`SELECT id, delegation_id, issuer_address, recipient_address, credential_type, token_id, tx_hash, metadata_uri, risk_level, risk_score, created_at
		FROM issuances WHERE id = $1`, id).Scan(
		&rec.ID, &rec.DelegationID, &rec.IssuerAddress, &rec.RecipientAddress, &rec.CredentialType,
		&rec.TokenID, &rec.TxHash, &rec.MetadataURI, &rec.RiskLevel, &rec.RiskScore, &rec.CreatedAt,
	)
	if err != nil {
		return domain.Issuance{}, mapNotFound(err)
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}

// RecipientHistory counts every recorded issuance as active.
func (r *issuancesRepo) RecipientHistory(ctx context.Context, recipient string) (domain.RecipientHistory, error) {
	var total int
	if err := r.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM issuances WHERE recipient_address = $1", recipient).Scan(&total); err != nil {
		return domain.RecipientHistory{}, err
	}

	rows, err := r.q.QueryContext(ctx,
		"SELECT DISTINCT credential_type FROM issuances WHERE recipient_address = $1 ORDER BY credential_type", recipient)
	if err != nil {
		return domain.RecipientHistory{}, err
	}
	defer rows.Close()

	types := []string{}
	for rows.Next() {
		var ct string
		if err := rows.Scan(&ct); err != nil {
			return domain.RecipientHistory{}, err
		}
		types = append(types, ct)
	}
	if err := rows.Err(); err != nil {
		return domain.RecipientHistory{}, err
	}

	return domain.RecipientHistory{
		TotalCredentials:  total,
		ActiveCredentials: total,
		CredentialTypes:   types,
	}, nil
}

func (r *issuancesRepo) CountInteractions(ctx context.Context, issuer, recipient string) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM issuances WHERE issuer_address = $1 AND recipient_address = $2",
		issuer, recipient).Scan(&n)
	return n, err
}

func (r *issuancesRepo) CountIssuedBy(ctx context.Context, issuer string) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM issuances WHERE issuer_address = $1", issuer).Scan(&n)
	return n, err
}
