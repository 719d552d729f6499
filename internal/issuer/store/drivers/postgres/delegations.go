package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aussiebroadwan/issuer/internal/issuer/domain"
	"github.com/aussiebroadwan/issuer/internal/issuer/store"
)

const delegationColumns = `id, issuer_address, smart_account_address, backend_address, sealed_payload, payload_digest, max_calls, calls_used, expires_at, is_revoked, revoked_at, created_at`

type delegationsRepo struct {
	q querier
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDelegation(row rowScanner) (domain.Delegation, error) {
	var (
		d         domain.Delegation
		revokedAt sql.NullTime
	)
	err := row.Scan(
		&d.ID,
		&d.IssuerAddress,
		&d.SmartAccountAddress,
		&d.BackendAddress,
		&d.SealedPayload,
		&d.PayloadDigest,
		&d.MaxCalls,
		&d.CallsUsed,
		&d.ExpiresAt,
		&d.IsRevoked,
		&revokedAt,
		&d.CreatedAt,
	)
	if err != nil {
		return domain.Delegation{}, err
	}
	if revokedAt.Valid {
		t := revokedAt.Time.UTC()
		d.RevokedAt = &t
	}
	d.ExpiresAt = d.ExpiresAt.UTC()
	d.CreatedAt = d.CreatedAt.UTC()
	return d, nil
}

func (r *delegationsRepo) CreateDelegation(ctx context.Context, d domain.Delegation) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO delegations (id, issuer_address, smart_account_address, backend_address, sealed_payload, payload_digest, max_calls, calls_used, expires_at, is_revoked, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, FALSE, $9)`,
		d.ID, d.IssuerAddress, d.SmartAccountAddress, d.BackendAddress,
		d.SealedPayload, d.PayloadDigest, d.MaxCalls, d.ExpiresAt, d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create delegation: %w", mapUniqueViolation(err))
	}
	return nil
}

func (r *delegationsRepo) GetDelegationByID(ctx context.Context, id string) (domain.Delegation, error) {
	row := r.q.QueryRowContext(ctx,
		"SELECT "+delegationColumns+" FROM delegations WHERE id = $1", id)
	d, err := scanDelegation(row)
	if err != nil {
		return domain.Delegation{}, mapNotFound(err)
	}
	return d, nil
}

func (r *delegationsRepo) GetActiveDelegationByIssuer(ctx context.Context, issuer string, now time.Time) (domain.Delegation, error) {
	row := r.q.QueryRowContext(ctx,
		"SELECT "+delegationColumns+` FROM delegations
		WHERE issuer_address = $1 AND is_revoked = FALSE AND expires_at > $2 AND calls_used < max_calls
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, issuer, now)
	d, err := scanDelegation(row)
	if err != nil {
		return domain.Delegation{}, mapNotFound(err)
	}
	return d, nil
}

func (r *delegationsRepo) IncrementCallCount(ctx context.Context, id string, now time.Time) (bool, error) {
	res, err := r.q.ExecContext(ctx,
		`UPDATE delegations SET calls_used = calls_used + 1
		WHERE id = $1 AND is_revoked = FALSE AND expires_at > $2 AND calls_used < max_calls`,
		id, now)
	if err != nil {
		return false, fmt.Errorf("increment call count: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *delegationsRepo) RevokeDelegation(ctx context.Context, id string, now time.Time) error {
	res, err := r.q.ExecContext(ctx,
		"UPDATE delegations SET is_revoked = TRUE, revoked_at = $2 WHERE id = $1 AND is_revoked = FALSE",
		id, now)
	if err != nil {
		return fmt.Errorf("revoke delegation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	var exists bool
	if err := r.q.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM delegations WHERE id = $1)", id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return store.ErrNotFound
	}
	return nil
}

func (r *delegationsRepo) ListDelegationsByIssuer(ctx context.Context, issuer string, includeRevoked bool) ([]domain.Delegation, error) {
	rows, err := r.q.QueryContext(ctx,
		"SELECT "+delegationColumns+` FROM delegations
		WHERE issuer_address = $1 AND ($2 OR is_revoked = FALSE)
		ORDER BY created_at DESC, id DESC`, issuer, includeRevoked)
	if err != nil {
		return nil, fmt.Errorf("list delegations: %w", err)
	}
	defer rows.Close()

	out := []domain.Delegation{}
	for rows.Next() {
		d, err := scanDelegation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
