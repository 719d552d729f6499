package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/aussiebroadwan/issuer/internal/issuer/domain"
	"github.com/aussiebroadwan/issuer/internal/issuer/store"
	"github.com/aussiebroadwan/issuer/internal/issuer/store/drivers/sqlite/gen"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type Store struct {
	db  *sql.DB
	q   *gen.Queries
	dsn string
}

func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// One connection: ":memory:" stays a single database and writers queue
	// instead of failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		`PRAGMA foreign_keys = ON;`,
		`PRAGMA busy_timeout = 5000;`,
	} {
		if _, err := db.ExecContext(context.Background(), pragma); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return &Store{
		db:  db,
		q:   gen.New(db),
		dsn: dsn,
	}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Tx starts a read/write transaction and returns a Tx-scoped Store.
func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return newTx(tx), nil
}

// WithTx executes fn within a transaction, automatically handling commit/rollback.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback() // safe to call even after commit
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) Delegations() store.Delegations { return &delegationsRepo{q: s.q} }
func (s *Store) Issuances() store.Issuances     { return &issuancesRepo{q: s.q} }
func (s *Store) RateLimits() store.RateLimits   { return &rateLimitsRepo{q: s.q} }

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func mapUniqueViolation(err error) error {
	var serr *msqlite.Error
	if errors.As(err, &serr) {
		switch serr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return store.ErrAlreadyExists
		}
	}
	return err
}

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func mapDelegation(row gen.Delegation) domain.Delegation {
	var revokedAt *time.Time
	if row.RevokedAt.Valid {
		t := fromMillis(row.RevokedAt.Int64)
		revokedAt = &t
	}

	return domain.Delegation{
		ID:                  row.ID,
		IssuerAddress:       row.IssuerAddress,
		SmartAccountAddress: row.SmartAccountAddress,
		BackendAddress:      row.BackendAddress,
		SealedPayload:       row.SealedPayload,
		PayloadDigest:       row.PayloadDigest,
		MaxCalls:            int(row.MaxCalls),
		CallsUsed:           int(row.CallsUsed),
		ExpiresAt:           fromMillis(row.ExpiresAt),
		IsRevoked:           row.IsRevoked != 0,
		RevokedAt:           revokedAt,
		CreatedAt:           fromMillis(row.CreatedAt),
	}
}

func mapIssuance(row gen.Issuance) domain.Issuance {
	return domain.Issuance{
		ID:               row.ID,
		DelegationID:     row.DelegationID,
		IssuerAddress:    row.IssuerAddress,
		RecipientAddress: row.RecipientAddress,
		CredentialType:   row.CredentialType,
		TokenID:          row.TokenID,
		TxHash:           row.TxHash,
		MetadataURI:      row.MetadataUri,
		RiskLevel:        row.RiskLevel,
		RiskScore:        int(row.RiskScore),
		CreatedAt:        fromMillis(row.CreatedAt),
	}
}
