package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/aussiebroadwan/issuer/internal/issuer/store"
	"github.com/aussiebroadwan/issuer/internal/issuer/store/drivers/sqlite/gen"
)

// txStore scopes every repository to one *sql.Tx. The store runs on a
// single connection, so while a txStore is open every other caller queues
// behind it; keep transactions short and never touch the parent Store from
// inside one.
type txStore struct {
	tx *sql.Tx
	q  *gen.Queries
}

func newTx(tx *sql.Tx) *txStore {
	return &txStore{tx: tx, q: gen.New(tx)}
}

func (t *txStore) Commit() error { return t.tx.Commit() }

// Rollback after Commit is a no-op so callers can always defer it.
func (t *txStore) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

func (t *txStore) Close() error                   { return nil }
func (t *txStore) Ping(ctx context.Context) error { return nil }
func (t *txStore) ApplyMigrations() error         { return nil }

func (t *txStore) Tx(ctx context.Context) (store.Tx, error) { return nil, store.ErrNestedTx }

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return store.ErrNestedTx
}

func (t *txStore) Delegations() store.Delegations { return &delegationsRepo{q: t.q} }
func (t *txStore) Issuances() store.Issuances     { return &issuancesRepo{q: t.q} }
func (t *txStore) RateLimits() store.RateLimits   { return &rateLimitsRepo{q: t.q} }
