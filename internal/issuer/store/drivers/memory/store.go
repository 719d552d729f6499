// Package memory is an in-process store used by tests and single-node dev
// runs. Everything is lost on restart.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/aussiebroadwan/issuer/internal/issuer/domain"
	"github.com/aussiebroadwan/issuer/internal/issuer/store"
)

type state struct {
	delegations map[string]domain.Delegation
	digests     map[string]string
	issuances   map[string]domain.Issuance
	txHashes    map[string]string
	rateLimits  map[string]domain.RateLimitEntry
}

func newState() *state {
	return &state{
		delegations: map[string]domain.Delegation{},
		digests:     map[string]string{},
		issuances:   map[string]domain.Issuance{},
		txHashes:    map[string]string{},
		rateLimits:  map[string]domain.RateLimitEntry{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.delegations {
		c.delegations[k] = v
	}
	for k, v := range s.digests {
		c.digests[k] = v
	}
	for k, v := range s.issuances {
		c.issuances[k] = v
	}
	for k, v := range s.txHashes {
		c.txHashes[k] = v
	}
	for k, v := range s.rateLimits {
		c.rateLimits[k] = v
	}
	return c
}

type Store struct {
	mu sync.Mutex
	st *state
}

func NewStore() *Store {
	return &Store{st: newState()}
}

// locked runs fn with the store lock held.
func (s *Store) locked(fn func(st *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

func (s *Store) ApplyMigrations() error         { return nil }
func (s *Store) Close() error                   { return nil }
func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

// Tx holds the store lock until Commit or Rollback and works on a copy, so
// a rolled back transaction leaves no trace.
func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	return &txStore{parent: s, st: s.st.clone()}, nil
}

func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) Delegations() store.Delegations { return &delegationsRepo{run: s.locked} }
func (s *Store) Issuances() store.Issuances     { return &issuancesRepo{run: s.locked} }
func (s *Store) RateLimits() store.RateLimits   { return &rateLimitsRepo{run: s.locked} }

type txStore struct {
	parent *Store
	st     *state
	once   sync.Once
}

func (t *txStore) finish(commit bool) {
	t.once.Do(func() {
		if commit {
			t.parent.st = t.st
		}
		t.parent.mu.Unlock()
	})
}

func (t *txStore) Commit() error   { t.finish(true); return nil }
func (t *txStore) Rollback() error { t.finish(false); return nil }

func (t *txStore) run(fn func(st *state) error) error { return fn(t.st) }

func (t *txStore) ApplyMigrations() error         { return nil }
func (t *txStore) Close() error                   { return nil }
func (t *txStore) Ping(ctx context.Context) error { return nil }

func (t *txStore) Tx(ctx context.Context) (store.Tx, error) { return nil, store.ErrNestedTx }

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return store.ErrNestedTx
}

func (t *txStore) Delegations() store.Delegations { return &delegationsRepo{run: t.run} }
func (t *txStore) Issuances() store.Issuances     { return &issuancesRepo{run: t.run} }
func (t *txStore) RateLimits() store.RateLimits   { return &rateLimitsRepo{run: t.run} }

type runner func(fn func(st *state) error) error

type delegationsRepo struct{ run runner }

func (r *delegationsRepo) CreateDelegation(ctx context.Context, d domain.Delegation) error {
	return r.run(func(st *state) error {
		if _, ok := st.delegations[d.ID]; ok {
			return store.ErrAlreadyExists
		}
		if _, ok := st.digests[d.PayloadDigest]; ok {
			return store.ErrAlreadyExists
		}
		d.CallsUsed = 0
		d.IsRevoked = false
		d.RevokedAt = nil
		d.SealedPayload = slices.Clone(d.SealedPayload)
		st.delegations[d.ID] = d
		st.digests[d.PayloadDigest] = d.ID
		return nil
	})
}

func (r *delegationsRepo) GetDelegationByID(ctx context.Context, id string) (domain.Delegation, error) {
	var out domain.Delegation
	err := r.run(func(st *state) error {
		d, ok := st.delegations[id]
		if !ok {
			return store.ErrNotFound
		}
		out = d
		return nil
	})
	return out, err
}

func newestFirst(ds []domain.Delegation) {
	sort.Slice(ds, func(i, j int) bool {
		if !ds[i].CreatedAt.Equal(ds[j].CreatedAt) {
			return ds[i].CreatedAt.After(ds[j].CreatedAt)
		}
		return ds[i].ID > ds[j].ID
	})
}

func (r *delegationsRepo) GetActiveDelegationByIssuer(ctx context.Context, issuer string, now time.Time) (domain.Delegation, error) {
	var out domain.Delegation
	err := r.run(func(st *state) error {
		var usable []domain.Delegation
		for _, d := range st.delegations {
			if d.IssuerAddress == issuer && d.Usable(now) {
				usable = append(usable, d)
			}
		}
		if len(usable) == 0 {
			return store.ErrNotFound
		}
		newestFirst(usable)
		out = usable[0]
		return nil
	})
	return out, err
}

func (r *delegationsRepo) IncrementCallCount(ctx context.Context, id string, now time.Time) (bool, error) {
	var ok bool
	err := r.run(func(st *state) error {
		d, found := st.delegations[id]
		if !found || !d.Usable(now) {
			return nil
		}
		d.CallsUsed++
		st.delegations[id] = d
		ok = true
		return nil
	})
	return ok, err
}

func (r *delegationsRepo) RevokeDelegation(ctx context.Context, id string, now time.Time) error {
	return r.run(func(st *state) error {
		d, ok := st.delegations[id]
		if !ok {
			return store.ErrNotFound
		}
		if d.IsRevoked {
			return nil
		}
		d.IsRevoked = true
		d.RevokedAt = &now
		st.delegations[id] = d
		return nil
	})
}

func (r *delegationsRepo) ListDelegationsByIssuer(ctx context.Context, issuer string, includeRevoked bool) ([]domain.Delegation, error) {
	out := []domain.Delegation{}
	err := r.run(func(st *state) error {
		for _, d := range st.delegations {
			if d.IssuerAddress != issuer || (d.IsRevoked && !includeRevoked) {
				continue
			}
			out = append(out, d)
		}
		return nil
	})
	newestFirst(out)
	return out, err
}

type issuancesRepo struct{ run runner }

func (r *issuancesRepo) CreateIssuance(ctx context.Context, rec domain.Issuance) error {
	return r.run(func(st *state) error {
		if _, ok := st.issuances[rec.ID]; ok {
			return store.ErrAlreadyExists
		}
		if _, ok := st.txHashes[rec.TxHash]; ok {
			return store.ErrAlreadyExists
		}
		if _, ok := st.delegations[rec.DelegationID]; !ok {
			return store.ErrNotFound
		}
		st.issuances[rec.ID] = rec
		st.txHashes[rec.TxHash] = rec.ID
		return nil
	})
}

func (r *issuancesRepo) GetIssuanceByID(ctx context.Context, id string) (domain.Issuance, error) {
	var out domain.Issuance
	err := r.run(func(st *state) error {
		rec, ok := st.issuances[id]
		if !ok {
			return store.ErrNotFound
		}
		out = rec
		return nil
	})
	return out, err
}

func (r *issuancesRepo) RecipientHistory(ctx context.Context, recipient string) (domain.RecipientHistory, error) {
	h := domain.RecipientHistory{CredentialTypes: []string{}}
	err := r.run(func(st *state) error {
		seen := map[string]bool{}
		for _, rec := range st.issuances {
			if rec.RecipientAddress != recipient {
				continue
			}
			h.TotalCredentials++
			if !seen[rec.CredentialType] {
				seen[rec.CredentialType] = true
				h.CredentialTypes = append(h.CredentialTypes, rec.CredentialType)
			}
		}
		return nil
	})
	h.ActiveCredentials = h.TotalCredentials
	sort.Strings(h.CredentialTypes)
	return h, err
}

func (r *issuancesRepo) CountInteractions(ctx context.Context, issuer, recipient string) (int, error) {
	n := 0
	err := r.run(func(st *state) error {
		for _, rec := range st.issuances {
			if rec.IssuerAddress == issuer && rec.RecipientAddress == recipient {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *issuancesRepo) CountIssuedBy(ctx context.Context, issuer string) (int, error) {
	n := 0
	err := r.run(func(st *state) error {
		for _, rec := range st.issuances {
			if rec.IssuerAddress == issuer {
				n++
			}
		}
		return nil
	})
	return n, err
}

type rateLimitsRepo struct{ run runner }

func (r *rateLimitsRepo) HitRateLimit(ctx context.Context, key string, max int, window time.Duration, now time.Time) (int, time.Time, error) {
	var entry domain.RateLimitEntry
	err := r.run(func(st *state) error {
		e, ok := st.rateLimits[key]
		switch {
		case !ok || !now.Before(e.WindowResetAt):
			e = domain.RateLimitEntry{Key: key, Count: 1, WindowResetAt: now.Add(window)}
		case e.Count <= max:
			e.Count++
		}
		st.rateLimits[key] = e
		entry = e
		return nil
	})
	return entry.Count, entry.WindowResetAt, err
}

func (r *rateLimitsRepo) DeleteExpiredRateLimits(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := r.run(func(st *state) error {
		for k, e := range st.rateLimits {
			if !e.WindowResetAt.After(now) {
				delete(st.rateLimits, k)
				n++
			}
		}
		return nil
	})
	return n, err
}
