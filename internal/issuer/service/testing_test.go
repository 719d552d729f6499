package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/issuer/internal/issuer/chain"
	"github.com/aussiebroadwan/issuer/internal/issuer/domain"
	"github.com/aussiebroadwan/issuer/internal/issuer/metadata"
	"github.com/aussiebroadwan/issuer/internal/issuer/risk"
	"github.com/aussiebroadwan/issuer/internal/issuer/store"
	"github.com/aussiebroadwan/issuer/internal/issuer/store/drivers/sqlite"
	"github.com/aussiebroadwan/issuer/pkg/cryptox"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

const (
	issuerA   = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	issuerB   = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	account   = "0x1111111111111111111111111111111111111111"
	backend   = "0x2222222222222222222222222222222222222222"
	recipient = "0x3333333333333333333333333333333333333333"
)

var testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())
	return s
}

func newTestSealer(t *testing.T) *cryptox.Sealer {
	t.Helper()

	s, err := cryptox.NewSealer([]byte("test-key-material"))
	require.NoError(t, err)
	return s
}

type fakePublisher struct {
	mu    sync.Mutex
	docs  []metadata.Document
	err   error
	calls int
	hook  func()
}

func (p *fakePublisher) Publish(_ context.Context, doc metadata.Document) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.hook != nil {
		p.hook()
	}
	if p.err != nil {
		return "", p.err
	}
	p.docs = append(p.docs, doc)
	return "https://meta.test/" + doc.CredentialType + ".json", nil
}

type fakeMinter struct {
	mu       sync.Mutex
	requests []chain.MintRequest
	err      error
	nextID   int
	noToken  bool
}

func (m *fakeMinter) Mint(ctx context.Context, req chain.MintRequest) (chain.MintResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return chain.MintResult{}, err
	}
	m.requests = append(m.requests, req)
	if m.err != nil {
		return chain.MintResult{}, m.err
	}
	m.nextID++
	if m.noToken {
		return chain.MintResult{TxHash: common.HexToHash("0xdead"), TokenID: "0"}, nil
	}
	return chain.MintResult{
		TxHash:     common.BigToHash(common.Big1),
		TokenID:    strconv.Itoa(m.nextID),
		TokenFound: true,
	}, nil
}

func (m *fakeMinter) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

type fakeRisk struct {
	assessment risk.Assessment
	err        error
}

func (r fakeRisk) Assess(context.Context, string, string, string) (risk.Assessment, error) {
	return r.assessment, r.err
}

var errBoom = errors.New("boom")

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type failingIssuances struct {
	store.Issuances
}

func (failingIssuances) CreateIssuance(context.Context, domain.Issuance) error { return errBoom }

// recordFailStore breaks issuance recording and nothing else.
type recordFailStore struct {
	store.Store
}

func (s recordFailStore) Issuances() store.Issuances {
	return failingIssuances{s.Store.Issuances()}
}
