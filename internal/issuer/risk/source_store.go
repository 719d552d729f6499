package risk

import (
	"context"
	"strings"

	"github.com/aussiebroadwan/issuer/internal/issuer/domain"
	"github.com/aussiebroadwan/issuer/internal/issuer/store"
)

// StoreSource answers from this service's own issuance records. Revoked
// counts are always zero because credential revocation happens on-chain.
type StoreSource struct {
	store    store.Store
	verified map[string]bool
}

// NewStoreSource treats the listed addresses (any case) as verified issuers.
func NewStoreSource(s store.Store, verifiedIssuers []string) *StoreSource {
	v := make(map[string]bool, len(verifiedIssuers))
	for _, a := range verifiedIssuers {
		if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
			v[a] = true
		}
	}
	return &StoreSource{store: s, verified: v}
}

func (s *StoreSource) RecipientHistory(ctx context.Context, recipient string) (domain.RecipientHistory, error) {
	return s.store.Issuances().RecipientHistory(ctx, recipient)
}

func (s *StoreSource) PriorInteractions(ctx context.Context, issuer, recipient string) (int, error) {
	return s.store.Issuances().CountInteractions(ctx, issuer, recipient)
}

func (s *StoreSource) IssuerInfo(ctx context.Context, issuer string) (IssuerInfo, error) {
	n, err := s.store.Issuances().CountIssuedBy(ctx, issuer)
	if err != nil {
		return IssuerInfo{}, err
	}
	return IssuerInfo{Verified: s.verified[strings.ToLower(issuer)], TotalIssued: n}, nil
}
