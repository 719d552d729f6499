package risk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aussiebroadwan/issuer/internal/issuer/domain"
)

// IndexerSource reads address activity from an HTTP indexer.
//
//	GET {base}/recipients/{addr}/summary
//	GET {base}/interactions?issuer=..&recipient=..
//	GET {base}/issuers/{addr}
type IndexerSource struct {
	base   string
	client *http.Client
}

func NewIndexerSource(baseURL string, timeout time.Duration) *IndexerSource {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &IndexerSource{
		base:   strings.TrimRight(baseURL, "/"),
		client: &http.Client{Timeout: timeout},
	}
}

type recipientSummary struct {
	TotalCredentials   int      `json:"total_credentials"`
	ActiveCredentials  int      `json:"active_credentials"`
	RevokedCredentials int      `json:"revoked_credentials"`
	CredentialTypes    []string `json:"credential_types"`
}

func (s *IndexerSource) RecipientHistory(ctx context.Context, recipient string) (domain.RecipientHistory, error) {
	var sum recipientSummary
	if err := s.get(ctx, "/recipients/"+url.PathEscape(recipient)+"/summary", &sum); err != nil {
		return domain.RecipientHistory{}, err
	}
	return domain.RecipientHistory(sum), nil
}

func (s *IndexerSource) PriorInteractions(ctx context.Context, issuer, recipient string) (int, error) {
	q := url.Values{"issuer": {issuer}, "recipient": {recipient}}
	var out struct {
		Count int `json:"count"`
	}
	if err := s.get(ctx, "/interactions?"+q.Encode(), &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

func (s *IndexerSource) IssuerInfo(ctx context.Context, issuer string) (IssuerInfo, error) {
	var info IssuerInfo
	if err := s.get(ctx, "/issuers/"+url.PathEscape(issuer), &info); err != nil {
		return IssuerInfo{}, err
	}
	return info, nil
}

func (s *IndexerSource) get(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.base+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("risk: indexer %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("risk: indexer %s: status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(v)
}
