package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/issuer/internal/issuer/chain"
	"github.com/aussiebroadwan/issuer/internal/issuer/metadata"
	"github.com/aussiebroadwan/issuer/internal/issuer/risk"
	"github.com/aussiebroadwan/issuer/internal/issuer/service"
	"github.com/aussiebroadwan/issuer/internal/issuer/store/drivers/memory"
	"github.com/aussiebroadwan/issuer/pkg/cryptox"
	"github.com/aussiebroadwan/issuer/pkg/issuersdk"
	"github.com/aussiebroadwan/issuer/pkg/jwtx"
	"github.com/aussiebroadwan/issuer/pkg/ratelimit"
	"github.com/aussiebroadwan/issuer/pkg/sigauth"
	"github.com/aussiebroadwan/issuer/pkg/slogx"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

const (
	backendAddr   = "0x2222222222222222222222222222222222222222"
	smartAccount  = "0x1111111111111111111111111111111111111111"
	recipientAddr = "0x3333333333333333333333333333333333333333"
)

type stubMinter struct {
	mu sync.Mutex
	n  int
}

func (m *stubMinter) Mint(_ context.Context, req chain.MintRequest) (chain.MintResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.n++
	return chain.MintResult{
		TxHash:     common.BigToHash(common.Big2),
		TokenID:    strconv.Itoa(m.n),
		TokenFound: true,
	}, nil
}

type stubRisk struct{ level risk.Level }

func (s stubRisk) Assess(context.Context, string, string, string) (risk.Assessment, error) {
	if s.level == "" {
		return risk.Assessment{}, errors.New("offline")
	}
	return risk.Assessment{Score: 90, Level: s.level, RedFlags: []string{"new recipient"}, Source: risk.SourceRules}, nil
}

type testServer struct {
	srv      *httptest.Server
	issuance *service.IssuanceService
}

func newTestServer(t *testing.T, policies ratelimit.Policies) *testServer {
	t.Helper()

	st := memory.NewStore()
	sealer, err := cryptox.NewSealer([]byte("router-test"))
	require.NoError(t, err)
	keys, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{Issuer: "issuer-test"})
	require.NoError(t, err)
	publisher, err := metadata.NewFilePublisher(t.TempDir(), "https://meta.test")
	require.NoError(t, err)

	logger := slogx.Discard()
	r := NewRouter(keys, sigauth.NewVerifier(), ratelimit.New(ratelimit.NewMemoryBackend(), ratelimit.WithLogger(logger)), policies, "test", st, logger)
	r.SessionService = &service.SessionService{Keys: keys, Issuer: "issuer-test"}
	r.DelegationService = &service.DelegationService{Store: st, Sealer: sealer, BackendAddress: backendAddr}
	gate := risk.NewGate(risk.NewStoreSource(st, nil))
	r.IssuanceService = &service.IssuanceService{Store: st, Sealer: sealer, Risk: gate, Publisher: publisher, Minter: &stubMinter{}}
	r.RiskGate = gate
	r.ApplyRoutes()

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, issuance: r.IssuanceService}
}

func newWallet(t *testing.T, ts *testServer) *issuersdk.SDKClient {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return issuersdk.NewSDKClient(ts.srv.URL, key)
}

func requireAPIError(t *testing.T, err error, status int, code string) *issuersdk.APIError {
	t.Helper()

	var apiErr *issuersdk.APIError
	require.True(t, errors.As(err, &apiErr), "expected APIError, got %v", err)
	require.Equal(t, status, apiErr.StatusCode)
	require.Equal(t, code, apiErr.Code)
	return apiErr
}

func TestIssuanceFlow(t *testing.T) {
	ctx := context.Background()
	ts := newTestServer(t, ratelimit.DefaultPolicies())
	issuer := newWallet(t, ts)

	d, err := issuer.CreateDelegation(ctx, issuersdk.CreateDelegationRequest{
		SmartAccountAddress: smartAccount,
		PermissionContext:   "0xc0ffee",
		MaxCalls:            2,
	})
	require.NoError(t, err)
	require.Equal(t, "active", d.Status)
	require.Equal(t, 2, d.RemainingCalls)
	require.Equal(t, issuer.Address(), d.IssuerAddress)

	req := issuersdk.IssueCredentialRequest{DelegationID: "auto", Recipient: recipientAddr, CredentialType: "Membership"}

	first, err := issuer.IssueCredential(ctx, req)
	require.NoError(t, err)
	require.True(t, first.Success)
	require.Equal(t, d.ID, first.DelegationID)
	require.Equal(t, "1", first.TokenID)
	require.Contains(t, first.MetadataURI, "https://meta.test/")
	require.NotNil(t, first.Risk)

	_, err = issuer.IssueCredential(ctx, req)
	require.NoError(t, err)

	req.DelegationID = d.ID
	_, err = issuer.IssueCredential(ctx, req)
	apiErr := requireAPIError(t, err, http.StatusForbidden, issuersdk.ErrorCodeForbidden)
	require.Equal(t, "maximum usage limit reached", apiErr.Description)

	active, err := issuer.GetActiveDelegation(ctx)
	require.Nil(t, active)
	requireAPIError(t, err, http.StatusNotFound, issuersdk.ErrorCodeNotFound)

	// Public verification needs no signature.
	cred, err := issuersdk.NewSDKClient(ts.srv.URL, nil).GetCredential(ctx, first.CredentialID)
	require.NoError(t, err)
	require.Equal(t, recipientAddr, cred.Recipient)
	require.Equal(t, issuer.Address(), cred.IssuerAddress)

	list, err := issuer.ListDelegations(ctx, false)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, 2, list[0].CallsUsed)
	require.Equal(t, "exhausted", list[0].Status)
}

func TestIssueWithOthersDelegationIsForbidden(t *testing.T) {
	ctx := context.Background()
	ts := newTestServer(t, ratelimit.DefaultPolicies())
	owner, intruder := newWallet(t, ts), newWallet(t, ts)

	d, err := owner.CreateDelegation(ctx, issuersdk.CreateDelegationRequest{SmartAccountAddress: smartAccount, PermissionContext: "0x01"})
	require.NoError(t, err)

	_, err = intruder.IssueCredential(ctx, issuersdk.IssueCredentialRequest{DelegationID: d.ID, Recipient: recipientAddr, CredentialType: "Membership"})
	requireAPIError(t, err, http.StatusForbidden, issuersdk.ErrorCodeForbidden)

	_, err = intruder.RevokeDelegation(ctx, d.ID)
	requireAPIError(t, err, http.StatusForbidden, issuersdk.ErrorCodeForbidden)

	list, err := owner.ListDelegations(ctx, false)
	require.NoError(t, err)
	require.Zero(t, list[0].CallsUsed)
}

func TestRevokeAndDuplicate(t *testing.T) {
	ctx := context.Background()
	ts := newTestServer(t, ratelimit.DefaultPolicies())
	issuer := newWallet(t, ts)

	create := issuersdk.CreateDelegationRequest{SmartAccountAddress: smartAccount, PermissionContext: "0x02"}
	d, err := issuer.CreateDelegation(ctx, create)
	require.NoError(t, err)

	_, err = issuer.CreateDelegation(ctx, create)
	requireAPIError(t, err, http.StatusConflict, issuersdk.ErrorCodeConflict)

	revoked, err := issuer.RevokeDelegation(ctx, d.ID)
	require.NoError(t, err)
	require.Equal(t, "revoked", revoked.Status)

	_, err = issuer.RevokeDelegation(ctx, d.ID)
	require.NoError(t, err)

	_, err = issuer.IssueCredential(ctx, issuersdk.IssueCredentialRequest{DelegationID: d.ID, Recipient: recipientAddr, CredentialType: "Membership"})
	apiErr := requireAPIError(t, err, http.StatusForbidden, issuersdk.ErrorCodeForbidden)
	require.Contains(t, apiErr.Description, "revoked")

	all, err := issuer.ListDelegations(ctx, true)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestValidationErrors(t *testing.T) {
	ctx := context.Background()
	ts := newTestServer(t, ratelimit.DefaultPolicies())
	issuer := newWallet(t, ts)

	_, err := issuer.CreateDelegation(ctx, issuersdk.CreateDelegationRequest{SmartAccountAddress: smartAccount, PermissionContext: "0x03", BackendAddress: recipientAddr})
	requireAPIError(t, err, http.StatusBadRequest, issuersdk.ErrorCodeInvalidRequest)

	_, err = issuer.IssueCredential(ctx, issuersdk.IssueCredentialRequest{Recipient: "nope", CredentialType: "Membership"})
	requireAPIError(t, err, http.StatusBadRequest, issuersdk.ErrorCodeInvalidRequest)

	_, err = issuer.IssueCredential(ctx, issuersdk.IssueCredentialRequest{Recipient: recipientAddr, CredentialType: "Membership"})
	requireAPIError(t, err, http.StatusNotFound, issuersdk.ErrorCodeNotFound)
}

func TestAuthentication(t *testing.T) {
	ctx := context.Background()
	ts := newTestServer(t, ratelimit.DefaultPolicies())

	t.Run("missing headers", func(t *testing.T) {
		resp, err := http.Get(ts.srv.URL + "/v1/delegations")
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("stale signature", func(t *testing.T) {
		wallet := newWallet(t, ts)
		wallet.Now = func() time.Time { return time.Now().Add(-31 * time.Minute) }
		_, err := wallet.ListDelegations(ctx, false)
		requireAPIError(t, err, http.StatusUnauthorized, "unauthenticated")
	})

	t.Run("session token", func(t *testing.T) {
		wallet := newWallet(t, ts)
		sess, err := wallet.CreateSession(ctx)
		require.NoError(t, err)
		require.Equal(t, "Bearer", sess.TokenType)
		require.Equal(t, 900, sess.ExpiresIn)

		req, err := http.NewRequest(http.MethodGet, ts.srv.URL+"/v1/delegations", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+sess.Token)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		// A session can't open another session.
		req, err = http.NewRequest(http.MethodPost, ts.srv.URL+"/v1/auth/session", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+sess.Token)
		resp, err = http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestIssuanceRateLimit(t *testing.T) {
	ctx := context.Background()
	policies := ratelimit.DefaultPolicies()
	policies.Issuance.Requests = 1
	ts := newTestServer(t, policies)
	issuer := newWallet(t, ts)

	_, err := issuer.CreateDelegation(ctx, issuersdk.CreateDelegationRequest{SmartAccountAddress: smartAccount, PermissionContext: "0x04"})
	require.NoError(t, err)

	req := issuersdk.IssueCredentialRequest{Recipient: recipientAddr, CredentialType: "Membership"}
	_, err = issuer.IssueCredential(ctx, req)
	require.NoError(t, err)

	_, err = issuer.IssueCredential(ctx, req)
	apiErr := requireAPIError(t, err, http.StatusTooManyRequests, issuersdk.ErrorCodeRateLimited)
	require.NotNil(t, apiErr.ResetAt)

	// Other endpoint classes keep their own counters.
	_, err = issuer.ListDelegations(ctx, false)
	require.NoError(t, err)
}

func TestHighRiskRejection(t *testing.T) {
	ctx := context.Background()
	ts := newTestServer(t, ratelimit.DefaultPolicies())
	ts.issuance.Risk = stubRisk{level: risk.LevelHigh}
	issuer := newWallet(t, ts)

	_, err := issuer.CreateDelegation(ctx, issuersdk.CreateDelegationRequest{SmartAccountAddress: smartAccount, PermissionContext: "0x05"})
	require.NoError(t, err)

	_, err = issuer.IssueCredential(ctx, issuersdk.IssueCredentialRequest{Recipient: recipientAddr, CredentialType: "Membership"})
	apiErr := requireAPIError(t, err, http.StatusForbidden, issuersdk.ErrorCodeRiskRejected)
	require.NotNil(t, apiErr.Risk)
	require.Equal(t, "HIGH", apiErr.Risk.Level)
	require.Equal(t, []string{"new recipient"}, apiErr.Risk.RedFlags)
}

func TestAssessRiskEndpoint(t *testing.T) {
	ctx := context.Background()
	ts := newTestServer(t, ratelimit.DefaultPolicies())
	wallet := newWallet(t, ts)

	a, err := wallet.AssessRisk(ctx, issuersdk.AssessRiskRequest{Recipient: recipientAddr, CredentialType: "Membership"})
	require.NoError(t, err)
	require.Equal(t, 60, a.Score)
	require.Equal(t, "MEDIUM", a.Level)
	require.Equal(t, "rules", a.Source)

	_, err = wallet.AssessRisk(ctx, issuersdk.AssessRiskRequest{Recipient: "bad", CredentialType: "Membership"})
	requireAPIError(t, err, http.StatusBadRequest, issuersdk.ErrorCodeInvalidRequest)
}

func TestSystemEndpoints(t *testing.T) {
	ctx := context.Background()
	ts := newTestServer(t, ratelimit.DefaultPolicies())
	public := issuersdk.NewSDKClient(ts.srv.URL, nil)

	live, err := public.GetLiveness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", live.Status)
	require.Equal(t, "test", live.Version)

	ready, err := public.GetReadiness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Checks.Database)
	require.Equal(t, "disabled", ready.Checks.Chain)

	jwks, err := public.GetJWKS(ctx)
	require.NoError(t, err)
	require.Len(t, jwks.Keys, 1)
}
