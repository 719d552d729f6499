package issuer_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/issuer/pkg/issuersdk"
)

// TestRateLimitIssuanceWithRedis uses the production backend with a tight
// issuance policy. Validation failures still count against the window.
func TestRateLimitIssuanceWithRedis(t *testing.T) {
	baseURL := setupIssuer(t, map[string]string{
		"RATELIMIT_ISSUANCE_REQUESTS": "2",
	})
	client := newIssuerClient(t, baseURL)
	ctx := context.Background()

	bad := issuersdk.IssueCredentialRequest{Recipient: "not-an-address", CredentialType: "Membership"}

	for i := range 2 {
		_, err := client.IssueCredential(ctx, bad)
		requireAPIError(t, err, http.StatusBadRequest, issuersdk.ErrorCodeInvalidRequest)
		t.Logf("request %d rejected by validation", i+1)
	}

	_, err := client.IssueCredential(ctx, bad)
	apiErr := requireAPIError(t, err, http.StatusTooManyRequests, issuersdk.ErrorCodeRateLimited)
	require.NotNil(t, apiErr.ResetAt)

	// Other policies keep their own windows.
	_, err = client.ListDelegations(ctx, false)
	require.NoError(t, err)

	// A different caller has a fresh window.
	_, err = newIssuerClient(t, baseURL).IssueCredential(ctx, bad)
	requireAPIError(t, err, http.StatusBadRequest, issuersdk.ErrorCodeInvalidRequest)
}
