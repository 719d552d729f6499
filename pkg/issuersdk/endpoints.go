package issuersdk

import (
	"context"
	"net/http"
	"net/url"
)

// CreateSession signs a challenge and returns a bearer session. Most
// callers want OpenSession instead.
func (c *SDKClient) CreateSession(ctx context.Context) (*SessionResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/auth/session", nil, true)
	if err != nil {
		return nil, err
	}

	var sess SessionResponse
	if err := decodeJSON(resp, &sess, http.StatusOK); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (c *SDKClient) CreateDelegation(ctx context.Context, req CreateDelegationRequest) (*Delegation, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/delegations", req, true)
	if err != nil {
		return nil, err
	}

	var d Delegation
	if err := decodeJSON(resp, &d, http.StatusCreated); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *SDKClient) ListDelegations(ctx context.Context, includeRevoked bool) ([]Delegation, error) {
	path := "/v1/delegations"
	if includeRevoked {
		path += "?include_revoked=true"
	}

	resp, err := c.doRequest(ctx, http.MethodGet, path, nil, true)
	if err != nil {
		return nil, err
	}

	var out ListDelegationsResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out.Delegations, nil
}

// GetActiveDelegation returns the delegation "auto" issuance would use.
func (c *SDKClient) GetActiveDelegation(ctx context.Context) (*Delegation, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/v1/delegations/active", nil, true)
	if err != nil {
		return nil, err
	}

	var d Delegation
	if err := decodeJSON(resp, &d, http.StatusOK); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *SDKClient) RevokeDelegation(ctx context.Context, id string) (*Delegation, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/delegations/"+url.PathEscape(id)+"/revoke", nil, true)
	if err != nil {
		return nil, err
	}

	var d Delegation
	if err := decodeJSON(resp, &d, http.StatusOK); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *SDKClient) IssueCredential(ctx context.Context, req IssueCredentialRequest) (*IssueCredentialResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/credentials/issue", req, true)
	if err != nil {
		return nil, err
	}

	var out IssueCredentialResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetCredential is public; no signature is sent.
func (c *SDKClient) GetCredential(ctx context.Context, id string) (*Credential, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/v1/credentials/"+url.PathEscape(id), nil, false)
	if err != nil {
		return nil, err
	}

	var out Credential
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *SDKClient) AssessRisk(ctx context.Context, req AssessRiskRequest) (*RiskAssessment, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/risk/assess", req, true)
	if err != nil {
		return nil, err
	}

	var out RiskAssessment
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *SDKClient) GetLiveness(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/livez")
}

func (c *SDKClient) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/readyz")
}

func (c *SDKClient) health(ctx context.Context, path string) (*HealthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil, false)
	if err != nil {
		return nil, err
	}

	var health HealthResponse
	if err := decodeJSON(resp, &health, http.StatusOK); err != nil {
		return nil, err
	}
	return &health, nil
}

func (c *SDKClient) GetJWKS(ctx context.Context) (*JWKSResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/.well-known/jwks.json", nil, false)
	if err != nil {
		return nil, err
	}

	var jwks JWKSResponse
	if err := decodeJSON(resp, &jwks, http.StatusOK); err != nil {
		return nil, err
	}
	return &jwks, nil
}
