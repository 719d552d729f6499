package issuersdk

import (
	"time"

	"github.com/aussiebroadwan/issuer/pkg/jwtx"
)

// ============================================================================
// Common Types
// ============================================================================

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error            string          `json:"error" example:"forbidden"`
	ErrorDescription string          `json:"error_description" example:"maximum usage limit reached"`
	Risk             *RiskAssessment `json:"risk,omitempty"`
	ResetAt          *time.Time      `json:"reset_at,omitempty"`
}

// ============================================================================
// Session Types
// ============================================================================

// SessionResponse is returned by POST /v1/auth/session.
type SessionResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type" example:"Bearer"`
	ExpiresIn int       `json:"expires_in" example:"900"`
	ExpiresAt time.Time `json:"expires_at"`
	Address   string    `json:"address" example:"0x8ba1f109551bd432803012645ac136ddd64dba72"`
}

// ============================================================================
// Delegation Types
// ============================================================================

// CreateDelegationRequest registers a signed delegation chain. Zero
// MaxCalls and nil ExpiresAt take the server defaults (100 calls, 30 days).
type CreateDelegationRequest struct {
	SmartAccountAddress string     `json:"smart_account_address" example:"0x1111111111111111111111111111111111111111"`
	BackendAddress      string     `json:"backend_address,omitempty"`
	PermissionContext   string     `json:"permission_context" example:"0xdeadbeef"`
	MaxCalls            int        `json:"max_calls,omitempty" example:"100"`
	ExpiresAt           *time.Time `json:"expires_at,omitempty"`
}

// Delegation is the public projection of a stored delegation. The sealed
// permission context is never returned.
type Delegation struct {
	ID                  string     `json:"id" example:"dlg_01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZV"`
	IssuerAddress       string     `json:"issuer_address"`
	SmartAccountAddress string     `json:"smart_account_address"`
	BackendAddress      string     `json:"backend_address"`
	PayloadDigest       string     `json:"payload_digest"`
	MaxCalls            int        `json:"max_calls"`
	CallsUsed           int        `json:"calls_used"`
	RemainingCalls      int        `json:"remaining_calls"`
	Status              string     `json:"status" example:"active"`
	ExpiresAt           time.Time  `json:"expires_at"`
	IsRevoked           bool       `json:"is_revoked"`
	RevokedAt           *time.Time `json:"revoked_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
}

type ListDelegationsResponse struct {
	Delegations []Delegation `json:"delegations"`
}

// ============================================================================
// Credential Types
// ============================================================================

// IssueCredentialRequest asks the service to mint a credential. An empty
// DelegationID or "auto" selects the caller's newest usable delegation.
type IssueCredentialRequest struct {
	DelegationID   string         `json:"delegation_id,omitempty" example:"auto"`
	Recipient      string         `json:"recipient" example:"0x3333333333333333333333333333333333333333"`
	CredentialType string         `json:"credential_type" example:"Membership"`
	Name           string         `json:"name,omitempty"`
	Description    string         `json:"description,omitempty"`
	Image          string         `json:"image,omitempty"`
	Claims         map[string]any `json:"claims,omitempty"`
}

// RiskAssessment mirrors the fraud gate's verdict.
type RiskAssessment struct {
	Score          int      `json:"risk_score" example:"60"`
	Level          string   `json:"risk_level" example:"MEDIUM"`
	Recommendation string   `json:"recommendation"`
	RedFlags       []string `json:"red_flags"`
	Source         string   `json:"source" example:"rules"`
	Explanation    string   `json:"explanation,omitempty"`
}

type IssueCredentialResponse struct {
	Success      bool            `json:"success"`
	CredentialID string          `json:"credential_id"`
	DelegationID string          `json:"delegation_id"`
	TokenID      string          `json:"token_id" example:"42"`
	TxHash       string          `json:"tx_hash"`
	MetadataURI  string          `json:"metadata_uri"`
	Risk         *RiskAssessment `json:"risk,omitempty"`
}

// Credential is the public verification record for an issued credential.
type Credential struct {
	ID             string    `json:"id" example:"cred_01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZV"`
	DelegationID   string    `json:"delegation_id"`
	IssuerAddress  string    `json:"issuer_address"`
	Recipient      string    `json:"recipient"`
	CredentialType string    `json:"credential_type"`
	TokenID        string    `json:"token_id"`
	TxHash         string    `json:"tx_hash"`
	MetadataURI    string    `json:"metadata_uri"`
	RiskLevel      string    `json:"risk_level,omitempty"`
	RiskScore      int       `json:"risk_score,omitempty"`
	IssuedAt       time.Time `json:"issued_at"`
}

// AssessRiskRequest runs the fraud gate without issuing. Issuer defaults
// to the caller.
type AssessRiskRequest struct {
	Recipient      string `json:"recipient"`
	CredentialType string `json:"credential_type"`
	Issuer         string `json:"issuer,omitempty"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse is returned by /livez and /readyz; only readyz fills Checks.
type HealthResponse struct {
	Status  string        `json:"status" example:"ok"`
	Uptime  string        `json:"uptime,omitempty"`
	Version string        `json:"version,omitempty"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports each dependency as "ok", "disabled" or "error: …".
type HealthChecks struct {
	Database    string `json:"database"`
	Signer      string `json:"signer"`
	Chain       string `json:"chain"`
	RateLimiter string `json:"rate_limiter"`
}

// JWKSResponse holds the public keys that verify session tokens.
type JWKSResponse jwtx.JWKS
