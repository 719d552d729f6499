package http

import (
	"net/http"

	"github.com/aussiebroadwan/issuer/internal/issuer/service"
	"github.com/aussiebroadwan/issuer/pkg/httpx"
	"github.com/aussiebroadwan/issuer/pkg/issuersdk"
)

type CredentialsHandler struct {
	IssuanceService *service.IssuanceService
}

// HandleIssue handles POST /v1/credentials/issue
//
//	@Summary		Issue Credential
//	@Description	Mints a credential to the recipient through one of the caller's delegations.
//	@Description	One call is consumed once the delegation is reserved, even if a later step fails.
//	@Description	A HIGH fraud risk blocks the issuance and returns the assessment.
//	@Tags			Credentials
//	@Accept			json
//	@Produce		json
//	@Security		WalletSignature
//	@Security		BearerAuth
//	@Param			request	body		issuersdk.IssueCredentialRequest	true	"Issue request"
//	@Success		200		{object}	issuersdk.IssueCredentialResponse	"Minted credential"
//	@Failure		400		{object}	issuersdk.ErrorResponse				"error, error_description"
//	@Failure		401		{object}	issuersdk.ErrorResponse				"error, error_description"
//	@Failure		403		{object}	issuersdk.ErrorResponse				"ownership, revoked, expired, usage or risk rejection"
//	@Failure		404		{object}	issuersdk.ErrorResponse				"no active delegation found"
//	@Failure		429		{object}	issuersdk.ErrorResponse				"error, error_description, reset_at"
//	@Failure		500		{object}	issuersdk.ErrorResponse				"metadata or chain failure"
//	@Router			/v1/credentials/issue [post].
func (h *CredentialsHandler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	issuer, ok := callerOrUnauthenticated(w, r)
	if !ok {
		return
	}

	var req issuersdk.IssueCredentialRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	res, err := h.IssuanceService.Issue(r.Context(), issuer, service.IssueCommand{
		DelegationID:   req.DelegationID,
		Recipient:      req.Recipient,
		CredentialType: req.CredentialType,
		Name:           req.Name,
		Description:    req.Description,
		Image:          req.Image,
		Claims:         req.Claims,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, issuersdk.IssueCredentialResponse{
		Success:      true,
		CredentialID: res.CredentialID,
		DelegationID: res.DelegationID,
		TokenID:      res.TokenID,
		TxHash:       res.TxHash,
		MetadataURI:  res.MetadataURI,
		Risk:         toSDKRisk(res.Risk),
	})
}

// HandleGet handles GET /v1/credentials/{id}
//
//	@Summary		Verify Credential
//	@Description	Public read of an issued credential record.
//	@Tags			Credentials
//	@Produce		json
//	@Param			id	path		string					true	"Credential ID"
//	@Success		200	{object}	issuersdk.Credential	"Credential record"
//	@Failure		404	{object}	issuersdk.ErrorResponse	"credential not found"
//	@Router			/v1/credentials/{id} [get].
func (h *CredentialsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := h.IssuanceService.GetCredential(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, issuersdk.Credential{
		ID:             rec.ID,
		DelegationID:   rec.DelegationID,
		IssuerAddress:  rec.IssuerAddress,
		Recipient:      rec.RecipientAddress,
		CredentialType: rec.CredentialType,
		TokenID:        rec.TokenID,
		TxHash:         rec.TxHash,
		MetadataURI:    rec.MetadataURI,
		RiskLevel:      rec.RiskLevel,
		RiskScore:      rec.RiskScore,
		IssuedAt:       rec.CreatedAt,
	})
}
