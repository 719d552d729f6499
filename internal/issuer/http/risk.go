package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/issuer/internal/issuer/service"
	"github.com/aussiebroadwan/issuer/pkg/httpx"
	"github.com/aussiebroadwan/issuer/pkg/issuersdk"
	"github.com/aussiebroadwan/issuer/pkg/sigauth"
	"github.com/ethereum/go-ethereum/common"
)

// RiskHandler runs the fraud gate on its own, without issuing.
type RiskHandler struct {
	Gate service.RiskAssessor
}

// ServeHTTP handles POST /v1/risk/assess
//
//	@Summary		Assess Fraud Risk
//	@Description	Scores a prospective issuance. The issuer defaults to the caller.
//	@Tags			Risk
//	@Accept			json
//	@Produce		json
//	@Security		WalletSignature
//	@Security		BearerAuth
//	@Param			request	body		issuersdk.AssessRiskRequest	true	"Assessment request"
//	@Success		200		{object}	issuersdk.RiskAssessment	"Assessment"
//	@Failure		400		{object}	issuersdk.ErrorResponse		"error, error_description"
//	@Failure		429		{object}	issuersdk.ErrorResponse		"error, error_description, reset_at"
//	@Router			/v1/risk/assess [post].
func (h *RiskHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrUnauthenticated(w, r)
	if !ok {
		return
	}

	var req issuersdk.AssessRiskRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	issuer := caller
	if req.Issuer != "" {
		issuer = req.Issuer
	}
	if !common.IsHexAddress(req.Recipient) || !common.IsHexAddress(issuer) {
		issuersdk.NewAPIError(http.StatusBadRequest, issuersdk.ErrorCodeInvalidRequest, "recipient and issuer must be 0x addresses").WriteError(w)
		return
	}
	if strings.TrimSpace(req.CredentialType) == "" {
		issuersdk.NewAPIError(http.StatusBadRequest, issuersdk.ErrorCodeInvalidRequest, "credential_type is required").WriteError(w)
		return
	}

	a, err := h.Gate.Assess(r.Context(),
		sigauth.NormalizeAddress(req.Recipient),
		sigauth.NormalizeAddress(issuer),
		strings.TrimSpace(req.CredentialType),
	)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toSDKRisk(&a))
}
