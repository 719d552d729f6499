package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/aussiebroadwan/issuer/internal/issuer/domain"
	"github.com/aussiebroadwan/issuer/internal/issuer/service"
	"github.com/aussiebroadwan/issuer/pkg/httpx"
	"github.com/aussiebroadwan/issuer/pkg/issuersdk"
)

// DelegationsHandler handles the delegation lifecycle endpoints. Every
// route acts on the authenticated caller's own delegations.
type DelegationsHandler struct {
	DelegationService *service.DelegationService
}

// HandleCreate handles POST /v1/delegations
//
//	@Summary		Register Delegation
//	@Description	Stores a signed delegation chain letting the backend signer mint on the caller's behalf. The payload is sealed at rest and never returned.
//	@Tags			Delegations
//	@Accept			json
//	@Produce		json
//	@Security		WalletSignature
//	@Security		BearerAuth
//	@Param			request	body		issuersdk.CreateDelegationRequest	true	"Delegation"
//	@Success		201		{object}	issuersdk.Delegation				"Stored delegation"
//	@Failure		400		{object}	issuersdk.ErrorResponse				"error, error_description"
//	@Failure		401		{object}	issuersdk.ErrorResponse				"error, error_description"
//	@Failure		409		{object}	issuersdk.ErrorResponse				"payload already registered"
//	@Failure		429		{object}	issuersdk.ErrorResponse				"error, error_description, reset_at"
//	@Router			/v1/delegations [post].
func (h *DelegationsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	issuer, ok := callerOrUnauthenticated(w, r)
	if !ok {
		return
	}

	var req issuersdk.CreateDelegationRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	cmd := service.CreateDelegationCommand{
		SmartAccountAddress: req.SmartAccountAddress,
		BackendAddress:      req.BackendAddress,
		PermissionContext:   req.PermissionContext,
		MaxCalls:            req.MaxCalls,
	}
	if req.ExpiresAt != nil {
		cmd.ExpiresAt = *req.ExpiresAt
	}

	d, err := h.DelegationService.CreateDelegation(r.Context(), issuer, cmd)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, toSDKDelegation(d, time.Now()))
}

// HandleList handles GET /v1/delegations
//
//	@Summary		List Delegations
//	@Description	Returns the caller's delegations, newest first.
//	@Tags			Delegations
//	@Produce		json
//	@Security		WalletSignature
//	@Security		BearerAuth
//	@Param			include_revoked	query		bool								false	"Include revoked delegations"
//	@Success		200				{object}	issuersdk.ListDelegationsResponse	"Delegations"
//	@Failure		401				{object}	issuersdk.ErrorResponse				"error, error_description"
//	@Router			/v1/delegations [get].
func (h *DelegationsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	issuer, ok := callerOrUnauthenticated(w, r)
	if !ok {
		return
	}

	includeRevoked, _ := strconv.ParseBool(r.URL.Query().Get("include_revoked"))

	list, err := h.DelegationService.ListDelegations(r.Context(), issuer, includeRevoked)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	now := time.Now()
	out := issuersdk.ListDelegationsResponse{Delegations: make([]issuersdk.Delegation, 0, len(list))}
	for _, d := range list {
		out.Delegations = append(out.Delegations, toSDKDelegation(d, now))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleActive handles GET /v1/delegations/active
//
//	@Summary		Active Delegation
//	@Description	Returns the delegation an "auto" issuance would use.
//	@Tags			Delegations
//	@Produce		json
//	@Security		WalletSignature
//	@Security		BearerAuth
//	@Success		200	{object}	issuersdk.Delegation	"Active delegation"
//	@Failure		404	{object}	issuersdk.ErrorResponse	"no active delegation found"
//	@Router			/v1/delegations/active [get].
func (h *DelegationsHandler) HandleActive(w http.ResponseWriter, r *http.Request) {
	issuer, ok := callerOrUnauthenticated(w, r)
	if !ok {
		return
	}

	d, err := h.DelegationService.GetActiveDelegation(r.Context(), issuer)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toSDKDelegation(d, time.Now()))
}

// HandleRevoke handles POST /v1/delegations/{id}/revoke
//
//	@Summary		Revoke Delegation
//	@Description	Permanently revokes one of the caller's delegations. Revoking twice succeeds.
//	@Tags			Delegations
//	@Produce		json
//	@Security		WalletSignature
//	@Security		BearerAuth
//	@Param			id	path		string					true	"Delegation ID"
//	@Success		200	{object}	issuersdk.Delegation	"Revoked delegation"
//	@Failure		403	{object}	issuersdk.ErrorResponse	"delegation does not belong to the caller"
//	@Failure		404	{object}	issuersdk.ErrorResponse	"error, error_description"
//	@Router			/v1/delegations/{id}/revoke [post].
func (h *DelegationsHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	issuer, ok := callerOrUnauthenticated(w, r)
	if !ok {
		return
	}

	d, err := h.DelegationService.RevokeDelegation(r.Context(), issuer, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toSDKDelegation(d, time.Now()))
}

func toSDKDelegation(d domain.Delegation, now time.Time) issuersdk.Delegation {
	return issuersdk.Delegation{
		ID:                  d.ID,
		IssuerAddress:       d.IssuerAddress,
		SmartAccountAddress: d.SmartAccountAddress,
		BackendAddress:      d.BackendAddress,
		PayloadDigest:       d.PayloadDigest,
		MaxCalls:            d.MaxCalls,
		CallsUsed:           d.CallsUsed,
		RemainingCalls:      d.RemainingCalls(),
		Status:              string(d.Status(now)),
		ExpiresAt:           d.ExpiresAt,
		IsRevoked:           d.IsRevoked,
		RevokedAt:           d.RevokedAt,
		CreatedAt:           d.CreatedAt,
	}
}
