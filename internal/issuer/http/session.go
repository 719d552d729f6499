package http

import (
	"net/http"

	"github.com/aussiebroadwan/issuer/internal/issuer/service"
	"github.com/aussiebroadwan/issuer/pkg/httpx"
	"github.com/aussiebroadwan/issuer/pkg/issuersdk"
)

type SessionHandler struct {
	SessionService *service.SessionService
}

// ServeHTTP handles POST /v1/auth/session
//
//	@Summary		Open Session
//	@Description	Exchanges a wallet signature for a short-lived EdDSA bearer token. Sessions cannot be used to open further sessions.
//	@Tags			Auth
//	@Produce		json
//	@Security		WalletSignature
//	@Param			X-Wallet-Address	header		string						true	"Caller wallet address"
//	@Param			X-Auth-Timestamp	header		string						true	"Challenge timestamp, unix milliseconds"
//	@Success		200					{object}	issuersdk.SessionResponse	"Bearer token"
//	@Failure		401					{object}	issuersdk.ErrorResponse		"error, error_description"
//	@Failure		429					{object}	issuersdk.ErrorResponse		"error, error_description, reset_at"
//	@Router			/v1/auth/session [post].
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	address, ok := callerOrUnauthenticated(w, r)
	if !ok {
		return
	}

	sess, err := h.SessionService.Issue(r.Context(), address)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, issuersdk.SessionResponse{
		Token:     sess.Token,
		TokenType: "Bearer",
		ExpiresIn: int(sess.TTL.Seconds()),
		ExpiresAt: sess.ExpiresAt.UTC(),
		Address:   address,
	})
}
