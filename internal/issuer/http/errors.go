package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/issuer/internal/issuer/risk"
	"github.com/aussiebroadwan/issuer/internal/issuer/service"
	"github.com/aussiebroadwan/issuer/pkg/httpx"
	"github.com/aussiebroadwan/issuer/pkg/issuersdk"
	"github.com/aussiebroadwan/issuer/pkg/slogx"
)

// writeServiceError maps service errors onto the issuersdk error body.
// Anything unrecognised is a 500 with a generic description.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		rejected *service.RiskRejectedError
		upstream *service.UpstreamError
	)

	switch {
	case errors.Is(err, httpx.ErrInvalidBody), errors.Is(err, service.ErrInvalidRequest):
		issuersdk.NewAPIError(http.StatusBadRequest, issuersdk.ErrorCodeInvalidRequest, err.Error()).WriteError(w)

	case errors.Is(err, service.ErrDelegationNotFound), errors.Is(err, service.ErrCredentialNotFound):
		issuersdk.NewAPIError(http.StatusNotFound, issuersdk.ErrorCodeNotFound, err.Error()).WriteError(w)

	case errors.Is(err, service.ErrNotOwner),
		errors.Is(err, service.ErrDelegationRevoked),
		errors.Is(err, service.ErrDelegationExpired),
		errors.Is(err, service.ErrUsageExhausted):
		issuersdk.NewAPIError(http.StatusForbidden, issuersdk.ErrorCodeForbidden, err.Error()).WriteError(w)

	case errors.As(err, &rejected):
		apiErr := issuersdk.NewAPIError(http.StatusForbidden, issuersdk.ErrorCodeRiskRejected, rejected.Error())
		apiErr.Risk = toSDKRisk(&rejected.Assessment)
		apiErr.WriteError(w)

	case errors.Is(err, service.ErrDuplicateDelegation):
		issuersdk.NewAPIError(http.StatusConflict, issuersdk.ErrorCodeConflict, err.Error()).WriteError(w)

	case errors.As(err, &upstream):
		issuersdk.NewAPIError(http.StatusInternalServerError, issuersdk.ErrorCodeUpstream, upstream.Error()).WriteError(w)

	default:
		slogx.FromContext(r.Context()).Error("request failed", "error", err)
		issuersdk.NewAPIError(http.StatusInternalServerError, issuersdk.ErrorCodeServerError, "internal server error").WriteError(w)
	}
}

func toSDKRisk(a *risk.Assessment) *issuersdk.RiskAssessment {
	if a == nil {
		return nil
	}
	flags := a.RedFlags
	if flags == nil {
		flags = []string{}
	}
	return &issuersdk.RiskAssessment{
		Score:          a.Score,
		Level:          string(a.Level),
		Recommendation: a.Recommendation,
		RedFlags:       flags,
		Source:         string(a.Source),
		Explanation:    a.Explanation,
	}
}

func callerOrUnauthenticated(w http.ResponseWriter, r *http.Request) (string, bool) {
	addr, ok := httpx.CallerAddress(r.Context())
	if !ok {
		issuersdk.NewAPIError(http.StatusUnauthorized, issuersdk.ErrorCodeUnauthenticated, "missing caller identity").WriteError(w)
	}
	return addr, ok
}
