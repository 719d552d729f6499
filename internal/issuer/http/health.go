package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/issuer/internal/issuer/store"
	"github.com/aussiebroadwan/issuer/pkg/httpx"
	"github.com/aussiebroadwan/issuer/pkg/issuersdk"
	"github.com/aussiebroadwan/issuer/pkg/jwtx"
)

// LivezHandler godoc
//
//	@Summary		Health Check Endpoint
//	@Description	Liveness probe; always 200 while the process is serving.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	issuersdk.HealthResponse	"status, uptime, version"
//	@Router			/livez [get].
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, issuersdk.HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		})
	}
}

// ReadyzHandler godoc
//
//	@Summary		Readiness Check Endpoint
//	@Description	Checks the database, session signer, chain RPC and rate-limit backend.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	issuersdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	issuersdk.HealthResponse	"service not ready"
//	@Router			/readyz [get].
func ReadyzHandler(
	startTime time.Time,
	version string,
	st store.Store,
	keys *jwtx.KeySet,
	chainPing, limiterPing PingFunc,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &issuersdk.HealthChecks{
			Database:    "ok",
			Signer:      "ok",
			Chain:       "disabled",
			RateLimiter: "disabled",
		}
		overallStatus := "ok"
		statusCode := http.StatusOK

		fail := func(field *string, msg string) {
			*field = "error: " + msg
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		if err := st.Ping(r.Context()); err != nil {
			fail(&checks.Database, err.Error())
		}
		if !keys.IsReady() {
			fail(&checks.Signer, "no keys loaded")
		}
		if chainPing != nil {
			checks.Chain = "ok"
			if err := chainPing(r.Context()); err != nil {
				fail(&checks.Chain, err.Error())
			}
		}
		// The limiter fails open, so a broken backend degrades but does
		// not take the instance out of rotation.
		if limiterPing != nil {
			checks.RateLimiter = "ok"
			if err := limiterPing(r.Context()); err != nil {
				checks.RateLimiter = "error: " + err.Error()
				overallStatus = "degraded"
			}
		}

		httpx.WriteJSON(w, statusCode, issuersdk.HealthResponse{
			Status:  overallStatus,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}

// JWKSHandler exposes the keys that verify session tokens.
//
//	@Summary		Get JWKS
//	@Description	Returns the JSON Web Key Set used to verify session tokens.
//	@Tags			well-known
//	@Produce		json
//	@Success		200	{object}	issuersdk.JWKSResponse	"The JSON Web Key Set"
//	@Router			/.well-known/jwks.json [get].
func JWKSHandler(keys *jwtx.KeySet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, issuersdk.JWKSResponse(keys.PublicJWKS()))
	}
}
