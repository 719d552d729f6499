package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/issuer/internal/issuer/service"
	"github.com/aussiebroadwan/issuer/internal/issuer/store"
	"github.com/aussiebroadwan/issuer/pkg/httpx"
	"github.com/aussiebroadwan/issuer/pkg/jwtx"
	"github.com/aussiebroadwan/issuer/pkg/ratelimit"
	"github.com/aussiebroadwan/issuer/pkg/sigauth"
	"github.com/aussiebroadwan/issuer/pkg/slogx"

	_ "github.com/aussiebroadwan/issuer/api/issuer" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// PingFunc checks one dependency for /readyz. nil means disabled.
type PingFunc func(ctx context.Context) error

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeyManager
	signatures   *sigauth.Verifier
	limiter      *ratelimit.Limiter
	policies     ratelimit.Policies
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store             store.Store
	SessionService    *service.SessionService
	DelegationService *service.DelegationService
	IssuanceService   *service.IssuanceService
	RiskGate          service.RiskAssessor

	// Optional readiness probes
	ChainPing   PingFunc
	LimiterPing PingFunc
}

func NewRouter(
	keys *jwtx.KeyManager,
	signatures *sigauth.Verifier,
	limiter *ratelimit.Limiter,
	policies ratelimit.Policies,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		signatures:   signatures,
		limiter:      limiter,
		policies:     policies,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerSession()
	r.registerDelegations()
	r.registerCredentials()
	r.registerRisk()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Credential Issuer API
//	@version		0.1.0
//	@description	Mints verifiable credentials on an issuer's behalf through a signed, call-capped delegation.
//	@description
//	@description				Authenticate every request with the X-Wallet-Address, X-Wallet-Signature and X-Auth-Timestamp headers (EIP-191 personal_sign over the canonical challenge), or with a session token from /v1/auth/session.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/issuer
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	WalletSignature
//	@in							header
//	@name						X-Wallet-Signature
//	@description				EIP-191 signature; send with X-Wallet-Address and X-Auth-Timestamp.
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Session token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// authed verifies the caller then counts the request against p by address.
func (r *Router) authed(h http.Handler, p ratelimit.Policy) http.Handler {
	return httpx.Chain(h,
		httpx.AuthnMiddleware(r.signatures, r.keys.Verifier),
		httpx.RateLimitByCaller(r.limiter, p),
	)
}

func (r *Router) registerSession() {
	h := &SessionHandler{SessionService: r.SessionService}

	// Signature only: a session cannot mint another session.
	r.Mux.Handle("POST /v1/auth/session",
		httpx.Chain(h,
			httpx.AuthnMiddleware(r.signatures, nil),
			httpx.RateLimitByCaller(r.limiter, r.policies.Default),
		),
	)
}

func (r *Router) registerDelegations() {
	h := &DelegationsHandler{DelegationService: r.DelegationService}

	r.Mux.Handle("POST /v1/delegations", r.authed(http.HandlerFunc(h.HandleCreate), r.policies.Default))
	r.Mux.Handle("GET /v1/delegations", r.authed(http.HandlerFunc(h.HandleList), r.policies.Default))
	r.Mux.Handle("GET /v1/delegations/active", r.authed(http.HandlerFunc(h.HandleActive), r.policies.Default))
	r.Mux.Handle("POST /v1/delegations/{id}/revoke", r.authed(http.HandlerFunc(h.HandleRevoke), r.policies.Default))
}

func (r *Router) registerCredentials() {
	h := &CredentialsHandler{IssuanceService: r.IssuanceService}

	r.Mux.Handle("POST /v1/credentials/issue", r.authed(http.HandlerFunc(h.HandleIssue), r.policies.Issuance))

	// Public verification read, limited by IP
	r.Mux.Handle("GET /v1/credentials/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleGet),
			httpx.RateLimitByIP(r.limiter, r.policies.Verify),
		),
	)
}

func (r *Router) registerRisk() {
	h := &RiskHandler{Gate: r.RiskGate}
	r.Mux.Handle("POST /v1/risk/assess", r.authed(h, r.policies.AI))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys.KeySet, r.ChainPing, r.LimiterPing))
	r.Mux.Handle("GET /.well-known/jwks.json",
		httpx.Chain(JWKSHandler(r.keys.KeySet),
			httpx.RateLimitByIP(r.limiter, r.policies.Verify),
		),
	)
}
