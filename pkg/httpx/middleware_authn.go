package httpx

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/issuer/pkg/jwtx"
	"github.com/aussiebroadwan/issuer/pkg/sigauth"
	"github.com/aussiebroadwan/issuer/pkg/slogx"
)

// SessionVerifier validates bearer session tokens.
type SessionVerifier interface {
	Verify(token string) (jwtx.Claims, error)
}

// AuthnMiddleware accepts either the signature headers or a bearer session
// token and records the caller's address in the request context. Signature
// headers win when both are present. sessions may be nil to accept
// signatures only.
func AuthnMiddleware(sig *sigauth.Verifier, sessions SessionVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			var address, method string
			switch {
			case sigauth.HasChallenge(r.Header):
				id, err := sig.Verify(sigauth.FromHeader(r.Header))
				if err != nil {
					log.Warn("signature authentication failed", "err", err)
					writeAuthError(w, "Signature", err.Error())
					return
				}
				address, method = id.Address, AuthMethodSignature

			case sessions != nil && strings.HasPrefix(r.Header.Get("Authorization"), "Bearer "):
				raw := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer"))
				claims, err := sessions.Verify(raw)
				if err != nil {
					log.Warn("session verify failed", "err", err)
					writeAuthError(w, "Bearer", "session token verification failed")
					return
				}
				address, method = claims.Address, AuthMethodSession

			default:
				writeAuthError(w, "Signature", "missing wallet signature headers")
				return
			}

			ctx = ContextWithCaller(ctx, address, method)
			ctx = slogx.With(ctx, "caller", address)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeAuthError(w http.ResponseWriter, scheme, desc string) {
	w.Header().Set("WWW-Authenticate", scheme+` error="invalid_token", error_description="`+desc+`"`)
	WriteError(w, http.StatusUnauthorized, "unauthenticated", desc)
}
