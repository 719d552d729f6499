package httpx

import "context"

type ctxKey string

const (
	CtxKeyAddress    ctxKey = "address"
	CtxKeyAuthMethod ctxKey = "auth_method"
)

// Auth methods recorded by AuthnMiddleware.
const (
	AuthMethodSignature = "signature"
	AuthMethodSession   = "session"
)

// ContextWithCaller records the authenticated wallet address.
func ContextWithCaller(ctx context.Context, address, method string) context.Context {
	ctx = context.WithValue(ctx, CtxKeyAddress, address)
	return context.WithValue(ctx, CtxKeyAuthMethod, method)
}

// CallerAddress returns the authenticated wallet address, lower-case.
func CallerAddress(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(CtxKeyAddress).(string)
	return v, ok && v != ""
}

// AuthMethod returns how the caller authenticated.
func AuthMethod(ctx context.Context) string {
	v, _ := ctx.Value(CtxKeyAuthMethod).(string)
	return v
}
