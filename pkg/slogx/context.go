package slogx

import (
	"context"
	"log/slog"
	"sync"
)

type (
	ctxKey     struct{}
	requestKey struct{}
)

// requestAttrs collects what a request learns about itself (caller,
// delegation) so the access line written after the handler returns has it.
type requestAttrs struct {
	mu    sync.Mutex
	attrs []any
}

func (ra *requestAttrs) add(args []any) {
	ra.mu.Lock()
	defer ra.mu.Unlock()
	ra.attrs = append(ra.attrs, args...)
}

func (ra *requestAttrs) snapshot() []any {
	ra.mu.Lock()
	defer ra.mu.Unlock()
	return append([]any(nil), ra.attrs...)
}

func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

func FromContext(ctx context.Context) *slog.Logger {
	l, ok := ctx.Value(ctxKey{}).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return l
}

// With returns ctx carrying the context logger extended with args. Inside
// HTTPMiddleware the args are also copied onto the request's access line.
func With(ctx context.Context, args ...any) context.Context {
	if ra, ok := ctx.Value(requestKey{}).(*requestAttrs); ok {
		ra.add(args)
	}
	return WithContext(ctx, FromContext(ctx).With(args...))
}
