package common

import (
	"context"
	"net/http"
	"strings"
)

// OperatorHeader carries the identity of the operator driving a quote session.
const OperatorHeader = "X-Operator-ID"

type actorKey struct{}

// WithActor stores the operator id on the context.
func WithActor(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorKey{}, actorID)
}

// Actor extracts the operator id from the context.
func Actor(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(actorKey{}).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// ActorMiddleware copies the operator header into the request context. The
// surrounding gateway authenticates operators; this service only needs the id
// for audit entries.
func ActorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := strings.TrimSpace(r.Header.Get(OperatorHeader))
		if actor != "" {
			r = r.WithContext(WithActor(r.Context(), actor))
		}
		next.ServeHTTP(w, r)
	})
}
