package middleware

import (
	"context"
	"net/http"

	"github.com/solamate/fundpool/internal/keys"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// CallerKey is the context key for the verified caller identity
	CallerKey ContextKey = "caller"

	// CallerHeader carries the caller's wallet address. The host runtime in
	// front of this service has already verified the signature for the
	// request; here only the identity itself is consumed.
	CallerHeader = "X-Wallet-Address"
)

// CallerIdentity extracts the caller identity from the request header and
// stores it in the request context. Requests without a parseable identity
// pass through unauthenticated; handlers that mutate records reject them.
func CallerIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(CallerHeader)
		if raw != "" {
			if caller, err := keys.ParseIdentity(raw); err == nil {
				ctx := context.WithValue(r.Context(), CallerKey, caller)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// GetCaller extracts the caller identity from the request context
func GetCaller(ctx context.Context) (keys.Identity, bool) {
	caller, ok := ctx.Value(CallerKey).(keys.Identity)
	return caller, ok
}
