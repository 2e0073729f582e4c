package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/IgorGrieder/link-registry/internal/constants"
	"github.com/IgorGrieder/link-registry/pkg/httputils"
)

const APIKeyHeader = "X-API-Key"

type apiKeyCtxKey struct{}

// APIKeyFromContext returns the key that authenticated the request, if any.
func APIKeyFromContext(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(apiKeyCtxKey{}).(string)
	return key, ok && key != ""
}

// APIKeyMiddleware rejects requests without one of allowedKeys and records
// the accepted key on the request context. With no keys configured every
// request passes and nothing is recorded.
func APIKeyMiddleware(allowedKeys []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(allowedKeys))
	for _, k := range allowedKeys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		allowed[k] = struct{}{}
	}

	if len(allowed) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := strings.TrimSpace(r.Header.Get(APIKeyHeader))
			if _, ok := allowed[apiKey]; apiKey == "" || !ok {
				httputils.WriteAPIError(w, r, constants.ErrUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), apiKeyCtxKey{}, apiKey)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Chain applies middlewares so the first one listed runs outermost.
func Chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
