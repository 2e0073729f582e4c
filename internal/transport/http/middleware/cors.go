package middleware

import (
	"net/http"

	"github.com/IgorGrieder/link-registry/pkg/httputils"
	"github.com/rs/cors"
)

// CORSMiddleware allows browser clients on any origin to call the API.
func CORSMiddleware(next http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowOriginFunc: func(origin string) bool {
			return true
		},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
			http.MethodHead,
		},
		AllowedHeaders: []string{
			"Content-Type",
			"Accept",
			"Origin",
			"X-Requested-With",
			APIKeyHeader,
			httputils.CorrelationIDHeader,
			// OpenTelemetry headers
			"traceparent",
			"tracestate",
			"baggage",
		},
		ExposedHeaders:   []string{httputils.CorrelationIDHeader, "Location"},
		AllowCredentials: true,
	})

	return c.Handler(next)
}
