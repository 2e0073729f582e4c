package http

import (
	"net/http"
	"strings"

	"github.com/IgorGrieder/link-registry/internal/config"
	"github.com/IgorGrieder/link-registry/internal/events"
	"github.com/IgorGrieder/link-registry/internal/infrastructure/telemetry"
	"github.com/IgorGrieder/link-registry/internal/processing/links"
	"github.com/IgorGrieder/link-registry/internal/transport/http/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var spanNames = map[string]string{
	"GET /health":     "health",
	"GET /ready":      "ready",
	"GET /metrics":    "metrics",
	"POST /api/links": "links.create",
	"GET /api/links":  "links.list",
	"GET /{key}":      "links.redirect",
}

type RouterOptions struct {
	EnableCORS    bool
	EnableLogging bool
	EnableMetrics bool
}

func DefaultRouterOptions() RouterOptions {
	return RouterOptions{
		EnableCORS:    true,
		EnableLogging: true,
		EnableMetrics: true,
	}
}

// Dependencies groups what the router needs to build its handlers.
type Dependencies struct {
	Registry  *links.Registry
	Publisher events.Publisher
	Store     Pinger
}

func NewRouter(cfg *config.Config, deps Dependencies) http.Handler {
	return NewRouterWithOptions(cfg, deps, DefaultRouterOptions())
}

func NewRouterWithOptions(cfg *config.Config, deps Dependencies, opts RouterOptions) http.Handler {
	mux := http.NewServeMux()

	healthHandler := NewHealthHandler(deps.Store)
	linksHandler := NewLinksHandler(cfg, deps.Registry, deps.Publisher)

	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("GET /ready", healthHandler.Ready)
	mux.Handle("GET /metrics", healthHandler.Metrics())

	authenticated := []func(http.Handler) http.Handler{
		middleware.APIKeyMiddleware(cfg.Security.APIKeys),
	}

	mux.Handle("POST /api/links", middleware.Chain(http.HandlerFunc(linksHandler.Create), authenticated...))
	mux.Handle("GET /api/links", middleware.Chain(http.HandlerFunc(linksHandler.List), authenticated...))
	mux.HandleFunc("GET /{key}", linksHandler.Redirect)

	var innerHandler http.Handler = mux
	if opts.EnableCORS {
		innerHandler = middleware.CORSMiddleware(innerHandler)
	}
	if opts.EnableLogging {
		innerHandler = middleware.LoggingMiddleware(innerHandler)
	}
	if opts.EnableMetrics {
		innerHandler = middleware.MetricsMiddleware(innerHandler)
	}

	otelOptions := []otelhttp.Option{
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			// The span starts before the mux has routed the request.
			pattern := r.Pattern
			if pattern == "" {
				_, pattern = mux.Handler(r)
			}
			if name, ok := spanNames[pattern]; ok {
				return name
			}
			if pattern != "" {
				return pattern
			}
			path := strings.TrimSpace(r.URL.Path)
			if path == "" {
				path = "/"
			}
			return r.Method + " " + path
		}),
	}

	if telemetry.TracerProvider != nil {
		otelOptions = append(otelOptions, otelhttp.WithTracerProvider(telemetry.TracerProvider))
	}

	return otelhttp.NewHandler(innerHandler, cfg.App.Name, otelOptions...)
}
