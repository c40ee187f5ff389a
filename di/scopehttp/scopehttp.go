// Package scopehttp gives every HTTP request its own di.Scope.
//
//	r := chi.NewRouter()
//	r.Use(scopehttp.Middleware(container))
//	r.Get("/users", func(w http.ResponseWriter, req *http.Request) {
//		repo, err := di.Resolve[*app.Repo](scopehttp.FromContext(req.Context()), "*app.Repo")
//		...
//	})
package scopehttp

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sghaida/odic/di"
)

// RequestType is the descriptor type under which the current *http.Request is
// provided to each request scope.
const RequestType = "*http.Request"

type ctxKey struct{}

// Option configures Middleware.
type Option func(*config)

type config struct {
	logger *slog.Logger
}

// WithLogger sets the logger used for scope creation and disposal failures.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// Middleware creates a child scope of the container's root scope for each
// request, stores it in the request context and disposes it after the
// handler returns. The request itself is provided to the scope as a dynamic
// service under RequestType.
//
// If the container is already disposed the request fails with 503.
func Middleware(c *di.Container, opts ...Option) func(http.Handler) http.Handler {
	cfg := config{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&cfg)
	}
	log := cfg.logger.With("component", "scopehttp")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scope, err := c.CreateScope()
			if err != nil {
				log.Error("create request scope", "error", err, "path", r.URL.Path)
				http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
				return
			}
			defer func() {
				if err := scope.Dispose(context.WithoutCancel(r.Context())); err != nil {
					log.Error("dispose request scope", "error", err, "scope", scope.ID(), "path", r.URL.Path)
				}
			}()

			r = r.WithContext(NewContext(r.Context(), scope))
			if err := scope.Provide(RequestType, "", r); err != nil {
				log.Error("provide request", "error", err, "scope", scope.ID())
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NewContext returns a copy of ctx carrying scope.
func NewContext(ctx context.Context, scope *di.Scope) context.Context {
	return context.WithValue(ctx, ctxKey{}, scope)
}

// FromContext returns the request scope stored by Middleware, or nil.
func FromContext(ctx context.Context) *di.Scope {
	s, _ := ctx.Value(ctxKey{}).(*di.Scope)
	return s
}
