// Package di is the runtime side of an odic container.
//
// A Container interprets a resolver.Plan: it maps each planned factory to a
// Provider, constructs services on demand and releases them when their owner
// ends. There is no reflection-based injection; providers receive their
// arguments already resolved, in the order the descriptor declares them.
//
// Lifetimes
//
//   - Singleton: one instance per container, built exactly once even under
//     concurrent first access, disposed by Container.Dispose.
//   - Scoped: one instance per Scope, disposed with that scope.
//   - Transient: a new instance per resolution; disposable instances are
//     owned by the scope that created them.
//
// Scopes form a tree rooted at Container.Root. Disposing a scope disposes its
// live children first, then its own instances in reverse construction order,
// trying every disposer and returning all failures as a *DisposalError.
// Instances are released through AsyncDisposable, Disposable or io.Closer,
// whichever they implement first, and only once.
//
// Dynamic services are supplied by the host through a Registry (see
// MapRegistry) or per scope with Scope.Provide.
//
// Typical use, with a generated or hand-written provider table:
//
//	c, err := di.Build(ctx, descriptors, di.Providers{
//		"NewLogger": func(di.Args) (any, error) { return app.NewLogger(), nil },
//		"NewRepo": func(a di.Args) (any, error) {
//			return app.NewRepo(di.Arg[*app.Logger](a, 0))
//		},
//	})
//	scope, _ := c.CreateScope()
//	defer scope.Close()
//	repo, err := di.Resolve[*app.Repo](scope, "*app.Repo")
//
// Import
//
//	"github.com/sghaida/odic/di"
package di
