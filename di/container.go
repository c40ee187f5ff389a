package di

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"
	"golang.org/x/sync/singleflight"

	"github.com/sghaida/odic/resolver"
)

// Container interprets a resolver.Plan at runtime. It owns the singletons and
// the root scope; every other scope descends from the root.
//
// Generated containers embed their descriptor table and provider table and
// call Build; hand-written wiring may call New with a plan from
// resolver.Analyze.
type Container struct {
	plan      *resolver.Plan
	providers Providers
	registry  Registry
	log       *slog.Logger
	metrics   *metrics

	slots []atomic.Pointer[box]
	sf    singleflight.Group
	waits waitGraph

	mu         sync.Mutex
	singletons []tracked

	root     *Scope
	disposed atomic.Bool
}

type box struct{ v any }

// New creates a container for plan. Every planned factory must have a
// provider, otherwise a *MissingProviderError is returned.
func New(plan *resolver.Plan, providers Providers, opts ...Option) (*Container, error) {
	if plan == nil || plan.Graph == nil {
		return nil, ErrNilPlan
	}
	for _, step := range plan.Steps {
		name := step.Descriptor.Factory.Name()
		if p, ok := providers[name]; !ok || p == nil {
			return nil, &MissingProviderError{Service: step.Service, Factory: name}
		}
	}

	o := newOptions(opts)
	m, err := newMetrics(o.metrics)
	if err != nil {
		return nil, err
	}
	c := &Container{
		plan:      plan,
		providers: providers,
		registry:  o.registry,
		log:       o.logger.With("component", "di"),
		metrics:   m,
		slots:     make([]atomic.Pointer[box], len(plan.Graph.Nodes)),
	}
	c.root = newScope(c, nil)
	c.log.Info("container ready",
		"services", len(plan.Steps),
		"dynamic", len(plan.Dynamic),
		"root_scope", c.root.id)
	return c, nil
}

// Build analyses descriptors and creates a container for the resulting plan.
// Analysis failures are returned as *resolver.AnalysisError.
func Build(ctx context.Context, descriptors []resolver.Descriptor, providers Providers, opts ...Option) (*Container, error) {
	o := newOptions(opts)
	plan, err := resolver.Analyze(ctx, descriptors, o.resolverOptions()...)
	if err != nil {
		return nil, fmt.Errorf("di: build container: %w", err)
	}
	return New(plan, providers, opts...)
}

// Plan returns the plan the container interprets.
func (c *Container) Plan() *resolver.Plan { return c.plan }

// Root returns the root scope. Scoped services resolved from it live as long
// as the container.
func (c *Container) Root() *Scope { return c.root }

// CreateScope creates a child of the root scope.
func (c *Container) CreateScope() (*Scope, error) { return c.root.CreateScope() }

// Resolve resolves typ from the root scope.
func (c *Container) Resolve(typ string) (any, error) { return c.root.Resolve(typ) }

// ResolveKeyed resolves (typ, key) from the root scope.
func (c *Container) ResolveKeyed(typ, key string) (any, error) { return c.root.ResolveKeyed(typ, key) }

// ResolveOptional resolves typ from the root scope, or returns nil when absent.
func (c *Container) ResolveOptional(typ string) (any, error) { return c.root.ResolveOptional(typ) }

// ResolveEnumerable resolves every service of type typ from the root scope.
func (c *Container) ResolveEnumerable(typ string) ([]any, error) {
	return c.root.ResolveEnumerable(typ)
}

// singleton returns the container-wide instance of node id, constructing it
// exactly once. Reads after construction take no lock.
func (c *Container) singleton(f *frame, id int) (any, error) {
	if b := c.slots[id].Load(); b != nil {
		return b.v, nil
	}

	release, path := c.waits.join(c.plan.Graph, f, buildKey{scope: c.root, node: id})
	if path != nil {
		c.metrics.failed("circular")
		return nil, &CircularResolutionError{Path: path}
	}
	defer release()

	v, err, _ := c.sf.Do(strconv.Itoa(id), func() (any, error) {
		if b := c.slots[id].Load(); b != nil {
			return b.v, nil
		}
		v, err := c.root.construct(f, id)
		if err != nil {
			return nil, err
		}
		c.slots[id].Store(&box{v: v})
		if isDisposable(v) {
			c.mu.Lock()
			c.singletons = append(c.singletons, tracked{service: c.plan.Graph.Node(id).Service, instance: v})
			c.mu.Unlock()
		}
		return v, nil
	})
	return v, err
}

// Dispose disposes the root scope tree, then the singletons in reverse
// construction order. Failures are aggregated into a *DisposalError.
// Disposing twice is a no-op.
func (c *Container) Dispose(ctx context.Context) error {
	if !c.disposed.CompareAndSwap(false, true) {
		return nil
	}

	var err error
	if rerr := c.root.Dispose(ctx); rerr != nil {
		err = multierr.Append(err, flatten(rerr))
	}

	c.mu.Lock()
	items := c.singletons
	c.singletons = nil
	c.mu.Unlock()

	failed := 0
	for i := len(items) - 1; i >= 0; i-- {
		if derr := items[i].dispose(ctx); derr != nil {
			failed++
			err = multierr.Append(err, derr)
		}
	}
	c.metrics.disposalFailed(failed)

	if err != nil {
		c.log.Error("container disposed with errors", "failures", len(multierr.Errors(err)))
		return &DisposalError{Scope: "container", Err: err}
	}
	c.log.Info("container disposed", "singletons", len(items))
	return nil
}

// DisposeAsync runs Dispose in a new goroutine. The channel receives the
// result and is then closed.
func (c *Container) DisposeAsync(ctx context.Context) <-chan error {
	ch := make(chan error, 1)
	go func() {
		defer close(ch)
		ch <- c.Dispose(ctx)
	}()
	return ch
}

// Close disposes the container with a background context.
func (c *Container) Close() error { return c.Dispose(context.Background()) }
