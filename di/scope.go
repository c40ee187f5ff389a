package di

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/singleflight"

	"github.com/sghaida/odic/resolver"
)

// ScopeState is the lifecycle state of a Scope.
type ScopeState int32

const (
	ScopeActive ScopeState = iota
	ScopeDisposing
	ScopeDisposed
)

// String returns the lower-case name of the state.
func (s ScopeState) String() string {
	switch s {
	case ScopeActive:
		return "active"
	case ScopeDisposing:
		return "disposing"
	case ScopeDisposed:
		return "disposed"
	default:
		return "state(" + strconv.Itoa(int(s)) + ")"
	}
}

// Scope is a unit of work. It caches Scoped instances, owns the disposable
// Scoped and Transient instances it created, and shares the container's
// singletons. Scopes form a tree rooted at the container's root scope.
//
// A scope may be used from several goroutines, but Scoped instances are meant
// for one unit of work; sharing them across requests is the caller's choice.
type Scope struct {
	id     string
	c      *Container
	parent *Scope
	log    *slog.Logger
	state  atomic.Int32
	sf     singleflight.Group

	mu          sync.Mutex
	instances   map[int]any
	values      map[resolver.ServiceID]any
	disposables []tracked
	children    []*Scope
}

func newScope(c *Container, parent *Scope) *Scope {
	id := uuid.NewString()
	s := &Scope{
		id:        id,
		c:         c,
		parent:    parent,
		log:       c.log.With("scope", id),
		instances: map[int]any{},
		values:    map[resolver.ServiceID]any{},
	}
	c.metrics.scopeOpened()
	return s
}

// ID returns the scope's unique identifier.
func (s *Scope) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Scope) State() ScopeState { return ScopeState(s.state.Load()) }

// Parent returns the parent scope, or nil for the root scope.
func (s *Scope) Parent() *Scope { return s.parent }

func (s *Scope) active() bool { return s.State() == ScopeActive }

// CreateScope creates a child scope with an empty Scoped cache. The child is
// disposed before its parent.
func (s *Scope) CreateScope() (*Scope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active() {
		return nil, ErrScopeDisposed
	}
	child := newScope(s.c, s)
	s.children = append(s.children, child)
	s.log.Debug("scope created", "child", child.id)
	return child, nil
}

// Provide registers a dynamic service value visible to this scope and its
// descendants. Scope values take precedence over the container registry.
func (s *Scope) Provide(typ, key string, val any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active() {
		return ErrScopeDisposed
	}
	s.values[resolver.ServiceID{Type: typ, Key: key}] = val
	return nil
}

// Resolve returns the single service of type typ, whatever its key.
func (s *Scope) Resolve(typ string) (any, error) {
	return s.ResolveKeyed(typ, "")
}

// ResolveKeyed returns the service registered as (typ, key). An empty key
// matches any key, so it must select exactly one service.
func (s *Scope) ResolveKeyed(typ, key string) (any, error) {
	v, ok, err := s.lookup(typ, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.c.metrics.failed("lookup")
		return nil, &DependencyResolutionError{
			Service: resolver.ServiceID{Type: typ, Key: key},
			Reason:  "no service registered",
		}
	}
	return v, nil
}

// ResolveOptional is like Resolve but returns (nil, nil) when no service of
// type typ exists.
func (s *Scope) ResolveOptional(typ string) (any, error) {
	v, _, err := s.lookup(typ, "")
	return v, err
}

// ResolveEnumerable returns every service of type typ in declaration order.
// The slice is a snapshot; later registrations do not change it.
func (s *Scope) ResolveEnumerable(typ string) ([]any, error) {
	if !s.active() {
		s.c.metrics.failed("disposed")
		return nil, ErrScopeDisposed
	}
	ids := s.c.plan.Graph.Lookup(typ, "")
	out := make([]any, 0, len(ids))
	for _, id := range ids {
		v, ok, err := s.resolveNode(nil, id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, v)
		}
	}
	return out, nil
}

// lookup resolves a top-level request by type and key.
func (s *Scope) lookup(typ, key string) (any, bool, error) {
	if !s.active() {
		s.c.metrics.failed("disposed")
		return nil, false, ErrScopeDisposed
	}
	ids := s.c.plan.Graph.Lookup(typ, key)
	switch len(ids) {
	case 1:
		return s.resolveNode(nil, ids[0])
	case 0:
		if !s.c.plan.AllowDynamic {
			return nil, false, nil
		}
		return s.dynamic(resolver.ServiceID{Type: typ, Key: key})
	default:
		s.c.metrics.failed("lookup")
		return nil, false, &DependencyResolutionError{
			Service: resolver.ServiceID{Type: typ, Key: key},
			Reason:  strconv.Itoa(len(ids)) + " services match; use a key or ResolveEnumerable",
		}
	}
}

// resolveNode returns the instance of a node. ok is false only for a dynamic
// service nobody supplied.
func (s *Scope) resolveNode(f *frame, id int) (any, bool, error) {
	if !s.active() {
		s.c.metrics.failed("disposed")
		return nil, false, ErrScopeDisposed
	}
	g := s.c.plan.Graph
	node := g.Node(id)
	if node.Dynamic {
		return s.dynamic(node.Service)
	}
	if path := f.cycle(g, id); path != nil {
		s.c.metrics.failed("circular")
		return nil, false, &CircularResolutionError{Path: path}
	}

	var (
		v   any
		err error
	)
	switch node.Lifetime() {
	case resolver.Singleton:
		v, err = s.c.singleton(f, id)
	case resolver.Scoped:
		v, err = s.scoped(f, id)
	default:
		v, err = s.transient(f, id)
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// dynamic looks up a host-supplied service, nearest scope first, then the
// container registry.
func (s *Scope) dynamic(id resolver.ServiceID) (any, bool, error) {
	for cur := s; cur != nil; cur = cur.parent {
		cur.mu.Lock()
		v, ok := cur.values[id]
		cur.mu.Unlock()
		if ok {
			return v, true, nil
		}
	}
	v, ok, err := s.c.registry.Resolve(id)
	if err != nil {
		s.c.metrics.failed("dynamic")
		return nil, false, fmt.Errorf("di: registry lookup %s: %w", id, err)
	}
	return v, ok, nil
}

func (s *Scope) scoped(f *frame, id int) (any, error) {
	s.mu.Lock()
	v, ok := s.instances[id]
	s.mu.Unlock()
	if ok {
		return v, nil
	}

	release, path := s.c.waits.join(s.c.plan.Graph, f, buildKey{scope: s, node: id})
	if path != nil {
		s.c.metrics.failed("circular")
		return nil, &CircularResolutionError{Path: path}
	}
	defer release()

	v, err, _ := s.sf.Do(strconv.Itoa(id), func() (any, error) {
		s.mu.Lock()
		v, ok := s.instances[id]
		s.mu.Unlock()
		if ok {
			return v, nil
		}

		v, err := s.construct(f, id)
		if err != nil {
			return nil, err
		}
		if err := s.keep(id, v, true); err != nil {
			return nil, err
		}
		return v, nil
	})
	return v, err
}

func (s *Scope) transient(f *frame, id int) (any, error) {
	v, err := s.construct(f, id)
	if err != nil {
		return nil, err
	}
	if err := s.keep(id, v, false); err != nil {
		return nil, err
	}
	return v, nil
}

// keep records an instance of node id for disposal, caching it when cache is
// set. An instance built while the scope started disposing is released
// immediately.
func (s *Scope) keep(id int, v any, cache bool) error {
	t := tracked{service: s.c.plan.Graph.Node(id).Service, instance: v}

	s.mu.Lock()
	if !s.active() {
		s.mu.Unlock()
		if err := t.dispose(context.Background()); err != nil {
			s.log.Warn("late instance disposal failed", "error", err)
		}
		return ErrScopeDisposed
	}
	if cache {
		s.instances[id] = v
	}
	if isDisposable(v) {
		s.disposables = append(s.disposables, t)
	}
	s.mu.Unlock()
	return nil
}

// construct builds one instance of node id, resolving its arguments in this
// scope.
func (s *Scope) construct(parent *frame, id int) (any, error) {
	step, ok := s.c.plan.Step(id)
	if !ok {
		return nil, &DependencyResolutionError{
			Service: s.c.plan.Graph.Node(id).Service,
			Reason:  "no construction step",
		}
	}

	f := parent.push(id, s)
	defer f.done.Store(true)

	args := make(Args, len(step.Bindings))
	for i, b := range step.Bindings {
		a, err := s.argument(f, b)
		if err != nil {
			return nil, err
		}
		args[i] = a
	}

	v, err := call(s.c.providers[step.Descriptor.Factory.Name()], args)
	if err != nil {
		s.c.metrics.failed("construction")
		return nil, &ConstructionError{Service: step.Service, Err: err}
	}
	s.c.metrics.constructed(step.Descriptor.Lifetime.String())
	if step.TrackDisposal && !isDisposable(v) {
		s.log.Warn("service marked disposable implements no disposal interface",
			"service", step.Service.String())
	}
	return v, nil
}

func (s *Scope) argument(f *frame, b resolver.Binding) (any, error) {
	switch b.Requirement.Cardinality {
	case resolver.Lazy:
		if len(b.Targets) == 0 {
			return nil, &DependencyResolutionError{Service: b.Requirement.Service(), Reason: "lazy requirement is unbound"}
		}
		return &Lazy{scope: s, node: b.Targets[0], frame: f}, nil

	case resolver.Enumerable:
		out := make([]any, 0, len(b.Targets))
		for _, t := range b.Targets {
			v, ok, err := s.resolveNode(f, t)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, v)
			}
		}
		return out, nil

	case resolver.Optional:
		if len(b.Targets) == 0 {
			return nil, nil
		}
		v, _, err := s.resolveNode(f, b.Targets[0])
		return v, err

	default:
		if len(b.Targets) == 0 {
			return nil, &DependencyResolutionError{Service: b.Requirement.Service(), Reason: "requirement is unbound"}
		}
		return s.require(f, b.Targets[0])
	}
}

// require resolves a node that must exist.
func (s *Scope) require(f *frame, id int) (any, error) {
	v, ok, err := s.resolveNode(f, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.c.metrics.failed("dynamic")
		return nil, &DependencyResolutionError{
			Service: s.c.plan.Graph.Node(id).Service,
			Reason:  "dynamic service not registered",
		}
	}
	return v, nil
}

// Dispose disposes live child scopes, then every instance this scope owns in
// reverse construction order. Every disposer runs; failures are returned
// together as a *DisposalError. Disposing a disposed scope is a no-op.
func (s *Scope) Dispose(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(ScopeActive), int32(ScopeDisposing)) {
		return nil
	}

	s.mu.Lock()
	children := s.children
	items := s.disposables
	s.children = nil
	s.disposables = nil
	s.instances = map[int]any{}
	s.mu.Unlock()

	var err error
	for i := len(children) - 1; i >= 0; i-- {
		if cerr := children[i].Dispose(ctx); cerr != nil {
			err = multierr.Append(err, flatten(cerr))
		}
	}

	failed := 0
	for i := len(items) - 1; i >= 0; i-- {
		if derr := items[i].dispose(ctx); derr != nil {
			failed++
			err = multierr.Append(err, derr)
		}
	}
	s.c.metrics.disposalFailed(failed)

	s.state.Store(int32(ScopeDisposed))
	s.c.metrics.scopeClosed()
	if s.parent != nil {
		s.parent.forget(s)
	}

	if err != nil {
		s.log.Error("scope disposed with errors", "failures", len(multierr.Errors(err)))
		return &DisposalError{Scope: s.id, Err: err}
	}
	s.log.Debug("scope disposed", "instances", len(items))
	return nil
}

// DisposeAsync runs Dispose in a new goroutine. The channel receives the
// result and is then closed.
func (s *Scope) DisposeAsync(ctx context.Context) <-chan error {
	ch := make(chan error, 1)
	go func() {
		defer close(ch)
		ch <- s.Dispose(ctx)
	}()
	return ch
}

// Close disposes the scope with a background context.
func (s *Scope) Close() error {
	return s.Dispose(context.Background())
}

func (s *Scope) forget(child *Scope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.children {
		if c == child {
			s.children = append(s.children[:i], s.children[i+1:]...)
			return
		}
	}
}

// flatten lifts the failures out of a nested *DisposalError.
func flatten(err error) error {
	if de, ok := err.(*DisposalError); ok {
		return de.Err
	}
	return err
}
