package di

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sghaida/odic/resolver"
)

// Registry supplies dynamic services: identities the plan expects the host to
// provide at runtime instead of constructing them.
//
// It is expected to be:
// - read-only from the container's point of view
// - safe for concurrent use
//
// Expected usage:
//
//	val, ok, err := reg.Resolve(resolver.ServiceID{Type: "*app.Clock"})
type Registry interface {
	Resolve(id resolver.ServiceID) (val any, ok bool, err error)
}

// ErrRegistryPanic is returned if a registry implementation panics internally.
var ErrRegistryPanic = errors.New("registry: panic during Resolve")

// MapRegistry is a simple in-memory registry.
type MapRegistry struct {
	mu    sync.RWMutex
	items map[resolver.ServiceID]any
}

func NewMapRegistry() *MapRegistry {
	return &MapRegistry{items: map[resolver.ServiceID]any{}}
}

// Provide stores an unkeyed value under typ and returns the registry for chaining.
func (r *MapRegistry) Provide(typ string, val any) *MapRegistry {
	return r.ProvideKeyed(typ, "", val)
}

// ProvideKeyed stores a value under (typ, key) and returns the registry for chaining.
func (r *MapRegistry) ProvideKeyed(typ, key string, val any) *MapRegistry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[resolver.ServiceID{Type: typ, Key: key}] = val
	return r
}

// Resolve implements Registry and defensively converts panics into errors.
func (r *MapRegistry) Resolve(id resolver.ServiceID) (val any, ok bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			val = nil
			ok = false
			err = fmt.Errorf("%w: %v", ErrRegistryPanic, rec)
		}
	}()

	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.items[id]
	return v, ok, nil
}

// Get returns the value if present (no panic).
func (r *MapRegistry) Get(typ, key string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.items[resolver.ServiceID{Type: typ, Key: key}]
	return v, ok
}

// MustGet returns the value or panics with a helpful message.
// Useful in examples/tests where missing registry keys should fail fast.
func (r *MapRegistry) MustGet(typ, key string) any {
	v, ok := r.Get(typ, key)
	if !ok {
		panic(fmt.Errorf("di: registry missing %q", resolver.ServiceID{Type: typ, Key: key}.String()))
	}
	return v
}

type emptyRegistry struct{}

func (emptyRegistry) Resolve(resolver.ServiceID) (any, bool, error) { return nil, false, nil }
