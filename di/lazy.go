package di

import (
	"sync"

	"github.com/sghaida/odic/resolver"
)

// Lazy defers the resolution of a dependency until Value is first called.
//
// Concurrent callers wait for a single population. A failed population is not
// remembered, so the next call tries again. The cell resolves in the scope of
// the service that received it.
type Lazy struct {
	scope *Scope
	node  int
	frame *frame

	mu      sync.Mutex
	done    bool
	val     any
	pending chan struct{}
}

// Service returns the identity the cell resolves.
func (l *Lazy) Service() resolver.ServiceID {
	return l.scope.c.plan.Graph.Node(l.node).Service
}

// Value returns the dependency, resolving it on first use.
func (l *Lazy) Value() (any, error) {
	l.mu.Lock()
	for !l.done && l.pending != nil {
		wait := l.pending
		l.mu.Unlock()
		<-wait
		l.mu.Lock()
	}
	if l.done {
		v := l.val
		l.mu.Unlock()
		return v, nil
	}
	wait := make(chan struct{})
	l.pending = wait
	l.mu.Unlock()

	v, err := l.scope.require(l.frame, l.node)

	l.mu.Lock()
	if err == nil {
		l.val = v
		l.done = true
	}
	l.pending = nil
	close(wait)
	l.mu.Unlock()
	return v, err
}

// Resolved reports whether the value has been populated.
func (l *Lazy) Resolved() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done
}
