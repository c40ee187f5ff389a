package di

import (
	"sync"
	"sync/atomic"

	"github.com/sghaida/odic/resolver"
)

// frame is one construction in progress. Frames link outwards to the
// construction that requested them and are never mutated after creation
// except for the done flag.
type frame struct {
	node   int
	scope  *Scope
	parent *frame
	done   atomic.Bool
}

func (f *frame) push(node int, s *Scope) *frame {
	return &frame{node: node, scope: s, parent: f}
}

// cycle returns the in-progress path from node back to node when node is
// already being constructed along this chain, or nil. Finished frames are
// skipped so lazies captured during a construction stay usable afterwards.
func (f *frame) cycle(g *resolver.Graph, node int) []resolver.ServiceID {
	var path []int
	for cur := f; cur != nil; cur = cur.parent {
		if cur.done.Load() {
			continue
		}
		path = append(path, cur.node)
		if cur.node != node {
			continue
		}
		out := make([]resolver.ServiceID, 0, len(path)+1)
		for i := len(path) - 1; i >= 0; i-- {
			out = append(out, g.Node(path[i]).Service)
		}
		return append(out, g.Node(node).Service)
	}
	return nil
}

// buildKey names a shared instance: a singleton (built in the root scope) or
// the scoped instance of one scope.
type buildKey struct {
	scope *Scope
	node  int
}

// held returns the shared instances this chain is constructing, innermost
// first.
func (f *frame) held(g *resolver.Graph) []buildKey {
	var out []buildKey
	for cur := f; cur != nil; cur = cur.parent {
		if cur.done.Load() || g.Node(cur.node).Lifetime() == resolver.Transient {
			continue
		}
		out = append(out, buildKey{scope: cur.scope, node: cur.node})
	}
	return out
}

// waitGraph records which shared constructions are blocked on which other
// shared instance. Two goroutines that each hold one construction and wait
// for the other's would block forever; join refuses the second wait instead.
type waitGraph struct {
	mu      sync.Mutex
	blocked map[buildKey]buildKey
}

// join registers that the constructions held by f wait for key. It returns
// the circular path when key is, transitively, waiting on one of them. The
// returned release must be called once the wait is over.
func (w *waitGraph) join(g *resolver.Graph, f *frame, key buildKey) (release func(), path []resolver.ServiceID) {
	held := f.held(g)
	if len(held) == 0 {
		return func() {}, nil
	}
	mine := make(map[buildKey]bool, len(held))
	for _, h := range held {
		mine[h] = true
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	chain := []buildKey{key}
	for cur := key; ; {
		next, ok := w.blocked[cur]
		if !ok {
			break
		}
		chain = append(chain, next)
		if mine[next] {
			return nil, waitPath(g, f, next, chain)
		}
		if len(chain) > len(w.blocked)+1 {
			break
		}
		cur = next
	}

	if w.blocked == nil {
		w.blocked = map[buildKey]buildKey{}
	}
	// outer constructions of the chain may already wait; the innermost wait
	// replaces theirs until it is over
	prev := make(map[buildKey]buildKey, len(held))
	for _, h := range held {
		if p, ok := w.blocked[h]; ok {
			prev[h] = p
		}
		w.blocked[h] = key
	}
	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		for _, h := range held {
			if w.blocked[h] != key {
				continue
			}
			if p, ok := prev[h]; ok {
				w.blocked[h] = p
				continue
			}
			delete(w.blocked, h)
		}
	}, nil
}

// waitPath renders the deadlock as a path: from the held construction down
// this goroutine's chain to the requester, then along the other goroutines'
// waits back to the held construction.
func waitPath(g *resolver.Graph, f *frame, held buildKey, chain []buildKey) []resolver.ServiceID {
	var own []int
	for cur := f; cur != nil; cur = cur.parent {
		if cur.done.Load() {
			continue
		}
		own = append(own, cur.node)
		if cur.node == held.node && cur.scope == held.scope {
			break
		}
	}
	out := make([]resolver.ServiceID, 0, len(own)+len(chain))
	for i := len(own) - 1; i >= 0; i-- {
		out = append(out, g.Node(own[i]).Service)
	}
	for _, k := range chain {
		out = append(out, g.Node(k.node).Service)
	}
	return out
}
