package resolver

import (
	"errors"
	"strings"
)

// Step constructs one static service.
type Step struct {
	Node       int
	Service    ServiceID
	Descriptor Descriptor

	// Bindings holds the resolved targets of each requirement, in the order
	// the constructor declares them.
	Bindings []Binding

	// TrackDisposal is set when instances must be released by their owner
	// (the scope for Scoped/Transient, the container for Singletons).
	TrackDisposal bool
}

// Plan is the validated, ordered blueprint for building and releasing a
// container's services.
type Plan struct {
	// Steps lists static services so that every eager dependency precedes
	// its consumer. Lazy dependencies may appear later.
	Steps []Step

	// Disposal is the exact reverse of Steps, as node IDs.
	Disposal []int

	// Dynamic lists the identities the host must supply at runtime.
	Dynamic []ServiceID

	// LazyCycles are the legal cycles broken by a Lazy edge.
	LazyCycles []Cycle

	Graph        *Graph
	Diagnostics  Diagnostics
	AllowDynamic bool

	index map[int]int
}

// Step returns the construction step of a node.
func (p *Plan) Step(node int) (Step, bool) {
	if p.index == nil {
		p.reindex()
	}
	i, ok := p.index[node]
	if !ok {
		return Step{}, false
	}
	return p.Steps[i], true
}

// Order returns the construction order as service identities.
func (p *Plan) Order() []ServiceID {
	out := make([]ServiceID, 0, len(p.Steps))
	for _, s := range p.Steps {
		out = append(out, s.Service)
	}
	return out
}

// DisposalOrder returns the disposal order as service identities.
func (p *Plan) DisposalOrder() []ServiceID {
	out := make([]ServiceID, 0, len(p.Disposal))
	for _, n := range p.Disposal {
		out = append(out, p.Graph.Node(n).Service)
	}
	return out
}

func (p *Plan) reindex() {
	p.index = make(map[int]int, len(p.Steps))
	for i, s := range p.Steps {
		p.index[s.Node] = i
	}
}

// CycleError is returned by PlanConstruction when eager edges form a cycle.
type CycleError struct {
	Services []ServiceID
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	names := make([]string, 0, len(e.Services))
	for _, s := range e.Services {
		names = append(names, s.String())
	}
	return "resolver: eager dependency cycle among " + strings.Join(names, ", ")
}

// AsCycleError returns err as a *CycleError, or nil.
func AsCycleError(err error) *CycleError {
	var ce *CycleError
	if errors.As(err, &ce) {
		return ce
	}
	return nil
}

// PlanConstruction orders the static nodes of g topologically over eager
// edges. Ties go to declaration order, except that a ready node whose lazy
// targets are already placed is preferred over one still waiting on a lazy
// target, so forward lazy references only remain where a cycle needs them.
func PlanConstruction(g *Graph) (*Plan, error) {
	n := len(g.Nodes)
	pending := make([]int, n)
	dependents := make([][]int, n)
	lazy := make([][]int, n)
	placed := make([]bool, n)

	static := 0
	for _, node := range g.Nodes {
		if node.Dynamic {
			placed[node.ID] = true
			continue
		}
		static++
		eager := map[int]bool{}
		for _, e := range g.Edges(node.ID) {
			if g.Node(e.To).Dynamic {
				continue
			}
			if !e.Eager() {
				if e.To != node.ID {
					lazy[node.ID] = append(lazy[node.ID], e.To)
				}
				continue
			}
			if !eager[e.To] {
				eager[e.To] = true
				pending[node.ID]++
				dependents[e.To] = append(dependents[e.To], node.ID)
			}
		}
	}

	p := &Plan{Graph: g, AllowDynamic: g.AllowDynamic}
	for len(p.Steps) < static {
		next := -1
		fallback := -1
		for _, node := range g.Nodes {
			id := node.ID
			if placed[id] || pending[id] > 0 {
				continue
			}
			if fallback < 0 {
				fallback = id
			}
			if lazyTargetsPlaced(lazy[id], placed) {
				next = id
				break
			}
		}
		if next < 0 {
			next = fallback
		}
		if next < 0 {
			return nil, &CycleError{Services: unplaced(g, placed)}
		}

		placed[next] = true
		for _, d := range dependents[next] {
			pending[d]--
		}
		node := g.Node(next)
		p.Steps = append(p.Steps, Step{
			Node:          next,
			Service:       node.Service,
			Descriptor:    *node.Descriptor,
			Bindings:      g.Bindings[next],
			TrackDisposal: node.Descriptor.Disposable,
		})
	}

	p.Disposal = make([]int, 0, len(p.Steps))
	for i := len(p.Steps) - 1; i >= 0; i-- {
		p.Disposal = append(p.Disposal, p.Steps[i].Node)
	}
	for _, node := range g.Nodes {
		if node.Dynamic {
			p.Dynamic = append(p.Dynamic, node.Service)
		}
	}
	p.reindex()
	return p, nil
}

func lazyTargetsPlaced(targets []int, placed []bool) bool {
	for _, t := range targets {
		if !placed[t] {
			return false
		}
	}
	return true
}

func unplaced(g *Graph, placed []bool) []ServiceID {
	var out []ServiceID
	for _, node := range g.Nodes {
		if !placed[node.ID] {
			out = append(out, node.Service)
		}
	}
	return out
}
