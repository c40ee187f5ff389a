package resolver

import (
	"strconv"
	"strings"
)

// Node is a vertex of the dependency graph.
type Node struct {
	ID      int
	Service ServiceID

	// Descriptor is nil for synthetic dynamic nodes.
	Descriptor *Descriptor

	// Dynamic nodes are supplied by the host at runtime. Synthetic nodes are
	// dynamic nodes created for requirements no descriptor satisfies.
	Dynamic   bool
	Synthetic bool
}

// Lifetime returns the node lifetime. Synthetic nodes report Singleton since
// the host owns them for the container's whole life.
func (n Node) Lifetime() Lifetime {
	if n.Descriptor == nil {
		return Singleton
	}
	return n.Descriptor.Lifetime
}

// Edge connects a consumer to one dependency target.
type Edge struct {
	From, To    int
	Requirement Requirement

	// Index is the requirement's position in the consumer's dependency list.
	Index int
}

// Eager reports whether the edge constrains construction order.
func (e Edge) Eager() bool { return e.Requirement.Cardinality.Eager() }

// Binding is a requirement together with the nodes it resolved to.
type Binding struct {
	Requirement Requirement
	Targets     []int
}

// Graph is the resolved dependency graph of one container definition.
//
// Declared descriptors occupy node IDs [0, len(descriptors)) in declaration
// order; synthetic dynamic nodes follow.
type Graph struct {
	Nodes        []Node
	Bindings     [][]Binding
	AllowDynamic bool
}

// Node returns the node with the given id.
func (g *Graph) Node(id int) Node { return g.Nodes[id] }

// Edges returns the outgoing edges of a node in requirement order.
func (g *Graph) Edges(from int) []Edge {
	var out []Edge
	for i, b := range g.Bindings[from] {
		for _, to := range b.Targets {
			out = append(out, Edge{From: from, To: to, Requirement: b.Requirement, Index: i})
		}
	}
	return out
}

// Lookup returns the node IDs matching a type and key filter in declaration
// order. An empty key matches any key.
func (g *Graph) Lookup(typ, key string) []int {
	req := Requirement{Type: typ, Key: key}
	var out []int
	for _, n := range g.Nodes {
		if n.Synthetic {
			if n.Service.Type == typ && (key == "" || key == n.Service.Key) {
				out = append(out, n.ID)
			}
			continue
		}
		if req.matches(n.Descriptor) {
			out = append(out, n.ID)
		}
	}
	return out
}

// BuildGraph resolves every requirement of every static descriptor to its
// target nodes.
//
// Requirements are matched by exact type and by key (exact when the
// requirement names one, any key otherwise). When allowDynamic is set, a
// Single, Lazy or Optional requirement with no static match is bound to a
// synthetic dynamic node resolved by the host at runtime.
//
// The graph is always returned so callers can inspect partial results;
// generation must not proceed when the diagnostics contain errors.
func BuildGraph(descriptors []Descriptor, allowDynamic bool) (*Graph, Diagnostics) {
	var diags Diagnostics

	owned := make([]Descriptor, len(descriptors))
	copy(owned, descriptors)

	g := &Graph{
		Nodes:        make([]Node, 0, len(owned)),
		Bindings:     make([][]Binding, len(owned)),
		AllowDynamic: allowDynamic,
	}
	for i := range owned {
		d := &owned[i]
		diags = append(diags, checkDescriptor(d)...)
		g.Nodes = append(g.Nodes, Node{ID: i, Service: d.Service(), Descriptor: d, Dynamic: d.Dynamic})
	}

	synthetic := map[ServiceID]int{}
	dynamicNode := func(id ServiceID) int {
		if n, ok := synthetic[id]; ok {
			return n
		}
		n := len(g.Nodes)
		g.Nodes = append(g.Nodes, Node{ID: n, Service: id, Dynamic: true, Synthetic: true})
		g.Bindings = append(g.Bindings, nil)
		synthetic[id] = n
		return n
	}

	for i := range owned {
		consumer := &owned[i]
		if consumer.Dynamic {
			continue
		}
		bindings := make([]Binding, 0, len(consumer.Dependencies))
		for _, req := range consumer.Dependencies {
			var matches []int
			for j := range owned {
				if req.matches(&owned[j]) {
					matches = append(matches, j)
				}
			}

			b := Binding{Requirement: req}
			switch {
			case req.Cardinality == Enumerable:
				b.Targets = matches
			case len(matches) == 1:
				b.Targets = matches
			case len(matches) > 1:
				diags = append(diags, ambiguous(consumer, req, owned, matches))
			case allowDynamic:
				b.Targets = []int{dynamicNode(req.Service())}
			case req.Cardinality == Optional:
				// absent at runtime
			default:
				diags = append(diags, newDiagnostic(KindUnresolvedDependency,
					consumer.Service().String()+" requires "+describeRequirement(req)+
						" but no service matches and dynamic services are not allowed",
					consumer.Service(), req.Service()))
			}
			bindings = append(bindings, b)
		}
		g.Bindings[i] = bindings
	}

	return g, diags
}

func ambiguous(consumer *Descriptor, req Requirement, all []Descriptor, matches []int) Diagnostic {
	services := []ServiceID{consumer.Service()}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		services = append(services, all[m].Service())
		names = append(names, all[m].Service().String()+"#"+strconv.Itoa(m))
	}
	return newDiagnostic(KindAmbiguousDependency,
		consumer.Service().String()+" requires "+describeRequirement(req)+" which matches "+
			strconv.Itoa(len(matches))+" services ("+strings.Join(names, ", ")+"); add a key or request an enumerable",
		services...)
}

func describeRequirement(req Requirement) string {
	s := req.Cardinality.String() + " " + req.Service().String()
	if req.Name != "" {
		s += " (parameter " + req.Name + ")"
	}
	return s
}

// checkDescriptor reports malformed descriptors. It mirrors the generator's
// up-front spec validation so analysis never panics on bad input.
func checkDescriptor(d *Descriptor) Diagnostics {
	var diags Diagnostics
	bad := func(msg string) {
		diags = append(diags, newDiagnostic(KindInvalidDescriptor, msg, d.Service()))
	}

	if strings.TrimSpace(d.Type) == "" {
		bad("descriptor type must not be empty")
	}
	if !d.Lifetime.Valid() {
		bad(d.Service().String() + " has unknown lifetime " + d.Lifetime.String())
	}
	if d.Dynamic {
		if len(d.Dependencies) > 0 {
			diags = append(diags, Diagnostic{
				Kind:     KindInvalidDescriptor,
				Severity: SeverityWarning,
				Services: []ServiceID{d.Service()},
				Message:  d.Service().String() + " is dynamic; its dependencies are ignored",
			})
		}
		return diags
	}

	switch {
	case d.Factory.Constructor == "" && d.Factory.Ref == "":
		bad(d.Service().String() + " has neither a constructor nor a factory reference")
	case d.Factory.Constructor != "" && d.Factory.Ref != "":
		bad(d.Service().String() + " declares both constructor " + strconv.Quote(d.Factory.Constructor) +
			" and factory " + strconv.Quote(d.Factory.Ref))
	}
	for i, req := range d.Dependencies {
		if strings.TrimSpace(req.Type) == "" {
			bad(d.Service().String() + " dependency #" + strconv.Itoa(i) + " has an empty type")
		}
		if !req.Cardinality.Valid() {
			bad(d.Service().String() + " dependency #" + strconv.Itoa(i) + " has unknown cardinality " + req.Cardinality.String())
		}
	}
	return diags
}
