package resolver

import (
	"strconv"
	"strings"
)

// Cycle is a simple dependency cycle: Edges[i] leads from Nodes[i] to
// Nodes[(i+1)%len(Nodes)].
type Cycle struct {
	Nodes []int
	Edges []Edge

	// Legal is true when at least one edge is Lazy, which lets construction
	// proceed by deferring that dependency to first access.
	Legal bool
}

// Services returns the identities on the cycle path.
func (c Cycle) Services(g *Graph) []ServiceID {
	out := make([]ServiceID, 0, len(c.Nodes))
	for _, n := range c.Nodes {
		out = append(out, g.Node(n).Service)
	}
	return out
}

// Path renders the cycle as "A -> B -(lazy)-> A".
func (c Cycle) Path(g *Graph) string {
	if len(c.Nodes) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(g.Node(c.Nodes[0]).Service.String())
	for _, e := range c.Edges {
		if e.Eager() {
			sb.WriteString(" -> ")
		} else {
			sb.WriteString(" -(lazy)-> ")
		}
		sb.WriteString(g.Node(e.To).Service.String())
	}
	return sb.String()
}

// key identifies a cycle independent of its starting node.
func (c Cycle) key() string {
	start := 0
	for i, n := range c.Nodes {
		if n < c.Nodes[start] {
			start = i
		}
	}
	var sb strings.Builder
	for i := range c.Edges {
		e := c.Edges[(start+i)%len(c.Edges)]
		sb.WriteString(strconv.Itoa(e.From))
		sb.WriteByte('/')
		sb.WriteString(strconv.Itoa(e.Index))
		sb.WriteByte('>')
		sb.WriteString(strconv.Itoa(e.To))
		sb.WriteByte(';')
	}
	return sb.String()
}

// DetectCycles returns the dependency cycles of g, illegal ones first.
//
// Illegal cycles are searched on the eager sub-graph so a lazy parallel edge
// can never hide an eager cycle; legal cycles are the remaining cycles of the
// full graph that cross at least one Lazy edge.
func DetectCycles(g *Graph) []Cycle {
	seen := map[string]bool{}
	var out []Cycle

	for _, c := range findCycles(g, Edge.Eager) {
		if k := c.key(); !seen[k] {
			seen[k] = true
			out = append(out, c)
		}
	}
	for _, c := range findCycles(g, func(Edge) bool { return true }) {
		if !c.Legal {
			continue
		}
		if k := c.key(); !seen[k] {
			seen[k] = true
			out = append(out, c)
		}
	}
	return out
}

// CycleDiagnostics converts illegal cycles into diagnostics.
func CycleDiagnostics(g *Graph, cycles []Cycle) Diagnostics {
	var diags Diagnostics
	for _, c := range cycles {
		if c.Legal {
			continue
		}
		diags = append(diags, newDiagnostic(KindIllegalCycle,
			"eager dependency cycle "+c.Path(g)+"; wrap one edge in a lazy requirement to break it",
			c.Services(g)...))
	}
	return diags
}

const (
	white = iota
	grey
	black
)

// findCycles runs a three-color DFS over the edges accepted by follow and
// reports one cycle per back-edge, reconstructed from the DFS stack.
func findCycles(g *Graph, follow func(Edge) bool) []Cycle {
	color := make([]int, len(g.Nodes))
	var (
		stack   []int
		inbound []Edge
		cycles  []Cycle
	)

	var visit func(n int, via Edge)
	visit = func(n int, via Edge) {
		color[n] = grey
		stack = append(stack, n)
		inbound = append(inbound, via)

		for _, e := range g.Edges(n) {
			if !follow(e) {
				continue
			}
			switch color[e.To] {
			case white:
				visit(e.To, e)
			case grey:
				cycles = append(cycles, backEdgeCycle(stack, inbound, e))
			}
		}

		stack = stack[:len(stack)-1]
		inbound = inbound[:len(inbound)-1]
		color[n] = black
	}

	for _, n := range g.Nodes {
		if color[n.ID] == white {
			visit(n.ID, Edge{From: -1, To: n.ID})
		}
	}
	return cycles
}

func backEdgeCycle(stack []int, inbound []Edge, back Edge) Cycle {
	start := len(stack) - 1
	for stack[start] != back.To {
		start--
	}
	c := Cycle{
		Nodes: append([]int(nil), stack[start:]...),
		Edges: make([]Edge, 0, len(stack)-start),
	}
	c.Edges = append(c.Edges, inbound[start+1:]...)
	c.Edges = append(c.Edges, back)
	for _, e := range c.Edges {
		if !e.Eager() {
			c.Legal = true
			break
		}
	}
	return c
}
