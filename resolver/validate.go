package resolver

// ValidateScopes enforces the captive-dependency rules on every edge:
//
//   - dynamic dependencies are always allowed;
//   - a Singleton may only depend on Singletons;
//   - a Scoped service may depend on Singletons and Scoped services, and on
//     Transients only through a Lazy requirement;
//   - a Transient may depend on anything.
//
// Every violation is reported; none stops the walk.
func ValidateScopes(g *Graph) Diagnostics {
	var diags Diagnostics
	for _, consumer := range g.Nodes {
		if consumer.Dynamic {
			continue
		}
		for _, e := range g.Edges(consumer.ID) {
			dep := g.Node(e.To)
			if dep.Dynamic {
				continue
			}
			if rule, ok := captureRule(consumer.Lifetime(), dep.Lifetime(), e.Requirement.Cardinality); !ok {
				diags = append(diags, newDiagnostic(KindCaptiveDependency,
					consumer.Lifetime().String()+" "+consumer.Service.String()+" captures "+
						dep.Lifetime().String()+" "+dep.Service.String()+" through "+describeRequirement(e.Requirement)+": "+rule,
					consumer.Service, dep.Service))
			}
		}
	}
	return diags
}

// captureRule reports whether owner may hold dep through a requirement of
// cardinality c, and the rule that was violated when it may not.
func captureRule(owner, dep Lifetime, c Cardinality) (string, bool) {
	switch owner {
	case Singleton:
		if dep != Singleton {
			return "a singleton may only depend on singletons or dynamic services", false
		}
	case Scoped:
		if dep == Transient && c != Lazy {
			return "a scoped service may only take a transient through a lazy requirement", false
		}
	}
	return "", true
}
