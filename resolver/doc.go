// Package resolver performs the static analysis behind a generated DI container.
//
// Input is a descriptor table: one Descriptor per injectable service, each
// listing its lifetime, its constructor (or factory reference) and the
// Requirements of that constructor. Descriptors are collected by the caller
// (a YAML spec, the builder helpers in this package, or a metadata extractor);
// the resolver never inspects Go types itself.
//
// Analysis runs four passes:
//
//   - BuildGraph: binds every requirement to its target descriptors by type
//     and key, creating synthetic dynamic nodes when allowed.
//   - DetectCycles: three-color DFS; eager cycles are errors, cycles crossing
//     a Lazy requirement are accepted.
//   - ValidateScopes: rejects captive dependencies (a longer-lived service
//     holding a shorter-lived one directly).
//   - PlanConstruction: deterministic topological order for construction and
//     its reverse for disposal.
//
// Analyze chains the passes and returns a *Plan or an *AnalysisError holding
// every diagnostic. The plan is consumed by the code generator (cmd/digen)
// and, at runtime, by package di which interprets it directly.
//
//	plan, err := resolver.Analyze(ctx, []resolver.Descriptor{
//		resolver.Describe("*app.Logger", resolver.Singleton, "NewLogger"),
//		resolver.Describe("*app.Repo", resolver.Scoped, "NewRepo", resolver.Need("*app.Logger")),
//	})
package resolver
