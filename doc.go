// Package odic is a dependency injection container that is analysed before it
// runs.
//
// Services are declared as descriptors: a type, an optional key, a lifetime,
// a constructor and the requirements of that constructor. The descriptor
// table is checked as a whole and turned into a construction plan, so a
// missing, ambiguous, cyclic or captive dependency is reported before any
// constructor is called.
//
// Packages:
//   - resolver: descriptor model, graph builder, cycle detection, scope
//     validation and construction planning (Analyze)
//   - di: runtime container interpreting a plan, with scopes, lazy cells,
//     dynamic services and ordered disposal
//   - di/scopehttp: one scope per HTTP request
//   - cmd/digen: generator turning a YAML container spec into Go wiring
//   - examples/orders: an HTTP service wired through a generated container
//
// Start with examples/orders for end-to-end wiring style.
package odic
