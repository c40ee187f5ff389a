// Command digen generates odic containers from descriptor files.
//
// A descriptor file lists every service of an application together with its
// lifetime, its constructor and the dependencies that constructor takes, in
// parameter order:
//
//	version: "1.0.0"
//	package: app
//	name: App
//	imports:
//	  - path: net/http
//	services:
//	  - type: "*Logger"
//	    lifetime: singleton
//	    constructor: NewLogger
//	  - type: "*Repo"
//	    lifetime: scoped
//	    constructor: NewRepo
//	    returnsError: true
//	    disposable: true
//	    dependencies:
//	      - type: "*Logger"
//	  - type: "*http.Request"
//	    lifetime: scoped
//	    dynamic: true
//
// Lifetimes are singleton, scoped or transient (the default). Dependency
// cardinalities are single (the default), optional, enumerable or lazy.
// Dynamic services have no constructor; the host supplies them at runtime
// through a di.Registry or Scope.Provide. A service may name a factory
// expression instead of a constructor (factory: Caches.New); it is called the
// same way.
//
// Commands
//
//	digen generate --spec container.yaml --out container.gen.go
//	digen check --spec container.yaml
//
// Both commands run the full analysis first (unresolved and ambiguous
// dependencies, eager cycles, captive dependencies) and print every finding
// to stderr. Nothing is written when an error is found.
//
// generate writes a gofmt-ed file with three functions:
//
//	func AppDescriptors() []resolver.Descriptor
//	func AppProviders() di.Providers
//	func NewApp(opts ...di.Option) (*di.Container, error)
//
// The header records the descriptor file path and its SHA-256. Imports that
// were added by hand to a previous output are kept. The di and resolver
// import paths come from the target package's own imports when present,
// otherwise from the go.mod of the module digen was built from.
//
// check prints the construction order, the disposal order and the dynamic
// services.
//
// Configuration
//
// Flags override environment variables, which may be set in a .env file:
//
//	DIGEN_ALLOW_DYNAMIC=true   bind requirements nothing provides to dynamic services
//	DIGEN_LOG_LEVEL=debug      debug | info | warn | error
//	DIGEN_LOG_FORMAT=json      text | json
//
// Go generate
//
//	//go:generate go run github.com/sghaida/odic/cmd/digen generate --spec container.yaml --out container.gen.go
package main
