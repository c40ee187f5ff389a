package main

import (
	"go/parser"
	"go/token"
	"os"
	"strings"
	"testing"

	"github.com/sghaida/odic/resolver"
)

// -------------------------
// generate
// -------------------------

func TestGenerate_WritesContainer(t *testing.T) {
	t.Parallel()

	p := newPkg(t)
	specPath := p.write("container.yaml", appSpec)
	outPath := p.out("container.gen.go")

	stdout, stderr, err := digen("generate", "--spec", specPath, "--out", outPath)
	if err != nil {
		t.Fatalf("generate: %v\nstderr: %s", err, stderr)
	}
	if !strings.Contains(stdout, "(4 services, 1 dynamic)") {
		t.Fatalf("stdout=%q", stdout)
	}

	out := p.read("container.gen.go")
	assertContainsInOrder(t, out,
		"// Code generated by digen; DO NOT EDIT.",
		"// Spec: ",
		"// Spec-SHA256: "+sha256Hex([]byte(appSpec)),
		"package app",
	)
	assertHasImport(t, out, "context")
	assertHasImport(t, out, "net/http")
	assertHasImport(t, out, "github.com/sghaida/odic/di")
	assertHasImport(t, out, "github.com/sghaida/odic/resolver")

	assertContainsInOrder(t, out,
		"func AppDescriptors() []resolver.Descriptor {",
		`{Type: "*Logger", Lifetime: resolver.Singleton, Factory: resolver.Factory{Constructor: "NewLogger"}},`,
		`{Type: "*Repo", Lifetime: resolver.Scoped, Dependencies: []resolver.Requirement{{Type: "*Logger", Cardinality: resolver.Single}}, Factory: resolver.Factory{Constructor: "NewRepo", ReturnsError: true}, Disposable: true},`,
		`{Type: "*http.Request", Lifetime: resolver.Scoped, Dynamic: true},`,
		"func AppProviders() di.Providers {",
		"return NewLogger(), nil",
		"return NewRepo(di.Arg[*Logger](a, 0))",
		"return NewCache(di.Arg[*Repo](a, 0)), nil",
		"return NewHandler(di.Arg[*Repo](a, 0), di.LazyArg(a, 1), di.Arg[*http.Request](a, 2)), nil",
		"func NewApp(opts ...di.Option) (*di.Container, error) {",
		"return di.Build(context.Background(), AppDescriptors(), AppProviders(), opts...)",
	)
	if strings.Contains(out, "WithAllowDynamic") {
		t.Fatalf("did not expect allow-dynamic option")
	}

	if _, err := parser.ParseFile(token.NewFileSet(), outPath, out, parser.AllErrors); err != nil {
		t.Fatalf("generated file does not parse: %v", err)
	}
}

func TestGenerate_FactoryReference(t *testing.T) {
	t.Parallel()

	p := newPkg(t)
	specPath := p.write("container.yaml", `version: "1.0.0"
package: app
name: App
services:
  - type: "*Logger"
    lifetime: singleton
    constructor: NewLogger
  - type: "*Cache"
    lifetime: singleton
    factory: Caches.New
    returnsError: true
    dependencies:
      - type: "*Logger"
`)

	if _, stderr, err := digen("generate", "--spec", specPath, "--out", p.out("container.gen.go")); err != nil {
		t.Fatalf("generate: %v\nstderr: %s", err, stderr)
	}

	out := p.read("container.gen.go")
	assertContainsInOrder(t, out,
		`{Type: "*Cache", Lifetime: resolver.Singleton, Dependencies: []resolver.Requirement{{Type: "*Logger", Cardinality: resolver.Single}}, Factory: resolver.Factory{Ref: "Caches.New", ReturnsError: true}},`,
		`"Caches.New":`,
		"return Caches.New(di.Arg[*Logger](a, 0))",
	)
}

func TestGenerate_PreservesManualImports(t *testing.T) {
	t.Parallel()

	p := newPkg(t)
	specPath := p.write("container.yaml", appSpec)
	p.write("container.gen.go", `package app

import (
	"time"
	store "example.com/proj/store"
)
`)

	if _, stderr, err := digen("generate", "--spec", specPath, "--out", p.out("container.gen.go")); err != nil {
		t.Fatalf("generate: %v\nstderr: %s", err, stderr)
	}
	out := p.read("container.gen.go")
	assertHasImport(t, out, "time")
	assertHasImport(t, out, "example.com/proj/store")
	assertHasImport(t, out, "context")
}

func TestGenerate_AllowDynamicFlag(t *testing.T) {
	t.Parallel()

	p := newPkg(t)
	specPath := p.write("container.yaml", `version: "1.0.0"
package: app
name: Plugins
services:
  - type: "*Host"
    constructor: NewHost
    dependencies:
      - type: "Clock"
      - type: "Plugin"
        cardinality: enumerable
  - type: "Plugin"
    key: a
    constructor: NewPluginA
  - type: "Plugin"
    key: b
    constructor: NewPluginB
`)

	if _, _, err := digen("generate", "--spec", specPath, "--out", p.out("plugins.gen.go")); err == nil {
		t.Fatalf("expected unresolved Clock without --allow-dynamic")
	}

	_, stderr, err := digen("generate", "--allow-dynamic", "--spec", specPath, "--out", p.out("plugins.gen.go"))
	if err != nil {
		t.Fatalf("generate: %v\nstderr: %s", err, stderr)
	}
	out := p.read("plugins.gen.go")
	assertContains(t, out,
		"opts = append([]di.Option{di.WithAllowDynamic(true)}, opts...)",
		`{Type: "Plugin", Key: "a", Lifetime: resolver.Transient, Factory: resolver.Factory{Constructor: "NewPluginA"}},`,
		`{Type: "Clock", Cardinality: resolver.Single}, {Type: "Plugin", Cardinality: resolver.Enumerable}`,
		"return NewHost(di.Arg[Clock](a, 0), di.Each[Plugin](a, 1)), nil",
	)
}

func TestGenerate_AnalysisFailureWritesNothing(t *testing.T) {
	t.Parallel()

	p := newPkg(t)
	specPath := p.write("container.yaml", `version: "1.0.0"
package: app
name: App
services:
  - type: "*Logger"
    lifetime: singleton
    constructor: NewLogger
    dependencies:
      - type: "*Repo"
  - type: "*Repo"
    lifetime: scoped
    constructor: NewRepo
    dependencies:
      - type: "*Logger"
`)
	outPath := p.out("container.gen.go")

	_, stderr, err := digen("generate", "--spec", specPath, "--out", outPath)
	if err == nil {
		t.Fatalf("expected analysis failure")
	}
	if !strings.Contains(err.Error(), "analysis failed with 2 error(s)") {
		t.Fatalf("err=%v", err)
	}
	assertContains(t, stderr, "error IllegalCycle:", "error CaptiveDependency:")
	if _, statErr := os.Stat(outPath); !os.IsNotExist(statErr) {
		t.Fatalf("expected no output, stat err=%v", statErr)
	}
}

func TestGenerate_InvalidInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		spec    string
		args    func(p *pkgHarness, spec string) []string
		wantErr string
	}{
		{
			name: "missing_out_flag",
			spec: appSpec,
			args: func(p *pkgHarness, spec string) []string {
				return []string{"generate", "--spec", spec}
			},
			wantErr: `required flag(s) "out" not set`,
		},
		{
			name: "invalid_spec",
			spec: "version: \"1.0.0\"\npackage: app\nname: App\nservices:\n  - type: \"*Logger\"\n",
			args: func(p *pkgHarness, spec string) []string {
				return []string{"generate", "--spec", spec, "--out", p.out("x.gen.go")}
			},
			wantErr: "required_without_all",
		},
		{
			name: "conflicting_constructor",
			spec: `version: "1.0.0"
package: app
name: App
services:
  - type: "*Logger"
    constructor: NewLogger
  - type: "*Logger"
    key: audit
    constructor: NewLogger
    returnsError: true
`,
			args: func(p *pkgHarness, spec string) []string {
				return []string{"generate", "--spec", spec, "--out", p.out("x.gen.go")}
			},
			wantErr: `constructor "NewLogger" is declared with different signatures`,
		},
		{
			name: "bad_constructor_expression",
			spec: `version: "1.0.0"
package: app
name: App
services:
  - type: "*Logger"
    constructor: "New Logger("
`,
			args: func(p *pkgHarness, spec string) []string {
				return []string{"generate", "--spec", spec, "--out", p.out("x.gen.go")}
			},
			wantErr: "gofmt/format failed",
		},
		{
			name: "bad_log_format_flag",
			spec: appSpec,
			args: func(p *pkgHarness, spec string) []string {
				return []string{"generate", "--log-format", "xml", "--spec", spec, "--out", p.out("x.gen.go")}
			},
			wantErr: "--log-format",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := newPkg(t)
			specPath := p.write("container.yaml", tt.spec)

			_, _, err := digen(tt.args(p, specPath)...)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err=%v want contains %q", err, tt.wantErr)
			}
		})
	}
}

// -------------------------
// check
// -------------------------

func TestCheck_PrintsPlan(t *testing.T) {
	t.Parallel()

	p := newPkg(t)
	specPath := p.write("container.yaml", appSpec)

	stdout, stderr, err := digen("check", "--spec", specPath)
	if err != nil {
		t.Fatalf("check: %v\nstderr: %s", err, stderr)
	}
	assertContainsInOrder(t, stdout,
		"App: 4 services",
		"construction order:",
		"1. *Logger (singleton)",
		"2. *Repo (scoped)",
		"3. *Cache (transient)",
		"4. *Handler (transient)",
		"disposal order:",
		"1. *Handler",
		"2. *Cache",
		"3. *Repo",
		"4. *Logger",
		"dynamic:",
		"- *http.Request",
	)
}

func TestCheck_ReportsLazyCycle(t *testing.T) {
	t.Parallel()

	p := newPkg(t)
	specPath := p.write("container.yaml", `version: "1.0.0"
package: app
name: App
services:
  - type: "*A"
    lifetime: singleton
    constructor: NewA
    dependencies:
      - type: "*B"
  - type: "*B"
    lifetime: singleton
    constructor: NewB
    dependencies:
      - type: "*A"
        cardinality: lazy
`)

	stdout, stderr, err := digen("check", "--spec", specPath)
	if err != nil {
		t.Fatalf("check: %v\nstderr: %s", err, stderr)
	}
	assertContains(t, stderr, "info LazyCycle:")
	assertContainsInOrder(t, stdout, "1. *B", "2. *A")
}

func TestPrintPlan_NoDynamicSection(t *testing.T) {
	t.Parallel()

	plan := resolver.MustAnalyze([]resolver.Descriptor{
		resolver.Describe("*Logger", resolver.Singleton, "NewLogger"),
	})
	var sb strings.Builder
	printPlan(&sb, "Mini", plan)

	got := sb.String()
	want := "Mini: 1 services\nconstruction order:\n  1. *Logger (singleton)\ndisposal order:\n  1. *Logger\n"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
