package main

import (
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// -------------------------
// findModule
// -------------------------

func TestFindModule(t *testing.T) {
	t.Parallel()

	t.Run("walks_up_to_nearest_go_mod", func(t *testing.T) {
		t.Parallel()
		p := newPkg(t)
		p.write("go.mod", "module example.com/proj\n\ngo 1.22\n")
		p.write("internal/app/app.go", "package app\n")

		root, mod, err := findModule(p.out("internal/app"))
		if err != nil {
			t.Fatalf("findModule: %v", err)
		}
		if root != p.dir || mod != "example.com/proj" {
			t.Fatalf("got root=%q mod=%q", root, mod)
		}
	})

	t.Run("missing_module_directive", func(t *testing.T) {
		t.Parallel()
		p := newPkg(t)
		p.write("go.mod", "go 1.22\n")

		_, _, err := findModule(p.dir)
		if err == nil || !strings.Contains(err.Error(), "missing module directive") {
			t.Fatalf("err=%v", err)
		}
	})

	t.Run("malformed_go_mod", func(t *testing.T) {
		t.Parallel()
		p := newPkg(t)
		p.write("go.mod", "require (\n")

		if _, _, err := findModule(p.dir); err == nil {
			t.Fatalf("expected parse error")
		}
	})
}

func TestGeneratorModule(t *testing.T) {
	t.Parallel()

	mod, err := generatorModule()
	if err != nil {
		t.Fatalf("generatorModule: %v", err)
	}
	if mod != "github.com/sghaida/odic" {
		t.Fatalf("mod=%q", mod)
	}
}

// -------------------------
// runtimeImports
// -------------------------

func TestRuntimeImports(t *testing.T) {
	t.Parallel()

	t.Run("prefers_package_sources", func(t *testing.T) {
		t.Parallel()
		p := newPkg(t)
		p.write("wire.go", `package app
import di "example.com/fork/di"
var _ di.Providers`)
		// generated outputs and tests are ignored
		p.write("container.gen.go", `package app
import di "example.com/other/di"`)
		p.write("wire_test.go", `package app
import di "example.com/test/di"`)

		diPath, resolverPath, err := runtimeImports(p.dir)
		if err != nil {
			t.Fatalf("runtimeImports: %v", err)
		}
		if diPath != "example.com/fork/di" || resolverPath != "example.com/fork/resolver" {
			t.Fatalf("got di=%q resolver=%q", diPath, resolverPath)
		}
	})

	t.Run("falls_back_to_generator_module", func(t *testing.T) {
		t.Parallel()
		p := newPkg(t)

		diPath, resolverPath, err := runtimeImports(p.dir)
		if err != nil {
			t.Fatalf("runtimeImports: %v", err)
		}
		if diPath != "github.com/sghaida/odic/di" || resolverPath != "github.com/sghaida/odic/resolver" {
			t.Fatalf("got di=%q resolver=%q", diPath, resolverPath)
		}
	})
}

// -------------------------
// scan / merge / preserve
// -------------------------

func TestScanPackageImports(t *testing.T) {
	t.Parallel()

	p := newPkg(t)
	p.write("a.go", `package p
import (
	"fmt"
	cfg "example.com/proj/config"
)`)
	p.write("b.go", `package p
import "fmt"`)
	p.write("broken.go", `package p import`)
	p.write("x_gen.go", `package p
import "os"`)

	got := scanPackageImports(p.dir)
	want := []GoImport{
		{Name: "cfg", Path: "example.com/proj/config"},
		{Path: "fmt"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v want %+v", got, want)
	}

	if scanPackageImports(filepath.Join(p.dir, "missing")) != nil {
		t.Fatalf("expected nil for missing dir")
	}
}

func TestScannedRuntime(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		imports      []GoImport
		wantDI       string
		wantResolver string
		ok           bool
	}{
		{
			name:         "lone_di",
			imports:      []GoImport{{Path: "example.com/a/di"}, {Path: "fmt"}},
			wantDI:       "example.com/a/di",
			wantResolver: "example.com/a/resolver",
			ok:           true,
		},
		{
			name: "pair_wins",
			imports: []GoImport{
				{Path: "example.com/a/di"},
				{Path: "example.com/b/di"},
				{Path: "example.com/b/resolver"},
			},
			wantDI:       "example.com/b/di",
			wantResolver: "example.com/b/resolver",
			ok:           true,
		},
		{
			name:    "alias_alone_is_not_enough",
			imports: []GoImport{{Name: "di", Path: "example.com/b/container"}},
		},
		{
			name:    "no_match",
			imports: []GoImport{{Path: "example.com/dig"}},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			diPath, resolverPath, ok := scannedRuntime(tt.imports)
			if ok != tt.ok || diPath != tt.wantDI || resolverPath != tt.wantResolver {
				t.Fatalf("got di=%q resolver=%q ok=%v", diPath, resolverPath, ok)
			}
		})
	}
}

func TestMergeImports(t *testing.T) {
	t.Parallel()

	required := []GoImport{
		{Path: "context"},
		{Name: "di", Path: "example.com/odic/di"},
	}
	preserved := []GoImport{
		{Path: "example.com/odic/di"},
		{Path: "context"},
		{Path: "time"},
	}

	got := mergeImports(required, preserved)
	want := []GoImport{
		{Path: "context"},
		{Name: "di", Path: "example.com/odic/di"},
		{Path: "time"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestReadImportsFromExistingOut(t *testing.T) {
	t.Parallel()

	p := newPkg(t)
	out := p.write("container.gen.go", `package app

import (
	"time"
	store "example.com/proj/store"
)
`)

	got := readImportsFromExistingOut(out)
	want := []GoImport{{Path: "time"}, {Name: "store", Path: "example.com/proj/store"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v want %+v", got, want)
	}

	if readImportsFromExistingOut(p.out("missing.gen.go")) != nil {
		t.Fatalf("expected nil for missing output")
	}
	if readImportsFromExistingOut("  ") != nil {
		t.Fatalf("expected nil for empty path")
	}
}
