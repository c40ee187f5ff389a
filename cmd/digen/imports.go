package main

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/mod/modfile"
)

// -------------------------
// Import inference
// -------------------------
//
// The runtime packages (di and resolver) are taken from the target package's
// own sources when they already import them, which lets a project pin a fork.
// Otherwise they are computed from the go.mod of the module containing
// digen itself.

type GoImport struct {
	Name string // optional alias
	Path string
}

// runtimeImports returns the di and resolver import paths for a generated
// file written into pkgDir.
func runtimeImports(pkgDir string) (diPath, resolverPath string, err error) {
	if diPath, resolverPath, ok := scannedRuntime(scanPackageImports(pkgDir)); ok {
		return diPath, resolverPath, nil
	}

	modPath, err := generatorModule()
	if err != nil {
		return "", "", err
	}
	return modPath + "/di", modPath + "/resolver", nil
}

// generatorModule returns the module path of the module digen was built from.
func generatorModule() (string, error) {
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		die("cannot infer runtime import: runtime.Caller failed")
	}
	_, modPath, err := findModule(filepath.Dir(thisFile))
	if err != nil {
		return "", &cmdError{msg: "cannot infer runtime import: " + err.Error()}
	}
	return modPath, nil
}

// -------------------------
// go.mod helpers
// -------------------------

type cmdError struct{ msg string }

func (e *cmdError) Error() string { return e.msg }

// findModule walks up from startDir to the nearest go.mod and returns its
// directory and module path.
func findModule(startDir string) (modRoot string, modPath string, err error) {
	dir := startDir
	for {
		gomod := filepath.Join(dir, "go.mod")
		if fileExists(gomod) {
			b, rerr := os.ReadFile(gomod)
			if rerr != nil {
				return "", "", rerr
			}
			path := modfile.ModulePath(b)
			if path == "" {
				if _, perr := modfile.Parse(gomod, b, nil); perr != nil {
					return "", "", perr
				}
				return "", "", &cmdError{msg: "go.mod missing module directive at " + filepath.ToSlash(gomod)}
			}
			return dir, path, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", "", &cmdError{msg: "could not find go.mod starting from " + filepath.ToSlash(startDir)}
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}

// -------------------------
// Package sources
// -------------------------

// scanPackageImports reads imports from the hand-written .go files in pkgDir,
// skipping tests and generated outputs, and keeps their aliases.
func scanPackageImports(pkgDir string) []GoImport {
	entries, err := os.ReadDir(pkgDir)
	if err != nil {
		return nil
	}

	var out []GoImport
	fset := token.NewFileSet()

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		if strings.HasSuffix(name, ".gen.go") || strings.HasSuffix(name, "_gen.go") {
			continue
		}

		full := filepath.Join(pkgDir, name)
		f, perr := parser.ParseFile(fset, full, nil, parser.ImportsOnly)
		if perr != nil {
			continue
		}
		out = append(out, fileImports(f.Imports)...)
	}

	return dedupeAndSortImports(out)
}

// scannedRuntime finds the runtime packages among a package's imports. A di
// import next to its sibling resolver import wins over a lone di import.
func scannedRuntime(imports []GoImport) (diPath, resolverPath string, ok bool) {
	paths := make(map[string]bool, len(imports))
	for _, gi := range imports {
		paths[gi.Path] = true
	}
	for _, gi := range imports {
		root, found := strings.CutSuffix(gi.Path, "/di")
		if !found {
			continue
		}
		if paths[root+"/resolver"] {
			return gi.Path, root + "/resolver", true
		}
		if !ok {
			diPath, resolverPath, ok = gi.Path, root+"/resolver", true
		}
	}
	return diPath, resolverPath, ok
}

// -------------------------
// Import preservation from existing generated file
// -------------------------

// readImportsFromExistingOut returns the imports of a previous output so that
// manually added ones survive regeneration.
func readImportsFromExistingOut(outPath string) []GoImport {
	if strings.TrimSpace(outPath) == "" {
		return nil
	}
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, outPath, nil, parser.ImportsOnly)
	if err != nil {
		return nil
	}
	return fileImports(f.Imports)
}

func fileImports(specs []*ast.ImportSpec) []GoImport {
	out := make([]GoImport, 0, len(specs))
	for _, imp := range specs {
		path := strings.Trim(imp.Path.Value, `"`)
		name := ""
		if imp.Name != nil {
			name = imp.Name.Name
		}
		out = append(out, GoImport{Name: name, Path: path})
	}
	return out
}

// mergeImports unions required and preserved imports. When the same path
// appears with and without an alias only the required spelling is kept.
func mergeImports(required []GoImport, preserved []GoImport) []GoImport {
	byPath := map[string]bool{}
	out := make([]GoImport, 0, len(required)+len(preserved))
	for _, gi := range required {
		out = append(out, gi)
		byPath[gi.Path] = true
	}
	for _, gi := range preserved {
		if byPath[gi.Path] {
			continue
		}
		out = append(out, gi)
	}
	return dedupeAndSortImports(out)
}

func dedupeAndSortImports(imps []GoImport) []GoImport {
	seen := map[GoImport]bool{}
	out := make([]GoImport, 0, len(imps))
	for _, gi := range imps {
		if seen[gi] {
			continue
		}
		seen[gi] = true
		out = append(out, gi)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path == out[j].Path {
			return out[i].Name < out[j].Name
		}
		return out[i].Path < out[j].Path
	})
	return out
}
