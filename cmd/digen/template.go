package main

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	"github.com/sghaida/odic/resolver"
)

// providerModel is one entry of the generated provider table.
type providerModel struct {
	Factory      string
	Call         string
	ReturnsError bool
	Args         []string
}

// render produces the unformatted source of the generated container file.
func render(spec *ContainerSpec, descriptors []resolver.Descriptor, specPath string, raw []byte, imports []GoImport) ([]byte, error) {
	providers, err := providerTable(spec, descriptors)
	if err != nil {
		return nil, err
	}

	literals := make([]string, 0, len(descriptors))
	for _, d := range descriptors {
		literals = append(literals, descriptorLiteral(d))
	}

	data := map[string]any{
		"Spec":        spec,
		"SpecPath":    filepath.ToSlash(specPath),
		"SpecHash":    sha256Hex(raw),
		"Imports":     imports,
		"Descriptors": literals,
		"Providers":   providers,
	}
	return mustExecTemplate(containerTpl, data), nil
}

// providerTable builds one provider per distinct constructor. A constructor
// shared by several services must be declared with the same arguments each
// time.
func providerTable(spec *ContainerSpec, descriptors []resolver.Descriptor) ([]providerModel, error) {
	var out []providerModel
	seen := map[string]int{}

	for _, d := range descriptors {
		if d.Dynamic {
			continue
		}
		p := providerModel{
			Factory:      d.Factory.Name(),
			Call:         d.Factory.Name(),
			ReturnsError: d.Factory.ReturnsError,
		}
		for i, req := range d.Dependencies {
			p.Args = append(p.Args, argExpr(spec.goTypeOf(req.Type), req.Cardinality, i))
		}

		if j, ok := seen[p.Factory]; ok {
			prev := out[j]
			if prev.ReturnsError != p.ReturnsError || strings.Join(prev.Args, ",") != strings.Join(p.Args, ",") {
				return nil, fmt.Errorf("constructor %q is declared with different signatures", p.Factory)
			}
			continue
		}
		seen[p.Factory] = len(out)
		out = append(out, p)
	}
	return out, nil
}

func argExpr(goType string, c resolver.Cardinality, i int) string {
	switch c {
	case resolver.Enumerable:
		return fmt.Sprintf("di.Each[%s](a, %d)", goType, i)
	case resolver.Lazy:
		return fmt.Sprintf("di.LazyArg(a, %d)", i)
	default:
		return fmt.Sprintf("di.Arg[%s](a, %d)", goType, i)
	}
}

var lifetimeIdents = map[resolver.Lifetime]string{
	resolver.Singleton: "resolver.Singleton",
	resolver.Scoped:    "resolver.Scoped",
	resolver.Transient: "resolver.Transient",
}

var cardinalityIdents = map[resolver.Cardinality]string{
	resolver.Single:     "resolver.Single",
	resolver.Optional:   "resolver.Optional",
	resolver.Enumerable: "resolver.Enumerable",
	resolver.Lazy:       "resolver.Lazy",
}

// descriptorLiteral renders d as a resolver.Descriptor composite literal,
// omitting zero fields.
func descriptorLiteral(d resolver.Descriptor) string {
	fields := []string{
		"Type: " + strconv.Quote(d.Type),
	}
	if d.Key != "" {
		fields = append(fields, "Key: "+strconv.Quote(d.Key))
	}
	fields = append(fields, "Lifetime: "+lifetimeIdents[d.Lifetime])

	if len(d.Dependencies) > 0 {
		reqs := make([]string, 0, len(d.Dependencies))
		for _, r := range d.Dependencies {
			req := []string{"Type: " + strconv.Quote(r.Type)}
			if r.Key != "" {
				req = append(req, "Key: "+strconv.Quote(r.Key))
			}
			req = append(req, "Cardinality: "+cardinalityIdents[r.Cardinality])
			if r.Name != "" {
				req = append(req, "Name: "+strconv.Quote(r.Name))
			}
			reqs = append(reqs, "{"+strings.Join(req, ", ")+"}")
		}
		fields = append(fields, "Dependencies: []resolver.Requirement{"+strings.Join(reqs, ", ")+"}")
	}

	if name := d.Factory.Name(); name != "" {
		f := "Factory: resolver.Factory{Constructor: " + strconv.Quote(name)
		if d.Factory.Constructor == "" {
			f = "Factory: resolver.Factory{Ref: " + strconv.Quote(name)
		}
		if d.Factory.ReturnsError {
			f += ", ReturnsError: true"
		}
		fields = append(fields, f+"}")
	}
	if d.Dynamic {
		fields = append(fields, "Dynamic: true")
	}
	if d.Disposable {
		fields = append(fields, "Disposable: true")
	}
	return "{" + strings.Join(fields, ", ") + "}"
}

// -------------------------
// Misc helpers
// -------------------------

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func mustExecTemplate(tpl *template.Template, data any) []byte {
	var sb strings.Builder
	must(tpl.Execute(&sb, data))
	return []byte(sb.String())
}

// writeFormatted gofmts src into out. Unformattable source is still written
// so the failure can be inspected.
func writeFormatted(out string, src []byte) error {
	fmtSrc, err := format.Source(src)
	if err != nil {
		_ = os.WriteFile(out, src, 0o644)
		return fmt.Errorf("gofmt/format failed: %w", err)
	}
	return os.WriteFile(out, fmtSrc, 0o644)
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

func die(msg string) {
	panic(msg)
}

// -------------------------
// Templates
// -------------------------

var containerTpl = template.Must(
	template.New("container").
		Funcs(template.FuncMap{
			"join": strings.Join,
		}).
		Parse(`// Code generated by digen; DO NOT EDIT.
// Spec: {{.SpecPath}}
// Spec-SHA256: {{.SpecHash}}

package {{.Spec.Package}}

import (
{{- range .Imports }}
	{{- if .Name }}
	{{ .Name }} "{{ .Path }}"
	{{- else }}
	"{{ .Path }}"
	{{- end }}
{{- end }}
)

// {{.Spec.Name}}Descriptors returns the descriptor table of the {{.Spec.Name}} container
// in declaration order.
func {{.Spec.Name}}Descriptors() []resolver.Descriptor {
	return []resolver.Descriptor{
{{- range .Descriptors }}
		{{ . }},
{{- end }}
	}
}

// {{.Spec.Name}}Providers returns a provider for every constructor in
// {{.Spec.Name}}Descriptors.
func {{.Spec.Name}}Providers() di.Providers {
	return di.Providers{
{{- range .Providers }}
		{{ printf "%q" .Factory }}: func(a di.Args) (any, error) {
	{{- if .ReturnsError }}
			return {{ .Call }}({{ join .Args ", " }})
	{{- else }}
			return {{ .Call }}({{ join .Args ", " }}), nil
	{{- end }}
		},
{{- end }}
	}
}

// New{{.Spec.Name}} analyses {{.Spec.Name}}Descriptors and builds the container.
func New{{.Spec.Name}}(opts ...di.Option) (*di.Container, error) {
{{- if .Spec.AllowDynamic }}
	opts = append([]di.Option{di.WithAllowDynamic(true)}, opts...)
{{- end }}
	return di.Build(context.Background(), {{.Spec.Name}}Descriptors(), {{.Spec.Name}}Providers(), opts...)
}
`))
