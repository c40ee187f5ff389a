package main

import (
	"errors"
	"fmt"
	"go/token"
	"os"
	"reflect"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/go-playground/validator/v10"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/sghaida/odic/resolver"
)

// supportedVersions gates the descriptor file format.
const supportedVersions = "^1"

// ContainerSpec is the descriptor file digen reads. JSON files are accepted
// as well since they are valid YAML.
type ContainerSpec struct {
	Version string `yaml:"version" validate:"required"`
	Package string `yaml:"package" validate:"required,goident"`

	// Name prefixes the generated functions: <Name>Descriptors,
	// <Name>Providers and New<Name>.
	Name string `yaml:"name" validate:"required,goident"`

	// AllowDynamic binds requirements nothing provides to dynamic services.
	AllowDynamic bool `yaml:"allowDynamic"`

	Imports  []ImportSpec  `yaml:"imports" validate:"omitempty,dive"`
	Services []ServiceSpec `yaml:"services" validate:"required,min=1,dive"`
}

// ImportSpec is an import the generated file needs for service types or
// constructors.
type ImportSpec struct {
	Name string `yaml:"name" validate:"omitempty,goident"`
	Path string `yaml:"path" validate:"required"`
}

// ServiceSpec describes one service.
type ServiceSpec struct {
	// Type is the service identity. It is also the Go type expression used
	// in the generated code unless GoType is set.
	Type   string `yaml:"type" validate:"required"`
	GoType string `yaml:"goType"`
	Key    string `yaml:"key"`

	// Lifetime defaults to transient.
	Lifetime string `yaml:"lifetime" validate:"omitempty,oneof=singleton scoped transient"`

	// Constructor names the function building the service. Factory names any
	// other function-valued expression (a method value, a package variable)
	// and is used instead of a constructor.
	Constructor  string `yaml:"constructor" validate:"required_without_all=Factory Dynamic"`
	Factory      string `yaml:"factory" validate:"excluded_with=Constructor"`
	ReturnsError bool   `yaml:"returnsError"`
	Dynamic      bool   `yaml:"dynamic"`
	Disposable   bool   `yaml:"disposable"`

	Dependencies []DependencySpec `yaml:"dependencies" validate:"omitempty,dive"`
}

// DependencySpec is one constructor argument.
type DependencySpec struct {
	Type string `yaml:"type" validate:"required"`
	Key  string `yaml:"key"`

	// Cardinality defaults to single.
	Cardinality string `yaml:"cardinality" validate:"omitempty,oneof=single optional enumerable lazy"`
	Name        string `yaml:"name"`
}

var specValidate *validator.Validate

func init() {
	specValidate = validator.New()
	specValidate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = specValidate.RegisterValidation("goident", func(fl validator.FieldLevel) bool {
		return token.IsIdentifier(fl.Field().String())
	})
}

// loadSpec reads and validates the descriptor file at path. The raw bytes are
// returned for the header hash.
func loadSpec(path string) (*ContainerSpec, []byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read spec: %w", err)
	}
	spec, err := parseSpec(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("spec %s: %w", path, err)
	}
	return spec, raw, nil
}

func parseSpec(raw []byte) (*ContainerSpec, error) {
	var spec ContainerSpec
	if err := yaml.Unmarshal(raw, &spec); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := spec.validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

func (s *ContainerSpec) validate() error {
	if err := specValidate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		var out error
		for _, fe := range verrs {
			out = multierr.Append(out, fmt.Errorf("%s: failed %q", fieldPath(fe.Namespace()), fe.Tag()))
		}
		return out
	}

	v, err := semver.NewVersion(s.Version)
	if err != nil {
		return fmt.Errorf("version %q: %w", s.Version, err)
	}
	c, err := semver.NewConstraint(supportedVersions)
	if err != nil {
		return err
	}
	if !c.Check(v) {
		return fmt.Errorf("unsupported spec version %s (want %s)", v, supportedVersions)
	}
	return nil
}

// fieldPath drops the root struct name: "ContainerSpec.services[0].type"
// becomes "services[0].type".
func fieldPath(ns string) string {
	_, rest, ok := strings.Cut(ns, ".")
	if !ok {
		return ns
	}
	return rest
}

// Descriptors converts the services into resolver descriptors, preserving
// declaration order.
func (s *ContainerSpec) Descriptors() ([]resolver.Descriptor, error) {
	out := make([]resolver.Descriptor, 0, len(s.Services))
	for i, svc := range s.Services {
		var lt resolver.Lifetime
		if err := lt.UnmarshalText([]byte(svc.Lifetime)); err != nil {
			return nil, fmt.Errorf("services[%d]: %w", i, err)
		}
		d := resolver.Descriptor{
			Type:       svc.Type,
			Key:        svc.Key,
			Lifetime:   lt,
			Dynamic:    svc.Dynamic,
			Disposable: svc.Disposable,
		}
		if !svc.Dynamic {
			d.Factory = resolver.Factory{Constructor: svc.Constructor, Ref: svc.Factory, ReturnsError: svc.ReturnsError}
		}
		for j, dep := range svc.Dependencies {
			var card resolver.Cardinality
			if err := card.UnmarshalText([]byte(dep.Cardinality)); err != nil {
				return nil, fmt.Errorf("services[%d].dependencies[%d]: %w", i, j, err)
			}
			d.Dependencies = append(d.Dependencies, resolver.Requirement{
				Type:        dep.Type,
				Key:         dep.Key,
				Cardinality: card,
				Name:        dep.Name,
			})
		}
		out = append(out, d)
	}
	return out, nil
}

// goTypeOf returns the Go type expression for a service type: the first
// declared GoType override, or typ itself.
func (s *ContainerSpec) goTypeOf(typ string) string {
	for _, svc := range s.Services {
		if svc.Type == typ && strings.TrimSpace(svc.GoType) != "" {
			return svc.GoType
		}
	}
	return typ
}
