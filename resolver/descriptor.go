package resolver

import "strconv"

// ServiceID identifies a service by its declared type and optional key.
//
// Type is an opaque type expression supplied by the metadata collaborator
// (for generated Go code it is the Go type, e.g. "*app.Logger").
type ServiceID struct {
	Type string `json:"type" yaml:"type"`
	Key  string `json:"key,omitempty" yaml:"key,omitempty"`
}

// String renders the identity as Type or Type[key].
func (id ServiceID) String() string {
	if id.Key == "" {
		return id.Type
	}
	return id.Type + "[" + strconv.Quote(id.Key) + "]"
}

// Requirement is a single dependency declared by a service constructor.
type Requirement struct {
	Type        string      `json:"type" yaml:"type"`
	Key         string      `json:"key,omitempty" yaml:"key,omitempty"`
	Cardinality Cardinality `json:"cardinality" yaml:"cardinality"`

	// Name is the constructor parameter name. Diagnostics and codegen only.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
}

// Service returns the identity this requirement asks for.
func (r Requirement) Service() ServiceID { return ServiceID{Type: r.Type, Key: r.Key} }

// Keyed returns a copy of r restricted to services registered under key.
func (r Requirement) Keyed(key string) Requirement {
	r.Key = key
	return r
}

// Named returns a copy of r with the parameter name set.
func (r Requirement) Named(name string) Requirement {
	r.Name = name
	return r
}

// matches reports whether a descriptor satisfies the type/key filter.
// An unkeyed requirement matches any key.
func (r Requirement) matches(d *Descriptor) bool {
	if d.Type != r.Type {
		return false
	}
	return r.Key == "" || r.Key == d.Key
}

// Need declares a Single requirement.
func Need(typ string) Requirement { return Requirement{Type: typ, Cardinality: Single} }

// Maybe declares an Optional requirement.
func Maybe(typ string) Requirement { return Requirement{Type: typ, Cardinality: Optional} }

// All declares an Enumerable requirement.
func All(typ string) Requirement { return Requirement{Type: typ, Cardinality: Enumerable} }

// LazyOf declares a Lazy requirement.
func LazyOf(typ string) Requirement { return Requirement{Type: typ, Cardinality: Lazy} }

// Factory says how a descriptor is constructed: by calling a constructor
// symbol, or through an explicit factory reference. Exactly one is set.
type Factory struct {
	Constructor string `json:"constructor,omitempty" yaml:"constructor,omitempty"`
	Ref         string `json:"ref,omitempty" yaml:"ref,omitempty"`

	// ReturnsError marks constructors with a (T, error) signature.
	ReturnsError bool `json:"returnsError,omitempty" yaml:"returnsError,omitempty"`
}

// Name returns the constructor or factory reference, whichever is set.
func (f Factory) Name() string {
	if f.Constructor != "" {
		return f.Constructor
	}
	return f.Ref
}

// Descriptor declares one injectable service.
type Descriptor struct {
	Type         string        `json:"type" yaml:"type"`
	Key          string        `json:"key,omitempty" yaml:"key,omitempty"`
	Lifetime     Lifetime      `json:"lifetime" yaml:"lifetime"`
	Dependencies []Requirement `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Factory      Factory       `json:"factory" yaml:"factory"`

	// Dynamic descriptors are supplied by the host at runtime instead of
	// being constructed by the container.
	Dynamic bool `json:"dynamic,omitempty" yaml:"dynamic,omitempty"`

	// Disposable marks instances that must be released when their owner ends.
	Disposable bool `json:"disposable,omitempty" yaml:"disposable,omitempty"`
}

// Service returns the descriptor identity.
func (d Descriptor) Service() ServiceID { return ServiceID{Type: d.Type, Key: d.Key} }

// Describe builds a descriptor constructed by ctor.
//
//	resolver.Describe("*app.Repo", resolver.Scoped, "NewRepo", resolver.Need("*app.Logger"))
func Describe(typ string, lifetime Lifetime, ctor string, deps ...Requirement) Descriptor {
	return Descriptor{
		Type:         typ,
		Lifetime:     lifetime,
		Dependencies: deps,
		Factory:      Factory{Constructor: ctor},
	}
}

// External builds a dynamic descriptor supplied by the host at runtime.
func External(typ string, lifetime Lifetime) Descriptor {
	return Descriptor{Type: typ, Lifetime: lifetime, Dynamic: true}
}

// WithKey returns a copy of d registered under key.
func (d Descriptor) WithKey(key string) Descriptor {
	d.Key = key
	return d
}

// AsDisposable returns a copy of d whose instances are tracked for disposal.
func (d Descriptor) AsDisposable() Descriptor {
	d.Disposable = true
	return d
}

// AsDynamic returns a copy of d supplied by the host at runtime.
func (d Descriptor) AsDynamic() Descriptor {
	d.Dynamic = true
	return d
}

// WithFactory returns a copy of d built through an explicit factory reference.
func (d Descriptor) WithFactory(ref string) Descriptor {
	d.Factory = Factory{Ref: ref}
	return d
}
