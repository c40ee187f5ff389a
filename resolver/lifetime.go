package resolver

import "strconv"

// Lifetime controls how many instances of a service a container creates.
type Lifetime int

const (
	// Singleton services are constructed once per container and shared by
	// every scope.
	Singleton Lifetime = iota

	// Scoped services are constructed once per scope (unit of work).
	Scoped

	// Transient services are constructed on every resolution.
	Transient
)

// String returns the lower-case name of the lifetime.
func (l Lifetime) String() string {
	switch l {
	case Singleton:
		return "singleton"
	case Scoped:
		return "scoped"
	case Transient:
		return "transient"
	default:
		return "lifetime(" + strconv.Itoa(int(l)) + ")"
	}
}

// Valid reports whether l is one of the declared lifetimes.
func (l Lifetime) Valid() bool { return l >= Singleton && l <= Transient }

// MarshalText implements encoding.TextMarshaler.
func (l Lifetime) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, UnknownEnumError{Enum: "lifetime", Value: strconv.Itoa(int(l))}
	}
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Lifetime) UnmarshalText(b []byte) error {
	switch string(b) {
	case "singleton":
		*l = Singleton
	case "scoped":
		*l = Scoped
	case "transient", "":
		*l = Transient
	default:
		return UnknownEnumError{Enum: "lifetime", Value: string(b)}
	}
	return nil
}

// Cardinality describes how many targets a requirement binds to and whether
// the binding is deferred.
type Cardinality int

const (
	// Single requires exactly one matching service.
	Single Cardinality = iota

	// Optional accepts zero or one matching service.
	Optional

	// Enumerable collects every matching service in declaration order.
	Enumerable

	// Lazy requires exactly one matching service, constructed on first access.
	Lazy
)

// String returns the lower-case name of the cardinality.
func (c Cardinality) String() string {
	switch c {
	case Single:
		return "single"
	case Optional:
		return "optional"
	case Enumerable:
		return "enumerable"
	case Lazy:
		return "lazy"
	default:
		return "cardinality(" + strconv.Itoa(int(c)) + ")"
	}
}

// Valid reports whether c is one of the declared cardinalities.
func (c Cardinality) Valid() bool { return c >= Single && c <= Lazy }

// Eager reports whether the dependency must exist before its consumer is built.
func (c Cardinality) Eager() bool { return c != Lazy }

// MarshalText implements encoding.TextMarshaler.
func (c Cardinality) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, UnknownEnumError{Enum: "cardinality", Value: strconv.Itoa(int(c))}
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Cardinality) UnmarshalText(b []byte) error {
	switch string(b) {
	case "single", "":
		*c = Single
	case "optional":
		*c = Optional
	case "enumerable":
		*c = Enumerable
	case "lazy":
		*c = Lazy
	default:
		return UnknownEnumError{Enum: "cardinality", Value: string(b)}
	}
	return nil
}

// UnknownEnumError is returned when a lifetime or cardinality name is not recognised.
type UnknownEnumError struct {
	Enum  string
	Value string
}

// Error implements the error interface.
func (e UnknownEnumError) Error() string {
	// Example: resolver: unknown lifetime "forever"
	return "resolver: unknown " + e.Enum + " " + strconv.Quote(e.Value)
}
