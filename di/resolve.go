package di

import (
	"reflect"

	"github.com/sghaida/odic/resolver"
)

// Resolver is the lookup surface shared by *Container and *Scope.
type Resolver interface {
	Resolve(typ string) (any, error)
	ResolveKeyed(typ, key string) (any, error)
	ResolveOptional(typ string) (any, error)
	ResolveEnumerable(typ string) ([]any, error)
}

var (
	_ Resolver = (*Container)(nil)
	_ Resolver = (*Scope)(nil)
)

// Resolve resolves typ and asserts it as T.
//
//	logger, err := di.Resolve[*app.Logger](scope, "*app.Logger")
func Resolve[T any](r Resolver, typ string) (T, error) {
	return ResolveKeyed[T](r, typ, "")
}

// ResolveKeyed resolves (typ, key) and asserts it as T.
func ResolveKeyed[T any](r Resolver, typ, key string) (T, error) {
	var zero T
	raw, err := r.ResolveKeyed(typ, key)
	if err != nil {
		return zero, err
	}
	return as[T](resolver.ServiceID{Type: typ, Key: key}, raw)
}

// ResolveOptional resolves typ when present. ok is false when no service of
// that type exists.
func ResolveOptional[T any](r Resolver, typ string) (v T, ok bool, err error) {
	raw, err := r.ResolveOptional(typ)
	if err != nil || raw == nil {
		return v, false, err
	}
	v, err = as[T](resolver.ServiceID{Type: typ}, raw)
	return v, err == nil, err
}

// ResolveEnumerable resolves every service of type typ as a []T in
// declaration order.
func ResolveEnumerable[T any](r Resolver, typ string) ([]T, error) {
	raw, err := r.ResolveEnumerable(typ)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(raw))
	for _, item := range raw {
		v, err := as[T](resolver.ServiceID{Type: typ}, item)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// LazyValue resolves a lazy cell and asserts its value as T.
func LazyValue[T any](l *Lazy) (T, error) {
	var zero T
	raw, err := l.Value()
	if err != nil {
		return zero, err
	}
	return as[T](l.Service(), raw)
}

// MustResolve is like Resolve but panics on failure.
func MustResolve[T any](r Resolver, typ string) T {
	v, err := Resolve[T](r, typ)
	if err != nil {
		panic(err)
	}
	return v
}

func as[T any](id resolver.ServiceID, raw any) (T, error) {
	v, ok := raw.(T)
	if !ok {
		got := "<nil>"
		if raw != nil {
			got = reflect.TypeOf(raw).String()
		}
		return v, &WrongTypeDependencyError{Service: id, GotType: got}
	}
	return v, nil
}
