package di

import (
	"fmt"
	"reflect"

	"github.com/sghaida/odic/resolver"
)

// Provider builds one service instance from its resolved arguments.
//
// args follows the descriptor's dependency order:
//   - Single: the instance
//   - Optional: the instance, or nil when absent
//   - Enumerable: a []any snapshot in declaration order
//   - Lazy: a *Lazy
type Provider func(args Args) (any, error)

// Providers maps factory names (constructor symbols or factory references)
// to their providers.
type Providers map[string]Provider

// Args are the resolved arguments passed to a Provider.
type Args []any

// Arg returns argument i as T. An absent optional argument yields the zero
// value. A mismatched type panics, which the container reports as a
// construction failure.
func Arg[T any](a Args, i int) T {
	var zero T
	if a[i] == nil {
		return zero
	}
	v, ok := a[i].(T)
	if !ok {
		panic(&WrongTypeDependencyError{
			Service: resolver.ServiceID{Type: TypeOf[T]()},
			GotType: reflect.TypeOf(a[i]).String(),
		})
	}
	return v
}

// Each returns the enumerable argument i as a []T.
func Each[T any](a Args, i int) []T {
	raw, _ := a[i].([]any)
	out := make([]T, 0, len(raw))
	for _, r := range raw {
		v, ok := r.(T)
		if !ok {
			panic(&WrongTypeDependencyError{
				Service: resolver.ServiceID{Type: TypeOf[T]()},
				GotType: reflect.TypeOf(r).String(),
			})
		}
		out = append(out, v)
	}
	return out
}

// LazyArg returns the lazy argument i.
func LazyArg(a Args, i int) *Lazy {
	l, _ := a[i].(*Lazy)
	return l
}

// TypeOf returns the type expression of T as descriptors spell it,
// e.g. "*app.Logger".
func TypeOf[T any]() string {
	return reflect.TypeFor[T]().String()
}

// call runs p, converting panics into errors.
func call(p Provider, args Args) (v any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			v = nil
			err = fmt.Errorf("%w: %v", ErrProviderPanic, rec)
		}
	}()
	return p(args)
}
