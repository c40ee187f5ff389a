package di

import (
	"errors"
	"strconv"
	"strings"

	"go.uber.org/multierr"

	"github.com/sghaida/odic/resolver"
)

var (
	// ErrScopeDisposed is returned when resolving from, or creating a child of,
	// a scope that is disposing or disposed.
	ErrScopeDisposed = errors.New("di: scope is disposed")

	// ErrProviderPanic is returned when a provider panics during construction.
	ErrProviderPanic = errors.New("di: panic during construction")

	// ErrDisposerPanic is returned when a disposer panics.
	ErrDisposerPanic = errors.New("di: panic during disposal")

	// ErrNilPlan is returned by New when no plan is given.
	ErrNilPlan = errors.New("di: nil plan")
)

// DependencyResolutionError is returned when a service cannot be resolved at
// runtime: a dynamic service the registry does not supply, or a top-level
// lookup that matches nothing or more than one service.
type DependencyResolutionError struct {
	Service resolver.ServiceID
	Reason  string
}

// Error implements the error interface.
func (e *DependencyResolutionError) Error() string {
	// Example: di: cannot resolve "*app.Clock": dynamic service not registered
	return "di: cannot resolve " + strconv.Quote(e.Service.String()) + ": " + e.Reason
}

// CircularResolutionError is returned when resolving a service re-enters a
// construction that is still in progress, typically by calling Lazy.Value
// from inside a constructor.
type CircularResolutionError struct {
	Path []resolver.ServiceID
}

// Error implements the error interface.
func (e *CircularResolutionError) Error() string {
	names := make([]string, 0, len(e.Path))
	for _, s := range e.Path {
		names = append(names, s.String())
	}
	// Example: di: circular resolution *A -> *B -> *A
	return "di: circular resolution " + strings.Join(names, " -> ")
}

// MissingProviderError is returned by New when the plan references a factory
// the provider table does not contain.
type MissingProviderError struct {
	Service resolver.ServiceID
	Factory string
}

// Error implements the error interface.
func (e *MissingProviderError) Error() string {
	// Example: di: no provider "NewRepo" for "*app.Repo"
	return "di: no provider " + strconv.Quote(e.Factory) + " for " + strconv.Quote(e.Service.String())
}

// ConstructionError wraps a provider failure with the service it was building.
type ConstructionError struct {
	Service resolver.ServiceID
	Err     error
}

// Error implements the error interface.
func (e *ConstructionError) Error() string {
	return "di: construct " + e.Service.String() + ": " + e.Err.Error()
}

// Unwrap returns the provider error.
func (e *ConstructionError) Unwrap() error { return e.Err }

// WrongTypeDependencyError is returned by the typed helpers when a resolved
// instance is not of the requested type.
type WrongTypeDependencyError struct {
	// Service is the identity that was resolved.
	Service resolver.ServiceID

	// GotType is the dynamic type of the resolved instance.
	GotType string
}

// Error implements the error interface.
func (e *WrongTypeDependencyError) Error() string {
	// Example: di: dependency "*app.Logger" has wrong type (*app.Repo)
	return "di: dependency " + strconv.Quote(e.Service.String()) + " has wrong type (" + e.GotType + ")"
}

// DisposalError aggregates every failure raised while disposing a scope or
// container. All disposers run before it is returned.
type DisposalError struct {
	Scope string
	Err   error
}

// Error implements the error interface.
func (e *DisposalError) Error() string {
	errs := multierr.Errors(e.Err)
	return "di: disposing scope " + e.Scope + ": " + strconv.Itoa(len(errs)) + " failed: " + e.Err.Error()
}

// Errors returns the individual disposal failures.
func (e *DisposalError) Errors() []error { return multierr.Errors(e.Err) }

// Unwrap exposes the individual failures to errors.Is/As.
func (e *DisposalError) Unwrap() []error { return multierr.Errors(e.Err) }
