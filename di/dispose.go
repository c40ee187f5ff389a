package di

import (
	"context"
	"fmt"
	"io"

	"github.com/sghaida/odic/resolver"
)

// AsyncDisposable is implemented by services whose release may block on I/O.
// It is preferred over Disposable and io.Closer.
type AsyncDisposable interface {
	DisposeAsync(ctx context.Context) error
}

// Disposable is implemented by services that release resources synchronously.
type Disposable interface {
	Dispose() error
}

// tracked is an instance awaiting disposal by its owner.
type tracked struct {
	service  resolver.ServiceID
	instance any
}

// isDisposable reports whether v implements one of the disposal interfaces.
func isDisposable(v any) bool {
	switch v.(type) {
	case AsyncDisposable, Disposable, io.Closer:
		return true
	}
	return false
}

// dispose releases one instance through the first interface it implements,
// converting panics into errors.
func (t tracked) dispose(ctx context.Context) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("dispose %s: %w: %v", t.service, ErrDisposerPanic, rec)
		}
	}()

	switch d := t.instance.(type) {
	case AsyncDisposable:
		err = d.DisposeAsync(ctx)
	case Disposable:
		err = d.Dispose()
	case io.Closer:
		err = d.Close()
	}
	if err != nil {
		return fmt.Errorf("dispose %s: %w", t.service, err)
	}
	return nil
}
