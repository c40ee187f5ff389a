package di

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sghaida/odic/resolver"
)

// Option configures a Container. The same options drive the analysis Build
// runs before the container is created.
type Option func(*options)

type options struct {
	registry     Registry
	logger       *slog.Logger
	metrics      prometheus.Registerer
	allowDynamic bool
	analysis     []resolver.Option
}

// WithRegistry sets the source of dynamic services.
func WithRegistry(r Registry) Option {
	return func(o *options) {
		if r != nil {
			o.registry = r
		}
	}
}

// WithLogger sets the logger for scope lifecycle and disposal failures.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics registers the runtime collectors with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) { o.metrics = reg }
}

// WithAllowDynamic lets Build bind unmatched requirements to dynamic services.
// It has no effect on New, whose plan is already analysed.
func WithAllowDynamic(allow bool) Option {
	return func(o *options) { o.allowDynamic = allow }
}

// WithAnalysisOptions passes extra options to resolver.Analyze in Build.
func WithAnalysisOptions(opts ...resolver.Option) Option {
	return func(o *options) { o.analysis = append(o.analysis, opts...) }
}

func newOptions(opts []Option) options {
	o := options{
		registry: emptyRegistry{},
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

func (o options) resolverOptions() []resolver.Option {
	out := []resolver.Option{
		resolver.WithAllowDynamic(o.allowDynamic),
		resolver.WithLogger(o.logger),
	}
	return append(out, o.analysis...)
}
