package resolver

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/sghaida/odic/resolver"

// Option configures Analyze. The same options are used by the generator at
// build time and by generated containers when they re-plan at start-up.
type Option func(*options)

type options struct {
	allowDynamic bool
	logger       *slog.Logger
	tracer       trace.Tracer
}

// WithAllowDynamic lets requirements with no static match resolve to
// services the host supplies at runtime.
func WithAllowDynamic(allow bool) Option {
	return func(o *options) { o.allowDynamic = allow }
}

// WithLogger sets the logger used for pass summaries and lazy-cycle notes.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithTracer overrides the tracer; the global otel provider is used otherwise.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		if t != nil {
			o.tracer = t
		}
	}
}

func newOptions(opts []Option) options {
	o := options{
		logger: slog.New(slog.DiscardHandler),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// Analyze runs graph building, cycle detection, scope validation and
// construction planning over descriptors.
//
// Unresolved requirements stop the analysis after graph building. Every other
// finding (invalid descriptors, ambiguous bindings, illegal cycles, captive
// dependencies) is collected before failing, so one run reports every
// problem. On failure the returned error is an *AnalysisError carrying every
// diagnostic.
func Analyze(ctx context.Context, descriptors []Descriptor, opts ...Option) (*Plan, error) {
	o := newOptions(opts)
	log := o.logger.With("component", "resolver")

	ctx, span := o.tracer.Start(ctx, "resolver.Analyze", trace.WithAttributes(
		attribute.Int("descriptors", len(descriptors)),
		attribute.Bool("allow_dynamic", o.allowDynamic),
	))
	defer span.End()

	fail := func(diags Diagnostics) (*Plan, error) {
		err := &AnalysisError{Diagnostics: diags}
		span.RecordError(err)
		span.SetStatus(codes.Error, "analysis failed")
		log.Error("analysis failed", "diagnostics", len(diags))
		return nil, err
	}

	_, pass := o.tracer.Start(ctx, "resolver.BuildGraph")
	g, diags := BuildGraph(descriptors, o.allowDynamic)
	pass.SetAttributes(attribute.Int("nodes", len(g.Nodes)))
	pass.End()
	log.Debug("graph built", "nodes", len(g.Nodes), "diagnostics", len(diags))
	if len(diags.OfKind(KindUnresolvedDependency)) > 0 {
		return fail(diags)
	}

	_, pass = o.tracer.Start(ctx, "resolver.DetectCycles")
	cycles := DetectCycles(g)
	pass.SetAttributes(attribute.Int("cycles", len(cycles)))
	pass.End()
	diags = append(diags, CycleDiagnostics(g, cycles)...)

	var legal []Cycle
	for _, c := range cycles {
		if !c.Legal {
			continue
		}
		legal = append(legal, c)
		diags = append(diags, Diagnostic{
			Kind:     KindLazyCycle,
			Severity: SeverityInfo,
			Services: c.Services(g),
			Message:  "cycle " + c.Path(g) + " is broken by a lazy requirement",
		})
		log.Debug("lazy cycle accepted", "path", c.Path(g))
	}

	_, pass = o.tracer.Start(ctx, "resolver.ValidateScopes")
	diags = append(diags, ValidateScopes(g)...)
	pass.End()
	if diags.HasErrors() {
		return fail(diags)
	}

	_, pass = o.tracer.Start(ctx, "resolver.PlanConstruction")
	plan, err := PlanConstruction(g)
	pass.End()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "planning failed")
		return nil, fmt.Errorf("resolver: plan construction: %w", err)
	}
	plan.Diagnostics = diags
	plan.LazyCycles = legal

	log.Info("construction plan ready",
		"steps", len(plan.Steps),
		"dynamic", len(plan.Dynamic),
		"lazy_cycles", len(legal))
	return plan, nil
}

// MustAnalyze is like Analyze but panics on failure. Intended for generated
// code whose descriptor table was already validated at generation time.
func MustAnalyze(descriptors []Descriptor, opts ...Option) *Plan {
	p, err := Analyze(context.Background(), descriptors, opts...)
	if err != nil {
		panic(err)
	}
	return p
}
