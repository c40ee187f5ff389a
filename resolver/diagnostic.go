package resolver

import (
	"strconv"
	"strings"

	"go.uber.org/multierr"
)

// Kind classifies a diagnostic.
type Kind string

const (
	KindInvalidDescriptor    Kind = "InvalidDescriptor"
	KindUnresolvedDependency Kind = "UnresolvedDependency"
	KindAmbiguousDependency  Kind = "AmbiguousDependency"
	KindIllegalCycle         Kind = "IllegalCycle"
	KindCaptiveDependency    Kind = "CaptiveDependency"
	KindLazyCycle            Kind = "LazyCycle"
)

// Severity of a diagnostic. Only SeverityError blocks generation.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Diagnostic is a structured generation-time finding.
type Diagnostic struct {
	Kind     Kind        `json:"kind"`
	Severity Severity    `json:"severity"`
	Services []ServiceID `json:"services"`
	Message  string      `json:"message"`
}

// Error implements the error interface so a diagnostic can travel as an error.
func (d Diagnostic) Error() string {
	return string(d.Severity) + " " + string(d.Kind) + ": " + d.Message
}

// Diagnostics is an ordered collection of findings.
type Diagnostics []Diagnostic

// HasErrors reports whether any diagnostic has error severity.
func (ds Diagnostics) HasErrors() bool {
	for _, d := range ds {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// OfKind returns the diagnostics of kind k, preserving order.
func (ds Diagnostics) OfKind(k Kind) Diagnostics {
	var out Diagnostics
	for _, d := range ds {
		if d.Kind == k {
			out = append(out, d)
		}
	}
	return out
}

// Err combines error-severity diagnostics into a single error, or nil.
func (ds Diagnostics) Err() error {
	var err error
	for _, d := range ds {
		if d.Severity == SeverityError {
			err = multierr.Append(err, d)
		}
	}
	return err
}

// String renders one diagnostic per line.
func (ds Diagnostics) String() string {
	var sb strings.Builder
	for _, d := range ds {
		sb.WriteString(d.Error())
		sb.WriteByte('\n')
	}
	return sb.String()
}

func newDiagnostic(kind Kind, msg string, services ...ServiceID) Diagnostic {
	return Diagnostic{Kind: kind, Severity: SeverityError, Services: services, Message: msg}
}

// AnalysisError is returned by Analyze when generation must not proceed.
type AnalysisError struct {
	Diagnostics Diagnostics
}

// Error implements the error interface.
func (e *AnalysisError) Error() string {
	n := 0
	for _, d := range e.Diagnostics {
		if d.Severity == SeverityError {
			n++
		}
	}
	return "resolver: analysis failed with " + pluralize(n, "error") + "\n" + e.Diagnostics.String()
}

// Unwrap exposes the individual error diagnostics to errors.Is/As.
func (e *AnalysisError) Unwrap() []error { return multierr.Errors(e.Diagnostics.Err()) }

func pluralize(n int, word string) string {
	s := strconv.Itoa(n) + " " + word
	if n != 1 {
		s += "s"
	}
	return s
}
