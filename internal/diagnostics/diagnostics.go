// Package diagnostics implements the core's diagnostic sink: a place to
// report severities, node locations and classifier kinds without owning
// any rendering. Rendering a diagnostic into text for a human belongs to
// an external listing/formatter collaborator.
package diagnostics

import (
	"fmt"

	"github.com/pkg/errors"
)

// Severity classifies how serious a diagnostic is.
type Severity int

const (
	Warning Severity = iota
	Error
	SyntaxError
	RuntimeError
)

func (s Severity) String() string {
	switch s {
	case Warning:
		return "WARNING"
	case Error:
		return "ERROR"
	case SyntaxError:
		return "SYNTAX_ERROR"
	case RuntimeError:
		return "RUNTIME_ERROR"
	default:
		return "UNKNOWN"
	}
}

// Kind is the short classifier carried by every diagnostic, matching
// the taxonomy in spec.md §7.
type Kind string

const (
	KindUninitialized    Kind = "UNINITIALISED_VALUE"
	KindNilAccess        Kind = "ACCESSING_NIL"
	KindOutOfBounds      Kind = "OUT_OF_BOUNDS"
	KindDifferentBounds  Kind = "DIFFERENT_BOUNDS"
	KindScopeViolation   Kind = "SCOPE_VIOLATION"
	KindDivideByZero     Kind = "DIVIDE_BY_ZERO"
	KindStackExhausted   Kind = "STACK_EXHAUSTED"
	KindOutOfCore        Kind = "OUT_OF_CORE"
	KindTooManyErrors    Kind = "TOO_MANY_ERRORS"
	KindAssertionFailed  Kind = "ASSERTION_FAILED"
)

// Location pinpoints a diagnostic in the original source text. Line
// numbers, not byte offsets, since that is what the (out-of-scope)
// listing formatter keys off of.
type Location struct {
	File   string
	Line   int
	Column int
}

func (l Location) String() string {
	if l.File == "" {
		return fmt.Sprintf("%d:%d", l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// Arg is one of the mode/node/int/string arguments a diagnostic
// template may carry, per spec.md §9's DiagArg redesign note.
type Arg struct {
	ModeName string
	NodeTag  string
	Int      int
	Str      string
}

func ModeArg(name string) Arg { return Arg{ModeName: name} }
func NodeArg(tag string) Arg  { return Arg{NodeTag: tag} }
func IntArg(v int) Arg        { return Arg{Int: v} }
func StrArg(v string) Arg     { return Arg{Str: v} }

// Diagnostic is one reported event.
type Diagnostic struct {
	Severity Severity
	Kind     Kind
	Location Location
	Message  string
	Args     []Arg
	Cause    error
}

func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s (%s) at %s", d.Severity, d.Message, d.Kind, d.Location)
}

// Sink accepts severity+node+template, counts errors, and suppresses
// past a threshold. Grounded on internal/errors's SentraError, which
// carries Type/Message/Location/CallStack; the sink adds the counting
// and suppression behavior spec.md names explicitly ("too many
// errors").
type Sink struct {
	Threshold    int
	diagnostics  []*Diagnostic
	errorCount   int
	suppressed   bool
	suppressedN  int
}

// NewSink creates a sink that suppresses after threshold errors (of
// severity Error/SyntaxError/RuntimeError). A non-positive threshold
// means unlimited.
func NewSink(threshold int) *Sink {
	return &Sink{Threshold: threshold}
}

// Report records a diagnostic unless suppression has kicked in. The
// report that reaches the threshold is followed by one
// KindTooManyErrors diagnostic announcing the suppression; every later
// report, of any severity, is dropped and only counted (Suppressed).
func (s *Sink) Report(sev Severity, loc Location, kind Kind, message string, args ...Arg) *Diagnostic {
	if s.suppressed {
		s.suppressedN++
		return nil
	}
	d := &Diagnostic{Severity: sev, Kind: kind, Location: loc, Message: message, Args: args}
	s.diagnostics = append(s.diagnostics, d)
	if sev != Warning {
		s.errorCount++
		if s.Threshold > 0 && s.errorCount >= s.Threshold {
			s.suppressed = true
			s.diagnostics = append(s.diagnostics, &Diagnostic{
				Severity: Error,
				Kind:     KindTooManyErrors,
				Location: loc,
				Message:  "too many errors, further diagnostics suppressed",
			})
		}
	}
	return d
}

// ReportFatal records a runtime error and wraps cause (if any) with a
// Go stack trace via github.com/pkg/errors, so a verbose external
// formatter can render it; the core itself never prints it.
func (s *Sink) ReportFatal(loc Location, kind Kind, message string, cause error) *Diagnostic {
	d := s.Report(RuntimeError, loc, kind, message)
	if d == nil {
		return nil
	}
	if cause != nil {
		d.Cause = errors.WithStack(cause)
	} else {
		d.Cause = errors.New(message)
	}
	return d
}

// Diagnostics returns all recorded diagnostics, oldest first.
func (s *Sink) Diagnostics() []*Diagnostic { return s.diagnostics }

// ErrorCount returns the number of non-warning diagnostics recorded
// before suppression; reports dropped afterwards are counted only by
// Suppressed.
func (s *Sink) ErrorCount() int { return s.errorCount }

// Suppressed reports whether the threshold has been crossed and how
// many diagnostics were dropped as a result.
func (s *Sink) Suppressed() (bool, int) { return s.suppressed, s.suppressedN }

// HasFatal reports whether any Error/SyntaxError/RuntimeError has been
// recorded, meaning execution must not proceed past pre-execution
// analysis (internal/scopecheck) or must unwind (runtime errors).
func (s *Sink) HasFatal() bool { return s.errorCount > 0 }
