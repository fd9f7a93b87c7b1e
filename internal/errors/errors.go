// internal/errors/errors.go
//
// Package errors implements the compiler's single error-reporting
// channel. Every failure surfaced by the heap, the object model, or the
// code generator is reported through a *Report value. Reports are cheap
// to build and carry enough context (kind, source location, call site)
// for a driver to print a diagnostic without re-deriving it.
package errors

import (
	"fmt"
	"runtime"
	"strings"
)

// Kind classifies a Report so callers can distinguish implementation
// bugs and resource exhaustion from ordinary user mistakes.
type Kind string

const (
	// OOM reports heap or scratch-arena exhaustion.
	OOM Kind = "OutOfMemory"
	// UnresolvedJumpTarget reports a promise still unresolved at
	// Executable finalization: a compiler bug, never a user mistake.
	UnresolvedJumpTarget Kind = "UnresolvedJumpTarget"
	// BreakOutsideLoop reports break with no enclosing loop.
	BreakOutsideLoop Kind = "BreakOutsideLoop"
	// TupleArityMismatch reports a multi-target assignment whose
	// right-hand side is not a call expression.
	TupleArityMismatch Kind = "TupleArityMismatch"
	// InvalidAssignmentTarget reports an assignment target that is
	// neither an identifier nor an index expression.
	InvalidAssignmentTarget Kind = "InvalidAssignmentTarget"
	// TuplePairTooLarge reports a flattened assignment tuple exceeding
	// the static arity bound.
	TuplePairTooLarge Kind = "TuplePairTooLarge"
	// UnhashableKey reports a map key whose type has no hash capability.
	UnhashableKey Kind = "UnhashableKey"
	// IncomparableKey reports a map key whose type has no compare
	// capability.
	IncomparableKey Kind = "IncomparableKey"
	// SyntaxError reports a token the parser could not fit into any
	// production; this sits ahead of the code generator proper, in the
	// front end carried over from the teacher's own lexer/parser.
	SyntaxError Kind = "SyntaxError"
)

// internal marks kinds that are implementation bugs or resource
// failures rather than mistakes in the program being compiled.
var internal = map[Kind]bool{
	OOM:                  true,
	UnresolvedJumpTarget: true,
}

// maxMessage bounds the formatted message the way the source's fixed
// inline diagnostic buffer does (>= 256 bytes); anything longer is
// truncated and Truncated is set rather than growing the Report
// unboundedly on a formatting failure.
const maxMessage = 256

// Report is the single structured error value returned by the heap, the
// object model, and the code generator.
type Report struct {
	Occurred  bool
	Internal  bool
	File      string
	Func      string
	Line      int
	Kind      Kind
	Message   string
	Truncated bool
}

// Error implements the error interface.
func (r *Report) Error() string {
	if r == nil || !r.Occurred {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s", r.Kind, r.Message)
	if r.File != "" {
		fmt.Fprintf(&sb, " (%s:%d in %s)", r.File, r.Line, r.Func)
	}
	if r.Truncated {
		sb.WriteString(" [truncated]")
	}
	return sb.String()
}

// New builds a Report of kind k with a formatted message, capturing the
// caller's file/function/line roughly the way a C implementation
// captures __FILE__/__func__/__LINE__ at the report site.
func New(k Kind, format string, args ...interface{}) *Report {
	return newReport(k, 2, format, args...)
}

// Wrap builds a Report of kind k, capturing the frame of the function
// that called into the reporting helper instead of New's own caller;
// use it from small wrapper constructors (e.g. per-package NewOOM).
func Wrap(k Kind, skip int, format string, args ...interface{}) *Report {
	return newReport(k, 2+skip, format, args...)
}

func newReport(k Kind, skip int, format string, args ...interface{}) *Report {
	msg := fmt.Sprintf(format, args...)
	truncated := false
	if len(msg) > maxMessage {
		msg = msg[:maxMessage]
		truncated = true
	}

	file, line, fn := "", 0, ""
	if pc, f, l, ok := runtime.Caller(skip); ok {
		file, line = f, l
		if rf := runtime.FuncForPC(pc); rf != nil {
			fn = rf.Name()
		}
	}

	return &Report{
		Occurred:  true,
		Internal:  internal[k],
		File:      file,
		Func:      fn,
		Line:      line,
		Kind:      k,
		Message:   msg,
		Truncated: truncated,
	}
}

// Is reports whether err is a *Report of kind k.
func Is(err error, k Kind) bool {
	r, ok := err.(*Report)
	return ok && r != nil && r.Kind == k
}
