// Package diag provides the diagnostic collector shared by the parser and
// the semantic analyzer: a parallel-safe sink for (code, message, span)
// diagnostics with a fixed capacity, usable from multiple goroutines
// validating independent parts of a syntax tree concurrently.
package diag

import (
	"fmt"
	"sync"

	"github.com/arnm-lang/arnm/internal/token"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Severity differentiates a hard error from an advisory warning — used by
// the "intrinsics shadowing" open question resolution (see DESIGN.md),
// which downgrades what would otherwise be a DuplicateDefinition error to
// a warning when a user declaration shadows an injected intrinsic.
type Severity uint8

const (
	Error Severity = iota
	Warning
)

func (s Severity) String() string {
	if s == Warning {
		return "warning"
	}
	return "error"
}

// Code enumerates the diagnostic taxonomy from the language spec's error
// handling design table (lex/parse/sema tiers).
type Code string

const (
	// Lex tier.
	UnexpectedChar       Code = "unexpected-char"
	UnterminatedString   Code = "unterminated-string"
	UnterminatedChar     Code = "unterminated-char"
	UnterminatedComment  Code = "unterminated-comment"
	InvalidEscape        Code = "invalid-escape"
	InvalidNumber        Code = "invalid-number"

	// Parse tier.
	UnexpectedToken  Code = "unexpected-token"
	ExpectedIdent    Code = "expected-ident"
	ExpectedExpr     Code = "expected-expr"
	ExpectedBlock    Code = "expected-block"
	UnclosedParen    Code = "unclosed-paren"
	UnclosedBrace    Code = "unclosed-brace"
	OutOfArena       Code = "out-of-arena"
	CapExceeded      Code = "cap-exceeded"

	// Sema tier.
	UndefinedIdent       Code = "undefined-ident"
	DuplicateDefinition  Code = "duplicate-definition"
	TypeMismatch         Code = "type-mismatch"
	ArityMismatch        Code = "arity-mismatch"
	NonCallable          Code = "non-callable"
	BareActorField       Code = "bare-actor-field"
	BreakOutsideLoop     Code = "break-outside-loop"
	ContinueOutsideLoop  Code = "continue-outside-loop"
	InvalidAssignTarget  Code = "invalid-assign-target"
	ImmutableAssign      Code = "immutable-assign"
	SelfOutsideActor     Code = "self-outside-actor"
	SendToNonProcess     Code = "send-to-non-process"
	ShadowedIntrinsic    Code = "shadowed-intrinsic"
	ReceiveOutsideActor  Code = "receive-outside-actor"
)

// Diagnostic is a single reported problem.
type Diagnostic struct {
	Code     Code
	Severity Severity
	Message  string
	Span     token.Span
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s [%s] (%s)", d.Severity, d.Message, d.Code, d.Span)
}

// Sink collects Diagnostics up to Cap, after which further reports are
// silently dropped; reaching the cap is not itself reported. Sink is safe for concurrent use: multiple goroutines
// validating independent functions in parallel can all report into the
// same Sink.
type Sink struct {
	mu       sync.Mutex
	cap      int
	items    []Diagnostic
	hadError bool
}

// NewSink returns a Sink that keeps at most cap diagnostics. cap <= 0
// selects DefaultCap.
func NewSink(cap int) *Sink {
	if cap <= 0 {
		cap = DefaultCap
	}
	return &Sink{cap: cap, items: make([]Diagnostic, 0, cap)}
}

// DefaultCap matches the language spec's "up to 64 diagnostics"/"up to 64
// errors" caps for the parser and semantic analyzer respectively.
const DefaultCap = 64

// Report appends d to the sink if capacity remains. Reporting a Warning
// never sets HadError.
func (s *Sink) Report(d Diagnostic) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.Severity == Error {
		s.hadError = true
	}
	if len(s.items) >= s.cap {
		return
	}
	s.items = append(s.items, d)
}

// Errorf is a convenience wrapper around Report for Severity Error.
func (s *Sink) Errorf(code Code, span token.Span, format string, args ...interface{}) {
	s.Report(Diagnostic{Code: code, Severity: Error, Message: fmt.Sprintf(format, args...), Span: span})
}

// Warnf is a convenience wrapper around Report for Severity Warning.
func (s *Sink) Warnf(code Code, span token.Span, format string, args ...interface{}) {
	s.Report(Diagnostic{Code: code, Severity: Warning, Message: fmt.Sprintf(format, args...), Span: span})
}

// HadError reports whether any Error-severity Diagnostic has been recorded,
// even one evicted for exceeding capacity.
func (s *Sink) HadError() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hadError
}

// Len returns the number of buffered diagnostics.
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// All returns a snapshot copy of every buffered Diagnostic.
func (s *Sink) All() []Diagnostic {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Diagnostic, len(s.items))
	copy(out, s.items)
	return out
}
