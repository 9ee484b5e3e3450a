package sema

import (
	"testing"

	"github.com/arnm-lang/arnm/internal/diag"
	"github.com/arnm-lang/arnm/internal/parser"
)

func check(t *testing.T, src string) *diag.Sink {
	t.Helper()
	res := parser.Parse(src)
	if res.Sink.HadError() {
		t.Fatalf("unexpected parse diagnostics: %v", res.Sink.All())
	}
	a := New(res.Arena, diag.NewSink(MaxErrors))
	a.Check(res.Root)
	return a.sink
}

func TestWellTypedProgramHasNoDiagnostics(t *testing.T) {
	sink := check(t, `
fn add(a: i32, b: i32) -> i32 {
    return a + b;
}

actor Counter {
    let n: i32;

    fn get() -> i32 { return self.n; }

    receive {
        1 => { self.n = self.n + 1; }
        2 => { return; }
    }
}

fn main() {
    let c = spawn Counter();
    c ! 1;
    let total: i32 = add(1, 2);
    if total > 0 { print(total); } else { print(0); }
    let mut i = 0;
    while i < 3 { i += 1; }
    for x in 0..3 { print(x); }
}
`)
	if sink.HadError() {
		t.Fatalf("unexpected sema diagnostics: %v", sink.All())
	}
}

func TestUndefinedIdentifierIsReported(t *testing.T) {
	sink := check(t, `fn f() -> i32 { return y; }`)
	if !sink.HadError() {
		t.Fatalf("expected an undefined-identifier diagnostic")
	}
}

func TestTypeMismatchInReturnIsReported(t *testing.T) {
	sink := check(t, `fn f() -> i32 { return true; }`)
	if !sink.HadError() {
		t.Fatalf("expected a type-mismatch diagnostic")
	}
}

func TestBareActorFieldAccessIsReported(t *testing.T) {
	sink := check(t, `
actor A {
    let n: i32;
    fn get() -> i32 { return n; }
}
`)
	if !sink.HadError() {
		t.Fatalf("expected a bare-actor-field diagnostic for accessing n without self")
	}
}

func TestImmutableAssignIsReported(t *testing.T) {
	sink := check(t, `
fn f() {
    let x: i32 = 1;
    x = 2;
}
`)
	if !sink.HadError() {
		t.Fatalf("expected an immutable-assign diagnostic")
	}
}

func TestBreakOutsideLoopIsReported(t *testing.T) {
	sink := check(t, `fn f() { break; }`)
	if !sink.HadError() {
		t.Fatalf("expected a break-outside-loop diagnostic")
	}
}

func TestSendToNonProcessIsReported(t *testing.T) {
	sink := check(t, `
fn f() {
    let x: i32 = 1;
    x ! 2;
}
`)
	if !sink.HadError() {
		t.Fatalf("expected a send-to-non-process diagnostic")
	}
}

func TestArityMismatchOnCallIsReported(t *testing.T) {
	sink := check(t, `
fn add(a: i32, b: i32) -> i32 { return a + b; }
fn f() { add(1); }
`)
	if !sink.HadError() {
		t.Fatalf("expected an arity-mismatch diagnostic")
	}
}

func TestShadowingIntrinsicWarnsButDoesNotError(t *testing.T) {
	sink := check(t, `
fn print(x: i32) {
    return;
}
`)
	if sink.HadError() {
		t.Fatalf("shadowing an intrinsic must warn, not error: %v", sink.All())
	}
	found := false
	for _, d := range sink.All() {
		if d.Code == diag.ShadowedIntrinsic {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a shadowed-intrinsic warning, got %v", sink.All())
	}
}

func TestReceiveOutsideActorIsReported(t *testing.T) {
	sink := check(t, `
fn f() {
    receive {
        1 => { return; }
    }
}
`)
	if !sink.HadError() {
		t.Fatalf("expected a receive-outside-actor diagnostic")
	}
}

func TestCallToLaterDeclaredFunctionTypeChecks(t *testing.T) {
	sink := check(t, `
fn a() -> i32 { return b(); }
fn b() -> i32 { return 1; }
`)
	if sink.HadError() {
		t.Fatalf("a forward call to a later-declared function must resolve its real signature: %v", sink.All())
	}
}

func TestMutuallyRecursiveFunctionsTypeCheck(t *testing.T) {
	sink := check(t, `
fn isEven(n: i32) -> bool {
    if n == 0 { return true; }
    return isOdd(n - 1);
}

fn isOdd(n: i32) -> bool {
    if n == 0 { return false; }
    return isEven(n - 1);
}
`)
	if sink.HadError() {
		t.Fatalf("mutually recursive functions must type check: %v", sink.All())
	}
}

func TestArityMismatchOnForwardCallIsReported(t *testing.T) {
	sink := check(t, `
fn f() { add(1); }
fn add(a: i32, b: i32) -> i32 { return a + b; }
`)
	if !sink.HadError() {
		t.Fatalf("expected an arity-mismatch diagnostic for a forward call")
	}
}
