package x86

import (
	"strings"
	"testing"

	"github.com/arnm-lang/arnm/internal/diag"
	"github.com/arnm-lang/arnm/internal/irgen"
	"github.com/arnm-lang/arnm/internal/parser"
	"github.com/arnm-lang/arnm/internal/sema"
)

func emit(t *testing.T, src string) string {
	t.Helper()
	res := parser.Parse(src)
	if res.Sink.HadError() {
		t.Fatalf("unexpected parse errors: %v", res.Sink.All())
	}
	a := sema.New(res.Arena, diag.NewSink(sema.MaxErrors))
	a.Check(res.Root)
	m := irgen.Generate(res.Arena, a.Table(), res.Root)
	return Emit(m)
}

func TestEmitFreeFunctionHasPrologueAndRet(t *testing.T) {
	out := emit(t, `
		fn add(a: i32, b: i32) -> i32 {
			return a + b;
		}
	`)
	if !strings.Contains(out, ".globl add\nadd:\n") {
		t.Fatalf("expected a global label for add, got:\n%s", out)
	}
	if !strings.Contains(out, "push %rbp") || !strings.Contains(out, "ret") {
		t.Fatalf("expected a standard prologue/epilogue, got:\n%s", out)
	}
	if !strings.Contains(out, "add %rcx, %rax") {
		t.Fatalf("expected the addition to lower to an add instruction, got:\n%s", out)
	}
}

func TestEmitActorCallsSpawnSendReceive(t *testing.T) {
	out := emit(t, `
		actor Counter {
			let count: i32;

			fn bump() {
				self.count = self.count + 1;
			}

			receive {
				n => { self.count = self.count + n; }
			}
		}

		fn main() {
			let c = spawn Counter();
			c ! 5;
		}
	`)
	for _, want := range []string{
		"call arnm_spawn",
		"call arnm_send",
		"call arnm_self",
		"call arnm_receive",
		"call arnm_message_free",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestEmitDeclaresRuntimeExterns(t *testing.T) {
	out := emit(t, `fn f() {}`)
	for _, decl := range []string{
		".extern arnm_spawn", ".extern arnm_self", ".extern arnm_yield",
		".extern arnm_send", ".extern arnm_receive", ".extern arnm_print_int",
		".extern arnm_panic_nomatch",
	} {
		if !strings.Contains(out, decl) {
			t.Fatalf("expected declaration %q, got:\n%s", decl, out)
		}
	}
}
