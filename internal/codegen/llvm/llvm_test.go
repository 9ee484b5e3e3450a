package llvm

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

func TestEmitFreeFunctionRendersDefineAndRet(t *testing.T) {
	out := emit(t, `
		fn add(a: i32, b: i32) -> i32 {
			return a + b;
		}
	`)
	if !strings.Contains(out, "define i32 @add(") {
		t.Fatalf("expected a define for add, got:\n%s", out)
	}
	if !strings.Contains(out, "ret i32") {
		t.Fatalf("expected a ret i32, got:\n%s", out)
	}
}

func TestEmitActorRendersSpawnSendAndReceive(t *testing.T) {
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
		"define void @Counter.bump(",
		"define void @Counter__behavior(",
		"call ptr @arnm_spawn(",
		"call i32 @arnm_send(",
		"call ptr @arnm_receive(",
		"call void @arnm_message_free(",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestEmitDeclaresRuntimeABI(t *testing.T) {
	out := emit(t, `fn f() {}`)
	for _, decl := range []string{
		"declare ptr @arnm_spawn(",
		"declare ptr @arnm_self()",
		"declare void @arnm_yield()",
		"declare void @arnm_exit()",
		"declare i32 @arnm_send(",
		"declare ptr @arnm_receive(",
		"declare ptr @arnm_try_receive()",
		"declare void @arnm_message_free(",
		"declare void @arnm_print_int(",
		"declare void @arnm_panic_nomatch()",
	} {
		if !strings.Contains(out, decl) {
			t.Fatalf("expected declaration %q, got:\n%s", decl, out)
		}
	}
}
