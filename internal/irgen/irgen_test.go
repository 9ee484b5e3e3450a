package irgen

import (
	"strings"
	"testing"

	"github.com/arnm-lang/arnm/internal/diag"
	"github.com/arnm-lang/arnm/internal/ir"
	"github.com/arnm-lang/arnm/internal/parser"
	"github.com/arnm-lang/arnm/internal/sema"
)

func lower(t *testing.T, src string) *ir.Module {
	t.Helper()
	res := parser.Parse(src)
	if res.Sink.HadError() {
		t.Fatalf("unexpected parse errors: %v", res.Sink.All())
	}
	a := sema.New(res.Arena, diag.NewSink(sema.MaxErrors))
	a.Check(res.Root)
	if a.Table() == nil {
		t.Fatal("nil symbol table")
	}
	return Generate(res.Arena, a.Table(), res.Root)
}

func TestLowerFreeFunctionProducesReturningFunction(t *testing.T) {
	m := lower(t, `
		fn add(a: i32, b: i32) -> i32 {
			return a + b;
		}
	`)
	if len(m.Functions) != 1 {
		t.Fatalf("expected 1 function, got %d", len(m.Functions))
	}
	f := m.Functions[0]
	if f.Name != "add" {
		t.Fatalf("expected function named add, got %s", f.Name)
	}
	last := f.Blocks[len(f.Blocks)-1]
	if last.Term == nil || last.Term.Op != ir.OpRet {
		t.Fatalf("expected function to end in a ret")
	}
}

func TestLowerActorProducesMethodAndBehaviorFunctions(t *testing.T) {
	m := lower(t, `
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

	var haveMethod, haveBehavior, haveMain bool
	for _, f := range m.Functions {
		switch f.Name {
		case "Counter::bump":
			haveMethod = true
			if len(f.Params) != 1 || f.Params[0].Name != "self" {
				t.Fatalf("expected bump to take only self, got %+v", f.Params)
			}
		case "Counter__behavior":
			haveBehavior = true
			if !f.IsBehavior {
				t.Fatalf("expected Counter__behavior to be marked IsBehavior")
			}
		case "main":
			haveMain = true
		}
	}
	if !haveMethod || !haveBehavior || !haveMain {
		t.Fatalf("missing expected functions, got: %s", m.String())
	}

	var rec *ir.RecordLayout
	for _, r := range m.Records {
		if r.Name == "Counter" {
			rec = r
		}
	}
	if rec == nil || !rec.IsActor {
		t.Fatalf("expected a Counter actor record")
	}
	if len(rec.Fields) != 1 || rec.Fields[0].Name != "count" {
		t.Fatalf("expected Counter to have one field named count, got %+v", rec.Fields)
	}
	if len(rec.RecvArms) != 1 || !rec.RecvArms[0].IsBind {
		t.Fatalf("expected Counter to have one bind receive arm, got %+v", rec.RecvArms)
	}
}

func TestLowerIfElseMergesIntoSingleBlock(t *testing.T) {
	m := lower(t, `
		fn classify(x: i32) -> i32 {
			if x < 0 {
				return 0 - 1;
			} else {
				return 1;
			}
		}
	`)
	f := m.Functions[0]
	if len(f.Blocks) < 4 {
		t.Fatalf("expected at least 4 blocks (entry, then, else, merge), got %d", len(f.Blocks))
	}
	for _, b := range f.Blocks {
		if b.Term == nil {
			t.Fatalf("block %s left unterminated", b.Name())
		}
	}
}

func TestLowerForRangeBuildsCounterLoop(t *testing.T) {
	m := lower(t, `
		fn sum(n: i32) -> i32 {
			let mut total = 0;
			for i in 0..n {
				total = total + i;
			}
			return total;
		}
	`)
	f := m.Functions[0]
	if len(f.Blocks) < 5 {
		t.Fatalf("expected at least 5 blocks (entry, head, body, inc, exit), got %d", len(f.Blocks))
	}
	var sawRecvTag, sawCondBr bool
	for _, b := range f.Blocks {
		for _, in := range b.Instrs {
			if in.Op == ir.OpRecvTag {
				sawRecvTag = true
			}
		}
		if b.Term != nil && b.Term.Op == ir.OpCondBr {
			sawCondBr = true
		}
	}
	if !sawCondBr {
		t.Fatalf("expected the loop head to end in a conditional branch")
	}
	if sawRecvTag {
		t.Fatalf("a plain for-range loop should never emit OpRecvTag")
	}
	if !strings.Contains(f.String(), "sum") {
		t.Fatalf("expected dump to mention sum")
	}
}

func TestTagHashIsDeterministic(t *testing.T) {
	if TagHash("ping") != TagHash("ping") {
		t.Fatalf("expected TagHash to be deterministic")
	}
	if TagHash("ping") != TagHash("pong") {
		return
	}
	t.Fatalf("expected distinct names to usually hash differently")
}
