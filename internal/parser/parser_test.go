package parser

import (
	"testing"

	"github.com/arnm-lang/arnm/internal/ast"
	"github.com/arnm-lang/arnm/internal/diag"
	"github.com/arnm-lang/arnm/internal/lexer"
)

func newTestSink() *diag.Sink        { return diag.NewSink(MaxDiagnostics) }
func newTestLexer(src string) *lexer.Lexer { return lexer.New(src) }

func TestParseWellFormedProgramHasNoError(t *testing.T) {
	src := `
fn add(a: i32, b: i32) -> i32 {
    return a + b;
}

actor Counter {
    let n: i32;
    fn get() -> i32 { return self.n; }
    receive {
        42 => { self.n = self.n + 1; }
        99 => { return; }
    }
}

fn main() {
    let c = spawn Counter();
    c ! 42;
    let x: i32 = add(1, 2);
    if x > 2 { print(x); } else { print(0); }
    while x < 10 { x += 1; }
    for i in x { print(i); }
    loop { break; }
}
`
	res := Parse(src)
	if res.HadError() {
		t.Fatalf("unexpected diagnostics: %v", res.Sink.All())
	}
	if res.Arena.Get(res.Root).Kind != ast.Program {
		t.Fatalf("root is not Program")
	}
	if len(res.Arena.Get(res.Root).Children) != 3 {
		t.Fatalf("expected 3 top level decls, got %d", len(res.Arena.Get(res.Root).Children))
	}
}

func TestInvalidProgramProducesDiagnosticAtOffendingSpan(t *testing.T) {
	src := `fn broken( { return; }`
	res := Parse(src)
	if !res.HadError() {
		t.Fatalf("expected a diagnostic for malformed parameter list")
	}
	all := res.Sink.All()
	if len(all) == 0 {
		t.Fatalf("expected at least one diagnostic")
	}
	d := all[0]
	if d.Span.StartByte < 0 || d.Span.StartByte > len(src) {
		t.Fatalf("diagnostic span %v out of source bounds", d.Span)
	}
}

func TestArenaExhaustionDoesNotCrash(t *testing.T) {
	// Parse directly against a deliberately tiny arena: once it is
	// exhausted, every further p.node call returns ast.Invalid and the
	// parser must keep tolerating that all the way back up to Parse
	// returning normally, never panicking on a nil child.
	p := &Parser{sink: newTestSink(), tree: ast.NewArena(2)}
	p.lex = newTestLexer(`fn a(x: i32, y: i32, z: i32) -> i32 { return x + y + z; }`)
	p.advance()
	root := p.parseProgram()
	if root == ast.Invalid && !p.tree.Exhausted() {
		t.Fatalf("expected either a root node or a recorded arena exhaustion")
	}
	if !p.tree.Exhausted() {
		t.Fatalf("expected arena of size 2 to be exhausted by a multi-node program")
	}
}

func TestOperatorPrecedence(t *testing.T) {
	res := Parse(`fn f() { let x = 1 + 2 * 3; }`)
	if res.HadError() {
		t.Fatalf("unexpected diagnostics: %v", res.Sink.All())
	}
	fn := res.Arena.Get(res.Root).Children[0]
	block := res.Arena.Get(fn).Children[0]
	letStmt := res.Arena.Get(block).Children[0]
	init := res.Arena.Get(letStmt).Children[0]
	n := res.Arena.Get(init)
	if n.Kind != ast.BinaryExpr {
		t.Fatalf("expected top level + , got kind %v", n.Kind)
	}
	rhs := res.Arena.Get(n.Children[1])
	if rhs.Kind != ast.BinaryExpr {
		t.Fatalf("expected 2 * 3 to bind tighter than +, got %v", rhs.Kind)
	}
}

func TestSelfFieldVsBareIdentifierParse(t *testing.T) {
	res := Parse(`actor A { let n: i32; fn get() -> i32 { return self.n; } }`)
	if res.HadError() {
		t.Fatalf("unexpected diagnostics: %v", res.Sink.All())
	}
}
