// Tests the lexer by verifying that small ARNm snippets tokenize into the
// exact expected Kind/Lexeme sequence, captured as a manual token tuple
// slice per test case.
package lexer

import (
	"testing"

	"github.com/arnm-lang/arnm/internal/token"
)

type want struct {
	kind token.Kind
	lex  string
}

func collect(t *testing.T, src string) []want {
	t.Helper()
	l := New(src)
	var got []want
	for {
		tok := l.Next()
		if tok.Kind == token.EOF {
			break
		}
		got = append(got, want{tok.Kind, tok.Lexeme})
	}
	return got
}

func assertTokens(t *testing.T, src string, exp []want) {
	t.Helper()
	got := collect(t, src)
	if len(got) != len(exp) {
		t.Fatalf("token count mismatch: got %d %v, want %d %v", len(got), got, len(exp), exp)
	}
	for i, e := range exp {
		if got[i] != e {
			t.Fatalf("token %d: got %+v, want %+v", i, got[i], e)
		}
	}
}

func TestKeywordsRoundTrip(t *testing.T) {
	for lex, kind := range token.Keywords {
		l := New(lex)
		tok := l.Next()
		if tok.Kind != kind {
			t.Errorf("lexing %q: got kind %s, want %s", lex, tok.Kind, kind)
		}
		if tok.Kind == token.EOF {
			t.Errorf("lexing %q: got EOF", lex)
		}
		if end := l.Next(); end.Kind != token.EOF {
			t.Errorf("lexing %q: expected EOF after keyword, got %s", lex, end.Kind)
		}
	}
}

func TestActorSpawnReceive(t *testing.T) {
	src := `actor Counter {
    let n: i32;
    fn get() -> i32 { return self.n; }
}
spawn Counter();
receive { 42 => { } }`
	assertTokens(t, src, []want{
		{token.ACTOR, "actor"}, {token.IDENT, "Counter"}, {token.LBRACE, "{"},
		{token.LET, "let"}, {token.IDENT, "n"}, {token.COLON, ":"}, {token.I32, "i32"}, {token.SEMI, ";"},
		{token.FN, "fn"}, {token.IDENT, "get"}, {token.LPAREN, "("}, {token.RPAREN, ")"},
		{token.ARROW, "->"}, {token.I32, "i32"}, {token.LBRACE, "{"},
		{token.RETURN, "return"}, {token.SELF, "self"}, {token.DOT, "."}, {token.IDENT, "n"}, {token.SEMI, ";"},
		{token.RBRACE, "}"}, {token.RBRACE, "}"},
		{token.SPAWN, "spawn"}, {token.IDENT, "Counter"}, {token.LPAREN, "("}, {token.RPAREN, ")"}, {token.SEMI, ";"},
		{token.RECEIVE, "receive"}, {token.LBRACE, "{"}, {token.INT, "42"}, {token.FATARROW, "=>"},
		{token.LBRACE, "{"}, {token.RBRACE, "}"}, {token.RBRACE, "}"},
	})
}

func TestNumberLiterals(t *testing.T) {
	assertTokens(t, "1 1.5 1e3 1.5e-2 0x1F 0b101 0o17", []want{
		{token.INT, "1"}, {token.FLOAT, "1.5"}, {token.FLOAT, "1e3"}, {token.FLOAT, "1.5e-2"},
		{token.INT, "0x1F"}, {token.INT, "0b101"}, {token.INT, "0o17"},
	})
}

func TestStringAndCharLiterals(t *testing.T) {
	assertTokens(t, `"hi\n" 'a' '\n'`, []want{
		{token.STRING, `"hi\n"`}, {token.CHAR, "'a'"}, {token.CHAR, `'\n'`},
	})
}

func TestUnterminatedStringIsError(t *testing.T) {
	l := New(`"abc`)
	tok := l.Next()
	if tok.Kind != token.ERROR {
		t.Fatalf("expected ERROR token, got %s", tok.Kind)
	}
}

func TestUnterminatedBlockCommentIsError(t *testing.T) {
	l := New("/* never closed")
	tok := l.Next()
	if tok.Kind != token.ERROR {
		t.Fatalf("expected ERROR token, got %s", tok.Kind)
	}
}

func TestNestedBlockComments(t *testing.T) {
	assertTokens(t, "/* outer /* inner */ still outer */ 1", []want{{token.INT, "1"}})
}

func TestMultiCharOperatorsGreedy(t *testing.T) {
	assertTokens(t, "-> => == != <= >= && || += -= *= /= .. ..= ::", []want{
		{token.ARROW, "->"}, {token.FATARROW, "=>"}, {token.EQ, "=="}, {token.NEQ, "!="},
		{token.LE, "<="}, {token.GE, ">="}, {token.AND, "&&"}, {token.OR, "||"},
		{token.PLUSEQ, "+="}, {token.MINUSEQ, "-="}, {token.STAREQ, "*="}, {token.SLASHEQ, "/="},
		{token.DOTDOT, ".."}, {token.DOTDOTEQ, "..="}, {token.COLONCOLON, "::"},
	})
}

func TestPeekIsSingleSlot(t *testing.T) {
	l := New("a b")
	if p1 := l.Peek(); p1.Lexeme != "a" {
		t.Fatalf("peek 1: got %q", p1.Lexeme)
	}
	if p2 := l.Peek(); p2.Lexeme != "a" {
		t.Fatalf("peek again before Next: got %q, want buffered 'a'", p2.Lexeme)
	}
	if n := l.Next(); n.Lexeme != "a" {
		t.Fatalf("next after peek: got %q", n.Lexeme)
	}
	if n := l.Next(); n.Lexeme != "b" {
		t.Fatalf("next: got %q", n.Lexeme)
	}
}

func TestSpanCoversWholeTokenStream(t *testing.T) {
	src := "let x = 1 + 2;"
	l := New(src)
	prevEnd := 0
	for {
		tok := l.Next()
		if tok.Kind == token.EOF {
			break
		}
		if tok.Span.StartByte < prevEnd {
			t.Fatalf("span %v starts before previous token ended at %d", tok.Span, prevEnd)
		}
		if src[tok.Span.StartByte:tok.Span.EndByte] != tok.Lexeme {
			t.Fatalf("span %v does not cover lexeme %q", tok.Span, tok.Lexeme)
		}
		prevEnd = tok.Span.EndByte
	}
}
