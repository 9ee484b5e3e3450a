package ir

import (
	"strings"
	"testing"
)

func TestBuildSimpleAddFunction(t *testing.T) {
	m := NewModule()
	f := m.CreateFunction("add", []Param{{Name: "a", Type: I32}, {Name: "b", Type: I32}}, I32)
	b := f.CreateBlock()
	a := b.CreateArg(0, I32)
	bb := b.CreateArg(1, I32)
	sum := b.CreateAdd(I32, a, bb)
	b.CreateRet(sum)

	if len(f.Blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(f.Blocks))
	}
	if f.Blocks[0].Term == nil || f.Blocks[0].Term.Op != OpRet {
		t.Fatalf("expected block to be terminated by a ret")
	}
	if !strings.Contains(f.String(), "add") {
		t.Fatalf("expected textual dump to mention add, got %q", f.String())
	}
}

func TestConditionalBranchBothTargetsRecorded(t *testing.T) {
	m := NewModule()
	f := m.CreateFunction("f", nil, Void)
	entry := f.CreateBlock()
	thn := f.CreateBlock()
	els := f.CreateBlock()
	cond := entry.CreateConstBool(true)
	term := entry.CreateCondBr(cond, thn, els)
	if term.Then != thn || term.Else != els {
		t.Fatalf("CreateCondBr did not record both targets")
	}
	thn.CreateRet(nil)
	els.CreateRet(nil)
}

func TestStringInterningDeduplicates(t *testing.T) {
	m := NewModule()
	f := m.CreateFunction("f", nil, Ptr)
	b := f.CreateBlock()
	s1 := b.CreateConstStr("hello")
	s2 := b.CreateConstStr("hello")
	s3 := b.CreateConstStr("world")
	if s1.Imm != s2.Imm {
		t.Fatalf("expected identical strings to share a table index")
	}
	if s1.Imm == s3.Imm {
		t.Fatalf("expected distinct strings to get distinct indices")
	}
	if len(m.Strings()) != 2 {
		t.Fatalf("expected 2 interned strings, got %d", len(m.Strings()))
	}
}

func TestFieldPtrRecordsFieldIndex(t *testing.T) {
	m := NewModule()
	f := m.CreateFunction("f", []Param{{Name: "self", Type: Ptr}}, I32)
	b := f.CreateBlock()
	self := b.CreateArg(0, Ptr)
	fp := b.CreateFieldPtr(self, 2)
	if fp.Imm != 2 {
		t.Fatalf("expected field index 2, got %d", fp.Imm)
	}
	load := b.CreateLoad(I32, fp)
	b.CreateRet(load)
}
