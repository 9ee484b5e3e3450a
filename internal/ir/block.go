package ir

import (
	"fmt"
	"strings"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Block is a basic block: a straight-line instruction sequence terminated
// by exactly one of OpRet, OpBr or OpCondBr.
type Block struct {
	f     *Function
	id    int
	Instrs []*Instr
	Term  *Instr
}

// ---------------------
// ----- functions -----
// ---------------------

// Id returns Block b's function-unique identifier.
func (b *Block) Id() int { return b.id }

// Name returns b's textual label, e.g. "block3".
func (b *Block) Name() string { return fmt.Sprintf("block%d", b.id) }

func (b *Block) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s:\n", b.Name())
	for _, in := range b.Instrs {
		sb.WriteByte('\t')
		sb.WriteString(in.String())
		sb.WriteByte('\n')
	}
	if b.Term == nil {
		fmt.Fprintf(&sb, "\t; unterminated block %s\n", b.Name())
	}
	return sb.String()
}

// emit appends in to b's instruction list and assigns it a fresh id.
func (b *Block) emit(in *Instr) *Instr {
	in.id = b.f.nextID()
	b.Instrs = append(b.Instrs, in)
	return in
}

// ---------------------------------
// ----- instruction builders ------
// ---------------------------------

func (b *Block) binOp(op Op, ty Type, l, r Value) *Instr {
	return b.emit(&Instr{Op: op, ValType: ty, Operands: []Value{l, r}})
}

func (b *Block) CreateAdd(ty Type, l, r Value) *Instr { return b.binOp(OpAdd, ty, l, r) }
func (b *Block) CreateSub(ty Type, l, r Value) *Instr { return b.binOp(OpSub, ty, l, r) }
func (b *Block) CreateMul(ty Type, l, r Value) *Instr { return b.binOp(OpMul, ty, l, r) }
func (b *Block) CreateDiv(ty Type, l, r Value) *Instr { return b.binOp(OpDiv, ty, l, r) }
func (b *Block) CreateMod(ty Type, l, r Value) *Instr { return b.binOp(OpMod, ty, l, r) }

func (b *Block) CreateNeg(ty Type, v Value) *Instr {
	return b.emit(&Instr{Op: OpNeg, ValType: ty, Operands: []Value{v}})
}
func (b *Block) CreateNot(v Value) *Instr {
	return b.emit(&Instr{Op: OpNot, ValType: I1, Operands: []Value{v}})
}
func (b *Block) CreateBNot(ty Type, v Value) *Instr {
	return b.emit(&Instr{Op: OpBNot, ValType: ty, Operands: []Value{v}})
}

func (b *Block) cmp(op Op, l, r Value) *Instr {
	return b.emit(&Instr{Op: op, ValType: I1, Operands: []Value{l, r}})
}

func (b *Block) CreateICmpEQ(l, r Value) *Instr { return b.cmp(OpICmpEQ, l, r) }
func (b *Block) CreateICmpNE(l, r Value) *Instr { return b.cmp(OpICmpNE, l, r) }
func (b *Block) CreateICmpLT(l, r Value) *Instr { return b.cmp(OpICmpLT, l, r) }
func (b *Block) CreateICmpLE(l, r Value) *Instr { return b.cmp(OpICmpLE, l, r) }
func (b *Block) CreateICmpGT(l, r Value) *Instr { return b.cmp(OpICmpGT, l, r) }
func (b *Block) CreateICmpGE(l, r Value) *Instr { return b.cmp(OpICmpGE, l, r) }

func (b *Block) CreateConstI32(v int64) *Instr {
	return b.emit(&Instr{Op: OpConstI32, ValType: I32, Imm: v})
}
func (b *Block) CreateConstI64(v int64) *Instr {
	return b.emit(&Instr{Op: OpConstI64, ValType: I64, Imm: v})
}
func (b *Block) CreateConstF32(v float64) *Instr {
	return b.emit(&Instr{Op: OpConstF32, ValType: F32, ImmF: v})
}
func (b *Block) CreateConstF64(v float64) *Instr {
	return b.emit(&Instr{Op: OpConstF64, ValType: F64, ImmF: v})
}
func (b *Block) CreateConstBool(v bool) *Instr {
	imm := int64(0)
	if v {
		imm = 1
	}
	return b.emit(&Instr{Op: OpConstBool, ValType: I1, Imm: imm})
}

// CreateConstStr records a string literal in the module's string table
// (via f.m.intern) and returns a Ptr-typed instruction referencing it.
func (b *Block) CreateConstStr(s string) *Instr {
	idx := b.f.m.intern(s)
	return b.emit(&Instr{Op: OpConstStr, ValType: Ptr, Imm: int64(idx)})
}

func (b *Block) CreateAlloca(ty Type) *Instr {
	return b.emit(&Instr{Op: OpAlloca, ValType: Ptr, Imm: int64(ty)})
}

func (b *Block) CreateLoad(ty Type, ptr Value) *Instr {
	return b.emit(&Instr{Op: OpLoad, ValType: ty, Operands: []Value{ptr}})
}

func (b *Block) CreateStore(ptr, val Value) *Instr {
	return b.emit(&Instr{Op: OpStore, ValType: Void, Operands: []Value{ptr, val}})
}

// CreateFieldPtr computes the address of field index idx within the
// record addressed by ptr.
func (b *Block) CreateFieldPtr(ptr Value, idx int) *Instr {
	return b.emit(&Instr{Op: OpFieldPtr, ValType: Ptr, Operands: []Value{ptr}, Imm: int64(idx)})
}

func (b *Block) CreateIndexPtr(arr, idx Value) *Instr {
	return b.emit(&Instr{Op: OpIndexPtr, ValType: Ptr, Operands: []Value{arr, idx}})
}

func (b *Block) CreateArrayLen(arr Value) *Instr {
	return b.emit(&Instr{Op: OpArrayLen, ValType: I32, Operands: []Value{arr}})
}

// CreateAllocRecord allocates an ARC-tracked record tagged with typeName,
// sized to hold fieldCount pointer/value-sized slots.
func (b *Block) CreateAllocRecord(typeName string, fieldCount int) *Instr {
	return b.emit(&Instr{Op: OpAllocRecord, ValType: Ptr, Name: typeName, Imm: int64(fieldCount)})
}

func (b *Block) CreateAllocArray(elemTy Type, length Value) *Instr {
	return b.emit(&Instr{Op: OpAllocArray, ValType: Ptr, Operands: []Value{length}, Imm: int64(elemTy)})
}

func (b *Block) CreateCall(resultTy Type, callee string, args ...Value) *Instr {
	return b.emit(&Instr{Op: OpCall, ValType: resultTy, Name: callee, Operands: args})
}

func (b *Block) CreateArg(idx int, ty Type) *Instr {
	return b.emit(&Instr{Op: OpArg, ValType: ty, Imm: int64(idx)})
}

// CreateSpawn allocates a new actor instance of actorType and starts its
// scheduling loop via the runtime, returning a Ptr process handle.
func (b *Block) CreateSpawn(actorType string, args ...Value) *Instr {
	return b.emit(&Instr{Op: OpSpawn, ValType: Ptr, Name: actorType, Operands: args})
}

func (b *Block) CreateSend(proc, payload Value) *Instr {
	return b.emit(&Instr{Op: OpSend, ValType: Void, Operands: []Value{proc, payload}})
}

// CreateRecvTag blocks until a message arrives, dequeues it, and returns
// its raw i32 payload. armCount is carried through to codegen purely as a
// sizing hint for the mailbox dispatch table; irgen emits a CondBr chain
// over the returned payload to dispatch to each arm's block.
func (b *Block) CreateRecvTag(armCount int) *Instr {
	return b.emit(&Instr{Op: OpRecvTag, ValType: I32, Imm: int64(armCount)})
}

// ----- terminators -----

func (b *Block) CreateRet(v Value) *Instr {
	in := &Instr{Op: OpRet, ValType: Void}
	if v != nil {
		in.Operands = []Value{v}
	}
	in.id = b.f.nextID()
	b.Instrs = append(b.Instrs, in)
	b.Term = in
	return in
}

func (b *Block) CreateBr(dst *Block) *Instr {
	in := &Instr{Op: OpBr, ValType: Void, Then: dst}
	in.id = b.f.nextID()
	b.Instrs = append(b.Instrs, in)
	b.Term = in
	return in
}

func (b *Block) CreateCondBr(cond Value, thn, els *Block) *Instr {
	in := &Instr{Op: OpCondBr, ValType: Void, Operands: []Value{cond}, Then: thn, Else: els}
	in.id = b.f.nextID()
	b.Instrs = append(b.Instrs, in)
	b.Term = in
	return in
}
