// Package x86 renders an internal/ir.Module as x86-64 assembly text
// (AT&T syntax, System V AMD64 calling convention), using three fixed
// integer scratch registers and no register allocator at all: every
// ir.Value here gets a fixed stack slot and every operation round-trips
// its operands through a couple of scratch registers, a "spill
// everywhere" strategy that honors the IR contract (every opcode has a
// rendering) without attempting real instruction selection or register
// allocation.
package x86

import (
	"fmt"
	"strings"

	"github.com/arnm-lang/arnm/internal/ir"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// scratch is the fixed pool of integer scratch registers every operation
// round-trips its operands through; nothing here is dynamically allocated
// or freed, A, B and C are reused by every instruction in turn.
const (
	scratchA = "%rax"
	scratchB = "%rcx"
	scratchC = "%rdx"
)

// argRegs are the System V AMD64 integer argument registers, in order.
var argRegs = []string{"%rdi", "%rsi", "%rdx", "%rcx", "%r8", "%r9"}

type emitter struct {
	mod *ir.Module
	sb  strings.Builder

	slots  map[int]int // instruction id -> byte offset from rbp (negative).
	frame  int         // current function's frame size in bytes.
}

// ---------------------
// ----- functions -----
// ---------------------

// Emit renders m as x86-64 assembly text.
func Emit(m *ir.Module) string {
	e := &emitter{mod: m}
	e.emitHeader()
	for _, f := range m.Functions {
		e.emitFunction(f)
	}
	e.emitStrings()
	return e.sb.String()
}

func (e *emitter) emitHeader() {
	e.sb.WriteString("# generated by arnmc -emit-asm\n")
	e.sb.WriteString(".text\n")
	for _, name := range []string{
		"arnm_spawn", "arnm_self", "arnm_yield", "arnm_exit", "arnm_send",
		"arnm_receive", "arnm_try_receive", "arnm_message_free",
		"arnm_print_int", "arnm_panic_nomatch", "arnm_alloc_record",
		"arnm_alloc_array", "arnm_array_len",
	} {
		fmt.Fprintf(&e.sb, ".extern %s\n", name)
	}
	e.sb.WriteByte('\n')
}

func (e *emitter) emitStrings() {
	if len(e.mod.Strings()) == 0 {
		return
	}
	e.sb.WriteString(".data\n")
	for idx, s := range e.mod.Strings() {
		fmt.Fprintf(&e.sb, ".Lstr%d:\n\t.asciz %q\n", idx, s)
	}
}

// mangle replaces irgen's "Actor::method" qualifier with an assembler-legal
// label; `::` cannot appear in a symbol name.
func mangle(name string) string {
	return strings.ReplaceAll(name, "::", "_")
}

// slotOf returns the fixed stack offset assigned to the value in at -8*(n)
// bytes below the frame pointer, assigning a fresh slot the first time an
// id is seen. Every ir.Value the function ever produces gets one, whether
// or not it is spilled in a conventional allocator's sense — that is the
// point of this strategy.
func (e *emitter) slotOf(id int) int {
	if off, ok := e.slots[id]; ok {
		return off
	}
	off := -8 * (len(e.slots) + 1)
	e.slots[id] = off
	return off
}

func (e *emitter) countSlots(f *ir.Function) int {
	n := len(f.Params)
	for _, b := range f.Blocks {
		n += len(b.Instrs)
	}
	return n
}

func (e *emitter) emitFunction(f *ir.Function) {
	e.slots = make(map[int]int)
	e.frame = 8 * e.countSlots(f)
	if e.frame%16 != 0 {
		e.frame += 8
	}

	name := mangle(f.Name)
	fmt.Fprintf(&e.sb, ".globl %s\n%s:\n", name, name)
	e.sb.WriteString("\tpush %rbp\n")
	e.sb.WriteString("\tmov %rsp, %rbp\n")
	fmt.Fprintf(&e.sb, "\tsub $%d, %%rsp\n", e.frame)

	for i, p := range f.Params {
		off := e.slotOf(paramSlotID(i))
		if i < len(argRegs) {
			fmt.Fprintf(&e.sb, "\tmov %s, %d(%%rbp)  # param %s\n", argRegs[i], off, p.Name)
		}
	}

	for _, b := range f.Blocks {
		fmt.Fprintf(&e.sb, "%s:\n", blockLabel(f, b))
		for _, in := range b.Instrs {
			e.emitInstr(f, in)
		}
		if b.Term != nil {
			e.emitTerm(f, b.Term)
		}
	}

	e.sb.WriteByte('\n')
}

// paramSlotID gives function parameters their own id space (negative),
// disjoint from instruction ids (which start at 1), so a parameter and an
// instruction never collide in e.slots.
func paramSlotID(i int) int { return -(i + 1) }

func blockLabel(f *ir.Function, b *ir.Block) string {
	return fmt.Sprintf(".L%s_%s", mangle(f.Name), b.Name())
}

// load moves the value held in slot id into reg.
func (e *emitter) load(reg string, id int) {
	fmt.Fprintf(&e.sb, "\tmov %d(%%rbp), %s\n", e.slotOf(id), reg)
}

func (e *emitter) store(id int, reg string) {
	fmt.Fprintf(&e.sb, "\tmov %s, %d(%%rbp)\n", reg, e.slotOf(id))
}

// loadValue loads any ir.Value (instruction result or literal constant)
// into reg.
func (e *emitter) loadValue(reg string, v ir.Value) {
	switch val := v.(type) {
	case *ir.Instr:
		e.load(reg, instrID(val))
	case ir.ConstInt:
		fmt.Fprintf(&e.sb, "\tmov $%d, %s\n", val.Val, reg)
	case ir.ConstBool:
		n := 0
		if val {
			n = 1
		}
		fmt.Fprintf(&e.sb, "\tmov $%d, %s\n", n, reg)
	default:
		fmt.Fprintf(&e.sb, "\tmov $0, %s\n", reg)
	}
}

// instrID recovers an *ir.Instr's id from its String() rendering, since the
// id field itself is unexported outside package ir (every value-producing
// instruction's String() leads with "%<id> = ").
func instrID(in *ir.Instr) int {
	s := in.String()
	if !strings.HasPrefix(s, "%") {
		return 0
	}
	var id int
	fmt.Sscanf(s[1:], "%d", &id)
	return id
}

func (e *emitter) emitInstr(f *ir.Function, in *ir.Instr) {
	id := instrID(in)
	switch in.Op {
	case ir.OpConstI32, ir.OpConstI64, ir.OpConstBool:
		fmt.Fprintf(&e.sb, "\tmov $%d, %s\n", in.Imm, scratchA)
		e.store(id, scratchA)
	case ir.OpConstF32, ir.OpConstF64:
		// No SSE lane management in this contract-only backend; floats are
		// round-tripped through the integer scratch path as a bit pattern
		// placeholder — every opcode gets a rendering, but real float
		// instruction selection is out of scope here.
		fmt.Fprintf(&e.sb, "\tmov $0, %s  # float %g\n", scratchA, in.ImmF)
		e.store(id, scratchA)
	case ir.OpConstStr:
		fmt.Fprintf(&e.sb, "\tlea .Lstr%d(%%rip), %s\n", in.Imm, scratchA)
		e.store(id, scratchA)
	case ir.OpAdd:
		e.binOp(id, in, "add")
	case ir.OpSub:
		e.binOp(id, in, "sub")
	case ir.OpMul:
		e.binOp(id, in, "imul")
	case ir.OpDiv:
		e.divOp(id, in, false)
	case ir.OpMod:
		e.divOp(id, in, true)
	case ir.OpNeg:
		e.loadValue(scratchA, in.Operands[0])
		e.sb.WriteString("\tneg %rax\n")
		e.store(id, scratchA)
	case ir.OpNot:
		e.loadValue(scratchA, in.Operands[0])
		e.sb.WriteString("\txor $1, %rax\n")
		e.store(id, scratchA)
	case ir.OpBNot:
		e.loadValue(scratchA, in.Operands[0])
		e.sb.WriteString("\tnot %rax\n")
		e.store(id, scratchA)
	case ir.OpICmpEQ, ir.OpICmpNE, ir.OpICmpLT, ir.OpICmpLE, ir.OpICmpGT, ir.OpICmpGE:
		e.cmpOp(id, in)
	case ir.OpAlloca:
		// The value's own stack slot doubles as its storage; later
		// Load/Store addresses it directly, so Alloca just yields that
		// slot's address rather than reserving separate space.
		fmt.Fprintf(&e.sb, "\tlea %d(%%rbp), %s\n", e.slotOf(id), scratchA)
		e.store(id, scratchA)
	case ir.OpLoad:
		e.loadValue(scratchA, in.Operands[0])
		e.sb.WriteString("\tmov (%rax), %rax\n")
		e.store(id, scratchA)
	case ir.OpStore:
		e.loadValue(scratchA, in.Operands[0])
		e.loadValue(scratchB, in.Operands[1])
		e.sb.WriteString("\tmov %rcx, (%rax)\n")
	case ir.OpFieldPtr:
		e.loadValue(scratchA, in.Operands[0])
		fmt.Fprintf(&e.sb, "\tadd $%d, %s\n", in.Imm*8, scratchA)
		e.store(id, scratchA)
	case ir.OpIndexPtr:
		e.loadValue(scratchA, in.Operands[0])
		e.loadValue(scratchB, in.Operands[1])
		e.sb.WriteString("\timul $8, %rcx, %rcx\n")
		e.sb.WriteString("\tadd %rcx, %rax\n")
		e.store(id, scratchA)
	case ir.OpArrayLen:
		e.emitCallHelper(id, "arnm_array_len", in.Operands)
	case ir.OpAllocRecord:
		fmt.Fprintf(&e.sb, "\tmov $%d, %%rdi\n", in.Imm*8)
		e.sb.WriteString("\tcall arnm_alloc_record\n")
		e.store(id, scratchA)
	case ir.OpAllocArray:
		e.loadValue("%rdi", in.Operands[0])
		fmt.Fprintf(&e.sb, "\tmov $%d, %%rsi\n", in.Imm)
		e.sb.WriteString("\tcall arnm_alloc_array\n")
		e.store(id, scratchA)
	case ir.OpCall:
		e.emitCall(id, in)
	case ir.OpArg:
		e.load(scratchA, paramSlotID(int(in.Imm)))
		e.store(id, scratchA)
	case ir.OpSpawn:
		fmt.Fprintf(&e.sb, "\tlea %s(%%rip), %%rdi\n", mangle(in.Name+"__behavior"))
		e.sb.WriteString("\tmov $0, %rsi\n")
		fmt.Fprintf(&e.sb, "\tmov $%d, %%rdx\n", len(in.Operands)*8)
		e.sb.WriteString("\tcall arnm_spawn\n")
		e.store(id, scratchA)
	case ir.OpSend:
		e.loadValue("%rdi", in.Operands[0])
		e.loadValue("%rsi", in.Operands[1])
		e.sb.WriteString("\tmov $0, %rdx\n")
		e.sb.WriteString("\tmov $0, %rcx\n")
		e.sb.WriteString("\tcall arnm_send\n")
		e.store(id, scratchA)
	case ir.OpRecvTag:
		// The tag sits at offset 0 of ArnmMessage, so %rax (the
		// returned message pointer) is read directly.
		e.sb.WriteString("\tcall arnm_self\n")
		e.sb.WriteString("\tmov %rax, %rdi\n")
		e.sb.WriteString("\tcall arnm_receive\n")
		e.sb.WriteString("\tmov (%rax), %rcx\n")
		e.sb.WriteString("\tmov %rax, %rdi\n")
		e.sb.WriteString("\tcall arnm_message_free\n")
		e.store(id, scratchB)
	}
	_ = f
}

func (e *emitter) binOp(id int, in *ir.Instr, mnemonic string) {
	e.loadValue(scratchA, in.Operands[0])
	e.loadValue(scratchB, in.Operands[1])
	fmt.Fprintf(&e.sb, "\t%s %%rcx, %%rax\n", mnemonic)
	e.store(id, scratchA)
}

func (e *emitter) divOp(id int, in *ir.Instr, mod bool) {
	e.loadValue(scratchA, in.Operands[0])
	e.loadValue(scratchB, in.Operands[1])
	e.sb.WriteString("\tcqto\n")
	e.sb.WriteString("\tidiv %rcx\n")
	if mod {
		e.store(id, scratchC) // remainder lands in rdx per idiv's contract.
	} else {
		e.store(id, scratchA)
	}
}

func (e *emitter) cmpOp(id int, in *ir.Instr) {
	e.loadValue(scratchA, in.Operands[0])
	e.loadValue(scratchB, in.Operands[1])
	e.sb.WriteString("\tcmp %rcx, %rax\n")
	set := map[ir.Op]string{
		ir.OpICmpEQ: "sete", ir.OpICmpNE: "setne",
		ir.OpICmpLT: "setl", ir.OpICmpLE: "setle",
		ir.OpICmpGT: "setg", ir.OpICmpGE: "setge",
	}[in.Op]
	fmt.Fprintf(&e.sb, "\t%s %%al\n", set)
	e.sb.WriteString("\tmovzbq %al, %rax\n")
	e.store(id, scratchA)
}

func (e *emitter) emitCallHelper(id int, helper string, operands []ir.Value) {
	for i, op := range operands {
		if i < len(argRegs) {
			e.loadValue(argRegs[i], op)
		}
	}
	fmt.Fprintf(&e.sb, "\tcall %s\n", helper)
	e.store(id, scratchA)
}

func (e *emitter) emitCall(id int, in *ir.Instr) {
	e.emitCallHelper(id, runtimeCallee(in.Name), in.Operands)
}

// runtimeCallee maps the `print` intrinsic to its runtime ABI symbol;
// everything else is a user-defined function or method, mangled the same
// way emitFunction labels its own definitions.
func runtimeCallee(name string) string {
	if name == "print" {
		return "arnm_print_int"
	}
	return mangle(name)
}

func (e *emitter) emitTerm(f *ir.Function, in *ir.Instr) {
	switch in.Op {
	case ir.OpRet:
		if len(in.Operands) > 0 {
			e.loadValue(scratchA, in.Operands[0])
		}
		e.sb.WriteString("\tmov %rbp, %rsp\n")
		e.sb.WriteString("\tpop %rbp\n")
		e.sb.WriteString("\tret\n")
	case ir.OpBr:
		fmt.Fprintf(&e.sb, "\tjmp %s\n", blockLabel(f, in.Then))
	case ir.OpCondBr:
		e.loadValue(scratchA, in.Operands[0])
		e.sb.WriteString("\tcmp $0, %rax\n")
		fmt.Fprintf(&e.sb, "\tjne %s\n", blockLabel(f, in.Then))
		fmt.Fprintf(&e.sb, "\tjmp %s\n", blockLabel(f, in.Else))
	}
}
