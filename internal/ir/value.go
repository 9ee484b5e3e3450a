package ir

import "fmt"

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Value is anything an instruction operand can refer to: another
// instruction's result or a constant. Call targets and branch targets are
// not Values; they are carried in Instr.Name and Instr.Then/Else.
type Value interface {
	Type() Type
	String() string
}

// Op enumerates every IR opcode. The set covers arithmetic, comparison,
// control flow, memory access over actor/struct/array records, function
// calls, and the three actor-runtime primitives (Spawn, Send, RecvTag)
// that make this IR specific to ARNm rather than a generic expression
// language.
type Op uint8

const (
	OpConstI32 Op = iota
	OpConstI64
	OpConstF32
	OpConstF64
	OpConstBool
	OpConstStr // operand: a string-table index folded into Instr.Imm.

	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpNeg
	OpNot // boolean not.
	OpBNot // bitwise not.

	OpICmpEQ
	OpICmpNE
	OpICmpLT
	OpICmpLE
	OpICmpGT
	OpICmpGE

	OpAlloca    // reserve local storage for the ir.Type held in Instr.Imm; ValType is Ptr.
	OpLoad      // load Instr.ValType from operand 0 (a Ptr).
	OpStore     // store operand 1 into *operand 0; has no result (Void).
	OpFieldPtr  // operand 0 (Ptr to a record) + Instr.Imm (field index) -> Ptr.
	OpIndexPtr  // operand 0 (Ptr to an array buffer) + operand 1 (index) -> Ptr.
	OpArrayLen  // operand 0 (Ptr to an array buffer) -> I32 element count.
	OpAllocRecord // allocate a GC/ARC-tracked record of Instr.Imm fields (8 bytes each in the emitters), tagged with Instr.Name (the actor/struct's type name); returns Ptr.
	OpAllocArray  // allocate a GC/ARC-tracked array of operand 0 elements of the ir.Type held in Instr.Imm; ValType is Ptr.

	OpCall   // operand 0.. are arguments; Instr.Name is the callee.
	OpRet
	OpBr
	OpCondBr

	OpSpawn   // Instr.Name names the actor type; operands are constructor args; returns Ptr (a process handle).
	OpSend    // operand 0 = process handle, operand 1 = i32 payload; Void result.
	OpRecvTag // blocks the calling process's goroutine until a message arrives, then dequeues and returns its raw I32 payload; irgen lowers the enclosing receive block's arms to a CondBr chain over this value, exactly as it lowers an if/else-if chain.

	OpArg // reads function parameter Instr.Imm.
)

var opNames = [...]string{
	OpConstI32: "const.i32", OpConstI64: "const.i64", OpConstF32: "const.f32",
	OpConstF64: "const.f64", OpConstBool: "const.bool", OpConstStr: "const.str",
	OpAdd: "add", OpSub: "sub", OpMul: "mul", OpDiv: "div", OpMod: "mod",
	OpNeg: "neg", OpNot: "not", OpBNot: "bnot",
	OpICmpEQ: "icmp.eq", OpICmpNE: "icmp.ne", OpICmpLT: "icmp.lt",
	OpICmpLE: "icmp.le", OpICmpGT: "icmp.gt", OpICmpGE: "icmp.ge",
	OpAlloca: "alloca", OpLoad: "load", OpStore: "store",
	OpFieldPtr: "field.ptr", OpIndexPtr: "index.ptr", OpArrayLen: "array.len",
	OpAllocRecord: "alloc.record", OpAllocArray: "alloc.array",
	OpCall: "call", OpRet: "ret", OpBr: "br", OpCondBr: "condbr",
	OpSpawn: "spawn", OpSend: "send", OpRecvTag: "recv.tag",
	OpArg: "arg",
}

func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("op(%d)", uint8(op))
}

// Instr is a single IR instruction. Which fields are meaningful is
// determined by Op, documented alongside each opcode above. An Instr is
// itself a Value: its result (if Op produces one) is referenced by other
// instructions holding a pointer to it, a register-as-pointer convention.
type Instr struct {
	id      int
	Op      Op
	ValType Type // the type of the value this instruction produces (Void if none).

	Operands []Value
	Name     string // Call/Spawn/AllocRecord: symbol name.
	Imm      int64  // opcode-specific immediate: field index, string-table index, field count, ir.Type, arm count.
	ImmF     float64

	// Control flow only.
	Then *Block
	Else *Block
}

func (i *Instr) Type() Type { return i.ValType }

func (i *Instr) String() string {
	if i.ValType == Void {
		return fmt.Sprintf("%s %s", i.Op, operandList(i.Operands))
	}
	return fmt.Sprintf("%%%d = %s %s %s", i.id, i.ValType, i.Op, operandList(i.Operands))
}

func operandList(vs []Value) string {
	s := ""
	for idx, v := range vs {
		if idx > 0 {
			s += ", "
		}
		s += v.String()
	}
	return s
}

// ConstInt is an immediate integer Value, not tied to any instruction.
type ConstInt struct {
	Val int64
	Ty  Type
}

func (c ConstInt) Type() Type   { return c.Ty }
func (c ConstInt) String() string { return fmt.Sprintf("%d", c.Val) }

// ConstFloat is an immediate floating point Value.
type ConstFloat struct {
	Val float64
	Ty  Type
}

func (c ConstFloat) Type() Type   { return c.Ty }
func (c ConstFloat) String() string { return fmt.Sprintf("%g", c.Val) }

// ConstBool is an immediate boolean Value.
type ConstBool bool

func (c ConstBool) Type() Type { return I1 }
func (c ConstBool) String() string {
	if c {
		return "true"
	}
	return "false"
}
