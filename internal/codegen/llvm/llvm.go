// Package llvm renders an internal/ir.Module as LLVM textual IR (a `.ll`
// file) rather than driving LLVM's C API through cgo bindings to build an
// in-memory module opcode by opcode. This backend keeps that same "one
// case per IR opcode, fall through to the runtime ABI for anything
// process-related" structure but renders text directly, avoiding a cgo
// dependency on the runtime: every opcode has a rendering, but no
// peephole optimization or cross-block register allocation is attempted.
package llvm

import (
	"fmt"
	"strings"

	"github.com/arnm-lang/arnm/internal/ir"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// emitter holds the state threaded through rendering one ir.Module.
type emitter struct {
	mod *ir.Module
	sb  strings.Builder
}

// ---------------------
// ----- functions -----
// ---------------------

// Emit renders m as LLVM IR text.
func Emit(m *ir.Module) string {
	e := &emitter{mod: m}
	e.emitHeader()
	e.emitStrings()
	e.emitRecords()
	for _, f := range m.Functions {
		e.emitFunction(f)
	}
	return e.sb.String()
}

func (e *emitter) emitHeader() {
	e.sb.WriteString("; generated by arnmc -emit-llvm\n")
	e.sb.WriteString("target triple = \"x86_64-unknown-linux-gnu\"\n\n")
	e.sb.WriteString("declare ptr @arnm_spawn(ptr, ptr, i64)\n")
	e.sb.WriteString("declare ptr @arnm_self()\n")
	e.sb.WriteString("declare void @arnm_yield()\n")
	e.sb.WriteString("declare void @arnm_exit()\n")
	e.sb.WriteString("declare i32 @arnm_send(ptr, i32, ptr, i64)\n")
	e.sb.WriteString("declare ptr @arnm_receive(ptr)\n")
	e.sb.WriteString("declare ptr @arnm_try_receive()\n")
	e.sb.WriteString("declare void @arnm_message_free(ptr)\n")
	e.sb.WriteString("declare void @arnm_print_int(i32)\n")
	e.sb.WriteString("declare void @arnm_panic_nomatch()\n")
	e.sb.WriteString("declare ptr @arnm_alloc_record(i64)\n")
	e.sb.WriteString("declare ptr @arnm_alloc_array(i32, i32)\n")
	e.sb.WriteString("declare i32 @arnm_array_len(ptr)\n\n")
}

func (e *emitter) emitStrings() {
	for idx, s := range e.mod.Strings() {
		fmt.Fprintf(&e.sb, "@.str.%d = private unnamed_addr constant [%d x i8] c%q\n", idx, len(s)+1, s+"\x00")
	}
	if len(e.mod.Strings()) > 0 {
		e.sb.WriteByte('\n')
	}
}

// emitRecords renders a comment block describing every actor/struct's
// field layout; LLVM IR has no named-struct requirement here since every
// record is opaque i8* memory the runtime allocates; OpFieldPtr carries the
// field index, which the emitter scales by 8 bytes.
func (e *emitter) emitRecords() {
	for _, r := range e.mod.Records {
		fmt.Fprintf(&e.sb, "; record %s (actor=%v)\n", r.Name, r.IsActor)
		for _, f := range r.Fields {
			fmt.Fprintf(&e.sb, ";   [%d] %s: %s\n", f.Index, f.Name, llType(f.Type))
		}
	}
	if len(e.mod.Records) > 0 {
		e.sb.WriteByte('\n')
	}
}

func llType(t ir.Type) string {
	switch t {
	case ir.Void:
		return "void"
	case ir.I1:
		return "i1"
	case ir.I32:
		return "i32"
	case ir.I64:
		return "i64"
	case ir.F32:
		return "float"
	case ir.F64:
		return "double"
	case ir.Ptr:
		return "ptr"
	default:
		return "i32"
	}
}

func reg(v ir.Value) string {
	if in, ok := v.(*ir.Instr); ok {
		return fmt.Sprintf("%%r%d", instrID(in))
	}
	switch c := v.(type) {
	case ir.ConstInt:
		return fmt.Sprintf("%d", c.Val)
	case ir.ConstFloat:
		return fmt.Sprintf("%g", c.Val)
	case ir.ConstBool:
		if c {
			return "1"
		}
		return "0"
	default:
		return "0"
	}
}

// instrID recovers an *ir.Instr's id via its textual form, since the field
// itself is unexported outside package ir; every Instr's String() leads
// with "%<id> = " for a value-producing instruction.
func instrID(in *ir.Instr) int {
	s := in.String()
	if !strings.HasPrefix(s, "%") {
		return 0
	}
	var id int
	fmt.Sscanf(s[1:], "%d", &id)
	return id
}

func (e *emitter) emitFunction(f *ir.Function) {
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = fmt.Sprintf("%s %%%s", llType(p.Type), p.Name)
	}
	fmt.Fprintf(&e.sb, "define %s @%s(%s) {\n", llType(f.Result), mangle(f.Name), strings.Join(params, ", "))
	for _, b := range f.Blocks {
		fmt.Fprintf(&e.sb, "%s:\n", b.Name())
		for _, in := range b.Instrs {
			e.emitInstr(f, in)
		}
		if b.Term != nil {
			e.emitTerm(b.Term)
		}
	}
	e.sb.WriteString("}\n\n")
}

// mangle replaces the `Actor::method` qualifier irgen uses with a plain
// LLVM-legal identifier; `::` is not valid inside an LLVM global name.
func mangle(name string) string {
	return strings.ReplaceAll(name, "::", ".")
}

func (e *emitter) emitInstr(f *ir.Function, in *ir.Instr) {
	dst := reg(in)
	switch in.Op {
	case ir.OpConstI32, ir.OpConstI64, ir.OpConstBool:
		fmt.Fprintf(&e.sb, "  %s = add %s %d, 0\n", dst, llType(in.ValType), in.Imm)
	case ir.OpConstF32, ir.OpConstF64:
		fmt.Fprintf(&e.sb, "  %s = fadd %s %g, 0.0\n", dst, llType(in.ValType), in.ImmF)
	case ir.OpConstStr:
		fmt.Fprintf(&e.sb, "  %s = getelementptr inbounds [0 x i8], ptr @.str.%d, i64 0, i64 0\n", dst, in.Imm)
	case ir.OpAdd:
		e.emitBinArith(dst, "add", "fadd", in)
	case ir.OpSub:
		e.emitBinArith(dst, "sub", "fsub", in)
	case ir.OpMul:
		e.emitBinArith(dst, "mul", "fmul", in)
	case ir.OpDiv:
		e.emitBinArith(dst, "sdiv", "fdiv", in)
	case ir.OpMod:
		e.emitBinArith(dst, "srem", "frem", in)
	case ir.OpNeg:
		if in.ValType.IsFloat() {
			fmt.Fprintf(&e.sb, "  %s = fsub %s 0.0, %s\n", dst, llType(in.ValType), reg(in.Operands[0]))
		} else {
			fmt.Fprintf(&e.sb, "  %s = sub %s 0, %s\n", dst, llType(in.ValType), reg(in.Operands[0]))
		}
	case ir.OpNot:
		fmt.Fprintf(&e.sb, "  %s = xor i1 %s, true\n", dst, reg(in.Operands[0]))
	case ir.OpBNot:
		fmt.Fprintf(&e.sb, "  %s = xor %s %s, -1\n", dst, llType(in.ValType), reg(in.Operands[0]))
	case ir.OpICmpEQ, ir.OpICmpNE, ir.OpICmpLT, ir.OpICmpLE, ir.OpICmpGT, ir.OpICmpGE:
		fmt.Fprintf(&e.sb, "  %s = icmp %s %s %s, %s\n", dst, icmpPred(in.Op), llType(operandType(in)), reg(in.Operands[0]), reg(in.Operands[1]))
	case ir.OpAlloca:
		fmt.Fprintf(&e.sb, "  %s = alloca %s\n", dst, llType(ir.Type(in.Imm)))
	case ir.OpLoad:
		fmt.Fprintf(&e.sb, "  %s = load %s, ptr %s\n", dst, llType(in.ValType), reg(in.Operands[0]))
	case ir.OpStore:
		fmt.Fprintf(&e.sb, "  store %s %s, ptr %s\n", llType(operandType2(in)), reg(in.Operands[1]), reg(in.Operands[0]))
	case ir.OpFieldPtr:
		fmt.Fprintf(&e.sb, "  %s = getelementptr inbounds i8, ptr %s, i64 %d\n", dst, reg(in.Operands[0]), in.Imm*8)
	case ir.OpIndexPtr:
		fmt.Fprintf(&e.sb, "  %s = getelementptr inbounds i8, ptr %s, i32 %s\n", dst, reg(in.Operands[0]), reg(in.Operands[1]))
	case ir.OpArrayLen:
		fmt.Fprintf(&e.sb, "  %s = call i32 @arnm_array_len(ptr %s)\n", dst, reg(in.Operands[0]))
	case ir.OpAllocRecord:
		fmt.Fprintf(&e.sb, "  %s = call ptr @arnm_alloc_record(i64 %d)\n", dst, in.Imm*8)
	case ir.OpAllocArray:
		fmt.Fprintf(&e.sb, "  %s = call ptr @arnm_alloc_array(i32 %s, i32 %d)\n", dst, reg(in.Operands[0]), in.Imm)
	case ir.OpCall:
		e.emitCall(dst, in)
	case ir.OpArg:
		if in.Imm < int64(len(f.Params)) {
			fmt.Fprintf(&e.sb, "  %s = add %s %%%s, 0\n", dst, llType(in.ValType), f.Params[in.Imm].Name)
		}
	case ir.OpSpawn:
		// Constructor argument marshaling into the spawned actor's state
		// block is a runtime/memory concern below this IR contract; the
		// state size passed here matches CreateAllocRecord's pointer-sized
		// per-field convention for the actor's declared constructor arity.
		fmt.Fprintf(&e.sb, "  %s = call ptr @arnm_spawn(ptr @%s, ptr null, i64 %d)\n", dst, mangle(in.Name+"__behavior"), len(in.Operands)*8)
	case ir.OpSend:
		fmt.Fprintf(&e.sb, "  %s = call i32 @arnm_send(ptr %s, i32 %s, ptr null, i64 0)\n", dst, reg(in.Operands[0]), reg(in.Operands[1]))
	case ir.OpRecvTag:
		// The message's tag sits at offset 0 of ArnmMessage, so the
		// receive handle loads directly rather than through a gep.
		selfh := dst + ".self"
		msg := dst + ".msg"
		fmt.Fprintf(&e.sb, "  %s = call ptr @arnm_self()\n", selfh)
		fmt.Fprintf(&e.sb, "  %s = call ptr @arnm_receive(ptr %s)\n", msg, selfh)
		fmt.Fprintf(&e.sb, "  %s = load i32, ptr %s\n", dst, msg)
		fmt.Fprintf(&e.sb, "  call void @arnm_message_free(ptr %s)\n", msg)
	}
}

func operandType(in *ir.Instr) ir.Type {
	if len(in.Operands) == 0 {
		return in.ValType
	}
	return in.Operands[0].Type()
}

func operandType2(in *ir.Instr) ir.Type {
	if len(in.Operands) < 2 {
		return in.ValType
	}
	return in.Operands[1].Type()
}

func (e *emitter) emitBinArith(dst, iop, fop string, in *ir.Instr) {
	op := iop
	if in.ValType.IsFloat() {
		op = fop
	}
	fmt.Fprintf(&e.sb, "  %s = %s %s %s, %s\n", dst, op, llType(in.ValType), reg(in.Operands[0]), reg(in.Operands[1]))
}

func icmpPred(op ir.Op) string {
	switch op {
	case ir.OpICmpEQ:
		return "eq"
	case ir.OpICmpNE:
		return "ne"
	case ir.OpICmpLT:
		return "slt"
	case ir.OpICmpLE:
		return "sle"
	case ir.OpICmpGT:
		return "sgt"
	default:
		return "sge"
	}
}

func (e *emitter) emitCall(dst string, in *ir.Instr) {
	args := make([]string, len(in.Operands))
	for i, op := range in.Operands {
		args[i] = fmt.Sprintf("%s %s", llType(op.Type()), reg(op))
	}
	callee := runtimeCallee(in.Name)
	if in.ValType == ir.Void {
		fmt.Fprintf(&e.sb, "  call void @%s(%s)\n", callee, strings.Join(args, ", "))
		return
	}
	fmt.Fprintf(&e.sb, "  %s = call %s @%s(%s)\n", dst, llType(in.ValType), callee, strings.Join(args, ", "))
}

// runtimeCallee maps the intrinsic `print` to its runtime ABI name;
// everything else is a user-defined function/method, mangled the same way
// emitFunction names its own definitions.
func runtimeCallee(name string) string {
	if name == "print" {
		return "arnm_print_int"
	}
	return mangle(name)
}

func (e *emitter) emitTerm(in *ir.Instr) {
	switch in.Op {
	case ir.OpRet:
		if len(in.Operands) == 0 {
			e.sb.WriteString("  ret void\n")
			return
		}
		fmt.Fprintf(&e.sb, "  ret %s %s\n", llType(in.Operands[0].Type()), reg(in.Operands[0]))
	case ir.OpBr:
		fmt.Fprintf(&e.sb, "  br label %%%s\n", in.Then.Name())
	case ir.OpCondBr:
		fmt.Fprintf(&e.sb, "  br i1 %s, label %%%s, label %%%s\n", reg(in.Operands[0]), in.Then.Name(), in.Else.Name())
	}
}
