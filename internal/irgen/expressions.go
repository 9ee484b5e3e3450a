package irgen

import (
	"github.com/arnm-lang/arnm/internal/ast"
	"github.com/arnm-lang/arnm/internal/ir"
	"github.com/arnm-lang/arnm/internal/token"
	"github.com/arnm-lang/arnm/internal/types"
)

// lowerExpr lowers the expression rooted at id to the ir.Value computing
// it, emitting whatever instructions that takes into the current block.
func (g *Generator) lowerExpr(id ast.NodeID) ir.Value {
	if !g.tree.Valid(id) {
		return ir.ConstInt{Ty: ir.I32}
	}
	n := g.tree.Get(id)
	switch n.Kind {
	case ast.IntLit:
		return g.blk.CreateConstI32(n.IntVal)
	case ast.FloatLit:
		return g.blk.CreateConstF64(n.FloatVal)
	case ast.StringLit:
		return g.blk.CreateConstStr(n.StrVal)
	case ast.CharLit:
		var code int64
		for _, r := range n.StrVal {
			code = int64(r)
			break
		}
		return g.blk.CreateConstI32(code)
	case ast.BoolLit:
		return g.blk.CreateConstBool(n.BoolVal)
	case ast.SelfExpr:
		return g.selfPtr
	case ast.IdentExpr:
		return g.lowerIdent(n)
	case ast.FieldExpr:
		return g.lowerField(n)
	case ast.IndexExpr:
		return g.lowerIndexExpr(n)
	case ast.CallExpr:
		return g.lowerCall(n)
	case ast.AssignExpr:
		return g.lowerAssign(n)
	case ast.BinaryExpr:
		return g.lowerBinary(n)
	case ast.UnaryExpr:
		return g.lowerUnary(n)
	case ast.SendExpr:
		return g.lowerSend(n)
	case ast.SpawnStmt:
		return g.lowerSpawn(n)
	default:
		return ir.ConstInt{Ty: ir.I32}
	}
}

func (g *Generator) lowerIdent(n *ast.Node) ir.Value {
	if slot, ok := g.lookup(n.Name); ok {
		return g.blk.CreateLoad(lowerType(n.ResolvedType), slot)
	}
	if g.curActor != nil {
		for i, f := range g.curActor.Fields {
			if f.Name == n.Name {
				fp := g.blk.CreateFieldPtr(g.selfPtr, i)
				return g.blk.CreateLoad(lowerType(f.Type), fp)
			}
		}
	}
	return ir.ConstInt{Ty: lowerType(n.ResolvedType)}
}

func (g *Generator) lowerField(n *ast.Node) ir.Value {
	if len(n.Children) < 1 {
		return ir.ConstInt{Ty: ir.I32}
	}
	ptr := g.fieldPtr(n)
	if ptr == nil {
		return ir.ConstInt{Ty: lowerType(n.ResolvedType)}
	}
	return g.blk.CreateLoad(lowerType(n.ResolvedType), ptr)
}

// fieldPtr computes the address of a FieldExpr's field within its base
// record, used both by lowerField (which loads through it) and by
// lvaluePtr (which stores through it instead).
func (g *Generator) fieldPtr(n *ast.Node) ir.Value {
	baseID := n.Children[0]
	base := g.tree.Get(baseID)
	basePtr := g.lowerExpr(baseID)
	objTy := types.Resolve(base.ResolvedType)
	idx := fieldIndex(objTy, n.Name)
	if idx < 0 {
		return nil
	}
	return g.blk.CreateFieldPtr(basePtr, idx)
}

func (g *Generator) lowerIndexExpr(n *ast.Node) ir.Value {
	if len(n.Children) < 2 {
		return ir.ConstInt{Ty: ir.I32}
	}
	arr := g.lowerExpr(n.Children[0])
	idx := g.lowerExpr(n.Children[1])
	ptr := g.blk.CreateIndexPtr(arr, idx)
	return g.blk.CreateLoad(lowerType(n.ResolvedType), ptr)
}

// lvaluePtr computes the address an assignment should store through,
// without loading the current value first (unlike lowerField/lowerIdent,
// which are always read paths).
func (g *Generator) lvaluePtr(id ast.NodeID) ir.Value {
	n := g.tree.Get(id)
	switch n.Kind {
	case ast.IdentExpr:
		if slot, ok := g.lookup(n.Name); ok {
			return slot
		}
		if g.curActor != nil {
			for i, f := range g.curActor.Fields {
				if f.Name == n.Name {
					return g.blk.CreateFieldPtr(g.selfPtr, i)
				}
			}
		}
		return nil
	case ast.FieldExpr:
		return g.fieldPtr(n)
	case ast.IndexExpr:
		if len(n.Children) < 2 {
			return nil
		}
		arr := g.lowerExpr(n.Children[0])
		idx := g.lowerExpr(n.Children[1])
		return g.blk.CreateIndexPtr(arr, idx)
	default:
		return nil
	}
}

func (g *Generator) lowerAssign(n *ast.Node) ir.Value {
	if len(n.Children) < 2 {
		return ir.ConstInt{Ty: ir.I32}
	}
	targetID, valueID := n.Children[0], n.Children[1]
	ty := lowerType(n.ResolvedType)
	ptr := g.lvaluePtr(targetID)
	val := g.lowerExpr(valueID)
	if ptr == nil {
		return val
	}
	if n.Op != token.ASSIGN {
		cur := g.blk.CreateLoad(ty, ptr)
		val = g.compoundOp(n.Op, ty, cur, val)
	}
	g.blk.CreateStore(ptr, val)
	return val
}

func (g *Generator) compoundOp(op token.Kind, ty ir.Type, l, r ir.Value) ir.Value {
	switch op {
	case token.PLUSEQ:
		return g.blk.CreateAdd(ty, l, r)
	case token.MINUSEQ:
		return g.blk.CreateSub(ty, l, r)
	case token.STAREQ:
		return g.blk.CreateMul(ty, l, r)
	case token.SLASHEQ:
		return g.blk.CreateDiv(ty, l, r)
	default:
		return r
	}
}

func (g *Generator) lowerBinary(n *ast.Node) ir.Value {
	if len(n.Children) < 2 {
		return ir.ConstInt{Ty: ir.I32}
	}
	// Ranges never reach here as a value: checkFor special-cases a
	// BinaryExpr with a DOTDOT/DOTDOTEQ op and lowerFor consumes its
	// operands directly rather than calling lowerExpr on the range itself.
	if n.Op == token.AND || n.Op == token.OR {
		return g.lowerShortCircuit(n)
	}
	lhs := g.lowerExpr(n.Children[0])
	rhs := g.lowerExpr(n.Children[1])
	ty := lowerType(g.tree.Get(n.Children[0]).ResolvedType)
	switch n.Op {
	case token.PLUS:
		return g.blk.CreateAdd(ty, lhs, rhs)
	case token.MINUS:
		return g.blk.CreateSub(ty, lhs, rhs)
	case token.STAR:
		return g.blk.CreateMul(ty, lhs, rhs)
	case token.SLASH:
		return g.blk.CreateDiv(ty, lhs, rhs)
	case token.PERCENT:
		return g.blk.CreateMod(ty, lhs, rhs)
	case token.LT:
		return g.blk.CreateICmpLT(lhs, rhs)
	case token.LE:
		return g.blk.CreateICmpLE(lhs, rhs)
	case token.GT:
		return g.blk.CreateICmpGT(lhs, rhs)
	case token.GE:
		return g.blk.CreateICmpGE(lhs, rhs)
	case token.EQ:
		return g.blk.CreateICmpEQ(lhs, rhs)
	case token.NEQ:
		return g.blk.CreateICmpNE(lhs, rhs)
	default:
		return lhs
	}
}

// lowerShortCircuit lowers `&&`/`||` without a dedicated IR opcode: the
// left operand is always evaluated, the right operand only when its value
// could change the result, matching the short-circuit semantics callers
// writing a guard like `p != null && p.field` rely on.
func (g *Generator) lowerShortCircuit(n *ast.Node) ir.Value {
	lhs := g.lowerExpr(n.Children[0])
	slot := g.blk.CreateAlloca(ir.I1)
	g.blk.CreateStore(slot, lhs)

	rhsBlk := g.fn.CreateBlock()
	mergeBlk := g.fn.CreateBlock()
	if n.Op == token.AND {
		g.blk.CreateCondBr(lhs, rhsBlk, mergeBlk)
	} else {
		g.blk.CreateCondBr(lhs, mergeBlk, rhsBlk)
	}

	g.blk = rhsBlk
	rhs := g.lowerExpr(n.Children[1])
	g.blk.CreateStore(slot, rhs)
	g.blk.CreateBr(mergeBlk)

	g.blk = mergeBlk
	return g.blk.CreateLoad(ir.I1, slot)
}

func (g *Generator) lowerUnary(n *ast.Node) ir.Value {
	if len(n.Children) < 1 {
		return ir.ConstInt{Ty: ir.I32}
	}
	v := g.lowerExpr(n.Children[0])
	ty := lowerType(n.ResolvedType)
	switch n.Op {
	case token.MINUS:
		return g.blk.CreateNeg(ty, v)
	case token.BANG:
		return g.blk.CreateNot(v)
	case token.TILDE:
		return g.blk.CreateBNot(ty, v)
	default:
		return v
	}
}

// lowerCall lowers both a free-function call (`foo(args)`, IdentExpr
// callee) and a method call (`recv.foo(args)`, FieldExpr callee) to an
// OpCall against the callee's mangled name — "foo" for the former,
// "Actor::foo" for the latter, the same qualification sema's methodKey
// used to register it — with the receiver prepended as an implicit
// leading argument.
func (g *Generator) lowerCall(n *ast.Node) ir.Value {
	if len(n.Children) < 1 {
		return ir.ConstInt{Ty: ir.I32}
	}
	calleeID := n.Children[0]
	callee := g.tree.Get(calleeID)
	resultTy := lowerType(n.ResolvedType)

	switch callee.Kind {
	case ast.IdentExpr:
		args := make([]ir.Value, 0, len(n.Children)-1)
		for _, argID := range n.Children[1:] {
			args = append(args, g.lowerExpr(argID))
		}
		return g.blk.CreateCall(resultTy, callee.Name, args...)
	case ast.FieldExpr:
		if len(callee.Children) < 1 {
			return ir.ConstInt{Ty: ir.I32}
		}
		recvTy := types.Resolve(g.tree.Get(callee.Children[0]).ResolvedType)
		recv := g.lowerExpr(callee.Children[0])
		args := make([]ir.Value, 0, len(n.Children))
		args = append(args, recv)
		for _, argID := range n.Children[1:] {
			args = append(args, g.lowerExpr(argID))
		}
		return g.blk.CreateCall(resultTy, methodKey(recvTy.Name, callee.Name), args...)
	default:
		return ir.ConstInt{Ty: ir.I32}
	}
}

// lowerSpawn lowers `spawn Actor(args)` to an OpSpawn against the actor's
// type name, carrying the lowered constructor arguments as operands. No
// call to Actor::init is emitted here, and the runtime's arnm_spawn does
// not call it either.
func (g *Generator) lowerSpawn(n *ast.Node) ir.Value {
	if len(n.Children) < 1 {
		return ir.ConstInt{Ty: ir.Ptr}
	}
	call := g.tree.Get(n.Children[0])
	callee := g.tree.Get(call.Children[0])
	args := make([]ir.Value, 0, len(call.Children)-1)
	for _, argID := range call.Children[1:] {
		args = append(args, g.lowerExpr(argID))
	}
	return g.blk.CreateSpawn(callee.Name, args...)
}

func (g *Generator) lowerSend(n *ast.Node) ir.Value {
	if len(n.Children) < 2 {
		return ir.ConstInt{Ty: ir.Void}
	}
	target := g.lowerExpr(n.Children[0])
	msg := g.lowerExpr(n.Children[1])
	g.blk.CreateSend(target, msg)
	return ir.ConstInt{Ty: ir.Void}
}
