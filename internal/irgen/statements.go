package irgen

import (
	"github.com/arnm-lang/arnm/internal/ast"
	"github.com/arnm-lang/arnm/internal/ir"
	"github.com/arnm-lang/arnm/internal/token"
	"github.com/arnm-lang/arnm/internal/types"
)

// lowerBlock opens a lexical scope, lowers every statement in order, and
// stops early if a statement already terminated the current block (a
// return/break/continue partway through a block leaves the rest
// unreachable; sema doesn't reject dead code, so irgen just skips it
// rather than emitting instructions after a terminator).
func (g *Generator) lowerBlock(blockID ast.NodeID) {
	if !g.tree.Valid(blockID) {
		return
	}
	g.pushScope()
	for _, stmtID := range g.tree.Get(blockID).Children {
		if g.blk.Term != nil {
			break
		}
		g.lowerStmt(stmtID)
	}
	g.popScope()
}

func (g *Generator) lowerStmt(id ast.NodeID) {
	n := g.tree.Get(id)
	switch n.Kind {
	case ast.LetStmt:
		g.lowerLet(n)
	case ast.ReturnStmt:
		g.lowerReturn(n)
	case ast.ExprStmt:
		if len(n.Children) > 0 {
			g.lowerExpr(n.Children[0])
		}
	case ast.IfStmt:
		g.lowerIf(n)
	case ast.WhileStmt:
		g.lowerWhile(n)
	case ast.ForStmt:
		g.lowerFor(n)
	case ast.LoopStmt:
		g.lowerLoop(n)
	case ast.BreakStmt:
		if len(g.breakTargets) > 0 {
			g.blk.CreateBr(g.breakTargets[len(g.breakTargets)-1])
		}
	case ast.ContinueStmt:
		if len(g.continueTargets) > 0 {
			g.blk.CreateBr(g.continueTargets[len(g.continueTargets)-1])
		}
	case ast.SpawnStmt:
		g.lowerExpr(id)
	case ast.ReceiveStmt:
		// Only reachable for a (currently unused) receive block nested inside
		// an ordinary statement list rather than directly as an actor member;
		// lowerActorBehavior handles the member-level form.
		for _, armID := range n.Children {
			arm := g.tree.Get(armID)
			if len(arm.Children) > 0 {
				g.lowerBlock(arm.Children[0])
			}
		}
	}
}

func (g *Generator) lowerLet(n *ast.Node) {
	ty := lowerType(n.ResolvedType)
	slot := g.blk.CreateAlloca(ty)
	if len(n.Children) > 0 {
		val := g.lowerExpr(n.Children[0])
		g.blk.CreateStore(slot, val)
	} else {
		g.blk.CreateStore(slot, zeroValue(ty))
	}
	g.bind(n.Name, slot)
}

func (g *Generator) lowerReturn(n *ast.Node) {
	if len(n.Children) > 0 {
		g.blk.CreateRet(g.lowerExpr(n.Children[0]))
		return
	}
	g.blk.CreateRet(nil)
}

// lowerIf lowers an if/else-if/else chain into a then block, an optional
// else block (itself possibly another if, handled by recursing through
// lowerStmt), and a shared merge block every non-terminated arm falls
// through to.
func (g *Generator) lowerIf(n *ast.Node) {
	if len(n.Children) < 2 {
		return
	}
	cond := g.lowerExpr(n.Children[0])
	thenBlk := g.fn.CreateBlock()
	mergeBlk := g.fn.CreateBlock()
	hasElse := len(n.Children) > 2

	if hasElse {
		elseBlk := g.fn.CreateBlock()
		g.blk.CreateCondBr(cond, thenBlk, elseBlk)

		g.blk = thenBlk
		g.lowerBlock(n.Children[1])
		if g.blk.Term == nil {
			g.blk.CreateBr(mergeBlk)
		}

		g.blk = elseBlk
		elseID := n.Children[2]
		if g.tree.Get(elseID).Kind == ast.IfStmt {
			g.lowerStmt(elseID)
		} else {
			g.lowerBlock(elseID)
		}
		if g.blk.Term == nil {
			g.blk.CreateBr(mergeBlk)
		}
	} else {
		g.blk.CreateCondBr(cond, thenBlk, mergeBlk)
		g.blk = thenBlk
		g.lowerBlock(n.Children[1])
		if g.blk.Term == nil {
			g.blk.CreateBr(mergeBlk)
		}
	}

	g.blk = mergeBlk
}

func (g *Generator) lowerWhile(n *ast.Node) {
	if len(n.Children) < 2 {
		return
	}
	head := g.fn.CreateBlock()
	body := g.fn.CreateBlock()
	exit := g.fn.CreateBlock()

	g.blk.CreateBr(head)
	g.blk = head
	cond := g.lowerExpr(n.Children[0])
	g.blk.CreateCondBr(cond, body, exit)

	g.blk = body
	g.pushLoop(head, exit)
	g.lowerBlock(n.Children[1])
	if g.blk.Term == nil {
		g.blk.CreateBr(head)
	}
	g.popLoop()

	g.blk = exit
}

func (g *Generator) lowerLoop(n *ast.Node) {
	if len(n.Children) < 1 {
		return
	}
	body := g.fn.CreateBlock()
	exit := g.fn.CreateBlock()

	g.blk.CreateBr(body)
	g.blk = body
	g.pushLoop(body, exit)
	g.lowerBlock(n.Children[0])
	if g.blk.Term == nil {
		g.blk.CreateBr(body)
	}
	g.popLoop()

	g.blk = exit
}

// lowerFor lowers both iteration forms a ForStmt can take — `for x in
// lo..hi` (or `..=`) and `for x in arr` — to the same counter-driven
// four-block shape (head checks, body runs, inc advances, exit follows),
// with `continue` wired to the inc block rather than straight back to head
// so a continued iteration still advances the counter.
func (g *Generator) lowerFor(n *ast.Node) {
	if len(n.Children) < 2 {
		return
	}
	iterID := n.Children[0]
	iterNode := g.tree.Get(iterID)
	isRange := iterNode.Kind == ast.BinaryExpr && (iterNode.Op == token.DOTDOT || iterNode.Op == token.DOTDOTEQ)

	head := g.fn.CreateBlock()
	body := g.fn.CreateBlock()
	inc := g.fn.CreateBlock()
	exit := g.fn.CreateBlock()

	counter := g.blk.CreateAlloca(ir.I32)
	var limit ir.Value
	var elemTy ir.Type
	var arr ir.Value

	if isRange {
		lo := g.lowerExpr(iterNode.Children[0])
		limit = g.lowerExpr(iterNode.Children[1])
		g.blk.CreateStore(counter, lo)
		elemTy = ir.I32
	} else {
		arr = g.lowerExpr(iterID)
		limit = g.blk.CreateArrayLen(arr)
		g.blk.CreateStore(counter, g.blk.CreateConstI32(0))
		arrTy := types.Resolve(iterNode.ResolvedType)
		elemTy = lowerType(arrTy.Elem)
	}
	g.blk.CreateBr(head)

	g.blk = head
	cur := g.blk.CreateLoad(ir.I32, counter)
	var cmp *ir.Instr
	if isRange && iterNode.Op == token.DOTDOTEQ {
		cmp = g.blk.CreateICmpLE(cur, limit)
	} else {
		cmp = g.blk.CreateICmpLT(cur, limit)
	}
	g.blk.CreateCondBr(cmp, body, exit)

	g.blk = body
	idx := g.blk.CreateLoad(ir.I32, counter)
	var loopVal ir.Value
	if isRange {
		loopVal = idx
	} else {
		elemPtr := g.blk.CreateIndexPtr(arr, idx)
		loopVal = g.blk.CreateLoad(elemTy, elemPtr)
	}
	slot := g.blk.CreateAlloca(elemTy)
	g.blk.CreateStore(slot, loopVal)

	g.pushScope()
	g.bind(n.Name, slot)
	g.pushLoop(inc, exit)
	g.lowerBlock(n.Children[1])
	if g.blk.Term == nil {
		g.blk.CreateBr(inc)
	}
	g.popLoop()
	g.popScope()

	g.blk = inc
	next := g.blk.CreateAdd(ir.I32, g.blk.CreateLoad(ir.I32, counter), g.blk.CreateConstI32(1))
	g.blk.CreateStore(counter, next)
	g.blk.CreateBr(head)

	g.blk = exit
}
