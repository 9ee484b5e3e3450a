package sema

import (
	"github.com/arnm-lang/arnm/internal/ast"
	"github.com/arnm-lang/arnm/internal/diag"
	"github.com/arnm-lang/arnm/internal/symtab"
	"github.com/arnm-lang/arnm/internal/token"
	"github.com/arnm-lang/arnm/internal/types"
)

// checkBlock opens a nested lexical scope and checks every statement in
// order, so a `let` earlier in the block is visible to statements after it
// but not to sibling blocks.
func (a *Analyzer) checkBlock(blockID ast.NodeID) {
	if !a.tree.Valid(blockID) {
		return
	}
	a.table.Push()
	for _, stmtID := range a.tree.Get(blockID).Children {
		a.checkStmt(stmtID)
	}
	a.table.Pop()
}

func (a *Analyzer) checkStmt(id ast.NodeID) {
	n := a.tree.Get(id)
	switch n.Kind {
	case ast.LetStmt:
		a.checkLet(n)
	case ast.ReturnStmt:
		a.checkReturn(n)
	case ast.ExprStmt:
		if len(n.Children) > 0 {
			a.inferExpr(n.Children[0])
		}
	case ast.IfStmt:
		a.checkIf(n)
	case ast.WhileStmt:
		a.checkWhile(n)
	case ast.ForStmt:
		a.checkFor(n)
	case ast.LoopStmt:
		a.checkLoop(n)
	case ast.BreakStmt:
		if !a.ctx.inLoop {
			a.sink.Errorf(diag.BreakOutsideLoop, n.Span, "break used outside of a loop")
		}
	case ast.ContinueStmt:
		if !a.ctx.inLoop {
			a.sink.Errorf(diag.ContinueOutsideLoop, n.Span, "continue used outside of a loop")
		}
	case ast.SpawnStmt:
		a.inferSpawn(n)
	case ast.ReceiveStmt:
		a.checkReceiveStmt(n)
	}
}

func (a *Analyzer) checkLet(n *ast.Node) {
	var declared *types.Type
	if a.tree.Valid(n.FieldTy) {
		declared = a.resolveTypeRef(n.FieldTy)
	}
	var initTy *types.Type
	if len(n.Children) > 0 {
		initTy = a.inferExpr(n.Children[0])
	}
	var final *types.Type
	switch {
	case declared != nil && initTy != nil:
		if err := types.Unify(declared, initTy); err != nil {
			a.sink.Errorf(diag.TypeMismatch, n.Span, "let %q: %v", n.Name, err)
		}
		final = declared
	case declared != nil:
		final = declared
	case initTy != nil:
		final = initTy
	default:
		final = types.Unknown_()
	}
	n.ResolvedType = final
	if !a.table.Current().Define(&symtab.Symbol{
		Name: n.Name, Kind: symtab.VarSym, Type: final, Span: n.Span, IsMutable: n.Mut, IsDefined: true,
	}) {
		a.sink.Errorf(diag.DuplicateDefinition, n.Span, "%q is already defined in this scope", n.Name)
	}
}

func (a *Analyzer) checkReturn(n *ast.Node) {
	actual := types.Unit_()
	if len(n.Children) > 0 {
		actual = a.inferExpr(n.Children[0])
	}
	expected := a.ctx.expectedReturn
	if expected == nil {
		expected = types.Unit_()
	}
	if err := types.Unify(expected, actual); err != nil {
		a.sink.Errorf(diag.TypeMismatch, n.Span, "return type mismatch: %v", err)
	}
}

func (a *Analyzer) checkIf(n *ast.Node) {
	if len(n.Children) < 2 {
		return
	}
	condTy := a.inferExpr(n.Children[0])
	if err := types.Unify(condTy, types.Bool_()); err != nil {
		a.sink.Errorf(diag.TypeMismatch, n.Span, "if condition must be bool: %v", err)
	}
	a.checkBlock(n.Children[1])
	if len(n.Children) > 2 {
		elseID := n.Children[2]
		if a.tree.Get(elseID).Kind == ast.IfStmt {
			a.checkStmt(elseID)
		} else {
			a.checkBlock(elseID)
		}
	}
}

func (a *Analyzer) checkWhile(n *ast.Node) {
	if len(n.Children) < 2 {
		return
	}
	condTy := a.inferExpr(n.Children[0])
	if err := types.Unify(condTy, types.Bool_()); err != nil {
		a.sink.Errorf(diag.TypeMismatch, n.Span, "while condition must be bool: %v", err)
	}
	saved := a.ctx.inLoop
	a.ctx.inLoop = true
	a.checkBlock(n.Children[1])
	a.ctx.inLoop = saved
}

func (a *Analyzer) checkLoop(n *ast.Node) {
	if len(n.Children) < 1 {
		return
	}
	saved := a.ctx.inLoop
	a.ctx.inLoop = true
	a.checkBlock(n.Children[0])
	a.ctx.inLoop = saved
}

// checkFor binds the loop variable either to the element type of an array
// (`for x in arr`) or to i32 over a `lo..hi` / `lo..=hi` range, then checks
// the body with that binding in scope.
func (a *Analyzer) checkFor(n *ast.Node) {
	if len(n.Children) < 2 {
		return
	}
	iterID := n.Children[0]
	iterNode := a.tree.Get(iterID)
	iterTy := a.inferExpr(iterID)

	var elemTy *types.Type
	if iterNode.Kind == ast.BinaryExpr && (iterNode.Op == token.DOTDOT || iterNode.Op == token.DOTDOTEQ) {
		elemTy = types.I32_()
	} else if r := types.Resolve(iterTy); r.Kind == types.Array {
		elemTy = r.Elem
	} else {
		a.sink.Errorf(diag.TypeMismatch, n.Span, "for-in target must be a range or an array, got %s", iterTy)
		elemTy = types.Unknown_()
	}

	a.table.Push()
	a.table.Current().Define(&symtab.Symbol{Name: n.Name, Kind: symtab.VarSym, Type: elemTy, Span: n.Span, IsDefined: true})
	saved := a.ctx.inLoop
	a.ctx.inLoop = true
	a.checkBlock(n.Children[1])
	a.ctx.inLoop = saved
	a.table.Pop()
}

// checkReceiveStmt is the ReceiveStmt handler invoked from checkStmt; it
// enforces that a receive block only appears inside an actor and then
// delegates to checkReceive for the per-arm walk.
func (a *Analyzer) checkReceiveStmt(n *ast.Node) {
	if !a.ctx.inActor {
		a.sink.Errorf(diag.ReceiveOutsideActor, n.Span, "receive block used outside of an actor")
		return
	}
	a.checkReceive(n)
}

// checkReceive walks every arm of a receive block: an identifier pattern
// binds the delivered message payload as i32 for the arm's body; an
// integer literal pattern matches the message tag and binds nothing.
func (a *Analyzer) checkReceive(n *ast.Node) {
	for _, armID := range n.Children {
		arm := a.tree.Get(armID)
		a.table.Push()
		if arm.Name != "" {
			a.table.Current().Define(&symtab.Symbol{Name: arm.Name, Kind: symtab.VarSym, Type: types.I32_(), Span: arm.Span, IsDefined: true})
		}
		if len(arm.Children) > 0 {
			for _, stmtID := range a.tree.Get(arm.Children[0]).Children {
				a.checkStmt(stmtID)
			}
		}
		a.table.Pop()
	}
}
