package sema

import (
	"github.com/arnm-lang/arnm/internal/ast"
	"github.com/arnm-lang/arnm/internal/diag"
	"github.com/arnm-lang/arnm/internal/symtab"
	"github.com/arnm-lang/arnm/internal/token"
	"github.com/arnm-lang/arnm/internal/types"
)

// inferExpr infers and records the type of the expression rooted at id,
// reporting any mismatch through the sink and always returning a usable
// (possibly Unknown) type so the walk never has to abort early.
func (a *Analyzer) inferExpr(id ast.NodeID) *types.Type {
	if !a.tree.Valid(id) {
		return types.Unknown_()
	}
	n := a.tree.Get(id)
	var ty *types.Type
	switch n.Kind {
	case ast.IntLit:
		ty = types.I32_()
	case ast.FloatLit:
		ty = types.F64_()
	case ast.StringLit:
		ty = types.String_()
	case ast.CharLit:
		ty = types.Char_()
	case ast.BoolLit:
		ty = types.Bool_()
	case ast.SelfExpr:
		ty = a.inferSelf(n)
	case ast.IdentExpr:
		ty = a.inferIdent(n)
	case ast.FieldExpr:
		ty = a.inferField(n)
	case ast.IndexExpr:
		ty = a.inferIndex(n)
	case ast.CallExpr:
		ty = a.inferCall(n)
	case ast.AssignExpr:
		ty = a.inferAssign(n)
	case ast.BinaryExpr:
		ty = a.inferBinary(n)
	case ast.UnaryExpr:
		ty = a.inferUnary(n)
	case ast.SendExpr:
		ty = a.inferSend(n)
	case ast.SpawnStmt:
		ty = a.inferSpawn(n)
	default:
		ty = types.Unknown_()
	}
	n.ResolvedType = ty
	return ty
}

func (a *Analyzer) inferSelf(n *ast.Node) *types.Type {
	if !a.ctx.inActor || a.ctx.curActor == nil {
		a.sink.Errorf(diag.SelfOutsideActor, n.Span, "self used outside of an actor method")
		return types.Unknown_()
	}
	return a.ctx.curActor
}

func (a *Analyzer) inferIdent(n *ast.Node) *types.Type {
	if sym, ok := a.table.Lookup(n.Name); ok {
		return sym.Type
	}
	if a.ctx.inActor && a.ctx.curActor != nil {
		for _, f := range a.ctx.curActor.Fields {
			if f.Name == n.Name {
				a.sink.Errorf(diag.BareActorField, n.Span, "actor field %q must be accessed as self.%s", n.Name, n.Name)
				return f.Type
			}
		}
	}
	a.sink.Errorf(diag.UndefinedIdent, n.Span, "undefined identifier %q", n.Name)
	return types.Unknown_()
}

func (a *Analyzer) inferField(n *ast.Node) *types.Type {
	if len(n.Children) < 1 {
		return types.Unknown_()
	}
	objTy := types.Resolve(a.inferExpr(n.Children[0]))
	for _, f := range objTy.Fields {
		if f.Name == n.Name {
			return f.Type
		}
	}
	if objTy.Kind == types.Actor {
		if _, ok := a.table.Global().LookupLocal(methodKey(objTy.Name, n.Name)); ok {
			// A bare method reference; only meaningful as the callee of a
			// CallExpr, which resolves the method directly and never routes
			// through here.
			return types.Unknown_()
		}
	}
	if objTy.Kind != types.Unknown && objTy.Kind != types.Error {
		a.sink.Errorf(diag.UndefinedIdent, n.Span, "%s has no field %q", objTy, n.Name)
	}
	return types.Unknown_()
}

func (a *Analyzer) inferIndex(n *ast.Node) *types.Type {
	if len(n.Children) < 2 {
		return types.Unknown_()
	}
	arrTy := types.Resolve(a.inferExpr(n.Children[0]))
	idxTy := a.inferExpr(n.Children[1])
	if err := types.Unify(idxTy, types.I32_()); err != nil {
		a.sink.Errorf(diag.TypeMismatch, n.Span, "array index must be i32: %v", err)
	}
	if arrTy.Kind != types.Array {
		a.sink.Errorf(diag.TypeMismatch, n.Span, "cannot index non-array type %s", arrTy)
		return types.Unknown_()
	}
	return arrTy.Elem
}

func (a *Analyzer) inferCall(n *ast.Node) *types.Type {
	if len(n.Children) < 1 {
		return types.Unknown_()
	}
	calleeID := n.Children[0]
	callee := a.tree.Get(calleeID)

	var sig *types.Type
	switch callee.Kind {
	case ast.IdentExpr:
		sym, ok := a.table.Lookup(callee.Name)
		if !ok || sym.Kind != symtab.FnSym {
			a.sink.Errorf(diag.NonCallable, callee.Span, "%q is not callable", callee.Name)
			return types.Unknown_()
		}
		callee.ResolvedType = sym.Type
		sig = sym.Type
	case ast.FieldExpr:
		if len(callee.Children) < 1 {
			return types.Unknown_()
		}
		recvTy := types.Resolve(a.inferExpr(callee.Children[0]))
		if recvTy.Kind != types.Actor {
			a.sink.Errorf(diag.NonCallable, callee.Span, "method call target is not an actor")
			return types.Unknown_()
		}
		msym, ok := a.table.Global().LookupLocal(methodKey(recvTy.Name, callee.Name))
		if !ok {
			a.sink.Errorf(diag.UndefinedIdent, callee.Span, "actor %q has no method %q", recvTy.Name, callee.Name)
			return types.Unknown_()
		}
		callee.ResolvedType = msym.Type
		sig = msym.Type
	default:
		a.inferExpr(calleeID)
		a.sink.Errorf(diag.NonCallable, callee.Span, "expression is not callable")
		return types.Unknown_()
	}

	args := n.Children[1:]
	if len(args) != len(sig.Params) {
		a.sink.Errorf(diag.ArityMismatch, n.Span, "expected %d arguments, got %d", len(sig.Params), len(args))
	}
	for i, argID := range args {
		argTy := a.inferExpr(argID)
		if i < len(sig.Params) {
			if err := types.Unify(sig.Params[i], argTy); err != nil {
				a.sink.Errorf(diag.TypeMismatch, a.tree.Get(argID).Span, "argument %d: %v", i+1, err)
			}
		}
	}
	return sig.Result
}

// lvalueTarget reports whether expr kind can legally appear on the left of
// an assignment.
func isLvalue(k ast.Kind) bool {
	switch k {
	case ast.IdentExpr, ast.FieldExpr, ast.IndexExpr:
		return true
	default:
		return false
	}
}

func (a *Analyzer) inferAssign(n *ast.Node) *types.Type {
	if len(n.Children) < 2 {
		return types.Unknown_()
	}
	targetID, valueID := n.Children[0], n.Children[1]
	target := a.tree.Get(targetID)
	if !isLvalue(target.Kind) {
		a.sink.Errorf(diag.InvalidAssignTarget, n.Span, "invalid assignment target")
	}
	targetTy := a.inferExpr(targetID)
	if target.Kind == ast.IdentExpr {
		if sym, ok := a.table.Lookup(target.Name); ok && !sym.IsMutable {
			a.sink.Errorf(diag.ImmutableAssign, n.Span, "cannot assign to immutable binding %q", target.Name)
		}
	}
	valueTy := a.inferExpr(valueID)
	if err := types.Unify(targetTy, valueTy); err != nil {
		a.sink.Errorf(diag.TypeMismatch, n.Span, "assignment: %v", err)
	}
	if n.Op != token.ASSIGN && !isNumeric(types.Resolve(targetTy)) {
		a.sink.Errorf(diag.TypeMismatch, n.Span, "compound assignment requires a numeric target, got %s", targetTy)
	}
	return targetTy
}

func isNumeric(t *types.Type) bool {
	switch t.Kind {
	case types.I32, types.I64, types.F32, types.F64:
		return true
	default:
		return false
	}
}

func (a *Analyzer) inferBinary(n *ast.Node) *types.Type {
	if len(n.Children) < 2 {
		return types.Unknown_()
	}
	lhs := a.inferExpr(n.Children[0])
	rhs := a.inferExpr(n.Children[1])
	switch n.Op {
	case token.PLUS, token.MINUS, token.STAR, token.SLASH, token.PERCENT:
		if err := types.Unify(lhs, rhs); err != nil {
			a.sink.Errorf(diag.TypeMismatch, n.Span, "arithmetic operands: %v", err)
		}
		if !isNumeric(types.Resolve(lhs)) {
			a.sink.Errorf(diag.TypeMismatch, n.Span, "arithmetic requires numeric operands, got %s", lhs)
		}
		return lhs
	case token.LT, token.LE, token.GT, token.GE:
		if err := types.Unify(lhs, rhs); err != nil {
			a.sink.Errorf(diag.TypeMismatch, n.Span, "comparison operands: %v", err)
		}
		if !isNumeric(types.Resolve(lhs)) {
			a.sink.Errorf(diag.TypeMismatch, n.Span, "comparison requires numeric operands, got %s", lhs)
		}
		return types.Bool_()
	case token.EQ, token.NEQ:
		if err := types.Unify(lhs, rhs); err != nil {
			a.sink.Errorf(diag.TypeMismatch, n.Span, "equality operands: %v", err)
		}
		return types.Bool_()
	case token.AND, token.OR:
		if err := types.Unify(lhs, types.Bool_()); err != nil {
			a.sink.Errorf(diag.TypeMismatch, n.Span, "logical operand: %v", err)
		}
		if err := types.Unify(rhs, types.Bool_()); err != nil {
			a.sink.Errorf(diag.TypeMismatch, n.Span, "logical operand: %v", err)
		}
		return types.Bool_()
	case token.DOTDOT, token.DOTDOTEQ:
		if err := types.Unify(lhs, types.I32_()); err != nil {
			a.sink.Errorf(diag.TypeMismatch, n.Span, "range bound: %v", err)
		}
		if err := types.Unify(rhs, types.I32_()); err != nil {
			a.sink.Errorf(diag.TypeMismatch, n.Span, "range bound: %v", err)
		}
		return types.I32_()
	default:
		return types.Unknown_()
	}
}

func (a *Analyzer) inferUnary(n *ast.Node) *types.Type {
	if len(n.Children) < 1 {
		return types.Unknown_()
	}
	operandTy := a.inferExpr(n.Children[0])
	switch n.Op {
	case token.MINUS:
		if !isNumeric(types.Resolve(operandTy)) {
			a.sink.Errorf(diag.TypeMismatch, n.Span, "unary - requires a numeric operand, got %s", operandTy)
		}
		return operandTy
	case token.BANG:
		if err := types.Unify(operandTy, types.Bool_()); err != nil {
			a.sink.Errorf(diag.TypeMismatch, n.Span, "unary ! requires bool: %v", err)
		}
		return types.Bool_()
	case token.TILDE:
		r := types.Resolve(operandTy)
		if r.Kind != types.I32 && r.Kind != types.I64 {
			a.sink.Errorf(diag.TypeMismatch, n.Span, "unary ~ requires an integer operand, got %s", operandTy)
		}
		return operandTy
	default:
		return types.Unknown_()
	}
}

// inferSpawn checks `spawn Actor(args)`: the callee must be a bare
// identifier naming an actor, and args (if the actor declares an `init`
// method) must match its arity and parameter types. The expression's type
// is Process(Actor), the handle a `let` binding or send target needs.
func (a *Analyzer) inferSpawn(n *ast.Node) *types.Type {
	if len(n.Children) < 1 {
		return types.Unknown_()
	}
	callID := n.Children[0]
	call := a.tree.Get(callID)
	if call.Kind != ast.CallExpr || len(call.Children) < 1 {
		a.sink.Errorf(diag.NonCallable, n.Span, "spawn requires an actor constructor call")
		return types.Unknown_()
	}
	calleeID := call.Children[0]
	callee := a.tree.Get(calleeID)
	if callee.Kind != ast.IdentExpr {
		a.sink.Errorf(diag.NonCallable, n.Span, "spawn target must name an actor")
		return types.Unknown_()
	}
	sym, ok := a.table.Lookup(callee.Name)
	if !ok || sym.Kind != symtab.ActorSym {
		a.sink.Errorf(diag.UndefinedIdent, callee.Span, "%q is not an actor", callee.Name)
		callee.ResolvedType = types.Unknown_()
		return types.Unknown_()
	}
	actorTy := sym.Type
	callee.ResolvedType = actorTy

	argIDs := call.Children[1:]
	argTys := make([]*types.Type, len(argIDs))
	for i, argID := range argIDs {
		argTys[i] = a.inferExpr(argID)
	}
	if initSym, ok := a.table.Global().LookupLocal(methodKey(actorTy.Name, "init")); ok {
		sig := initSym.Type
		if len(sig.Params) != len(argTys) {
			a.sink.Errorf(diag.ArityMismatch, call.Span, "actor %q init expects %d arguments, got %d", actorTy.Name, len(sig.Params), len(argTys))
		} else {
			for i, want := range sig.Params {
				if err := types.Unify(want, argTys[i]); err != nil {
					a.sink.Errorf(diag.TypeMismatch, call.Span, "argument %d to %s init: %v", i+1, actorTy.Name, err)
				}
			}
		}
	} else if len(argTys) != 0 {
		a.sink.Errorf(diag.ArityMismatch, call.Span, "actor %q takes no constructor arguments", actorTy.Name)
	}
	call.ResolvedType = types.NewProcess(actorTy)
	return call.ResolvedType
}

// inferSend checks `target ! message`: target must be a Process, and the
// message currently carries a single i32 payload, matching the integer tag
// patterns a receive block matches against.
func (a *Analyzer) inferSend(n *ast.Node) *types.Type {
	if len(n.Children) < 2 {
		return types.Unknown_()
	}
	targetTy := types.Resolve(a.inferExpr(n.Children[0]))
	msgTy := a.inferExpr(n.Children[1])
	if targetTy.Kind != types.Process && targetTy.Kind != types.Var {
		a.sink.Errorf(diag.SendToNonProcess, n.Span, "cannot send to non-process type %s", targetTy)
	}
	if err := types.Unify(msgTy, types.I32_()); err != nil {
		a.sink.Errorf(diag.TypeMismatch, n.Span, "message payload must be i32: %v", err)
	}
	return types.Unit_()
}
