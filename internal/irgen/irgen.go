// Package irgen lowers a type-checked ARNm AST into internal/ir: it reads
// the types internal/sema attached to every node (Node.ResolvedType) and
// the symbol table it built, and emits one ir.Function per free function
// and actor method, plus a synthesized `Actor__behavior` function for every
// actor that declares a receive block. The walk follows the classic
// one-lowerX-method-per-AST-production shape, threading a "current
// block" cursor through the walk, extended to lower actor records,
// spawn/send/receive and control flow into basic blocks.
package irgen

import (
	"github.com/arnm-lang/arnm/internal/ast"
	"github.com/arnm-lang/arnm/internal/ir"
	"github.com/arnm-lang/arnm/internal/symtab"
	"github.com/arnm-lang/arnm/internal/types"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Generator carries the state threaded through one program's lowering: the
// AST it reads, the symbol table sema built, the ir.Module it's filling in,
// and the per-function cursor (current function/block, lexical scopes,
// loop targets, and — inside an actor method or behavior loop — the self
// pointer and owning actor type).
type Generator struct {
	tree  *ast.Arena
	table *symtab.Table
	mod   *ir.Module

	fn      *ir.Function
	blk     *ir.Block
	scopes  []map[string]*ir.Instr
	selfPtr ir.Value
	curActor *types.Type

	breakTargets    []*ir.Block
	continueTargets []*ir.Block
}

// Generate lowers the program rooted at root into a fresh ir.Module. table
// must be the symtab.Table sema.Analyzer.Check populated over tree: field
// layouts, method signatures and actor/struct identities are all read from
// it rather than re-derived.
func Generate(tree *ast.Arena, table *symtab.Table, root ast.NodeID) *ir.Module {
	g := &Generator{tree: tree, table: table, mod: ir.NewModule()}
	g.collectRecords(root)
	g.lowerProgram(root)
	return g.mod
}

// ---------------------
// ----- functions -----
// ---------------------

// lowerType maps a resolved source-level type to its IR representation.
// Every aggregate (Actor, Struct, Array, Optional, String, Process) has a
// uniform runtime representation — a pointer to a heap record, buffer or
// handle — so they all collapse to ir.Ptr; RecordLayout carries the extra
// shape information codegen needs to interpret what a Ptr actually points
// at.
func lowerType(t *types.Type) ir.Type {
	t = types.Resolve(t)
	if t == nil {
		return ir.Void
	}
	switch t.Kind {
	case types.Unit:
		return ir.Void
	case types.Bool:
		return ir.I1
	case types.I32, types.Char:
		return ir.I32
	case types.I64:
		return ir.I64
	case types.F32:
		return ir.F32
	case types.F64:
		return ir.F64
	case types.String, types.Array, types.Optional, types.Actor, types.Struct, types.Process:
		return ir.Ptr
	default:
		return ir.Void
	}
}

// TagHash computes the DJB2 hash (seed 5381) of a receive arm's bind name.
// No lowering or backend calls it: irgen lowers arm matching to a plain
// CondBr chain over the raw mailbox payload, and an identifier arm binds
// whatever payload arrives rather than comparing it against this hash.
func TagHash(s string) uint32 {
	h := uint32(5381)
	for i := 0; i < len(s); i++ {
		h = h*33 + uint32(s[i])
	}
	return h
}

// zeroValue returns an immediate representing t's zero value, used to
// terminate a block that falls off the end of a function without a return.
// sema checks the type of each return statement but does not check that
// every path of a non-unit function returns, so such a path returns this
// zero value.
func zeroValue(t ir.Type) ir.Value {
	switch t {
	case ir.I1:
		return ir.ConstBool(false)
	case ir.I32:
		return ir.ConstInt{Ty: ir.I32}
	case ir.I64:
		return ir.ConstInt{Ty: ir.I64}
	case ir.F32:
		return ir.ConstFloat{Ty: ir.F32}
	case ir.F64:
		return ir.ConstFloat{Ty: ir.F64}
	default:
		return ir.ConstInt{Ty: ir.Ptr} // a null handle.
	}
}

func fieldIndex(recordTy *types.Type, name string) int {
	for i, f := range recordTy.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

func methodKey(actor, method string) string { return actor + "::" + method }

// ----- lexical scope stack over alloca'd slots -----

func (g *Generator) pushScope() { g.scopes = append(g.scopes, map[string]*ir.Instr{}) }
func (g *Generator) popScope()  { g.scopes = g.scopes[:len(g.scopes)-1] }

func (g *Generator) bind(name string, slot *ir.Instr) {
	g.scopes[len(g.scopes)-1][name] = slot
}

func (g *Generator) lookup(name string) (ir.Value, bool) {
	for i := len(g.scopes) - 1; i >= 0; i-- {
		if slot, ok := g.scopes[i][name]; ok {
			return slot, true
		}
	}
	return nil, false
}

func (g *Generator) pushLoop(continueTarget, breakTarget *ir.Block) {
	g.continueTargets = append(g.continueTargets, continueTarget)
	g.breakTargets = append(g.breakTargets, breakTarget)
}

func (g *Generator) popLoop() {
	g.continueTargets = g.continueTargets[:len(g.continueTargets)-1]
	g.breakTargets = g.breakTargets[:len(g.breakTargets)-1]
}

// ---------------------------------
// ----- records & top level --------
// ---------------------------------

// collectRecords populates mod.Records with every actor and struct's field
// layout (and, for actors with a receive block, their arm dispatch table)
// before any function body is lowered, so a field access or spawn
// anywhere in the program can resolve a record's shape regardless of
// declaration order.
func (g *Generator) collectRecords(root ast.NodeID) {
	prog := g.tree.Get(root)
	for _, childID := range prog.Children {
		child := g.tree.Get(childID)
		switch child.Kind {
		case ast.ActorDecl:
			g.mod.Records = append(g.mod.Records, g.buildRecordLayout(child, true))
		case ast.StructDecl:
			g.mod.Records = append(g.mod.Records, g.buildRecordLayout(child, false))
		}
	}
}

func (g *Generator) buildRecordLayout(decl *ast.Node, isActor bool) *ir.RecordLayout {
	sym, ok := g.table.Global().LookupLocal(decl.Name)
	if !ok {
		return &ir.RecordLayout{Name: decl.Name, IsActor: isActor}
	}
	ty := sym.Type
	layout := &ir.RecordLayout{Name: decl.Name, IsActor: isActor}
	for i, f := range ty.Fields {
		layout.Fields = append(layout.Fields, ir.FieldLayout{Name: f.Name, Type: lowerType(f.Type), Index: i})
	}
	if isActor {
		for _, memberID := range decl.Children {
			m := g.tree.Get(memberID)
			if m.Kind != ast.ReceiveStmt {
				continue
			}
			for _, armID := range m.Children {
				arm := g.tree.Get(armID)
				layout.RecvArms = append(layout.RecvArms, ir.RecvArm{Tag: arm.IntVal, IsBind: arm.Name != ""})
			}
		}
	}
	return layout
}

// lowerProgram lowers every free function and actor to IR functions.
// Structs contribute no code of their own: their record layout (already
// built by collectRecords) is all codegen needs.
func (g *Generator) lowerProgram(root ast.NodeID) {
	prog := g.tree.Get(root)
	for _, childID := range prog.Children {
		child := g.tree.Get(childID)
		switch child.Kind {
		case ast.FnDecl:
			sym, ok := g.table.Global().LookupLocal(child.Name)
			if !ok {
				continue
			}
			g.lowerFunction(child.Name, sym.Type, child, nil)
		case ast.ActorDecl:
			g.lowerActor(child)
		}
	}
}

func (g *Generator) lowerActor(decl *ast.Node) {
	sym, ok := g.table.Global().LookupLocal(decl.Name)
	if !ok {
		return
	}
	actorTy := sym.Type
	for _, memberID := range decl.Children {
		m := g.tree.Get(memberID)
		switch m.Kind {
		case ast.FnDecl:
			key := methodKey(actorTy.Name, m.Name)
			msym, ok := g.table.Global().LookupLocal(key)
			if !ok {
				continue
			}
			g.lowerFunction(key, msym.Type, m, actorTy)
		case ast.ReceiveStmt:
			g.lowerActorBehavior(actorTy, m)
		}
	}
}

// lowerFunction lowers a single FnDecl to an ir.Function. ownerActor is
// non-nil for an actor method, in which case an implicit leading `self:
// ptr` parameter is added and self/field expressions resolve against it.
func (g *Generator) lowerFunction(name string, sig *types.Type, fnNode *ast.Node, ownerActor *types.Type) *ir.Function {
	offset := 0
	var params []ir.Param
	if ownerActor != nil {
		params = append(params, ir.Param{Name: "self", Type: ir.Ptr})
		offset = 1
	}
	for i, paramID := range fnNode.Params {
		p := g.tree.Get(paramID)
		ty := ir.Void
		if i < len(sig.Params) {
			ty = lowerType(sig.Params[i])
		}
		params = append(params, ir.Param{Name: p.Name, Type: ty})
	}

	f := g.mod.CreateFunction(name, params, lowerType(sig.Result))
	if ownerActor != nil {
		f.ActorType = ownerActor.Name
	}

	g.fn = f
	g.blk = f.CreateBlock()
	g.pushScope()
	savedActor, savedSelf := g.curActor, g.selfPtr
	g.curActor = ownerActor
	if ownerActor != nil {
		g.selfPtr = g.blk.CreateArg(0, ir.Ptr)
	} else {
		g.selfPtr = nil
	}

	for i, paramID := range fnNode.Params {
		p := g.tree.Get(paramID)
		argIdx := i + offset
		arg := g.blk.CreateArg(argIdx, params[argIdx].Type)
		slot := g.blk.CreateAlloca(params[argIdx].Type)
		g.blk.CreateStore(slot, arg)
		g.bind(p.Name, slot)
	}

	if len(fnNode.Children) > 0 {
		g.lowerBlock(fnNode.Children[0])
	}
	if g.blk.Term == nil {
		if f.Result == ir.Void {
			g.blk.CreateRet(nil)
		} else {
			g.blk.CreateRet(zeroValue(f.Result))
		}
	}

	g.curActor, g.selfPtr = savedActor, savedSelf
	g.popScope()
	return f
}

// lowerActorBehavior synthesizes the function the scheduler runs in a loop
// on an actor's own goroutine: block on the mailbox, dispatch the
// delivered payload to the matching receive arm, loop. A literal arm
// matches by value; a bind arm (at most meaningfully the last one) matches
// unconditionally and binds the payload under its name. A message that
// matches no arm is dropped and the loop waits for the next one — this
// compiler targets FIFO, not selective, receive.
func (g *Generator) lowerActorBehavior(actorTy *types.Type, n *ast.Node) {
	name := actorTy.Name + "__behavior"
	f := g.mod.CreateFunction(name, []ir.Param{{Name: "self", Type: ir.Ptr}}, ir.Void)
	f.IsBehavior = true
	f.ActorType = actorTy.Name

	g.fn = f
	entry := f.CreateBlock()
	g.blk = entry
	g.pushScope()
	savedActor, savedSelf := g.curActor, g.selfPtr
	g.curActor = actorTy
	g.selfPtr = entry.CreateArg(0, ir.Ptr)

	head := f.CreateBlock()
	entry.CreateBr(head)

	g.blk = head
	payload := head.CreateRecvTag(len(n.Children))

	dispatch := head
	for i, armID := range n.Children {
		arm := g.tree.Get(armID)
		armBlk := f.CreateBlock()
		isLast := i == len(n.Children)-1

		if arm.Name != "" {
			dispatch.CreateBr(armBlk)
		} else {
			tagConst := dispatch.CreateConstI32(arm.IntVal)
			eq := dispatch.CreateICmpEQ(payload, tagConst)
			next := head
			if !isLast {
				next = f.CreateBlock()
			}
			dispatch.CreateCondBr(eq, armBlk, next)
			dispatch = next
		}

		g.blk = armBlk
		g.pushScope()
		if arm.Name != "" {
			slot := armBlk.CreateAlloca(ir.I32)
			armBlk.CreateStore(slot, payload)
			g.bind(arm.Name, slot)
		}
		if len(arm.Children) > 0 {
			for _, stmtID := range g.tree.Get(arm.Children[0]).Children {
				g.lowerStmt(stmtID)
			}
		}
		if g.blk.Term == nil {
			g.blk.CreateBr(head)
		}
		g.popScope()
	}

	g.curActor, g.selfPtr = savedActor, savedSelf
	g.popScope()
}
