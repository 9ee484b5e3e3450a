// Package sema implements ARNm's two-pass semantic analyzer: pass one
// forward-declares every top-level fn/actor/struct (plus injected
// intrinsics) in the global scope so mutually recursive definitions
// resolve; pass two walks every body, binding names, inferring types via
// Hindley-Milner unification, and enforcing the language's permission and
// actor-field rules. The tree-walking validation pass is built around a
// running error counter plus a had-error continuation flag, generalized
// into a typed, unifying walk.
package sema

import (
	"github.com/arnm-lang/arnm/internal/ast"
	"github.com/arnm-lang/arnm/internal/diag"
	"github.com/arnm-lang/arnm/internal/symtab"
	"github.com/arnm-lang/arnm/internal/token"
	"github.com/arnm-lang/arnm/internal/types"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Analyzer holds everything needed to check one compiled program: the AST
// arena it reads, the scope chain it builds, and the diagnostic sink it
// reports into.
type Analyzer struct {
	tree  *ast.Arena
	sink  *diag.Sink
	table *symtab.Table

	ctx context
}

// context carries the per-function-body state threaded through the
// statement/expression walk: the expected return type, whether we're
// inside a loop (for break/continue), and, inside an actor method, which
// Actor type `self` refers to.
type context struct {
	expectedReturn *types.Type
	inLoop         bool
	inActor        bool
	curActor       *types.Type
}

// MaxErrors mirrors the language spec's "up to 64 errors are recorded".
const MaxErrors = 64

// New creates an Analyzer over tree, reporting into sink.
func New(tree *ast.Arena, sink *diag.Sink) *Analyzer {
	return &Analyzer{tree: tree, sink: sink, table: symtab.NewTable()}
}

// Table exposes the built symbol table, e.g. for irgen to resolve actor
// field offsets after analysis completes.
func (a *Analyzer) Table() *symtab.Table { return a.table }

// Check runs both passes over the program rooted at root. It returns
// without error even when diagnostics were recorded — callers check
// sink.HadError() after Check the same way they check it after parsing.
func (a *Analyzer) Check(root ast.NodeID) {
	a.injectIntrinsics()
	a.forwardDeclare(root)
	a.checkProgram(root)
}

// ---------------------------
// ----- pass 1: forward  -----
// ----- declare & intrinsics -
// ---------------------------

// injectIntrinsics binds `print: fn(i32) -> unit`, the only intrinsic, into
// the global scope before any user declaration is seen, so pass one's
// "user declaration wins with a warning" rule in forwardDeclareOne (see
// DESIGN.md's resolution of the shadowing open question) has something to
// compare against.
func (a *Analyzer) injectIntrinsics() {
	g := a.table.Global()
	g.Define(&symtab.Symbol{
		Name: "print", Kind: symtab.FnSym,
		Type:      types.NewFn([]*types.Type{types.I32_()}, types.Unit_()),
		IsDefined: true,
	})
}

// forwardDeclare registers every top-level fn/actor/struct in the global
// scope with a placeholder type (a just-named empty Actor/Struct type, or
// for fn a fresh type variable standing in only until its real signature
// is resolved a few lines down) and IsDefined = false. Names are
// registered in one pass before any field, method or signature is
// resolved, so an actor or struct field — or a function parameter/return
// type — may reference another aggregate declared later in the same
// file.
func (a *Analyzer) forwardDeclare(root ast.NodeID) {
	prog := a.tree.Get(root)
	var aggregates []*ast.Node
	var fns []*ast.Node
	for _, childID := range prog.Children {
		child := a.tree.Get(childID)
		switch child.Kind {
		case ast.FnDecl:
			a.forwardDeclareOne(child.Name, symtab.FnSym, types.Fresh(), child.Span)
			fns = append(fns, child)
		case ast.ActorDecl:
			a.forwardDeclareOne(child.Name, symtab.ActorSym, types.NewActor(child.Name), child.Span)
			aggregates = append(aggregates, child)
		case ast.StructDecl:
			a.forwardDeclareOne(child.Name, symtab.TypeSym, types.NewStruct(child.Name), child.Span)
			aggregates = append(aggregates, child)
		}
	}
	for _, decl := range aggregates {
		sym, ok := a.table.Global().LookupLocal(decl.Name)
		if !ok {
			continue
		}
		switch decl.Kind {
		case ast.ActorDecl:
			a.populateActorFields(decl, sym.Type)
			a.populateActorMethods(decl, sym.Type)
		case ast.StructDecl:
			a.populateStructFields(decl, sym.Type)
		}
	}
	// Every parameter and return type in the grammar is fully annotated,
	// so a top-level fn's real signature can be resolved right here,
	// the same way populateActorMethods resolves method signatures
	// above — no body inference is needed, only the name table this
	// function just finished populating. This is what lets a call to a
	// function declared later in the file (including the mutually
	// recursive case) see a real Fn type instead of the placeholder.
	for _, decl := range fns {
		sym, ok := a.table.Global().LookupLocal(decl.Name)
		if !ok {
			continue
		}
		sym.Type = a.fnSignature(decl)
	}
}

func (a *Analyzer) forwardDeclareOne(name string, kind symtab.Kind, ty *types.Type, span token.Span) {
	sym := &symtab.Symbol{Name: name, Kind: kind, Type: ty, Span: span, IsDefined: false}
	if existing, ok := a.table.Global().LookupLocal(name); ok {
		if existing.Kind == symtab.FnSym && existing.IsDefined && existing.Span == (token.Span{}) {
			// The only pre-populated, zero-span FnSym in the global scope is
			// an injected intrinsic: redeclaring it is a warning, not an
			// error, and the user's declaration wins.
			a.sink.Warnf(diag.ShadowedIntrinsic, span, "declaration of %q shadows a built-in intrinsic", name)
			a.table.Global().Define(sym)
			return
		}
		a.sink.Errorf(diag.DuplicateDefinition, span, "%q is already defined", name)
		return
	}
	a.table.Global().Define(sym)
}

func (a *Analyzer) populateActorFields(decl *ast.Node, actorTy *types.Type) {
	for _, memberID := range decl.Children {
		m := a.tree.Get(memberID)
		if m.Kind == ast.Field {
			actorTy.Fields = append(actorTy.Fields, types.Field{Name: m.Name, Type: a.resolveTypeRef(m.FieldTy)})
		}
	}
}

func (a *Analyzer) populateStructFields(decl *ast.Node, structTy *types.Type) {
	for _, memberID := range decl.Children {
		m := a.tree.Get(memberID)
		structTy.Fields = append(structTy.Fields, types.Field{Name: m.Name, Type: a.resolveTypeRef(m.FieldTy)})
	}
}

// populateActorMethods registers every method declared on an actor in the
// global scope under a qualified "Actor::method" key, so a method call
// through `self.foo()` or `recv.foo()` resolves the same way a free
// function call does, without polluting the plain identifier namespace.
func (a *Analyzer) populateActorMethods(decl *ast.Node, actorTy *types.Type) {
	for _, memberID := range decl.Children {
		m := a.tree.Get(memberID)
		if m.Kind != ast.FnDecl {
			continue
		}
		key := methodKey(actorTy.Name, m.Name)
		if _, exists := a.table.Global().LookupLocal(key); exists {
			a.sink.Errorf(diag.DuplicateDefinition, m.Span, "method %q is already defined on actor %q", m.Name, actorTy.Name)
			continue
		}
		a.table.Global().Define(&symtab.Symbol{
			Name: key, Kind: symtab.FnSym, Type: a.fnSignature(m), Span: m.Span, IsDefined: true,
		})
	}
}

func methodKey(actor, method string) string { return actor + "::" + method }

// fnSignature builds the Fn type of an FnDecl node from its parameter and
// return TypeRefs, used both for top-level functions and actor methods.
func (a *Analyzer) fnSignature(fn *ast.Node) *types.Type {
	params := make([]*types.Type, len(fn.Params))
	for i, paramID := range fn.Params {
		p := a.tree.Get(paramID)
		params[i] = a.resolveTypeRef(p.FieldTy)
	}
	result := types.Unit_()
	if a.tree.Valid(fn.RetType) {
		result = a.resolveTypeRef(fn.RetType)
	}
	return types.NewFn(params, result)
}

// ---------------------------
// ----- pass 2: checking -----
// ---------------------------

// checkProgram walks every top-level declaration, inferring and checking
// bodies now that pass one has made every name resolvable.
func (a *Analyzer) checkProgram(root ast.NodeID) {
	prog := a.tree.Get(root)
	for _, childID := range prog.Children {
		child := a.tree.Get(childID)
		switch child.Kind {
		case ast.FnDecl:
			sym, ok := a.table.Global().LookupLocal(child.Name)
			if !ok {
				continue
			}
			// sym.Type already holds the real signature resolved during
			// forwardDeclare; only IsDefined still needs flipping now
			// that the body is about to be checked.
			sym.IsDefined = true
			a.ctx = context{}
			a.checkFnBody(childID, sym.Type)
		case ast.ActorDecl:
			a.checkActor(child)
		case ast.StructDecl:
			// Fields were fully resolved during forward declaration; a
			// struct has no body to walk.
		}
	}
}

// checkActor checks every method and receive block belonging to an actor,
// with self bound to the actor's own type for the duration.
func (a *Analyzer) checkActor(decl *ast.Node) {
	sym, ok := a.table.Global().LookupLocal(decl.Name)
	if !ok {
		return
	}
	actorTy := sym.Type
	saved := a.ctx
	a.ctx = context{inActor: true, curActor: actorTy, expectedReturn: types.Unit_()}
	for _, memberID := range decl.Children {
		m := a.tree.Get(memberID)
		switch m.Kind {
		case ast.FnDecl:
			msym, ok := a.table.Global().LookupLocal(methodKey(actorTy.Name, m.Name))
			if !ok {
				continue
			}
			a.checkFnBody(memberID, msym.Type)
		case ast.ReceiveStmt:
			a.checkReceive(m)
		}
	}
	a.ctx = saved
}

// checkFnBody pushes a fresh scope, binds sig's parameters, and checks the
// function's single Block child against sig's declared return type.
func (a *Analyzer) checkFnBody(fnID ast.NodeID, sig *types.Type) {
	fn := a.tree.Get(fnID)
	a.table.Push()
	savedReturn, savedLoop := a.ctx.expectedReturn, a.ctx.inLoop
	a.ctx.expectedReturn = sig.Result
	a.ctx.inLoop = false
	for i, paramID := range fn.Params {
		p := a.tree.Get(paramID)
		if i < len(sig.Params) {
			a.table.Current().Define(&symtab.Symbol{
				Name: p.Name, Kind: symtab.ParamSym, Type: sig.Params[i],
				Span: p.Span, IsMutable: p.Mut, IsDefined: true,
			})
		}
	}
	if len(fn.Children) > 0 {
		a.checkBlock(fn.Children[0])
	}
	a.ctx.expectedReturn, a.ctx.inLoop = savedReturn, savedLoop
	a.table.Pop()
}

// resolveTypeRef turns a TypeRef AST node into a concrete types.Type,
// consulting the global scope for Actor/Struct names.
func (a *Analyzer) resolveTypeRef(id ast.NodeID) *types.Type {
	if !a.tree.Valid(id) {
		return types.Unit_()
	}
	n := a.tree.Get(id)
	base := a.namedType(n.Name)
	if n.Array {
		base = types.NewArray(base)
	}
	if n.Optional {
		base = types.NewOptional(base)
	}
	return base
}

func (a *Analyzer) namedType(name string) *types.Type {
	switch name {
	case "unit":
		return types.Unit_()
	case "bool":
		return types.Bool_()
	case "i32":
		return types.I32_()
	case "i64":
		return types.I64_()
	case "f32":
		return types.F32_()
	case "f64":
		return types.F64_()
	case "string":
		return types.String_()
	case "char":
		return types.Char_()
	default:
		if sym, ok := a.table.Global().LookupLocal(name); ok {
			return sym.Type
		}
		return types.Unknown_()
	}
}
