// Package ast implements the ARNm abstract syntax tree as a single bump
// arena of Node values addressed by NodeID handles, per the "typed handle
// into parallel stores" alternative called out in the language spec's
// design notes. A NodeID is a lightweight, copyable, GC-friendly stand-in
// for a raw pointer: the whole arena is freed in one shot when the
// *Arena value it belongs to becomes unreachable, the same "free as a unit"
// guarantee a pointer-bump arena gives, without unsafe pointer arithmetic.
//
// The tree has exactly three node families — expressions, statements and
// declarations — distinguished by Kind; every Node carries a Span and a
// ResolvedType slot that semantic analysis fills in.
package ast

import (
	"github.com/arnm-lang/arnm/internal/token"
	"github.com/arnm-lang/arnm/internal/types"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// NodeID is a handle into an Arena. The zero value, Invalid, never refers
// to a real node.
type NodeID uint32

// Invalid is the NodeID equivalent of a null child pointer. Children
// addressed by Invalid must be tolerated by every tree walker, since the
// arena-exhaustion path hands callers a null node rather than failing.
const Invalid NodeID = 0

// Kind discriminates the tagged union carried by Node.
type Kind uint8

const (
	_ Kind = iota // Kind zero is reserved so the zero Node is never mistaken for Program.

	// Top level / declarations.
	Program
	FnDecl
	ActorDecl
	StructDecl
	Param
	Field

	// Statements.
	Block
	LetStmt
	ReturnStmt
	ExprStmt
	IfStmt
	WhileStmt
	ForStmt
	LoopStmt
	BreakStmt
	ContinueStmt
	SpawnStmt
	ReceiveStmt
	ReceiveArm

	// Expressions.
	AssignExpr
	BinaryExpr
	UnaryExpr
	SendExpr
	CallExpr
	IndexExpr
	FieldExpr
	IdentExpr
	SelfExpr
	IntLit
	FloatLit
	StringLit
	CharLit
	BoolLit

	// Type references (`i32`, `MyActor`, `i32?`, `i32[]`).
	TypeRef
)

// Node is the tagged-union payload of every tree element. Which fields are
// meaningful is determined entirely by Kind; see the per-Kind comments
// below. Children is a flat, ordered list of NodeIDs whose interpretation
// (e.g. "children[0] is the condition, children[1] is the then-block")
// is also documented per Kind.
type Node struct {
	Kind         Kind
	Span         token.Span
	ResolvedType *types.Type

	Name     string    // IdentExpr, FieldExpr (field name), FnDecl/ActorDecl/StructDecl/Param/Field name, ReceiveArm (bind name).
	Op       token.Kind // BinaryExpr/UnaryExpr/AssignExpr operator.
	IntVal   int64      // IntLit, ReceiveArm tag literal.
	FloatVal float64    // FloatLit.
	StrVal   string     // StringLit (decoded), CharLit (decoded rune as string).
	BoolVal  bool       // BoolLit.
	Mut      bool       // LetStmt/Param: declared mutable.
	Optional bool       // TypeRef: trailing `?`.
	Array    bool       // TypeRef: trailing `[]`.

	// Children, by Kind:
	//   Program:        every top-level FnDecl/ActorDecl/StructDecl.
	//   FnDecl:         [0]=Block body; Params and RetType held separately.
	//   ActorDecl:      every Field/FnDecl member, in source order.
	//   StructDecl:     every Field member.
	//   Block:          every statement.
	//   LetStmt:        [0]=initializer expr (Invalid if absent).
	//   ReturnStmt:     [0]=expr (Invalid if `return;`).
	//   ExprStmt:       [0]=expr.
	//   IfStmt:         [0]=cond, [1]=then Block, [2]=else Block or IfStmt (Invalid if absent).
	//   WhileStmt:      [0]=cond, [1]=body Block.
	//   ForStmt:        [0]=iterable expr, [1]=body Block.
	//   LoopStmt:       [0]=body Block.
	//   SpawnStmt:      [0]=call expr (CallExpr targeting a fn or actor constructor).
	//   ReceiveStmt:    every ReceiveArm.
	//   ReceiveArm:     [0]=body Block.
	//   AssignExpr:     [0]=target, [1]=value.
	//   BinaryExpr:     [0]=lhs, [1]=rhs.
	//   UnaryExpr:      [0]=operand.
	//   SendExpr:       [0]=target, [1]=message.
	//   CallExpr:       [0]=callee, [1:]=arguments.
	//   IndexExpr:      [0]=base, [1]=index.
	//   FieldExpr:      [0]=base.
	Children []NodeID

	Params  []NodeID // FnDecl: parameter list.
	RetType NodeID   // FnDecl: TypeRef, Invalid if omitted (unit).
	FieldTy NodeID   // Param/Field: TypeRef.

	Elem NodeID // TypeRef: element TypeRef for `[]` arrays; Invalid otherwise.
}

// Arena owns every Node reachable from its Program root. Arenas are single
// threaded: they are built by one parser on one goroutine and read by the
// later compiler stages on the same goroutine (or read-only, concurrently,
// once parsing has finished).
type Arena struct {
	nodes     []Node
	maxNodes  int
	exhausted bool
}

// DefaultMaxNodes bounds arena growth so a pathological or adversarial input
// cannot exhaust memory; exceeding it surfaces as an Arena.Exhausted()
// condition rather than an out-of-memory crash, per the parser's "Memory"
// diagnostic contract.
const DefaultMaxNodes = 1 << 20

// NewArena returns an empty Arena. maxNodes <= 0 selects DefaultMaxNodes.
func NewArena(maxNodes int) *Arena {
	if maxNodes <= 0 {
		maxNodes = DefaultMaxNodes
	}
	a := &Arena{maxNodes: maxNodes}
	a.nodes = make([]Node, 1, 64) // index 0 is the Invalid sentinel.
	return a
}

// New allocates a Node of the given Kind and Span in the arena and returns
// its NodeID. Once Arena.Exhausted(), New returns Invalid and every caller
// must tolerate an Invalid child the same way any other null node is
// tolerated.
func (a *Arena) New(k Kind, span token.Span) NodeID {
	if a.exhausted || len(a.nodes) >= a.maxNodes {
		a.exhausted = true
		return Invalid
	}
	id := NodeID(len(a.nodes))
	a.nodes = append(a.nodes, Node{Kind: k, Span: span})
	return id
}

// Exhausted reports whether the arena has hit its node cap.
func (a *Arena) Exhausted() bool { return a.exhausted }

// Len returns the number of live nodes, including the Invalid sentinel.
func (a *Arena) Len() int { return len(a.nodes) }

// Get dereferences id. Get(Invalid) returns a pointer to the zero Node so
// callers that forget to nil-check still read a harmless, Kind-zero node
// rather than panicking; Kind 0 never matches a real Kind in a type switch.
func (a *Arena) Get(id NodeID) *Node {
	if int(id) >= len(a.nodes) {
		return &a.nodes[0]
	}
	return &a.nodes[id]
}

// Valid reports whether id refers to a real, non-sentinel node.
func (a *Arena) Valid(id NodeID) bool {
	return id != Invalid && int(id) < len(a.nodes)
}
