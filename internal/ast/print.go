package ast

import (
	"fmt"
	"io"
	"strings"
)

// kindNames is used only by Dump, the --dump-ast debugging aid; the spec
// treats the AST pretty-printer as an external collaborator, so this is
// intentionally minimal rather than a full formatter.
var kindNames = map[Kind]string{
	Program: "Program", FnDecl: "FnDecl", ActorDecl: "ActorDecl", StructDecl: "StructDecl",
	Param: "Param", Field: "Field", Block: "Block", LetStmt: "LetStmt", ReturnStmt: "ReturnStmt",
	ExprStmt: "ExprStmt", IfStmt: "IfStmt", WhileStmt: "WhileStmt", ForStmt: "ForStmt",
	LoopStmt: "LoopStmt", BreakStmt: "BreakStmt", ContinueStmt: "ContinueStmt",
	SpawnStmt: "SpawnStmt", ReceiveStmt: "ReceiveStmt", ReceiveArm: "ReceiveArm",
	AssignExpr: "AssignExpr", BinaryExpr: "BinaryExpr", UnaryExpr: "UnaryExpr", SendExpr: "SendExpr",
	CallExpr: "CallExpr", IndexExpr: "IndexExpr", FieldExpr: "FieldExpr", IdentExpr: "IdentExpr",
	SelfExpr: "SelfExpr", IntLit: "IntLit", FloatLit: "FloatLit", StringLit: "StringLit",
	CharLit: "CharLit", BoolLit: "BoolLit", TypeRef: "TypeRef",
}

// Dump writes an indented textual representation of the subtree rooted at
// id to w, one node per line, for use by the `--dump-ast` driver flag.
func Dump(w io.Writer, a *Arena, id NodeID, depth int) {
	if !a.Valid(id) {
		fmt.Fprintf(w, "%s<nil>\n", strings.Repeat("  ", depth))
		return
	}
	n := a.Get(id)
	fmt.Fprintf(w, "%s%s %s\n", strings.Repeat("  ", depth), kindNames[n.Kind], n.Span)
	for _, c := range n.Children {
		Dump(w, a, c, depth+1)
	}
}
