package parser

import "github.com/arnm-lang/arnm/internal/token"

// precedence implements the Pratt/precedence-climbing ladder from the
// language spec, weakest to strongest:
//
//	Assignment < Or < And < Equality < Comparison < Send < Term < Factor < Unary < Call < Primary
type precedence int

const (
	precNone precedence = iota
	precAssignment
	precOr
	precAnd
	precEquality
	precComparison
	precSend
	precTerm
	precFactor
	precUnary
	precCall
	precPrimary
)

// binaryPrec maps each binary operator token to its precedence level.
// Assignment operators are handled by parseExpr, not foldBinary, so they
// are intentionally absent here.
var binaryPrec = map[token.Kind]precedence{
	token.OR:        precOr,
	token.AND:       precAnd,
	token.EQ:        precEquality,
	token.NEQ:       precEquality,
	token.LT:        precComparison,
	token.LE:        precComparison,
	token.GT:        precComparison,
	token.GE:        precComparison,
	token.DOTDOT:    precComparison,
	token.DOTDOTEQ:  precComparison,
	token.BANG:      precSend,
	token.PLUS:      precTerm,
	token.MINUS:     precTerm,
	token.STAR:      precFactor,
	token.SLASH:     precFactor,
	token.PERCENT:   precFactor,
}

// isAssignOp reports whether k is `=` or a compound assignment operator.
// Every binary operator in binaryPrec, including send, is left-associative.
func isAssignOp(k token.Kind) bool {
	switch k {
	case token.ASSIGN, token.PLUSEQ, token.MINUSEQ, token.STAREQ, token.SLASHEQ:
		return true
	default:
		return false
	}
}
