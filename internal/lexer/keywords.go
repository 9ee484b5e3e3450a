package lexer

import (
	"sort"

	"github.com/arnm-lang/arnm/internal/token"
)

// reservedItem pairs a keyword lexeme with its token.Kind for the
// length-bucketed keyword table below.
type reservedItem struct {
	val string
	typ token.Kind
}

// rw contains the set of all reserved ARNm keywords, bucketed by lexeme
// length: the first dimension is len(word)-1, the second dimension is
// every keyword of that length sorted alphabetically, searched with a
// linear scan because each bucket is small. Indexing by length first
// avoids comparing a 3-letter identifier against 8-letter keywords
// entirely.
var rw [][]reservedItem

func init() {
	byLen := map[int][]reservedItem{}
	max := 0
	for lex, kind := range token.Keywords {
		byLen[len(lex)] = append(byLen[len(lex)], reservedItem{val: lex, typ: kind})
		if len(lex) > max {
			max = len(lex)
		}
	}
	rw = make([][]reservedItem, max)
	for n, items := range byLen {
		sort.Slice(items, func(i, j int) bool { return items[i].val < items[j].val })
		rw[n-1] = items
	}
}

// isKeyword returns true if s is a reserved ARNm keyword, and the Kind to
// retag the scanned identifier token with.
func isKeyword(s string) (bool, token.Kind) {
	if len(s) == 0 || len(s) > len(rw) {
		return false, token.IDENT
	}
	for _, e1 := range rw[len(s)-1] {
		if e1.val == s {
			return true, e1.typ
		}
	}
	return false, token.IDENT
}
