// Package symtab implements the ARNm symbol table: a chain of lexical
// Scopes, each a fixed-bucket-count hash table keyed by FNV-1a over the
// symbol's name bytes, generalized from a flat bucketed lookup table
// into a proper push/pop scope chain so nested blocks and closures
// shadow correctly.
package symtab

import (
	"github.com/arnm-lang/arnm/internal/token"
	"github.com/arnm-lang/arnm/internal/types"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Kind differentiates what a Symbol names.
type Kind uint8

const (
	VarSym Kind = iota
	FnSym
	ActorSym
	TypeSym
	ParamSym
	FieldSym
)

// Symbol is one binding recorded in a Scope.
type Symbol struct {
	Name       string
	Kind       Kind
	Type       *types.Type
	Permission types.Permission
	Span       token.Span
	IsMutable  bool
	IsDefined  bool
}

// bucketCount is the fixed number of hash buckets per Scope: a small
// fixed bucket count avoids a resizing map allocation per scope.
const bucketCount = 64

// Scope is one lexical level of nesting: a bucketed hash table of Symbols
// plus a parent pointer. The outermost Scope (no parent) is the global
// scope and is preserved for the lifetime of a compile unit.
type Scope struct {
	parent  *Scope
	buckets [bucketCount][]*Symbol
}

// Table is the scope stack used while walking a single function or actor
// body: Push opens a nested Scope, Pop restores the enclosing one.
type Table struct {
	global  *Scope
	current *Scope
}

// ---------------------
// ----- functions -----
// ---------------------

// fnv1a is a cheap, allocation-free bucket selector (32-bit FNV-1a).
func fnv1a(s string) uint32 {
	const offset32 = 2166136261
	const prime32 = 16777619
	h := uint32(offset32)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime32
	}
	return h
}

func bucketOf(name string) int {
	return int(fnv1a(name) % bucketCount)
}

// NewTable creates a Table with a fresh, empty global Scope as both the
// current and only scope.
func NewTable() *Table {
	g := &Scope{}
	return &Table{global: g, current: g}
}

// Global returns the table's global Scope, preserved across Push/Pop.
func (t *Table) Global() *Scope { return t.global }

// Push opens a new Scope nested inside the current one and makes it current.
func (t *Table) Push() *Scope {
	s := &Scope{parent: t.current}
	t.current = s
	return s
}

// Pop restores the parent of the current Scope. Popping the global scope
// is a no-op: the global scope is preserved through shutdown.
func (t *Table) Pop() {
	if t.current.parent != nil {
		t.current = t.current.parent
	}
}

// Current returns the innermost open Scope.
func (t *Table) Current() *Scope { return t.current }

// Define inserts sym into s. Defining the same name twice in the same
// Scope fails and returns false, without mutating the existing entry —
// callers report DuplicateDefinition in that case.
func (s *Scope) Define(sym *Symbol) bool {
	b := bucketOf(sym.Name)
	for _, e := range s.buckets[b] {
		if e.Name == sym.Name {
			return false
		}
	}
	s.buckets[b] = append(s.buckets[b], sym)
	return true
}

// LookupLocal searches only s, not its ancestors.
func (s *Scope) LookupLocal(name string) (*Symbol, bool) {
	b := bucketOf(name)
	for _, e := range s.buckets[b] {
		if e.Name == name {
			return e, true
		}
	}
	return nil, false
}

// Lookup searches s, then s.parent, and so on until found or the chain is
// exhausted.
func (s *Scope) Lookup(name string) (*Symbol, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if sym, ok := cur.LookupLocal(name); ok {
			return sym, true
		}
	}
	return nil, false
}

// Define inserts sym into the table's current Scope.
func (t *Table) Define(sym *Symbol) bool { return t.current.Define(sym) }

// Lookup searches from the current Scope up through the global Scope.
func (t *Table) Lookup(name string) (*Symbol, bool) { return t.current.Lookup(name) }
