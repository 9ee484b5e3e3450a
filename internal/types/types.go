// Package types implements the ARNm type algebra and Hindley-Milner style
// unification with permission annotations: a recursive sum type capable
// of expressing function, actor, struct, array and optional types plus
// unbound type variables, rather than a flat enum of scalar kinds.
package types

import "fmt"

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Kind discriminates the variant carried by a Type value.
type Kind uint8

const (
	Unit Kind = iota
	Bool
	I32
	I64
	F32
	F64
	String
	Char
	Var
	Fn
	Actor
	Struct
	Array
	Optional
	Process
	Error
	Unknown
)

var kindNames = [...]string{
	Unit: "unit", Bool: "bool", I32: "i32", I64: "i64", F32: "f32", F64: "f64",
	String: "string", Char: "char", Var: "var", Fn: "fn", Actor: "actor",
	Struct: "struct", Array: "array", Optional: "optional", Process: "process",
	Error: "error", Unknown: "unknown",
}

func (k Kind) String() string { return kindNames[k] }

// Permission is type metadata carried alongside every Type. Unification
// never compares permissions, and the semantic analyzer does not read them
// either: its mutability check uses symtab.Symbol.IsMutable.
type Permission uint8

const (
	PermUnknown Permission = iota
	Unique
	Shared
	Immutable
)

func (p Permission) String() string {
	switch p {
	case Unique:
		return "unique"
	case Shared:
		return "shared"
	case Immutable:
		return "immutable"
	default:
		return "unknown"
	}
}

// Field is one (name, type) entry of an Actor or Struct's field table, in
// declaration order — declaration order is load-bearing: irgen resolves
// `self.field` to a FieldPtr offset equal to the field's ordinal here.
type Field struct {
	Name string
	Type *Type
}

// Type is a tagged value over the Kind algebra. Primitive Types (Unit,
// Bool, I32, I64, F32, F64, String, Char, Error, Unknown) are
// process-global singletons returned by the constructor functions below;
// compound types (Fn, Actor, Struct, Array, Optional, Process, Var) are
// heap allocated per occurrence.
type Type struct {
	Kind       Kind
	Permission Permission

	// Var.
	VarID    int
	instance *Type // union-find parent; once set, never cleared, and never points at itself.

	// Fn.
	Params []*Type
	Result *Type

	// Actor / Struct.
	Name   string
	Fields []Field

	// Array / Optional.
	Elem *Type
}

func (t *Type) String() string {
	if t == nil {
		return "<nil type>"
	}
	switch t.Kind {
	case Var:
		if t.instance != nil {
			return t.instance.String()
		}
		return fmt.Sprintf("'t%d", t.VarID)
	case Fn:
		s := "fn("
		for i, p := range t.Params {
			if i > 0 {
				s += ", "
			}
			s += p.String()
		}
		return s + ") -> " + t.Result.String()
	case Actor, Struct:
		return t.Name
	case Array:
		return t.Elem.String() + "[]"
	case Optional:
		return t.Elem.String() + "?"
	case Process:
		if t.Elem != nil {
			return "Process(" + t.Elem.String() + ")"
		}
		return "Process"
	default:
		return t.Kind.String()
	}
}

// ------------------------------
// ----- primitive singletons ---
// ------------------------------

var (
	unitT    = &Type{Kind: Unit, Permission: Immutable}
	boolT    = &Type{Kind: Bool, Permission: Immutable}
	i32T     = &Type{Kind: I32, Permission: Immutable}
	i64T     = &Type{Kind: I64, Permission: Immutable}
	f32T     = &Type{Kind: F32, Permission: Immutable}
	f64T     = &Type{Kind: F64, Permission: Immutable}
	stringT  = &Type{Kind: String, Permission: Immutable}
	charT    = &Type{Kind: Char, Permission: Immutable}
	errorT   = &Type{Kind: Error, Permission: Immutable}
	unknownT = &Type{Kind: Unknown, Permission: PermUnknown}
)

func Unit_() *Type    { return unitT }
func Bool_() *Type    { return boolT }
func I32_() *Type     { return i32T }
func I64_() *Type     { return i64T }
func F32_() *Type     { return f32T }
func F64_() *Type     { return f64T }
func String_() *Type  { return stringT }
func Char_() *Type    { return charT }
func Error_() *Type   { return errorT }
func Unknown_() *Type { return unknownT }

// NewFn returns a new Fn type. Function types default to Immutable
// permission, per the permission-defaulting rule in the language spec.
func NewFn(params []*Type, result *Type) *Type {
	return &Type{Kind: Fn, Permission: Immutable, Params: params, Result: result}
}

// NewActor returns a new, initially field-less, Actor type; fields are
// populated by the semantic analyzer as it processes the declaration body.
func NewActor(name string) *Type {
	return &Type{Kind: Actor, Name: name, Permission: Unique}
}

// NewStruct returns a new, initially field-less, Struct type.
func NewStruct(name string) *Type {
	return &Type{Kind: Struct, Name: name, Permission: Unique}
}

// NewArray returns an array-of-elem type.
func NewArray(elem *Type) *Type {
	return &Type{Kind: Array, Elem: elem, Permission: Shared}
}

// NewOptional returns an optional-of-elem type.
func NewOptional(elem *Type) *Type {
	return &Type{Kind: Optional, Elem: elem, Permission: elem.Permission}
}

// NewProcess returns a Process(result) handle type. Process handles default
// to Unique permission per the language spec.
func NewProcess(result *Type) *Type {
	return &Type{Kind: Process, Elem: result, Permission: Unique}
}

// ---------------------------
// ----- type variables ------
// ---------------------------

// varSeq hands out unique ids for fresh type variables. It is owned by a
// single Fresh-calling compile pass and is not safe for concurrent use
// across unrelated compilations sharing a process, matching the rest of
// the compiler's single-threaded-per-compile-unit arenas.
var varSeq int

// Fresh returns a new, unbound type variable.
func Fresh() *Type {
	varSeq++
	return &Type{Kind: Var, VarID: varSeq, Permission: PermUnknown}
}

// maxResolveHops caps the instance-chain walk in Resolve, matching the
// language spec's "cycle break at 1000 hops (observable only on bugs)".
const maxResolveHops = 1000

// Resolve chases t's Var.instance chain to a fixed point: either a concrete
// non-Var type, or an unbound Var. Non-Var types resolve to themselves.
func Resolve(t *Type) *Type {
	hops := 0
	for t != nil && t.Kind == Var && t.instance != nil {
		t = t.instance
		hops++
		if hops >= maxResolveHops {
			break
		}
	}
	return t
}

// bind sets v's instance to target. v must be an unbound Var and must not
// be the same variable as target's resolution — the occurs check in Unify
// is what actually prevents that; bind itself only asserts the invariant
// described in the spec data model ("once a Var's instance is set, it is
// never cleared, and the bound target is not itself the same variable").
func bind(v, target *Type) {
	if v.Kind != Var {
		panic("types: bind called on non-Var type")
	}
	if v.instance != nil {
		panic("types: Var instance rebound")
	}
	v.instance = target
}

// occurs reports whether v occurs free within t, walking through Fn
// parameter/result lists, Array/Optional element types and already-bound
// Vars. It is the standard HM occurs check that prevents infinite types
// like `'t0 = 't0[]` from unifying.
func occurs(v, t *Type) bool {
	t = Resolve(t)
	if t == v {
		return true
	}
	switch t.Kind {
	case Fn:
		for _, p := range t.Params {
			if occurs(v, p) {
				return true
			}
		}
		return occurs(v, t.Result)
	case Array, Optional:
		return occurs(v, t.Elem)
	default:
		return false
	}
}

// ---------------------------
// ----- unification ---------
// ---------------------------

// Unify attempts to unify a and b, mutating whichever unbound Vars are
// needed to make them equal. It returns an error describing the mismatch
// on failure. Error unifies successfully with anything, per the spec's
// "avoid cascading errors after a reported failure" rule.
func Unify(a, b *Type) error {
	a, b = Resolve(a), Resolve(b)
	if a == b {
		return nil
	}
	if a.Kind == Error || b.Kind == Error || a.Kind == Unknown || b.Kind == Unknown {
		return nil
	}
	if a.Kind == Var {
		if occurs(a, b) {
			return fmt.Errorf("occurs check failed: %s occurs in %s", a, b)
		}
		bind(a, b)
		return nil
	}
	if b.Kind == Var {
		return Unify(b, a)
	}
	if a.Kind != b.Kind {
		return fmt.Errorf("type mismatch: %s vs %s", a, b)
	}
	switch a.Kind {
	case Unit, Bool, I32, I64, F32, F64, String, Char:
		return nil
	case Actor, Struct:
		if a.Name != b.Name {
			return fmt.Errorf("type mismatch: %s vs %s", a.Name, b.Name)
		}
		return nil
	case Fn:
		if len(a.Params) != len(b.Params) {
			return fmt.Errorf("arity mismatch: %s vs %s", a, b)
		}
		for i := range a.Params {
			if err := Unify(a.Params[i], b.Params[i]); err != nil {
				return err
			}
		}
		return Unify(a.Result, b.Result)
	case Array, Optional:
		return Unify(a.Elem, b.Elem)
	case Process:
		if a.Elem == nil || b.Elem == nil {
			return nil
		}
		return Unify(a.Elem, b.Elem)
	default:
		return fmt.Errorf("cannot unify %s with %s", a, b)
	}
}
