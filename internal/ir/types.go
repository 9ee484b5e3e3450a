// Package ir implements ARNm's intermediate representation: a
// register-based, block-structured IR that sits between the type-checked
// AST and the two backends (LLVM-text and x86-64). A Value interface is
// implemented by every instruction, grouped into Blocks, Functions and a
// Module, built around the smaller, ABI-facing Type lattice a
// native-actor-runtime target needs rather than a general scalar/array
// data type hierarchy.
package ir

import "fmt"

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Type is the IR-level value type: narrower than internal/types.Type,
// since by the time semantic analysis hands a program to irgen every
// Actor/Struct/Optional/Array has already been lowered to pointers, field
// offsets and length-prefixed buffers. See irgen.lowerType for the mapping.
type Type uint8

const (
	Void Type = iota
	I1        // boolean, one bit of payload, a byte of storage.
	I32
	I64
	F32
	F64
	Ptr // an untyped pointer: struct/actor record, array buffer, or string.
)

func (t Type) String() string {
	switch t {
	case Void:
		return "void"
	case I1:
		return "i1"
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	case Ptr:
		return "ptr"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// IsFloat reports whether t is a floating point type.
func (t Type) IsFloat() bool { return t == F32 || t == F64 }
