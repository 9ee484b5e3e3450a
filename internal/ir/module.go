package ir

import "strings"

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// FieldLayout records one field's position within a compiled Actor or
// Struct record: declaration order from internal/types.Type.Fields is
// load-bearing and becomes the field's slot index here.
type FieldLayout struct {
	Name  string
	Type  Type
	Index int
}

// RecordLayout is the compiled shape of one actor or struct type.
type RecordLayout struct {
	Name      string
	IsActor   bool
	Fields    []FieldLayout
	RecvArms  []RecvArm // only set when IsActor and the actor declares a receive block.
}

// RecvArm is one arm of an actor's receive block, lowered to a tag to
// dispatch on: IsBind arms match any message and bind the payload;
// otherwise Tag is the literal the arm's pattern matched against.
type RecvArm struct {
	Tag    int64
	IsBind bool
}

// Module is a whole compiled program: every function (including lowered
// actor methods and behavior loops), every actor/struct record layout, and
// the deduplicated string literal table codegen backends emit as rodata.
type Module struct {
	Functions []*Function
	Records   []*RecordLayout

	strings   []string
	stringIdx map[string]int
}

// NewModule returns an empty Module ready for irgen to populate.
func NewModule() *Module {
	return &Module{stringIdx: make(map[string]int)}
}

// CreateFunction appends a new, block-less Function to m.
func (m *Module) CreateFunction(name string, params []Param, result Type) *Function {
	f := &Function{m: m, Name: name, Params: params, Result: result}
	m.Functions = append(m.Functions, f)
	return f
}

// intern deduplicates s into m's string table and returns its index.
func (m *Module) intern(s string) int {
	if idx, ok := m.stringIdx[s]; ok {
		return idx
	}
	idx := len(m.strings)
	m.strings = append(m.strings, s)
	m.stringIdx[s] = idx
	return idx
}

// Strings returns the module's deduplicated string table in insertion
// order, matching the indices CreateConstStr handed out.
func (m *Module) Strings() []string { return m.strings }

func (m *Module) String() string {
	var sb strings.Builder
	for _, r := range m.Records {
		sb.WriteString(r.Name)
		sb.WriteString(" {\n")
		for _, f := range r.Fields {
			sb.WriteByte('\t')
			sb.WriteString(f.Name)
			sb.WriteString(": ")
			sb.WriteString(f.Type.String())
			sb.WriteByte('\n')
		}
		sb.WriteString("}\n")
	}
	for _, f := range m.Functions {
		sb.WriteString(f.String())
	}
	return sb.String()
}
