// Package config parses a preprocessed token stream into a class/property
// tree and can re-serialize that tree deterministically.
package config

import "github.com/overturf/cfgc/source"

// ValueKind distinguishes the shapes a property's right-hand side can take.
type ValueKind int

const (
	ValueString ValueKind = iota
	ValueInt
	ValueFloat
	ValueIdent // a bare-identifier scalar, preserved rather than coerced
	ValueArray
)

// Value is a scalar or array right-hand side. Exactly the fields matching
// Kind are meaningful.
type Value struct {
	Kind  ValueKind
	Str   string
	Int   int64
	Float float64
	Ident string
	Array []Value
	Span  source.Span
}

// Equal reports structural equality, ignoring spans.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case ValueString:
		return v.Str == o.Str
	case ValueInt:
		return v.Int == o.Int
	case ValueFloat:
		return v.Float == o.Float
	case ValueIdent:
		return v.Ident == o.Ident
	case ValueArray:
		if len(v.Array) != len(o.Array) {
			return false
		}
		for i := range v.Array {
			if !v.Array[i].Equal(o.Array[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// Property is one `name = value;` / `name[] += value;` statement.
type Property struct {
	Name     string
	IsArray  bool // declared with trailing [] on the name
	Append   bool // declared with += rather than =
	Value    Value
	NameSpan source.Span
	Span     source.Span
}

// Class is a `class Name : Parent { ... };` declaration, a forward
// declaration (`class Name;`, Body is nil and Forward is true), or the
// anonymous root of the whole file.
type Class struct {
	Name      string
	Parent    string
	HasParent bool
	Forward   bool
	Body      []Node
	NameSpan  source.Span
	Span      source.Span

	// Enclosing is the lexical container of this class (nil for the
	// file's anonymous root): the Class whose Body directly holds it. Set
	// by the parser so the analyzer's inheritance-lookup walk (spec 4.4:
	// "walking B backwards, then outward through ancestor bodies") has the
	// ancestor chain without re-threading it itself.
	Enclosing *Class
}

// Node is either a *Class or a *Property. A closed type switch (not an
// interface method set) keeps every consumer's dispatch exhaustive and
// matches how the teacher's own AST nodes are discriminated.
type Node interface {
	isNode()
}

func (*Class) isNode()    {}
func (*Property) isNode() {}

// File is the parse result: the anonymous root class holding every
// top-level item.
type File struct {
	Root *Class
}
