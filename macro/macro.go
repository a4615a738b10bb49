// Package macro models macro definitions and the per-translation-unit macro
// table, including the stack-like redefinition semantics #define/#undef
// rely on: redefining a name pushes over the previous definition, and #undef
// pops back to whatever was defined before (if anything).
package macro

import (
	"github.com/overturf/cfgc/source"
	"github.com/overturf/cfgc/token"
)

// ItemKind distinguishes the shapes a macro replacement-list item can take.
type ItemKind int

const (
	ItemLiteral ItemKind = iota
	ItemParam
	ItemStringify
)

// Item is one element of a macro's replacement list. PasteBefore marks that
// this item is joined to the previous one with ##, forming a single token
// after substitution (a##b: two adjacent items, the second with
// PasteBefore set).
type Item struct {
	Kind        ItemKind
	Tok         token.Token // valid when Kind == ItemLiteral
	ParamIndex  int         // valid when Kind == ItemParam or ItemStringify
	PasteBefore bool
}

// Definition is a single #define: a name, whether it is function-like, its
// parameter list (empty for an object-like macro and for a function-like
// one taking no parameters; FunctionLike tells them apart), its
// replacement list, and the span of the #define directive itself.
type Definition struct {
	Name           string
	FunctionLike   bool
	Params         []string
	Body           []Item
	DefSpan        source.Span
}

// ParamIndex returns the index of name in d.Params, or -1 if name is not a
// parameter of d.
func (d *Definition) ParamIndex(name string) int {
	for i, p := range d.Params {
		if p == name {
			return i
		}
	}
	return -1
}

// Table is a per-translation-unit macro table. It is not safe for concurrent
// use; callers must give each parallel translation unit its own Table.
type Table struct {
	stacks map[string][]*Definition
}

// NewTable returns an empty Table, optionally seeded with initial
// definitions (e.g. driver-populated REQUIRED_VERSION/build-stamp/platform
// macros, see the initialDefs parameter of cfgc.Preprocess).
func NewTable(initial ...*Definition) *Table {
	t := &Table{stacks: make(map[string][]*Definition)}
	for _, d := range initial {
		t.Define(d)
	}
	return t
}

// Define pushes def onto the stack for its name, shadowing any previous
// definition. It returns true if a previous definition existed with a
// different arity (function-like-ness or parameter count) than def --
// callers should surface that as a warning, not an error.
func (t *Table) Define(def *Definition) (arityChanged bool) {
	prev, ok := t.stacks[def.Name]
	if ok && len(prev) > 0 {
		top := prev[len(prev)-1]
		if top.FunctionLike != def.FunctionLike || len(top.Params) != len(def.Params) {
			arityChanged = true
		}
	}
	t.stacks[def.Name] = append(t.stacks[def.Name], def)
	return arityChanged
}

// Undef pops the most recent definition for name, exposing whatever was
// defined before it (if anything). Undefining a name with no definition is
// a no-op.
func (t *Table) Undef(name string) {
	stack := t.stacks[name]
	if len(stack) == 0 {
		return
	}
	if len(stack) == 1 {
		delete(t.stacks, name)
		return
	}
	t.stacks[name] = stack[:len(stack)-1]
}

// Lookup returns the currently-visible definition for name, if any.
func (t *Table) Lookup(name string) (*Definition, bool) {
	stack := t.stacks[name]
	if len(stack) == 0 {
		return nil, false
	}
	return stack[len(stack)-1], true
}

// Defined reports whether name currently has a visible definition; used by
// the defined(NAME) operator and #ifdef/#ifndef.
func (t *Table) Defined(name string) bool {
	_, ok := t.Lookup(name)
	return ok
}

// Clone returns a deep-enough copy of t: a new table whose stacks are
// independent slices, though Definition values themselves are shared (they
// are never mutated after being built). Used when a conditional branch's
// macro mutations must not leak into a sibling branch during directive
// evaluation that explores more than one path (the state machine in the
// semantic-analyzer section never needs this; it is here for callers that
// want to speculatively evaluate a branch without committing to it).
func (t *Table) Clone() *Table {
	clone := &Table{stacks: make(map[string][]*Definition, len(t.stacks))}
	for name, stack := range t.stacks {
		cp := make([]*Definition, len(stack))
		copy(cp, stack)
		clone.stacks[name] = cp
	}
	return clone
}
