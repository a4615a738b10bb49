package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/overturf/cfgc/config"
	"github.com/overturf/cfgc/diag"
	"github.com/overturf/cfgc/lexer"
	"github.com/overturf/cfgc/source"
	"github.com/overturf/cfgc/token"
)

func lex(t *testing.T, input string) []token.Token {
	t.Helper()
	reg := source.NewRegistry()
	h := reg.Register("test.hpp", []byte(input))
	sink := diag.NewCollectingSink()
	lx := lexer.New(h, reg.Bytes(h), sink)
	var toks []token.Token
	for {
		tok := lx.Next()
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	require.Empty(t, sink.Diagnostics)
	return toks
}

func TestParse_ClassWithParentAndProperties(t *testing.T) {
	src := `class CfgVehicles {
		class Car_Base;
		class Car: Car_Base {
			scope = 2;
			displayName = "Car";
			hiddenSelections[] = {"camo1", "camo2"};
		};
	};`
	f := config.Parse(lex(t, src), diag.NewCollectingSink())
	require.Len(t, f.Root.Body, 1)
	cfgVehicles := f.Root.Body[0].(*config.Class)
	assert.Equal(t, "CfgVehicles", cfgVehicles.Name)
	require.Len(t, cfgVehicles.Body, 2)

	base := cfgVehicles.Body[0].(*config.Class)
	assert.True(t, base.Forward)

	car := cfgVehicles.Body[1].(*config.Class)
	assert.Equal(t, "Car_Base", car.Parent)
	require.Len(t, car.Body, 3)

	scope := car.Body[0].(*config.Property)
	assert.Equal(t, config.ValueInt, scope.Value.Kind)
	assert.Equal(t, int64(2), scope.Value.Int)

	hidden := car.Body[2].(*config.Property)
	assert.True(t, hidden.IsArray)
	require.Len(t, hidden.Value.Array, 2)
	assert.Equal(t, "camo1", hidden.Value.Array[0].Str)
}

func TestParse_ForwardDeclarationMergesIntoLaterDefinition(t *testing.T) {
	src := `class CfgVehicles {
		class Car_Base;
		class Car_Base: Land {
			scope = 2;
		};
	};`
	f := config.Parse(lex(t, src), diag.NewCollectingSink())
	cfgVehicles := f.Root.Body[0].(*config.Class)
	require.Len(t, cfgVehicles.Body, 1, "forward declaration and definition of the same class must merge into one node")

	merged := cfgVehicles.Body[0].(*config.Class)
	assert.False(t, merged.Forward)
	assert.Equal(t, "Land", merged.Parent)
	require.Len(t, merged.Body, 1)
}

func TestParse_TrailingForwardReferenceDoesNotDuplicateDefinition(t *testing.T) {
	src := `class CfgVehicles {
		class Car_Base: Land {
			scope = 2;
		};
		class Car_Base;
	};`
	f := config.Parse(lex(t, src), diag.NewCollectingSink())
	cfgVehicles := f.Root.Body[0].(*config.Class)
	require.Len(t, cfgVehicles.Body, 1, "a later bare forward reference to an already-defined class must not add a second sibling")

	merged := cfgVehicles.Body[0].(*config.Class)
	assert.False(t, merged.Forward)
	require.Len(t, merged.Body, 1)
}

func TestParse_ArrayAppendAndTrailingComma(t *testing.T) {
	src := `items[] += {"a", "b",};`
	f := config.Parse(lex(t, src), diag.NewCollectingSink())
	prop := f.Root.Body[0].(*config.Property)
	assert.True(t, prop.Append)
	assert.True(t, prop.IsArray)
	require.Len(t, prop.Value.Array, 2)
}

func TestParse_PlusEqualsWithoutBracketsIsParseError(t *testing.T) {
	src := `scope += 2;`
	sink := diag.NewCollectingSink()
	config.Parse(lex(t, src), sink)
	require.NotEmpty(t, sink.Diagnostics)
	assert.Equal(t, diag.CodeParseError, sink.Diagnostics[0].Code)
}

func TestParse_BareIdentifierScalarPreserved(t *testing.T) {
	src := `type = Weapon;`
	f := config.Parse(lex(t, src), diag.NewCollectingSink())
	prop := f.Root.Body[0].(*config.Property)
	assert.Equal(t, config.ValueIdent, prop.Value.Kind)
	assert.Equal(t, "Weapon", prop.Value.Ident)
}

func TestParse_IntegerOverflowWidensToFloatWithWarning(t *testing.T) {
	src := `big = 99999999999999999999;`
	sink := diag.NewCollectingSink()
	f := config.Parse(lex(t, src), sink)
	prop := f.Root.Body[0].(*config.Property)
	assert.Equal(t, config.ValueFloat, prop.Value.Kind)
	require.Len(t, sink.Diagnostics, 1)
	assert.Equal(t, diag.CodeIntegerOverflow, sink.Diagnostics[0].Code)
}

func TestParse_MissingSemicolonRecovers(t *testing.T) {
	// No ';' separates "a"'s value from "b": the next top-level ';' the
	// recovery scan finds is b's own, so the malformed "a" property is kept
	// (its diagnosed span stops at its value) but "b = 2" is consumed as
	// part of recovering from it -- a real, accepted cost of resuming at
	// the next top-level terminator rather than the next statement start.
	src := `a = 1
b = 2;
c = 3;`
	sink := diag.NewCollectingSink()
	f := config.Parse(lex(t, src), sink)
	require.NotEmpty(t, sink.Diagnostics)
	require.Len(t, f.Root.Body, 2)
	a := f.Root.Body[0].(*config.Property)
	assert.Equal(t, "a", a.Name)
	c := f.Root.Body[1].(*config.Property)
	assert.Equal(t, "c", c.Name)
}

func TestParse_UnexpectedTokenSkipsToNextStatement(t *testing.T) {
	src := `; ; garbage ; ok = 1;`
	sink := diag.NewCollectingSink()
	f := config.Parse(lex(t, src), sink)
	require.NotEmpty(t, sink.Diagnostics)
	require.Len(t, f.Root.Body, 1)
	ok := f.Root.Body[0].(*config.Property)
	assert.Equal(t, "ok", ok.Name)
}

func TestFormat_RoundTripsStructurally(t *testing.T) {
	src := `class A: B {
		x = 1;
		y[] = {1, 2, 3};
	};`
	f := config.Parse(lex(t, src), diag.NewCollectingSink())
	out := config.Format(f)
	f2 := config.Parse(lex(t, out), diag.NewCollectingSink())
	assert.Equal(t, config.Format(f2), out)
}
