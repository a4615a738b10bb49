package analyze_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/overturf/cfgc/analyze"
	"github.com/overturf/cfgc/config"
	"github.com/overturf/cfgc/diag"
	"github.com/overturf/cfgc/lexer"
	"github.com/overturf/cfgc/source"
	"github.com/overturf/cfgc/token"
)

func parse(t *testing.T, src string) (*config.File, *diag.CollectingSink) {
	t.Helper()
	reg := source.NewRegistry()
	h := reg.Register("test.hpp", []byte(src))
	lexSink := diag.NewCollectingSink()
	lx := lexer.New(h, reg.Bytes(h), lexSink)
	var toks []token.Token
	for {
		tok := lx.Next()
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	require.Empty(t, lexSink.Diagnostics)
	sink := diag.NewCollectingSink()
	return config.Parse(toks, sink), sink
}

func diagsOf(sink *diag.CollectingSink, code diag.Code) []diag.Diagnostic {
	var out []diag.Diagnostic
	for _, d := range sink.Diagnostics {
		if d.Code == code {
			out = append(out, d)
		}
	}
	return out
}

// TestAnalyze_CfgPatchesScope mirrors the spec's own worked example
// (grounded on original_source/libs/config/tests/lints/c15_cfgpatches_scope.hpp):
// a CfgPatches addon lists three units, of which one is properly scoped,
// one resolves but isn't public, and one doesn't exist at all.
func TestAnalyze_CfgPatchesScope(t *testing.T) {
	src := `
class CfgPatches {
	class myMod {
		units[] = {"a", "b", "c"};
		weapons[] = {};
	};
};
class CfgVehicles {
	class Car;
	class a: Car {
		scope = 2;
	};
	class b: Car {
	};
};
`
	f, parseSink := parse(t, src)
	require.Empty(t, parseSink.Diagnostics)

	sink := diag.NewCollectingSink()
	analyze.Analyze(f, sink)

	missing := diagsOf(sink, diag.CodeMissingClass)
	require.Len(t, missing, 1)
	assert.Contains(t, missing[0].Message, `"c"`)

	nonPublic := diagsOf(sink, diag.CodeNonPublicScope)
	require.Len(t, nonPublic, 1)
	assert.Contains(t, nonPublic[0].Message, "b")
}

func TestAnalyze_CfgPatchesScope_CaseInsensitiveClassNames(t *testing.T) {
	src := `
class cfgpatches {
	class myMod {
		units[] = {"CAR"};
	};
};
class CfgVehicles {
	class Car {
		scope = 2;
	};
};
`
	f, parseSink := parse(t, src)
	require.Empty(t, parseSink.Diagnostics)

	sink := diag.NewCollectingSink()
	analyze.Analyze(f, sink)
	assert.Empty(t, sink.Diagnostics)
}

func TestAnalyze_DuplicateProperty(t *testing.T) {
	src := `
class Car {
	scope = 1;
	scope = 2;
};
`
	f, _ := parse(t, src)
	sink := diag.NewCollectingSink()
	analyze.Analyze(f, sink)
	dups := diagsOf(sink, diag.CodeDuplicateProperty)
	require.Len(t, dups, 1)
}

func TestAnalyze_UndeclaredParent(t *testing.T) {
	src := `class Car: Ghost { scope = 2; };`
	f, _ := parse(t, src)
	sink := diag.NewCollectingSink()
	analyze.Analyze(f, sink)
	undeclared := diagsOf(sink, diag.CodeUndeclaredParent)
	require.Len(t, undeclared, 1)
	assert.Equal(t, 0, len(diagsOf(sink, diag.CodeInheritanceCycle)))
}

func TestAnalyze_InheritanceCycle(t *testing.T) {
	src := `
class A: B {};
class B: A {};
`
	f, _ := parse(t, src)
	sink := diag.NewCollectingSink()
	analyze.Analyze(f, sink)
	cycles := diagsOf(sink, diag.CodeInheritanceCycle)
	assert.Len(t, cycles, 2)
	assert.Empty(t, diagsOf(sink, diag.CodeUndeclaredParent))
}

func TestAnalyze_ArrayAppendWithoutBase(t *testing.T) {
	src := `
class Base {
};
class Derived: Base {
	items[] += {"a"};
};
`
	f, _ := parse(t, src)
	sink := diag.NewCollectingSink()
	analyze.Analyze(f, sink)
	require.Len(t, diagsOf(sink, diag.CodeArrayAppendNoBase), 1)
}

func TestAnalyze_ArrayAppendWithBaseInAncestor(t *testing.T) {
	src := `
class Base {
	items[] = {"a"};
};
class Derived: Base {
	items[] += {"b"};
};
`
	f, _ := parse(t, src)
	sink := diag.NewCollectingSink()
	analyze.Analyze(f, sink)
	assert.Empty(t, diagsOf(sink, diag.CodeArrayAppendNoBase))
}

func TestAnalyze_RequiredVersionFormat(t *testing.T) {
	src := `
class CfgPatches {
	class good {
		requiredVersion = 1.60;
	};
	class bad {
		requiredVersion = "not.a.version";
	};
};
`
	f, _ := parse(t, src)
	sink := diag.NewCollectingSink()
	analyze.Analyze(f, sink)
	versionDiags := diagsOf(sink, diag.CodeRequiredVersion)
	require.Len(t, versionDiags, 1)
	assert.Contains(t, versionDiags[0].Message, "bad")
}

func TestResolver_PropertyLookupAlongChain(t *testing.T) {
	src := `
class Base {
	displayName = "Base";
};
class Child: Base {
	scope = 2;
};
`
	f, _ := parse(t, src)
	r := analyze.NewResolver()
	child := f.Root.Body[1].(*config.Class)

	prop, ok := r.Property(child, "displayName")
	require.True(t, ok)
	assert.Equal(t, "Base", prop.Value.Str)

	_, ok = r.Property(child, "nonexistent")
	assert.False(t, ok)
}

func TestResolver_LocalityPrefersNearestSibling(t *testing.T) {
	src := `
class Outer {
	class Shared {
		tag = "outer";
	};
	class Inner {
		class Shared {
			tag = "inner";
		};
		class Leaf: Shared {
		};
	};
};
`
	f, _ := parse(t, src)
	r := analyze.NewResolver()
	outer := f.Root.Body[0].(*config.Class)
	inner := outer.Body[1].(*config.Class)
	leaf := inner.Body[1].(*config.Class)

	parent, ok := r.Parent(leaf)
	require.True(t, ok)
	tag, ok := r.Property(parent, "tag")
	require.True(t, ok)
	assert.Equal(t, "inner", tag.Value.Str)
}
