package cfgc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/overturf/cfgc"
	"github.com/overturf/cfgc/diag"
	"github.com/overturf/cfgc/preprocessor"
	"github.com/overturf/cfgc/source"
)

// memFS is a tiny in-memory PathResolver+FileLoader, grounded on
// preprocessor_test.go's own memFS, reused here so cfgc's integration tests
// don't touch the real filesystem.
type memFS map[string]string

func (m memFS) Resolve(currentFile, requested string, mode preprocessor.IncludeMode) (string, bool) {
	if _, ok := m[requested]; ok {
		return requested, true
	}
	return "", false
}

func (m memFS) Load(path string) ([]byte, error) {
	return []byte(m[path]), nil
}

func TestCfgc_FullPipeline(t *testing.T) {
	fs := memFS{
		"main.hpp": `
#include "defs.hpp"
class CfgPatches {
	class myMod {
		units[] = {"Car"};
	};
};
class CfgVehicles {
	class Car {
		scope = SCOPE_PUBLIC;
	};
};
`,
		"defs.hpp": `#define SCOPE_PUBLIC 2`,
	}
	reg := source.NewRegistry()
	sink := diag.NewCollectingSink()
	toks := cfgc.Preprocess("main.hpp", fs, fs, reg, nil, sink)
	require.Empty(t, sink.Diagnostics)

	f := cfgc.Parse(toks, sink)
	require.Empty(t, sink.Diagnostics)

	cfgc.Analyze(f, sink)
	assert.Empty(t, sink.Diagnostics)
}

func TestCfgc_AnalyzeFiles_Idempotent(t *testing.T) {
	fs := memFS{
		"a.hpp": `class CfgPatches { class m { units[] = {"X"}; }; }; class CfgVehicles { class X { scope = 2; }; };`,
		"b.hpp": `class Lonely { scope = 1; };`,
	}
	run := func() []cfgc.FileResult {
		return cfgc.AnalyzeFiles([]string{"a.hpp", "b.hpp"}, fs, fs, nil, 2)
	}

	first := run()
	second := run()

	require.Len(t, first, 2)
	require.Len(t, second, 2)
	for i := range first {
		assert.Equal(t, first[i].Path, second[i].Path)
		assert.Equal(t, len(first[i].Sink.Diagnostics), len(second[i].Sink.Diagnostics))
	}
	assert.Empty(t, cfgc.FailedPaths(first))
}
