package cfgc_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/overturf/cfgc"
	"github.com/overturf/cfgc/preprocessor"
)

func TestFSResolver_TranslatesBackslashSeparators(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "x", "ace")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	target := filepath.Join(nested, "something.hpp")
	require.NoError(t, os.WriteFile(target, []byte("// ok"), 0o644))

	r := cfgc.NewFSResolver(dir)
	got, ok := r.Resolve(filepath.Join(dir, "main.hpp"), `x\ace\something.hpp`, preprocessor.IncludeAngled)
	require.True(t, ok, "backslash-separated include path should resolve on this OS")
	assert.Equal(t, target, got)
}
