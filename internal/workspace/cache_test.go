package workspace

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scadls/internal/config"
	"scadls/internal/syntax"
)

func TestCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cache, err := OpenCache(filepath.Join(dir, "symbols.db"))
	require.NoError(t, err)
	defer cache.Close()

	provider := syntax.NewProvider()
	path := writeFile(t, dir, "lib.scad", "size = 10;\nmodule box(w) { cube(w); }\n")

	w := New(provider, config.NewStore(config.Default()), cache, nil)
	entry, err := w.Load(path)
	require.NoError(t, err)
	cache.Put(entry)

	restored, ok := cache.Lookup(path)
	require.True(t, ok)
	require.NotNil(t, restored.Syms)
	assert.Equal(t, entry.Syms.Scopes, restored.Syms.Scopes)
	assert.Equal(t, entry.Syms.Refs, restored.Syms.Refs)
	assert.True(t, restored.FromDisk)
}

func TestCacheMissOnChangedFile(t *testing.T) {
	dir := t.TempDir()
	cache, err := OpenCache(filepath.Join(dir, "symbols.db"))
	require.NoError(t, err)
	defer cache.Close()

	provider := syntax.NewProvider()
	path := writeFile(t, dir, "lib.scad", "size = 10;\n")

	w := New(provider, config.NewStore(config.Default()), cache, nil)
	entry, err := w.Load(path)
	require.NoError(t, err)
	cache.Put(entry)

	writeFile(t, dir, "lib.scad", "size = 10;\nextra = 1;\n")
	_, ok := cache.Lookup(path)
	assert.False(t, ok, "stale fingerprint must miss")
}

// A warm start restores the whole scope arena: a reference to a parameter
// shadowing a file-level name must not get re-attributed to the file-level
// declaration after a cache round trip.
func TestCacheWarmStartKeepsInnerScopes(t *testing.T) {
	dir := t.TempDir()
	cache, err := OpenCache(filepath.Join(dir, "symbols.db"))
	require.NoError(t, err)
	defer cache.Close()

	provider := syntax.NewProvider()
	writeFile(t, dir, "lib.scad", "x = 1;\nmodule m(x) { cube(x); }\n")
	libPath := filepath.Join(dir, "lib.scad")

	session := func() (*Workspace, string) {
		w := New(provider, config.NewStore(config.Default()), cache, nil)
		builtins, err := LoadBuiltins(provider, "")
		require.NoError(t, err)
		w.SetBuiltins(builtins)
		path := filepath.Join(dir, "a.scad")
		w.Open(path, "include <lib.scad>\nz = x;\n", 1)
		return w, path
	}

	cold, path := session()
	coldRefs := cold.Snapshot().References(path, "x", syntax.Point{Row: 1, Column: 4})
	require.Len(t, coldRefs, 2, "declaration in lib plus the use in a.scad")

	warm, path := session()
	entry := warm.Get(libPath)
	require.NotNil(t, entry)
	require.Nil(t, entry.Tree, "second session restores lib.scad from the cache")

	warmRefs := warm.Snapshot().References(path, "x", syntax.Point{Row: 1, Column: 4})
	assert.Equal(t, coldRefs, warmRefs, "the cube(x) use stays attributed to the parameter")
}
