package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scadls/internal/config"
	"scadls/internal/core/errors"
	"scadls/internal/lang"
	"scadls/internal/syntax"
)

func newTestWorkspace(t *testing.T) (*Workspace, string) {
	t.Helper()
	dir := t.TempDir()
	provider := syntax.NewProvider()
	w := New(provider, config.NewStore(config.Default()), nil, nil)

	builtins, err := LoadBuiltins(provider, "")
	require.NoError(t, err)
	require.Greater(t, builtins.Len(), 0)
	w.SetBuiltins(builtins)
	return w, dir
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestOpenAndResolveLocal(t *testing.T) {
	w, dir := newTestWorkspace(t)
	path := writeFile(t, dir, "a.scad", "")
	w.Open(path, "size = 10;\ncube(size);\n", 1)

	snap := w.Snapshot()
	d := snap.Resolve(path, "size", syntax.Point{Row: 1, Column: 5}, false)
	require.NotNil(t, d)
	assert.Equal(t, lang.DeclVariable, d.Kind)
	assert.Equal(t, path, d.Path)
}

func TestUserDeclarationShadowsBuiltin(t *testing.T) {
	w, dir := newTestWorkspace(t)
	path := writeFile(t, dir, "a.scad", "")
	w.Open(path, "module cube(s) { }\ncube(1);\n", 1)

	snap := w.Snapshot()
	d := snap.Resolve(path, "cube", syntax.Point{Row: 1, Column: 1}, true)
	require.NotNil(t, d)
	assert.False(t, d.Builtin, "local declaration wins over the builtin")
	assert.Equal(t, path, d.Path)
}

func TestBuiltinResolvesWhenNotShadowed(t *testing.T) {
	w, dir := newTestWorkspace(t)
	path := writeFile(t, dir, "a.scad", "")
	w.Open(path, "sphere(1);\n", 1)

	snap := w.Snapshot()
	d := snap.Resolve(path, "sphere", syntax.Point{Row: 0, Column: 1}, true)
	require.NotNil(t, d)
	assert.True(t, d.Builtin)
}

func TestIncludeIsTransparent(t *testing.T) {
	w, dir := newTestWorkspace(t)
	writeFile(t, dir, "lib.scad", "depth = 4;\nmodule helper() { }\n")
	path := writeFile(t, dir, "a.scad", "")
	w.Open(path, "include <lib.scad>\ncube(depth);\n", 1)

	snap := w.Snapshot()
	v := snap.Resolve(path, "depth", syntax.Point{Row: 1, Column: 6}, false)
	require.NotNil(t, v, "variables travel through include")
	m := snap.Resolve(path, "helper", syntax.Point{Row: 1, Column: 0}, true)
	require.NotNil(t, m)
}

func TestUseImportsCallablesOnly(t *testing.T) {
	w, dir := newTestWorkspace(t)
	writeFile(t, dir, "b.scad", "secret = 1;\nfunction bar(n) = n * 2;\nmodule widget() { }\n")
	path := writeFile(t, dir, "a.scad", "")
	w.Open(path, "use <b.scad>\nx = bar(1);\n", 1)

	snap := w.Snapshot()
	assert.NotNil(t, snap.Resolve(path, "bar", syntax.Point{Row: 1, Column: 5}, true))
	assert.NotNil(t, snap.Resolve(path, "widget", syntax.Point{Row: 1, Column: 0}, true))
	assert.Nil(t, snap.Resolve(path, "secret", syntax.Point{Row: 1, Column: 0}, false),
		"variables do not travel through use")
}

func TestUseIsNotReExported(t *testing.T) {
	w, dir := newTestWorkspace(t)
	writeFile(t, dir, "c.scad", "module deep() { }\n")
	writeFile(t, dir, "b.scad", "use <c.scad>\nmodule shallow() { }\n")
	path := writeFile(t, dir, "a.scad", "")
	w.Open(path, "include <b.scad>\nshallow();\ndeep();\n", 1)

	snap := w.Snapshot()
	assert.NotNil(t, snap.Resolve(path, "shallow", syntax.Point{Row: 1, Column: 1}, true))
	assert.Nil(t, snap.Resolve(path, "deep", syntax.Point{Row: 2, Column: 1}, true),
		"a use inside an included file exports nothing upward")
}

func TestIncludeChainsTransitively(t *testing.T) {
	w, dir := newTestWorkspace(t)
	writeFile(t, dir, "c.scad", "deep = 3;\n")
	writeFile(t, dir, "b.scad", "include <c.scad>\n")
	path := writeFile(t, dir, "a.scad", "")
	w.Open(path, "include <b.scad>\ncube(deep);\n", 1)

	snap := w.Snapshot()
	assert.NotNil(t, snap.Resolve(path, "deep", syntax.Point{Row: 1, Column: 6}, false))
}

func TestIncludeCycleTerminates(t *testing.T) {
	w, dir := newTestWorkspace(t)
	writeFile(t, dir, "a.scad", "include <b.scad>\nalpha = 1;\n")
	writeFile(t, dir, "b.scad", "include <a.scad>\nbeta = 2;\n")
	path := filepath.Join(dir, "a.scad")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	w.Open(path, string(data), 1)

	snap := w.Snapshot()
	assert.NotNil(t, snap.Resolve(path, "beta", syntax.Point{Row: 1, Column: 0}, false))
	names := snap.VisibleNames(path, syntax.Point{Row: 1, Column: 0})
	assert.NotEmpty(t, names)
}

func TestVersionConflictRejected(t *testing.T) {
	w, dir := newTestWorkspace(t)
	path := writeFile(t, dir, "a.scad", "")
	w.Open(path, "x = 1;\n", 5)

	_, err := w.Change(path, 5, []Change{{Full: true, Text: "x = 2;\n"}})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeVersionConflict))

	_, err = w.Change(path, 4, []Change{{Full: true, Text: "x = 2;\n"}})
	require.Error(t, err)

	entry, err := w.Change(path, 6, []Change{{Full: true, Text: "x = 2;\n"}})
	require.NoError(t, err)
	assert.Equal(t, int32(6), entry.Version)
}

func TestIncrementalChange(t *testing.T) {
	w, dir := newTestWorkspace(t)
	path := writeFile(t, dir, "a.scad", "")
	w.Open(path, "size = 10;\ncube(size);\n", 1)

	entry, err := w.Change(path, 2, []Change{{
		Text:  "width",
		Start: syntax.Point{Row: 0, Column: 0},
		End:   syntax.Point{Row: 0, Column: 4},
	}})
	require.NoError(t, err)
	assert.Equal(t, "width = 10;\ncube(size);\n", string(entry.Text))

	snap := w.Snapshot()
	assert.NotNil(t, snap.Resolve(path, "width", syntax.Point{Row: 0, Column: 1}, false))
	assert.Nil(t, snap.Resolve(path, "size", syntax.Point{Row: 0, Column: 1}, false))
}

func TestCloseKeepsIncludedFiles(t *testing.T) {
	w, dir := newTestWorkspace(t)
	lib := writeFile(t, dir, "lib.scad", "depth = 4;\n")
	path := writeFile(t, dir, "a.scad", "")
	w.Open(path, "include <lib.scad>\n", 1)
	require.NotNil(t, w.Get(lib))

	libData, err := os.ReadFile(lib)
	require.NoError(t, err)
	w.Open(lib, string(libData), 1)
	w.Close(lib)
	assert.NotNil(t, w.Get(lib), "still included by a.scad")

	w.Close(path)
	assert.Nil(t, w.Get(path))
}

func TestSnapshotStaysConsistent(t *testing.T) {
	w, dir := newTestWorkspace(t)
	path := writeFile(t, dir, "a.scad", "")
	w.Open(path, "x = 1;\n", 1)

	snap := w.Snapshot()
	assert.True(t, w.Valid(snap))

	_, err := w.Change(path, 2, []Change{{Full: true, Text: "y = 2;\n"}})
	require.NoError(t, err)

	assert.False(t, w.Valid(snap), "mutation invalidates older snapshots")
	assert.NotNil(t, snap.Resolve(path, "x", syntax.Point{Row: 0, Column: 0}, false),
		"old snapshot still answers from the old text")
}

func TestReferencesAcrossFiles(t *testing.T) {
	w, dir := newTestWorkspace(t)
	lib := writeFile(t, dir, "lib.scad", "module helper() { }\n")
	path := writeFile(t, dir, "a.scad", "")
	w.Open(path, "include <lib.scad>\nhelper();\nhelper();\n", 1)

	snap := w.Snapshot()
	locs := snap.References(path, "helper", syntax.Point{Row: 1, Column: 1})
	require.Len(t, locs, 3, "declaration plus two call sites")
	assert.Equal(t, lib, locs[0].Path)
}

func TestVisibleNamesOrdering(t *testing.T) {
	w, dir := newTestWorkspace(t)
	writeFile(t, dir, "lib.scad", "module helper() { }\n")
	path := writeFile(t, dir, "a.scad", "")
	w.Open(path, "include <lib.scad>\nmine = 1;\n", 1)

	snap := w.Snapshot()
	names := snap.VisibleNames(path, syntax.Point{Row: 1, Column: 0})

	idx := func(name string) int {
		for i, d := range names {
			if d.Name == name {
				return i
			}
		}
		return -1
	}
	require.GreaterOrEqual(t, idx("mine"), 0)
	require.GreaterOrEqual(t, idx("helper"), 0)
	require.GreaterOrEqual(t, idx("cube"), 0)
	assert.Less(t, idx("mine"), idx("helper"), "local before included")
	assert.Less(t, idx("helper"), idx("cube"), "included before builtin")
}

func TestBuiltinTableSwap(t *testing.T) {
	w, dir := newTestWorkspace(t)
	override := writeFile(t, dir, "builtins.scad", "/*\ncustom cube\n*/\nmodule cube(size) {}\n")

	fresh, err := LoadBuiltins(syntax.NewProvider(), override)
	require.NoError(t, err)
	w.SetBuiltins(fresh)

	d := w.Builtins().Lookup("cube", true)
	require.NotNil(t, d)
	assert.Equal(t, override, d.Path, "override declarations keep their location")
	assert.Contains(t, d.Doc, "custom cube")
}

func TestResolveIncludePathRelativeFirst(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "proj")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	root := filepath.Join(dir, "libroot")
	require.NoError(t, os.MkdirAll(root, 0o755))

	local := filepath.Join(sub, "util.scad")
	require.NoError(t, os.WriteFile(local, []byte("x=1;\n"), 0o644))
	shadowed := filepath.Join(root, "util.scad")
	require.NoError(t, os.WriteFile(shadowed, []byte("x=2;\n"), 0o644))

	from := filepath.Join(sub, "main.scad")
	assert.Equal(t, local, ResolveIncludePath(from, "util.scad", []string{root}))

	assert.Equal(t, "", ResolveIncludePath(from, "missing.scad", nil))
	assert.Equal(t, "", ResolveIncludePath(from, "", []string{root}))
}
