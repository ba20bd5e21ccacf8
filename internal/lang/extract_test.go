package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scadls/internal/syntax"
)

func extractSource(t *testing.T, src string) *FileSymbols {
	t.Helper()
	tree, err := syntax.NewProvider().Parse([]byte(src))
	require.NoError(t, err)
	return Extract(tree, []byte(src), "/test/file.scad")
}

func declNames(scope *Scope) []string {
	names := make([]string, 0, len(scope.Decls))
	for _, d := range scope.Decls {
		names = append(names, d.Name)
	}
	return names
}

func TestExtractTopLevelDeclarations(t *testing.T) {
	fs := extractSource(t, `
size = 10;
module box(w, h = 2) { cube([w, h]); }
function area(w, h) = w * h;
`)
	file := fs.FileScope()
	require.NotNil(t, file)
	assert.Equal(t, []string{"size", "box", "area"}, declNames(file))

	box := fs.LookupInScope(0, "box", false)
	require.NotNil(t, box)
	assert.Equal(t, DeclModule, box.Kind)
	require.Len(t, box.Params, 2)
	assert.Equal(t, "w", box.Params[0].Name)
	assert.Equal(t, "h", box.Params[1].Name)
	assert.Equal(t, "2", box.Params[1].Default)

	area := fs.LookupInScope(0, "area", false)
	require.NotNil(t, area)
	assert.Equal(t, DeclFunction, area.Kind)
}

func TestParametersDeclaredInBodyScope(t *testing.T) {
	fs := extractSource(t, "module box(w) { cube(w); }\n")
	assert.Nil(t, fs.LookupInScope(0, "w", false))

	// The parameter lives in the module's scope.
	found := false
	for i := 1; i < len(fs.Scopes); i++ {
		if fs.LookupInScope(i, "w", false) != nil {
			found = true
		}
	}
	assert.True(t, found)
}

func TestInnerScopeShadowsOuter(t *testing.T) {
	src := `x = 1;
module m() {
    x = 2;
    cube(x);
}
`
	fs := extractSource(t, src)

	// Point inside the module body.
	inner := fs.ScopeAt(syntax.Point{Row: 3, Column: 9})
	require.NotEqual(t, 0, inner)

	d := fs.Lookup(inner, "x", false)
	require.NotNil(t, d)
	assert.Equal(t, uint32(2), d.NameSpan.StartPoint.Row)

	outer := fs.Lookup(0, "x", false)
	require.NotNil(t, outer)
	assert.Equal(t, uint32(0), outer.NameSpan.StartPoint.Row)
}

func TestLastWriteWinsInSameScope(t *testing.T) {
	fs := extractSource(t, "x = 1;\nx = 2;\nx = 3;\n")
	d := fs.LookupInScope(0, "x", false)
	require.NotNil(t, d)
	assert.Equal(t, uint32(2), d.NameSpan.StartPoint.Row)

	visible := fs.VisibleFrom(0)
	count := 0
	for _, v := range visible {
		if v.Name == "x" {
			count++
		}
	}
	assert.Equal(t, 1, count, "duplicates collapse to the winner")
}

func TestForLoopBindsVariable(t *testing.T) {
	src := "for (i = [0:10]) cube(i);\n"
	fs := extractSource(t, src)

	assert.Nil(t, fs.LookupInScope(0, "i", false))
	inner := fs.ScopeAt(syntax.Point{Row: 0, Column: 22})
	d := fs.Lookup(inner, "i", false)
	require.NotNil(t, d)
	assert.Equal(t, DeclVariable, d.Kind)
}

func TestReferencesCollected(t *testing.T) {
	src := "size = 10;\ncube(size);\nr = area(size, 2);\n"
	fs := extractSource(t, src)

	var names []string
	var calls []string
	for _, ref := range fs.Refs {
		names = append(names, ref.Name)
		if ref.Call {
			calls = append(calls, ref.Name)
		}
	}
	assert.Contains(t, names, "size")
	assert.Contains(t, calls, "cube")
	assert.Contains(t, calls, "area")
}

func TestNamedArgumentLeftIsNotReference(t *testing.T) {
	fs := extractSource(t, "sphere(r = size);\n")
	for _, ref := range fs.Refs {
		assert.NotEqual(t, "r", ref.Name)
	}
}

func TestIncludesExtracted(t *testing.T) {
	fs := extractSource(t, "include <lib/shapes.scad>\nuse <util.scad>\n")
	require.Len(t, fs.Includes, 2)
	assert.Equal(t, "lib/shapes.scad", fs.Includes[0].Path)
	assert.Equal(t, IncludeTextual, fs.Includes[0].Kind)
	assert.Equal(t, "util.scad", fs.Includes[1].Path)
	assert.Equal(t, IncludeUse, fs.Includes[1].Kind)
}

func TestDocCommentAttachment(t *testing.T) {
	src := `// makes a box
// with rounded corners
module box(w) { cube(w); }

x = 1; // the size
`
	fs := extractSource(t, src)

	box := fs.LookupInScope(0, "box", false)
	require.NotNil(t, box)
	assert.Contains(t, box.Doc, "makes a box")
	assert.Contains(t, box.Doc, "with rounded corners")
	assert.NotContains(t, box.Doc, "//")

	x := fs.LookupInScope(0, "x", false)
	require.NotNil(t, x)
	assert.Contains(t, x.Doc, "the size")
}

func TestDocCommentInsideModuleBody(t *testing.T) {
	src := `module box(w) {
  // half the width
  half = w / 2;
  cube(half);
}
`
	fs := extractSource(t, src)

	var half *Declaration
	for i := 1; i < len(fs.Scopes); i++ {
		if d := fs.LookupInScope(i, "half", false); d != nil {
			half = d
		}
	}
	require.NotNil(t, half)
	assert.Contains(t, half.Doc, "half the width")
}

func TestDetachedCommentNotADoc(t *testing.T) {
	src := "// stray comment\n\n\nmodule box() { }\n"
	fs := extractSource(t, src)
	box := fs.LookupInScope(0, "box", false)
	require.NotNil(t, box)
	assert.Empty(t, box.Doc)
}

func TestGroupModuleDetection(t *testing.T) {
	src := `module wrap() { /* group */ children(); }
module plain() { cube(1); }
`
	fs := extractSource(t, src)
	assert.True(t, fs.LookupInScope(0, "wrap", false).Group)
	assert.False(t, fs.LookupInScope(0, "plain", false).Group)
}

func TestSyntaxErrorProducesDiagnostic(t *testing.T) {
	fs := extractSource(t, "= broken;\nx = 1;\n")
	require.NotEmpty(t, fs.Diags)
	assert.Equal(t, "syntax error", fs.Diags[0].Message)
	assert.NotNil(t, fs.LookupInScope(0, "x", false))
}

func TestScrubDoc(t *testing.T) {
	twoLine := ScrubDoc("// hello\n// world", false)
	assert.NotContains(t, twoLine, "//")
	assert.Contains(t, twoLine, "hello")
	assert.Contains(t, twoLine, "world")
	scrubbed := ScrubDoc("/* hello */", false)
	assert.NotContains(t, scrubbed, "/*")
	assert.NotContains(t, scrubbed, "*/")

	builtin := ScrubDoc("/*\n**text** stays\n*/", true)
	assert.Contains(t, builtin, "**text** stays")
}
