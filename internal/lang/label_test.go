package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func fooDecl() *Declaration {
	return &Declaration{
		Name: "foo",
		Kind: DeclModule,
		Params: []Param{
			{Name: "x"},
			{Name: "y", Default: "2"},
		},
	}
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "foo(x, y=2)", Label(fooDecl()))
	assert.Equal(t, "size", Label(&Declaration{Name: "size", Kind: DeclVariable}))
	assert.Equal(t, "bar(n)", Label(&Declaration{
		Name: "bar", Kind: DeclFunction, Params: []Param{{Name: "n"}},
	}))
}

func TestSnippetOmitsDefaultsByDefault(t *testing.T) {
	assert.Equal(t, "foo(${1:x});$0", Snippet(fooDecl(), false))
}

func TestSnippetWithDefaults(t *testing.T) {
	assert.Equal(t, "foo(${1:x}, y = 2);$0", Snippet(fooDecl(), true))
}

func TestSnippetFunction(t *testing.T) {
	d := &Declaration{Name: "area", Kind: DeclFunction, Params: []Param{{Name: "w"}, {Name: "h"}}}
	assert.Equal(t, "area(${1:w}, ${2:h})$0", Snippet(d, false))
}

func TestSnippetGroupModule(t *testing.T) {
	d := &Declaration{Name: "wrap", Kind: DeclModule, Group: true}
	assert.Equal(t, "wrap() $0", Snippet(d, false))
}

func TestSnippetKeyword(t *testing.T) {
	d := &Declaration{Name: "if", Kind: DeclKeyword, Snippet: "if (${1:COND}) {\n  $0\n}"}
	assert.Equal(t, "if (${1:COND}) {\n  $0\n}", Snippet(d, false))
}

func TestHoverUserModule(t *testing.T) {
	d := fooDecl()
	d.Doc = "makes a foo"
	h := Hover(d)
	assert.Contains(t, h, "```scad\nmodule foo(x, y=2)\n```")
	assert.Contains(t, h, "---")
	assert.Contains(t, h, "<pre>\nmakes a foo\n</pre>")
}

func TestHoverBuiltin(t *testing.T) {
	d := &Declaration{Name: "cube", Kind: DeclModule, Builtin: true, Doc: "a **cube**"}
	h := Hover(d)
	assert.Contains(t, h, "a **cube**")
	assert.NotContains(t, h, "<pre>")
}

func TestHoverFunctionNoDoc(t *testing.T) {
	d := &Declaration{Name: "bar", Kind: DeclFunction, Params: []Param{{Name: "n"}}}
	assert.Equal(t, "```scad\nfunction bar(n)\n```", Hover(d))
}
