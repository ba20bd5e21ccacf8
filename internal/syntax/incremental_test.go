package syntax

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// applyEdit replaces text[start:oldEnd] with repl and returns the new text
// plus the corresponding Edit.
func applyEdit(text []byte, start, oldEnd uint32, repl string) ([]byte, Edit) {
	out := make([]byte, 0, len(text)+len(repl))
	out = append(out, text[:start]...)
	out = append(out, repl...)
	out = append(out, text[oldEnd:]...)

	newEnd := start + uint32(len(repl))
	return out, Edit{
		StartByte:   start,
		OldEndByte:  oldEnd,
		NewEndByte:  newEnd,
		StartPoint:  ByteToPoint(text, start),
		OldEndPoint: ByteToPoint(text, oldEnd),
		NewEndPoint: ByteToPoint(out, newEnd),
	}
}

func requireSameTree(t *testing.T, want, got *Node) {
	t.Helper()
	require.Equal(t, want.Kind, got.Kind)
	require.Equal(t, want.Span, got.Span, "span mismatch on %s", want.Kind)
	require.Equal(t, want.Missing, got.Missing)
	require.Equal(t, len(want.Children), len(got.Children), "child count mismatch on %s", want.Kind)
	for i := range want.Children {
		requireSameTree(t, want.Children[i], got.Children[i])
	}
}

const incrementalBase = `// shapes
module box(w, h = 2) {
    cube([w, h, 1]);
}

function area(w, h) = w * h;

size = 10;
box(size);

module lid(d) {
    cylinder(d = d);
}
`

func checkIncremental(t *testing.T, base string, start, oldEnd uint32, repl string) {
	t.Helper()
	p := NewProvider()
	old, err := p.Parse([]byte(base))
	require.NoError(t, err)

	newText, edit := applyEdit([]byte(base), start, oldEnd, repl)

	incremental, err := p.Reparse(old, newText, edit)
	require.NoError(t, err)

	full, err := p.Parse(newText)
	require.NoError(t, err)

	requireSameTree(t, full.Root, incremental.Root)
}

func TestReparseMatchesFullParse(t *testing.T) {
	src := incrementalBase
	find := func(needle string) uint32 {
		for i := 0; i+len(needle) <= len(src); i++ {
			if src[i:i+len(needle)] == needle {
				return uint32(i)
			}
		}
		t.Fatalf("needle %q not found", needle)
		return 0
	}

	t.Run("edit inside function body", func(t *testing.T) {
		at := find("w * h")
		checkIncremental(t, src, at, at+5, "w * h * 2")
	})

	t.Run("rename a declaration", func(t *testing.T) {
		at := find("module lid")
		checkIncremental(t, src, at+7, at+10, "cap")
	})

	t.Run("insert new statement", func(t *testing.T) {
		at := find("size = 10;")
		checkIncremental(t, src, at, at, "depth = 4;\n")
	})

	t.Run("delete a statement", func(t *testing.T) {
		at := find("box(size);")
		checkIncremental(t, src, at, at+10, "")
	})

	t.Run("edit creating a syntax error", func(t *testing.T) {
		at := find("cube([w, h, 1]);")
		checkIncremental(t, src, at, at+4, "cube([w,")
	})

	t.Run("edit at start of file", func(t *testing.T) {
		checkIncremental(t, src, 0, 0, "use <lib.scad>\n")
	})

	t.Run("edit at end of file", func(t *testing.T) {
		end := uint32(len(src))
		checkIncremental(t, src, end, end, "top = 1;\n")
	})

	t.Run("replace everything", func(t *testing.T) {
		checkIncremental(t, src, 0, uint32(len(src)), "x = 1;\n")
	})
}

func TestReparseUnterminatedCommentFallsBack(t *testing.T) {
	src := "a = 1;\nb = 2;\nc = 3;\n"
	at := uint32(7)
	checkIncremental(t, src, at, at, "/* open comment\n")
}

func TestReparseNilOldTree(t *testing.T) {
	p := NewProvider()
	text := []byte("x = 1;\n")
	tree, err := p.Reparse(nil, text, Edit{})
	require.NoError(t, err)
	require.Len(t, tree.Root.Children, 1)
}
