package query

import (
	"strings"

	"scadls/internal/core/errors"
	"scadls/internal/syntax"
	"scadls/internal/workspace"
)

// Definition locates the declaration of the symbol at pos. On an include
// path it jumps to the top of the included file. Bundled builtins have no
// source location and yield nothing.
func (e *Engine) Definition(snap *workspace.Snapshot, path string, pos syntax.Point) ([]workspace.Location, error) {
	defer observe("definition")()

	entry := snap.Entry(path)
	if entry == nil || entry.Tree == nil {
		return nil, errors.Newf(errors.CodeNotFound, "unknown document %s", path)
	}

	leaf := entry.Tree.LeafAt(pos)
	if leaf == nil {
		return nil, nil
	}

	if leaf.Kind == syntax.KindIncludePath {
		inc := strings.TrimLeft(leaf.Content(entry.Text), "<\n")
		inc = strings.TrimRight(inc, ">\n")
		target := workspace.ResolveIncludePath(path, inc, snap.Config.LibraryLocations())
		if target == "" {
			return nil, nil
		}
		return []workspace.Location{{Path: target}}, nil
	}

	if leaf.Kind != syntax.KindIdentifier && leaf.Kind != syntax.KindSpecialVariable {
		return nil, nil
	}

	name := leaf.Content(entry.Text)
	callOnly := callOnlyAt(entry, pos, leaf)
	d := snap.Resolve(path, name, pos, callOnly)
	if d == nil && callOnly {
		d = snap.Resolve(path, name, pos, false)
	}
	if d == nil || d.Path == "" {
		return nil, nil
	}
	return []workspace.Location{{Path: d.Path, Span: d.NameSpan}}, nil
}
