package query

import (
	"regexp"

	"scadls/internal/core/errors"
	"scadls/internal/syntax"
	"scadls/internal/workspace"
)

var identRe = regexp.MustCompile(`^\$?[A-Za-z_][A-Za-z0-9_]*$`)

// Edit is one text replacement within a file.
type Edit struct {
	Span    syntax.Range
	NewText string
}

// Rename rewrites every occurrence of the symbol at pos to newName and
// returns the edits grouped by file. The declaration site is included.
// Builtins and invalid identifiers are rejected.
func (e *Engine) Rename(snap *workspace.Snapshot, path string, pos syntax.Point, newName string) (map[string][]Edit, error) {
	defer observe("rename")()

	if !identRe.MatchString(newName) {
		return nil, errors.Newf(errors.CodeInvalidRename, "%q is not a valid identifier", newName)
	}

	entry := snap.Entry(path)
	if entry == nil || entry.Tree == nil {
		return nil, errors.Newf(errors.CodeNotFound, "unknown document %s", path)
	}

	leaf := identifierAt(entry, pos)
	if leaf == nil {
		return nil, errors.New(errors.CodeInvalidRename, "no identifier at position")
	}

	name := leaf.Content(entry.Text)
	target := snap.Resolve(path, name, pos, false)
	if target == nil {
		err := errors.Newf(errors.CodeNotFound, "cannot resolve %s", name)
		return nil, errors.AddContext(err, errors.CtxSymbol, name)
	}
	if target.Builtin {
		return nil, errors.Newf(errors.CodeInvalidRename, "%s is a builtin", name)
	}

	changes := make(map[string][]Edit)
	for _, loc := range snap.References(path, name, pos) {
		changes[loc.Path] = append(changes[loc.Path], Edit{Span: loc.Span, NewText: newName})
	}
	return changes, nil
}
