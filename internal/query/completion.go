package query

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"scadls/internal/core/errors"
	"scadls/internal/lang"
	"scadls/internal/syntax"
	"scadls/internal/workspace"
)

// CompletionItem is one completion entry, transport-agnostic. File items
// complete include paths; the rest complete symbols.
type CompletionItem struct {
	Label      string
	Name       string
	InsertText string

	// TabStops marks InsertText as a snippet with ${n:...} placeholders.
	TabStops bool

	Kind lang.DeclKind
	Doc  string
	File bool
}

// Completion lists what can be typed at pos: include path candidates inside
// a directive, otherwise every visible symbol plus the enclosing call's
// parameters.
func (e *Engine) Completion(snap *workspace.Snapshot, path string, pos syntax.Point) ([]CompletionItem, error) {
	defer observe("completion")()

	entry := snap.Entry(path)
	if entry == nil || entry.Tree == nil {
		return nil, errors.Newf(errors.CodeNotFound, "unknown document %s", path)
	}

	// The cursor sits after the typed character; look one position back so
	// the leaf under it is the token being completed.
	probe := pos
	if probe.Column > 0 {
		probe.Column--
	} else if probe.Row > 0 {
		probe.Row--
	}

	leaf := entry.Tree.LeafAt(probe)
	if leaf != nil && e.inIncludeDirective(entry, probe, leaf) {
		return e.includeItems(snap, entry, leaf), nil
	}

	prefix := ""
	if leaf != nil && (leaf.Kind == syntax.KindIdentifier || leaf.Kind == syntax.KindSpecialVariable) {
		prefix = leaf.Content(entry.Text)
	}

	decls := snap.VisibleNames(path, pos)
	decls = append(decls, e.enclosingCallParams(snap, entry, probe)...)

	lowered := strings.ToLower(prefix)
	type scored struct {
		decl  lang.Declaration
		score int
		rank  int
	}
	var matches []scored
	for _, d := range decls {
		if lowered != "" && !strings.HasPrefix(strings.ToLower(d.Name), lowered) {
			continue
		}
		score := 1
		if prefix == "" || strings.HasPrefix(d.Name, prefix) {
			score = 0
		}
		rank := 1
		switch {
		case d.Builtin:
			rank = 2
		case d.Path == path:
			rank = 0
		}
		matches = append(matches, scored{d, score, rank})
	}
	// Exact-case prefix matches first, then locality (local file, included
	// files, builtins), then name.
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score < matches[j].score
		}
		if matches[i].rank != matches[j].rank {
			return matches[i].rank < matches[j].rank
		}
		return matches[i].decl.Name < matches[j].decl.Name
	})

	includeDefaults := snap.Config.DefaultParam
	items := make([]CompletionItem, 0, len(matches))
	for _, m := range matches {
		d := m.decl
		items = append(items, CompletionItem{
			Label:      lang.Label(&d),
			Name:       d.Name,
			InsertText: lang.Snippet(&d, includeDefaults),
			TabStops:   d.Kind != lang.DeclVariable,
			Kind:       d.Kind,
			Doc:        d.Doc,
		})
	}
	return items, nil
}

func (e *Engine) inIncludeDirective(entry *workspace.FileEntry, pos syntax.Point, leaf *syntax.Node) bool {
	if leaf.Kind == syntax.KindIncludePath {
		return true
	}
	for _, anc := range entry.Tree.Ancestors(pos) {
		if anc.IsIncludeStatement() {
			return true
		}
	}
	return false
}

// enclosingCallParams adds the parameters of the call surrounding an
// argument position, so `cylinder(h` offers h, r, r1, r2.
func (e *Engine) enclosingCallParams(snap *workspace.Snapshot, entry *workspace.FileEntry, pos syntax.Point) []lang.Declaration {
	ancestors := entry.Tree.Ancestors(pos)
	for i := len(ancestors) - 1; i >= 0; i-- {
		anc := ancestors[i]
		if anc.Kind != syntax.KindModuleCall && anc.Kind != syntax.KindFunctionCall {
			continue
		}
		name := anc.ChildByField("name")
		if name == nil {
			continue
		}
		target := snap.Resolve(entry.Path, name.Content(entry.Text), pos, true)
		return paramSymbols(target)
	}
	return nil
}

// includeItems completes the path inside include <...> or use <...> from
// the including file's directory and every library root. Directories get a
// trailing slash so the client keeps completing into them.
func (e *Engine) includeItems(snap *workspace.Snapshot, entry *workspace.FileEntry, leaf *syntax.Node) []CompletionItem {
	partial := leaf.Content(entry.Text)
	partial = strings.TrimLeft(partial, "<\n")
	partial = strings.TrimRight(partial, ">\n")

	dir := partial
	prefix := ""
	if !strings.HasSuffix(partial, "/") {
		if idx := strings.LastIndex(partial, "/"); idx >= 0 {
			dir = partial[:idx+1]
			prefix = partial[idx+1:]
		} else {
			dir = ""
			prefix = partial
		}
	}

	roots := []string{filepath.Dir(entry.Path)}
	roots = append(roots, snap.Config.LibraryLocations()...)

	lowered := strings.ToLower(prefix)
	seen := make(map[string]bool)
	var items []CompletionItem
	for _, root := range roots {
		dirPath := filepath.Join(root, dir)
		listing, err := os.ReadDir(dirPath)
		if err != nil {
			continue
		}
		for _, f := range listing {
			name := f.Name()
			if !strings.HasPrefix(strings.ToLower(name), lowered) {
				continue
			}
			if f.IsDir() {
				name += "/"
			}
			if seen[name] {
				continue
			}
			seen[name] = true
			items = append(items, CompletionItem{
				Label:      name,
				Name:       partial,
				InsertText: name,
				File:       true,
			})
		}
	}
	return items
}
