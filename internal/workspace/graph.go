package workspace

import (
	"os"
	"path/filepath"
	"sort"

	"scadls/internal/lang"
	"scadls/internal/syntax"
)

// ResolveIncludePath maps a directive path to an absolute file path. The
// directory of the including file wins over library roots, mirroring how
// the renderer itself searches.
func ResolveIncludePath(fromFile, incPath string, roots []string) string {
	if incPath == "" {
		return ""
	}
	candidates := make([]string, 0, len(roots)+1)
	candidates = append(candidates, filepath.Dir(fromFile))
	candidates = append(candidates, roots...)

	for _, dir := range candidates {
		full := filepath.Join(dir, incPath)
		if info, err := os.Stat(full); err == nil && !info.IsDir() {
			return full
		}
	}
	return ""
}

// includeEdge is one resolved hop in the include graph.
type includeEdge struct {
	Target string
	Kind   lang.IncludeKind
}

func (s *Snapshot) edges(entry *FileEntry) []includeEdge {
	if entry == nil || entry.Syms == nil {
		return nil
	}
	roots := s.Config.LibraryLocations()
	out := make([]includeEdge, 0, len(entry.Syms.Includes))
	for _, inc := range entry.Syms.Includes {
		target := ResolveIncludePath(entry.Path, inc.Path, roots)
		if target == "" {
			continue
		}
		out = append(out, includeEdge{Target: target, Kind: inc.Kind})
	}
	return out
}

// visit walks the include closure of path in directive order, breadth
// first. Textual includes re-export what they pull in; use hops narrow
// visibility to callables and are not followed from included files.
func (s *Snapshot) visit(path string, fn func(entry *FileEntry, callableOnly bool) bool) {
	origin := s.Entry(path)
	if origin == nil {
		return
	}
	depth := s.Config.IncludeDepth
	if depth <= 0 {
		depth = 1
	}

	type item struct {
		path         string
		callableOnly bool
		depth        int
	}
	visited := map[string]bool{path: true}
	var queue []item
	for _, edge := range s.edges(origin) {
		queue = append(queue, item{edge.Target, edge.Kind == lang.IncludeUse, 1})
	}

	for len(queue) > 0 {
		it := queue[0]
		queue = queue[1:]
		if visited[it.path] || it.depth > depth {
			continue
		}
		visited[it.path] = true

		entry := s.Entry(it.path)
		if entry == nil || entry.Syms == nil {
			continue
		}
		if !fn(entry, it.callableOnly) {
			return
		}
		for _, edge := range s.edges(entry) {
			// A use directive inside an included file exports nothing
			// to us; only textual includes chain.
			if edge.Kind == lang.IncludeUse {
				continue
			}
			queue = append(queue, item{edge.Target, it.callableOnly, it.depth + 1})
		}
	}
}

// Resolve finds the declaration a name at pos refers to: innermost scope
// outward, then the file scope, then included files in directive order,
// then builtins.
func (s *Snapshot) Resolve(path, name string, pos syntax.Point, callOnly bool) *lang.Declaration {
	entry := s.Entry(path)
	if entry == nil || entry.Syms == nil {
		return nil
	}

	scope := entry.Syms.ScopeAt(pos)
	if d := entry.Syms.Lookup(scope, name, callOnly); d != nil {
		return d
	}

	var found *lang.Declaration
	s.visit(path, func(inc *FileEntry, callableOnly bool) bool {
		effectiveCallOnly := callOnly || callableOnly
		if d := inc.Syms.LookupInScope(0, name, effectiveCallOnly); d != nil {
			found = d
			return false
		}
		return true
	})
	if found != nil {
		return found
	}

	if s.Builtins != nil {
		if d := s.Builtins.Lookup(name, callOnly); d != nil {
			return d
		}
	}
	return nil
}

// VisibleNames returns every declaration visible at pos, ordered local
// scopes first, then includes in directive order, then builtins. Shadowed
// names appear once.
func (s *Snapshot) VisibleNames(path string, pos syntax.Point) []lang.Declaration {
	entry := s.Entry(path)
	if entry == nil || entry.Syms == nil {
		return nil
	}

	seen := make(map[string]bool)
	var out []lang.Declaration

	add := func(decls []lang.Declaration, callableOnly bool) {
		for _, d := range decls {
			if callableOnly && !d.Kind.Callable() {
				continue
			}
			if seen[d.Name] {
				continue
			}
			seen[d.Name] = true
			out = append(out, d)
		}
	}

	scope := entry.Syms.ScopeAt(pos)
	add(entry.Syms.VisibleFrom(scope), false)

	s.visit(path, func(inc *FileEntry, callableOnly bool) bool {
		add(inc.Decls(), callableOnly)
		return true
	})

	if s.Builtins != nil {
		add(s.Builtins.All(), false)
	}
	return out
}

// SameDecl reports whether two declarations are the same entity.
func SameDecl(a, b *lang.Declaration) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Path == b.Path && a.NameSpan == b.NameSpan && a.Name == b.Name
}

// Location is a reference or declaration site.
type Location struct {
	Path string
	Span syntax.Range
}

// References finds every occurrence resolving to the declaration under
// pos, declaration site included. Only indexed files are scanned.
func (s *Snapshot) References(path, name string, pos syntax.Point) []Location {
	target := s.Resolve(path, name, pos, false)
	if target == nil {
		return nil
	}

	var out []Location
	if !target.Builtin {
		out = append(out, Location{Path: target.Path, Span: target.NameSpan})
	}

	paths := make([]string, 0, len(s.Files))
	for filePath := range s.Files {
		paths = append(paths, filePath)
	}
	sort.Strings(paths)

	for _, filePath := range paths {
		entry := s.Files[filePath]
		if entry.Syms == nil {
			continue
		}
		for _, ref := range entry.Syms.Refs {
			if ref.Name != name {
				continue
			}
			resolved := s.Resolve(filePath, name, ref.Span.StartPoint, ref.Call)
			if SameDecl(resolved, target) {
				out = append(out, Location{Path: filePath, Span: ref.Span})
			}
		}
	}
	return out
}
