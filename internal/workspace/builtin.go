package workspace

import (
	_ "embed"
	"os"

	"scadls/internal/core/errors"
	"scadls/internal/lang"
	"scadls/internal/syntax"
)

//go:embed builtins.scad
var bundledBuiltins []byte

// BuiltinTable holds the lowest-priority declarations: builtin modules,
// functions, special variables and keyword snippets. Tables are immutable;
// a builtin file change builds a new table and swaps it in atomically.
type BuiltinTable struct {
	decls   []lang.Declaration
	byName  map[string][]int
	sourced bool
}

func emptyBuiltinTable() *BuiltinTable {
	return &BuiltinTable{byName: map[string][]int{}}
}

// LoadBuiltins parses the builtin declaration file. With an override path
// the declarations keep their file location so definition jumps land in
// the user's file; the bundled table has no locations.
func LoadBuiltins(provider syntax.Provider, overridePath string) (*BuiltinTable, error) {
	text := bundledBuiltins
	path := ""
	sourced := false

	if overridePath != "" {
		data, err := os.ReadFile(overridePath)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeNotFound, "cannot read builtin file")
		}
		text = data
		path = overridePath
		sourced = true
	}

	tree, err := provider.Parse(text)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeParseError, "builtin file parse failed")
	}
	syms := lang.ExtractBuiltin(tree, text, path)

	t := &BuiltinTable{byName: map[string][]int{}, sourced: sourced}
	if fs := syms.FileScope(); fs != nil {
		for _, d := range fs.Decls {
			if !sourced {
				d.Path = ""
			}
			t.add(d)
		}
	}
	for _, kw := range lang.Keywords {
		t.add(kw)
	}
	return t, nil
}

func (t *BuiltinTable) add(d lang.Declaration) {
	t.byName[d.Name] = append(t.byName[d.Name], len(t.decls))
	t.decls = append(t.decls, d)
}

// Lookup returns the builtin declaration for name, preferring callables
// when callOnly is set. Keywords never satisfy resolution.
func (t *BuiltinTable) Lookup(name string, callOnly bool) *lang.Declaration {
	for _, idx := range t.byName[name] {
		d := &t.decls[idx]
		if d.Kind == lang.DeclKeyword {
			continue
		}
		if callOnly && !d.Kind.Callable() {
			continue
		}
		return d
	}
	return nil
}

// All returns every entry, keyword snippets included.
func (t *BuiltinTable) All() []lang.Declaration {
	return t.decls
}

// Len reports the table size; zero means builtins failed to load.
func (t *BuiltinTable) Len() int {
	return len(t.decls)
}
