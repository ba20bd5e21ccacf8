// # internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	content := `
search_paths = ["./lib"]
include_depth = 4
default_param = true
indent = "  "

[format]
exe = "topiary"
query_file = "./openscad.scm"

[exclude]
dirs = [".git", "build"]

[cache]
enabled = true
path = "./cache.db"
`
	tmpfile, err := os.CreateTemp("", "config*.toml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmpfile.Name())

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpfile.Name())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(cfg.SearchPaths) != 1 || cfg.SearchPaths[0] != "./lib" {
		t.Errorf("Unexpected SearchPaths: %v", cfg.SearchPaths)
	}
	if cfg.IncludeDepth != 4 {
		t.Errorf("Expected IncludeDepth 4, got %d", cfg.IncludeDepth)
	}
	if !cfg.DefaultParam {
		t.Error("Expected DefaultParam true")
	}
	if cfg.Indent != "  " {
		t.Errorf("Expected two-space indent, got %q", cfg.Indent)
	}
	if cfg.Format.QueryFile != "./openscad.scm" {
		t.Errorf("Expected query_file ./openscad.scm, got %s", cfg.Format.QueryFile)
	}
	if !cfg.Cache.Enabled || cfg.Cache.Path != "./cache.db" {
		t.Errorf("Unexpected cache config: %+v", cfg.Cache)
	}
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.IncludeDepth != 8 {
		t.Errorf("Expected IncludeDepth 8, got %d", cfg.IncludeDepth)
	}
	if cfg.Indent != "    " {
		t.Errorf("Expected four-space indent, got %q", cfg.Indent)
	}
	if cfg.Format.Exe != "topiary" {
		t.Errorf("Expected topiary formatter, got %s", cfg.Format.Exe)
	}
	if len(cfg.Exclude.Dirs) == 0 {
		t.Error("Expected default exclude dirs")
	}
}

func TestLibraryLocationsUsesOpenscadpath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("OPENSCADPATH", dir)

	roots := Default().LibraryLocations()
	found := false
	for _, root := range roots {
		if root == dir {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected %s among roots %v", dir, roots)
	}
}

func TestLibraryLocationsDropsMissing(t *testing.T) {
	t.Setenv("OPENSCADPATH", "")
	cfg := Default()
	cfg.SearchPaths = []string{filepath.Join(t.TempDir(), "does-not-exist")}

	for _, root := range cfg.LibraryLocations() {
		if filepath.Base(root) == "does-not-exist" {
			t.Errorf("Missing directory survived: %s", root)
		}
	}
}

func TestStoreApplyPartialUpdate(t *testing.T) {
	store := NewStore(Default())
	indent := "\t"
	depth := 3

	cfg := store.Apply(Settings{Indent: &indent, IncludeDepth: &depth})
	if cfg.Indent != "\t" {
		t.Errorf("Expected tab indent, got %q", cfg.Indent)
	}
	if cfg.IncludeDepth != 3 {
		t.Errorf("Expected IncludeDepth 3, got %d", cfg.IncludeDepth)
	}
	if cfg.Format.Exe != "topiary" {
		t.Errorf("Untouched field changed: %s", cfg.Format.Exe)
	}

	bad := 0
	cfg = store.Apply(Settings{IncludeDepth: &bad})
	if cfg.IncludeDepth != 3 {
		t.Errorf("Non-positive depth should be ignored, got %d", cfg.IncludeDepth)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	if got := ExpandPath("~/libs"); got != filepath.Join(home, "libs") {
		t.Errorf("Expected %s, got %s", filepath.Join(home, "libs"), got)
	}
	if got := ExpandPath(""); got != "" {
		t.Errorf("Expected empty, got %q", got)
	}
}
