// # internal/config/config.go
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/BurntSushi/toml"
)

type Config struct {
	// SearchPaths are library roots consulted when resolving include/use
	// directives, in order. Entries are tilde- and env-expanded.
	SearchPaths []string `toml:"search_paths"`

	// IncludeDepth bounds transitive visibility through chains of
	// include/use directives.
	IncludeDepth int `toml:"include_depth"`

	// DefaultParam controls whether parameters carrying defaults appear in
	// completion snippets.
	DefaultParam bool `toml:"default_param"`

	Indent string `toml:"indent"`

	// Builtin overrides the bundled builtin declaration file.
	Builtin string `toml:"builtin"`

	// GrammarPath points at a tree-sitter openscad shared object. When
	// empty the built-in parser is used.
	GrammarPath string `toml:"grammar_path"`

	Format  Format  `toml:"format"`
	Exclude Exclude `toml:"exclude"`
	Cache   Cache   `toml:"cache"`
	Observe Observe `toml:"observability"`
}

type Format struct {
	Exe       string `toml:"exe"`
	QueryFile string `toml:"query_file"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Cache struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type Observe struct {
	MetricsAddr  string `toml:"metrics_addr"`
	OTLPEndpoint string `toml:"otlp_endpoint"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	return &cfg, nil
}

// Default returns the configuration used when no config file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.IncludeDepth <= 0 {
		c.IncludeDepth = 8
	}
	if c.Indent == "" {
		c.Indent = "    "
	}
	if c.Format.Exe == "" {
		c.Format.Exe = "topiary"
	}
	if len(c.Exclude.Dirs) == 0 {
		c.Exclude.Dirs = []string{".git"}
	}
}

// LibraryLocations returns the effective ordered search roots: configured
// paths first, then OPENSCADPATH entries, then the per-OS user and
// installation library directories. Missing directories are dropped.
func (c *Config) LibraryLocations() []string {
	var roots []string
	roots = append(roots, c.SearchPaths...)
	if env := os.Getenv("OPENSCADPATH"); env != "" {
		roots = append(roots, filepath.SplitList(env)...)
	}
	if p := userLibraryLocation(); p != "" {
		roots = append(roots, p)
	}
	if p := installationLibraryLocation(); p != "" {
		roots = append(roots, p)
	}

	seen := make(map[string]bool)
	out := make([]string, 0, len(roots))
	for _, root := range roots {
		root = ExpandPath(root)
		if root == "" || seen[root] {
			continue
		}
		if info, err := os.Stat(root); err != nil || !info.IsDir() {
			continue
		}
		seen[root] = true
		out = append(out, root)
	}
	return out
}

// ExpandPath expands a leading tilde and any environment references.
func ExpandPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return os.ExpandEnv(p)
}

func userLibraryLocation() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(home, "Documents", "OpenSCAD", "libraries")
	case "darwin":
		return filepath.Join(home, "Documents", "OpenSCAD", "libraries")
	default:
		return filepath.Join(home, ".local", "share", "OpenSCAD", "libraries")
	}
}

func installationLibraryLocation() string {
	switch runtime.GOOS {
	case "windows":
		return `C:\Program Files\OpenSCAD\libraries`
	case "darwin":
		return "/Applications/OpenSCAD.app/Contents/Resources/libraries"
	default:
		return "/usr/share/openscad/libraries"
	}
}

// Store holds the live configuration. Editors push settings updates at any
// time; readers must observe either the old or the new config, never a mix,
// so updates swap the whole pointer.
type Store struct {
	current atomic.Pointer[Config]
}

func NewStore(cfg *Config) *Store {
	s := &Store{}
	if cfg == nil {
		cfg = Default()
	}
	s.current.Store(cfg)
	return s
}

func (s *Store) Get() *Config {
	return s.current.Load()
}

func (s *Store) Set(cfg *Config) {
	cfg.applyDefaults()
	s.current.Store(cfg)
}

// Settings is the shape of the "openscad" section editors send through
// workspace/didChangeConfiguration. Pointer fields distinguish "absent"
// from zero values so partial updates only touch what the client sent.
type Settings struct {
	SearchPaths  *string `json:"searchPaths"`
	DefaultParam *bool   `json:"defaultParam"`
	Indent       *string `json:"indent"`
	Builtin      *string `json:"builtin"`
	QueryFile    *string `json:"queryFile"`
	IncludeDepth *int    `json:"includeDepth"`
	FmtExe       *string `json:"fmtExe"`
}

// Apply merges client settings into a copy of the current config and swaps
// it in. Returns the new effective config.
func (s *Store) Apply(settings Settings) *Config {
	next := *s.Get()
	if settings.SearchPaths != nil {
		next.SearchPaths = filepath.SplitList(*settings.SearchPaths)
	}
	if settings.DefaultParam != nil {
		next.DefaultParam = *settings.DefaultParam
	}
	if settings.Indent != nil {
		next.Indent = *settings.Indent
	}
	if settings.Builtin != nil {
		next.Builtin = *settings.Builtin
	}
	if settings.QueryFile != nil {
		next.Format.QueryFile = *settings.QueryFile
	}
	if settings.FmtExe != nil {
		next.Format.Exe = *settings.FmtExe
	}
	if settings.IncludeDepth != nil && *settings.IncludeDepth > 0 {
		next.IncludeDepth = *settings.IncludeDepth
	}
	s.Set(&next)
	return s.Get()
}
