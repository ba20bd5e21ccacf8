package workspace

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// Scanner walks library roots for scad files, honoring the configured
// exclude patterns. Patterns match base names, not full paths.
type Scanner struct {
	dirGlobs  []glob.Glob
	fileGlobs []glob.Glob
}

func NewScanner(excludeDirs, excludeFiles []string) (*Scanner, error) {
	s := &Scanner{}
	for _, p := range excludeDirs {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude dir pattern %q: %w", p, err)
		}
		s.dirGlobs = append(s.dirGlobs, g)
	}
	for _, p := range excludeFiles {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude file pattern %q: %w", p, err)
		}
		s.fileGlobs = append(s.fileGlobs, g)
	}
	return s, nil
}

// ScanDirectories collects every scad file under the roots.
func (s *Scanner) ScanDirectories(roots []string) ([]string, error) {
	var files []string
	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			base := filepath.Base(path)
			if d.IsDir() {
				for _, g := range s.dirGlobs {
					if g.Match(base) {
						return filepath.SkipDir
					}
				}
				return nil
			}
			if !IsScadFile(path) {
				return nil
			}
			for _, g := range s.fileGlobs {
				if g.Match(base) {
					return nil
				}
			}
			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func IsScadFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".scad")
}

// WarmUp pre-indexes every library file so first queries do not pay the
// parse cost. Failures are non-fatal; the file will be retried when an
// include actually resolves to it.
func (s *Scanner) WarmUp(w *Workspace, roots []string) (int, error) {
	files, err := s.ScanDirectories(roots)
	if err != nil {
		return 0, err
	}
	loaded := 0
	for _, path := range files {
		if _, err := w.Load(path); err == nil {
			loaded++
		}
	}
	return loaded, nil
}
