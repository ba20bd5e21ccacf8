package workspace

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"scadls/internal/config"
	"scadls/internal/core/errors"
	"scadls/internal/lang"
	"scadls/internal/shared/observability"
	"scadls/internal/syntax"
)

// Workspace is the single writer for document and index state. All
// mutations go through it; readers take Snapshots.
type Workspace struct {
	mu       sync.RWMutex
	provider syntax.Provider
	cfg      *config.Store
	cache    *Cache
	log      *slog.Logger

	files      map[string]*FileEntry
	generation atomic.Uint64
	builtins   atomic.Pointer[BuiltinTable]
}

func New(provider syntax.Provider, cfg *config.Store, cache *Cache, log *slog.Logger) *Workspace {
	if log == nil {
		log = slog.Default()
	}
	w := &Workspace{
		provider: provider,
		cfg:      cfg,
		cache:    cache,
		log:      log,
		files:    make(map[string]*FileEntry),
	}
	w.builtins.Store(emptyBuiltinTable())
	return w
}

// Generation increments on every mutation. Long-running background work
// records it before starting and revalidates before applying results.
func (w *Workspace) Generation() uint64 {
	return w.generation.Load()
}

func (w *Workspace) bump() {
	w.generation.Add(1)
}

// SetBuiltins swaps the builtin table. Readers see either the old or the
// new table, never a mix.
func (w *Workspace) SetBuiltins(t *BuiltinTable) {
	if t == nil {
		t = emptyBuiltinTable()
	}
	w.builtins.Store(t)
	w.bump()
}

func (w *Workspace) Builtins() *BuiltinTable {
	return w.builtins.Load()
}

// Open registers an editor-owned document. Re-opening an already open
// document is a no-op, matching editor retry behavior.
func (w *Workspace) Open(path string, text string, version int32) *FileEntry {
	w.mu.Lock()
	defer w.mu.Unlock()

	if existing, ok := w.files[path]; ok && existing.Open {
		return existing
	}

	entry := w.index(path, []byte(text), version, true, false)
	w.files[path] = entry
	w.loadIncludes(entry, w.cfg.Get().IncludeDepth, map[string]bool{path: true})
	w.bump()
	observability.DocumentsOpen.Inc()
	return entry
}

// Change applies content changes at the given version. Stale versions are
// rejected so an out-of-order edit can never clobber newer text.
func (w *Workspace) Change(path string, version int32, changes []Change) (*FileEntry, error) {
	_, span := observability.Tracer.Start(context.Background(), "workspace.change")
	defer span.End()

	w.mu.Lock()
	defer w.mu.Unlock()

	current, ok := w.files[path]
	if !ok {
		return nil, errors.Newf(errors.CodeNotFound, "unknown document %s", path)
	}
	if version <= current.Version {
		err := errors.Newf(errors.CodeVersionConflict,
			"stale edit for %s: version %d <= %d", path, version, current.Version)
		return nil, errors.AddContext(err, errors.CtxVersion, version)
	}

	text := current.Text
	tree := current.Tree

	for _, change := range changes {
		if change.Full {
			text = []byte(change.Text)
			tree = nil
			continue
		}
		startByte := syntax.PointToByte(text, change.Start)
		endByte := syntax.PointToByte(text, change.End)
		if endByte < startByte {
			endByte = startByte
		}

		next := make([]byte, 0, len(text)+len(change.Text))
		next = append(next, text[:startByte]...)
		next = append(next, change.Text...)
		next = append(next, text[endByte:]...)

		newEnd := startByte + uint32(len(change.Text))
		edit := syntax.Edit{
			StartByte:   startByte,
			OldEndByte:  endByte,
			NewEndByte:  newEnd,
			StartPoint:  change.Start,
			OldEndPoint: change.End,
			NewEndPoint: syntax.ByteToPoint(next, newEnd),
		}
		if tree != nil {
			reparsed, err := w.provider.Reparse(tree, next, edit)
			if err != nil {
				w.log.Warn("incremental reparse failed", "path", path, "error", err)
				tree = nil
			} else {
				tree = reparsed
			}
		}
		text = next
	}

	var entry *FileEntry
	if tree != nil {
		entry = w.publish(path, text, tree, version, true, false)
	} else {
		entry = w.index(path, text, version, true, false)
	}
	w.files[path] = entry
	w.loadIncludes(entry, w.cfg.Get().IncludeDepth, map[string]bool{path: true})
	w.bump()
	observability.DocumentChanges.Inc()
	return entry, nil
}

// Close releases an editor document. The entry stays as a disk-backed
// library file while other files still include it.
func (w *Workspace) Close(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	entry, ok := w.files[path]
	if !ok {
		return
	}
	if w.included(path) {
		closed := *entry
		closed.Open = false
		closed.FromDisk = true
		w.files[path] = &closed
	} else {
		delete(w.files, path)
	}
	w.bump()
	observability.DocumentsOpen.Dec()
}

// Get returns the entry for path, or nil.
func (w *Workspace) Get(path string) *FileEntry {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.files[path]
}

// Load reads a file from disk into the index if it is not already present.
func (w *Workspace) Load(path string) (*FileEntry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.loadLocked(path)
}

func (w *Workspace) loadLocked(path string) (*FileEntry, error) {
	if entry, ok := w.files[path]; ok {
		return entry, nil
	}

	if w.cache != nil {
		if entry, ok := w.cache.Lookup(path); ok {
			w.files[path] = entry
			return entry, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeNotFound, "cannot read "+path)
	}
	entry := w.index(path, data, 0, false, true)
	w.files[path] = entry
	if w.cache != nil {
		w.cache.Put(entry)
	}
	w.loadIncludes(entry, w.cfg.Get().IncludeDepth, map[string]bool{path: true})
	return entry, nil
}

// loadIncludes pulls the transitive include closure from disk so queries
// never block on IO. Depth-bounded; cycles stop at the visited set.
func (w *Workspace) loadIncludes(entry *FileEntry, depth int, visited map[string]bool) {
	if depth <= 0 || entry == nil || entry.Syms == nil {
		return
	}
	cfg := w.cfg.Get()
	for _, inc := range entry.Syms.Includes {
		target := ResolveIncludePath(entry.Path, inc.Path, cfg.LibraryLocations())
		if target == "" || visited[target] {
			continue
		}
		visited[target] = true
		child, err := w.loadLocked(target)
		if err != nil {
			w.log.Debug("include load failed", "path", target, "error", err)
			continue
		}
		w.loadIncludes(child, depth-1, visited)
	}
}

// included reports whether any other file's directives resolve to path.
func (w *Workspace) included(path string) bool {
	cfg := w.cfg.Get()
	for _, entry := range w.files {
		if entry.Path == path || entry.Syms == nil {
			continue
		}
		for _, inc := range entry.Syms.Includes {
			if ResolveIncludePath(entry.Path, inc.Path, cfg.LibraryLocations()) == path {
				return true
			}
		}
	}
	return false
}

func (w *Workspace) index(path string, text []byte, version int32, open, fromDisk bool) *FileEntry {
	tree, err := w.provider.Parse(text)
	if err != nil {
		w.log.Error("parse failed", "path", path, "error", err)
		tree = nil
	}
	return w.publish(path, text, tree, version, open, fromDisk)
}

func (w *Workspace) publish(path string, text []byte, tree *syntax.Tree, version int32, open, fromDisk bool) *FileEntry {
	syms := lang.Extract(tree, text, path)
	observability.FilesIndexed.Inc()
	return &FileEntry{
		Path:     path,
		Version:  version,
		Text:     text,
		Tree:     tree,
		Syms:     syms,
		Open:     open,
		FromDisk: fromDisk,
	}
}

// Snapshot captures a consistent view for queries. Entries are immutable,
// so copying the map is enough.
type Snapshot struct {
	Generation uint64
	Files      map[string]*FileEntry
	Builtins   *BuiltinTable
	Config     *config.Config
}

func (w *Workspace) Snapshot() *Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()

	files := make(map[string]*FileEntry, len(w.files))
	for path, entry := range w.files {
		files[path] = entry
	}
	return &Snapshot{
		Generation: w.generation.Load(),
		Files:      files,
		Builtins:   w.builtins.Load(),
		Config:     w.cfg.Get(),
	}
}

// Valid reports whether the snapshot still reflects current state. Stale
// background results are discarded and recomputed.
func (w *Workspace) Valid(s *Snapshot) bool {
	return s != nil && s.Generation == w.generation.Load()
}

func (s *Snapshot) Entry(path string) *FileEntry {
	return s.Files[path]
}
