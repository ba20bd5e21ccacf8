// Package server wires the workspace, query engine and formatter to the
// language server protocol transport.
package server

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"scadls/internal/config"
	"scadls/internal/format"
	"scadls/internal/query"
	"scadls/internal/shared/util"
	"scadls/internal/syntax"
	"scadls/internal/workspace"
)

const (
	Name    = "scadls"
	Version = "0.1.0"
)

type Server struct {
	ws        *workspace.Workspace
	engine    *query.Engine
	formatter *format.Formatter
	cfg       *config.Store
	provider  syntax.Provider
	log       *slog.Logger

	// limiter paces diagnostics while the user is typing.
	limiter *util.Limiter

	handler protocol.Handler
	watcher *workspace.Watcher
	roots   []string
}

func New(ws *workspace.Workspace, provider syntax.Provider, cfg *config.Store, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		ws:        ws,
		engine:    query.New(log),
		formatter: format.New(cfg, log),
		cfg:       cfg,
		provider:  provider,
		log:       log,
		limiter:   util.NewLimiter(20, 10),
	}
	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,
		TextDocumentDidSave:   s.textDocumentDidSave,

		TextDocumentCompletion:     s.textDocumentCompletion,
		TextDocumentHover:          s.textDocumentHover,
		TextDocumentDefinition:     s.textDocumentDefinition,
		TextDocumentReferences:     s.textDocumentReferences,
		TextDocumentDocumentSymbol: s.textDocumentDocumentSymbol,
		TextDocumentRename:         s.textDocumentRename,
		TextDocumentFormatting:     s.textDocumentFormatting,

		WorkspaceDidChangeConfiguration: s.workspaceDidChangeConfiguration,
	}
	return s
}

// RunStdio serves the protocol over stdin/stdout.
func (s *Server) RunStdio(verbose bool) error {
	configureLogging(verbose)
	return glspserver.NewServer(&s.handler, Name, verbose).RunStdio()
}

// RunTCP serves the protocol on ip:port for clients that dial in.
func (s *Server) RunTCP(ip string, port int, verbose bool) error {
	configureLogging(verbose)
	return glspserver.NewServer(&s.handler, Name, verbose).RunTCP(fmt.Sprintf("%s:%d", ip, port))
}

func configureLogging(verbose bool) {
	verbosity := 1
	if verbose {
		verbosity = 2
	}
	commonlog.Configure(verbosity, nil)
}

// Close stops background machinery. Safe to call more than once.
func (s *Server) Close() {
	if s.watcher != nil {
		_ = s.watcher.Close()
		s.watcher = nil
	}
}

// warmup indexes workspace roots and library locations in the background
// and starts watching them for out-of-editor changes.
func (s *Server) warmup() {
	cfg := s.cfg.Get()
	roots := append([]string{}, s.roots...)
	roots = append(roots, cfg.LibraryLocations()...)
	if len(roots) == 0 {
		return
	}

	scanner, err := workspace.NewScanner(cfg.Exclude.Dirs, cfg.Exclude.Files)
	if err != nil {
		s.log.Warn("invalid exclude patterns", "error", err)
		return
	}
	start := time.Now()
	loaded, err := scanner.WarmUp(s.ws, roots)
	if err != nil {
		s.log.Warn("workspace scan failed", "error", err)
	}
	s.log.Info("workspace indexed", "files", loaded, "took", time.Since(start))

	watcher, err := workspace.NewWatcher(500*time.Millisecond, cfg.Exclude.Dirs, s.onFilesChanged)
	if err != nil {
		s.log.Warn("watcher unavailable", "error", err)
		return
	}
	watchTargets := roots
	if cfg.Builtin != "" {
		watchTargets = append(watchTargets, config.ExpandPath(cfg.Builtin))
	}
	if err := watcher.Watch(watchTargets); err != nil {
		s.log.Warn("watch failed", "error", err)
		_ = watcher.Close()
		return
	}
	s.watcher = watcher
}

// onFilesChanged reindexes disk-backed files touched outside the editor and
// swaps the builtin table when the override file changed.
func (s *Server) onFilesChanged(paths []string) {
	cfg := s.cfg.Get()
	builtinPath := config.ExpandPath(cfg.Builtin)

	var reload []string
	for _, path := range paths {
		if builtinPath != "" && path == builtinPath {
			table, err := workspace.LoadBuiltins(s.provider, builtinPath)
			if err != nil {
				s.log.Warn("builtin reload failed", "path", path, "error", err)
				continue
			}
			s.ws.SetBuiltins(table)
			s.log.Info("builtin table reloaded", "path", path)
			continue
		}
		reload = append(reload, path)
	}
	if len(reload) > 0 {
		s.ws.Reload(reload)
	}
}
