package server

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"scadls/internal/config"
	"scadls/internal/core/errors"
	"scadls/internal/query"
	"scadls/internal/shared/observability"
	"scadls/internal/syntax"
	"scadls/internal/workspace"
)

func (s *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	if params.RootURI != nil {
		s.roots = append(s.roots, uriToPath(*params.RootURI))
	} else if params.RootPath != nil {
		s.roots = append(s.roots, *params.RootPath)
	}
	for _, folder := range params.WorkspaceFolders {
		path := uriToPath(protocol.DocumentUri(folder.URI))
		if len(s.roots) == 0 || s.roots[0] != path {
			s.roots = append(s.roots, path)
		}
	}

	capabilities := s.handler.CreateServerCapabilities()

	openClose := true
	change := protocol.TextDocumentSyncKindIncremental
	capabilities.TextDocumentSync = protocol.TextDocumentSyncOptions{
		OpenClose: &openClose,
		Change:    &change,
	}
	capabilities.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: []string{"<", "/", "$"},
	}

	version := Version
	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    Name,
			Version: &version,
		},
	}, nil
}

func (s *Server) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	go s.warmup()
	return nil
}

func (s *Server) shutdown(ctx *glsp.Context) error {
	s.Close()
	protocol.SetTraceValue(protocol.TraceValueOff)
	return nil
}

func (s *Server) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func (s *Server) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	path := uriToPath(params.TextDocument.URI)
	s.ws.Open(path, params.TextDocument.Text, params.TextDocument.Version)
	s.publishDiagnostics(ctx.Notify, path)
	return nil
}

func (s *Server) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	path := uriToPath(params.TextDocument.URI)

	changes := make([]workspace.Change, 0, len(params.ContentChanges))
	for _, raw := range params.ContentChanges {
		switch change := raw.(type) {
		case protocol.TextDocumentContentChangeEvent:
			if change.Range == nil {
				changes = append(changes, workspace.Change{Full: true, Text: change.Text})
				continue
			}
			changes = append(changes, workspace.Change{
				Text:  change.Text,
				Start: fromPosition(change.Range.Start),
				End:   fromPosition(change.Range.End),
			})
		case protocol.TextDocumentContentChangeEventWhole:
			changes = append(changes, workspace.Change{Full: true, Text: change.Text})
		}
	}

	if _, err := s.ws.Change(path, params.TextDocument.Version, changes); err != nil {
		if errors.IsCode(err, errors.CodeVersionConflict) {
			s.log.Warn("dropping stale change", "path", path, "version", params.TextDocument.Version)
		}
		return err
	}
	s.publishDiagnostics(ctx.Notify, path)
	return nil
}

func (s *Server) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	path := uriToPath(params.TextDocument.URI)
	s.ws.Close(path)
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         params.TextDocument.URI,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (s *Server) textDocumentDidSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	s.publishDiagnostics(ctx.Notify, uriToPath(params.TextDocument.URI))
	return nil
}

func (s *Server) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	path := uriToPath(params.TextDocument.URI)
	items, err := s.engine.Completion(s.ws.Snapshot(), path, fromPosition(params.Position))
	if err != nil {
		observability.QueryErrorsTotal.WithLabelValues("completion").Inc()
		return nil, err
	}

	out := make([]protocol.CompletionItem, 0, len(items))
	for _, item := range items {
		kind := completionKind(item.Kind, item.File)
		filter := item.Name
		insert := item.InsertText
		textFormat := protocol.InsertTextFormatPlainText
		if item.TabStops {
			textFormat = protocol.InsertTextFormatSnippet
		}
		ci := protocol.CompletionItem{
			Label:            item.Label,
			Kind:             &kind,
			FilterText:       &filter,
			InsertText:       &insert,
			InsertTextFormat: &textFormat,
		}
		if item.Doc != "" {
			ci.Documentation = protocol.MarkupContent{
				Kind:  protocol.MarkupKindMarkdown,
				Value: item.Doc,
			}
		}
		out = append(out, ci)
	}
	return &protocol.CompletionList{IsIncomplete: true, Items: out}, nil
}

func (s *Server) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	path := uriToPath(params.TextDocument.URI)
	hover, err := s.engine.Hover(s.ws.Snapshot(), path, fromPosition(params.Position))
	if err != nil {
		observability.QueryErrorsTotal.WithLabelValues("hover").Inc()
		return nil, err
	}
	if hover == "" {
		return nil, nil
	}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: hover,
		},
	}, nil
}

func (s *Server) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	path := uriToPath(params.TextDocument.URI)
	locs, err := s.engine.Definition(s.ws.Snapshot(), path, fromPosition(params.Position))
	if err != nil {
		observability.QueryErrorsTotal.WithLabelValues("definition").Inc()
		return nil, err
	}
	if len(locs) == 0 {
		return nil, nil
	}
	return toLocations(locs), nil
}

func (s *Server) textDocumentReferences(ctx *glsp.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	path := uriToPath(params.TextDocument.URI)
	locs, err := s.engine.References(s.ws.Snapshot(), path, fromPosition(params.Position))
	if err != nil {
		observability.QueryErrorsTotal.WithLabelValues("references").Inc()
		return nil, err
	}
	return toLocations(locs), nil
}

func toLocations(locs []workspace.Location) []protocol.Location {
	out := make([]protocol.Location, 0, len(locs))
	for _, loc := range locs {
		out = append(out, protocol.Location{URI: pathToURI(loc.Path), Range: toRange(loc.Span)})
	}
	return out
}

func (s *Server) textDocumentDocumentSymbol(ctx *glsp.Context, params *protocol.DocumentSymbolParams) (any, error) {
	path := uriToPath(params.TextDocument.URI)
	syms, err := s.engine.Outline(s.ws.Snapshot(), path)
	if err != nil {
		observability.QueryErrorsTotal.WithLabelValues("outline").Inc()
		return nil, err
	}
	return toDocumentSymbols(syms), nil
}

func toDocumentSymbols(syms []query.Symbol) []protocol.DocumentSymbol {
	out := make([]protocol.DocumentSymbol, 0, len(syms))
	for _, sym := range syms {
		out = append(out, protocol.DocumentSymbol{
			Name:           sym.Name,
			Kind:           symbolKind(sym.Kind),
			Range:          toRange(sym.Span),
			SelectionRange: toRange(sym.SelectionSpan),
			Children:       toDocumentSymbols(sym.Children),
		})
	}
	return out
}

// textDocumentRename computes the edit against a snapshot and retries when
// the workspace moved underneath it, so a slow rename never writes edits
// computed from stale text.
func (s *Server) textDocumentRename(ctx *glsp.Context, params *protocol.RenameParams) (*protocol.WorkspaceEdit, error) {
	path := uriToPath(params.TextDocument.URI)
	pos := fromPosition(params.Position)
	job := uuid.NewString()

	for attempt := 0; attempt < 3; attempt++ {
		snap := s.ws.Snapshot()
		changes, err := s.engine.Rename(snap, path, pos, params.NewName)
		if err != nil {
			observability.RenameJobsTotal.WithLabelValues("error").Inc()
			return nil, err
		}
		if !s.ws.Valid(snap) {
			observability.RenameJobsTotal.WithLabelValues("stale").Inc()
			s.log.Debug("rename snapshot went stale, retrying", "job", job, "attempt", attempt)
			continue
		}

		edits := make(map[protocol.DocumentUri][]protocol.TextEdit, len(changes))
		total := 0
		for filePath, fileEdits := range changes {
			uri := pathToURI(filePath)
			for _, edit := range fileEdits {
				edits[uri] = append(edits[uri], protocol.TextEdit{
					Range:   toRange(edit.Span),
					NewText: edit.NewText,
				})
				total++
			}
		}
		observability.RenameJobsTotal.WithLabelValues("success").Inc()
		s.log.Debug("rename complete", "job", job, "edits", total)
		return &protocol.WorkspaceEdit{Changes: edits}, nil
	}
	observability.RenameJobsTotal.WithLabelValues("error").Inc()
	return nil, errors.New(errors.CodeInternal, "workspace kept changing during rename")
}

func (s *Server) textDocumentFormatting(ctx *glsp.Context, params *protocol.DocumentFormattingParams) ([]protocol.TextEdit, error) {
	path := uriToPath(params.TextDocument.URI)
	entry := s.ws.Get(path)
	if entry == nil {
		return nil, errors.Newf(errors.CodeNotFound, "unknown document %s", path)
	}

	formatted, err := s.formatter.Format(context.Background(), path, entry.Text)
	if err != nil {
		observability.QueryErrorsTotal.WithLabelValues("formatting").Inc()
		return nil, err
	}

	// The formatter ran against a copy of the text. If the document moved
	// on while it ran, its output no longer applies.
	if current := s.ws.Get(path); current == nil || current.Version != entry.Version {
		return nil, nil
	}

	end := syntax.ByteToPoint(entry.Text, uint32(len(entry.Text)))
	return []protocol.TextEdit{{
		Range:   protocol.Range{Start: protocol.Position{}, End: toPosition(end)},
		NewText: formatted,
	}}, nil
}

// workspaceDidChangeConfiguration merges the client's "openscad" settings
// section into the live config and reloads builtins if their source moved.
func (s *Server) workspaceDidChangeConfiguration(ctx *glsp.Context, params *protocol.DidChangeConfigurationParams) error {
	raw, err := json.Marshal(params.Settings)
	if err != nil {
		return nil
	}
	var payload struct {
		Openscad config.Settings `json:"openscad"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		s.log.Warn("unrecognized configuration payload", "error", err)
		return nil
	}

	before := s.cfg.Get().Builtin
	cfg := s.cfg.Apply(payload.Openscad)
	s.log.Info("configuration updated",
		"search_paths", cfg.SearchPaths,
		"default_param", cfg.DefaultParam)

	if cfg.Builtin != before {
		table, err := workspace.LoadBuiltins(s.provider, config.ExpandPath(cfg.Builtin))
		if err != nil {
			s.log.Warn("builtin reload failed", "path", cfg.Builtin, "error", err)
			return nil
		}
		s.ws.SetBuiltins(table)
	}
	return nil
}
