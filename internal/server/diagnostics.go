package server

import (
	"context"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"scadls/internal/shared/observability"
	"scadls/internal/workspace"
)

// diagnosticsFor computes the diagnostics for one file: parse errors from
// the tree and include directives that resolve nowhere.
func (s *Server) diagnosticsFor(snap *workspace.Snapshot, entry *workspace.FileEntry) []protocol.Diagnostic {
	severity := protocol.DiagnosticSeverityError
	out := []protocol.Diagnostic{}

	if entry.Tree != nil {
		for _, node := range entry.Tree.ErrorNodes() {
			message := "syntax error"
			if node.Missing {
				message = "missing " + node.Kind
			}
			out = append(out, protocol.Diagnostic{
				Range:    toRange(node.Span),
				Severity: &severity,
				Message:  message,
			})
		}
	}

	if entry.Syms != nil {
		roots := snap.Config.LibraryLocations()
		for _, inc := range entry.Syms.Includes {
			if workspace.ResolveIncludePath(entry.Path, inc.Path, roots) != "" {
				continue
			}
			// Shrink past the angle brackets so only the path is underlined.
			span := inc.PathSpan
			if span.EndByte-span.StartByte >= 2 {
				span.StartByte++
				span.StartPoint.Column++
				span.EndByte--
				if span.EndPoint.Column > 0 {
					span.EndPoint.Column--
				}
			}
			out = append(out, protocol.Diagnostic{
				Range:    toRange(span),
				Severity: &severity,
				Message:  "file not found!",
			})
		}
	}
	return out
}

// publishDiagnostics sends diagnostics for path, paced by the limiter so a
// typing burst does not flood the client. A stale snapshot is dropped; the
// change that invalidated it publishes its own batch.
func (s *Server) publishDiagnostics(notify func(method string, params any), path string) {
	snap := s.ws.Snapshot()
	entry := snap.Entry(path)
	if entry == nil {
		return
	}

	params := &protocol.PublishDiagnosticsParams{
		URI:         pathToURI(path),
		Diagnostics: s.diagnosticsFor(snap, entry),
	}
	if entry.Open {
		version := protocol.UInteger(entry.Version)
		params.Version = &version
	}
	send := func() {
		notify(protocol.ServerTextDocumentPublishDiagnostics, params)
		observability.DiagnosticsPublished.Inc()
	}

	if s.limiter.Allow(1) {
		send()
		return
	}
	go func() {
		if err := s.limiter.Wait(context.Background(), 1); err != nil {
			return
		}
		if !s.ws.Valid(snap) {
			return
		}
		send()
	}()
}
