package server

import (
	"net/url"
	"path/filepath"
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"scadls/internal/lang"
	"scadls/internal/syntax"
)

// uriToPath converts a file URI to a local filesystem path.
func uriToPath(uri protocol.DocumentUri) string {
	parsed, err := url.Parse(string(uri))
	if err == nil && parsed.Scheme == "file" {
		path := parsed.Path
		// Windows URIs look like file:///C:/dir; drop the leading slash.
		if len(path) >= 3 && path[0] == '/' && path[2] == ':' {
			path = path[1:]
		}
		return filepath.FromSlash(path)
	}
	return string(uri)
}

func pathToURI(path string) protocol.DocumentUri {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	if !strings.HasPrefix(u.Path, "/") {
		u.Path = "/" + u.Path
	}
	return protocol.DocumentUri(u.String())
}

func toPosition(p syntax.Point) protocol.Position {
	return protocol.Position{Line: protocol.UInteger(p.Row), Character: protocol.UInteger(p.Column)}
}

func fromPosition(p protocol.Position) syntax.Point {
	return syntax.Point{Row: uint32(p.Line), Column: uint32(p.Character)}
}

func toRange(r syntax.Range) protocol.Range {
	return protocol.Range{Start: toPosition(r.StartPoint), End: toPosition(r.EndPoint)}
}

func completionKind(k lang.DeclKind, file bool) protocol.CompletionItemKind {
	switch {
	case file:
		return protocol.CompletionItemKindFile
	case k == lang.DeclModule:
		return protocol.CompletionItemKindModule
	case k == lang.DeclFunction:
		return protocol.CompletionItemKindFunction
	case k == lang.DeclKeyword:
		return protocol.CompletionItemKindKeyword
	default:
		return protocol.CompletionItemKindVariable
	}
}

func symbolKind(k lang.DeclKind) protocol.SymbolKind {
	switch k {
	case lang.DeclModule:
		return protocol.SymbolKindModule
	case lang.DeclFunction:
		return protocol.SymbolKindFunction
	default:
		return protocol.SymbolKindVariable
	}
}
