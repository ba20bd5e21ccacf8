// Package query answers editor requests against workspace snapshots. Every
// operation is a pure function of the snapshot it receives, so callers can
// run them against an older snapshot and revalidate afterwards.
package query

import (
	"context"
	"log/slog"
	"time"

	"scadls/internal/lang"
	"scadls/internal/shared/observability"
	"scadls/internal/syntax"
	"scadls/internal/workspace"
)

type Engine struct {
	log *slog.Logger
}

func New(log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{log: log}
}

func observe(kind string) func() {
	start := time.Now()
	_, span := observability.Tracer.Start(context.Background(), "query."+kind)
	return func() {
		span.End()
		observability.QueryDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}
}

// identifierAt returns the identifier-ish leaf under pos, or nil.
func identifierAt(entry *workspace.FileEntry, pos syntax.Point) *syntax.Node {
	if entry == nil || entry.Tree == nil {
		return nil
	}
	leaf := entry.Tree.LeafAt(pos)
	if leaf == nil {
		return nil
	}
	switch leaf.Kind {
	case syntax.KindIdentifier, syntax.KindSpecialVariable:
		return leaf
	}
	return nil
}

// callOnlyAt reports whether the identifier sits in call position, which
// narrows resolution to modules and functions.
func callOnlyAt(entry *workspace.FileEntry, pos syntax.Point, leaf *syntax.Node) bool {
	for _, anc := range entry.Tree.Ancestors(pos) {
		if anc.Kind != syntax.KindModuleCall && anc.Kind != syntax.KindFunctionCall {
			continue
		}
		if name := anc.ChildByField("name"); name != nil && name.Span == leaf.Span {
			return true
		}
	}
	return false
}

// paramSymbols turns a callable's parameter list into variable declarations
// local to its file, used for argument-position completion.
func paramSymbols(d *lang.Declaration) []lang.Declaration {
	if d == nil || !d.Kind.Callable() {
		return nil
	}
	out := make([]lang.Declaration, 0, len(d.Params))
	for _, p := range d.Params {
		out = append(out, lang.Declaration{
			Name:     p.Name,
			Kind:     lang.DeclVariable,
			Span:     p.Span,
			NameSpan: p.Span,
			Path:     d.Path,
		})
	}
	return out
}
