package lsp

import "context"

// One interface per capability, implementations kept in an ordered
// list. Single-result capabilities take the first non-nil answer in
// registration order; multi-result capabilities accumulate across all
// registered implementations.

type CompletionProvider interface {
	Complete(doc *Document, pos Position) []CompletionItem
}

type HoverProvider interface {
	Hover(doc *Document, pos Position) *Hover
}

type DefinitionProvider interface {
	Definition(doc *Document, pos Position) *Location
}

type DiagnosticsProvider interface {
	Diagnose(ctx context.Context, doc *Document) []Diagnostic
}

// Registry holds the ordered provider lists.
type Registry struct {
	completions []CompletionProvider
	hovers      []HoverProvider
	definitions []DefinitionProvider
	diagnostics []DiagnosticsProvider
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) AddCompletion(p CompletionProvider) { r.completions = append(r.completions, p) }
func (r *Registry) AddHover(p HoverProvider)           { r.hovers = append(r.hovers, p) }
func (r *Registry) AddDefinition(p DefinitionProvider) { r.definitions = append(r.definitions, p) }
func (r *Registry) AddDiagnostics(p DiagnosticsProvider) {
	r.diagnostics = append(r.diagnostics, p)
}

// Complete accumulates items across every provider.
func (r *Registry) Complete(doc *Document, pos Position) []CompletionItem {
	var out []CompletionItem
	for _, p := range r.completions {
		out = append(out, p.Complete(doc, pos)...)
	}
	return out
}

// Hover returns the first non-nil answer.
func (r *Registry) Hover(doc *Document, pos Position) *Hover {
	for _, p := range r.hovers {
		if h := p.Hover(doc, pos); h != nil {
			return h
		}
	}
	return nil
}

// Definition returns the first non-nil answer.
func (r *Registry) Definition(doc *Document, pos Position) *Location {
	for _, p := range r.definitions {
		if loc := p.Definition(doc, pos); loc != nil {
			return loc
		}
	}
	return nil
}

// Diagnose accumulates diagnostics across every provider. The pass is
// always whole-document and from scratch; there is no diffing.
func (r *Registry) Diagnose(ctx context.Context, doc *Document) []Diagnostic {
	out := []Diagnostic{}
	for _, p := range r.diagnostics {
		out = append(out, p.Diagnose(ctx, doc)...)
	}
	return out
}
