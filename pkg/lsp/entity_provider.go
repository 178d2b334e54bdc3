package lsp

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/syntlyx/drupal-lsp-server/pkg/index"
	"github.com/syntlyx/drupal-lsp-server/pkg/ingest"
	"github.com/syntlyx/drupal-lsp-server/pkg/rank"
	"github.com/syntlyx/drupal-lsp-server/pkg/reference"
	"github.com/syntlyx/drupal-lsp-server/pkg/workspace"
)

// EntityCompletion completes entity names inside reference literals.
type EntityCompletion struct {
	WS *workspace.Workspace
}

func (p *EntityCompletion) Complete(doc *Document, pos Position) []CompletionItem {
	line := doc.Line(pos.Line)
	off := byteOffset(line, pos.Character)
	m, ok := reference.At(line, off)
	if !ok {
		return nil
	}

	prefix := line[m.Start:min(off, m.End)]
	ranked := rank.Rank(p.WS.ListAll(m.Kind), prefix)

	replace := Range{
		Start: Position{Line: pos.Line, Character: utf16Col(line, m.Start)},
		End:   Position{Line: pos.Line, Character: utf16Col(line, m.End)},
	}

	items := make([]CompletionItem, 0, len(ranked))
	for i, e := range ranked {
		items = append(items, CompletionItem{
			Label:    e.Name,
			Kind:     ItemKindReference,
			Detail:   entityDetail(e),
			SortText: fmt.Sprintf("%05d", i),
			TextEdit: &TextEdit{Range: replace, NewText: e.Name},
		})
	}
	return items
}

func entityDetail(e index.Entity) string {
	switch e.Kind {
	case index.KindService:
		if e.Alias != "" {
			return "alias of " + e.Alias
		}
		return e.Class
	case index.KindRoute:
		return e.Path
	case index.KindLink:
		return e.Title
	}
	return ""
}

// EntityHover renders a resolved entity's attributes.
type EntityHover struct {
	WS *workspace.Workspace
}

func (p *EntityHover) Hover(doc *Document, pos Position) *Hover {
	line := doc.Line(pos.Line)
	m, ok := reference.At(line, byteOffset(line, pos.Character))
	if !ok {
		return nil
	}
	e, ok := p.WS.Resolver().Resolve(m.Kind, m.Identifier)
	if !ok {
		// Nothing to show; hover is optional, not an error.
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%s** `%s` _(%s)_\n", e.Kind, e.Name, e.Tier)
	writeAttr := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&b, "\n- %s: `%s`", label, value)
		}
	}
	writeAttr("class", e.Class)
	writeAttr("parent", e.Parent)
	writeAttr("factory", e.Factory)
	writeAttr("alias of", e.Alias)
	writeAttr("path", e.Path)
	writeAttr("controller", e.Controller)
	writeAttr("permission", e.Permission)
	writeAttr("title", e.Title)
	writeAttr("route", e.RouteName)
	if len(e.Arguments) > 0 {
		fmt.Fprintf(&b, "\n- arguments: `%s`", strings.Join(e.Arguments, ", "))
	}
	// Uninterpreted attributes, shown verbatim in stable order.
	extraKeys := make([]string, 0, len(e.Extra))
	for k := range e.Extra {
		extraKeys = append(extraKeys, k)
	}
	sort.Strings(extraKeys)
	for _, k := range extraKeys {
		writeAttr(k, e.Extra[k])
	}
	fmt.Fprintf(&b, "\n\ndefined in %s:%d", e.SourceFile, e.SourceLine)

	span := Range{
		Start: Position{Line: pos.Line, Character: utf16Col(line, m.Start)},
		End:   Position{Line: pos.Line, Character: utf16Col(line, m.End)},
	}
	return &Hover{
		Contents: MarkupContent{Kind: "markdown", Value: b.String()},
		Range:    &span,
	}
}

// ClassDefinition jumps from a service reference to the PHP file of
// its implementing class. Registered before EntityDefinition, so a
// resolvable class wins; otherwise the next provider answers with the
// definition file itself.
type ClassDefinition struct {
	WS *workspace.Workspace
}

func (p *ClassDefinition) Definition(doc *Document, pos Position) *Location {
	line := doc.Line(pos.Line)
	m, ok := reference.At(line, byteOffset(line, pos.Character))
	if !ok || m.Kind != index.KindService {
		return nil
	}
	e, ok := p.WS.Resolver().Resolve(index.KindService, m.Identifier)
	if !ok {
		return nil
	}
	e = p.WS.Resolver().FollowAlias(e)
	if e.Class == "" {
		return nil
	}
	path, ok := p.WS.Resolver().ClassFile(e.Class)
	if !ok {
		return nil
	}
	return &Location{URI: pathToURI(path)}
}

// EntityDefinition jumps to the declaring line of the definition file.
type EntityDefinition struct {
	WS *workspace.Workspace
}

func (p *EntityDefinition) Definition(doc *Document, pos Position) *Location {
	line := doc.Line(pos.Line)
	m, ok := reference.At(line, byteOffset(line, pos.Character))
	if !ok {
		return nil
	}
	e, ok := p.WS.Resolver().Resolve(m.Kind, m.Identifier)
	if !ok {
		return nil
	}
	l := e.SourceLine - 1
	if l < 0 {
		l = 0
	}
	return &Location{
		URI: pathToURI(e.SourceFile),
		Range: Range{
			Start: Position{Line: l},
			End:   Position{Line: l},
		},
	}
}

// EntityDiagnostics flags unresolvable references, one diagnostic per
// textual occurrence, recomputed from scratch over the whole document.
type EntityDiagnostics struct {
	WS *workspace.Workspace
}

// diagnosable lists the shapes validated per document family. Sigil
// and mapping-entry shapes only mean anything inside definition files;
// call shapes only inside host-language source.
// shapesFor scopes validation shapes to the buffer's file family.
// Host-language buffers get the call-site shapes; definition files
// get only the shapes their own grammar uses. The split matters for
// the parent key, which names a service in services.yml but a link in
// links.*.yml.
func (p *EntityDiagnostics) shapesFor(doc *Document) []reference.Shape {
	if doc.IsPHP() {
		var shapes []reference.Shape
		for _, s := range reference.ServiceShapes {
			if s.Name != "argument-sigil" {
				shapes = append(shapes, s)
			}
		}
		for _, s := range reference.RouteShapes {
			if s.Name != "route-name-entry" {
				shapes = append(shapes, s)
			}
		}
		return shapes
	}

	kind, ok := ingest.KindForPath(doc.Path)
	if !ok {
		return nil
	}
	switch kind {
	case index.KindService:
		var shapes []reference.Shape
		for _, s := range reference.ServiceShapes {
			if s.Name == "argument-sigil" {
				shapes = append(shapes, s)
			}
		}
		return append(shapes, reference.ServiceParentEntry)
	case index.KindLink:
		var shapes []reference.Shape
		for _, s := range reference.RouteShapes {
			if s.Name == "route-name-entry" {
				shapes = append(shapes, s)
			}
		}
		return append(shapes, reference.LinkShapes...)
	}
	// Routing files declare routes rather than referencing them.
	return nil
}

func (p *EntityDiagnostics) Diagnose(_ context.Context, doc *Document) []Diagnostic {
	shapes := p.shapesFor(doc)
	res := p.WS.Resolver()

	var out []Diagnostic
	for lineNo, line := range doc.Lines() {
		for _, m := range reference.Scan(shapes, line) {
			if m.Identifier == "" {
				continue
			}
			problem := res.Validate(m.Kind, m.Identifier)
			if problem == nil {
				continue
			}
			out = append(out, Diagnostic{
				Range: Range{
					Start: Position{Line: lineNo, Character: utf16Col(line, m.Start)},
					End:   Position{Line: lineNo, Character: utf16Col(line, m.End)},
				},
				Severity: SeverityError,
				Source:   "drupal",
				Message:  problem.Message,
			})
		}
	}
	return out
}
