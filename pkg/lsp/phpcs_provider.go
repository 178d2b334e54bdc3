package lsp

import (
	"context"

	"github.com/syntlyx/drupal-lsp-server/pkg/workspace"
)

// StyleDiagnostics surfaces phpcs findings for host-language buffers.
// When the tool is missing the provider contributes nothing; the rest
// of the diagnostics pass is unaffected.
type StyleDiagnostics struct {
	WS *workspace.Workspace
}

func (p *StyleDiagnostics) Diagnose(ctx context.Context, doc *Document) []Diagnostic {
	if !doc.IsPHP() {
		return nil
	}

	var out []Diagnostic
	for _, m := range p.WS.CheckStyle(ctx, doc.Text, doc.Path) {
		severity := SeverityWarning
		if m.Severity == "error" {
			severity = SeverityError
		}
		line, col := m.Line-1, m.Column-1
		if line < 0 {
			line = 0
		}
		if col < 0 {
			col = 0
		}
		// phpcs columns are byte based like the rest of the server.
		char := utf16Col(doc.Line(line), col)
		out = append(out, Diagnostic{
			Range: Range{
				Start: Position{Line: line, Character: char},
				End:   Position{Line: line, Character: char},
			},
			Severity: severity,
			Source:   "phpcs",
			Message:  m.Message,
		})
	}
	return out
}
