package irlsp

import (
	"github.com/arneph/katara-ir/internal/irchecker"
	"github.com/arneph/katara-ir/internal/irparse"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// ConvertParseErrors transforms parser errors into LSP diagnostics.
// Grounded on kanso-lang-kanso/internal/lsp/diagnostics.go's
// ConvertParseErrors.
func ConvertParseErrors(errs []irparse.ParseError) []protocol.Diagnostic {
	diagnostics := make([]protocol.Diagnostic, 0, len(errs))
	for _, e := range errs {
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range: protocol.Range{
				Start: protocol.Position{
					Line:      uint32(max0(e.Pos.Line - 1)),
					Character: uint32(max0(e.Pos.Col - 1)),
				},
				End: protocol.Position{
					Line:      uint32(max0(e.Pos.Line - 1)),
					Character: uint32(max0(e.Pos.Col - 1 + 1)),
				},
			},
			Severity: ptrSeverity(protocol.DiagnosticSeverityError),
			Source:   ptrString("katara-ir-parser"),
			Message:  e.Msg,
		})
	}
	return diagnostics
}

// ConvertIssues transforms checker issues into LSP diagnostics. The
// checker works over the parsed IR graph, not source text, so every
// issue is anchored at the top of the document rather than at the
// block/instruction it names; its message names the offending entity
// instead.
func ConvertIssues(issues []irchecker.Issue) []protocol.Diagnostic {
	diagnostics := make([]protocol.Diagnostic, 0, len(issues))
	for _, iss := range issues {
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range: protocol.Range{
				Start: protocol.Position{Line: 0, Character: 0},
				End:   protocol.Position{Line: 0, Character: 1},
			},
			Severity: ptrSeverity(protocol.DiagnosticSeverityError),
			Source:   ptrString("katara-ir-checker"),
			Message:  iss.String(),
		})
	}
	return diagnostics
}

func max0(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

func ptrSeverity(s protocol.DiagnosticSeverity) *protocol.DiagnosticSeverity { return &s }
func ptrString(s string) *string                                           { return &s }
