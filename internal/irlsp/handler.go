// Package irlsp is a diagnostics-only language server over the IR text
// format (§4.1): it parses and checks a document on every open/change
// and republishes the resulting parse errors and well-formedness
// issues, but offers no completion, hover, or semantic tokens. Grounded
// on kanso-lang-kanso/internal/lsp/handler.go, stripped to the
// diagnostics path since the IR format has no source-language
// completion or semantic highlighting to offer.
package irlsp

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/arneph/katara-ir/internal/ir"
	"github.com/arneph/katara-ir/internal/irchecker"
	"github.com/arneph/katara-ir/internal/irparse"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Handler implements the glsp protocol.Handler callbacks this server
// supports.
type Handler struct {
	mu      sync.RWMutex
	content map[string]string
	progs   map[string]*ir.Program
}

// NewHandler returns an empty handler.
func NewHandler() *Handler {
	return &Handler{
		content: make(map[string]string),
		progs:   make(map[string]*ir.Program),
	}
}

func (h *Handler) Initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Println("katara-ir-lsp: initialize")
	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: ptrBool(true),
				Change:    ptrSyncKind(protocol.TextDocumentSyncKindFull),
			},
		},
	}, nil
}

func (h *Handler) Initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (h *Handler) Shutdown(ctx *glsp.Context) error {
	return nil
}

func (h *Handler) TextDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	return h.refresh(ctx, params.TextDocument.URI)
}

func (h *Handler) TextDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	return h.refresh(ctx, params.TextDocument.URI)
}

func (h *Handler) TextDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.content, path)
	delete(h.progs, path)
	return nil
}

// refresh re-parses and re-checks the document at uri, publishing fresh
// diagnostics (possibly an empty list, clearing previously-reported
// ones).
func (h *Handler) refresh(ctx *glsp.Context, uri protocol.DocumentUri) error {
	path, err := uriToPath(uri)
	if err != nil {
		return fmt.Errorf("failed to convert URI %s: %w", uri, err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", path, err)
	}

	prog, parseErrs := irparse.Parse(content)
	var diagnostics []protocol.Diagnostic
	if len(parseErrs) > 0 {
		diagnostics = ConvertParseErrors(parseErrs)
	} else {
		diagnostics = ConvertIssues(irchecker.Check(prog))
	}

	h.mu.Lock()
	h.content[path] = string(content)
	h.progs[path] = prog
	h.mu.Unlock()

	sendDiagnostics(ctx, uri, diagnostics)
	return nil
}

func uriToPath(rawURI string) (string, error) {
	u, err := url.Parse(rawURI)
	if err != nil {
		return "", fmt.Errorf("invalid URI %s: %w", rawURI, err)
	}
	path := u.Path
	if runtime.GOOS == "windows" && strings.HasPrefix(path, "/") && len(path) > 3 && path[2] == ':' {
		path = path[1:]
	}
	return filepath.FromSlash(path), nil
}

func sendDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, diagnostics []protocol.Diagnostic) {
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

func ptrBool(b bool) *bool { return &b }

func ptrSyncKind(k protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind { return &k }
