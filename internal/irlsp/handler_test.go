package irlsp_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/arneph/katara-ir/internal/irlsp"
	"github.com/stretchr/testify/require"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

func writeTempIR(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.kir")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestTextDocumentDidOpenValidProgramPublishesNoDiagnostics(t *testing.T) {
	path := writeTempIR(t, "@0 f() => () { {0} ret }\n")
	uri := "file://" + filepath.ToSlash(path)

	h := irlsp.NewHandler()
	err := h.TextDocumentDidOpen(&glsp.Context{}, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: uri},
	})
	require.NoError(t, err)
}

func TestTextDocumentDidChangeWithSyntaxErrorIsHandled(t *testing.T) {
	path := writeTempIR(t, "this is not valid ir\n")
	uri := "file://" + filepath.ToSlash(path)

	h := irlsp.NewHandler()
	err := h.TextDocumentDidChange(&glsp.Context{}, &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: uri},
		},
	})
	require.NoError(t, err)
}

func TestInitializeAdvertisesFullSyncOnly(t *testing.T) {
	h := irlsp.NewHandler()
	result, err := h.Initialize(&glsp.Context{}, &protocol.InitializeParams{})
	require.NoError(t, err)

	initResult, ok := result.(*protocol.InitializeResult)
	require.True(t, ok)
	sync, ok := initResult.Capabilities.TextDocumentSync.(*protocol.TextDocumentSyncOptions)
	require.True(t, ok)
	require.Equal(t, protocol.TextDocumentSyncKindFull, *sync.Change)
}
