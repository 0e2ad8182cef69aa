// SPDX-License-Identifier: Apache-2.0
package main

import (
	"log"
	"os"

	"github.com/arneph/katara-ir/internal/irlsp"
	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"
)

const lsName = "katara-ir"

func main() {
	commonlog.Configure(1, nil)

	h := irlsp.NewHandler()
	handler := protocol.Handler{
		Initialize:            h.Initialize,
		Initialized:           h.Initialized,
		Shutdown:              h.Shutdown,
		TextDocumentDidOpen:   h.TextDocumentDidOpen,
		TextDocumentDidClose:  h.TextDocumentDidClose,
		TextDocumentDidChange: h.TextDocumentDidChange,
	}

	s := server.NewServer(&handler, lsName, false)

	log.Println("starting katara-ir language server")
	if err := s.RunStdio(); err != nil {
		log.Println("error starting katara-ir language server:", err)
		os.Exit(1)
	}
}
