// Package lsp implements the vaisto language server over a
// Content-Length framed JSON-RPC stream on stdin/stdout. Document
// events run through a single consumer: each request is handled to
// completion before the next is read.
package lsp

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"sync"
)

// DocumentState holds the latest text and analysis of an open file.
type DocumentState struct {
	URI      string
	Text     string
	Version  int
	analysis *analysis
}

type Server struct {
	documents map[string]*DocumentState
	mu        sync.RWMutex
	writer    io.Writer
	rootPath  string
}

func NewServer(writer io.Writer) *Server {
	return &Server{
		documents: make(map[string]*DocumentState),
		writer:    writer,
	}
}

// Run reads framed messages until EOF.
func (s *Server) Run(input io.Reader) {
	reader := bufio.NewReader(input)

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err != io.EOF {
				log.Printf("lsp: read header: %v", err)
			}
			return
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "Content-Length: ") {
			continue
		}
		contentLength, err := strconv.Atoi(strings.TrimPrefix(line, "Content-Length: "))
		if err != nil {
			log.Printf("lsp: bad Content-Length: %v", err)
			continue
		}

		// Skip remaining headers until the blank separator line.
		for {
			sep, err := reader.ReadString('\n')
			if err != nil {
				return
			}
			if strings.TrimRight(sep, "\r\n") == "" {
				break
			}
		}

		content := make([]byte, contentLength)
		if _, err := io.ReadFull(reader, content); err != nil {
			log.Printf("lsp: read content: %v", err)
			return
		}

		s.handleMessage(content)
	}
}

func (s *Server) handleMessage(content []byte) {
	var req RequestMessage
	if err := json.Unmarshal(content, &req); err != nil {
		log.Printf("lsp: bad message: %v", err)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("lsp: panic handling %s: %v", req.Method, r)
			if req.ID != nil {
				s.replyError(req.ID, ErrCodeInternalError, fmt.Sprintf("internal error: %v", r))
			}
		}
	}()

	switch req.Method {
	case "initialize":
		s.handleInitialize(req)
	case "initialized":
		// no-op notification
	case "shutdown":
		s.reply(req.ID, nil)
	case "exit":
		// The process loop ends when stdin closes.
	case "textDocument/didOpen":
		s.handleDidOpen(req)
	case "textDocument/didChange":
		s.handleDidChange(req)
	case "textDocument/didSave":
		s.handleDidSave(req)
	case "textDocument/didClose":
		s.handleDidClose(req)
	case "textDocument/hover":
		s.handleHover(req)
	case "textDocument/definition":
		s.handleDefinition(req)
	case "textDocument/documentSymbol":
		s.handleDocumentSymbol(req)
	default:
		if req.ID != nil {
			s.replyError(req.ID, ErrCodeMethodNotFound, "unhandled method "+req.Method)
		}
	}
}

func (s *Server) handleInitialize(req RequestMessage) {
	var params InitializeParams
	decodeParams(req.Params, &params)
	if params.RootPath != nil {
		s.rootPath = *params.RootPath
	} else if params.RootURI != nil {
		s.rootPath = uriToPath(*params.RootURI)
	}

	s.reply(req.ID, InitializeResult{
		Capabilities: ServerCapabilities{
			TextDocumentSync:       TextDocumentSyncFull,
			HoverProvider:          true,
			DefinitionProvider:     true,
			DocumentSymbolProvider: true,
		},
	})
}

func (s *Server) handleDidOpen(req RequestMessage) {
	var params DidOpenTextDocumentParams
	if !decodeParams(req.Params, &params) {
		return
	}
	doc := &DocumentState{
		URI:     params.TextDocument.URI,
		Text:    params.TextDocument.Text,
		Version: params.TextDocument.Version,
	}
	s.mu.Lock()
	s.documents[doc.URI] = doc
	s.mu.Unlock()
	s.analyzeAndPublish(doc)
}

func (s *Server) handleDidChange(req RequestMessage) {
	var params DidChangeTextDocumentParams
	if !decodeParams(req.Params, &params) {
		return
	}
	if len(params.ContentChanges) == 0 {
		return
	}
	s.mu.Lock()
	doc, ok := s.documents[params.TextDocument.URI]
	if ok {
		// Full sync: the last change carries the whole document.
		doc.Text = params.ContentChanges[len(params.ContentChanges)-1].Text
		doc.Version = params.TextDocument.Version
	}
	s.mu.Unlock()
	if ok {
		s.analyzeAndPublish(doc)
	}
}

func (s *Server) handleDidSave(req RequestMessage) {
	var params DidSaveTextDocumentParams
	if !decodeParams(req.Params, &params) {
		return
	}
	s.mu.RLock()
	doc, ok := s.documents[params.TextDocument.URI]
	s.mu.RUnlock()
	if !ok {
		return
	}
	if params.Text != nil {
		doc.Text = *params.Text
	}
	s.analyzeAndPublish(doc)
}

func (s *Server) handleDidClose(req RequestMessage) {
	var params DidCloseTextDocumentParams
	if !decodeParams(req.Params, &params) {
		return
	}
	s.mu.Lock()
	delete(s.documents, params.TextDocument.URI)
	s.mu.Unlock()
	// Clear stale diagnostics for the closed document.
	s.notify("textDocument/publishDiagnostics", PublishDiagnosticsParams{
		URI:         params.TextDocument.URI,
		Diagnostics: []Diagnostic{},
	})
}

func (s *Server) document(uri string) (*DocumentState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[uri]
	return doc, ok
}

// --- transport ---

func (s *Server) reply(id interface{}, result interface{}) {
	s.send(ResponseMessage{Jsonrpc: "2.0", ID: id, Result: result})
}

func (s *Server) replyError(id interface{}, code int, msg string) {
	s.send(ResponseMessage{Jsonrpc: "2.0", ID: id, Error: &Error{Code: code, Message: msg}})
}

func (s *Server) notify(method string, params interface{}) {
	s.send(NotificationMessage{Jsonrpc: "2.0", Method: method, Params: params})
}

func (s *Server) send(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("lsp: marshal: %v", err)
		return
	}
	fmt.Fprintf(s.writer, "Content-Length: %d\r\n\r\n%s", len(data), data)
}

func decodeParams(raw interface{}, dst interface{}) bool {
	data, err := json.Marshal(raw)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

func uriToPath(uri string) string {
	return strings.TrimPrefix(uri, "file://")
}
